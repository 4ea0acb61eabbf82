package api

import (
	"errors"
	"mime"
	"net/http"

	apitypes "robot-bridge/backend/internal/api/types"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/services"
	apicommon "robot-bridge/backend/internal/shared/api"
	sharedtypes "robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/web"
)

type indexPage struct {
	AuthEnabled bool
	Status      robot.Snapshot
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) error {
	return h.pages.Render(w, http.StatusOK, web.PageIndex, indexPage{
		AuthEnabled: h.svc.Sessions != nil,
		Status:      h.svc.Control.Status(),
	})
}

type loginPage struct {
	Username string
	Error    string
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) error {
	if h.svc.Sessions == nil || h.svc.Sessions.Authenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)

		return nil
	}

	return h.pages.Render(w, http.StatusOK, web.PageLogin, loginPage{})
}

// Login accepts the login form or a JSON body. Forms are redirected, JSON callers get JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	if h.svc.Sessions == nil {
		return apicommon.NewError(http.StatusNotFound, "Authentication is disabled")
	}

	if isJSON(r) {
		req, err := apicommon.DecodeJSON[apitypes.LoginRequest](w, r, false)
		if err != nil {
			return err
		}

		cookie, err := h.svc.Sessions.Login(req.Username, req.Password)
		if errors.Is(err, services.ErrInvalidCredentials) {
			return apicommon.NewError(http.StatusUnauthorized, "Invalid username or password")
		}

		if err != nil {
			return err
		}

		http.SetCookie(w, cookie)
		apicommon.RespondJSON(w, r, http.StatusOK, apitypes.LoginResponse{Status: sharedtypes.StatusOK})

		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, apicommon.MaxBodySize)
	if err := r.ParseForm(); err != nil {
		return apicommon.NewError(http.StatusBadRequest, "Invalid form")
	}

	username := r.PostForm.Get("username")

	cookie, err := h.svc.Sessions.Login(username, r.PostForm.Get("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		return h.pages.Render(w, http.StatusUnauthorized, web.PageLogin, loginPage{Username: username, Error: "Invalid username or password"})
	}

	if err != nil {
		return err
	}

	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)

	return nil
}

func (h *Handler) RegisterLogin(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "login",
		Summary:     "Sign in",
		Description: "Checks the configured credentials and sets the session cookie. Also accepts an HTML form post, which is redirected to the control page.",
		Group:       AuthGroup,
		Handler:     apicommon.ErrorHandler(h.Login),
		RequestType: &router.RequestBodySpec{
			Type:     apitypes.LoginRequest{},
			Examples: map[string]any{"Login": apitypes.LoginRequest{Username: "operator", Password: "secret"}},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Signed in",
				Type:        apitypes.LoginResponse{},
				Examples:    map[string]any{"Success": apitypes.LoginResponse{Status: "OK"}},
			},
			http.StatusUnauthorized: apicommon.ErrorSpec("Invalid credentials", "Invalid username or password"),
			http.StatusNotFound:     apicommon.ErrorSpec("Authentication disabled", "Authentication is disabled"),
		}),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	if h.svc.Sessions != nil {
		http.SetCookie(w, h.svc.Sessions.Logout())
	}

	if isJSON(r) {
		apicommon.RespondJSON(w, r, http.StatusOK, apitypes.LoginResponse{Status: sharedtypes.StatusOK})

		return nil
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)

	return nil
}

func (h *Handler) RegisterLogout(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "logout",
		Summary:     "Sign out",
		Description: "Clears the session cookie. Form posts are redirected to the login page.",
		Group:       AuthGroup,
		Handler:     apicommon.ErrorHandler(h.Logout),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Signed out",
				Type:        apitypes.LoginResponse{},
				Examples:    map[string]any{"Success": apitypes.LoginResponse{Status: "OK"}},
			},
		}),
	})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))

	return err == nil && mt == "application/json"
}
