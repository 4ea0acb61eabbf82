package services

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"robot-bridge/backend/pkg/utils"
)

const (
	SessionCookieName = "robot_session"
	sessionTTL        = 12 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	errInvalidSession     = errors.New("invalid session")
)

// SessionService checks the single configured credential pair and issues signed session cookies.
// Sessions are stateless: the cookie holds a session id and an expiry, signed by securecookie.
type SessionService struct {
	l        *slog.Logger
	username string
	password string
	codec    *securecookie.SecureCookie
	now      func() time.Time
}

// session is the signed cookie payload.
type session struct {
	ID      string `json:"id"`
	Expires int64  `json:"exp"`
}

// NewSessionService creates the service. An empty secret is replaced by a random one,
// which invalidates sessions on restart.
func NewSessionService(l *slog.Logger, username, password, secret string) (*SessionService, error) {
	l = l.With(slog.String("service", "sessions"))

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}

		l.Warn("No session secret configured, sessions will not survive a restart")
	}

	return &SessionService{
		l:        l,
		username: username,
		password: password,
		codec:    securecookie.New(key, nil).MaxAge(int(sessionTTL.Seconds())).SetSerializer(securecookie.JSONEncoder{}),
		now:      time.Now,
	}, nil
}

// Login returns a session cookie for valid credentials.
func (s *SessionService) Login(username, password string) (*http.Cookie, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1

	if !userOK || !passOK {
		s.l.Warn("Rejected login", slog.String("username", username))

		return nil, ErrInvalidCredentials
	}

	expires := s.now().Add(sessionTTL)

	value, err := s.codec.Encode(SessionCookieName, session{ID: utils.NewUUID(), Expires: expires.Unix()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Logout returns a cookie that clears the session.
func (s *SessionService) Logout() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Authenticated reports whether r carries a valid, unexpired session cookie.
func (s *SessionService) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}

	return s.verify(c.Value) == nil
}

func (s *SessionService) verify(value string) error {
	var sess session
	if err := s.codec.Decode(SessionCookieName, value, &sess); err != nil {
		return errors.Join(errInvalidSession, err)
	}

	// securecookie bounds the age by wall clock, the payload expiry by s.now
	if !s.now().Before(time.Unix(sess.Expires, 0)) {
		return errInvalidSession
	}

	return nil
}
