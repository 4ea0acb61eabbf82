package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"robot-bridge/backend/pkg/utils"
)

func TestStaticApp(t *testing.T) {
	t.Parallel()

	app, err := StaticApp()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want int
	}{
		{path: "/static/app.js", want: http.StatusOK},
		{path: "/static/style.css", want: http.StatusOK},
		{path: "/static/missing.js", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			app.Handler("/static/").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestPagesRender(t *testing.T) {
	t.Parallel()

	pages, err := NewPages()
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()

	err = pages.Render(rec, http.StatusUnauthorized, PageLogin, map[string]any{
		"Error":    "Invalid username or password",
		"Username": "<admin>",
	})
	if err != nil {
		t.Fatal(err)
	}

	body := rec.Body.String()

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}

	if !strings.Contains(body, "Invalid username or password") || !strings.Contains(body, "&lt;admin&gt;") {
		t.Errorf("unexpected body: %s", body)
	}

	if err := pages.Render(httptest.NewRecorder(), http.StatusOK, "missing.html", nil); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestTemplateFuncs(t *testing.T) {
	t.Parallel()

	if got := derefInt(nil); got != "-" {
		t.Errorf("derefInt(nil) = %q", got)
	}

	if got := derefInt(utils.Ptr(42)); got != "42" {
		t.Errorf("derefInt(42) = %q", got)
	}

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := formatTime(ts); got != "2025-03-04 05:06:07" {
		t.Errorf("formatTime() = %q", got)
	}
}
