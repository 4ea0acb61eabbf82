// Package web embeds the control UI: static assets and the server rendered pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

//go:embed all:static
var staticFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

type Router interface {
	HandleFunc(pattern string, handler http.HandlerFunc)
	Mount(pattern string, handler http.Handler)
}

// StaticApp serves the UI's scripts and stylesheets under /static/.
func StaticApp() (*WebApp, error) {
	return NewWebApp("static", staticFS, "static", "/static/")
}

type WebApp struct {
	name    string
	l       *slog.Logger
	fs      fs.FS
	urlBase string
}

func NewWebApp(name string, app fs.FS, subDir string, urlBase string) (*WebApp, error) {
	subFS, err := fs.Sub(app, subDir)
	if err != nil {
		return nil, err
	}

	urlBase = "/" + strings.Trim(urlBase, "/") + "/"

	return &WebApp{
		name:    name,
		fs:      subFS,
		urlBase: urlBase,
		l:       slog.Default().With(slog.String("component", name)),
	}, nil
}

func (wa *WebApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	f, err := fs.Stat(wa.fs, path)
	if err != nil || f.IsDir() {
		wa.l.Warn("File not found", slog.String("path", path))
		http.NotFound(w, r)

		return
	}

	http.ServeFileFS(w, r, wa.fs, path)
}

// Handler returns an http.Handler that serves the WebApp at the given path.
func (wa *WebApp) Handler(path string) http.Handler {
	return http.StripPrefix(path, wa)
}

// Register mounts the WebApp on mux at its base URL.
func (wa *WebApp) Register(mux Router, l *slog.Logger) {
	wa.l = l.With(slog.String("app", wa.name), slog.String("urlBase", wa.urlBase), slog.String("component", "file-server"))
	wa.l.Info("Registering web app")

	mux.Mount(strings.TrimSuffix(wa.urlBase, "/"), wa.Handler(wa.urlBase))
}

// Page names accepted by Pages.Render.
const (
	PageIndex   = "index.html"
	PageLogin   = "login.html"
	PageHistory = "history.html"
)

// Pages renders the server side HTML templates.
type Pages struct {
	tmpl *template.Template
}

func NewPages() (*Pages, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"deref":    derefInt,
		"datetime": formatTime,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Pages{tmpl: tmpl}, nil
}

// Render executes the named page into a buffer first so a template error never sends a partial page.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, err := buf.WriteTo(w)

	return err
}

func derefInt(p *int) string {
	if p == nil {
		return "-"
	}

	return fmt.Sprint(*p)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
