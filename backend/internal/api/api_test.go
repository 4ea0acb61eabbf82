package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	apitypes "robot-bridge/backend/internal/api/types"
	"robot-bridge/backend/internal/config"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/services"
	apicommon "robot-bridge/backend/internal/shared/api"
	sharedtypes "robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/generate"
	"robot-bridge/backend/pkg/live"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/backend/pkg/utils"
	"robot-bridge/web"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(_, _ string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.payloads = append(f.payloads, payload)

	return nil
}

func (f *fakePublisher) PublishRaw(operationID, topic, payload string) error {
	return f.Publish(operationID, topic, payload)
}

func (f *fakePublisher) IsConnected() bool { return f.err == nil }

type testEnv struct {
	handler http.Handler
	state   *robot.State
	mem     *store.Memory
	pub     *fakePublisher
	svc     *services.Services
}

type envOption func(c *config.Config, st *store.DocumentStore, pub *fakePublisher)

func withAuth(c *config.Config, _ *store.DocumentStore, _ *fakePublisher) {
	c.AuthUsername = "operator"
	c.AuthPassword = "secret"
	c.SessionSecret = "test-secret"
}

func withoutStore(_ *config.Config, st *store.DocumentStore, _ *fakePublisher) {
	*st = nil
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		StoreDriver: config.StoreMemory,
		Topics: config.Topics{
			Command: "robot/command/set",
			Status:  "robot/telemetry/status",
			Data:    "robot/telemetry/data",
			Mode:    "robot/mode/status",
		},
		HistoryDefaultLimit: 50,
		HistoryMaxLimit:     500,
	}

	mem := store.NewMemory()
	pub := &fakePublisher{}

	var st store.DocumentStore = mem
	for _, opt := range opts {
		opt(cfg, &st, pub)
	}

	state := robot.NewState()

	svc, err := services.NewServices(l, cfg, state, st, pub)
	if err != nil {
		t.Fatal(err)
	}

	svc.Readiness.MarkReady()

	pages, err := web.NewPages()
	if err != nil {
		t.Fatal(err)
	}

	static, err := web.StaticApp()
	if err != nil {
		t.Fatal(err)
	}

	streamer := live.NewStreamer[robot.Snapshot](l, state)
	t.Cleanup(streamer.Close)

	rb, err := router.NewRouteBuilder(l, &generate.NoopCollector{})
	if err != nil {
		t.Fatal(err)
	}

	NewHandler(l, svc, pages, streamer).RegisterRoutes(rb, apicommon.NewMiddlewareHandler(l), static)

	return &testEnv{handler: rb.Router(), state: state, mem: mem, pub: pub, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	v, err := utils.FromJSON[T](rec.Body.Bytes())
	if err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}

	return v
}

func TestSetSpeedAcceptsFullRange(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for v := robot.MinSpeed; v <= robot.MaxSpeed; v++ {
		rec := env.do(t, http.MethodPost, "/api/speed/"+strconv.Itoa(v), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /api/speed/%d = %d", v, rec.Code)
		}

		status := decode[apitypes.StatusResponse](t, env.do(t, http.MethodGet, "/api/status", ""))
		if status.Speed != v {
			t.Fatalf("status speed = %d, want %d", status.Speed, v)
		}
	}
}

func TestSetSpeedRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"-1", "256", "1000", "fast", "1.5"} {
		t.Run(value, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)

			if rec := env.do(t, http.MethodPost, "/api/speed/42", ""); rec.Code != http.StatusOK {
				t.Fatalf("setup failed: %d", rec.Code)
			}

			rec := env.do(t, http.MethodPost, "/api/speed/"+value, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("POST /api/speed/%s = %d, want 400", value, rec.Code)
			}

			body := decode[sharedtypes.ErrorResponse](t, rec)
			if body.Status != sharedtypes.StatusError || body.Message != invalidSpeedMessage {
				t.Errorf("error body = %+v", body)
			}

			if got := env.state.Snapshot().Speed; got != 42 {
				t.Errorf("speed changed to %d", got)
			}

			if len(env.pub.payloads) != 1 {
				t.Errorf("rejected speed published: %v", env.pub.payloads)
			}
		})
	}
}

func TestToggleModeTwiceReturnsToManual(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	first := decode[apitypes.ModeResponse](t, env.do(t, http.MethodPost, "/api/mode", ""))
	second := decode[apitypes.ModeResponse](t, env.do(t, http.MethodPost, "/api/mode", ""))

	if first.Mode != "AUTO" || second.Mode != "MANUAL" {
		t.Errorf("modes = %s, %s", first.Mode, second.Mode)
	}
}

func TestCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{name: "forward", body: `{"command":"F"}`, wantStatus: http.StatusOK, wantMessage: "Published F"},
		{name: "empty object stops", body: `{}`, wantStatus: http.StatusOK, wantMessage: "Published S"},
		{name: "no body stops", body: "", wantStatus: http.StatusOK, wantMessage: "Published S"},
		{name: "two letters", body: `{"command":"FW"}`, wantStatus: http.StatusBadRequest},
		{name: "not JSON", body: `command=F`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"cmd":"F"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/api/command", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				if len(env.pub.payloads) != 0 {
					t.Error("rejected command was published")
				}

				return
			}

			resp := decode[apitypes.CommandResponse](t, rec)
			if resp.Status != sharedtypes.StatusOK || resp.Message != tt.wantMessage || !resp.Published || resp.Mode != "MANUAL" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestCommandPublishFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.pub.err = errors.New("not connected")

	rec := env.do(t, http.MethodPost, "/command", `{"command":"L"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if resp := decode[apitypes.CommandResponse](t, rec); resp.Published {
		t.Error("expected published = false")
	}

	if got := env.state.Snapshot().LastCommand; got != "L" {
		t.Errorf("lastCommand = %q", got)
	}
}

func TestLegacyRoutes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/speed/99", ""); rec.Code != http.StatusOK {
		t.Fatalf("POST /speed/99 = %d", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/mode", ""); rec.Code != http.StatusOK {
		t.Fatalf("POST /mode = %d", rec.Code)
	}

	status := decode[apitypes.StatusResponse](t, env.do(t, http.MethodGet, "/status", ""))
	if status.Speed != 99 || status.Mode != "AUTO" {
		t.Errorf("status = %+v", status)
	}

	rec := env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("GET / = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	if rec := env.do(t, http.MethodGet, "/static/app.js", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /static/app.js = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	healthy := decode[apitypes.HealthResponse](t, env.do(t, http.MethodGet, "/api/health", ""))
	if healthy.Mongo != "connected" || healthy.MQTT != "connected" || healthy.Store != "memory" {
		t.Errorf("health = %+v", healthy)
	}

	env.mem.SetPingError(errors.New("server selection timeout"))
	env.pub.err = errors.New("not connected")

	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	degraded := decode[apitypes.HealthResponse](t, rec)
	if degraded.Status != "OK" || degraded.Mongo != "disconnected" || degraded.MQTT != "disconnected" {
		t.Errorf("health = %+v", degraded)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	for i, ts := range []time.Time{
		time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC),
	} {
		if err := env.mem.InsertTelemetry(ctx, store.TelemetryRecord{Timestamp: ts, Speed: i, Mode: "MANUAL", Direction: "S"}); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/history?from=2025-05-01&to=2025-05-02", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[apitypes.HistoryResponse](t, rec)
	if resp.Kind != "telemetry" || resp.Count != 2 || resp.Telemetry[0].Speed != 1 {
		t.Errorf("history = %+v", resp)
	}

	for _, q := range []string{"limit=0", "limit=501", "from=yesterday", "kind=gas"} {
		if rec := env.do(t, http.MethodGet, "/api/history?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("GET /api/history?%s = %d, want 400", q, rec.Code)
		}
	}

	page := env.do(t, http.MethodGet, "/history?kind=sensor", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "No records") {
		t.Errorf("GET /history = %d", page.Code)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withoutStore)

	if rec := env.do(t, http.MethodGet, "/api/history", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/history = %d, want 503", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/history", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /history = %d, want 503", rec.Code)
	}

	health := decode[apitypes.HealthResponse](t, env.do(t, http.MethodGet, "/api/health", ""))
	if health.Mongo != "disconnected" {
		t.Errorf("health = %+v", health)
	}
}

func TestNotReady(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := newTestEnv(t)

	// a fresh Readiness that was never marked ready
	env.svc.Readiness = &services.Readiness{}

	rb, err := router.NewRouteBuilder(l, &generate.NoopCollector{})
	if err != nil {
		t.Fatal(err)
	}

	pages, _ := web.NewPages()
	static, _ := web.StaticApp()
	NewHandler(l, env.svc, pages, http.NotFoundHandler()).RegisterRoutes(rb, apicommon.NewMiddlewareHandler(l), static)
	env.handler = rb.Router()

	if rec := env.do(t, http.MethodPost, "/api/speed/10", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/speed/10 = %d, want 503", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/api/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/ready = %d, want 503", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/api/status", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /api/status = %d, want 200", rec.Code)
	}

	if env.state.Snapshot().Speed != 0 {
		t.Error("state changed while not ready")
	}
}

func TestSessionGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withAuth)

	if rec := env.do(t, http.MethodGet, "/api/status", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /api/status without session = %d, want 401", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/", "", "Accept", "text/html")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("GET / = %d %s, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}

	if rec := env.do(t, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /api/health = %d, health must stay public", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/login", `{"username":"operator","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", rec.Code)
	}

	login := env.do(t, http.MethodPost, "/login", `{"username":"operator","password":"secret"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", login.Code, login.Body.String())
	}

	cookies := login.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != services.SessionCookieName {
		t.Fatalf("cookies = %v", cookies)
	}

	rec = env.do(t, http.MethodGet, "/api/status", "", "Cookie", cookies[0].Name+"="+cookies[0].Value)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/status with session = %d", rec.Code)
	}

	form := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=operator&password=secret"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, form)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("form login = %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLiveFeed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatal(err)
	}

	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap robot.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}

	if snap.Mode != robot.ModeManual {
		t.Errorf("initial snapshot = %+v", snap)
	}

	if err := env.state.SetSpeed(180); err != nil {
		t.Fatal(err)
	}

	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}

	if snap.Speed != 180 {
		t.Errorf("update = %+v, want speed 180", snap)
	}
}
