package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/device/devicetest"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/internal/telemetry/metric"
)

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type fakeScripts struct{ checks []service.ScriptCheck }

func (f fakeScripts) ScriptDir() string                { return "/opt/response/nix" }
func (f fakeScripts) Preflight() []service.ScriptCheck { return f.checks }

type failingLister struct{}

func (failingLister) List(ctx context.Context) ([]domain.Descriptor, error) {
	return nil, domain.ErrDeviceIO.WithDetails("bus reset")
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestRouter(t *testing.T, cfg *RouterConfig) (http.Handler, *metric.Registry) {
	t.Helper()
	if cfg.Metrics == nil {
		cfg.Metrics = metric.NewRegistry()
	}
	cfg.Logger = testLogger(t)
	return NewRouter(cfg), cfg.Metrics
}

func get(t *testing.T, h http.Handler, path string, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	status := service.NewStatusTracker()
	h, _ := newTestRouter(t, &RouterConfig{Status: status})

	rec, env := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Code != "OK" {
		t.Errorf("code = %q", env.Code)
	}
	var body struct {
		Status string `json:"status"`
		State  string `json:"state"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if body.Status != "healthy" || body.State != "idle" {
		t.Errorf("health = %+v", body)
	}
}

func TestStatus(t *testing.T) {
	status := service.NewStatusTracker()
	h, _ := newTestRouter(t, &RouterConfig{Status: status})

	rec, env := get(t, h, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st struct {
		State    string `json:"state"`
		Sessions int    `json:"sessions"`
	}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if st.State != "idle" || st.Sessions != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatus_Unavailable(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{})

	rec, env := get(t, h, "/status")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if env.Code != "GD-SYS-5030" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestDevices(t *testing.T) {
	dir := devicetest.NewDirectory().
		Add(devicetest.NewToken("key-01", nil)).
		Add(devicetest.NewChannel(domain.Descriptor{Name: "disk", ID: "disk-1", Type: domain.DeviceStorage}, nil))
	h, _ := newTestRouter(t, &RouterConfig{Devices: dir})

	rec, env := get(t, h, "/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Devices []domain.Descriptor `json:"devices"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(body.Devices) != 2 || body.Devices[0].ID != "key-01" || body.Devices[1].Type != domain.DeviceStorage {
		t.Errorf("devices = %+v", body.Devices)
	}
}

func TestDevices_Empty(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{Devices: devicetest.NewDirectory()})

	_, env := get(t, h, "/devices")
	if !strings.Contains(string(env.Data), `"devices":[]`) {
		t.Errorf("data = %s, want empty list", env.Data)
	}
}

func TestDevices_Error(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{Devices: failingLister{}})

	rec, env := get(t, h, "/devices")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if env.Code != domain.ErrDeviceIO.Code {
		t.Errorf("code = %q, want %q", env.Code, domain.ErrDeviceIO.Code)
	}
	if rec.Header().Get("X-Error-Code") != domain.ErrDeviceIO.Code {
		t.Error("X-Error-Code header missing")
	}
}

func TestScripts(t *testing.T) {
	checks := []service.ScriptCheck{
		{Code: "sl", Path: "/opt/response/nix/sl.sh", Exists: true, Executable: true},
		{Code: "lu", Path: "/opt/response/nix/lu.sh"},
	}
	h, _ := newTestRouter(t, &RouterConfig{Scripts: fakeScripts{checks: checks}})

	_, env := get(t, h, "/scripts")
	var body struct {
		Dir     string                `json:"dir"`
		Scripts []service.ScriptCheck `json:"scripts"`
		Ready   bool                  `json:"ready"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if body.Ready {
		t.Error("ready should be false with a missing script")
	}
	if body.Dir != "/opt/response/nix" || len(body.Scripts) != 2 {
		t.Errorf("scripts = %+v", body)
	}
}

func TestVersion(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{})

	rec, env := get(t, h, "/version")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), `"go_version"`) {
		t.Errorf("data = %s", env.Data)
	}
}

func TestNotFound(t *testing.T) {
	h, reg := newTestRouter(t, &RouterConfig{})

	rec, env := get(t, h, "/commands/LOCK_SCREEN")
	if rec.Code != http.StatusNotFound || env.Code != "GD-SYS-4040" {
		t.Errorf("status = %d, code = %q", rec.Code, env.Code)
	}
	if got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, reg := newTestRouter(t, &RouterConfig{Status: service.NewStatusTracker()})

	get(t, h, "/health")
	get(t, h, "/health")

	rec, _ := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "guardian_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
	if got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("GET", "/health", "200")); got != 2 {
		t.Errorf("/health requests = %v, want 2", got)
	}
}

func TestRequestID(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{Status: service.NewStatusTracker()})

	rec, env := get(t, h, "/health")
	generated := rec.Header().Get(RequestIDHeader)
	if generated == "" || env.RequestID != generated {
		t.Errorf("request id header %q, body %q", generated, env.RequestID)
	}

	rec, env = get(t, h, "/health", RequestIDHeader, "cli-1234")
	if rec.Header().Get(RequestIDHeader) != "cli-1234" || env.RequestID != "cli-1234" {
		t.Errorf("client request id not kept: %q", env.RequestID)
	}

	rec, _ = get(t, h, "/health", RequestIDHeader, "bad id\n")
	if rec.Header().Get(RequestIDHeader) == "bad id\n" {
		t.Error("malformed request id should be replaced")
	}
}

func TestRecover(t *testing.T) {
	log := testLogger(t)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	})
	h := RequestID()(Recover(log)(panicking))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "GD-SYS-5000") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{Status: service.NewStatusTracker(), RateLimit: 2})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec, _ := get(t, h, "/health")
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first requests = %v, want 200s within burst", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 429 after burst", codes)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	h, _ := newTestRouter(t, &RouterConfig{Status: service.NewStatusTracker()})
	s := New("127.0.0.1:0", h, testLogger(t))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	select {
	case err, ok := <-s.Err():
		if ok && err != nil {
			t.Errorf("serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartBindError(t *testing.T) {
	s := New("127.0.0.1:-1", http.NotFoundHandler(), testLogger(t))
	if err := s.Start(); err == nil {
		t.Error("Start() should fail on an invalid address")
	}
}
