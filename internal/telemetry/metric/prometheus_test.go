package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/guardian/internal/core/domain"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.SessionsTotal == nil || r.CommandsTotal == nil || r.AuthFailures == nil {
		t.Error("core metrics should be initialized")
	}
}

func TestGlobal(t *testing.T) {
	r1 := Global()
	r2 := Global()
	if r1 != r2 {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	h := Handler()
	if h == nil {
		t.Fatal("Handler() returned nil")
	}

	body := scrape(t, Global())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestSessionMetrics(t *testing.T) {
	r := NewRegistry()

	r.IncSessionActive()
	r.IncSessionActive()
	r.DecSessionActive()
	r.RecordSession("authenticated")
	r.RecordSession("authenticated")
	r.RecordSession("rejected")

	if got := testutil.ToFloat64(r.SessionsActive); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.SessionsTotal.WithLabelValues("authenticated")); got != 2 {
		t.Errorf("sessions_total{authenticated} = %v, want 2", got)
	}

	body := scrape(t, r)
	if !strings.Contains(body, `guardian_sessions_total{outcome="rejected"} 1`) {
		t.Error("expected guardian_sessions_total{outcome=\"rejected\"} 1")
	}
}

func TestCommandMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordCommand("LOCK_SCREEN", "ok")
	r.RecordCommand("LOCK_SCREEN", "ok")
	r.RecordCommand("DELETE_ALL", "unknown")
	r.ObserveCommandDuration("LOCK_SCREEN", 0.02)

	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("LOCK_SCREEN", "ok")); got != 2 {
		t.Errorf("commands_total{LOCK_SCREEN,ok} = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(r.CommandDuration); got != 1 {
		t.Errorf("command_duration series = %d, want 1", got)
	}

	body := scrape(t, r)
	if !strings.Contains(body, `guardian_commands_total{command="DELETE_ALL",result="unknown"} 1`) {
		t.Error("expected unknown command counter")
	}
	if !strings.Contains(body, "guardian_command_duration_seconds_bucket") {
		t.Error("expected guardian_command_duration_seconds_bucket")
	}
}

func TestAuthAndDiscoveryMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordAuthFailure("mismatch")
	r.RecordDiscovery("token")
	r.RecordDiscovery("storage")
	r.RecordDiscovery("storage")

	if got := testutil.ToFloat64(r.AuthFailures.WithLabelValues("mismatch")); got != 1 {
		t.Errorf("auth_failures{mismatch} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.DevicesDiscovered.WithLabelValues("storage")); got != 2 {
		t.Errorf("devices_discovered{storage} = %v, want 2", got)
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("GET", "/status", "200")
	r.ObserveRequestDuration("GET", "/status", 0.003)

	body := scrape(t, r)
	if !strings.Contains(body, `guardian_http_requests_total{method="GET",route="/status",status="200"} 1`) {
		t.Error("expected guardian_http_requests_total for GET /status")
	}
	if !strings.Contains(body, "guardian_http_request_duration_seconds_count") {
		t.Error("expected guardian_http_request_duration_seconds_count")
	}
}

type fixedState domain.SessionState

func (s fixedState) CurrentState() domain.SessionState { return domain.SessionState(s) }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCollector(fixedState(domain.StateCommandLoop))); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := scrape(t, r)
	if !strings.Contains(body, `guardian_state{state="command_loop"} 1`) {
		t.Error("expected command_loop state to be 1")
	}
	if !strings.Contains(body, `guardian_state{state="idle"} 0`) {
		t.Error("expected idle state to be 0")
	}

	if got := testutil.CollectAndCount(NewCollector(fixedState(domain.StateIdle))); got != 6 {
		t.Errorf("collector series = %d, want 6", got)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.IncSessionActive()
				r.RecordSession("authenticated")
				r.RecordCommand("CHECK_STATUS", "ok")
				r.ObserveCommandDuration("CHECK_STATUS", 0.001)
				r.DecSessionActive()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := testutil.ToFloat64(r.SessionsTotal.WithLabelValues("authenticated")); got != 1000 {
		t.Errorf("sessions_total = %v, want 1000", got)
	}
	if got := testutil.ToFloat64(r.SessionsActive); got != 0 {
		t.Errorf("sessions_active = %v, want 0", got)
	}
}
