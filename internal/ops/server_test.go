package ops

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRouter_Healthz(t *testing.T) {
	r := NewRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/healthz = %d; want 200", w.Code)
	}
}

func TestRouter_Readyz(t *testing.T) {
	ready := false
	r := NewRouter(func() bool { return ready })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz (not ready) = %d; want 503", w.Code)
	}

	ready = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/readyz (ready) = %d; want 200", w.Code)
	}
}

func TestRouter_MetricsExposesCollectors(t *testing.T) {
	CountOperation("adduser", "completed")
	ObserveProvider("directory", "insert", time.Now().Add(-10*time.Millisecond), nil)
	ObserveProvider("mail", "send", time.Now(), errors.New("boom"))
	SetSpoolPending(3)

	r := NewRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics = %d; want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"bot_operations_total",
		"provider_request_duration_seconds",
		"provider_request_errors_total",
		"audit_spool_pending_rows",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
