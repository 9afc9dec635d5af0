package accesslog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/realip"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	original := logging.Global()
	core, obs := observer.New(zapcore.DebugLevel)
	logging.SetGlobal(zap.New(core))
	t.Cleanup(func() { logging.SetGlobal(original) })
	return obs
}

func TestMiddlewareLogsRequest(t *testing.T) {
	logs := observe(t)

	ex, err := realip.New(nil, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	h := ex.Middleware(Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("proxy-us.ambient.run:7000"))
	})))

	r := httptest.NewRequest("GET", "/proxy", nil)
	r.RemoteAddr = "1.2.3.4:5555"
	r.Header.Set("User-Agent", "ambient_network/1.0.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 access log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", e.Level)
	}
	ctx := e.ContextMap()
	if ctx["path"] != "/proxy" || ctx["status"] != int64(200) || ctx["client_ip"] != "1.2.3.4" {
		t.Errorf("unexpected fields: %v", ctx)
	}
	if ctx["bytes"] != int64(len("proxy-us.ambient.run:7000")) {
		t.Errorf("unexpected byte count: %v", ctx["bytes"])
	}
}

func TestMiddlewareQuietPaths(t *testing.T) {
	logs := observe(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("health probe should log at debug, got %v", entries[0].Level)
	}
	if entries[1].Level != zapcore.InfoLevel {
		t.Errorf("failed scrape should log at info, got %v", entries[1].Level)
	}
	if entries[1].ContextMap()["status"] != int64(500) {
		t.Errorf("expected status 500, got %v", entries[1].ContextMap()["status"])
	}
}
