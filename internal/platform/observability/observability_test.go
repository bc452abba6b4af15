package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanko-field/bizdoc/internal/platform/requestctx"
)

func TestNewLoggerLevelFallback(t *testing.T) {
	logger, err := newLogger("not-a-level", []string{"stderr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info level enabled by default")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level disabled by default")
	}

	debug, err := newLogger(" DEBUG ", []string{"stderr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
}

func TestEventLoggerEmitsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logEvent := EventLogger(zap.New(core), "calculator")

	logEvent(context.Background(), "discount_clamped", map[string]any{"subtotal": int64(100)})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.LoggerName != "calculator" {
		t.Fatalf("expected logger name calculator, got %q", entry.LoggerName)
	}
	fields := entry.ContextMap()
	if fields["event"] != "discount_clamped" {
		t.Fatalf("expected event field, got %v", fields["event"])
	}
	if fields["subtotal"] != int64(100) {
		t.Fatalf("expected subtotal field, got %v", fields["subtotal"])
	}
}

func TestEventLoggerPrefersContextLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.DebugLevel)
	scopedCore, scopedLogs := observer.New(zapcore.DebugLevel)
	logEvent := EventLogger(zap.New(baseCore), "editor")

	ctx := requestctx.WithLogger(context.Background(), zap.New(scopedCore))
	ctx = requestctx.WithSessionID(ctx, "sess\n01")
	logEvent(ctx, "session_mutation_rejected", nil)

	if baseLogs.Len() != 0 {
		t.Fatalf("expected base logger unused, got %d entries", baseLogs.Len())
	}
	if scopedLogs.Len() != 1 {
		t.Fatalf("expected scoped logger used, got %d entries", scopedLogs.Len())
	}
	if got := scopedLogs.All()[0].ContextMap()["session_id"]; got != "sess01" {
		t.Fatalf("expected sanitized session id, got %v", got)
	}
}

func TestRequestLoggerMiddlewareLogsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(InjectLoggerMiddleware(zap.New(core)))
	r.Use(RequestLoggerMiddleware())
	r.Get("/api/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc?notes=secret", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 404, got %v", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["route"] != "/api/v1/sessions/{id}" {
		t.Fatalf("expected route pattern, got %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("expected status 404, got %v", fields["status"])
	}
	if fields["bytes"] != int64(4) {
		t.Fatalf("expected 4 bytes, got %v", fields["bytes"])
	}
	if fields["request_id"] == "" {
		t.Fatalf("expected request id")
	}
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "secret") {
			t.Fatalf("query string leaked into log fields: %v", fields)
		}
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "internal_server_error") {
		t.Fatalf("expected error code in body, got %s", rr.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestSanitizeHelpers(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("expected / for empty route, got %q", got)
	}
	if got := SanitizeMethod("GET\x00EXTRA-LONG"); got != "GETEXTRA-L" {
		t.Fatalf("unexpected sanitized method %q", got)
	}
}
