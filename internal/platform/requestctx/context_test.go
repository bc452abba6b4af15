package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFallsBackToNoop(t *testing.T) {
	if got := Logger(context.Background()); got != NoopLogger() {
		t.Fatalf("expected noop logger for empty context")
	}
	//nolint:staticcheck
	if got := Logger(nil); got != NoopLogger() {
		t.Fatalf("expected noop logger for nil context")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if got := Logger(ctx); got != logger {
		t.Fatalf("expected stored logger to be returned")
	}
	if got := Logger(WithLogger(context.Background(), nil)); got != NoopLogger() {
		t.Fatalf("expected nil logger to be replaced with noop")
	}
}

func TestSessionID(t *testing.T) {
	if id := SessionID(context.Background()); id != "" {
		t.Fatalf("expected empty session id, got %q", id)
	}
	ctx := WithSessionID(context.Background(), "01J9Z")
	if id := SessionID(ctx); id != "01J9Z" {
		t.Fatalf("expected session id 01J9Z, got %q", id)
	}
}
