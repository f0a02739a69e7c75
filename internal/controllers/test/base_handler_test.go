package controllers_test

import (
	"context"
	"testing"
	"time"

	"github.com/elevatr/video-processing-service/internal/controllers"
)

func TestBaseHandlerWithQueryTimeout(t *testing.T) {
	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{Query: 200 * time.Millisecond})
	ctx, cancel := handler.WithQueryTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("expected deadline to be set")
	}
	remaining := time.Until(deadline)
	if remaining < 150*time.Millisecond || remaining > 250*time.Millisecond {
		t.Fatalf("expected timeout near 200ms, got %v", remaining)
	}
}

func TestBaseHandlerFallbacks(t *testing.T) {
	for name, handler := range map[string]*controllers.BaseHandler{
		"zero": controllers.NewBaseHandler(controllers.HandlerTimeouts{}),
		"nil":  nil,
	} {
		ctx, cancel := handler.WithQueryTimeout(context.Background())
		deadline, ok := ctx.Deadline()
		cancel()
		if !ok {
			t.Fatalf("%s: expected fallback deadline", name)
		}
		if remaining := time.Until(deadline); remaining <= 2*time.Second || remaining > 3*time.Second {
			t.Fatalf("%s: expected fallback timeout near 3s, got %v", name, remaining)
		}
	}
}
