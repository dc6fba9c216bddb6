package services_test

import (
	"context"
	"testing"

	"moderbot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPostID(ctx, 42)
	ctx = services.WithUserID(ctx, 7)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.PostIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected post id: %v %v", id, ok)
	}
	if id, ok := services.UserIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected user id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUserID(ctx, 0)
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.UserIDFromContext(ctx); ok {
		t.Fatal("expected no user id value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
}
