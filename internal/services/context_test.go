package services_test

import (
	"context"
	"testing"

	"beaconsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithSource(ctx, "/captures/take1.mp4")
	ctx = services.WithStage(ctx, "detect")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "/captures/take1.mp4" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "detect" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithSource(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
	if _, ok := services.SourceFromContext(ctx); ok {
		t.Fatal("expected no source")
	}
}
