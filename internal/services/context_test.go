package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"scantocookbook/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithImage(ctx, "/Screenshots/a.jpg")
	ctx = services.WithStage(ctx, "analyze")
	ctx = services.WithMode(ctx, "remote")
	ctx = services.WithRequestID(ctx, "req-1")

	image, ok := services.ImageFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "/Screenshots/a.jpg", image)

	stage, ok := services.StageFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "analyze", stage)

	mode, ok := services.ModeFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "remote", mode)

	id, ok := services.RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestContextHelpersIgnoreEmpty(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	_, ok := services.StageFromContext(ctx)
	assert.False(t, ok)
	_, ok = services.ImageFromContext(services.WithImage(ctx, ""))
	assert.False(t, ok)
}
