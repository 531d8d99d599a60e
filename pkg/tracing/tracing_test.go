package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

func TestNewTracerProvider_DisabledWithoutEndpoint(t *testing.T) {
	var cfg config.Config

	tp, err := NewTracerProvider(context.Background(), cfg, logger.NewNopLogger(), "profile-editor-test")

	require.NoError(t, err)
	assert.Nil(t, tp)
	Shutdown(context.Background(), tp, logger.NewNopLogger())
}

func TestNewTracerProvider_WithEndpoint(t *testing.T) {
	var cfg config.Config
	cfg.Jaeger.OTLPEndpoint = "localhost:4317"

	tp, err := NewTracerProvider(context.Background(), cfg, logger.NewNopLogger(), "profile-editor-test")

	require.NoError(t, err)
	require.NotNil(t, tp)
	Shutdown(context.Background(), tp, logger.NewNopLogger())
}
