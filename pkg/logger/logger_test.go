package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ErrorAppendsErrField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Error("save failed", errors.New("boom"), zap.String("section", "education"))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "education", ctx["section"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_WithKeepsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).With(zap.String("owner_id", "u-1"))

	l.Info("loaded")
	l.Debug("details")

	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "u-1", e.ContextMap()["owner_id"])
	}
}

func TestZapLogger_NilErrorIsNotLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	NewFromZap(zap.New(core)).Error("no cause", nil)

	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["error"]
	assert.False(t, ok)
}
