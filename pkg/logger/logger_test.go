package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_Levels(t *testing.T) {
	t.Cleanup(func() { Log = zap.NewNop() })

	require.NoError(t, Init("development", "debug"))
	assert.True(t, Log.Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("production", "error"))
	assert.False(t, Log.Core().Enabled(zap.WarnLevel))

	assert.Error(t, Init("development", "loud"))
}

func TestHelpers_NopByDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("info")
		Warn("warn")
		With(zap.String("k", "v")).Debug("child")
		Sync()
	})
}
