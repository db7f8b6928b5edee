package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewParsesLevel(t *testing.T) {
	l, err := New("warn", "production")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNewFallsBackToInfo(t *testing.T) {
	l, err := New("loud", "development")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
