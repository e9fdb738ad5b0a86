package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatConsole, "xml"} {
		l, err := New("debug", format)
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}
}

func TestScopedLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.ForUser("thread", "alice").Info("opened")
	l.ForRequest("corr-1", "").Info("anonymous")
	l.ForRequest("corr-2", "bob").Info("authenticated")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "thread", entries[0].LoggerName)
	assert.Equal(t, "alice", entries[0].ContextMap()["user_id"])

	assert.Equal(t, "corr-1", entries[1].ContextMap()["correlation_id"])
	assert.NotContains(t, entries[1].ContextMap(), "user_id")

	assert.Equal(t, "bob", entries[2].ContextMap()["user_id"])
}

func TestSetGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := SetGlobal(Wrap(zap.New(core)))
	zap.L().Info("via global")
	restore()
	zap.L().Info("after restore")

	assert.Equal(t, 1, logs.Len())
}
