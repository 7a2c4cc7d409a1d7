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
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)

	_, err = New("chatty")
	assert.Error(t, err)
}

func TestWithRequestOmitsAnonymousUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	l.WithRequest("corr-1", "").Info("anonymous")
	l.WithRequest("corr-2", "user-1").Info("authenticated")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"correlation_id": "corr-1"}, entries[0].ContextMap())
	assert.Equal(t, map[string]interface{}{"correlation_id": "corr-2", "user_id": "user-1"}, entries[1].ContextMap())
}

func TestSetGlobalReplacesZapGlobals(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	SetGlobal(&Logger{Logger: zap.New(core)})

	zap.L().Info("through zap")
	Global().Info("through package")
	assert.Equal(t, 2, logs.Len())
}
