package logger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"quote-engine/monitor/logschema"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	l := Wrap(zap.New(core))
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, logs
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWithFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      "debug",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "engine.log"),
		ErrorFile:  filepath.Join(dir, "error.log"),
		Format:     "json",
	})
	require.NoError(t, err)
	l.Info("hello")
	assert.FileExists(t, filepath.Join(dir, "engine.log"))
	assert.FileExists(t, filepath.Join(dir, "error.log"))
}

func TestLogQuoteCarriesFields(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.LogQuote(map[string]interface{}{
		"symbol": "BTCUSDT", "sequence": uint64(3), "quoted": true, "mid": "100.5", "riskScore": 20.0,
	})
	entries := logs.FilterMessage(logschema.EventQuoteDecision).All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "BTCUSDT", ctx["symbol"])
	assert.Equal(t, "2024-01-02T03:04:05Z", ctx["ts"])
	assert.NotContains(t, ctx, "_schema_error")
}

func TestEventFlagsSchemaViolations(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.LogHedge(map[string]interface{}{"symbol": "BTCUSDT"})
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["_schema_error"], "action")
}

func TestLevels(t *testing.T) {
	l, logs := observed(zapcore.WarnLevel)
	l.LogQuote(map[string]interface{}{"symbol": "X"})
	l.LogRisk(map[string]interface{}{"symbol": "X", "reason": "toxic flow"})
	l.LogError(errors.New("boom"), nil)

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "boom", all[1].ContextMap()["error"])
}

func TestWithFields(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)
	l.WithFields(map[string]interface{}{"component": "runner"}).Info("started")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "runner", logs.All()[0].ContextMap()["component"])
}
