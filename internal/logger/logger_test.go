package logger

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", ServiceName: "lottobot"}, zapcore.AddSync(&buf))

	l.Info("synced", zap.Int("rounds", 3))
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "synced", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "lottobot", entry["service"])
	assert.EqualValues(t, 3, entry["rounds"])
}

func TestSetLevelAdjustsExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn"}, zapcore.AddSync(&buf))
	t.Cleanup(func() { SetLevel("info") })

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	l.Debug("kept")
	assert.Contains(t, buf.String(), "kept")

	SetLevel("nonsense")
	l.Debug("still kept")
	assert.Contains(t, buf.String(), "still kept")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { SetLevel("info") })
	l := New(Config{Level: "loud", Format: "console"}, zapcore.AddSync(&buf))

	l.Debug("nope")
	l.Info("yes")
	assert.NotContains(t, buf.String(), "nope")
	assert.Contains(t, buf.String(), "yes")
}

func TestLFallbackIsSharedAcrossGoroutines(t *testing.T) {
	prev := globalLogger.Load()
	globalLogger.Store(nil)
	defaultOnce = sync.Once{}
	t.Cleanup(func() { globalLogger.Store(prev) })

	const workers = 16
	got := make([]*zap.Logger, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = L()
		}()
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, l := range got[1:] {
		assert.Same(t, got[0], l)
	}
}

func TestInitReplacesFallback(t *testing.T) {
	prev := globalLogger.Load()
	t.Cleanup(func() {
		globalLogger.Store(prev)
		SetLevel("info")
	})

	Init(Config{Level: "info", Format: "json"})
	first := L()
	Init(Config{Level: "info", Format: "json"})
	assert.NotSame(t, first, L())
}
