package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesJSONWithServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gojorel.log")
	log, err := New(Config{Level: "debug", Format: "json", OutputFile: path})
	require.NoError(t, err)

	log.Debug("end-point loaded")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "end-point loaded", entry["msg"])
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gojorel.log")
	log, err := New(Config{Level: "chatty", OutputFile: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(Config{OutputFile: filepath.Join(t.TempDir(), "missing", "gojorel.log")})
	assert.Error(t, err)
}

func TestNew_DiscardOutput(t *testing.T) {
	log, err := New(Config{Level: "debug", OutputFile: "discard"})
	require.NoError(t, err)
	log.Info("dropped")
	assert.NoError(t, log.Sync())
}

func TestForTransaction_TagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	id := uuid.New()

	log := ForTransaction(zap.New(core), id)
	log.Debug("relation loaded", EndPoint(stringer("Customer|1|Orders")), Object(stringer("Order|2")))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, id.String(), fields[FieldTransaction])
	assert.Equal(t, "Customer|1|Orders", fields[FieldEndPoint])
	assert.Equal(t, "Order|2", fields[FieldObject])
}

func TestForTransaction_NilBase(t *testing.T) {
	log := ForTransaction(nil, uuid.New())
	require.NotNil(t, log)
	log.Info("ignored")
}

type stringer string

func (s stringer) String() string { return string(s) }
