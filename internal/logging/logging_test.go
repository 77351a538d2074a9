// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/research-agent/pkg/types"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(types.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("dispatching research", zap.String("query", "quantum"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "dispatching research", entry["msg"])
	assert.Equal(t, "quantum", entry["query"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(types.LogConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	log.Debug("provider answered", zap.String("provider", "exa"))
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "provider answered")
	assert.Contains(t, buf.String(), `"provider": "exa"`)
}

func TestNewTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agent.log")
	var buf bytes.Buffer
	log, err := New(types.LogConfig{Level: "warn", Format: "console", File: path}, &buf)
	require.NoError(t, err)

	log.Info("skipped")
	log.Warn("provider failed", zap.String("provider", "tavily"))
	require.NoError(t, log.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 1)
	assert.Equal(t, "provider failed", entries[0]["msg"])
	assert.Contains(t, buf.String(), "provider failed")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(types.LogConfig{Level: "loud"}, nil)
	assert.Error(t, err)

	_, err = New(types.LogConfig{Format: "xml"}, nil)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
