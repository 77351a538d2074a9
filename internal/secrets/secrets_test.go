// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}

func writeKey(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadKeys(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		want   Keys
		loaded []string
	}{
		{
			name: "all providers and a2a list",
			files: map[string]string{
				PerplexityKey: "pplx-1\n",
				TavilyKey:     "  tvly-2  ",
				ExaKey:        "exa-3",
				A2AKey:        "agent-a, agent-b\nagent-c\n,",
			},
			want: Keys{
				Perplexity: "pplx-1",
				Tavily:     "tvly-2",
				Exa:        "exa-3",
				A2A:        []string{"agent-a", "agent-b", "agent-c"},
			},
			loaded: []string{PerplexityKey, TavilyKey, ExaKey, A2AKey},
		},
		{
			name:   "blank files count as absent",
			files:  map[string]string{TavilyKey: " \n\t", A2AKey: ",\n", ExaKey: "exa-only"},
			want:   Keys{Exa: "exa-only"},
			loaded: []string{ExaKey},
		},
		{
			name:  "empty directory",
			files: map[string]string{},
			want:  Keys{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeKey(t, dir, name, content)
			}
			log, logs := observed()

			got, err := Load(dir, log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.loaded, got.Loaded())
			assert.Zero(t, logs.Len())
		})
	}
}

func TestLoadWarnsOnUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "tavily-key", "tvly-typo")
	writeKey(t, dir, ExaKey, "exa-ok")
	writeKey(t, dir, ".gitkeep", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old"), 0o755))
	log, logs := observed()

	got, err := Load(dir, log)
	require.NoError(t, err)
	assert.Equal(t, Keys{Exa: "exa-ok"}, got)

	entries := logs.FilterMessage("ignoring unknown secret file").All()
	require.Len(t, entries, 1, "dotfiles and directories are not reported")
	assert.Equal(t, filepath.Join(dir, "tavily-key"), entries[0].ContextMap()["file"])
}

func TestLoadUnreadableKey(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions do not apply to root")
	}
	dir := t.TempDir()
	writeKey(t, dir, TavilyKey, "tvly-ok")
	bad := filepath.Join(dir, PerplexityKey)
	require.NoError(t, os.WriteFile(bad, []byte("pplx"), 0o000))
	log, logs := observed()

	got, err := Load(dir, log)
	require.NoError(t, err)
	assert.Equal(t, Keys{Tavily: "tvly-ok"}, got)

	entries := logs.FilterMessage("could not read secret").All()
	require.Len(t, entries, 1)
	assert.Equal(t, PerplexityKey, entries[0].ContextMap()["key"])
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Equal(t, Keys{}, got)
	assert.Empty(t, got.Loaded())
}

func TestLoadPathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "not-a-dir", "x")

	_, err := Load(filepath.Join(dir, "not-a-dir"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secrets directory")
}
