// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads provider and A2A API keys from a directory of
// plain-text key files (".secrets/" by default). Each file is named after
// the key it holds; surrounding whitespace is ignored.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	PerplexityKey = "perplexity-api-key"
	TavilyKey     = "tavily-api-key"
	ExaKey        = "exa-api-key"
	A2AKey        = "a2a-api-key"
)

// KnownKeys lists every key file Load reads, in report order.
var KnownKeys = []string{PerplexityKey, TavilyKey, ExaKey, A2AKey}

// Keys holds the values found in a secrets directory. Empty fields mean
// the file was absent, empty, or unreadable.
type Keys struct {
	Perplexity string
	Tavily     string
	Exa        string

	// A2A are the keys the A2A server accepts. The file may list several,
	// separated by commas or newlines.
	A2A []string
}

// Loaded returns the names of the key files that produced a value.
func (k Keys) Loaded() []string {
	var names []string
	for _, name := range KnownKeys {
		if k.has(name) {
			names = append(names, name)
		}
	}
	return names
}

func (k Keys) has(name string) bool {
	switch name {
	case PerplexityKey:
		return k.Perplexity != ""
	case TavilyKey:
		return k.Tavily != ""
	case ExaKey:
		return k.Exa != ""
	case A2AKey:
		return len(k.A2A) > 0
	}
	return false
}

func (k *Keys) set(name, value string) {
	switch name {
	case PerplexityKey:
		k.Perplexity = value
	case TavilyKey:
		k.Tavily = value
	case ExaKey:
		k.Exa = value
	case A2AKey:
		k.A2A = splitKeys(value)
	}
}

// Load reads the known key files from dir. A missing directory yields
// empty Keys. Unreadable key files and files whose name is not a known
// key (often a typo such as "tavily-key") are logged as warnings and
// skipped; dotfiles and subdirectories are ignored.
func Load(dir string, log *zap.Logger) (Keys, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var keys Keys

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys, nil
		}
		return keys, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !isKnown(name) {
			log.Warn("ignoring unknown secret file",
				zap.String("file", filepath.Join(dir, name)),
				zap.Strings("known", KnownKeys))
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}
		keys.set(name, strings.TrimSpace(string(data)))
	}
	return keys, nil
}

func isKnown(name string) bool {
	for _, k := range KnownKeys {
		if name == k {
			return true
		}
	}
	return false
}

func splitKeys(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
