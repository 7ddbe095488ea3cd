package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var outputLocks = struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}{locks: make(map[string]*sync.Mutex)}

func lockForPath(path string) func() {
	outputLocks.mu.Lock()
	m, ok := outputLocks.locks[path]
	if !ok {
		m = &sync.Mutex{}
		outputLocks.locks[path] = m
	}
	outputLocks.mu.Unlock()
	m.Lock()
	return func() { m.Unlock() }
}

// ArtifactPath returns where the formatted document for a unit is stored.
// Unit names are lowercased so artifact lookups are case-stable.
func ArtifactPath(dir, unit string) string {
	return filepath.Join(dir, strings.ToLower(unit)+".json")
}

// WriteArtifact pretty-prints v as JSON and writes it to the unit's artifact
// path, creating the output directory as needed. Writes to the same path are
// serialized so concurrent workers cannot interleave.
func WriteArtifact(dir, unit string, v interface{}) (string, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact for %s: %w", unit, err)
	}
	path := ArtifactPath(dir, unit)
	if err := WriteFile(path, append(buf, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes content to path, with "-" meaning stdout.
func WriteFile(path string, content []byte) error {
	if path == "-" {
		fmt.Print(string(content))
		return nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	unlock := lockForPath(path)
	defer unlock()

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(content)).Msg("artifact written")
	return nil
}

// AppendLine appends a single line to path, creating it if needed. Appends
// to the same path are serialized under the per-path lock.
func AppendLine(path, line string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	unlock := lockForPath(path)
	defer unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}
