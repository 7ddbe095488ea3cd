package runlog

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/testcase-formatter/pkg/output"
)

// Log records per-unit outcomes for a run as two append-only streams and
// keeps an in-memory set of units already handled, so a unit that appears
// twice in one run is only processed once.
type Log struct {
	successPath string
	failurePath string

	mu        sync.Mutex
	seen      map[string]bool
	processed int
	failed    int
}

// New creates a run log writing success.log and failure.log under dir.
func New(dir string) *Log {
	return &Log{
		successPath: filepath.Join(dir, "success.log"),
		failurePath: filepath.Join(dir, "failure.log"),
		seen:        map[string]bool{},
	}
}

// Claim marks unit as handled and reports whether this caller won the
// claim. A false return means the unit was already recorded this run.
func (l *Log) Claim(unit string) bool {
	key := strings.ToLower(unit)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[key] {
		return false
	}
	l.seen[key] = true
	return true
}

// Success appends the unit to the success stream.
func (l *Log) Success(unit, artifact string) error {
	l.mu.Lock()
	l.processed++
	l.mu.Unlock()
	line := fmt.Sprintf("%s\t%s\t%s", time.Now().Format(time.RFC3339), unit, artifact)
	return output.AppendLine(l.successPath, line)
}

// Failure appends the unit and the condensed reason to the failure stream.
func (l *Log) Failure(unit string, err error) error {
	l.mu.Lock()
	l.failed++
	l.mu.Unlock()
	line := fmt.Sprintf("%s\t%s\t%s", time.Now().Format(time.RFC3339), unit, output.ShortError(err))
	return output.AppendLine(l.failurePath, line)
}

// Counts returns the processed and failed totals so far.
func (l *Log) Counts() (processed, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed, l.failed
}
