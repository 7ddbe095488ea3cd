package runlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim_DeduplicatesWithinRun(t *testing.T) {
	l := New(t.TempDir())
	assert.True(t, l.Claim("TC-1"))
	assert.False(t, l.Claim("TC-1"))
	assert.False(t, l.Claim("tc-1"), "claims are case-insensitive")
	assert.True(t, l.Claim("TC-2"))
}

func TestSuccessAndFailureStreams(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	require.NoError(t, l.Success("TC-1", "out/tc-1.json"))
	require.NoError(t, l.Failure("TC-2", errors.New("failed after 3 attempts: response is not valid JSON")))
	require.NoError(t, l.Success("TC-3", "out/tc-3.json"))

	processed, failed := l.Counts()
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, failed)

	success, err := os.ReadFile(filepath.Join(dir, "success.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(success)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TC-1\tout/tc-1.json")

	failure, err := os.ReadFile(filepath.Join(dir, "failure.log"))
	require.NoError(t, err)
	assert.Contains(t, string(failure), "TC-2\tfailed after 3 attempts")
}

func TestFailureLogAbsentWhenNoFailures(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	require.NoError(t, l.Success("TC-1", "out/tc-1.json"))

	_, err := os.Stat(filepath.Join(dir, "failure.log"))
	assert.True(t, os.IsNotExist(err))
}
