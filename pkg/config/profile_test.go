package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", p.Model)
	assert.Equal(t, 5, p.BatchSize)
	assert.Equal(t, 30000, p.MaxBatchTokens)
	assert.Equal(t, 60, p.RequestsPerMinute)
	assert.Equal(t, 2.0, p.BatchDelaySeconds)
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: gpt-4o
batch_size: 3
area_path: Inficore
application_types:
  - label: OSC (web application)
    summary_markers: ["osc"]
`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.Model)
	assert.Equal(t, 3, p.BatchSize)
	assert.Equal(t, 30000, p.MaxBatchTokens, "unset fields keep defaults")
	assert.Equal(t, "Inficore", p.AreaPath)

	label, types := p.AppTypes()
	assert.Equal(t, "UNO (desktop application)", label)
	require.Len(t, types, 1)
	assert.Equal(t, "OSC (web application)", types[0].Label)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTemplate_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("custom {{ .Key }}"), 0o644))

	p := Default()
	p.TemplateFile = path
	text, err := p.Template()
	require.NoError(t, err)
	assert.Equal(t, "custom {{ .Key }}", text)
}
