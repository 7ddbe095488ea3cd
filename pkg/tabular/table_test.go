package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV_PadsShortRows(t *testing.T) {
	in := "a,b,c\n1,2\n3,4,5,6\n"
	tbl, err := LoadCSV(strings.NewReader(in), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"1", "2", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"3", "4", "5"}, tbl.Rows[1])
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), false)
	assert.Error(t, err)
}

func TestLoadCSV_LazyQuotes(t *testing.T) {
	in := "step,expected\nclick \"save\" button,dialog closes\n"
	tbl, err := LoadCSV(strings.NewReader(in), false)
	require.NoError(t, err)
	assert.Equal(t, `click "save" button`, tbl.Cell(0, 0))
}

func TestFindExact_CaseInsensitive(t *testing.T) {
	tbl := &Table{Headers: []string{"Key", "SUMMARY", "Description"}}
	assert.Equal(t, 1, tbl.FindExact("summary"))
	assert.Equal(t, 0, tbl.FindExact("key"))
	assert.Equal(t, -1, tbl.FindExact("priority"))
}

func TestFindExact_MultipleNames(t *testing.T) {
	tbl := &Table{Headers: []string{"#", "Action", "Expected Result"}}
	assert.Equal(t, 0, tbl.FindExact("#", "step"))
}

func TestFindContains(t *testing.T) {
	tbl := &Table{Headers: []string{"Test Case Title", "Long Description", "Prio"}}
	assert.Equal(t, 0, tbl.FindContains("title"))
	assert.Equal(t, 1, tbl.FindContains("desc"))
	assert.Equal(t, 2, tbl.FindContains("priority", "prio"))
	assert.Equal(t, -1, tbl.FindContains("expected"))
}

func TestScanForLabel(t *testing.T) {
	tbl := &Table{
		Headers: []string{"field", "value"},
		Rows: [][]string{
			{"key", "UNOD-12"},
			{"Summary", "Login works"},
		},
	}
	v, ok := tbl.ScanForLabel("summary")
	require.True(t, ok)
	assert.Equal(t, "Login works", v)

	_, ok = tbl.ScanForLabel("priority")
	assert.False(t, ok)
}

func TestCell_OutOfBounds(t *testing.T) {
	tbl := &Table{Headers: []string{"a"}, Rows: [][]string{{" x "}}}
	assert.Equal(t, "x", tbl.Cell(0, 0))
	assert.Equal(t, "", tbl.Cell(0, 1))
	assert.Equal(t, "", tbl.Cell(1, 0))
}
