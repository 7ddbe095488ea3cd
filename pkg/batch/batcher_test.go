package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

func prepared(name string, tokens int) Prepared {
	return Prepared{Unit: units.Unit{Name: name}, Tokens: tokens}
}

func tokensOf(batch []Prepared) []int {
	out := make([]int, len(batch))
	for i, p := range batch {
		out[i] = p.Tokens
	}
	return out
}

func TestPartition_TokenLimitCutsBatch(t *testing.T) {
	items := []Prepared{
		prepared("a", 1000),
		prepared("b", 2000),
		prepared("c", 29500),
		prepared("d", 500),
	}
	SortByTokens(items)
	batches := Partition(items, Limits{MaxItems: 5, MaxTokens: 30000})

	require.Len(t, batches, 2)
	assert.Equal(t, []int{500, 1000, 2000}, tokensOf(batches[0]))
	assert.Equal(t, []int{29500}, tokensOf(batches[1]))
}

func TestPartition_ItemLimit(t *testing.T) {
	var items []Prepared
	for i := 0; i < 12; i++ {
		items = append(items, prepared("u", 10))
	}
	batches := Partition(items, Limits{MaxItems: 5, MaxTokens: 30000})

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 5)
	assert.Len(t, batches[1], 5)
	assert.Len(t, batches[2], 2)
}

func TestPartition_OversizedItemGetsOwnBatch(t *testing.T) {
	items := []Prepared{
		prepared("small", 100),
		prepared("huge", 50000),
		prepared("other", 200),
	}
	SortByTokens(items)
	batches := Partition(items, Limits{MaxItems: 5, MaxTokens: 30000})

	require.Len(t, batches, 2)
	assert.Equal(t, []int{100, 200}, tokensOf(batches[0]))
	assert.Equal(t, []int{50000}, tokensOf(batches[1]))
}

func TestPartition_EveryBatchWithinLimits(t *testing.T) {
	items := []Prepared{
		prepared("a", 12000), prepared("b", 9000), prepared("c", 15000),
		prepared("d", 4000), prepared("e", 8000), prepared("f", 100),
	}
	SortByTokens(items)
	limits := Limits{MaxItems: 5, MaxTokens: 30000}
	batches := Partition(items, limits)

	total := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), limits.MaxItems)
		sum := 0
		for _, p := range b {
			sum += p.Tokens
		}
		assert.LessOrEqual(t, sum, limits.MaxTokens)
		total += len(b)
	}
	assert.Equal(t, len(items), total, "no item is dropped")
}

func TestPartition_DeterministicForEqualCosts(t *testing.T) {
	items := []Prepared{
		prepared("b", 10), prepared("a", 10), prepared("c", 10),
	}
	SortByTokens(items)
	assert.Equal(t, "b", items[0].Unit.Name, "stable sort keeps input order for ties")
	assert.Equal(t, "a", items[1].Unit.Name)
	assert.Equal(t, "c", items[2].Unit.Name)
}

func TestPartition_Empty(t *testing.T) {
	assert.Empty(t, Partition(nil, Limits{MaxItems: 5, MaxTokens: 30000}))
}
