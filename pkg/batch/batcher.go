package batch

import (
	"sort"

	"github.com/go-go-golems/testcase-formatter/pkg/extract"
	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

// Prepared is one unit with its extracted data and rendered prompt, ready
// to be submitted.
type Prepared struct {
	Unit   units.Unit
	Record extract.Record
	Steps  []extract.Step
	Prompt string
	Tokens int
}

// Limits bounds how many items and prompt tokens one batch may carry.
type Limits struct {
	MaxItems  int
	MaxTokens int
}

// SortByTokens orders items by ascending token cost, keeping the original
// order of equal-cost items so partitioning stays deterministic.
func SortByTokens(items []Prepared) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Tokens < items[j].Tokens })
}

// Partition greedily packs items into batches in order. A batch is cut when
// adding the next item would exceed either limit; an item that alone
// exceeds the token limit gets a batch of its own rather than being
// dropped.
func Partition(items []Prepared, limits Limits) [][]Prepared {
	var batches [][]Prepared
	var current []Prepared
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, item := range items {
		if item.Tokens > limits.MaxTokens {
			flush()
			batches = append(batches, []Prepared{item})
			continue
		}
		if len(current) >= limits.MaxItems || currentTokens+item.Tokens > limits.MaxTokens {
			flush()
		}
		current = append(current, item)
		currentTokens += item.Tokens
	}
	flush()
	return batches
}
