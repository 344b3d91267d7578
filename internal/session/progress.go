package session

import (
	"github.com/claimlab/annotation-backend/internal/types"
)

// NextUnannotated scans items in stored (already shuffled) order and
// returns the first whose resolved post id is neither committed nor
// pending, or nil when every item is covered. A linear scan is fine
// here: datasets are annotation batches, not bulk corpora.
func NextUnannotated(items []types.Item, committed, pending map[string]struct{}) *types.Item {
	idx := nextUnannotatedIndex(items, committed, pending)
	if idx < 0 {
		return nil
	}
	return &items[idx]
}

func nextUnannotatedIndex(items []types.Item, committed, pending map[string]struct{}) int {
	for i, it := range items {
		key := it.ResolvePostID()
		if _, ok := committed[key]; ok {
			continue
		}
		if _, ok := pending[key]; ok {
			continue
		}
		return i
	}
	return -1
}

// IsComplete reports whether the navigation cursor has run past the end
// of the item sequence.
func IsComplete(cursor, totalItems int) bool {
	return cursor >= totalItems
}
