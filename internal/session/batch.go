package session

import (
	"time"

	"github.com/claimlab/annotation-backend/internal/types"
)

// Entry is one pending annotation, keyed by the synthetic itemId so that
// revisiting the same item before a commit overwrites the same slot. The
// post id and item snapshot are captured at entry time because their
// resolution depends on the item as displayed.
type Entry struct {
	AnnotatorID string
	ItemID      string
	PostID      string
	Text        string
	ImageID     string
	Label       types.Label
}

// Annotation converts the pending entry into the wire record, stamping
// the commit-time timestamp.
func (e Entry) Annotation(now time.Time) types.Annotation {
	return types.Annotation{
		AnnotatorID: e.AnnotatorID,
		PostID:      e.PostID,
		Text:        e.Text,
		ImageID:     e.ImageID,
		Label:       e.Label,
		Timestamp:   now.Format(time.RFC3339),
	}
}

// Batch accumulates not-yet-committed annotations for one session.
// Last write per itemId wins; insertion order is preserved. Never
// persisted: a process restart without a submit loses it.
type Batch struct {
	entries map[string]Entry
	order   []string
}

func NewBatch() *Batch {
	return &Batch{entries: make(map[string]Entry)}
}

func (b *Batch) Put(itemID string, entry Entry) {
	if _, seen := b.entries[itemID]; !seen {
		b.order = append(b.order, itemID)
	}
	b.entries[itemID] = entry
}

func (b *Batch) Get(itemID string) (Entry, bool) {
	e, ok := b.entries[itemID]
	return e, ok
}

// All returns the pending entries in insertion order.
func (b *Batch) All() []Entry {
	out := make([]Entry, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.entries[id])
	}
	return out
}

// PendingPostIDs returns the resolved post ids of all pending entries.
func (b *Batch) PendingPostIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(b.entries))
	for _, e := range b.entries {
		out[e.PostID] = struct{}{}
	}
	return out
}

func (b *Batch) Clear() {
	b.entries = make(map[string]Entry)
	b.order = nil
}

func (b *Batch) Size() int {
	return len(b.entries)
}
