package session

import (
	"testing"

	"github.com/claimlab/annotation-backend/internal/types"
)

func itemSeq(postIDs ...string) []types.Item {
	items := make([]types.Item, len(postIDs))
	for i, id := range postIDs {
		items[i] = types.Item{ItemID: "item_" + id, PostID: id}
	}
	return items
}

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestNextUnannotated(t *testing.T) {
	items := itemSeq("p_1", "p_2", "p_3")

	cases := []struct {
		name      string
		committed map[string]struct{}
		pending   map[string]struct{}
		want      string
	}{
		{"nothing covered", nil, nil, "p_1"},
		{"first committed", set("p_1"), nil, "p_2"},
		{"first pending", nil, set("p_1"), "p_2"},
		// A committed later item does not advance past an earlier gap.
		{"middle committed", set("p_2"), nil, "p_1"},
		{"mixed coverage", set("p_1"), set("p_2"), "p_3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextUnannotated(items, tc.committed, tc.pending)
			if got == nil {
				t.Fatalf("NextUnannotated: want=%s got=nil", tc.want)
			}
			if got.PostID != tc.want {
				t.Fatalf("NextUnannotated: want=%s got=%s", tc.want, got.PostID)
			}
		})
	}
}

func TestNextUnannotatedAllCovered(t *testing.T) {
	items := itemSeq("p_1", "p_2")
	if got := NextUnannotated(items, set("p_1"), set("p_2")); got != nil {
		t.Fatalf("NextUnannotated: want=nil got=%+v", got)
	}
}

func TestNextUnannotatedUsesResolvedPostID(t *testing.T) {
	// Items without a postId fall back to post_id and then the item id,
	// and coverage is keyed by that resolved value.
	items := []types.Item{
		{ItemID: "item_0", PostIDAlt: "alt_0"},
		{ItemID: "item_1"},
	}
	got := NextUnannotated(items, set("alt_0"), nil)
	if got == nil || got.ItemID != "item_1" {
		t.Fatalf("NextUnannotated: want=item_1 got=%+v", got)
	}
	if NextUnannotated(items, set("alt_0"), set("item_1")) != nil {
		t.Fatal("coverage by item id fallback not honored")
	}
}

func TestIsComplete(t *testing.T) {
	if IsComplete(2, 3) {
		t.Fatal("IsComplete(2, 3): want=false got=true")
	}
	if !IsComplete(3, 3) {
		t.Fatal("IsComplete(3, 3): want=true got=false")
	}
	if !IsComplete(0, 0) {
		t.Fatal("IsComplete(0, 0): want=true got=false")
	}
}
