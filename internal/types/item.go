package types

// Item is one dataset record awaiting annotation. ItemID is synthetic and
// assigned from the record's position in the raw dataset file, so it is
// stable across loads of the same file but meaningless outside one load.
type Item struct {
	ItemID    string `json:"id"`
	PostID    string `json:"postId,omitempty"`
	PostIDAlt string `json:"post_id,omitempty"`
	Text      string `json:"text"`
	ImageID   string `json:"image_id"`
}

// ResolvePostID returns the natural identifier for the item, preferring
// postId, then post_id, then the synthetic itemId.
func (it Item) ResolvePostID() string {
	if it.PostID != "" {
		return it.PostID
	}
	if it.PostIDAlt != "" {
		return it.PostIDAlt
	}
	return it.ItemID
}
