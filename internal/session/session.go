package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/storage"
	"github.com/claimlab/annotation-backend/internal/types"
)

// Session states. A session only exists after a successful allow-list
// login, so AwaitingLogin is the absence of a session; the two live
// states are derived from the cursor.
const (
	StateActive   = "active"
	StateComplete = "complete"
)

var (
	ErrComplete    = errors.New("session: all items annotated, only submit is available")
	ErrNotComplete = errors.New("session: annotation still in progress")
)

// Progress is the annotator-facing progress summary.
type Progress struct {
	TotalItems      int  `json:"total_items"`
	Pending         int  `json:"pending"`
	Submitted       int  `json:"submitted"`
	Remaining       int  `json:"remaining"`
	Cursor          int  `json:"cursor"`
	StorageDegraded bool `json:"storage_degraded"`
}

// Session drives the per-item two-question flow for one annotator. All
// state lives in this struct; there is no ambient session storage. The
// navigation cursor is the single authoritative notion of "current
// item": the key-based resumption scan runs once, at login, to seed it.
type Session struct {
	mu sync.Mutex

	annotatorID string
	items       []types.Item
	imagesDir   string
	store       *storage.Store
	log         *logger.Logger

	cursor         int
	batch          *Batch
	committed      map[string]struct{}
	submittedCount int
	degraded       bool
}

// New loads the annotator's committed records, seeds the cursor at the
// first item not yet covered and returns the ready session. A primary
// read failure degrades to local results rather than failing the login;
// the degraded flag is surfaced through Progress.
func New(ctx context.Context, annotatorID string, items []types.Item, imagesDir string, store *storage.Store, log *logger.Logger) (*Session, error) {
	records, degraded, err := store.GetAll(ctx, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("load committed annotations: %w", err)
	}

	committed := make(map[string]struct{}, len(records))
	for _, a := range records {
		if a.PostID != "" {
			committed[a.PostID] = struct{}{}
		}
	}

	cursor := nextUnannotatedIndex(items, committed, nil)
	if cursor < 0 {
		cursor = len(items)
	}

	s := &Session{
		annotatorID: annotatorID,
		items:       items,
		imagesDir:   imagesDir,
		store:       store,
		log:         log.With("component", "AnnotationSession", "annotator_id", annotatorID),
		cursor:      cursor,
		batch:       NewBatch(),
		committed:   committed,
		degraded:    degraded,
	}
	s.log.Info("Session started", "items", len(items), "committed", len(committed), "cursor", cursor, "degraded_read", degraded)
	return s, nil
}

func (s *Session) AnnotatorID() string { return s.annotatorID }
func (s *Session) ImagesDir() string   { return s.imagesDir }

func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsComplete(s.cursor, len(s.items)) {
		return StateComplete
	}
	return StateActive
}

// Current returns the item at the cursor together with the answer to
// display: the pending entry if the item was visited before, otherwise
// the fixed default (No Claim / Check-worthy), which is pre-selected
// even for items never visited.
func (s *Session) Current() (types.Item, types.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsComplete(s.cursor, len(s.items)) {
		return types.Item{}, types.Label{}, false
	}
	item := s.items[s.cursor]
	if entry, ok := s.batch.Get(item.ItemID); ok {
		return item, entry.Label, true
	}
	return item, types.DefaultLabel(), true
}

// Next validates the answer, writes it into the batch keyed by the
// current item's itemId (overwriting any earlier answer for that item)
// and advances the cursor.
func (s *Session) Next(label types.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsComplete(s.cursor, len(s.items)) {
		return ErrComplete
	}
	if label.ClaimStatus != types.ClaimStatusClaim {
		// The form keeps a stale checkworthiness selection around when
		// the first answer flips back to No Claim; it is not part of the
		// judgment.
		label.Checkworthiness = nil
	}
	if err := label.Validate(); err != nil {
		return err
	}

	item := s.items[s.cursor]
	s.batch.Put(item.ItemID, Entry{
		AnnotatorID: s.annotatorID,
		ItemID:      item.ItemID,
		PostID:      item.ResolvePostID(),
		Text:        item.Text,
		ImageID:     item.ImageID,
		Label:       label,
	})
	s.cursor++
	return nil
}

// Previous steps the cursor back, floored at zero.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 0 {
		s.cursor--
	}
}

// SubmitAll commits the whole batch. It is a complete-state action: the
// form offers it only once every item has been answered, so a submit
// while the cursor is still inside the sequence is rejected. On success
// the batch is cleared and its size added to the cumulative submitted
// count; on failure the batch is left untouched so the annotator can
// retry. The commit is all-or-nothing from this side: the database
// variant's bulk statement runs in one transaction, and the JSONL
// variants write in one call.
func (s *Session) SubmitAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch.Size() == 0 {
		return 0, storage.ErrEmptyBatch
	}
	if !IsComplete(s.cursor, len(s.items)) {
		return 0, ErrNotComplete
	}

	now := time.Now()
	entries := s.batch.All()
	records := make([]types.Annotation, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Annotation(now))
	}

	if err := s.store.CommitBatch(ctx, s.annotatorID, records); err != nil {
		s.log.Error("Submit failed, batch preserved for retry", "count", len(records), "error", err)
		return 0, err
	}

	for _, a := range records {
		s.committed[a.PostID] = struct{}{}
	}
	count := s.batch.Size()
	s.submittedCount += count
	s.batch.Clear()
	s.log.Info("Batch submitted", "count", count, "submitted_total", s.submittedCount)
	return count, nil
}

// UpdateCommitted amends an already-committed annotation by its natural
// key. The record is rebuilt from the dataset item so the denormalized
// text and image fields stay consistent.
func (s *Session) UpdateCommitted(ctx context.Context, postID string, label types.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if label.ClaimStatus != types.ClaimStatusClaim {
		label.Checkworthiness = nil
	}
	if err := label.Validate(); err != nil {
		return err
	}
	if _, ok := s.committed[postID]; !ok {
		return storage.ErrNotFound
	}

	var item *types.Item
	for i := range s.items {
		if s.items[i].ResolvePostID() == postID {
			item = &s.items[i]
			break
		}
	}
	if item == nil {
		return storage.ErrNotFound
	}

	record := types.Annotation{
		AnnotatorID: s.annotatorID,
		PostID:      postID,
		Text:        item.Text,
		ImageID:     item.ImageID,
		Label:       label,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	return s.store.UpdateOne(ctx, s.annotatorID, postID, record)
}

func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.items)
	annotated := s.batch.Size() + s.submittedCount
	remaining := total - annotated
	if remaining < 0 {
		remaining = 0
	}
	return Progress{
		TotalItems:      total,
		Pending:         s.batch.Size(),
		Submitted:       s.submittedCount,
		Remaining:       remaining,
		Cursor:          s.cursor,
		StorageDegraded: s.degraded,
	}
}
