package storage

import (
	"context"
	"fmt"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/types"
)

// Store wraps the configured primary backend and the local fallback.
// When the primary is the database or bucket variant and a write fails,
// the write is retried exactly once against the local variant before the
// commit is reported failed. A failed primary read degrades to the local
// read results instead of propagating the error; the caller sees the
// degraded flag so it can surface that already-annotated items may be
// presented again.
type Store struct {
	primary  Backend
	fallback Backend
	log      *logger.Logger
}

func NewStore(primary, fallback Backend, log *logger.Logger) *Store {
	return &Store{
		primary:  primary,
		fallback: fallback,
		log:      log.With("component", "AnnotationStore", "primary", primary.Name()),
	}
}

func (s *Store) PrimaryName() string { return s.primary.Name() }

// hasFallback reports whether the one-shot local retry applies: only
// when the primary is a remote variant distinct from the fallback.
func (s *Store) hasFallback() bool {
	return s.fallback != nil && s.primary.Name() != s.fallback.Name()
}

// GetAll lists committed records for the annotator. degraded is true
// when the results came from the local fallback after a primary read
// failure and may therefore be incomplete.
func (s *Store) GetAll(ctx context.Context, annotatorID string) (records []types.Annotation, degraded bool, err error) {
	records, err = s.primary.ListAnnotations(ctx, annotatorID)
	if err == nil {
		return records, false, nil
	}
	if !s.hasFallback() {
		return nil, false, err
	}
	s.log.Warn("Primary read failed, serving local fallback results",
		"annotator_id", annotatorID, "error", err)
	records, fbErr := s.fallback.ListAnnotations(ctx, annotatorID)
	if fbErr != nil {
		return nil, true, fmt.Errorf("primary read failed (%v); fallback read failed: %w", err, fbErr)
	}
	return records, true, nil
}

// CommitBatch durably writes the batch through the primary's append
// operation. The per-variant append semantics (pure append for local and
// bucket, bulk upsert for database) are deliberate and must not be
// unified: re-submission idempotence differs per backend.
func (s *Store) CommitBatch(ctx context.Context, annotatorID string, records []types.Annotation) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}
	err := s.primary.AppendAnnotations(ctx, annotatorID, records)
	if err == nil {
		return nil
	}
	if !s.hasFallback() {
		return fmt.Errorf("commit %d annotations for %s: %w", len(records), annotatorID, err)
	}
	s.log.Warn("Primary commit failed, retrying once against local storage",
		"annotator_id", annotatorID, "count", len(records), "error", err)
	if fbErr := s.fallback.AppendAnnotations(ctx, annotatorID, records); fbErr != nil {
		return fmt.Errorf("commit %d annotations for %s failed on %s (%v) and on local fallback: %w",
			len(records), annotatorID, s.primary.Name(), err, fbErr)
	}
	s.log.Info("Commit landed on local fallback", "annotator_id", annotatorID, "count", len(records))
	return nil
}

// UpdateOne replaces a single committed record by its identity key.
func (s *Store) UpdateOne(ctx context.Context, annotatorID, postID string, record types.Annotation) error {
	err := s.primary.UpsertAnnotation(ctx, annotatorID, postID, record)
	if err == nil {
		return nil
	}
	if !s.hasFallback() {
		return fmt.Errorf("update annotation %s_%s: %w", annotatorID, postID, err)
	}
	s.log.Warn("Primary update failed, retrying once against local storage",
		"annotator_id", annotatorID, "post_id", postID, "error", err)
	if fbErr := s.fallback.UpsertAnnotation(ctx, annotatorID, postID, record); fbErr != nil {
		return fmt.Errorf("update annotation %s_%s failed on %s (%v) and on local fallback: %w",
			annotatorID, postID, s.primary.Name(), err, fbErr)
	}
	return nil
}

// Status runs the lightweight reachability checks for diagnostics.
func (s *Store) Status(ctx context.Context) map[string]bool {
	status := map[string]bool{
		s.primary.Name(): s.primary.TestConnection(ctx),
	}
	if s.hasFallback() {
		status[s.fallback.Name()] = s.fallback.TestConnection(ctx)
	}
	return status
}
