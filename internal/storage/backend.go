package storage

import (
	"context"
	"errors"

	"github.com/claimlab/annotation-backend/internal/types"
)

// Backend is the contract every storage variant satisfies. Append and
// upsert semantics differ per variant: the local and bucket variants are
// pure append (duplicate post ids may coexist across calls), while the
// database variant keys every write on (annotator_id, post_id) and
// therefore treats a batch append as a bulk upsert.
type Backend interface {
	// ListAnnotations returns all durably committed records for the
	// annotator. Callers must not rely on ordering.
	ListAnnotations(ctx context.Context, annotatorID string) ([]types.Annotation, error)

	// AppendAnnotations durably adds records in one operation.
	AppendAnnotations(ctx context.Context, annotatorID string, records []types.Annotation) error

	// UpsertAnnotation replaces or inserts a single record identified by
	// (annotatorID, postID).
	UpsertAnnotation(ctx context.Context, annotatorID, postID string, record types.Annotation) error

	// TestConnection is a lightweight reachability check used for startup
	// diagnostics only. It never gates the write path.
	TestConnection(ctx context.Context) bool

	Name() string
}

var (
	// ErrEmptyBatch is returned when a commit is requested with nothing
	// to write. No backend call is made.
	ErrEmptyBatch = errors.New("storage: no annotations to commit")

	// ErrConflict reports a revision precondition mismatch on the bucket
	// variant: another writer changed the object between read and write.
	// Transient; retried once with a fresh revision before giving up.
	ErrConflict = errors.New("storage: revision precondition mismatch")

	// ErrNotFound is returned by upsert paths when no record matches and
	// the variant cannot insert in place.
	ErrNotFound = errors.New("storage: annotation not found")
)
