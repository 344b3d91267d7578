package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/types"
)

// LocalBackend stores each annotator's records as an append-only JSONL
// file under its own directory. It doubles as the fallback target when a
// remote primary fails.
type LocalBackend struct {
	baseDir string
	log     *logger.Logger
}

func NewLocalBackend(baseDir string, log *logger.Logger) *LocalBackend {
	return &LocalBackend{
		baseDir: baseDir,
		log:     log.With("backend", "local"),
	}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) filePath(annotatorID string) string {
	return filepath.Join(b.baseDir, annotatorID, "annotations", annotatorID+"_annotations.jsonl")
}

func (b *LocalBackend) ensureDir(annotatorID string) error {
	return os.MkdirAll(filepath.Dir(b.filePath(annotatorID)), 0o755)
}

func (b *LocalBackend) ListAnnotations(ctx context.Context, annotatorID string) ([]types.Annotation, error) {
	data, err := os.ReadFile(b.filePath(annotatorID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read annotations for %s: %w", annotatorID, err)
	}
	records, err := decodeJSONL(data)
	if err != nil {
		return nil, fmt.Errorf("decode annotations for %s: %w", annotatorID, err)
	}
	return records, nil
}

func (b *LocalBackend) AppendAnnotations(ctx context.Context, annotatorID string, records []types.Annotation) error {
	if len(records) == 0 {
		return nil
	}
	if err := b.ensureDir(annotatorID); err != nil {
		return fmt.Errorf("create annotation dir for %s: %w", annotatorID, err)
	}
	data, err := encodeJSONL(records)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(b.filePath(annotatorID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open annotations for %s: %w", annotatorID, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append annotations for %s: %w", annotatorID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close annotations for %s: %w", annotatorID, err)
	}
	return nil
}

// UpsertAnnotation reads the whole file, replaces the first record whose
// post_id matches, and rewrites the whole file. A crash mid-rewrite can
// truncate the file; that is a known, accepted weakness of this variant
// and deliberately not papered over here.
func (b *LocalBackend) UpsertAnnotation(ctx context.Context, annotatorID, postID string, record types.Annotation) error {
	records, err := b.ListAnnotations(ctx, annotatorID)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range records {
		if existing.PostID == postID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	if err := b.ensureDir(annotatorID); err != nil {
		return fmt.Errorf("create annotation dir for %s: %w", annotatorID, err)
	}
	data, err := encodeJSONL(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.filePath(annotatorID), data, 0o644); err != nil {
		return fmt.Errorf("rewrite annotations for %s: %w", annotatorID, err)
	}
	b.log.Debug("Annotation upserted", "annotator_id", annotatorID, "post_id", postID, "replaced", replaced)
	return nil
}

func (b *LocalBackend) TestConnection(ctx context.Context) bool {
	if err := os.MkdirAll(b.baseDir, 0o755); err != nil {
		b.log.Warn("Base directory not writable", "dir", b.baseDir, "error", err)
		return false
	}
	return true
}
