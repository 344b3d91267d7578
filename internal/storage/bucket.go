package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/types"
)

// BucketBackend keeps each annotator's records as one JSONL object in a
// versioned bucket. The object content is the single source of truth: a
// write fetches the whole object, appends in memory and re-uploads the
// whole content guarded by a generation precondition, so two racing
// writers produce one rejected write instead of silent data loss.
type BucketBackend struct {
	client *gcs.Client
	bucket string
	folder string
	log    *logger.Logger
}

func NewBucketBackend(ctx context.Context, bucket, folder, credentialsFile string, log *logger.Logger) (*BucketBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bucket client: %w", err)
	}
	return &BucketBackend{
		client: client,
		bucket: bucket,
		folder: folder,
		log:    log.With("backend", "bucket", "bucket_name", bucket),
	}, nil
}

func (b *BucketBackend) Name() string { return "bucket" }

func (b *BucketBackend) objectKey(annotatorID string) string {
	return b.folder + "/" + annotatorID + "_annotations.jsonl"
}

// fetch reads the whole object and its generation. A missing object is
// not an error: it returns nil content and generation 0.
func (b *BucketBackend) fetch(ctx context.Context, annotatorID string) ([]byte, int64, error) {
	obj := b.client.Bucket(b.bucket).Object(b.objectKey(annotatorID))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read object %s: %w", b.objectKey(annotatorID), err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read object %s: %w", b.objectKey(annotatorID), err)
	}
	return data, r.Attrs.Generation, nil
}

// write uploads the whole content with a precondition on the generation
// observed at fetch time (or object-does-not-exist for generation 0).
func (b *BucketBackend) write(ctx context.Context, annotatorID string, content []byte, generation int64) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := b.client.Bucket(b.bucket).Object(b.objectKey(annotatorID))
	var cond gcs.Conditions
	if generation == 0 {
		cond.DoesNotExist = true
	} else {
		cond.GenerationMatch = generation
	}
	w := obj.If(cond).NewWriter(ctx)
	w.ContentType = "application/jsonl"
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", b.objectKey(annotatorID), err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailure(err) {
			return fmt.Errorf("write object %s: %w", b.objectKey(annotatorID), ErrConflict)
		}
		return fmt.Errorf("write object %s: %w", b.objectKey(annotatorID), err)
	}
	return nil
}

// isPreconditionFailure reports whether the upload was rejected because
// the object changed underneath us.
func isPreconditionFailure(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 412
}

func (b *BucketBackend) ListAnnotations(ctx context.Context, annotatorID string) ([]types.Annotation, error) {
	data, _, err := b.fetch(ctx, annotatorID)
	if err != nil {
		return nil, err
	}
	records, err := decodeJSONL(data)
	if err != nil {
		return nil, fmt.Errorf("decode annotations for %s: %w", annotatorID, err)
	}
	return records, nil
}

// AppendAnnotations extends the object content without decoding it; the
// existing lines are carried over byte for byte.
func (b *BucketBackend) AppendAnnotations(ctx context.Context, annotatorID string, records []types.Annotation) error {
	if len(records) == 0 {
		return nil
	}
	mutate := func(existing []byte) ([]byte, error) {
		return appendJSONL(existing, records)
	}
	return b.rewrite(ctx, annotatorID, mutate)
}

func (b *BucketBackend) UpsertAnnotation(ctx context.Context, annotatorID, postID string, record types.Annotation) error {
	mutate := func(existing []byte) ([]byte, error) {
		records, err := decodeJSONL(existing)
		if err != nil {
			return nil, fmt.Errorf("decode annotations for %s: %w", annotatorID, err)
		}
		replaced := false
		for i, a := range records {
			if a.PostID == postID {
				records[i] = record
				replaced = true
				break
			}
		}
		if !replaced {
			records = append(records, record)
		}
		return encodeJSONL(records)
	}
	return b.rewrite(ctx, annotatorID, mutate)
}

// rewrite performs the fetch-mutate-upload cycle. A precondition
// conflict is transient: it is retried exactly once with a freshly
// fetched generation before giving up.
func (b *BucketBackend) rewrite(ctx context.Context, annotatorID string, mutate func([]byte) ([]byte, error)) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		data, generation, err := b.fetch(ctx, annotatorID)
		if err != nil {
			return err
		}
		content, err := mutate(data)
		if err != nil {
			return err
		}
		err = b.write(ctx, annotatorID, content, generation)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		b.log.Warn("Concurrent writer detected, refetching revision", "annotator_id", annotatorID, "attempt", attempt+1)
		lastErr = err
	}
	return lastErr
}

func (b *BucketBackend) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := b.client.Bucket(b.bucket).Attrs(ctx); err != nil {
		b.log.Warn("Bucket attrs check failed", "error", err)
		return false
	}
	return true
}
