package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/types"
)

// upsertColumns are the row fields refreshed when a write lands on an
// existing natural key.
var upsertColumns = []string{"post_id", "text", "image_id", "label", "timestamp", "updated_at"}

// DatabaseBackend stores annotations in one table keyed by the natural
// key annotator_id + "_" + post_id. Unlike the JSONL variants it is
// upsert-keyed: re-submitting a batch replaces rows instead of appending
// duplicates.
type DatabaseBackend struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatabaseBackend(db *gorm.DB, log *logger.Logger) (*DatabaseBackend, error) {
	if err := db.AutoMigrate(&types.AnnotationRow{}); err != nil {
		return nil, fmt.Errorf("migrate annotation table: %w", err)
	}
	return &DatabaseBackend{db: db, log: log.With("backend", "database")}, nil
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	return db, nil
}

func (b *DatabaseBackend) Name() string { return "database" }

func (b *DatabaseBackend) ListAnnotations(ctx context.Context, annotatorID string) ([]types.Annotation, error) {
	var rows []types.AnnotationRow
	if err := b.db.WithContext(ctx).
		Where("annotator_id = ?", annotatorID).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list annotations for %s: %w", annotatorID, err)
	}
	records := make([]types.Annotation, 0, len(rows))
	for _, row := range rows {
		a, err := row.Annotation()
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, nil
}

// AppendAnnotations writes the whole batch as a single bulk
// insert-or-update statement inside one transaction, so concurrent
// readers never observe a half-committed batch.
func (b *DatabaseBackend) AppendAnnotations(ctx context.Context, annotatorID string, records []types.Annotation) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]types.AnnotationRow, 0, len(records))
	for _, a := range records {
		row, err := types.NewAnnotationRow(a)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "natural_key"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("bulk upsert %d annotations for %s: %w", len(records), annotatorID, err)
	}
	return nil
}

func (b *DatabaseBackend) UpsertAnnotation(ctx context.Context, annotatorID, postID string, record types.Annotation) error {
	row, err := types.NewAnnotationRow(record)
	if err != nil {
		return err
	}
	if err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "natural_key"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert annotation %s_%s: %w", annotatorID, postID, err)
	}
	return nil
}

func (b *DatabaseBackend) TestConnection(ctx context.Context) bool {
	sqlDB, err := b.db.DB()
	if err != nil {
		b.log.Warn("Database handle unavailable", "error", err)
		return false
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		b.log.Warn("Database ping failed", "error", err)
		return false
	}
	return true
}
