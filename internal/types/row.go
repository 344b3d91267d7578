package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AnnotationRow is the database backend's table shape. The row ID and
// natural key are internal; the logical record is still the Annotation
// wire contract, with the label kept as a JSON document so the stored
// shape matches the JSONL backends byte for byte.
type AnnotationRow struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	NaturalKey  string         `gorm:"uniqueIndex;not null;column:natural_key" json:"-"`
	AnnotatorID string         `gorm:"index;not null;column:annotator_id" json:"annotator_id"`
	PostID      string         `gorm:"not null;column:post_id" json:"post_id"`
	Text        string         `gorm:"column:text" json:"text"`
	ImageID     string         `gorm:"column:image_id" json:"image_id"`
	Label       datatypes.JSON `gorm:"type:jsonb;column:label" json:"label"`
	Timestamp   string         `gorm:"column:timestamp" json:"timestamp"`
	CreatedAt   time.Time      `json:"-"`
	UpdatedAt   time.Time      `json:"-"`
}

func (AnnotationRow) TableName() string { return "annotation" }

// NewAnnotationRow converts a wire record into its row shape.
func NewAnnotationRow(a Annotation) (AnnotationRow, error) {
	labelJSON, err := json.Marshal(a.Label)
	if err != nil {
		return AnnotationRow{}, fmt.Errorf("marshal label: %w", err)
	}
	return AnnotationRow{
		NaturalKey:  a.NaturalKey(),
		AnnotatorID: a.AnnotatorID,
		PostID:      a.PostID,
		Text:        a.Text,
		ImageID:     a.ImageID,
		Label:       datatypes.JSON(labelJSON),
		Timestamp:   a.Timestamp,
	}, nil
}

// Annotation converts the row back to the wire record.
func (r AnnotationRow) Annotation() (Annotation, error) {
	var label Label
	if len(r.Label) > 0 {
		if err := json.Unmarshal(r.Label, &label); err != nil {
			return Annotation{}, fmt.Errorf("unmarshal label for %s: %w", r.NaturalKey, err)
		}
	}
	return Annotation{
		AnnotatorID: r.AnnotatorID,
		PostID:      r.PostID,
		Text:        r.Text,
		ImageID:     r.ImageID,
		Label:       label,
		Timestamp:   r.Timestamp,
	}, nil
}
