package types

import (
	"errors"
	"fmt"
)

// Label values as they appear on the wire. These strings are shared by all
// storage backends and must not drift between them.
const (
	ClaimStatusClaim   = "Claim"
	ClaimStatusNoClaim = "No Claim"

	CheckWorthy    = "Check-worthy"
	NotCheckWorthy = "Not Check-worthy"
)

var (
	ErrClaimStatusInvalid     = errors.New("claim_status must be \"Claim\" or \"No Claim\"")
	ErrCheckworthinessNeeded  = errors.New("checkworthiness is required when claim_status is \"Claim\"")
	ErrCheckworthinessExtra   = errors.New("checkworthiness must be empty when claim_status is \"No Claim\"")
	ErrCheckworthinessInvalid = errors.New("checkworthiness must be \"Check-worthy\" or \"Not Check-worthy\"")
)

// Label is the two-question judgment for one item. Checkworthiness is set
// if and only if ClaimStatus is "Claim".
type Label struct {
	ClaimStatus     string  `json:"claim_status"`
	Checkworthiness *string `json:"checkworthiness"`
}

func (l Label) Validate() error {
	switch l.ClaimStatus {
	case ClaimStatusClaim:
		if l.Checkworthiness == nil {
			return ErrCheckworthinessNeeded
		}
		if *l.Checkworthiness != CheckWorthy && *l.Checkworthiness != NotCheckWorthy {
			return fmt.Errorf("%q: %w", *l.Checkworthiness, ErrCheckworthinessInvalid)
		}
	case ClaimStatusNoClaim:
		if l.Checkworthiness != nil {
			return ErrCheckworthinessExtra
		}
	default:
		return ErrClaimStatusInvalid
	}
	return nil
}

// DefaultLabel is the answer pre-selected in the form for items without a
// pending entry, including items never visited before.
func DefaultLabel() Label {
	cw := CheckWorthy
	return Label{ClaimStatus: ClaimStatusNoClaim, Checkworthiness: &cw}
}

// Annotation is one durably stored judgment. The field set and JSON names
// are the wire contract shared by the local, database and bucket backends.
type Annotation struct {
	AnnotatorID string `json:"annotator_id"`
	PostID      string `json:"post_id"`
	Text        string `json:"text"`
	ImageID     string `json:"image_id"`
	Label       Label  `json:"label"`
	Timestamp   string `json:"timestamp"`
}

// NaturalKey is the identity used for upserts: one record per annotator
// per post.
func (a Annotation) NaturalKey() string {
	return a.AnnotatorID + "_" + a.PostID
}

func (a Annotation) Validate() error {
	if a.AnnotatorID == "" {
		return errors.New("annotator_id is required")
	}
	if a.PostID == "" {
		return errors.New("post_id is required")
	}
	return a.Label.Validate()
}
