package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claimlab/annotation-backend/internal/types"
)

// decodeJSONL parses line-delimited JSON annotation records, skipping
// blank lines.
func decodeJSONL(data []byte) ([]types.Annotation, error) {
	var records []types.Annotation
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var a types.Annotation
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", i+1, err)
		}
		records = append(records, a)
	}
	return records, nil
}

// encodeJSONL renders records as one JSON object per line, with a
// trailing newline.
func encodeJSONL(records []types.Annotation) ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range records {
		line, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal annotation %s: %w", a.NaturalKey(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// appendJSONL appends encoded records to existing JSONL content,
// inserting a separating newline when the existing content lacks one.
func appendJSONL(existing []byte, records []types.Annotation) ([]byte, error) {
	added, err := encodeJSONL(records)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		existing = append(existing, '\n')
	}
	return append(existing, added...), nil
}
