package store

import (
	"encoding/json"
	"fmt"

	"entry-portal/internal/models"
)

// MergeFields overlays patch on the top-level keys of a JSON object.
// Keys absent from patch keep their stored value.
func MergeFields(fields []byte, patch models.Patch) ([]byte, error) {
	obj := map[string]json.RawMessage{}
	if len(fields) > 0 && string(fields) != "null" {
		if err := json.Unmarshal(fields, &obj); err != nil {
			return nil, fmt.Errorf("merge: stored fields: %w", err)
		}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("merge: patch key %s: %w", k, err)
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// ValidateFields checks that fields is a JSON object.
func ValidateFields(fields []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(fields, &obj); err != nil {
		return fmt.Errorf("fields must be a JSON object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("fields must be a JSON object")
	}
	return nil
}
