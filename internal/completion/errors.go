package completion

import (
	"fmt"

	"entry-portal/internal/models"
)

// StageError reports a store failure while assessing or persisting one
// stage of an entry. It matches store.ErrRead or store.ErrWrite with errors.Is.
type StageError struct {
	EntryID string
	Stage   models.Stage
	Op      string
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.EntryID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
