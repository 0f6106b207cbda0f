// Package store defines the record and file stores the completion engine
// reads and writes, and an in-memory implementation of both.
//
// Implementations:
//   - Memory (this package): tests and the "memory" backend
//   - postgres.Store: PostgreSQL via pgx, JSONB stage records
//   - sheets.Client: a Google Spreadsheet, one sheet per table
package store

import (
	"context"
	"errors"

	"entry-portal/internal/models"
)

var (
	// ErrNotFound is returned when the entry (or the record to update) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Update when the record changed since it was read.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrRead marks a failed read against the backing store.
	ErrRead = errors.New("store read failed")
	// ErrWrite marks a failed write against the backing store.
	ErrWrite = errors.New("store write failed")
)

// RecordStore gives keyed access to entries and their stage records.
type RecordStore interface {
	// CreateEntry registers an entry with every stage not_registered.
	CreateEntry(ctx context.Context, e models.Entry) error
	// GetEntry returns ErrNotFound when the entry does not exist.
	GetEntry(ctx context.Context, entryID string) (*models.Entry, error)
	// ListEntries returns all entries ordered by creation.
	ListEntries(ctx context.Context) ([]models.Entry, error)

	// Get returns nil, nil when the stage has no record.
	Get(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, error)
	// Upsert replaces the stage's fields, creating the record when absent.
	Upsert(ctx context.Context, entryID string, stage models.Stage, fields []byte) (*models.StageRecord, error)
	// Update merges patch over the record's top-level keys. It fails with
	// ErrConflict when expectedVersion no longer matches and ErrNotFound when
	// the record is absent. A zero expectedVersion skips the check.
	Update(ctx context.Context, entryID string, stage models.Stage, patch models.Patch, expectedVersion int64) error

	// SetEntryStatus stores the stage status. changed is false when the
	// stored value already matched.
	SetEntryStatus(ctx context.Context, entryID string, stage models.Stage, status models.Status) (changed bool, err error)
}

// FileStore answers attachment existence questions.
type FileStore interface {
	// Exists reports whether a file with the purpose tag was uploaded for the
	// entry. An empty fileType matches any type.
	Exists(ctx context.Context, entryID, fileType, purpose string) (bool, error)
	AddFile(ctx context.Context, f models.EntryFile) error
}
