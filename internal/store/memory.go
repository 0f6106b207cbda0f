package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"entry-portal/internal/models"
)

type recordKey struct {
	entryID string
	stage   models.Stage
}

// Memory is an in-process RecordStore and FileStore.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	order   []string
	entries map[string]*models.Entry
	records map[recordKey]*models.StageRecord
	files   []models.EntryFile
}

func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		entries: map[string]*models.Entry{},
		records: map[recordKey]*models.StageRecord{},
	}
}

func (m *Memory) CreateEntry(ctx context.Context, e models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; ok {
		return fmt.Errorf("%w: entry %s exists", ErrConflict, e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	statuses := map[models.Stage]models.Status{}
	for _, st := range models.Stages() {
		statuses[st] = e.StatusOf(st)
	}
	e.Statuses = statuses
	m.entries[e.ID] = &e
	m.order = append(m.order, e.ID)
	return nil
}

func (m *Memory) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntry(e), nil
}

func (m *Memory) ListEntries(ctx context.Context) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *copyEntry(m.entries[id]))
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordKey{entryID, stage}]
	if !ok {
		return nil, nil
	}
	return copyRecord(r), nil
}

func (m *Memory) Upsert(ctx context.Context, entryID string, stage models.Stage, fields []byte) (*models.StageRecord, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entryID]; !ok {
		return nil, ErrNotFound
	}
	k := recordKey{entryID, stage}
	r, ok := m.records[k]
	if !ok {
		r = &models.StageRecord{EntryID: entryID, Stage: stage}
		m.records[k] = r
	}
	r.Fields = append([]byte(nil), fields...)
	r.Version++
	r.UpdatedAt = m.now()
	return copyRecord(r), nil
}

func (m *Memory) Update(ctx context.Context, entryID string, stage models.Stage, patch models.Patch, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordKey{entryID, stage}]
	if !ok {
		return ErrNotFound
	}
	if expectedVersion != 0 && r.Version != expectedVersion {
		return fmt.Errorf("%w: %s/%s at version %d, expected %d", ErrConflict, entryID, stage, r.Version, expectedVersion)
	}
	merged, err := MergeFields(r.Fields, patch)
	if err != nil {
		return err
	}
	r.Fields = merged
	r.Version++
	r.UpdatedAt = m.now()
	return nil
}

func (m *Memory) SetEntryStatus(ctx context.Context, entryID string, stage models.Stage, status models.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return false, ErrNotFound
	}
	if e.Statuses[stage] == status {
		return false, nil
	}
	e.Statuses[stage] = status
	return true, nil
}

func (m *Memory) Exists(ctx context.Context, entryID, fileType, purpose string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.EntryID != entryID || f.Purpose != purpose {
			continue
		}
		if fileType == "" || strings.EqualFold(f.FileType, fileType) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) AddFile(ctx context.Context, f models.EntryFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.UploadedAt.IsZero() {
		f.UploadedAt = m.now()
	}
	m.files = append(m.files, f)
	return nil
}

func copyEntry(e *models.Entry) *models.Entry {
	c := *e
	c.Statuses = make(map[models.Stage]models.Status, len(e.Statuses))
	for k, v := range e.Statuses {
		c.Statuses[k] = v
	}
	return &c
}

func copyRecord(r *models.StageRecord) *models.StageRecord {
	c := *r
	c.Fields = append([]byte(nil), r.Fields...)
	return &c
}
