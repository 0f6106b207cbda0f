// Package portal wires the completion engine into the save flow: a stage
// form is stored, its status is recomputed, and a semifinals save is
// propagated into the finals record.
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"entry-portal/internal/completion"
	"entry-portal/internal/models"
	"entry-portal/internal/rules"
	"entry-portal/internal/stagesync"
	"entry-portal/internal/store"
)

// ErrInvalidFields is returned when submitted fields do not decode into the
// stage's form.
var ErrInvalidFields = errors.New("invalid stage fields")

// SaveResult is the outcome of SaveStage.
type SaveResult struct {
	Version       int64                 `json:"version"`
	Assessment    completion.Assessment `json:"assessment"`
	StatusChanged bool                  `json:"status_changed"`
	// StatusError carries a failed status refresh; the fields were saved.
	StatusError string `json:"status_error,omitempty"`
	// Sync is set for semifinals saves. SyncError carries a failed sync;
	// the save itself still succeeded.
	Sync      *stagesync.Result `json:"sync,omitempty"`
	SyncError string            `json:"sync_error,omitempty"`
}

type Service struct {
	records store.RecordStore
	files   store.FileStore
	tracker *completion.Tracker
	syncer  *stagesync.Synchronizer
	batch   *completion.Batch
	logger  *zap.Logger
}

// Options tune a Service. Zero values pick the defaults.
type Options struct {
	Now              func() time.Time
	BatchConcurrency int
}

func New(records store.RecordStore, files store.FileStore, opts Options, logger *zap.Logger) *Service {
	tracker := completion.NewTracker(records, files, opts.Now, logger)
	return &Service{
		records: records,
		files:   files,
		tracker: tracker,
		syncer:  stagesync.NewSynchronizer(records, logger),
		batch:   completion.NewBatch(tracker, records, opts.BatchConcurrency, logger),
		logger:  logger.With(zap.String("component", "portal")),
	}
}

// CreateEntry registers a new entry with every stage not_registered.
func (s *Service) CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error) {
	e.Statuses = nil
	if err := s.records.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return s.records.GetEntry(ctx, e.ID)
}

func (s *Service) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	return s.records.GetEntry(ctx, entryID)
}

// SaveStage stores the stage fields and recomputes its status. Saving
// semifinals also copies unchanged sections into finals. Once the fields are
// stored, a failed status refresh or copy is logged and reported in the
// result without failing the save.
func (s *Service) SaveStage(ctx context.Context, entryID string, stage models.Stage, fields []byte) (SaveResult, error) {
	var res SaveResult

	if err := store.ValidateFields(fields); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	rec, err := models.DecodeRecord(stage, fields)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	if _, err := s.records.GetEntry(ctx, entryID); err != nil {
		return res, err
	}

	saved, err := s.records.Upsert(ctx, entryID, stage, fields)
	if err != nil {
		return res, fmt.Errorf("save %s: %w", stage, err)
	}
	res.Version = saved.Version

	res.Assessment, res.StatusChanged, err = s.tracker.Refresh(ctx, entryID, stage)
	if err != nil {
		s.logger.Warn("status refresh after save failed",
			zap.String("entry_id", entryID), zap.String("stage", string(stage)), zap.Error(err))
		res.StatusError = err.Error()
	}

	if semis, ok := rec.(*models.SemifinalsInfo); ok {
		sr, err := s.syncFinals(ctx, entryID, semis)
		res.Sync = &sr
		if err != nil {
			s.logger.Warn("finals sync after semifinals save failed",
				zap.String("entry_id", entryID), zap.Error(err))
			res.SyncError = err.Error()
		}
	}
	return res, nil
}

// Assess evaluates one stage without writing anything.
func (s *Service) Assess(ctx context.Context, entryID string, stage models.Stage) (completion.Assessment, error) {
	if _, err := s.records.GetEntry(ctx, entryID); err != nil {
		return completion.Assessment{}, err
	}
	return s.tracker.Assess(ctx, entryID, stage)
}

// ResyncFinals re-runs the finals synchronization from the stored
// semifinals record. Without a semifinals record nothing happens.
func (s *Service) ResyncFinals(ctx context.Context, entryID string) (stagesync.Result, error) {
	if _, err := s.records.GetEntry(ctx, entryID); err != nil {
		return stagesync.Result{}, err
	}
	raw, err := s.records.Get(ctx, entryID, models.StageSemifinals)
	if err != nil {
		return stagesync.Result{}, fmt.Errorf("%w: semifinals of %s: %v", store.ErrRead, entryID, err)
	}
	if raw == nil {
		return stagesync.Result{Sections: []string{}}, nil
	}
	rec, err := raw.Decode()
	if err != nil {
		return stagesync.Result{}, fmt.Errorf("semifinals of %s: %w", entryID, err)
	}
	return s.syncFinals(ctx, entryID, rec.(*models.SemifinalsInfo))
}

// syncFinals copies into finals and refreshes the finals status when the
// record changed.
func (s *Service) syncFinals(ctx context.Context, entryID string, semis *models.SemifinalsInfo) (stagesync.Result, error) {
	res, err := s.syncer.SyncFinalsFromSemifinals(ctx, entryID, semis)
	if err != nil || !res.Written {
		return res, err
	}
	if _, _, err := s.tracker.Refresh(ctx, entryID, models.StageFinals); err != nil {
		return res, err
	}
	return res, nil
}

// AddFile records an uploaded attachment and refreshes every stage that
// requires a file with its purpose.
func (s *Service) AddFile(ctx context.Context, f models.EntryFile) ([]completion.Assessment, error) {
	if _, err := s.records.GetEntry(ctx, f.EntryID); err != nil {
		return nil, err
	}
	if err := s.files.AddFile(ctx, f); err != nil {
		return nil, fmt.Errorf("add file: %w", err)
	}
	out := []completion.Assessment{}
	for _, st := range models.Stages() {
		if !requiresPurpose(st, f.Purpose) {
			continue
		}
		a, _, err := s.tracker.Refresh(ctx, f.EntryID, st)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func requiresPurpose(st models.Stage, purpose string) bool {
	for _, k := range rules.RequiredFiles(st) {
		if k.Purpose == purpose {
			return true
		}
	}
	return false
}

// Recompute runs the completion batch over every entry.
func (s *Service) Recompute(ctx context.Context) (completion.Report, error) {
	return s.batch.Run(ctx)
}
