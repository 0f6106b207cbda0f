package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"entry-portal/internal/models"
	"entry-portal/internal/rules"
	"entry-portal/internal/store"
)

// Assessment is the evaluated state of one stage of an entry.
type Assessment struct {
	Stage   models.Stage  `json:"stage"`
	Exists  bool          `json:"exists"`
	Verdict rules.Verdict `json:"verdict"`
	Status  models.Status `json:"status"`
}

// Tracker evaluates stages against the stores and persists their status.
type Tracker struct {
	records store.RecordStore
	files   store.FileStore
	now     func() time.Time
	logger  *zap.Logger
}

// NewTracker builds a tracker. now supplies the evaluation time used for
// age checks; nil means time.Now.
func NewTracker(records store.RecordStore, files store.FileStore, now func() time.Time, logger *zap.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		records: records,
		files:   files,
		now:     now,
		logger:  logger.With(zap.String("component", "completion")),
	}
}

// Assess reads the stage record and its attachments and evaluates it. Read
// failures are returned as *StageError and nothing is written.
func (t *Tracker) Assess(ctx context.Context, entryID string, stage models.Stage) (Assessment, error) {
	a := Assessment{Stage: stage, Status: models.StatusNotRegistered, Verdict: rules.Verdict{Missing: []string{}}}

	raw, err := t.records.Get(ctx, entryID, stage)
	if err != nil {
		return a, &StageError{EntryID: entryID, Stage: stage, Op: "read record", Kind: store.ErrRead, Err: err}
	}
	if raw == nil {
		return a, nil
	}

	rec, err := raw.Decode()
	if err != nil {
		// Stored fields that no longer decode are judged as an empty form.
		t.logger.Warn("stage record does not decode",
			zap.String("entry_id", entryID), zap.String("stage", string(stage)), zap.Error(err))
		rec, _ = models.NewRecord(stage)
	}

	files := rules.Attachments{}
	for _, k := range rules.RequiredFiles(stage) {
		ok, err := t.files.Exists(ctx, entryID, k.Type, k.Purpose)
		if err != nil {
			return a, &StageError{EntryID: entryID, Stage: stage, Op: "lookup " + k.String(), Kind: store.ErrRead, Err: err}
		}
		files[k] = ok
	}

	a.Exists = true
	a.Verdict = rules.Evaluate(rec, files, t.now())
	a.Status = ResolveStatus(stage, true, a.Verdict.Complete)
	return a, nil
}

// Refresh assesses the stage and stores the resulting status on the entry.
// Writing an unchanged status is a no-op.
func (t *Tracker) Refresh(ctx context.Context, entryID string, stage models.Stage) (Assessment, bool, error) {
	a, err := t.Assess(ctx, entryID, stage)
	if err != nil {
		return a, false, err
	}
	changed, err := t.write(ctx, entryID, stage, a.Status)
	return a, changed, err
}

func (t *Tracker) write(ctx context.Context, entryID string, stage models.Stage, status models.Status) (bool, error) {
	changed, err := t.records.SetEntryStatus(ctx, entryID, stage, status)
	if err != nil {
		t.logger.Error("status write failed",
			zap.String("entry_id", entryID), zap.String("stage", string(stage)),
			zap.String("status", string(status)), zap.Error(err))
		return false, &StageError{EntryID: entryID, Stage: stage, Op: "write status", Kind: store.ErrWrite, Err: err}
	}
	if changed {
		statusWritesTotal.WithLabelValues(string(stage), string(status)).Inc()
		t.logger.Debug("stage status changed",
			zap.String("entry_id", entryID), zap.String("stage", string(stage)), zap.String("status", string(status)))
	}
	return changed, nil
}
