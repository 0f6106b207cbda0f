// Package stagesync copies semifinals blocks into the finals record for the
// sections the participant declared unchanged.
package stagesync

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

// Sections, named by their key in the stage record.
const (
	SectionMusic         = "music"
	SectionSound         = "sound"
	SectionLighting      = "lighting"
	SectionChoreographer = "choreographer"
)

var sectionsCopiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_finals_sections_synced_total",
	Help: "Semifinals sections copied into finals records",
}, []string{"section"})

// Result describes what one synchronization did.
type Result struct {
	Sections []string `json:"sections"`
	Written  bool     `json:"written"`
}

type Synchronizer struct {
	records store.RecordStore
	logger  *zap.Logger
}

func NewSynchronizer(records store.RecordStore, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{records: records, logger: logger.With(zap.String("component", "stagesync"))}
}

// SyncFinalsFromSemifinals copies every semifinals section whose finals
// "changed" switch is explicitly false. An unset switch copies nothing, and
// an entry without a finals record is left alone. All copied sections go out
// in a single update guarded by the version that was read, so a concurrent
// finals save makes the update fail with store.ErrConflict instead of being
// overwritten.
func (s *Synchronizer) SyncFinalsFromSemifinals(ctx context.Context, entryID string, semis *models.SemifinalsInfo) (Result, error) {
	res := Result{Sections: []string{}}
	if semis == nil {
		return res, nil
	}

	raw, err := s.records.Get(ctx, entryID, models.StageFinals)
	if err != nil {
		return res, fmt.Errorf("%w: finals of %s: %v", store.ErrRead, entryID, err)
	}
	if raw == nil {
		return res, nil
	}
	rec, err := raw.Decode()
	if err != nil {
		s.logger.Warn("finals record does not decode, skipping sync",
			zap.String("entry_id", entryID), zap.Error(err))
		return res, fmt.Errorf("finals of %s: %w", entryID, err)
	}
	finals := rec.(*models.FinalsInfo)

	patch := models.Patch{}
	if unchanged(finals.MusicChange) {
		patch[SectionMusic] = semis.Music
	}
	if unchanged(finals.SoundChange) {
		patch[SectionSound] = semis.Sound
	}
	if unchanged(finals.LightingChange) {
		patch[SectionLighting] = semis.Lighting
	}
	if unchanged(finals.ChoreographerChange) {
		patch[SectionChoreographer] = semis.Choreographer
	}
	if len(patch) == 0 {
		return res, nil
	}

	for _, sec := range []string{SectionMusic, SectionSound, SectionLighting, SectionChoreographer} {
		if _, ok := patch[sec]; ok {
			res.Sections = append(res.Sections, sec)
		}
	}

	if err := s.records.Update(ctx, entryID, models.StageFinals, patch, raw.Version); err != nil {
		s.logger.Error("finals sync write failed",
			zap.String("entry_id", entryID), zap.Strings("sections", res.Sections), zap.Error(err))
		return res, fmt.Errorf("sync finals of %s: %w", entryID, err)
	}
	res.Written = true
	for _, sec := range res.Sections {
		sectionsCopiedTotal.WithLabelValues(sec).Inc()
	}
	s.logger.Info("finals synced from semifinals",
		zap.String("entry_id", entryID), zap.Strings("sections", res.Sections))
	return res, nil
}

func unchanged(changed *bool) bool {
	return changed != nil && !*changed
}
