// Package completion turns rule verdicts into per-stage entry statuses and
// keeps them current, either after a single save (Tracker.Refresh) or for
// every entry at once (Batch.Run).
package completion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"entry-portal/internal/models"
)

var statusWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_stage_status_writes_total",
	Help: "Stage status changes persisted on entries",
}, []string{"stage", "status"})

// ResolveStatus maps record existence and the rule verdict to a status.
// An applications record never goes past in_progress.
func ResolveStatus(stage models.Stage, recordExists, complete bool) models.Status {
	switch {
	case !recordExists:
		return models.StatusNotRegistered
	case stage == models.StageApplications:
		return models.StatusInProgress
	case complete:
		return models.StatusRegistered
	default:
		return models.StatusInProgress
	}
}
