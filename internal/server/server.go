package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"entry-portal/internal/completion"
	"entry-portal/internal/config"
	"entry-portal/internal/models"
	"entry-portal/internal/notify"
	"entry-portal/internal/portal"
	"entry-portal/internal/stagesync"
)

// Portal is the service behind the API.
type Portal interface {
	CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error)
	GetEntry(ctx context.Context, entryID string) (*models.Entry, error)
	SaveStage(ctx context.Context, entryID string, stage models.Stage, fields []byte) (portal.SaveResult, error)
	Assess(ctx context.Context, entryID string, stage models.Stage) (completion.Assessment, error)
	AddFile(ctx context.Context, f models.EntryFile) ([]completion.Assessment, error)
	ResyncFinals(ctx context.Context, entryID string) (stagesync.Result, error)
	Recompute(ctx context.Context) (completion.Report, error)
}

type handler struct {
	svc      Portal
	notifier notify.Notifier
	logger   *zap.Logger
}

func New(cfg config.Config, svc Portal, notifier notify.Notifier, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      Router(cfg.APISecret, svc, notifier, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

// Router builds the HTTP routes. Everything under /api/v1 requires a valid
// X-Signature made with secret.
func Router(secret string, svc Portal, notifier notify.Notifier, logger *zap.Logger) http.Handler {
	h := &handler{svc: svc, notifier: notifier, logger: logger.With(zap.String("component", "http"))}

	r := chi.NewRouter()
	r.Use(instrument(h.logger))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireSignature(secret))

		r.Post("/entries", h.createEntry)
		r.Route("/entries/{entryID}", func(r chi.Router) {
			r.Use(validEntryID)
			r.Get("/", h.getEntry)
			r.Put("/stages/{stage}", h.saveStage)
			r.Get("/stages/{stage}/completion", h.completion)
			r.Post("/files", h.addFile)
			r.Post("/finals/sync", h.syncFinals)
		})
		r.Post("/completion/recompute", h.recompute)
	})
	return r
}

func validEntryID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "entryID")); err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationError, "entry id must be a UUID")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func stageParam(w http.ResponseWriter, r *http.Request) (models.Stage, bool) {
	st, err := models.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())
		return "", false
	}
	return st, true
}

type statusView struct {
	Status models.Status `json:"status"`
	Label  string        `json:"label"`
}

type entryView struct {
	ID        string                      `json:"id"`
	Style     string                      `json:"style"`
	TeamName  string                      `json:"team_name"`
	CreatedAt time.Time                   `json:"created_at"`
	Stages    map[models.Stage]statusView `json:"stages"`
}

func viewEntry(e *models.Entry) entryView {
	v := entryView{ID: e.ID, Style: e.Style, TeamName: e.TeamName, CreatedAt: e.CreatedAt, Stages: map[models.Stage]statusView{}}
	for _, st := range models.Stages() {
		s := e.StatusOf(st)
		v.Stages[st] = statusView{Status: s, Label: s.Label()}
	}
	return v
}

func (h *handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Style    string `json:"style"`
		TeamName string `json:"team_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid JSON body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if _, err := uuid.Parse(req.ID); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "entry id must be a UUID")
		return
	}
	e, err := h.svc.CreateEntry(r.Context(), models.Entry{ID: req.ID, Style: req.Style, TeamName: req.TeamName})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewEntry(e))
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEntry(e))
}

func (h *handler) saveStage(w http.ResponseWriter, r *http.Request) {
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	var fields json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid JSON body")
		return
	}
	res, err := h.svc.SaveStage(r.Context(), chi.URLParam(r, "entryID"), stage, fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) completion(w http.ResponseWriter, r *http.Request) {
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Assess(r.Context(), chi.URLParam(r, "entryID"), stage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		completion.Assessment
		Label string `json:"label"`
	}{a, a.Status.Label()})
}

func (h *handler) addFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileType string `json:"file_type"`
		Purpose  string `json:"purpose"`
		Path     string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Purpose == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "purpose is required")
		return
	}
	assessed, err := h.svc.AddFile(r.Context(), models.EntryFile{
		EntryID:  chi.URLParam(r, "entryID"),
		FileType: req.FileType,
		Purpose:  req.Purpose,
		Path:     req.Path,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"refreshed": assessed})
}

func (h *handler) syncFinals(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResyncFinals(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) recompute(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Recompute(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.notifier.NotifyAdmins(ctx, notify.RecomputeSummary(rep)); err != nil {
			h.logger.Warn("notify admins", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusOK, rep)
}
