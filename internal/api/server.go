// Package api exposes the classification pipeline over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"microlens/app"
	"microlens/domain/classify"
	"microlens/domain/core"
	"microlens/internal/errors"
	"microlens/ports"
)

// App wires the pipeline and the optional result ledger behind a chi router.
type App struct {
	router   *chi.Mux
	pipeline *app.Pipeline
	results  ports.ResultRepository // nil disables persistence
	logger   *zap.Logger
}

// NewApp builds the HTTP application. A nil repository runs the API without
// the ledger; a nil logger disables logging.
func NewApp(pipeline *app.Pipeline, results ports.ResultRepository, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		router:   chi.NewRouter(),
		pipeline: pipeline,
		results:  results,
		logger:   logger,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// Router exposes the configured handler for serving and tests.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Post("/api/classify", a.handleClassify)
	a.router.Get("/api/results", a.handleListResults)
	a.router.Get("/api/results/{runID}", a.handleGetResult)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classifyRequest is one lightcurve submitted for classification.
type classifyRequest struct {
	SourceID string    `json:"source_id"`
	Time     []float64 `json:"time"`
	Mag      []float64 `json:"mag"`
	Err      []float64 `json:"err"`
}

func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, errors.InvalidInput("request body is not valid JSON"))
		return
	}

	result, err := a.pipeline.Classify(r.Context(), req.Time, req.Mag, req.Err)
	if err != nil {
		a.respondError(w, err)
		return
	}

	if a.results != nil && req.SourceID != "" {
		sourceID, err := core.ParseSourceID(req.SourceID)
		if err == nil {
			if err := a.results.SaveResult(r.Context(), sourceID, result); err != nil {
				// classification succeeded; a ledger failure must not lose it
				a.logger.Error("failed to persist result",
					zap.String("run_id", result.RunID.String()),
					zap.Error(err))
			}
		}
	}

	a.logger.Info("classified lightcurve",
		zap.String("run_id", result.RunID.String()),
		zap.String("source_id", req.SourceID),
		zap.String("label", result.Label.String()),
		zap.Bool("confirmed", result.Confirmed))

	a.respondJSON(w, http.StatusOK, result)
}

func (a *App) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		a.respondError(w, errors.StorageError("result ledger is not configured", nil))
		return
	}
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		a.respondError(w, errors.InvalidInput("run ID cannot be empty"))
		return
	}
	result, err := a.results.GetResult(r.Context(), runID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, result)
}

func (a *App) handleListResults(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		a.respondError(w, errors.StorageError("result ledger is not configured", nil))
		return
	}

	var label classify.Label
	if s := r.URL.Query().Get("label"); s != "" {
		parsed, err := classify.ParseLabel(s)
		if err != nil {
			a.respondError(w, errors.InvalidInput(err.Error()))
			return
		}
		label = parsed
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			a.respondError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	results, err := a.results.ListResults(r.Context(), label, limit)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (a *App) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError maps application error codes onto HTTP statuses.
func (a *App) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)
	switch code {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeInsufficientData, errors.CodeMalformedSeries:
		status = http.StatusUnprocessableEntity
	case errors.CodeModelInvocation:
		status = http.StatusBadGateway
	}
	a.respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}
