package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/validation"
	"github.com/kbukum/flowkit/version"
)

// RunRequest is the body of POST /flows/:name/runs.
type RunRequest struct {
	// State seeds the run state.
	State map[string]any `json:"state"`
}

// API serves the catalog and run endpoints.
//
// Flows in the catalog must have been built with recorder as an observer for
// runs to carry a step trace.
type API struct {
	service  string
	catalog  *Catalog
	runs     RunStore
	recorder *flow.Recorder
	log      *logger.Logger
}

// NewAPI creates an API. A nil store keeps the last 1000 runs in memory.
func NewAPI(service string, catalog *Catalog, runs RunStore, recorder *flow.Recorder, log *logger.Logger) *API {
	if runs == nil {
		runs = NewMemoryStore(1000)
	}
	if recorder == nil {
		recorder = flow.NewRecorder()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &API{
		service:  service,
		catalog:  catalog,
		runs:     runs,
		recorder: recorder,
		log:      log.WithComponent("api"),
	}
}

// Register mounts the API routes on r.
func (a *API) Register(r gin.IRouter) {
	r.GET("/health", a.health)
	r.GET("/version", a.buildInfo)
	r.GET("/flows", a.listFlows)
	r.GET("/flows/:name", a.getFlow)
	r.POST("/flows/:name/runs", a.startRun)
	r.GET("/runs/:id", a.getRun)
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   a.service,
		"version":   version.Get().Short(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) buildInfo(c *gin.Context) {
	RespondOK(c, version.Get())
}

func (a *API) listFlows(c *gin.Context) {
	RespondList(c, a.catalog.List())
}

func (a *API) getFlow(c *gin.Context) {
	name := c.Param("name")
	summary, ok := a.catalog.Summary(name)
	if !ok {
		RespondWithError(c, errors.NotFound("flow", name))
		return
	}
	RespondOK(c, summary)
}

func (a *API) startRun(c *gin.Context) {
	name := c.Param("name")
	f, ok := a.catalog.Get(name)
	if !ok {
		RespondWithError(c, errors.NotFound("flow", name))
		return
	}

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}

	id := uuid.NewString()
	ctx := flow.ContextWithRunID(c.Request.Context(), id)
	state := flow.NewStateFrom(req.State)

	started := time.Now()
	tag, err := f.Run(ctx, state)
	run := Run{
		ID:         id,
		Flow:       name,
		Status:     RunSucceeded,
		Tag:        tag,
		State:      state.Snapshot(),
		Steps:      flow.Views(a.recorder.Events(id)),
		StartedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}
	a.recorder.Forget(id)

	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		a.log.WithContext(ctx).Warn("run failed", logger.Fields(logger.FieldFlow, name, logger.FieldError, err.Error()))
	}
	a.runs.Save(run)
	respondRun(c, run, err)
}

// runError maps a run failure to the API error. Step limits keep their own
// code; everything else a unit returned is reported as UNIT_FAILED.
func runError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeMaxStepsExceeded {
		return appErr
	}
	return errors.UnitFailed(err)
}

func (a *API) getRun(c *gin.Context) {
	id := c.Param("id")
	if _, err := validation.ValidateUUID("id", id); err != nil {
		RespondWithError(c, err)
		return
	}
	run, ok := a.runs.Get(id)
	if !ok {
		RespondWithError(c, errors.NotFound("run", id))
		return
	}
	RespondOK(c, run)
}
