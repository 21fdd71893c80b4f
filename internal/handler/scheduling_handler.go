package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

type schedulingService interface {
	Schedule(ctx context.Context, req dto.ScheduleRequest) (*models.SchedulingResult, error)
	ScheduleAsync(ctx context.Context, req dto.ScheduleRequest) (*dto.AsyncScheduleResponse, error)
	GetResult(ctx context.Context, requestID string) (*models.SchedulingResult, error)
	Commit(ctx context.Context, requestID string) (*models.SchedulingResult, error)
	CommitResult(ctx context.Context, result *models.SchedulingResult) error
}

type timetableExporter interface {
	Export(ctx context.Context, requestID string, format service.ExportFormat) (*service.ExportDocument, error)
}

type scheduleOptimizer interface {
	Optimize(ctx context.Context, decisions []models.SchedulingDecision, constraints models.OptimizationConstraints) (*models.OptimizationSolution, error)
}

// SchedulingHandler exposes the scheduling engine.
type SchedulingHandler struct {
	service   schedulingService
	exporter  timetableExporter
	optimizer scheduleOptimizer
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc *service.SchedulingService, exporter *service.ExportService, optimizer *service.OptimizationService) *SchedulingHandler {
	return &SchedulingHandler{service: svc, exporter: exporter, optimizer: optimizer}
}

// Schedule godoc
// @Summary Schedule students into classes
// @Description Processes the request synchronously. With commit=true the resulting classes are persisted.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param commit query bool false "Persist the resulting classes"
// @Param payload body dto.ScheduleRequest true "Scheduling request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduling/requests [post]
func (h *SchedulingHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduling payload"))
		return
	}
	commit, _ := strconv.ParseBool(c.DefaultQuery("commit", "false"))

	result, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if commit && result.Success {
		if err := h.service.CommitResult(c.Request.Context(), result); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.JSON(c, http.StatusOK, result)
}

// ScheduleAsync godoc
// @Summary Queue a scheduling request
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRequest true "Scheduling request"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /scheduling/requests/async [post]
func (h *SchedulingHandler) ScheduleAsync(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduling payload"))
		return
	}
	ack, err := h.service.ScheduleAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, ack)
}

// Get godoc
// @Summary Get a scheduling result
// @Tags Scheduling
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduling/requests/{id} [get]
func (h *SchedulingHandler) Get(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Commit godoc
// @Summary Persist a completed scheduling result
// @Tags Scheduling
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scheduling/requests/{id}/commit [post]
func (h *SchedulingHandler) Commit(c *gin.Context) {
	result, err := h.service.Commit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Export a timetable
// @Tags Scheduling
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /scheduling/requests/{id}/export [get]
func (h *SchedulingHandler) Export(c *gin.Context) {
	doc, err := h.exporter.Export(c.Request.Context(), c.Param("id"), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Body)
}

// Optimize godoc
// @Summary Optimize a set of scheduling decisions
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.OptimizeRequest true "Decisions and constraints"
// @Success 200 {object} response.Envelope
// @Router /scheduling/optimize [post]
func (h *SchedulingHandler) Optimize(c *gin.Context) {
	var req dto.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimization payload"))
		return
	}
	if len(req.Decisions) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decisions are required"))
		return
	}
	solution, err := h.optimizer.Optimize(c.Request.Context(), req.Decisions, req.Constraints)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solution)
}
