package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/middleware"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

type engineConfigService interface {
	Current() service.EngineConfig
	UpdateConfiguration(ctx context.Context, patch dto.EngineConfigPatch, updatedBy string) (service.EngineConfig, error)
	History(ctx context.Context, limit int) ([]models.ConfigurationRevision, error)
}

// ConfigurationHandler exposes the scheduling engine configuration.
type ConfigurationHandler struct {
	service engineConfigService
}

// NewConfigurationHandler builds a new handler.
func NewConfigurationHandler(service engineConfigService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// Get godoc
// @Summary Get the active engine configuration
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /scheduling/config [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Current())
}

// Update godoc
// @Summary Update the engine configuration
// @Description Validates the patched configuration and swaps it in. The prior configuration stays active on any failure.
// @Tags Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EngineConfigPatch true "Partial configuration"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /scheduling/config [patch]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var patch dto.EngineConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	cfg, err := h.service.UpdateConfiguration(c.Request.Context(), patch, middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg)
}

// History godoc
// @Summary List superseded engine configurations
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum revisions" default(20)
// @Success 200 {object} response.Envelope
// @Router /scheduling/config/history [get]
func (h *ConfigurationHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
		return
	}
	revisions, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, revisions, map[string]interface{}{"count": len(revisions)})
}
