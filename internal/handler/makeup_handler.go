package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

type makeUpSuggester interface {
	GenerateSuggestions(ctx context.Context, req models.MakeUpSuggestionRequest) ([]models.DetailedMakeUpSuggestion, error)
}

// MakeUpHandler serves make-up class suggestions.
type MakeUpHandler struct {
	service makeUpSuggester
}

// NewMakeUpHandler constructs the handler.
func NewMakeUpHandler(service makeUpSuggester) *MakeUpHandler {
	return &MakeUpHandler{service: service}
}

// Suggest godoc
// @Summary Suggest make-up classes for a postponed class
// @Tags MakeUp
// @Accept json
// @Produce json
// @Param payload body dto.MakeUpRequest true "Make-up request"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /makeup/suggestions [post]
func (h *MakeUpHandler) Suggest(c *gin.Context) {
	var req dto.MakeUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid make-up payload"))
		return
	}
	suggestions, err := h.service.GenerateSuggestions(c.Request.Context(), req.ToModel())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestions, map[string]interface{}{"count": len(suggestions)})
}
