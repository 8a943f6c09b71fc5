package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moodloom/recengine/internal/session"
)

// WorkflowHandler exposes the recommendation engine's public contract
// (StartWorkflow, GetWorkflowState, Cancel) over HTTP.
type WorkflowHandler struct {
	service *session.Service
}

// NewWorkflowHandler builds a WorkflowHandler backed by service.
func NewWorkflowHandler(service *session.Service) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

type startWorkflowRequest struct {
	MoodPrompt  string `json:"mood_prompt" binding:"required"`
	AccessToken string `json:"access_token"`
	CountryHint string `json:"country_hint"`
}

// Start handles POST /api/v1/workflows.
func (h *WorkflowHandler) Start(c *gin.Context) {
	var req startWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, err := h.service.StartWorkflow(req.MoodPrompt, session.UserContext{
		AccessToken: req.AccessToken,
		CountryHint: req.CountryHint,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

// Get handles GET /api/v1/workflows/:session_id.
func (h *WorkflowHandler) Get(c *gin.Context) {
	state, err := h.service.GetWorkflowState(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, state)
}

// Cancel handles POST /api/v1/workflows/:session_id/cancel.
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Param("session_id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}
