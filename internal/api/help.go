package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/models"
)

// CreateHelpRequest handles POST /api/help-requests
func (h *Handler) CreateHelpRequest(c *gin.Context) {
	var req models.CreateHelpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_INPUT",
			Message: err.Error(),
		})
		return
	}

	request, err := h.help.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.HelpRequestResponse{Status: "success", Request: request})
}

// GetHelpRequest handles GET /api/help-requests/:id
func (h *Handler) GetHelpRequest(c *gin.Context) {
	request, err := h.help.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}

// ValidateHelpRequest handles POST /api/help-requests/:id/validate
func (h *Handler) ValidateHelpRequest(c *gin.Context) {
	request, err := h.help.ValidateOpen(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}

// RejectHelpRequest handles POST /api/help-requests/:id/reject
func (h *Handler) RejectHelpRequest(c *gin.Context) {
	request, err := h.help.Reject(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}

// Volunteer handles POST /api/help-requests/:id/volunteer
func (h *Handler) Volunteer(c *gin.Context) {
	if err := h.help.Volunteer(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Volunteer application registered, awaiting administrator approval",
	})
}

// AcceptVolunteer handles POST /api/help-requests/:id/accept-volunteer
func (h *Handler) AcceptVolunteer(c *gin.Context) {
	request, err := h.help.AcceptVolunteer(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}

// RejectVolunteer handles POST /api/help-requests/:id/reject-volunteer
func (h *Handler) RejectVolunteer(c *gin.Context) {
	if err := h.help.RejectVolunteer(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Volunteer rejected",
	})
}

// CompleteHelpRequest handles POST /api/help-requests/:id/complete
func (h *Handler) CompleteHelpRequest(c *gin.Context) {
	request, err := h.help.Complete(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}

// ValidateCompletion handles POST /api/help-requests/:id/validate-completion
func (h *Handler) ValidateCompletion(c *gin.Context) {
	request, err := h.help.ValidateCompletion(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HelpRequestResponse{Status: "success", Request: request})
}
