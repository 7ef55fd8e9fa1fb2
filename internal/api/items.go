package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/models"
)

// SubmitItem handles POST /api/items
func (h *Handler) SubmitItem(c *gin.Context) {
	var req models.SubmitItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_INPUT",
			Message: err.Error(),
		})
		return
	}

	item, err := h.items.Submit(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ItemResponse{Status: "success", Item: item})
}

// ValidateItem handles POST /api/items/:id/validate
func (h *Handler) ValidateItem(c *gin.Context) {
	item, err := h.items.Validate(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ItemResponse{Status: "success", Item: item})
}

// RejectItem handles DELETE /api/items/:id/reject
func (h *Handler) RejectItem(c *gin.Context) {
	if err := h.items.Reject(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Item rejected and removed",
	})
}

// RetireItem handles DELETE /api/items/:id
func (h *Handler) RetireItem(c *gin.Context) {
	if err := h.items.Retire(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Item retired",
	})
}

// UpdateItemDescription handles PUT /api/items/:id/description
func (h *Handler) UpdateItemDescription(c *gin.Context) {
	var req models.UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_INPUT",
			Message: err.Error(),
		})
		return
	}

	if err := h.items.UpdateDescription(c.Request.Context(), c.Param("id"), currentUser(c), req.Description); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Description updated",
	})
}

// GetItem handles GET /api/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ItemResponse{Status: "success", Item: item})
}

// ListItems handles GET /api/items
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.items.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ItemListResponse{Status: "success", Items: items})
}

// ListAvailableItems handles GET /api/items/available
func (h *Handler) ListAvailableItems(c *gin.Context) {
	items, err := h.items.ListAvailable(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ItemListResponse{Status: "success", Items: items})
}
