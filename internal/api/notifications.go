package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/models"
)

// ListNotifications handles GET /api/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	ns, err := h.notifications.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NotificationListResponse{Status: "success", Notifications: ns})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Notification marked as read",
	})
}
