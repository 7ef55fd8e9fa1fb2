package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/service"
	"github.com/communicare/server/internal/utils"
)

// Handler wires the platform services to HTTP routes.
type Handler struct {
	auth          *service.AuthService
	items         *service.ItemService
	loans         *service.LoanService
	help          *service.HelpService
	notifications *service.NotificationService
	jwtSecret     []byte
	logger        *utils.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	auth *service.AuthService,
	items *service.ItemService,
	loans *service.LoanService,
	help *service.HelpService,
	notifications *service.NotificationService,
	jwtSecret []byte,
) *Handler {
	return &Handler{
		auth:          auth,
		items:         items,
		loans:         loans,
		help:          help,
		notifications: notifications,
		jwtSecret:     jwtSecret,
		logger:        utils.NewLogger(),
	}
}

// SetupRoutes registers all API routes on the router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/login", h.Login)
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(AuthMiddleware(h.jwtSecret))
	{
		apiGroup.GET("/items", h.ListItems)
		apiGroup.GET("/items/available", h.ListAvailableItems)
		apiGroup.GET("/items/:id", h.GetItem)
		apiGroup.POST("/items", h.SubmitItem)
		apiGroup.POST("/items/:id/validate", h.ValidateItem)
		apiGroup.DELETE("/items/:id/reject", h.RejectItem)
		apiGroup.DELETE("/items/:id", h.RetireItem)
		apiGroup.PUT("/items/:id/description", h.UpdateItemDescription)
		apiGroup.POST("/items/:id/acquire", h.AcquireItem)

		apiGroup.GET("/loans/:id", h.GetLoan)
		apiGroup.POST("/loans/:id/validate", h.ValidateLoan)
		apiGroup.POST("/loans/:id/reject", h.RejectLoan)
		apiGroup.POST("/loans/:id/return", h.ReturnLoan)
		apiGroup.POST("/loans/:id/validate-return", h.ValidateReturn)

		apiGroup.POST("/help-requests", h.CreateHelpRequest)
		apiGroup.GET("/help-requests/:id", h.GetHelpRequest)
		apiGroup.POST("/help-requests/:id/validate", h.ValidateHelpRequest)
		apiGroup.POST("/help-requests/:id/reject", h.RejectHelpRequest)
		apiGroup.POST("/help-requests/:id/volunteer", h.Volunteer)
		apiGroup.POST("/help-requests/:id/accept-volunteer", h.AcceptVolunteer)
		apiGroup.POST("/help-requests/:id/reject-volunteer", h.RejectVolunteer)
		apiGroup.POST("/help-requests/:id/complete", h.CompleteHelpRequest)
		apiGroup.POST("/help-requests/:id/validate-completion", h.ValidateCompletion)

		apiGroup.GET("/notifications", h.ListNotifications)
		apiGroup.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// currentUser returns the authenticated user id set by AuthMiddleware.
func currentUser(c *gin.Context) string {
	return c.GetString("userId")
}

// writeError maps a service failure to a stable HTTP error response.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, service.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"
	case errors.Is(err, service.ErrDuplicate):
		status, code = http.StatusConflict, "DUPLICATE"
	case errors.Is(err, service.ErrAlreadyValidated):
		status, code = http.StatusConflict, "ALREADY_VALIDATED"
	case errors.Is(err, service.ErrAlreadyDecided):
		status, code = http.StatusConflict, "ALREADY_DECIDED"
	case errors.Is(err, service.ErrAlreadyClosed):
		status, code = http.StatusConflict, "ALREADY_CLOSED"
	case errors.Is(err, service.ErrNotOpen):
		status, code = http.StatusConflict, "NOT_OPEN"
	case errors.Is(err, service.ErrNotInProgress):
		status, code = http.StatusConflict, "NOT_IN_PROGRESS"
	case errors.Is(err, service.ErrNotCompleted):
		status, code = http.StatusConflict, "NOT_COMPLETED"
	case errors.Is(err, service.ErrNoVolunteer):
		status, code = http.StatusConflict, "NO_VOLUNTEER"
	case errors.Is(err, service.ErrIncompleteRelations):
		status, code = http.StatusConflict, "INCOMPLETE_RELATIONS"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal error"
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
