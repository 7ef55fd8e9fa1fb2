package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/models"
)

// AcquireItem handles POST /api/items/:id/acquire
func (h *Handler) AcquireItem(c *gin.Context) {
	loan, err := h.loans.Acquire(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.LoanResponse{Status: "success", Loan: loan})
}

// GetLoan handles GET /api/loans/:id
func (h *Handler) GetLoan(c *gin.Context) {
	loan, err := h.loans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoanResponse{Status: "success", Loan: loan})
}

// ValidateLoan handles POST /api/loans/:id/validate
func (h *Handler) ValidateLoan(c *gin.Context) {
	loan, err := h.loans.ValidateStart(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoanResponse{Status: "success", Loan: loan})
}

// RejectLoan handles POST /api/loans/:id/reject
func (h *Handler) RejectLoan(c *gin.Context) {
	if err := h.loans.Reject(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Loan rejected and removed",
	})
}

// ReturnLoan handles POST /api/loans/:id/return
func (h *Handler) ReturnLoan(c *gin.Context) {
	loan, err := h.loans.RequestReturn(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoanResponse{Status: "success", Loan: loan})
}

// ValidateReturn handles POST /api/loans/:id/validate-return
func (h *Handler) ValidateReturn(c *gin.Context) {
	settlement, err := h.loans.ValidateReturn(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SettlementResponse{
		Status: "success",
		Loan:   settlement.Loan,
		Hours:  settlement.Hours,
		Amount: settlement.Amount,
	})
}
