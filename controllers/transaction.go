// controllers/transaction.go
package controllers

import (
	"errors"
	"net/http"

	"duebook-backend/config"
	"duebook-backend/models"
	"duebook-backend/services"
	"duebook-backend/store"
	"duebook-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecordPaymentInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Notes  string  `json:"notes"`
}

type TransactionController struct {
	Billing *services.BillingService
}

// RecordPayment records a payment against a customer's balance.
func (tc *TransactionController) RecordPayment(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	payment, err := tc.Billing.RecordPayment(c.Request.Context(), ownerID, customerUUID, input.Amount, input.Notes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		case errors.Is(err, services.ErrInvalidAmount):
			utils.RespondWithError(c, http.StatusBadRequest, "Payment amount must be positive")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to record payment")
		}
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetTransactions lists the owner's ledger entries, newest first.
func (tc *TransactionController) GetTransactions(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	query := config.DB.Where("user_id = ?", ownerID)
	if txType := c.Query("type"); txType != "" {
		query = query.Where("type = ?", txType)
	}

	var transactions []models.Transaction
	if err := query.Order("date DESC").Limit(200).Find(&transactions).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GetCustomerTransactions lists one customer's ledger entries, newest first.
func (tc *TransactionController) GetCustomerTransactions(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var transactions []models.Transaction
	if err := config.DB.Where("user_id = ? AND customer_id = ?", ownerID, customerUUID).
		Order("date DESC").Find(&transactions).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	c.JSON(http.StatusOK, transactions)
}
