// controllers/reminder.go
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

type ManualReminderInput struct {
	Amount float64 `json:"amount"`
}

type ReminderController struct {
	Service *services.ReminderService
}

// GetReminders lists the owner's reminder history, newest first. Terminal
// FAILED reminders are how delivery failures become visible.
func (rc *ReminderController) GetReminders(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	query := config.DB.Where("user_id = ?", ownerID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var reminders []models.Reminder
	if err := query.Order("scheduled_at DESC").Limit(200).Find(&reminders).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminders")
		return
	}

	c.JSON(http.StatusOK, reminders)
}

// GetCustomerReminders lists one customer's reminder history.
func (rc *ReminderController) GetCustomerReminders(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var reminders []models.Reminder
	if err := config.DB.Where("user_id = ? AND customer_id = ?", ownerID, customerUUID).
		Order("scheduled_at DESC").Find(&reminders).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminders")
		return
	}

	c.JSON(http.StatusOK, reminders)
}

// RecordManualReminder logs a reminder the operator sent themselves. No
// delivery happens; the row is written as SENT directly.
func (rc *ReminderController) RecordManualReminder(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input ManualReminderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	reminder, err := rc.Service.RecordManualReminder(c.Request.Context(), ownerID, customerUUID, input.Amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		case errors.Is(err, store.ErrAlreadyRemindedToday):
			utils.RespondWithError(c, http.StatusConflict, "Customer already has a reminder today")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to record reminder")
		}
		return
	}

	c.JSON(http.StatusCreated, reminder)
}
