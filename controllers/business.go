package controllers

import (
	"net/http"

	"duebook-backend/config"
	"duebook-backend/models"
	"duebook-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateBusinessInput struct {
	BusinessName         *string `json:"businessName"`
	Address              *string `json:"address"`
	Currency             *string `json:"currency"`
	AutoRemindersEnabled *bool   `json:"autoRemindersEnabled"`
	ReminderTime         *string `json:"reminderTime"`
}

func GetBusiness(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	var business models.Business
	if err := config.DB.First(&business, "user_id = ?", ownerID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Business not found")
		return
	}

	c.JSON(http.StatusOK, business)
}

func UpdateBusiness(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	var input UpdateBusinessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var business models.Business
	if err := config.DB.First(&business, "user_id = ?", ownerID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Business not found")
		return
	}

	if input.BusinessName != nil {
		business.BusinessName = *input.BusinessName
	}
	if input.Address != nil {
		business.Address = *input.Address
	}
	if input.Currency != nil {
		business.Currency = *input.Currency
	}
	if input.AutoRemindersEnabled != nil {
		business.AutoRemindersEnabled = *input.AutoRemindersEnabled
	}
	if input.ReminderTime != nil {
		if !utils.ValidateReminderTime(*input.ReminderTime) {
			utils.RespondWithError(c, http.StatusBadRequest, "Reminder time must be HH:mm")
			return
		}
		business.ReminderTime = *input.ReminderTime
	}

	if err := config.DB.Save(&business).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update business")
		return
	}

	c.JSON(http.StatusOK, business)
}
