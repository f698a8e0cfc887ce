package controllers

import (
	"errors"
	"net/http"
	"time"

	"duebook-backend/config"
	"duebook-backend/models"
	"duebook-backend/services"
	"duebook-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateCustomerInput defines the expected JSON structure for creating a customer
type CreateCustomerInput struct {
	Name            string              `json:"name" binding:"required"`
	Phone           string              `json:"phone" binding:"required"`
	Notes           string              `json:"notes"`
	BillingCycle    models.BillingCycle `json:"billingCycle" binding:"omitempty,oneof=MONTHLY WEEKLY FIXED"`
	BillingDuration int                 `json:"billingDuration"`
	MonthlyFee      float64             `json:"monthlyFee"`
	AmountDue       float64             `json:"amountDue"`
	StartDate       *time.Time          `json:"startDate"`
	ExpiryDate      *time.Time          `json:"expiryDate"`
}

// UpdateCustomerInput defines the expected JSON structure for updating a customer
type UpdateCustomerInput struct {
	Name       *string    `json:"name"`
	Phone      *string    `json:"phone"`
	Notes      *string    `json:"notes"`
	MonthlyFee *float64   `json:"monthlyFee"`
	ExpiryDate *time.Time `json:"expiryDate"`
	IsActive   *bool      `json:"isActive"`
}

// CustomerController exposes customer CRUD plus the read path that keeps due
// amounts fresh via the on-demand sweep.
type CustomerController struct {
	Reminders *services.ReminderService
}

func ownerUUID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return ownerID, true
}

// CreateCustomer creates a new customer for the owner's business
func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}
	if input.MonthlyFee < 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Monthly fee cannot be negative")
		return
	}

	// Check if phone already exists for this owner
	var existingCustomer models.Customer
	if err := config.DB.Where("user_id = ? AND phone = ?", ownerID, input.Phone).
		First(&existingCustomer).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Customer with this phone number already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	cycle := input.BillingCycle
	if cycle == "" {
		cycle = models.CycleMonthly
	}
	duration := input.BillingDuration
	if duration < 1 {
		duration = 1
	}
	startDate := time.Now()
	if input.StartDate != nil {
		startDate = *input.StartDate
	}

	customer := models.Customer{
		ID:              uuid.New(),
		UserID:          ownerID,
		Name:            input.Name,
		Phone:           input.Phone,
		Notes:           input.Notes,
		AmountDue:       input.AmountDue,
		BillingCycle:    cycle,
		BillingDuration: duration,
		MonthlyFee:      input.MonthlyFee,
		StartDate:       startDate,
		ExpiryDate:      input.ExpiryDate,
		IsActive:        true,
	}
	// First due date is computed once from the start date; FIXED plans get none.
	customer.NextDueDate = services.NextDueDate(cycle, duration, startDate)

	if err := config.DB.Create(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomers retrieves all customers for the owner. Reading the list also
// runs the on-demand due sweep (best-effort) so balances are current.
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	cc.Reminders.RunOnDemandSweep(c.Request.Context(), ownerID)

	var customers []models.Customer
	if err := config.DB.Where("user_id = ?", ownerID).Order("name").Find(&customers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a specific customer by ID
func (cc *CustomerController) GetCustomer(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var customer models.Customer
	if err := config.DB.Where("user_id = ? AND id = ?", ownerID, customerUUID).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer updates an existing customer. Billing cycle fields are
// deliberately not editable here; the cycle engine owns the due date.
func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var customer models.Customer
	if err := config.DB.Where("user_id = ? AND id = ?", ownerID, customerUUID).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		customer.Name = *input.Name
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		if customer.Phone != *input.Phone {
			var existingCustomer models.Customer
			if err := config.DB.Where("user_id = ? AND phone = ?", ownerID, *input.Phone).
				First(&existingCustomer).Error; err == nil {
				utils.RespondWithError(c, http.StatusConflict, "Another customer with this phone number already exists")
				return
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				return
			}
		}
		customer.Phone = *input.Phone
	}
	if input.Notes != nil {
		customer.Notes = *input.Notes
	}
	if input.MonthlyFee != nil {
		if *input.MonthlyFee < 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Monthly fee cannot be negative")
			return
		}
		customer.MonthlyFee = *input.MonthlyFee
	}
	if input.ExpiryDate != nil {
		customer.ExpiryDate = input.ExpiryDate
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer soft deletes a customer
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	ownerID, ok := ownerUUID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	result := config.DB.Where("user_id = ? AND id = ?", ownerID, customerUUID).
		Delete(&models.Customer{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete customer")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
