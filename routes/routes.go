package routes

import (
	"os"
	"strings"

	"duebook-backend/config"
	"duebook-backend/controllers"
	"duebook-backend/services"
	"duebook-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(reminders *services.ReminderService, billing *services.BillingService) *gin.Engine {
	r := gin.Default()

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	customerCtl := controllers.CustomerController{Reminders: reminders}
	reminderCtl := controllers.ReminderController{Service: reminders}
	transactionCtl := controllers.TransactionController{Billing: billing}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Customer routes
		customers := api.Group("/customers")
		{
			customers.POST("", customerCtl.CreateCustomer)
			customers.GET("", customerCtl.GetCustomers)
			customers.GET("/:id", customerCtl.GetCustomer)
			customers.PUT("/:id", customerCtl.UpdateCustomer)
			customers.DELETE("/:id", customerCtl.DeleteCustomer)

			customers.POST("/:id/payments", transactionCtl.RecordPayment)
			customers.GET("/:id/transactions", transactionCtl.GetCustomerTransactions)
			customers.GET("/:id/reminders", reminderCtl.GetCustomerReminders)
			customers.POST("/:id/reminders/manual", reminderCtl.RecordManualReminder)
		}

		// Ledger routes
		api.GET("/transactions", transactionCtl.GetTransactions)

		// Reminder history
		api.GET("/reminders", reminderCtl.GetReminders)

		// Business settings (auto-reminder toggle, reminder hour)
		business := api.Group("/business")
		{
			business.GET("", controllers.GetBusiness)
			business.PUT("", controllers.UpdateBusiness)
		}
	}

	return r
}
