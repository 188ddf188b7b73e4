package routes

import (
	"database/sql"
	"net/http"
	"time"

	"cabinex-be/internal/config"
	"cabinex-be/internal/handlers"
	"cabinex-be/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authHandler *handlers.AuthHandler, leadHandler *handlers.LeadHandler, chatHandler *handlers.ChatHandler, routeHandler *handlers.RouteHandler, adminHandler *handlers.AdminHandler, db *sql.DB) {
	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "cabinex-be",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Uploaded site photos, sketches and renders
	cfg := config.GetConfig()
	r.Static(cfg.Storage.PublicPath, cfg.Storage.UploadDir)

	// API v1
	v1 := r.Group("/api/v1")

	// Auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/profile", middleware.AuthRequired(), authHandler.GetProfile)
		auth.PUT("/change-password", middleware.AuthRequired(), authHandler.ChangePassword)
		auth.POST("/forgot-password", middleware.ResetRateLimit(db), authHandler.ForgotPassword)
		auth.POST("/verify-reset-token", authHandler.VerifyResetCode)
		auth.PUT("/reset-password", authHandler.ResetPassword)
	}

	// Geocoding for the manual lead form
	v1.POST("/geocode", middleware.AuthRequired(), leadHandler.Geocode)

	// Lead routes
	leads := v1.Group("/leads")
	leads.Use(middleware.AuthRequired())
	{
		leads.POST("", leadHandler.CreateLead)
		leads.GET("", leadHandler.ListLeads)
		leads.GET("/watch", leadHandler.WatchLeads)
		leads.GET("/:id", leadHandler.GetLead)
		leads.PATCH("/:id", leadHandler.UpdateLead)
		leads.POST("/:id/notes", leadHandler.AddNote)
		leads.PUT("/:id/status", leadHandler.UpdateStatus)
		leads.POST("/:id/invoice", leadHandler.AttachInvoice)
		leads.PUT("/:id/invoice/paid", leadHandler.MarkInvoicePaid)
		leads.PUT("/:id/visit-date", leadHandler.SetVisitDate)
		leads.POST("/:id/images", leadHandler.UploadImage)
		leads.POST("/:id/designs", leadHandler.GenerateDesign)
		leads.POST("/:id/whatsapp-draft", leadHandler.DraftWhatsApp)
	}

	// Shop-manager chat sessions
	chat := v1.Group("/chat")
	chat.Use(middleware.AuthRequired())
	{
		chat.POST("/sessions", chatHandler.CreateSession)
		chat.GET("/sessions/:id", chatHandler.GetSession)
		chat.POST("/sessions/:id/messages", chatHandler.SendMessage)
		chat.POST("/sessions/:id/tool-calls/:callId/confirm", chatHandler.ConfirmTool)
		chat.POST("/sessions/:id/tool-calls/:callId/cancel", chatHandler.CancelTool)
	}

	// Route planning over visit-ready leads
	v1.POST("/route-plan", middleware.AuthRequired(), routeHandler.PlanRoutes)

	// Admin routes (role checked against the users table)
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users", adminHandler.InviteUser)
		admin.PUT("/users/role", adminHandler.UpdateUserRole)
		admin.GET("/reports/pipeline.png", adminHandler.StatusChart)
	}
}
