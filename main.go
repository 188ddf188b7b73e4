package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"cabinex-be/internal/config"
	"cabinex-be/internal/database"
	"cabinex-be/internal/gemini"
	"cabinex-be/internal/handlers"
	"cabinex-be/internal/middleware"
	"cabinex-be/internal/routes"
	"cabinex-be/internal/services"
	"cabinex-be/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Environment overrides for API keys and secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on config and environment")
	}

	// Load YAML configuration
	if err := config.LoadConfig(); err != nil {
		log.Printf("Warning: Failed to load YAML config: %v", err)
		log.Println("Using default configuration...")
	}
	cfg := config.GetConfig()

	// Initialize database
	db, err := database.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Ensure the first admin account exists
	if err := seedAdmin(db); err != nil {
		log.Fatal("Failed to seed admin account:", err)
	}

	// Upload storage for site photos, sketches and renders
	store, err := storage.New(cfg.Storage.UploadDir, cfg.Storage.PublicPath, cfg.Server.BaseURL, cfg.Storage.ThumbnailPx)
	if err != nil {
		log.Fatal("Failed to initialize upload storage:", err)
	}

	// Gemini client for chat, geocoding, routing and renders
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ai, err := gemini.NewClient(ctx)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer ai.Close()

	// Lead snapshot store with background refresh
	leadService := services.NewLeadService(db)
	if err := leadService.Refresh(); err != nil {
		log.Fatal("Failed to load leads:", err)
	}
	pollInterval, err := time.ParseDuration(cfg.Storage.PollInterval)
	if err != nil {
		log.Printf("Invalid poll interval %q, using 30s", cfg.Storage.PollInterval)
		pollInterval = 30 * time.Second
	}
	leadService.StartPolling(ctx, pollInterval)

	agentService := services.NewAgentService(ai, leadService, store)

	// Initialize Gin router
	r := gin.New()
	r.Use(middleware.CustomLoggingMiddleware(), gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS())

	// Initialize handlers
	emailService := handlers.NewEmailProviders()
	authHandler := handlers.NewAuthHandler(db, emailService)
	leadHandler := handlers.NewLeadHandler(leadService, ai, store)
	chatHandler := handlers.NewChatHandler(agentService)
	routeHandler := handlers.NewRouteHandler(leadService, ai)
	adminHandler := handlers.NewAdminHandler(db, leadService, emailService)

	// Setup routes
	routes.SetupRoutes(r, authHandler, leadHandler, chatHandler, routeHandler, adminHandler, db)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	host := cfg.Server.Host

	log.Printf("Server starting on %s:%s", host, port)
	if err := r.Run(host + ":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// seedAdmin creates the bootstrap admin when the users table is empty.
// The password comes from config; without one a random password is set
// and the admin has to come in through the password reset flow.
func seedAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	cfg := config.GetConfig()
	email := cfg.Seed.AdminEmail
	if email == "" {
		email = "admin@cabinex.lk"
	}

	password := cfg.Seed.AdminPassword
	if password == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		password = hex.EncodeToString(buf)
		log.Printf("No seed admin password configured; %s must use the password reset flow", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, name, whatsapp_number, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), email, string(hash), "Admin", "", "admin", time.Now(), time.Now())
	if err != nil {
		return err
	}

	log.Printf("Seeded bootstrap admin account %s", email)
	return nil
}
