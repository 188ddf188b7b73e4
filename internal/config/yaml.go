package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Seed     SeedConfig     `yaml:"seed"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	BaseURL     string   `yaml:"base_url"`
	CORSOrigins []string `yaml:"cors_origins"`
	ResetURL    string   `yaml:"reset_url"` // SPA reset-password page, token appended as query param
}

type EmailConfig struct {
	ResendAPIKey     string `yaml:"resend_api_key"`
	MailersendAPIKey string `yaml:"mailersend_api_key"`
	FromEmail        string `yaml:"from_email"`
	FromName         string `yaml:"from_name"`
}

type GeminiConfig struct {
	APIKey       string `yaml:"api_key"`
	ChatModel    string `yaml:"chat_model"`
	UtilityModel string `yaml:"utility_model"`
	ImageModel   string `yaml:"image_model"`
}

type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	PublicPath   string `yaml:"public_path"`
	ThumbnailPx  uint   `yaml:"thumbnail_px"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`
	PollInterval string `yaml:"poll_interval"` // lead snapshot refresh interval
}

type SecurityConfig struct {
	BCryptCost        int `yaml:"bcrypt_cost"`
	ResetTokenMinutes int `yaml:"reset_token_minutes"`
}

type SeedConfig struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

var AppConfig *Config

func LoadConfig() error {
	// Try to find config file in different locations
	configPaths := []string{
		"secret/app.yaml",
		"app.yaml",
		"config/app.yaml",
		"./app.yaml",
	}

	var configPath string
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			configPath = path
			break
		}
	}

	if configPath == "" {
		return fmt.Errorf("config file not found in any of the expected locations: %v", configPaths)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %v", configPath, err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %v", err)
	}

	setDefaults(config)

	AppConfig = config
	return nil
}

func setDefaults(config *Config) {
	// Database defaults
	if config.Database.Host == "" {
		config.Database.Host = "localhost"
	}
	if config.Database.Port == 0 {
		config.Database.Port = 5432
	}
	if config.Database.User == "" {
		config.Database.User = "cabinex_user"
	}
	if config.Database.Password == "" {
		config.Database.Password = "cabinex_password"
	}
	if config.Database.Name == "" {
		config.Database.Name = "cabinex_db"
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = "disable"
	}

	// JWT defaults
	if config.JWT.Secret == "" {
		config.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if config.JWT.Secret == "" {
		config.JWT.Secret = "cabinex-dev-jwt-secret-change-in-production"
	}
	if config.JWT.Expiry == "" {
		config.JWT.Expiry = "24h"
	}

	// Server defaults
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.BaseURL == "" {
		config.Server.BaseURL = fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	}
	if len(config.Server.CORSOrigins) == 0 {
		config.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if config.Server.ResetURL == "" {
		config.Server.ResetURL = "http://localhost:3000/#/reset-password"
	}

	// Email defaults
	if config.Email.ResendAPIKey == "" {
		config.Email.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	}
	if config.Email.MailersendAPIKey == "" {
		config.Email.MailersendAPIKey = os.Getenv("MAILERSEND_API_KEY")
	}
	if config.Email.FromEmail == "" {
		config.Email.FromEmail = "noreply@cabinex.lk"
	}
	if config.Email.FromName == "" {
		config.Email.FromName = "Cabinex"
	}

	// Gemini defaults
	if config.Gemini.APIKey == "" {
		config.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if config.Gemini.ChatModel == "" {
		config.Gemini.ChatModel = "gemini-3-pro-preview"
	}
	if config.Gemini.UtilityModel == "" {
		config.Gemini.UtilityModel = "gemini-3-flash-preview"
	}
	if config.Gemini.ImageModel == "" {
		config.Gemini.ImageModel = "gemini-2.5-flash-image"
	}

	// Storage defaults
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}
	if config.Storage.PublicPath == "" {
		config.Storage.PublicPath = "/uploads"
	}
	if config.Storage.ThumbnailPx == 0 {
		config.Storage.ThumbnailPx = 320
	}
	if config.Storage.MaxUploadMB == 0 {
		config.Storage.MaxUploadMB = 10
	}
	if config.Storage.PollInterval == "" {
		config.Storage.PollInterval = "30s"
	}

	// Security defaults
	if config.Security.BCryptCost == 0 {
		config.Security.BCryptCost = 12
	}
	if config.Security.ResetTokenMinutes == 0 {
		config.Security.ResetTokenMinutes = 30
	}

	// Seed defaults
	if config.Seed.AdminEmail == "" {
		config.Seed.AdminEmail = os.Getenv("ADMIN_EMAIL")
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		// Try to load config if not already loaded
		if err := LoadConfig(); err != nil {
			// If loading fails, create a default config
			config := &Config{}
			setDefaults(config)
			AppConfig = config
		}
	}
	return AppConfig
}

// GetEnv keeps the flat key accessors used by the database layer.
func GetEnv(key, defaultValue string) string {
	config := GetConfig()

	switch key {
	case "DB_HOST":
		return config.Database.Host
	case "DB_PORT":
		return fmt.Sprintf("%d", config.Database.Port)
	case "DB_USER":
		return config.Database.User
	case "DB_PASSWORD":
		return config.Database.Password
	case "DB_NAME":
		return config.Database.Name
	case "DB_SSLMODE":
		return config.Database.SSLMode
	case "JWT_SECRET":
		return config.JWT.Secret
	case "JWT_EXPIRY":
		return config.JWT.Expiry
	case "PORT":
		return fmt.Sprintf("%d", config.Server.Port)
	case "GEMINI_API_KEY":
		return config.Gemini.APIKey
	default:
		return defaultValue
	}
}
