package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"cabinex-be/internal/config"
	"cabinex-be/internal/database"
	"cabinex-be/internal/models"
	"cabinex-be/internal/service"
	"cabinex-be/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	db           database.Database
	emailService *service.MultiProviderEmailService
}

func NewAuthHandler(db database.Database, emailService *service.MultiProviderEmailService) *AuthHandler {
	return &AuthHandler{db: db, emailService: emailService}
}

// NewEmailProviders builds the provider chain from config. Resend first,
// MailerSend as fallback.
func NewEmailProviders() *service.MultiProviderEmailService {
	cfg := config.GetConfig()
	var providers []service.EmailProvider

	if cfg.Email.ResendAPIKey != "" {
		providers = append(providers, service.NewResendService(cfg.Email.ResendAPIKey, cfg.Email.FromEmail))
		fmt.Printf("Email: Resend provider added\n")
	}
	if cfg.Email.MailersendAPIKey != "" {
		providers = append(providers, service.NewEmailService(cfg.Email.MailersendAPIKey, cfg.Email.FromEmail, cfg.Email.FromName))
		fmt.Printf("Email: MailerSend provider added\n")
	}

	fmt.Printf("Email: service initialized with %d providers\n", len(providers))
	return service.NewMultiProviderEmailService(providers)
}

// generateResetToken generates a URL-safe random token for reset links.
func generateResetToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.db.QueryRow(`
		SELECT id, email, password_hash, name, whatsapp_number, role, created_at, updated_at
		FROM users WHERE email = $1
	`, req.Email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.WhatsappNumber, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user.ToResponse(),
		"token":   token,
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	err := h.db.QueryRow(`
		SELECT id, email, name, whatsapp_number, role, created_at, updated_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.WhatsappNumber, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse()})
}

// ForgotPassword creates a reset token and emails a link to the SPA
// reset page. Always responds 200 so the endpoint cannot be used to
// probe which emails exist.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sent := gin.H{"message": "If that email is registered, a reset link has been sent."}

	var userID uuid.UUID
	var name string
	err := h.db.QueryRow("SELECT id, name FROM users WHERE email = $1", req.Email).Scan(&userID, &name)
	if err != nil {
		c.JSON(http.StatusOK, sent)
		return
	}

	url, expiresIn, err := h.createReset(userID, req.Email, models.ResetPurposeForgot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reset token"})
		return
	}

	go func() {
		data := service.ResetEmailData{
			Email:     req.Email,
			Name:      name,
			ResetURL:  url,
			ExpiresIn: expiresIn,
		}
		if err := h.emailService.SendResetEmail(c.Copy(), data); err != nil {
			fmt.Printf("Failed to send reset email to %s: %v\n", req.Email, err)
		}
	}()

	c.JSON(http.StatusOK, sent)
}

// createReset inserts a password_resets row and returns the full reset
// URL and the expiry window in minutes.
func (h *AuthHandler) createReset(userID uuid.UUID, email, purpose string) (string, int, error) {
	cfg := config.GetConfig()

	token, err := generateResetToken()
	if err != nil {
		return "", 0, err
	}

	expiresAt := time.Now().Add(time.Duration(cfg.Security.ResetTokenMinutes) * time.Minute)
	_, err = h.db.Exec(`
		INSERT INTO password_resets (id, user_id, email, token, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), userID, email, token, purpose, expiresAt, time.Now())
	if err != nil {
		return "", 0, err
	}

	url := fmt.Sprintf("%s?token=%s", cfg.Server.ResetURL, token)
	return url, cfg.Security.ResetTokenMinutes, nil
}

// VerifyResetCode checks a token without consuming it, so the SPA can
// show the reset form only for valid links.
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req models.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var reset models.PasswordReset
	err := h.db.QueryRow(`
		SELECT id, user_id, email, purpose, expires_at, is_used
		FROM password_resets WHERE token = $1
	`, req.Token).Scan(&reset.ID, &reset.UserID, &reset.Email, &reset.Purpose, &reset.ExpiresAt, &reset.IsUsed)

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid reset token"})
		return
	}
	if reset.IsUsed {
		c.JSON(http.StatusConflict, gin.H{"error": "Reset token already used"})
		return
	}
	if time.Now().After(reset.ExpiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "Reset token expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token is valid",
		"email":   reset.Email,
		"purpose": reset.Purpose,
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var reset models.PasswordReset
	err := h.db.QueryRow(`
		SELECT id, user_id, email, expires_at, is_used
		FROM password_resets WHERE token = $1
	`, req.Token).Scan(&reset.ID, &reset.UserID, &reset.Email, &reset.ExpiresAt, &reset.IsUsed)

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid reset token"})
		return
	}
	if reset.IsUsed {
		c.JSON(http.StatusConflict, gin.H{"error": "Reset token already used"})
		return
	}
	if time.Now().After(reset.ExpiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "Reset token expired"})
		return
	}

	cfg := config.GetConfig()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), cfg.Security.BCryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec("UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		string(hashedPassword), time.Now(), reset.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}
	_, err = tx.Exec("UPDATE password_resets SET is_used = TRUE WHERE id = $1", reset.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to consume token"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var currentHash string
	err := h.db.QueryRow("SELECT password_hash FROM users WHERE id = $1", userID).Scan(&currentHash)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	cfg := config.GetConfig()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), cfg.Security.BCryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	_, err = h.db.Exec("UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		string(hashedPassword), time.Now(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
