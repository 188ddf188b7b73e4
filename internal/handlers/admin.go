package handlers

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"cabinex-be/internal/config"
	"cabinex-be/internal/database"
	"cabinex-be/internal/models"
	"cabinex-be/internal/service"
	"cabinex-be/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	chart "github.com/wcharczuk/go-chart/v2"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	db           database.Database
	leads        *services.LeadService
	emailService *service.MultiProviderEmailService
}

func NewAdminHandler(db database.Database, leads *services.LeadService, emailService *service.MultiProviderEmailService) *AdminHandler {
	return &AdminHandler{db: db, leads: leads, emailService: emailService}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	rows, err := h.db.Query(`
		SELECT id, email, name, whatsapp_number, role, created_at, updated_at
		FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.WhatsappNumber, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		users = append(users, user.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// InviteUser provisions a team member with a throwaway password and emails
// a setup link so they choose their own. Admin only.
func (h *AdminHandler) InviteUser(c *gin.Context) {
	var req models.UserInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingID uuid.UUID
	err := h.db.QueryRow("SELECT id FROM users WHERE email = $1", req.Email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	}

	// The temporary password is never shown to anyone; the invitee sets
	// a real one through the reset link.
	tempPassword := make([]byte, 24)
	if _, err := rand.Read(tempPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate credentials"})
		return
	}

	cfg := config.GetConfig()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(tempPassword)), cfg.Security.BCryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	userID := uuid.New()
	_, err = h.db.Exec(`
		INSERT INTO users (id, email, password_hash, name, whatsapp_number, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, userID, req.Email, string(hashedPassword), req.Name, req.WhatsappNumber, req.Role, time.Now(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := generateResetToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create setup token"})
		return
	}
	expiresAt := time.Now().Add(time.Duration(cfg.Security.ResetTokenMinutes) * time.Minute)
	_, err = h.db.Exec(`
		INSERT INTO password_resets (id, user_id, email, token, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), userID, req.Email, token, models.ResetPurposeInvite, expiresAt, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create setup token"})
		return
	}

	setupURL := fmt.Sprintf("%s?token=%s", cfg.Server.ResetURL, token)
	go func() {
		data := service.InviteEmailData{
			Email:    req.Email,
			Name:     req.Name,
			Role:     req.Role,
			SetupURL: setupURL,
		}
		if err := h.emailService.SendInviteEmail(c.Copy(), data); err != nil {
			fmt.Printf("Failed to send invite email to %s: %v\n", req.Email, err)
		}
	}()

	c.JSON(http.StatusCreated, gin.H{
		"message": "User invited successfully. A setup email has been sent.",
		"user": models.UserResponse{
			ID:             userID,
			Email:          req.Email,
			Name:           req.Name,
			WhatsappNumber: req.WhatsappNumber,
			Role:           req.Role,
			CreatedAt:      time.Now(),
		},
	})
}

// UpdateUserRole changes a member's role. An admin cannot demote
// themselves; someone else has to.
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req models.UserRoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if callerID, exists := c.Get("user_id"); exists {
		if fmt.Sprintf("%v", callerID) == req.UserID.String() && req.Role != models.RoleAdmin {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot remove your own admin role"})
			return
		}
	}

	result, err := h.db.Exec("UPDATE users SET role = $1, updated_at = $2 WHERE id = $3",
		req.Role, time.Now(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
}

// StatusChart renders the lead pipeline as a PNG bar chart, one bar per
// status in pipeline order.
func (h *AdminHandler) StatusChart(c *gin.Context) {
	counts := make(map[string]int)
	for _, lead := range h.leads.Leads() {
		counts[lead.Status]++
	}

	bars := make([]chart.Value, 0, len(models.LeadStatuses))
	maxVal := 0
	for _, status := range models.LeadStatuses {
		v := counts[status]
		if v > maxVal {
			maxVal = v
		}
		bars = append(bars, chart.Value{Value: float64(v), Label: status})
	}
	// Keep the Y range valid when every bucket is empty.
	yMax := float64(maxVal)
	if yMax <= 0 {
		yMax = 1
	}

	graph := chart.BarChart{
		Title:    "Lead Pipeline",
		Width:    1100,
		Height:   600,
		BarWidth: 56,
		Background: chart.Style{Padding: chart.Box{
			Top:    50,
			Left:   16,
			Right:  16,
			Bottom: 0,
		}},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Bars:  bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render chart"})
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
