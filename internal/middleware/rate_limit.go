package middleware

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	resetRateLimitMax    = 3
	resetRateLimitWindow = time.Hour
)

// ResetRateLimit caps password-reset issuance per email. Uses
// ShouldBindBodyWith so the handler can bind the same body again.
func ResetRateLimit(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestBody struct {
			Email string `json:"email"`
		}

		if err := c.ShouldBindBodyWith(&requestBody, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			c.Abort()
			return
		}

		email := requestBody.Email
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
			c.Abort()
			return
		}

		var count int
		err := db.QueryRow(`
			SELECT COUNT(*) FROM password_resets
			WHERE email = $1 AND created_at > $2
		`, email, time.Now().Add(-resetRateLimitWindow)).Scan(&count)

		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			c.Abort()
			return
		}

		if count >= resetRateLimitMax {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Too many reset requests. Try again in %d minutes.", int(resetRateLimitWindow.Minutes())),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
