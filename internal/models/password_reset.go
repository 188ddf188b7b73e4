package models

import (
	"time"

	"github.com/google/uuid"
)

// Reset purposes.
const (
	ResetPurposeForgot = "forgot_password"
	ResetPurposeInvite = "invite"
)

type PasswordReset struct {
	ID               string     `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	Email            string     `json:"email" db:"email"`
	Token            string     `json:"token" db:"token"`
	Purpose          string     `json:"purpose" db:"purpose"`
	ExpiresAt        time.Time  `json:"expires_at" db:"expires_at"`
	IsUsed           bool       `json:"is_used" db:"is_used"`
	RateLimitCount   int        `json:"rate_limit_count" db:"rate_limit_count"`
	RateLimitResetAt *time.Time `json:"rate_limit_reset_at" db:"rate_limit_reset_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
