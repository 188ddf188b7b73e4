package service

import (
	"context"
	"fmt"
	"log"
)

// EmailProvider interface for different email services
type EmailProvider interface {
	SendResetEmail(ctx context.Context, data ResetEmailData) error
	SendInviteEmail(ctx context.Context, data InviteEmailData) error
}

// ResetEmailData carries a password-reset link.
type ResetEmailData struct {
	Email     string
	Name      string
	ResetURL  string
	ExpiresIn int // in minutes
}

// InviteEmailData carries an account-setup link for a new team member.
type InviteEmailData struct {
	Email    string
	Name     string
	Role     string
	SetupURL string
}

// MultiProviderEmailService handles multiple email providers with fallback
type MultiProviderEmailService struct {
	providers []EmailProvider
	primary   EmailProvider
}

// NewMultiProviderEmailService creates a new multi-provider email service
func NewMultiProviderEmailService(providers []EmailProvider) *MultiProviderEmailService {
	if len(providers) == 0 {
		return &MultiProviderEmailService{}
	}

	return &MultiProviderEmailService{
		providers: providers,
		primary:   providers[0], // First provider is primary
	}
}

// SendResetEmail tries to send the reset email using available providers
func (m *MultiProviderEmailService) SendResetEmail(ctx context.Context, data ResetEmailData) error {
	if len(m.providers) == 0 {
		log.Printf("MultiProviderEmailService: No email providers configured")
		return fmt.Errorf("no email providers configured")
	}

	var lastErr error
	for i, provider := range m.providers {
		err := provider.SendResetEmail(ctx, data)
		if err == nil {
			log.Printf("MultiProviderEmailService: Reset email sent successfully via provider %d", i+1)
			return nil
		}

		log.Printf("MultiProviderEmailService: Provider %d failed: %v", i+1, err)
		lastErr = err
	}

	return fmt.Errorf("all email providers failed. Last error: %w", lastErr)
}

// SendInviteEmail tries to send the invite email using available providers
func (m *MultiProviderEmailService) SendInviteEmail(ctx context.Context, data InviteEmailData) error {
	if len(m.providers) == 0 {
		return fmt.Errorf("no email providers configured")
	}

	var lastErr error
	for i, provider := range m.providers {
		err := provider.SendInviteEmail(ctx, data)
		if err == nil {
			log.Printf("MultiProviderEmailService: Invite email sent successfully via provider %d", i+1)
			return nil
		}

		log.Printf("MultiProviderEmailService: Provider %d failed: %v", i+1, err)
		lastErr = err
	}

	return fmt.Errorf("all email providers failed. Last error: %w", lastErr)
}

// GetProviderCount returns the number of configured providers
func (m *MultiProviderEmailService) GetProviderCount() int {
	return len(m.providers)
}
