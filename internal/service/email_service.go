package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mailersend/mailersend-go"
)

// EmailService is the MailerSend-backed provider, used as fallback behind
// Resend.
type EmailService struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewEmailService(apiKey, fromEmail, fromName string) *EmailService {
	client := mailersend.NewMailersend(apiKey)

	from := mailersend.From{
		Name:  fromName,
		Email: fromEmail,
	}

	return &EmailService{
		client: client,
		from:   from,
	}
}

func (es *EmailService) send(ctx context.Context, to, toName, subject, html, text string) error {
	message := es.client.Email.NewMessage()
	message.SetFrom(es.from)
	message.SetRecipients([]mailersend.Recipient{{Name: toName, Email: to}})
	message.SetSubject(subject)
	message.SetHTML(html)
	message.SetText(text)

	res, err := es.client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailersend send failed: %w", err)
	}

	log.Printf("EmailService: Email sent to %s. Message ID: %s", to, res.Header.Get("X-Message-Id"))
	return nil
}

func (es *EmailService) SendResetEmail(ctx context.Context, data ResetEmailData) error {
	subject := "Cabinex Password Reset"

	html := fmt.Sprintf(`
	<p>Hello <strong>%s</strong>,</p>
	<p>We received a request to reset your Cabinex password.</p>
	<p><a href="%s">Reset Password</a></p>
	<p>The link is valid for %d minutes. If you did not request this, ignore this email.</p>
	`, data.Name, data.ResetURL, data.ExpiresIn)

	text := fmt.Sprintf(`Hello %s,

We received a request to reset your Cabinex password.

Reset link: %s

The link is valid for %d minutes. If you did not request this, ignore this email.
`, data.Name, data.ResetURL, data.ExpiresIn)

	return es.send(ctx, data.Email, data.Name, subject, html, text)
}

func (es *EmailService) SendInviteEmail(ctx context.Context, data InviteEmailData) error {
	subject := "You've been added to Cabinex"

	html := fmt.Sprintf(`
	<p>Hello <strong>%s</strong>,</p>
	<p>An administrator created a Cabinex account for you with the role: <strong>%s</strong>.</p>
	<p><a href="%s">Set Password</a></p>
	`, data.Name, data.Role, data.SetupURL)

	text := fmt.Sprintf(`Hello %s,

An administrator created a Cabinex account for you with the role: %s.

Set your password here: %s
`, data.Name, data.Role, data.SetupURL)

	return es.send(ctx, data.Email, data.Name, subject, html, text)
}
