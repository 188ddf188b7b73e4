package service

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

type ResendService struct {
	client *resend.Client
	from   string
}

func NewResendService(apiKey, fromEmail string) *ResendService {
	client := resend.NewClient(apiKey)

	return &ResendService{
		client: client,
		from:   fromEmail,
	}
}

func (rs *ResendService) SendResetEmail(ctx context.Context, data ResetEmailData) error {
	subject := "Cabinex Password Reset"

	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="UTF-8">
		<title>Cabinex Password Reset</title>
		<style>
			body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f8f9fa; }
			.container { background-color: white; border-radius: 10px; padding: 30px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
			.logo { font-size: 28px; font-weight: bold; color: #4f46e5; text-align: center; margin-bottom: 20px; }
			.button { display: inline-block; background-color: #4f46e5; color: white; padding: 12px 28px; border-radius: 8px; text-decoration: none; font-weight: bold; }
			.warning { background-color: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px; margin: 20px 0; border-radius: 4px; }
			.footer { text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; color: #6b7280; font-size: 14px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="logo">CABINEX</div>
			<p>Hello <strong>%s</strong>,</p>
			<p>We received a request to reset your Cabinex password. Click the button below to choose a new one:</p>
			<p style="text-align:center"><a class="button" href="%s">Reset Password</a></p>
			<div class="warning">
				<strong>Important:</strong>
				<ul>
					<li>The link is valid for <strong>%d minutes</strong></li>
					<li>If you did not request this, ignore this email</li>
				</ul>
			</div>
			<div class="footer">
				<p>This email was sent automatically, please do not reply.</p>
			</div>
		</div>
	</body>
	</html>
	`, data.Name, data.ResetURL, data.ExpiresIn)

	text := fmt.Sprintf(`
Cabinex - Password Reset

Hello %s,

We received a request to reset your Cabinex password.

Reset link: %s

The link is valid for %d minutes. If you did not request this, ignore this email.

--
Cabinex Team
	`, data.Name, data.ResetURL, data.ExpiresIn)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", "Cabinex", rs.from),
		To:      []string{data.Email},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	res, err := rs.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("ResendService: Error sending reset email to %s: %v", data.Email, err)
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	log.Printf("ResendService: Reset email sent to %s. Message ID: %s", data.Email, res.Id)
	return nil
}

func (rs *ResendService) SendInviteEmail(ctx context.Context, data InviteEmailData) error {
	subject := "You've been added to Cabinex"

	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="UTF-8">
		<title>Welcome to Cabinex</title>
		<style>
			body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f8f9fa; }
			.container { background-color: white; border-radius: 10px; padding: 30px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
			.logo { font-size: 28px; font-weight: bold; color: #4f46e5; text-align: center; margin-bottom: 20px; }
			.button { display: inline-block; background-color: #4f46e5; color: white; padding: 12px 28px; border-radius: 8px; text-decoration: none; font-weight: bold; }
			.role { background-color: #f3f4f6; border-radius: 8px; padding: 10px 15px; display: inline-block; font-weight: bold; text-transform: capitalize; }
			.footer { text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; color: #6b7280; font-size: 14px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="logo">CABINEX</div>
			<p>Hello <strong>%s</strong>,</p>
			<p>An administrator created a Cabinex account for you with the role: <span class="role">%s</span></p>
			<p>Set your password to start using the lead manager:</p>
			<p style="text-align:center"><a class="button" href="%s">Set Password</a></p>
			<div class="footer">
				<p>This email was sent automatically, please do not reply.</p>
			</div>
		</div>
	</body>
	</html>
	`, data.Name, data.Role, data.SetupURL)

	text := fmt.Sprintf(`
Cabinex - Welcome!

Hello %s,

An administrator created a Cabinex account for you with the role: %s

Set your password here: %s

--
Cabinex Team
	`, data.Name, data.Role, data.SetupURL)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", "Cabinex", rs.from),
		To:      []string{data.Email},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	res, err := rs.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("ResendService: Error sending invite email to %s: %v", data.Email, err)
		return fmt.Errorf("failed to send invite email: %w", err)
	}

	log.Printf("ResendService: Invite email sent to %s. Message ID: %s", data.Email, res.Id)
	return nil
}
