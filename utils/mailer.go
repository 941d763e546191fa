package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"jobtrail/config"
	"jobtrail/models"

	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Embedded email templates
var emailTemplates = map[string]string{
	"notification": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; white-space: pre-line; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Subject}}</h2>
    </div>

    <div class="content">{{.Message}}</div>

    <div class="footer">
        <p>You are receiving this because automation rules are enabled on your account.</p>
        <p>© {{.Year}} jobtrail. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// Mailer is the notification sink: it submits user-facing notifications as
// email through the configured SMTP relay. The engine only promises a single
// submission per dispatch pass; delivery is the relay's business.
type Mailer struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMailer(db *gorm.DB, logger *log.Logger) *Mailer {
	return &Mailer{
		DB:     db,
		Logger: logger,
	}
}

// Notify implements engine.Notifier. The payload is informational only; the
// message body already carries the human-readable rendering.
func (m *Mailer) Notify(ctx context.Context, userID uint, subject, message string, payload interface{}) error {
	var user models.User
	if err := m.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return fmt.Errorf("failed to load notification recipient: %w", err)
	}

	body, err := renderNotification(subject, message)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.AppConfig.FromEmail)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	// gomail has no context support, so the send runs in a goroutine and
	// the caller's deadline wins.
	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("notification send timed out: %w", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error sending notification email: %v", err)
		}
	}

	m.Logger.Printf("Notification sent to user %d: %s", userID, subject)
	return nil
}

func renderNotification(subject, message string) (string, error) {
	tmpl, err := template.New("notification").Parse(emailTemplates["notification"])
	if err != nil {
		return "", fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	data := struct {
		Subject string
		Message string
		Year    int
	}{
		Subject: subject,
		Message: strings.TrimSpace(message),
		Year:    time.Now().Year(),
	}
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("error executing template: %v", err)
	}
	return body.String(), nil
}
