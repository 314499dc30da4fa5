package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/bankfolio/src/config"
	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/models"
)

// NewNotificationService builds the import-summary notifier for the
// configured provider, falling back to the mock when configuration is
// incomplete or notifications are disabled.
func NewNotificationService() NotificationService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Notification service will default to mock.")
		return &MockNotificationService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing notification service", "provider", provider)

	if config.Cfg.ImportNotifyEmail == "" {
		logger.L.Info("IMPORT_NOTIFY_EMAIL not set; import notifications are logged only.")
		return &MockNotificationService{}
	}

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockNotificationService.")
			return &MockNotificationService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunNotificationService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			notifyEmail: config.Cfg.ImportNotifyEmail,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockNotificationService.")
			return &MockNotificationService{}
		}
		return &SMTPNotificationService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
			NotifyEmail:  config.Cfg.ImportNotifyEmail,
		}
	default:
		logger.L.Info("Defaulting to MockNotificationService.")
		return &MockNotificationService{}
	}
}

func summarySubject(filename string) string {
	return fmt.Sprintf("Statement import completed: %s", filename)
}

func summaryBody(filename string, result *models.CommitResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statement %s was imported.\n\n", filename)
	fmt.Fprintf(&b, "Inserted: %d\nSkipped as duplicates: %d\nTotal: %d\n", result.Inserted, result.Skipped, result.Total)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\nRows that failed to persist:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return b.String()
}

type MailgunNotificationService struct {
	mg          *mailgun.MailgunImpl
	senderEmail string
	senderName  string
	notifyEmail string
}

func (s *MailgunNotificationService) SendImportSummary(filename string, result *models.CommitResult) error {
	sender := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := mailgun.NewMessage(sender, summarySubject(filename), summaryBody(filename, result), s.notifyEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send import summary via Mailgun", "error", err, "to", s.notifyEmail)
		return fmt.Errorf("failed to send import summary via Mailgun: %w", err)
	}
	logger.L.Info("Import summary sent via Mailgun", "to", s.notifyEmail, "filename", filename)
	return nil
}

type SMTPNotificationService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	NotifyEmail  string
}

func (s *SMTPNotificationService) SendImportSummary(filename string, result *models.CommitResult) error {
	header := map[string]string{
		"From":         s.SenderEmail,
		"To":           s.NotifyEmail,
		"Subject":      summarySubject(filename),
		"MIME-version": "1.0",
		"Content-Type": "text/plain; charset=\"UTF-8\"",
	}
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + summaryBody(filename, result)

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{s.NotifyEmail}, []byte(message)); err != nil {
		logger.L.Error("Failed to send import summary via SMTP", "error", err, "to", s.NotifyEmail)
		return fmt.Errorf("failed to send import summary via SMTP: %w", err)
	}
	logger.L.Info("Import summary sent via SMTP", "to", s.NotifyEmail, "filename", filename)
	return nil
}

// MockNotificationService logs the summary instead of sending it.
type MockNotificationService struct{}

func (s *MockNotificationService) SendImportSummary(filename string, result *models.CommitResult) error {
	if logger.L != nil {
		logger.L.Info("MOCK import summary",
			"filename", filename, "inserted", result.Inserted, "skipped", result.Skipped, "total", result.Total)
	}
	return nil
}
