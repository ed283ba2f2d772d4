package Models

import (
	"os"
	"strconv"
)

// EmailConfig carries the SMTP settings for outbound mail (report
// exports, schedule reminders).
type EmailConfig struct {
	SMTPServer   string
	SMTPPort     int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	TLSEnabled   bool
	SkipTLSCheck bool
}

// EmailMessage is one outbound email. Attachments are encoded into a
// multipart body by the sender.
type EmailMessage struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	IsHTML      bool
	Attachments []Attachment
}

// Attachment is a file carried by an email.
type Attachment struct {
	Filename string
	Data     []byte
	MimeType string
}

// LoadEmailConfig reads SMTP settings from the environment. Sending is
// skipped entirely when SMTP_SERVER is unset so dev setups work without
// a mail account.
func LoadEmailConfig() (EmailConfig, bool) {
	server := os.Getenv("SMTP_SERVER")
	if server == "" {
		return EmailConfig{}, false
	}
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			port = parsed
		}
	}
	config := EmailConfig{
		SMTPServer: server,
		SMTPPort:   port,
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		FromEmail:  os.Getenv("SMTP_FROM"),
		FromName:   os.Getenv("SMTP_FROM_NAME"),
		TLSEnabled: os.Getenv("SMTP_TLS") != "false",
	}
	if config.FromEmail == "" {
		config.FromEmail = config.Username
	}
	if config.FromName == "" {
		config.FromName = "Aegis PPF"
	}
	return config, true
}
