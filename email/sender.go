package email

import (
	"Aegis/Models"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// SendEmail sends one message using the provided SMTP configuration.
// Messages with attachments are built as multipart/mixed; plain messages
// keep a single-part body.
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	body, err := buildMessage(config, message)
	if err != nil {
		return fmt.Errorf("failed to build email: %v", err)
	}

	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)

	var recipients []string
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)

	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)

	if !config.TLSEnabled {
		return smtp.SendMail(serverAddr, auth, config.FromEmail, recipients, body)
	}

	tlsConfig := &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %v", err)
	}

	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %v", err)
	}

	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %v", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %v", err)
	}

	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write email body: %v", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %v", err)
	}

	return client.Quit()
}

func buildMessage(config Models.EmailConfig, message Models.EmailMessage) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", config.FromName, config.FromEmail))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(message.To, ", ")))
	if len(message.CC) > 0 {
		buf.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(message.CC, ", ")))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", message.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	contentType := "text/plain; charset=UTF-8"
	if message.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	if len(message.Attachments) == 0 {
		buf.WriteString(fmt.Sprintf("Content-Type: %s\r\n\r\n", contentType))
		buf.WriteString(message.Body)
		return []byte(buf.String()), nil
	}

	var mixed strings.Builder
	writer := multipart.NewWriter(&mixed)

	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary()))

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err = part.Write([]byte(message.Body)); err != nil {
		return nil, err
	}

	for _, attachment := range message.Attachments {
		mimeType := attachment.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", mimeType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment.Data)
		// RFC 2045 caps encoded lines at 76 characters.
		for len(encoded) > 76 {
			if _, err = part.Write([]byte(encoded[:76] + "\r\n")); err != nil {
				return nil, err
			}
			encoded = encoded[76:]
		}
		if _, err = part.Write([]byte(encoded + "\r\n")); err != nil {
			return nil, err
		}
	}

	if err = writer.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(mixed.String())
	return []byte(buf.String()), nil
}
