package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/kanbanio/taskboard/internal/models"
	"github.com/kanbanio/taskboard/pkg/logger"
	"gorm.io/gorm"
)

type EmailService struct {
	db *gorm.DB
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{db: db}
}

func (s *EmailService) GetConfig() *EmailConfig {
	config := &EmailConfig{}

	var configs []models.SystemConfig
	s.db.Where("`group` = ?", "email").Find(&configs)

	for _, c := range configs {
		switch c.Key {
		case "email_enabled":
			config.Enabled = c.Value == "true"
		case "email_host":
			config.Host = c.Value
		case "email_port":
			if port, err := strconv.Atoi(c.Value); err == nil {
				config.Port = port
			}
		case "email_username":
			config.Username = c.Value
		case "email_password":
			config.Password = c.Value
		case "email_from":
			config.From = c.Value
		case "email_use_tls":
			config.UseTLS = c.Value == "true"
		}
	}

	if config.Port == 0 {
		config.Port = 587
	}

	return config
}

// SendInvitationEmail delivers a project invitation to the invitee. The
// returned error is informational for the inviter; the invitation itself is
// already durable by the time this runs.
func (s *EmailService) SendInvitationEmail(ctx context.Context, task *InvitationEmailTask) error {
	config := s.GetConfig()
	if !config.Enabled || config.Host == "" {
		return errors.New("email notifications are not configured")
	}

	subject := fmt.Sprintf("[TaskBoard] %s invited you to %s", task.InviterName, task.ProjectName)
	body := s.buildInvitationBody(task)

	return s.sendEmail(config, []string{task.Email}, subject, body)
}

func (s *EmailService) buildInvitationBody(t *InvitationEmailTask) string {
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString("<h2>Project Invitation</h2>")
	sb.WriteString(fmt.Sprintf(
		"<p><strong>%s</strong> has invited you to join the project <strong>%s</strong> as a <strong>%s</strong>.</p>",
		t.InviterName, t.ProjectName, t.Role))
	sb.WriteString(fmt.Sprintf(
		"<p><a href=\"%s\" style=\"display: inline-block; padding: 10px 20px; background: #4f46e5; color: #fff; border-radius: 4px; text-decoration: none;\">Accept Invitation</a></p>",
		t.AcceptURL))
	sb.WriteString(fmt.Sprintf(
		"<p style=\"color: #666;\">Or paste this link into your browser:<br>%s</p>", t.AcceptURL))
	sb.WriteString("<p style=\"color: #888; font-size: 12px;\">This invitation expires in 7 days and can only be used once.</p>")
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Powered by TaskBoard</p>")
	sb.WriteString("</body></html>")

	return sb.String()
}

func (s *EmailService) sendEmail(config *EmailConfig, to []string, subject, body string) error {
	from := config.From
	if from == "" {
		from = config.Username
	}

	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	var err error
	if config.UseTLS {
		err = s.sendEmailTLS(config, addr, auth, from, to, message.String())
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message.String()))
	}

	if err != nil {
		logger.Warnf("[Email] Failed to send email to %v: %v", to, err)
		return err
	}

	logger.Infof("[Email] Sent invitation to %v", to)
	return nil
}

func (s *EmailService) sendEmailTLS(config *EmailConfig, addr string, auth smtp.Auth, from string, to []string, message string) error {
	tlsConfig := &tls.Config{
		ServerName: config.Host,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	_, err = w.Write([]byte(message))
	if err != nil {
		return err
	}

	return w.Close()
}
