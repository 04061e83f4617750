// Package sendgrid delivers email-change confirmation links through the
// SendGrid v3 API.
package sendgrid

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	emailchange "github.com/kazu0702/vs-fund-api"
)

const defaultSubject = "Confirm your new email address"

// Config configures the confirmation sender.
type Config struct {
	APIKey     string
	FromName   string
	FromEmail  string
	ConfirmURL string
	Subject    string
}

// Sender implements emailchange.Notifier over SendGrid.
type Sender struct {
	client     *sg.Client
	from       *mail.Email
	confirmURL string
	subject    string
}

var _ emailchange.Notifier = (*Sender)(nil)

func NewSender(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid: api key is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: from address is required")
	}
	if strings.TrimSpace(cfg.ConfirmURL) == "" {
		return nil, fmt.Errorf("sendgrid: confirm url is required")
	}

	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}

	return &Sender{
		client:     sg.NewSendClient(cfg.APIKey),
		from:       mail.NewEmail(cfg.FromName, cfg.FromEmail),
		confirmURL: cfg.ConfirmURL,
		subject:    subject,
	}, nil
}

// SendConfirmation mails the single-use confirmation link to the new address.
func (s *Sender) SendConfirmation(ctx context.Context, req *emailchange.EmailChangeRequest) error {
	link := fmt.Sprintf("%s?token=%s", s.confirmURL, url.QueryEscape(req.Token))

	plain := fmt.Sprintf(
		"Confirm your new email address by opening this link:\n\n%s\n\nThe link expires at %s. If you did not request this change, ignore this message.",
		link, req.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)
	html := fmt.Sprintf(
		`<p>Confirm your new email address by clicking <a href="%s">this link</a>.</p><p>The link expires at %s. If you did not request this change, ignore this message.</p>`,
		link, req.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)

	msg := mail.NewSingleEmail(s.from, s.subject, mail.NewEmail("", req.NewEmail), plain, html)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: send failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: send rejected with status %d", resp.StatusCode)
	}
	return nil
}
