// Package mail renders and delivers the report and alert emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("message has no recipient")
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	log.Printf("INFO: sent %q to %s (id %s)", msg.Subject, msg.To, sent.Id)
	return nil
}

// LogMailer only logs messages. It stands in when no email provider is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("INFO: email provider not configured, not sending %q to %s", msg.Subject, msg.To)
	return nil
}

var (
	_ Mailer = (*ResendMailer)(nil)
	_ Mailer = LogMailer{}
)
