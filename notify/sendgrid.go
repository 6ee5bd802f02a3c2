package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/warp/occupancy-engine/occupancy"
)

// ErrNoRecipients is returned when an email notification has nobody to go to.
var ErrNoRecipients = errors.New("notification has no recipients")

// MailSender is the part of the SendGrid client used here.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier emails notifications through SendGrid.
type SendGridNotifier struct {
	client    MailSender
	fromEmail string
	fromName  string
}

var _ occupancy.Notifier = (*SendGridNotifier)(nil)

func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return NewSendGridNotifierWithClient(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func NewSendGridNotifierWithClient(client MailSender, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *SendGridNotifier) Notify(ctx context.Context, msg occupancy.Notification) error {
	if len(msg.Recipients) == 0 {
		return ErrNoRecipients
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	message.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.Recipients {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", msg.Body))
	if msg.BookingID != "" {
		message.SetHeader("X-Booking-ID", string(msg.BookingID))
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
