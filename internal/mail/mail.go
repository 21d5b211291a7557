package mail

import (
	"context" // Cancellation of sends
	"fmt"     // Message formatting
	"html"    // Escaping user supplied text
	"sync"    // Tracking in-flight sends
	"time"    // Send timeout

	"github.com/sendgrid/sendgrid-go"                     // SendGrid client
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail" // SendGrid message helpers
	"github.com/sirupsen/logrus"                          // Logging library
)

// Sender delivers one HTML message
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SendGridSender delivers mail through the SendGrid v3 API
type SendGridSender struct {
	client   *sendgrid.Client // API client
	from     string           // Sender address
	fromName string           // Sender display name
}

// NewSendGridSender creates a sender for apiKey
func NewSendGridSender(apiKey, from, fromName string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

// Send implements Sender
func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		subject,
		sgmail.NewEmail("", to),
		"", // No plain text part
		htmlBody,
	)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d - %s", response.StatusCode, response.Body)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them, for development
type LogSender struct{}

// Send implements Sender
func (LogSender) Send(_ context.Context, to, subject, htmlBody string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,      // Recipient
		"subject": subject, // Subject line
		"body":    htmlBody,
	}).Info("Email not sent, no SendGrid key configured")
	return nil
}

// Dispatcher sends mail in the background. Failures are logged and never
// reach the caller.
type Dispatcher struct {
	sender  Sender         // Underlying transport
	timeout time.Duration  // Per-message deadline
	wg      sync.WaitGroup // In-flight sends
}

// NewDispatcher wraps sender
func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, timeout: timeout}
}

// Dispatch queues one message and returns immediately
func (d *Dispatcher) Dispatch(to, subject, htmlBody string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout) // Detached from the request
		defer cancel()
		if err := d.sender.Send(ctx, to, subject, htmlBody); err != nil {
			logrus.WithFields(logrus.Fields{
				"to":      to,          // Recipient
				"subject": subject,     // Subject line
				"error":   err.Error(), // Error message
			}).Error("Email delivery failed")
		}
	}()
}

// Wait blocks until every dispatched message has been attempted
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ConfirmationSubject is the subject of the address confirmation mail
const ConfirmationSubject = "Confirm your Survivor Pool account"

// ConfirmationBody renders the address confirmation mail
func ConfirmationBody(confirmURL string) string {
	link := html.EscapeString(confirmURL)
	return fmt.Sprintf(`
        <html>
        <body>
            <h2>Welcome to the Survivor Pool</h2>
            <p>Please confirm your email address by clicking the link below:</p>
            <p><a href="%s">Confirm Email</a></p>
            <p>If you didn't create this account, you can safely ignore this email.</p>
        </body>
        </html>
    `, link)
}
