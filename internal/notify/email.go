// Package notify turns notification events consumed by the worker into
// outbound messages. Delivery is a log sink for now; a real mail provider
// plugs in behind the Sender interface.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avionda/skybooking/internal/kafka"
	"github.com/avionda/skybooking/internal/logger"
)

type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, recipient, subject, body string) error {
	s.log.Info("notification sent", "recipient", recipient, "subject", subject, "body", body)
	return nil
}

// Notifier maps event payloads to user-facing messages.
type Notifier struct {
	sender Sender
	log    *logger.Logger
}

func NewNotifier(sender Sender, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, log: log}
}

// HandleBookingEvent consumes a booking event payload and notifies the
// booking contact. Unknown event types are skipped, not failed, so a new
// producer-side event never wedges the consumer group.
func (n *Notifier) HandleBookingEvent(ctx context.Context, payload []byte) error {
	var event kafka.BookingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		n.log.Warn("skipping malformed booking event", "error", err)
		return nil
	}
	if event.Email == "" {
		return nil
	}

	var subject, body string
	switch event.Type {
	case kafka.EventBookingCreated:
		subject = "Booking received"
		body = fmt.Sprintf("Your booking %s is on hold. Complete payment to confirm it.", event.BookingCode)
	case kafka.EventBookingConfirmed:
		subject = "Booking confirmed"
		body = fmt.Sprintf("Your booking %s is confirmed.", event.BookingCode)
	case kafka.EventBookingPaid:
		subject = "Payment received"
		body = fmt.Sprintf("We received the payment for booking %s.", event.BookingCode)
	case kafka.EventBookingCancelled:
		subject = "Booking cancelled"
		body = fmt.Sprintf("Your booking %s was cancelled.", event.BookingCode)
	case kafka.EventBookingExpired:
		subject = "Booking expired"
		body = fmt.Sprintf("Your booking %s expired before payment and its seats were released.", event.BookingCode)
	default:
		n.log.Debug("ignoring booking event", "type", event.Type)
		return nil
	}

	return n.sender.Send(ctx, event.Email, subject, body)
}
