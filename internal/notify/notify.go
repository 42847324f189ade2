// Package notify tells a student's parent that attendance was recorded.
//
// The Dispatcher never returns an error: a missing contact or a failed
// delivery is reported in the domain.DeliveryResult so the caller can log it
// without undoing the attendance record.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Message is one notification addressed to a parent.
type Message struct {
	To       string
	Subject  string
	Body     string
	Identity domain.Identity
	Status   domain.Status
	Date     string
}

// Sender delivers a composed message over one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// Contacts resolves the parent contact of a student.
type Contacts interface {
	Get(ctx context.Context, regNo string) (domain.Student, error)
}

type Dispatcher struct {
	contacts Contacts
	sender   Sender
	logger   *slog.Logger
}

// NewDispatcher returns a dispatcher delivering through sender. A nil sender
// disables notifications.
func NewDispatcher(contacts Contacts, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		contacts: contacts,
		sender:   sender,
		logger:   logger.With("component", "notify"),
	}
}

// Compose builds the message text.
func Compose(to string, identity domain.Identity, status domain.Status, date string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Attendance Update for %s", date),
		Body: fmt.Sprintf(
			"Dear Parent,\n\nYour ward %s (Reg No: %s) is marked as %s today (%s).\n\nRegards,\nSchool Administration",
			identity.Name, identity.RegNo, status, date,
		),
		Identity: identity,
		Status:   status,
		Date:     date,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, identity domain.Identity, status domain.Status, date string) domain.DeliveryResult {
	if d.sender == nil {
		return domain.DeliveryResult{Outcome: domain.DeliveryDisabled}
	}
	channel := d.sender.Channel()

	student, err := d.contacts.Get(ctx, identity.RegNo)
	if err != nil && !errors.Is(err, domain.ErrStudentNotFound) {
		d.logger.Warn("contact lookup failed", "reg_no", identity.RegNo, "error", err)
		return domain.DeliveryResult{
			Outcome: domain.DeliveryFailed,
			Channel: channel,
			Message: fmt.Sprintf("contact lookup failed: %v", err),
		}
	}

	to := strings.TrimSpace(student.ParentEmail)
	if to == "" {
		d.logger.Info("no parent contact", "reg_no", identity.RegNo)
		return domain.DeliveryResult{
			Outcome: domain.DeliveryNoRecipient,
			Channel: channel,
			Message: fmt.Sprintf("No email found for student %s (Reg No: %s)", identity.Name, identity.RegNo),
		}
	}

	msg := Compose(to, identity, status, date)
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Warn("notification failed",
			"reg_no", identity.RegNo,
			"channel", channel,
			"error", err,
		)
		return domain.DeliveryResult{
			Outcome:   domain.DeliveryFailed,
			Recipient: to,
			Channel:   channel,
			Message:   fmt.Sprintf("Failed to send notification: %v", err),
		}
	}

	d.logger.Info("notification sent", "reg_no", identity.RegNo, "channel", channel)
	return domain.DeliveryResult{
		Outcome:   domain.DeliverySent,
		Recipient: to,
		Channel:   channel,
		Message:   fmt.Sprintf("Notification sent to %s", to),
	}
}
