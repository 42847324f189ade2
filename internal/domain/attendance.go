package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the attendance state of one record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
	StatusExcused Status = "Excused"
)

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus.WithError(fmt.Errorf("status %q", s))
}

// AttendanceRecord is one row of a (class, date) ledger.
type AttendanceRecord struct {
	RegNo     string    `json:"reg_no"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity returns the record owner.
func (r AttendanceRecord) Identity() Identity {
	return Identity{Name: r.Name, RegNo: r.RegNo}
}

// MarkOutcome tells whether Mark created a record or found one.
type MarkOutcome string

const (
	MarkCreated        MarkOutcome = "created"
	MarkAlreadyPresent MarkOutcome = "already_present"
)

// MarkResult is what a ledger returns from Mark.
type MarkResult struct {
	Outcome MarkOutcome      `json:"outcome"`
	Record  AttendanceRecord `json:"record"`
}

// Created reports whether this call appended the record.
func (r MarkResult) Created() bool { return r.Outcome == MarkCreated }

// DeliveryOutcome classifies a notification attempt.
type DeliveryOutcome string

const (
	DeliverySent        DeliveryOutcome = "sent"
	DeliveryNoRecipient DeliveryOutcome = "no_recipient"
	DeliveryFailed      DeliveryOutcome = "failed"
	DeliveryDisabled    DeliveryOutcome = "disabled"
)

// DeliveryResult is returned by the notification dispatcher. A failure is
// recorded here instead of being returned as an error.
type DeliveryResult struct {
	Outcome   DeliveryOutcome `json:"outcome"`
	Recipient string          `json:"recipient,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Message   string          `json:"message,omitempty"`
}
