package models

import (
	"errors"
	"strings"
	"time"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketActive   TicketStatus = "active"
	TicketUsed     TicketStatus = "used"
	TicketRefunded TicketStatus = "refunded"
)

// Ticket represents an issued ticket. The event name and price are snapshotted
// at purchase time so later catalog edits never alter a sold ticket.
type Ticket struct {
	ID          int          `json:"id" db:"id"`
	PhoneNumber string       `json:"phone_number" db:"phone_number"`
	EventID     int          `json:"event_id" db:"event_id"`
	EventName   string       `json:"event_name" db:"event_name"`
	Price       float64      `json:"price" db:"price"`
	TicketCode  string       `json:"ticket_code" db:"ticket_code"`
	Status      TicketStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// Validate validates the ticket data before it is written to the ledger
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.PhoneNumber) == "" {
		return errors.New("phone number is required")
	}

	if t.EventID <= 0 {
		return errors.New("event id must be positive")
	}

	if strings.TrimSpace(t.EventName) == "" {
		return errors.New("event name is required")
	}

	if strings.TrimSpace(t.TicketCode) == "" {
		return errors.New("ticket code is required")
	}

	if t.Price < 0 {
		return errors.New("price cannot be negative")
	}

	return nil
}

// ValidStatus reports whether s is a known ticket status
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketActive, TicketUsed, TicketRefunded:
		return true
	}
	return false
}
