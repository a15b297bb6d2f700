package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"avara-ussd/internal/models"
)

// TicketRepository handles ticket ledger data operations
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create appends a ticket to the ledger and fills in its ID and timestamps
func (r *TicketRepository) Create(ticket *models.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if ticket.Status == "" {
		ticket.Status = models.TicketActive
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tickets (phone_number, event_id, event_name, price, ticket_code, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(
		query,
		ticket.PhoneNumber,
		ticket.EventID,
		ticket.EventName,
		ticket.Price,
		ticket.TicketCode,
		ticket.Status,
		ticket.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ticket id: %w", err)
	}
	ticket.ID = int(id)

	return nil
}

// GetByPhoneNumber retrieves all tickets held by a subscriber, newest first
func (r *TicketRepository) GetByPhoneNumber(phoneNumber string) ([]*models.Ticket, error) {
	query := `
		SELECT id, phone_number, event_id, event_name, price, ticket_code, status, created_at
		FROM tickets
		WHERE phone_number = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// GetByCode retrieves a ticket by its human-readable code
func (r *TicketRepository) GetByCode(code string) (*models.Ticket, error) {
	query := `
		SELECT id, phone_number, event_id, event_name, price, ticket_code, status, created_at
		FROM tickets
		WHERE ticket_code = ?
		ORDER BY created_at DESC
		LIMIT 1`

	ticket := &models.Ticket{}
	err := r.db.QueryRow(query, code).Scan(
		&ticket.ID,
		&ticket.PhoneNumber,
		&ticket.EventID,
		&ticket.EventName,
		&ticket.Price,
		&ticket.TicketCode,
		&ticket.Status,
		&ticket.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket not found: %s", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// UpdateStatus transitions a ticket's status. Redemption logic lives outside
// this service; the ledger only enforces that the status is a known one.
func (r *TicketRepository) UpdateStatus(id int, status models.TicketStatus) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("invalid ticket status: %s", status)
	}

	result, err := r.db.Exec("UPDATE tickets SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ticket not found: %d", id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := row.Scan(
		&ticket.ID,
		&ticket.PhoneNumber,
		&ticket.EventID,
		&ticket.EventName,
		&ticket.Price,
		&ticket.TicketCode,
		&ticket.Status,
		&ticket.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return ticket, nil
}
