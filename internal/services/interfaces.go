package services

import (
	"context"

	"avara-ussd/internal/models"
)

// CatalogServiceInterface defines the interface for the event catalog cache
type CatalogServiceInterface interface {
	Refresh(ctx context.Context) error
	Current() *CatalogSnapshot
}

// PaymentServiceInterface defines the interface for payment initiation
type PaymentServiceInterface interface {
	InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

// TicketLedgerInterface defines the ledger operations the session machine needs
type TicketLedgerInterface interface {
	Create(ticket *models.Ticket) error
	GetByPhoneNumber(phoneNumber string) ([]*models.Ticket, error)
}

// MintProofServiceInterface defines the interface for mint proof generation
type MintProofServiceInterface interface {
	CreateProof(to string, eventID int) (*models.MintProof, error)
	SignerAddress() string
}

// MinterServiceInterface defines the interface for on-chain ticket minting
type MinterServiceInterface interface {
	MintTicket(ctx context.Context, to, tokenURI string, eventID int, proof *models.MintProof) (string, error)
}

// NotificationServiceInterface defines the interface for out-of-band notifications
type NotificationServiceInterface interface {
	Send(phoneNumber, message string) error
}
