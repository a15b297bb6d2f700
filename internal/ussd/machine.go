// Package ussd implements the stateless menu session machine behind the
// telecom gateway. Each request carries the entire path of digits dialed since
// session start, so the machine is a pure function of that path plus the
// external state (catalog, ledger) it consults — no per-session memory exists
// between requests.
package ussd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"avara-ussd/internal/models"
	"avara-ussd/internal/services"
	"avara-ussd/internal/utils"
)

const (
	mainMenu = `CON Welcome to AVARA
1. Buy Ticket
2. My Tickets
3. Wallet
4. Events Near Me
5. Support
0. Exit`

	walletMenu = `CON Wallet
1. Balance
2. Deposit
3. Withdraw
0. Back`

	supportMenu = `CON Support
1. Request Call-Back
2. Report Issue
0. Back`

	responseInvalid       = "END Invalid option."
	responseGoodbye       = "END Thank you for using AVARA"
	responseError         = "END Something went wrong. Try again."
	responseMissingPhone  = "END Missing phone number"
	responseNoEvents      = "END No events available. Please try again later."
	responsePaymentFailed = "END Payment failed. Try again."
)

// pathSeparator splits the dialed path into menu steps
const pathSeparator = "*"

// Options configures session machine behavior
type Options struct {
	PageSize      int    // Maximum entries rendered per menu
	MintRecipient string // Address NFT tickets are minted to
}

// Machine drives the menu session. It holds no per-session state; every
// collaborator it talks to is re-consulted from the dialed path on each call.
type Machine struct {
	catalog  services.CatalogServiceInterface
	payments services.PaymentServiceInterface
	tickets  services.TicketLedgerInterface
	proofs   services.MintProofServiceInterface
	minter   services.MinterServiceInterface
	pageSize int
	mintTo   string
}

// NewMachine creates a new session machine. proofs and minter may be nil, in
// which case purchases complete without an NFT.
func NewMachine(
	catalog services.CatalogServiceInterface,
	payments services.PaymentServiceInterface,
	tickets services.TicketLedgerInterface,
	proofs services.MintProofServiceInterface,
	minter services.MinterServiceInterface,
	opts Options,
) *Machine {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}

	return &Machine{
		catalog:  catalog,
		payments: payments,
		tickets:  tickets,
		proofs:   proofs,
		minter:   minter,
		pageSize: opts.PageSize,
		mintTo:   opts.MintRecipient,
	}
}

// Handle reconstructs the session position from the full dialed path and
// returns the next menu or terminal message. The result always starts with
// "CON " (more input expected) or "END " (session over); Handle never panics
// outward.
func (m *Machine) Handle(ctx context.Context, phoneNumber, text string) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Session handler panic for %s: %v", phoneNumber, r)
			response = responseError
		}
	}()

	if phoneNumber == "" {
		return responseMissingPhone
	}

	if text == "" {
		return mainMenu
	}

	steps := strings.Split(text, pathSeparator)

	switch steps[0] {
	case "1":
		return m.handleBuy(ctx, phoneNumber, steps)
	case "2":
		return m.handleMyTickets(phoneNumber, steps)
	case "3":
		return m.handleWallet(steps)
	case "4":
		return m.handleVenues(ctx, steps)
	case "5":
		return m.handleSupport(steps)
	case "0":
		return responseGoodbye
	default:
		return responseInvalid
	}
}

// handleBuy drives the sole side-effecting branch: list events, confirm one,
// then pay, persist and best-effort mint at the leaf.
func (m *Machine) handleBuy(ctx context.Context, phoneNumber string, steps []string) string {
	switch len(steps) {
	case 1:
		return m.renderEventList(ctx)

	case 2:
		if steps[1] == "0" {
			return mainMenu
		}
		event, ok := m.resolveOrdinal(ctx, steps[1])
		if !ok {
			return responseInvalid
		}
		venue := event.Venue
		if venue == "" {
			venue = "TBA"
		}
		return fmt.Sprintf("CON %s\nPrice: %s KES\nVenue: %s\n1. Pay with M-Pesa\n0. Cancel",
			event.Name, formatPrice(event.Price), venue)

	case 3:
		switch steps[2] {
		case "0":
			return m.renderEventList(ctx)
		case "1":
			// Re-resolve against the current snapshot: the cache may have
			// rotated since the event was listed, and charging for the wrong
			// event is worse than an invalid-option message.
			event, ok := m.resolveOrdinal(ctx, steps[1])
			if !ok {
				return responseInvalid
			}
			return m.completePurchase(ctx, phoneNumber, event)
		default:
			return responseInvalid
		}

	default:
		return responseInvalid
	}
}

func (m *Machine) handleMyTickets(phoneNumber string, steps []string) string {
	if len(steps) != 1 {
		return responseInvalid
	}

	tickets, err := m.tickets.GetByPhoneNumber(phoneNumber)
	if err != nil {
		log.Printf("Failed to load tickets for %s: %v", phoneNumber, err)
		return responseError
	}

	if len(tickets) == 0 {
		return "END You have no tickets."
	}

	var lines []string
	for _, ticket := range tickets {
		lines = append(lines, fmt.Sprintf("%s - %s", ticket.EventName, ticket.TicketCode))
	}
	return "END Your Tickets:\n" + strings.Join(lines, "\n")
}

func (m *Machine) handleWallet(steps []string) string {
	switch len(steps) {
	case 1:
		return walletMenu
	case 2:
		switch steps[1] {
		case "0":
			return mainMenu
		case "1":
			return "END Your balance is 0 KES"
		case "2":
			return "END Send money to Paybill 412345\nAcc: Your Phone Number"
		case "3":
			return "END Withdrawal sent to M-Pesa"
		default:
			return responseInvalid
		}
	default:
		return responseInvalid
	}
}

func (m *Machine) handleVenues(ctx context.Context, steps []string) string {
	switch len(steps) {
	case 1:
		m.refreshCatalog(ctx)
		venues := m.catalog.Current().Venues()
		if len(venues) == 0 {
			return "END No events with location data available."
		}
		if len(venues) > m.pageSize {
			venues = venues[:m.pageSize]
		}
		var lines []string
		for i, venue := range venues {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, venue))
		}
		return "CON Select Location:\n" + strings.Join(lines, "\n") + "\n0. Back"

	case 2:
		if steps[1] == "0" {
			return mainMenu
		}
		m.refreshCatalog(ctx)
		snapshot := m.catalog.Current()
		venues := snapshot.Venues()
		index, err := strconv.Atoi(steps[1])
		if err != nil || index < 1 || index > len(venues) {
			return "END Invalid location."
		}
		venue := venues[index-1]
		events := snapshot.EventsAtVenue(venue)
		if len(events) == 0 {
			return fmt.Sprintf("END No events found at %s.", venue)
		}
		var lines []string
		for _, event := range events {
			lines = append(lines, fmt.Sprintf("%s - %s KES", event.Name, formatPrice(event.Price)))
		}
		return fmt.Sprintf("END Events at %s:\n%s", venue, strings.Join(lines, "\n"))

	default:
		return responseInvalid
	}
}

func (m *Machine) handleSupport(steps []string) string {
	switch len(steps) {
	case 1:
		return supportMenu
	case 2:
		switch steps[1] {
		case "0":
			return mainMenu
		case "1":
			return "END We will call you shortly."
		case "2":
			return "END Issue reported. Thank you."
		default:
			return responseInvalid
		}
	default:
		return responseInvalid
	}
}

// renderEventList refreshes the catalog and renders the event selection menu
func (m *Machine) renderEventList(ctx context.Context) string {
	m.refreshCatalog(ctx)
	snapshot := m.catalog.Current()

	if len(snapshot.Events) == 0 {
		return responseNoEvents
	}

	events := snapshot.Events
	if len(events) > m.pageSize {
		events = events[:m.pageSize]
	}

	var lines []string
	for i, event := range events {
		lines = append(lines, fmt.Sprintf("%d. %s (%s KES)", i+1, event.Name, formatPrice(event.Price)))
	}
	return "CON Select Event:\n" + strings.Join(lines, "\n") + "\n0. Back"
}

// resolveOrdinal refreshes the catalog and resolves a dialed ordinal against
// the current snapshot. Ordinals are advisory: one that no longer resolves
// after a cache rotation reports false rather than the wrong event.
func (m *Machine) resolveOrdinal(ctx context.Context, step string) (models.Event, bool) {
	ordinal, err := strconv.Atoi(step)
	if err != nil || ordinal < 1 || ordinal > m.pageSize {
		return models.Event{}, false
	}

	m.refreshCatalog(ctx)
	return m.catalog.Current().EventAt(ordinal)
}

// completePurchase is the side-effecting leaf: initiate payment, and only on
// acceptance persist the ticket and attempt the best-effort mint.
func (m *Machine) completePurchase(ctx context.Context, phoneNumber string, event models.Event) string {
	code, err := utils.GenerateTicketCode()
	if err != nil {
		log.Printf("Failed to generate ticket code: %v", err)
		return responseError
	}

	_, err = m.payments.InitiateSTKPush(ctx, services.STKPushRequest{
		PhoneNumber: phoneNumber,
		Amount:      event.Price,
		Currency:    "KES",
		APIRef:      event.Name,
		Narrative:   "Event Ticket",
	})
	if err != nil {
		log.Printf("Failed to process payment for %s: %v", phoneNumber, err)
		return responsePaymentFailed
	}

	ticket := &models.Ticket{
		PhoneNumber: phoneNumber,
		EventID:     event.ID,
		EventName:   event.Name,
		Price:       event.Price,
		TicketCode:  code,
		Status:      models.TicketActive,
	}
	if err := m.tickets.Create(ticket); err != nil {
		log.Printf("Failed to persist ticket for %s: %v", phoneNumber, err)
		return responsePaymentFailed
	}

	minted := m.mintTicketNFT(ctx, event, code)

	response := fmt.Sprintf("END Payment initiated.\nYour Ticket Code: %s\nEvent: %s", code, event.Name)
	if minted {
		response += "\nNFT: Minted"
	}
	return response
}

// mintTicketNFT attempts the on-chain mint. Payment has already been taken by
// the time this runs, so every failure is logged and swallowed; the purchase
// stands either way.
func (m *Machine) mintTicketNFT(ctx context.Context, event models.Event, code string) bool {
	if m.proofs == nil || m.minter == nil || m.mintTo == "" {
		return false
	}

	proof, err := m.proofs.CreateProof(m.mintTo, event.ID)
	if err != nil {
		log.Printf("Failed to create mint proof: %v", err)
		return false
	}

	if proof.SignerMismatch {
		// The contract would reject this signature; skip before spending gas.
		log.Printf("Mint proof signer %s does not match the contract's expected signer, skipping mint", proof.SignerAddress)
		return false
	}

	tokenURI := "ipfs://ticket-" + code
	txHash, err := m.minter.MintTicket(ctx, m.mintTo, tokenURI, event.ID, proof)
	if err != nil {
		log.Printf("Failed to mint NFT ticket: %v", err)
		return false
	}

	log.Printf("Minted NFT ticket: %s", txHash)
	return true
}

func (m *Machine) refreshCatalog(ctx context.Context) {
	if err := m.catalog.Refresh(ctx); err != nil {
		log.Printf("Catalog refresh failed, serving cached events: %v", err)
	}
}

// IsTerminal reports whether a session response ends the session
func IsTerminal(response string) bool {
	return strings.HasPrefix(response, "END")
}

// TerminalMessage extracts the subscriber-facing text from a terminal
// response, or "" when the response keeps the session open.
func TerminalMessage(response string) string {
	if !IsTerminal(response) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(response, "END"))
}

// formatPrice renders a KES amount without trailing zeros
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
