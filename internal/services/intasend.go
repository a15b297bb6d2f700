package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPaymentDeclined is returned when the payment provider rejects a
// collection request. The wrapped text carries the provider's reason.
var ErrPaymentDeclined = errors.New("payment declined")

// IntaSendConfig represents IntaSend payment service configuration
type IntaSendConfig struct {
	PublishableKey string
	SecretKey      string
	Environment    string // "sandbox" or "live"
}

// IntaSendService initiates M-Pesa STK push collections via the IntaSend API
type IntaSendService struct {
	config  IntaSendConfig
	client  *http.Client
	baseURL string
}

// NewIntaSendService creates a new IntaSend payment service
func NewIntaSendService(config IntaSendConfig) *IntaSendService {
	baseURL := "https://sandbox.intasend.com"
	if config.Environment == "live" {
		baseURL = "https://payment.intasend.com"
	}

	return &IntaSendService{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// STKPushRequest represents an M-Pesa STK push collection request
type STKPushRequest struct {
	PhoneNumber string  `json:"phone_number"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	APIRef      string  `json:"api_ref"`
	Narrative   string  `json:"narrative"`
}

// STKPushResponse represents an accepted collection request. Acceptance means
// the provider has pushed the prompt to the subscriber's device, not that
// funds have settled.
type STKPushResponse struct {
	Invoice *IntaSendInvoice `json:"invoice"`
}

// IntaSendInvoice contains the provider's record of the collection request
type IntaSendInvoice struct {
	InvoiceID string `json:"invoice_id"`
	State     string `json:"state"`
	Provider  string `json:"provider"`
	APIRef    string `json:"api_ref"`
	Value     string `json:"value"`
	Currency  string `json:"currency"`
}

// intaSendError captures the error shapes the IntaSend API is known to return
type intaSendError struct {
	Type   string           `json:"type"`
	Errors []intaSendDetail `json:"errors"`
	Error  json.RawMessage  `json:"error"`
	Detail string           `json:"detail"`
}

type intaSendDetail struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Attr   string `json:"attr"`
}

// InitiateSTKPush sends an M-Pesa STK push request. A nil error means the
// provider accepted the request; settlement happens out of band on the
// subscriber's device.
func (s *IntaSendService) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if req.Currency == "" {
		req.Currency = "KES"
	}
	if req.Narrative == "" {
		req.Narrative = "Event Ticket"
	}
	if req.APIRef == "" {
		req.APIRef = "ticket-" + uuid.NewString()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/v1/payment/mpesa-stk-push/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call IntaSend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read IntaSend response: %w", err)
	}

	// The provider has been observed returning raw buffers and non-JSON error
	// bodies; decode defensively and map anything unrecognized to a decline
	// rather than letting a shape change escape into the session machine.
	var provErr intaSendError
	if err := json.Unmarshal(raw, &provErr); err == nil {
		if provErr.Type == "validation_error" || len(provErr.Errors) > 0 || len(provErr.Error) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, declineReason(&provErr, raw))
		}
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, truncate(string(raw), 200))
	}

	result := &STKPushResponse{}
	if err := json.Unmarshal(raw, result); err != nil {
		// Accepted but unparseable; the request went through, so treat it as
		// accepted with no invoice details.
		return &STKPushResponse{}, nil
	}

	return result, nil
}

// declineReason extracts a human-readable reason from a provider error body
func declineReason(provErr *intaSendError, raw []byte) string {
	if len(provErr.Errors) > 0 {
		var parts []string
		for _, detail := range provErr.Errors {
			if detail.Detail != "" {
				parts = append(parts, detail.Detail)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	if len(provErr.Error) > 0 {
		return truncate(string(provErr.Error), 200)
	}

	if provErr.Detail != "" {
		return provErr.Detail
	}

	return truncate(string(raw), 200)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
