package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig represents Africa's Talking SMS service configuration
type SMSConfig struct {
	Username string
	APIKey   string
	BaseURL  string
	From     string // Optional sender id / short code
}

// SMSService sends session summary SMS via the Africa's Talking API
type SMSService struct {
	config SMSConfig
	client *http.Client
}

// NewSMSService creates a new SMS notification service
func NewSMSService(config SMSConfig) *SMSService {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.africastalking.com"
	}

	return &SMSService{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// smsResponse is the envelope Africa's Talking returns on send
type smsResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers a plain-text message to the given phone number. Callers treat
// delivery as best-effort; an error here never affects an already computed
// session response.
func (s *SMSService) Send(phoneNumber, message string) error {
	form := url.Values{}
	form.Set("username", s.config.Username)
	form.Set("to", phoneNumber)
	form.Set("message", message)
	if s.config.From != "" {
		form.Set("from", s.config.From)
	}

	req, err := http.NewRequest(http.MethodPost,
		s.config.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SMS API returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var decoded smsResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}

	for _, recipient := range decoded.SMSMessageData.Recipients {
		if recipient.StatusCode >= 400 {
			return fmt.Errorf("SMS rejected for %s: %s", recipient.Number, recipient.Status)
		}
	}

	return nil
}
