package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"avara-ussd/internal/models"
)

// CatalogConfig represents event catalog service configuration
type CatalogConfig struct {
	BaseURL         string
	RefreshInterval time.Duration
}

// CatalogSnapshot is a moment-in-time view of the sellable events plus the
// ordinal map used for menu rendering. Snapshots are replaced wholesale on
// refresh and never patched, so an in-flight request always reads one
// consistent snapshot.
type CatalogSnapshot struct {
	Events    []models.Event
	FetchedAt time.Time

	byOrdinal map[int]models.Event
}

// EventAt resolves a 1-based menu ordinal against this snapshot. Ordinals are
// ephemeral; they are recomputed on every refresh and must never be persisted.
func (s *CatalogSnapshot) EventAt(ordinal int) (models.Event, bool) {
	event, ok := s.byOrdinal[ordinal]
	return event, ok
}

// Venues returns the distinct venues across the snapshot, in catalog order.
func (s *CatalogSnapshot) Venues() []string {
	seen := make(map[string]bool)
	var venues []string
	for _, event := range s.Events {
		if event.Venue == "" || seen[event.Venue] {
			continue
		}
		seen[event.Venue] = true
		venues = append(venues, event.Venue)
	}
	return venues
}

// EventsAtVenue returns the snapshot's events held at the given venue.
func (s *CatalogSnapshot) EventsAtVenue(venue string) []models.Event {
	var events []models.Event
	for _, event := range s.Events {
		if event.Venue == venue {
			events = append(events, event)
		}
	}
	return events
}

// CatalogService caches the upstream event list and exposes it by ordinal
type CatalogService struct {
	config   CatalogConfig
	client   *http.Client
	snapshot atomic.Pointer[CatalogSnapshot]
}

// NewCatalogService creates a new event catalog service with an empty snapshot
func NewCatalogService(config CatalogConfig) *CatalogService {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = 5 * time.Minute
	}

	s := &CatalogService{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	s.snapshot.Store(NewCatalogSnapshot(nil))
	return s
}

// eventsResponse is the envelope returned by the upstream events API
type eventsResponse struct {
	Success bool                   `json:"success"`
	Data    []models.UpstreamEvent `json:"data"`
}

// Refresh fetches the full upstream event list and swaps in a new snapshot.
// On failure the previous snapshot keeps serving.
func (s *CatalogService) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/api/events", nil)
	if err != nil {
		return fmt.Errorf("failed to build events request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events API returned status %d", resp.StatusCode)
	}

	var payload eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode events response: %w", err)
	}

	if !payload.Success {
		return fmt.Errorf("events API reported failure")
	}

	events := make([]models.Event, 0, len(payload.Data))
	for i := range payload.Data {
		events = append(events, payload.Data[i].ToEvent())
	}

	s.snapshot.Store(NewCatalogSnapshot(events))
	log.Printf("Catalog: loaded %d events from server", len(events))
	return nil
}

// Current returns the latest snapshot without blocking on a refresh in progress
func (s *CatalogService) Current() *CatalogSnapshot {
	return s.snapshot.Load()
}

// StartBackgroundRefresh refreshes the catalog on a fixed interval until the
// context is cancelled. Failures are logged; the last good snapshot survives.
func (s *CatalogService) StartBackgroundRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.config.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					log.Printf("Catalog: background refresh failed: %v", err)
				}
			}
		}
	}()
}

// NewCatalogSnapshot builds a snapshot with ordinals assigned in event order
func NewCatalogSnapshot(events []models.Event) *CatalogSnapshot {
	byOrdinal := make(map[int]models.Event, len(events))
	for i, event := range events {
		byOrdinal[i+1] = event
	}
	return &CatalogSnapshot{
		Events:    events,
		FetchedAt: time.Now(),
		byOrdinal: byOrdinal,
	}
}
