package models

// Event represents a sellable event from the upstream catalog.
// Events are read-only to this service; the event management platform owns them.
type Event struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"` // Price in KES
	Venue       string  `json:"venue"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// UpstreamEvent is the raw record shape returned by the events API.
type UpstreamEvent struct {
	ID           int     `json:"id"`
	EventName    string  `json:"event_name"`
	RegularPrice float64 `json:"regular_price"`
	VIPPrice     float64 `json:"vip_price"`
	VVIPPrice    float64 `json:"vvip_price"`
	Venue        string  `json:"venue"`
	EventDate    string  `json:"event_date"`
	Description  string  `json:"description"`
}

// ToEvent converts an upstream record to a catalog event. The displayed price
// falls back through the ticket tiers the way the upstream API prices them.
func (u *UpstreamEvent) ToEvent() Event {
	price := u.RegularPrice
	if price == 0 {
		price = u.VIPPrice
	}
	if price == 0 {
		price = u.VVIPPrice
	}

	return Event{
		ID:          u.ID,
		Name:        u.EventName,
		Price:       price,
		Venue:       u.Venue,
		Date:        u.EventDate,
		Description: u.Description,
	}
}
