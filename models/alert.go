package models

import "time"

// Direction classifies a threshold-crossing price move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNone Direction = "none"
)

// Valid reports whether d is one of the two persistable directions.
// DirectionNone means "no alert-worthy move" and is never stored.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// PriceSample holds the session's opening price and the most recent
// observed price for one ticker. It is recomputed every cycle and
// never persisted.
type PriceSample struct {
	Open float64 `json:"open"`
	Last float64 `json:"last"`
}

// DeltaPct returns the percentage move of Last relative to Open.
func (p PriceSample) DeltaPct() float64 {
	return (p.Last - p.Open) / p.Open * 100.0
}

// Headline is a single news item attached to an alert notification.
// Link may be a redirect URL that needs resolving before display;
// Published is the zero time when the feed did not carry a timestamp.
type Headline struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}

// Notification is a fully assembled push message. The transport never
// reformats it.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ClickURL string `json:"click_url,omitempty"`
}

// CompanyMeta holds cached metadata about a ticker's company.
type CompanyMeta struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`        // cleaned name, e.g. "Apple"
	RawName    string `json:"raw_name"`    // as returned upstream, e.g. "Apple Inc."
	Source     string `json:"source"`      // where the name came from, e.g. "search.longname"
	BaseTicker string `json:"base_ticker"` // "SAP.DE" -> "SAP"
}

// AlertState maps a ticker to the direction of the last alert sent for
// it. A ticker absent from the map has no prior alert.
type AlertState map[string]Direction
