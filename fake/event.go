// Package fake generates clickstream events shaped like the ones the raw zone
// holds, for local runs and tests.
package fake

import (
	"time"

	"github.com/pilosa/datalake/fake/gen"
)

// Event is a generated clickstream event. Year, Month and Day are those of
// Timestamp and are what the curated zone is partitioned by.
type Event struct {
	Timestamp string                 `json:"timestamp"`
	UserID    int                    `json:"user_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
	Year      int                    `json:"year"`
	Month     int                    `json:"month"`
	Day       int                    `json:"day"`
}

// EventTypes are the generated event types, most common first.
var EventTypes = []string{"page_view", "click", "scroll", "add_to_cart", "purchase"}

var pages = []string{"/", "/search", "/product", "/cart", "/checkout", "/account"}

// EventGenerator generates random events with timestamps increasing from a
// start time.
type EventGenerator struct {
	g     *gen.Generator
	start time.Time
}

// NewEventGenerator gets a new EventGenerator. The same seed and start give
// the same events.
func NewEventGenerator(seed int64, start time.Time) *EventGenerator {
	return &EventGenerator{
		g:     gen.NewGenerator(seed),
		start: start.UTC(),
	}
}

// Event generates a random event.
func (g *EventGenerator) Event() *Event {
	ts := g.g.Time(g.start, time.Second*3)
	typ := EventTypes[g.g.Uint64(len(EventTypes))]
	data := map[string]interface{}{
		"page":    pages[g.g.Uint64(len(pages))],
		"session": g.g.String(12, 100000),
	}
	switch typ {
	case "add_to_cart", "purchase":
		data["sku"] = g.g.String(8, 1000)
		data["quantity"] = g.g.Intn(4) + 1
	case "scroll":
		data["depth"] = g.g.Intn(101)
	}
	return &Event{
		Timestamp: ts.Format(time.RFC3339),
		UserID:    int(g.g.Uint64(1000000)) + 1,
		EventType: typ,
		Data:      data,
		Year:      ts.Year(),
		Month:     int(ts.Month()),
		Day:       ts.Day(),
	}
}
