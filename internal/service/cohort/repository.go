package cohort

import (
	"context"
	"time"
)

// Event is one delivery as the engine sees it.
type Event struct {
	EntityName   string
	DeliveryDate string
	Week         string
	OrderCode    string
	Hub          string
	ClientName   string
	ProjectName  string
}

// RosterEntry is one roster row reduced to what the weekly view needs.
// Date is the registration date, or the creation time when registration
// could not be parsed.
type RosterEntry struct {
	Name   string
	Status string
	Date   time.Time
}

// EventFilter narrows an event scan. Zero fields match everything. It is a
// hint: the engine re-checks every event it receives.
type EventFilter struct {
	Year  int
	Month time.Month
	Week  string
}

// Repository defines the data access contract for cohort analytics.
type Repository interface {
	// EachEvent calls fn for every shipment whose rider name and delivery
	// date are not the "-" sentinel, in upload order. A non-nil error from
	// fn stops the scan and is returned.
	EachEvent(ctx context.Context, f EventFilter, fn func(Event) error) error

	// Roster returns every roster entry that has a cohort date.
	Roster(ctx context.Context) ([]RosterEntry, error)
}
