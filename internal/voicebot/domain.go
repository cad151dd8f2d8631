package voicebot

import (
	"errors"
	"time"
)

// PageSize is the fixed number of calls per listing page.
const PageSize = 10

// MaxExportRows caps a single export, matching the audit export limit.
const MaxExportRows = 10000

// ErrNotFound is returned when no call has the requested id.
var ErrNotFound = errors.New("voicebot: not found")

// Call is one inbound voicebot call record.
type Call struct {
	ID                   string    `json:"id"`
	CLI                  string    `json:"cli"`
	ReceivedAt           time.Time `json:"receivedAt"`
	Language             *string   `json:"language"`
	QueryType            *string   `json:"queryType"`
	TicketsIdentified    int       `json:"ticketsIdentified"`
	TransferredToIVR     bool      `json:"transferredToIvr"`
	DurationSeconds      *int      `json:"durationSeconds"`
	CallResolutionStatus *string   `json:"callResolutionStatus"`
}

// Summary is the listing projection of a Call.
type Summary struct {
	ID                string    `json:"id"`
	CLI               string    `json:"cli"`
	ReceivedAt        time.Time `json:"receivedAt"`
	Language          *string   `json:"language"`
	QueryType         *string   `json:"queryType"`
	TicketsIdentified int       `json:"ticketsIdentified"`
	TransferredToIVR  bool      `json:"transferredToIvr"`
}

// SummaryOf projects c.
func SummaryOf(c Call) Summary {
	return Summary{
		ID:                c.ID,
		CLI:               c.CLI,
		ReceivedAt:        c.ReceivedAt,
		Language:          c.Language,
		QueryType:         c.QueryType,
		TicketsIdentified: c.TicketsIdentified,
		TransferredToIVR:  c.TransferredToIVR,
	}
}

// Page is one listing page with its pagination metadata.
type Page struct {
	Calls []Summary
	Total int
}
