package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Conversation is one stored transcription with its write-time timestamp.
type Conversation struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
}

// ConversationLog is a Conversation summary with its aggregated keywords,
// as returned by search and log-filter queries.
type ConversationLog struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
	Keywords  []string  `json:"keywords"`
}

// LogFilter holds the optional predicates for FilterLogs. All provided
// filters are ANDed. Dates are ISO days (YYYY-MM-DD), compared at calendar
// day granularity against the conversation timestamp; both bounds are
// inclusive. Keyword is an infix substring match against attached keywords.
type LogFilter struct {
	StartDate string
	EndDate   string
	Keyword   string
}
