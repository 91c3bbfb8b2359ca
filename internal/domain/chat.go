package domain

import "time"

// Feature distinguishes the two assistant modes a session can run in.
type Feature string

const (
	FeatureGeneral Feature = "general"
	FeatureSearch  Feature = "search"
)

// ChatSession is a user-visible conversation thread. It shares its id space
// with the agent registry's cache key but is a distinct concept: deleting a
// session must also invalidate the registry entry.
type ChatSession struct {
	ID        int64     `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Feature   Feature   `json:"feature"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is one persisted row of a conversation. A search turn is stored as two
// rows: the user row (Message set, Response empty) and the assistant row
// (Response set, later patched in place once enrichment completes).
type Chat struct {
	ID          int64     `json:"chat_id"`
	SessionID   int64     `json:"session_id"`
	UserID      *int64    `json:"user_id,omitempty"` // nil for assistant rows
	Feature     Feature   `json:"feature"`
	Message     string    `json:"message,omitempty"`
	Response    string    `json:"response,omitempty"`
	SearchSteps []string  `json:"search_steps,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TimeFormat is the wire format for chat timestamps.
const TimeFormat = "2006-01-02 15:04:05"
