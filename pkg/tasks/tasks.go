// Package tasks defines the events that are sent to Kafka.
package tasks

import "time"

// TurnRecorded is published after every successful completion.
// Persisted reports whether the turn reached the session store; the journal
// consumer re-applies the turns where it is false.
type TurnRecorded struct {
	SessionID     string    `json:"session_id"`
	Mode          string    `json:"mode"`
	StyleKey      string    `json:"style_key"`
	FrameworkKeys []string  `json:"framework_keys"`
	UserText      string    `json:"user_text"`
	AIText        string    `json:"ai_text"`
	UserAt        time.Time `json:"user_at"`
	AIAt          time.Time `json:"ai_at"`
	Persisted     bool      `json:"persisted"`
}
