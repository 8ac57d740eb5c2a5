package models

import "time"

// Log entry action kinds.
const (
	ActionModeChanged      = "mode_changed"
	ActionThresholdChanged = "threshold_changed"
	ActionManualOpen       = "manual_open"
	ActionManualClose      = "manual_close"
	ActionLidOpened        = "lid_opened"
	ActionLidClosed        = "lid_closed"
)

// LogEntry is a single append-only record of an observed transition or an
// applied dashboard command. Entries are never updated or deleted.
type LogEntry struct {
	ID        string    `json:"id"`
	UnitID    int       `json:"unit_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
