package models

import "time"

// Unit operating modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Derived lid states.
const (
	LidOpen   = "open"
	LidClosed = "closed"
)

// Bin is one monitored unit of the fixed-array deployment. Row identity is
// assigned when the fleet is provisioned; this service never creates bins.
type Bin struct {
	ID             int       `json:"id"`
	DistanceCM     float64   `json:"distance_cm"`
	LidStatus      string    `json:"lid_status"` // open | closed
	Mode           string    `json:"mode"`       // auto | manual
	ManualOpen     bool      `json:"manual_open"`
	ThresholdCM    float64   `json:"threshold_cm"`
	DeviceLastSeen time.Time `json:"device_last_seen,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BinCommand is the per-unit slice of authoritative state the device polls
// for. The device cannot be dialed, so this is the only control channel.
type BinCommand struct {
	ID          int     `json:"id"`
	Mode        string  `json:"mode"`
	ThresholdCM float64 `json:"threshold_cm"`
	ManualOpen  bool    `json:"manual_open"`
}
