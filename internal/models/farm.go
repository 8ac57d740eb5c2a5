package models

import "time"

// Sensor is one monitored unit of the sensor/servo deployment. Unlike a Bin
// the device reports no raw lid flag; lid status is derived from distance
// against the configured threshold.
type Sensor struct {
	ID             int       `json:"id"`
	DistanceCM     float64   `json:"distance_cm"`
	LidStatus      string    `json:"lid_status"`
	Mode           string    `json:"mode"`
	ThresholdCM    float64   `json:"threshold_cm"`
	DeviceLastSeen time.Time `json:"device_last_seen,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Servo is a commanded actuator.
type Servo struct {
	ID        int       `json:"id"`
	Angle     int       `json:"angle"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServoCommand is the actuator slice of the device poll response.
type ServoCommand struct {
	ID      int  `json:"id"`
	Angle   int  `json:"angle"`
	Enabled bool `json:"enabled"`
}

// DeviceRecord is the singleton row holding the global mode and the last
// time the farm controller phoned home.
type DeviceRecord struct {
	ID        int       `json:"id"`
	Mode      string    `json:"mode"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
