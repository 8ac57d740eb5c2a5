package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"smartbin/internal/models"
)

// Command is a dashboard-originated mutation: an action tag plus its raw
// payload, decoded per action by the reconciler.
type Command struct {
	Action  string
	Payload json.RawMessage
}

// Snapshot is the JSON-shaped state a deployment exposes; the HTTP layer
// serializes it as-is.
type Snapshot map[string]any

// ErrUnitNotFound marks an explicitly checked missing unit (manual_lid path).
var ErrUnitNotFound = errors.New("unit not found")

// ValidationError marks a client-side constraint violation; the HTTP layer
// maps it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Threshold bounds in distance units (cm).
const (
	MinThresholdCM = 5
	MaxThresholdCM = 200
)

// recentLogLimit bounds the log slice of the dashboard snapshot.
const recentLogLimit = 30

func validMode(mode string) bool {
	return mode == models.ModeAuto || mode == models.ModeManual
}
