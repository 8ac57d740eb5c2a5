package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartbin/internal/logger"
	"smartbin/internal/models"
	"smartbin/internal/repository"
)

// BinService reconciles the fixed bin-array deployment: full snapshots for
// the dashboard, command dispatch from it, and report ingestion from the
// device. It holds no state of its own; every call is a set of independent
// row operations with last-write-wins semantics.
type BinService struct {
	bins repository.BinRepo
	logs repository.LogRepo
	log  *logger.Logger
}

func NewBinService(bins repository.BinRepo, logs repository.LogRepo, log *logger.Logger) *BinService {
	return &BinService{bins: bins, logs: logs, log: log}
}

var _ Reconciler = (*BinService)(nil)

// Snapshot returns every bin plus the most recent log entries, newest first.
func (s *BinService) Snapshot(ctx context.Context) (Snapshot, error) {
	bins, err := s.bins.List(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListRecent(ctx, recentLogLimit)
	if err != nil {
		return nil, err
	}
	return Snapshot{"bins": bins, "logs": logs}, nil
}

// Apply dispatches one dashboard command.
func (s *BinService) Apply(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case "set_mode":
		return s.setMode(ctx, cmd.Payload)
	case "set_all_mode":
		return s.setAllMode(ctx, cmd.Payload)
	case "set_threshold":
		return s.setThreshold(ctx, cmd.Payload)
	case "manual_lid":
		return s.manualLid(ctx, cmd.Payload)
	default:
		return validationf("unknown action %q", cmd.Action)
	}
}

func (s *BinService) setMode(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		ID   int    `json:"id"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationf("bad set_mode payload: %v", err)
	}
	if !validMode(p.Mode) {
		return validationf("mode must be auto or manual")
	}

	now := time.Now().UTC()
	// auto takes back control: any pending manual-open is cleared
	if err := s.bins.SetMode(ctx, p.ID, p.Mode, p.Mode == models.ModeAuto, now); err != nil {
		return err
	}
	return s.logs.Append(ctx, models.LogEntry{
		UnitID:    p.ID,
		Action:    models.ActionModeChanged,
		Detail:    "changed to " + p.Mode,
		CreatedAt: now,
	})
}

func (s *BinService) setAllMode(ctx context.Context, payload json.RawMessage) error {
	var mode string
	if err := json.Unmarshal(payload, &mode); err != nil {
		return validationf("bad set_all_mode payload: %v", err)
	}
	if !validMode(mode) {
		return validationf("mode must be auto or manual")
	}

	now := time.Now().UTC()
	if err := s.bins.SetAllModes(ctx, mode, mode == models.ModeAuto, now); err != nil {
		return err
	}

	// exactly one entry per unit, even for the batch form
	bins, err := s.bins.List(ctx)
	if err != nil {
		return err
	}
	for _, b := range bins {
		if err := s.logs.Append(ctx, models.LogEntry{
			UnitID:    b.ID,
			Action:    models.ActionModeChanged,
			Detail:    "all changed to " + mode,
			CreatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *BinService) setThreshold(ctx context.Context, payload json.RawMessage) error {
	// threshold_cm is any JSON number in range, not just an integer
	var p struct {
		ID          int      `json:"id"`
		ThresholdCM *float64 `json:"threshold_cm"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationf("bad set_threshold payload: %v", err)
	}
	if p.ThresholdCM == nil {
		return validationf("threshold_cm must be a number")
	}
	if *p.ThresholdCM < MinThresholdCM || *p.ThresholdCM > MaxThresholdCM {
		return validationf("threshold must be between %d and %d cm", MinThresholdCM, MaxThresholdCM)
	}

	now := time.Now().UTC()
	if err := s.bins.SetThreshold(ctx, p.ID, *p.ThresholdCM, now); err != nil {
		return err
	}
	return s.logs.Append(ctx, models.LogEntry{
		UnitID:    p.ID,
		Action:    models.ActionThresholdChanged,
		Detail:    fmt.Sprintf("set to %g cm", *p.ThresholdCM),
		CreatedAt: now,
	})
}

func (s *BinService) manualLid(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		ID   int  `json:"id"`
		Open bool `json:"open"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationf("bad manual_lid payload: %v", err)
	}

	bin, err := s.bins.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if bin == nil {
		return ErrUnitNotFound
	}
	if bin.Mode != models.ModeManual {
		return validationf("bin %d is not in manual mode", p.ID)
	}

	now := time.Now().UTC()
	if err := s.bins.SetManualOpen(ctx, p.ID, p.Open, now); err != nil {
		return err
	}
	action := models.ActionManualClose
	if p.Open {
		action = models.ActionManualOpen
	}
	return s.logs.Append(ctx, models.LogEntry{
		UnitID:    p.ID,
		Action:    action,
		Detail:    "manual control",
		CreatedAt: now,
	})
}

// binReport is the device-side POST body.
type binReport struct {
	Bins []struct {
		ID         int     `json:"id"`
		DistanceCM float64 `json:"distance_cm"`
		LidOpen    bool    `json:"lid_open"`
	} `json:"bins"`
}

// Ingest records the readings of one device poll and answers with the
// authoritative per-bin command state. A lid transition appends exactly one
// log entry; an unchanged status appends none. Unknown unit ids are no-ops
// (the device has nothing to act on), only warned about.
func (s *BinService) Ingest(ctx context.Context, report json.RawMessage) (Snapshot, error) {
	var body binReport
	if err := json.Unmarshal(report, &body); err != nil {
		return nil, validationf("bad device report: %v", err)
	}

	now := time.Now().UTC()
	for _, b := range body.Bins {
		lidStatus := models.LidClosed
		if b.LidOpen {
			lidStatus = models.LidOpen
		}

		prior, err := s.bins.Get(ctx, b.ID)
		if err != nil {
			return nil, err
		}

		matched, err := s.bins.RecordReading(ctx, b.ID, b.DistanceCM, lidStatus, now)
		if err != nil {
			return nil, err
		}
		if !matched {
			if s.log != nil {
				s.log.Warnw("device reported unknown unit", "unit_id", b.ID)
			}
			continue
		}

		if prior != nil && prior.LidStatus != lidStatus {
			action := models.ActionLidClosed
			if lidStatus == models.LidOpen {
				action = models.ActionLidOpened
			}
			if err := s.logs.Append(ctx, models.LogEntry{
				UnitID:    b.ID,
				Action:    action,
				Detail:    fmt.Sprintf("distance %.1f cm", b.DistanceCM),
				CreatedAt: now,
			}); err != nil {
				return nil, err
			}
		}
	}

	cmds, err := s.bins.ListCommands(ctx)
	if err != nil {
		return nil, err
	}
	return Snapshot{"bins": cmds}, nil
}
