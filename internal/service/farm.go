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

// FarmService reconciles the sensor/servo deployment. Same protocol shape as
// BinService, parameterized by the generic sensor/servo schema plus the
// singleton device record that carries the global mode.
type FarmService struct {
	sensors repository.SensorRepo
	servos  repository.ServoRepo
	device  repository.DeviceRepo
	logs    repository.LogRepo
	log     *logger.Logger
}

func NewFarmService(
	sensors repository.SensorRepo,
	servos repository.ServoRepo,
	device repository.DeviceRepo,
	logs repository.LogRepo,
	log *logger.Logger,
) *FarmService {
	return &FarmService{sensors: sensors, servos: servos, device: device, logs: logs, log: log}
}

var _ Reconciler = (*FarmService)(nil)

// Snapshot returns sensors, servos, and the singleton device record.
func (s *FarmService) Snapshot(ctx context.Context) (Snapshot, error) {
	sensors, err := s.sensors.List(ctx)
	if err != nil {
		return nil, err
	}
	servos, err := s.servos.List(ctx)
	if err != nil {
		return nil, err
	}
	device, err := s.device.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Snapshot{"sensors": sensors, "servos": servos, "device": device}, nil
}

// Apply dispatches one dashboard command.
func (s *FarmService) Apply(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case "set_mode":
		return s.setMode(ctx, cmd.Payload)
	case "set_all_mode":
		return s.setAllMode(ctx, cmd.Payload)
	case "set_threshold":
		return s.setThreshold(ctx, cmd.Payload)
	case "set_servo":
		return s.setServo(ctx, cmd.Payload)
	default:
		return validationf("unknown action %q", cmd.Action)
	}
}

func (s *FarmService) setMode(ctx context.Context, payload json.RawMessage) error {
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
	if err := s.sensors.SetMode(ctx, p.ID, p.Mode, now); err != nil {
		return err
	}
	return s.logs.Append(ctx, models.LogEntry{
		UnitID:    p.ID,
		Action:    models.ActionModeChanged,
		Detail:    "changed to " + p.Mode,
		CreatedAt: now,
	})
}

// setAllMode switches every sensor and the global device record.
func (s *FarmService) setAllMode(ctx context.Context, payload json.RawMessage) error {
	var mode string
	if err := json.Unmarshal(payload, &mode); err != nil {
		return validationf("bad set_all_mode payload: %v", err)
	}
	if !validMode(mode) {
		return validationf("mode must be auto or manual")
	}

	now := time.Now().UTC()
	if err := s.sensors.SetAllModes(ctx, mode, now); err != nil {
		return err
	}
	if err := s.device.SetMode(ctx, mode, now); err != nil {
		return err
	}

	sensors, err := s.sensors.List(ctx)
	if err != nil {
		return err
	}
	for _, sn := range sensors {
		if err := s.logs.Append(ctx, models.LogEntry{
			UnitID:    sn.ID,
			Action:    models.ActionModeChanged,
			Detail:    "all changed to " + mode,
			CreatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FarmService) setThreshold(ctx context.Context, payload json.RawMessage) error {
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
	if err := s.sensors.SetThreshold(ctx, p.ID, *p.ThresholdCM, now); err != nil {
		return err
	}
	return s.logs.Append(ctx, models.LogEntry{
		UnitID:    p.ID,
		Action:    models.ActionThresholdChanged,
		Detail:    fmt.Sprintf("set to %g cm", *p.ThresholdCM),
		CreatedAt: now,
	})
}

// setServo is a partial update: absent fields leave the stored values alone.
func (s *FarmService) setServo(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		ID      int   `json:"id"`
		Angle   *int  `json:"angle"`
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationf("bad set_servo payload: %v", err)
	}
	if p.Angle == nil && p.Enabled == nil {
		return validationf("set_servo needs angle or enabled")
	}
	return s.servos.Update(ctx, p.ID, p.Angle, p.Enabled, time.Now().UTC())
}

// farmReport is the device-side POST body; the farm controller reports
// distances only.
type farmReport struct {
	Sensors []struct {
		ID         int     `json:"id"`
		DistanceCM float64 `json:"distance_cm"`
	} `json:"sensors"`
}

// Ingest records sensor readings, deriving lid status from the stored
// threshold, and answers with the global mode plus per-sensor thresholds and
// per-servo commands.
func (s *FarmService) Ingest(ctx context.Context, report json.RawMessage) (Snapshot, error) {
	var body farmReport
	if err := json.Unmarshal(report, &body); err != nil {
		return nil, validationf("bad device report: %v", err)
	}

	now := time.Now().UTC()
	for _, rep := range body.Sensors {
		prior, err := s.sensors.Get(ctx, rep.ID)
		if err != nil {
			return nil, err
		}
		if prior == nil {
			if s.log != nil {
				s.log.Warnw("device reported unknown unit", "unit_id", rep.ID)
			}
			continue
		}

		lidStatus := models.LidClosed
		if rep.DistanceCM <= prior.ThresholdCM {
			lidStatus = models.LidOpen
		}

		if _, err := s.sensors.RecordReading(ctx, rep.ID, rep.DistanceCM, lidStatus, now); err != nil {
			return nil, err
		}

		if prior.LidStatus != lidStatus {
			action := models.ActionLidClosed
			if lidStatus == models.LidOpen {
				action = models.ActionLidOpened
			}
			if err := s.logs.Append(ctx, models.LogEntry{
				UnitID:    rep.ID,
				Action:    action,
				Detail:    fmt.Sprintf("distance %.1f cm", rep.DistanceCM),
				CreatedAt: now,
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := s.device.Touch(ctx, now); err != nil {
		return nil, err
	}

	device, err := s.device.Load(ctx)
	if err != nil {
		return nil, err
	}
	sensors, err := s.sensors.List(ctx)
	if err != nil {
		return nil, err
	}
	servos, err := s.servos.List(ctx)
	if err != nil {
		return nil, err
	}

	thresholds := make([]map[string]any, 0, len(sensors))
	for _, sn := range sensors {
		thresholds = append(thresholds, map[string]any{
			"id":           sn.ID,
			"mode":         sn.Mode,
			"threshold_cm": sn.ThresholdCM,
		})
	}
	cmds := make([]models.ServoCommand, 0, len(servos))
	for _, sv := range servos {
		cmds = append(cmds, models.ServoCommand{ID: sv.ID, Angle: sv.Angle, Enabled: sv.Enabled})
	}

	return Snapshot{"mode": device.Mode, "sensors": thresholds, "servos": cmds}, nil
}
