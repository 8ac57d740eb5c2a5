package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"smartbin/internal/models"
)

type fakeSensorRepo struct {
	sensors []models.Sensor

	modeCalls      int
	allModeCalls   []string
	thresholdCalls []float64
	readings       []string
}

func (f *fakeSensorRepo) List(ctx context.Context) ([]models.Sensor, error) {
	return f.sensors, nil
}

func (f *fakeSensorRepo) Get(ctx context.Context, id int) (*models.Sensor, error) {
	for i := range f.sensors {
		if f.sensors[i].ID == id {
			s := f.sensors[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeSensorRepo) SetMode(ctx context.Context, id int, mode string, now time.Time) error {
	f.modeCalls++
	for i := range f.sensors {
		if f.sensors[i].ID == id {
			f.sensors[i].Mode = mode
		}
	}
	return nil
}

func (f *fakeSensorRepo) SetAllModes(ctx context.Context, mode string, now time.Time) error {
	f.allModeCalls = append(f.allModeCalls, mode)
	for i := range f.sensors {
		f.sensors[i].Mode = mode
	}
	return nil
}

func (f *fakeSensorRepo) SetThreshold(ctx context.Context, id int, thresholdCM float64, now time.Time) error {
	f.thresholdCalls = append(f.thresholdCalls, thresholdCM)
	return nil
}

func (f *fakeSensorRepo) RecordReading(ctx context.Context, id int, distanceCM float64, lidStatus string, now time.Time) (bool, error) {
	for i := range f.sensors {
		if f.sensors[i].ID == id {
			f.sensors[i].DistanceCM = distanceCM
			f.sensors[i].LidStatus = lidStatus
			f.readings = append(f.readings, lidStatus)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSensorRepo) LastSeen(ctx context.Context) (map[int]time.Time, error) {
	return nil, nil
}

type fakeServoRepo struct {
	servos  []models.Servo
	updates []struct {
		id      int
		angle   *int
		enabled *bool
	}
}

func (f *fakeServoRepo) List(ctx context.Context) ([]models.Servo, error) {
	return f.servos, nil
}

func (f *fakeServoRepo) Update(ctx context.Context, id int, angle *int, enabled *bool, now time.Time) error {
	f.updates = append(f.updates, struct {
		id      int
		angle   *int
		enabled *bool
	}{id, angle, enabled})
	return nil
}

type fakeDeviceRepo struct {
	record    models.DeviceRecord
	modeCalls []string
	touched   int
}

func (f *fakeDeviceRepo) Load(ctx context.Context) (models.DeviceRecord, error) {
	return f.record, nil
}

func (f *fakeDeviceRepo) SetMode(ctx context.Context, mode string, now time.Time) error {
	f.modeCalls = append(f.modeCalls, mode)
	f.record.Mode = mode
	return nil
}

func (f *fakeDeviceRepo) Touch(ctx context.Context, now time.Time) error {
	f.touched++
	f.record.LastSeen = now
	return nil
}

func newFarm(sensors *fakeSensorRepo, servos *fakeServoRepo, device *fakeDeviceRepo, logs *fakeLogRepo) *FarmService {
	return NewFarmService(sensors, servos, device, logs, nil)
}

func twoSensors() *fakeSensorRepo {
	return &fakeSensorRepo{sensors: []models.Sensor{
		{ID: 1, Mode: models.ModeAuto, LidStatus: models.LidClosed, ThresholdCM: 30},
		{ID: 2, Mode: models.ModeAuto, LidStatus: models.LidClosed, ThresholdCM: 30},
	}}
}

func TestFarmService_SetThreshold_AcceptsFractional(t *testing.T) {
	sensors := twoSensors()
	logs := &fakeLogRepo{}
	s := newFarm(sensors, &fakeServoRepo{}, &fakeDeviceRepo{}, logs)

	err := s.Apply(context.Background(), Command{
		Action:  "set_threshold",
		Payload: json.RawMessage(`{"id":2,"threshold_cm":7.5}`),
	})
	if err != nil {
		t.Fatalf("fractional threshold rejected: %v", err)
	}
	if len(sensors.thresholdCalls) != 1 || sensors.thresholdCalls[0] != 7.5 {
		t.Fatalf("expected 7.5 persisted, got %v", sensors.thresholdCalls)
	}

	err = s.Apply(context.Background(), Command{
		Action:  "set_threshold",
		Payload: json.RawMessage(`{"id":2,"threshold_cm":4.5}`),
	})
	if !IsValidation(err) {
		t.Fatalf("out-of-range threshold must fail validation, got %v", err)
	}
}

func TestFarmService_SetAllMode_UpdatesDeviceRecordAndLogsPerSensor(t *testing.T) {
	sensors := twoSensors()
	device := &fakeDeviceRepo{record: models.DeviceRecord{ID: 1, Mode: models.ModeAuto}}
	logs := &fakeLogRepo{}
	s := newFarm(sensors, &fakeServoRepo{}, device, logs)

	err := s.Apply(context.Background(), Command{Action: "set_all_mode", Payload: json.RawMessage(`"manual"`)})
	if err != nil {
		t.Fatalf("set_all_mode: %v", err)
	}
	if len(device.modeCalls) != 1 || device.modeCalls[0] != "manual" {
		t.Fatalf("global mode not updated: %v", device.modeCalls)
	}
	if len(logs.entries) != 2 {
		t.Fatalf("expected one entry per sensor, got %d", len(logs.entries))
	}
}

func TestFarmService_SetServo_PartialUpdate(t *testing.T) {
	servos := &fakeServoRepo{servos: []models.Servo{{ID: 1, Angle: 90, Enabled: true}}}
	s := newFarm(twoSensors(), servos, &fakeDeviceRepo{}, &fakeLogRepo{})

	// only angle supplied → enabled stays untouched
	err := s.Apply(context.Background(), Command{Action: "set_servo", Payload: json.RawMessage(`{"id":1,"angle":45}`)})
	if err != nil {
		t.Fatalf("set_servo: %v", err)
	}
	up := servos.updates[0]
	if up.angle == nil || *up.angle != 45 {
		t.Fatalf("angle not passed: %+v", up)
	}
	if up.enabled != nil {
		t.Fatalf("absent enabled must stay nil: %+v", up)
	}

	// only enabled supplied
	err = s.Apply(context.Background(), Command{Action: "set_servo", Payload: json.RawMessage(`{"id":1,"enabled":false}`)})
	if err != nil {
		t.Fatalf("set_servo: %v", err)
	}
	up = servos.updates[1]
	if up.angle != nil || up.enabled == nil || *up.enabled {
		t.Fatalf("bad partial update: %+v", up)
	}

	// neither field → validation error
	err = s.Apply(context.Background(), Command{Action: "set_servo", Payload: json.RawMessage(`{"id":1}`)})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFarmService_UnknownAction_IncludesManualLid(t *testing.T) {
	s := newFarm(twoSensors(), &fakeServoRepo{}, &fakeDeviceRepo{}, &fakeLogRepo{})
	// manual_lid belongs to the bin deployment only
	err := s.Apply(context.Background(), Command{Action: "manual_lid", Payload: json.RawMessage(`{"id":1,"open":true}`)})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFarmService_Ingest_DerivesLidAndLogsTransitions(t *testing.T) {
	sensors := twoSensors()
	device := &fakeDeviceRepo{record: models.DeviceRecord{ID: 1, Mode: models.ModeAuto}}
	logs := &fakeLogRepo{}
	s := newFarm(sensors, &fakeServoRepo{servos: []models.Servo{{ID: 1, Angle: 10, Enabled: true}}}, device, logs)

	// distance above threshold → still closed, no log
	resp, err := s.Ingest(context.Background(), json.RawMessage(`{"sensors":[{"id":1,"distance_cm":50}]}`))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(logs.entries) != 0 {
		t.Fatalf("no transition expected, got %+v", logs.entries)
	}
	if device.touched != 1 {
		t.Fatalf("device record must be touched per report")
	}
	if resp["mode"] != models.ModeAuto {
		t.Fatalf("response must carry the global mode, got %v", resp["mode"])
	}
	if cmds := resp["servos"].([]models.ServoCommand); len(cmds) != 1 || cmds[0].Angle != 10 {
		t.Fatalf("bad servo commands: %#v", resp["servos"])
	}

	// distance at/below threshold → derived open, exactly one log
	if _, err := s.Ingest(context.Background(), json.RawMessage(`{"sensors":[{"id":1,"distance_cm":20}]}`)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(logs.entries) != 1 || logs.entries[0].Action != models.ActionLidOpened {
		t.Fatalf("expected one lid_opened entry, got %+v", logs.entries)
	}

	// unknown sensor id → no-op
	if _, err := s.Ingest(context.Background(), json.RawMessage(`{"sensors":[{"id":9,"distance_cm":1}]}`)); err != nil {
		t.Fatalf("unknown unit must not error: %v", err)
	}
	if len(logs.entries) != 1 {
		t.Fatalf("unknown unit must not log")
	}
}

func TestFarmService_Snapshot(t *testing.T) {
	sensors := twoSensors()
	device := &fakeDeviceRepo{record: models.DeviceRecord{ID: 1, Mode: models.ModeAuto}}
	s := newFarm(sensors, &fakeServoRepo{servos: []models.Servo{{ID: 1}}}, device, &fakeLogRepo{})

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := snap["sensors"].([]models.Sensor); len(got) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(got))
	}
	if got := snap["servos"].([]models.Servo); len(got) != 1 {
		t.Fatalf("expected 1 servo, got %d", len(got))
	}
	if got := snap["device"].(models.DeviceRecord); got.Mode != models.ModeAuto {
		t.Fatalf("bad device record: %+v", got)
	}
}
