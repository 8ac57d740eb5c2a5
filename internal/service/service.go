package service

import (
	"context"
	"encoding/json"
	"time"

	"smartbin/internal/logger"
	"smartbin/internal/repository"
)

// Authorization covers both trust paths: the dashboard password/token flow
// and the device shared secret.
type Authorization interface {
	IssueToken(password string) (string, error)
	VerifyToken(accessToken string) error
	VerifyDeviceSecret(secret string) bool
}

// Reconciler is the deployment-agnostic protocol: read a full snapshot,
// apply a dashboard command, ingest a device report and answer with the
// authoritative command state. Both deployments implement it; the HTTP layer
// is written once against this interface.
type Reconciler interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Apply(ctx context.Context, cmd Command) error
	Ingest(ctx context.Context, report json.RawMessage) (Snapshot, error)
}

// Liveness watches device last-seen timestamps in the background.
type Liveness interface {
	Run(ctx context.Context, tick time.Duration)
}

// Deployment selectors.
const (
	DeploymentBins = "bins"
	DeploymentFarm = "farm"
)

// Config carries everything the service layer needs from process
// configuration.
type Config struct {
	AccessPassword string
	JWTSecret      string
	DeviceSecret   string
	TokenTTL       time.Duration
	Deployment     string // bins | farm
	StaleAfter     time.Duration
}

type Service struct {
	Authorization
	Reconciler
	Liveness
}

// NewService wires the repository layer into concrete services. The
// reconciler is chosen by cfg.Deployment; anything unrecognized falls back
// to the bin-array model.
func NewService(repos *repository.Repository, cfg Config, log *logger.Logger) *Service {
	auth := NewAuthService(cfg)

	var rec Reconciler
	var seen LastSeenSource
	if cfg.Deployment == DeploymentFarm {
		rec = NewFarmService(repos.Sensors, repos.Servos, repos.Device, repos.Logs, log)
		seen = repos.Sensors
	} else {
		rec = NewBinService(repos.Bins, repos.Logs, log)
		seen = repos.Bins
	}

	return &Service{
		Authorization: auth,
		Reconciler:    rec,
		Liveness:      NewLivenessService(seen, cfg.StaleAfter, log),
	}
}
