package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"smartbin/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	issueToken string
	issueErr   error
	verifyErr  error
	deviceOK   bool

	lastPassword     string
	lastVerifyToken  string
	lastDeviceSecret string
}

func (m *mockAuth) IssueToken(password string) (string, error) {
	m.lastPassword = password
	return m.issueToken, m.issueErr
}

func (m *mockAuth) VerifyToken(token string) error {
	m.lastVerifyToken = token
	return m.verifyErr
}

func (m *mockAuth) VerifyDeviceSecret(secret string) bool {
	m.lastDeviceSecret = secret
	return m.deviceOK
}

type mockReconciler struct {
	snapshot    service.Snapshot
	snapshotErr error
	applyErr    error
	ingestResp  service.Snapshot
	ingestErr   error

	snapshotCalls int
	applyCalls    int
	ingestCalls   int
	lastCommand   service.Command
	lastReport    json.RawMessage
}

func (m *mockReconciler) Snapshot(ctx context.Context) (service.Snapshot, error) {
	m.snapshotCalls++
	return m.snapshot, m.snapshotErr
}

func (m *mockReconciler) Apply(ctx context.Context, cmd service.Command) error {
	m.applyCalls++
	m.lastCommand = cmd
	return m.applyErr
}

func (m *mockReconciler) Ingest(ctx context.Context, report json.RawMessage) (service.Snapshot, error) {
	m.ingestCalls++
	m.lastReport = report
	return m.ingestResp, m.ingestErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
