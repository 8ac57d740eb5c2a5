package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartbin/internal/models"
	"smartbin/internal/service"

	"github.com/gorilla/websocket"
)

func TestWS_RejectsBadToken(t *testing.T) {
	r := newTestRouter(&service.Service{
		Authorization: &mockAuth{verifyErr: service.ErrInvalidToken},
		Reconciler:    &mockReconciler{},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=bad", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
}

func TestWS_StreamsSnapshots(t *testing.T) {
	rec := &mockReconciler{snapshot: service.Snapshot{
		"bins": []models.Bin{{ID: 1, Mode: models.ModeAuto}},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Reconciler: rec})

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=valid&interval_ms=500"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "snapshot" || env.Data == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if rec.snapshotCalls == 0 {
		t.Fatalf("snapshot never taken")
	}
}
