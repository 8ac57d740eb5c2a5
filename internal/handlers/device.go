package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"smartbin/internal/service"

	"github.com/gin-gonic/gin"
)

// Header carrying the device shared secret.
const deviceSecretHeader = "X-Device-Secret"

// @Summary      Full dashboard snapshot
// @Description  All unit state plus recent logs (bins deployment) or sensors/servos/device record (farm deployment).
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /device [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	snap, err := h.services.Snapshot(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "snapshot_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// appCommand is the dashboard POST body.
type appCommand struct {
	FromApp bool            `json:"from_app"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// @Summary      Reconcile
// @Description  With from_app:true and a bearer token: dispatch a dashboard command. With the device secret header: ingest a readings report and return the authoritative command snapshot.
// @Tags         device
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /device [post]
func (h *Handler) postDevice(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Peek the flag first: the trust path depends on it. A body that is not
	// JSON at all falls through to the device path and fails its checks.
	var probe struct {
		FromApp bool `json:"from_app"`
	}
	_ = json.Unmarshal(body, &probe)

	if probe.FromApp {
		h.applyAppCommand(c, body)
		return
	}

	if h.services.VerifyDeviceSecret(c.GetHeader(deviceSecretHeader)) {
		h.ingestDeviceReport(c, body)
		return
	}

	c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
}

func (h *Handler) applyAppCommand(c *gin.Context, body []byte) {
	if !h.dashboardAuthorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}

	var cmd appCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	err := h.services.Apply(c.Request.Context(), service.Command{
		Action:  cmd.Action,
		Payload: cmd.Payload,
	})
	if err != nil {
		switch {
		case service.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUnitNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			// store failures surface verbatim
			h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "apply_command_failed", err, "action", cmd.Action)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ingestDeviceReport(c *gin.Context, body []byte) {
	resp, err := h.services.Ingest(c.Request.Context(), body)
	if err != nil {
		if service.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "ingest_report_failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
