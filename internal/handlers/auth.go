package handlers

import (
	"errors"
	"net/http"

	"smartbin/internal/service"

	"github.com/gin-gonic/gin"
)

// No binding tag on Password: a missing or empty password is still a
// credential, and the comparison in the service turns it into a 401.
type authRequest struct {
	Password string `json:"password"`
}

// @Summary      Issue a dashboard session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authRequest  true  "Shared dashboard password"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth [post]
func (h *Handler) authenticate(c *gin.Context) {
	var input authRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		if h.log != nil {
			h.log.Infow("auth_bad_request_body", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.services.IssueToken(input.Password)
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			// fail closed and say why: this is an operator mistake
			h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "auth_not_configured", err)
			return
		}
		if h.log != nil {
			h.log.Infow("auth_failed", "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
