package handlers

import (
	"net/http"

	"smartbin/internal/logger"
	"smartbin/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// unsupported verbs get a bare 405 with no body, not a 404; the status
	// must be written immediately or gin falls back to its text body
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) { c.AbortWithStatus(http.StatusMethodNotAllowed) })

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	router.POST("/auth", h.authenticate)

	// The single reconciliation endpoint. GET is dashboard-only; POST
	// dispatches per-actor inside the handler because the trust path
	// depends on the body's from_app flag.
	router.GET("/device", h.dashboardMiddleware, h.getDevice)
	router.POST("/device", h.postDevice)

	// Live snapshot stream (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
