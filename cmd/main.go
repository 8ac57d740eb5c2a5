package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartbin/internal/handlers"
	"smartbin/internal/logger"
	"smartbin/internal/repository"
	"smartbin/internal/server"
	"smartbin/internal/service"

	"github.com/spf13/viper"
)

const defaultLivenessTick = 30 * time.Second

func main() {
	// load config.yml first so the log level comes from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log_level"))

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	cfg := serviceConfig()
	services := service.NewService(repos, cfg, log)
	apiHandler := handlers.NewHandler(services, log)

	if cfg.AccessPassword == "" || cfg.JWTSecret == "" {
		log.Warnw("auth secrets missing; dashboard sign-in will fail closed")
	}

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the device liveness watcher
	go services.Liveness.Run(ctx, livenessTick())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	// secrets come from the environment, not the checked-in file
	viper.AutomaticEnv()
	for _, key := range []string{"access_password", "jwt_secret", "device_secret"} {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}
	return viper.ReadInConfig()
}

func serviceConfig() service.Config {
	return service.Config{
		AccessPassword: viper.GetString("access_password"),
		JWTSecret:      viper.GetString("jwt_secret"),
		DeviceSecret:   viper.GetString("device_secret"),
		TokenTTL:       viper.GetDuration("token_ttl"),
		Deployment:     viper.GetString("deployment"),
		StaleAfter:     viper.GetDuration("liveness.stale_after"),
	}
}

func livenessTick() time.Duration {
	if tick := viper.GetDuration("liveness.tick"); tick > 0 {
		return tick
	}
	return defaultLivenessTick
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "smartbin.db")
		dbPath = "smartbin.db"
	}
	db, err := repository.InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	if n := viper.GetInt("db.seed_units"); n > 0 {
		if err := repository.SeedUnits(db, n); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		// ErrServerClosed is the normal outcome of a graceful shutdown
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
