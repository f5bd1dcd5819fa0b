package main

import (
	"context"
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
	"net/http"
	"os/signal"
	"sesami/cmd/internal/config"
	"sesami/cmd/internal/domain/postgres"
	"sesami/cmd/internal/domain/repository"
	"sesami/cmd/internal/domain/sqlite"
	"sesami/cmd/internal/routes"
	"sesami/cmd/internal/service"
	"sesami/cmd/internal/utils/retry"
	"syscall"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", err)
	}

	db, reader, dialect, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}

	validate := validator.New()

	// Getting repositories
	apptRepo := repository.NewAppointmentRepository(db, dialect).WithReader(reader)

	// Getting services
	engine := service.NewUpsertEngine(apptRepo, retry.NewPolicy(cfg.UpsertMaxRetries, cfg.UpsertRetryBaseDelay))
	apptService := service.NewAppointmentService(apptRepo, engine, validate, cfg.DefaultOrgID)

	// Getting routes
	apptRoutes := routes.NewAppointmentDefault(apptService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	apptRoutes.Register(e.Group("/api/v1"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		e.Logger.Infof("storage backend: %s", dialect.Name())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

// openDatabase returns the write pool and the pool used for reads. Postgres
// reads never block on row locks, so both are the same pool there.
func openDatabase(cfg *config.Config) (*gorm.DB, *gorm.DB, repository.Dialect, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		db, err := sqlite.Init(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		reader, err := sqlite.OpenReader(cfg.SQLitePath)
		return db, reader, repository.SQLite{}, err
	}
	db, err := postgres.Init(cfg.DatabaseDriver, cfg.DatabaseURL)
	return db, db, repository.Postgres{}, err
}
