package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/venue-booking/internal/config"
	"github.com/iliyamo/venue-booking/internal/database"
	"github.com/iliyamo/venue-booking/internal/handler"
	"github.com/iliyamo/venue-booking/internal/metrics"
	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/payment"
	"github.com/iliyamo/venue-booking/internal/queue"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/router"
	"github.com/iliyamo/venue-booking/internal/service"
)

const shutdownGrace = 10 * time.Second

func newLogger(env string) *log.Logger {
	logger := log.New("venue-booking")
	if env == "dev" {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}
	return logger
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context) error {
	cfg := config.Load()
	logger := newLogger(cfg.Env)
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Infof("schema applied to %s", cfg.DBName)
	return nil
}

func consume(ctx context.Context) error {
	ev := config.LoadEventsConfig()
	logger := newLogger(os.Getenv("APP_ENV"))
	c := &queue.Consumer{URL: ev.URL, Dir: ev.LogDir, Logger: logger}
	logger.Infof("consuming booking events into %s", ev.LogDir)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serve wires storage, services and HTTP routes and runs until ctx ends.
func serve(ctx context.Context) error {
	cfg := config.Load()
	logger := newLogger(cfg.Env)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	evCfg := config.LoadEventsConfig()
	var events service.EventPublisher
	if evCfg.Enabled {
		pub := queue.NewPublisher(evCfg.URL, logger)
		defer pub.Close()
		events = pub
	}

	// ---- repositories ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	venues := repository.NewVenueRepo(db)
	bookings := repository.NewBookingRepo(db)
	cancellations := repository.NewCanceledBookingRepo(db)
	notes := repository.NewNoteRepo(db)

	// ---- services ----
	ledger := service.NewLedger(bookings, venues, events, logger)
	recorder := service.NewRecorder(cancellations, bookings, venues, events, logger)
	catalog := service.NewCatalog(venues, ledger, logger)

	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb)
	purge := func(ctx context.Context) {
		if err := purger.Purge(ctx); err != nil {
			logger.Warnf("cache purge failed: %v", err)
		}
	}
	catalog.OnWrite(purge)
	ledger.OnWrite(purge)

	payCfg := config.LoadPaymentConfig()
	var gateway payment.Gateway
	if payCfg.Enabled() {
		breaker := payment.NewCircuitBreaker("khalti", payment.DefaultBreakerSettings())
		gateway = payment.NewKhalti(payCfg.BaseURL, payCfg.SecretKey, payCfg.WebsiteURL, payCfg.Timeout, breaker)
	} else {
		logger.Warn("PAYMENT_SECRET_KEY not set: payment initiation disabled")
	}
	payments := service.NewPayments(ledger, gateway, payCfg.ReturnURL, logger)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			logger.Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(metrics.HTTPMiddleware())
	// identity first so the limiter can key per user
	e.Use(middleware.OptionalJWT(cfg.JWTSecret))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Venues:        handler.NewVenueHandler(catalog),
		Bookings:      handler.NewBookingHandler(ledger, recorder),
		Cancellations: handler.NewCancellationHandler(recorder),
		Profiles:      handler.NewProfileHandler(profiles),
		Notes:         handler.NewNoteHandler(notes),
		Payments:      handler.NewPaymentHandler(payments),
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, h.Auth, cfg.JWTSecret)
	router.RegisterPublic(e, h, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterOwner(e, h.Venues, cfg.JWTSecret)
	router.RegisterCustomer(e, h, cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	addr := ":" + cfg.Port
	g.Go(func() error {
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if evCfg.Enabled && evCfg.StartWorker {
		consumer := &queue.Consumer{URL: evCfg.URL, Dir: evCfg.LogDir, Logger: logger}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
