package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	lodging "github.com/goliatone/go-lodging"
	"github.com/goliatone/go-lodging/provider/openid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := lodging.LoadConfig()
	if err != nil {
		return err
	}

	logger := stdLogger{}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := createTables(ctx, db); err != nil {
		return err
	}

	repo := lodging.NewRepositoryManager(db)
	repo.MustValidate()

	verifier, err := openid.NewVerifier(openid.Config{
		Issuer:  cfg.ProviderISS,
		JWKSURL: cfg.JWKSURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer verifier.Close()

	tokens := lodging.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSessionTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)

	hub := lodging.NewActivityHub(lodging.WithActivityHubLogger(logger))
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	go func() {
		for event := range events {
			logger.Info("activity: %s account=%s actor=%s",
				event.EventType, event.AccountID, event.Actor.ID)
		}
	}()

	machine := lodging.NewApplicationStateMachine(repo,
		lodging.WithStateMachineActivitySink(hub),
		lodging.WithStateMachineLogger(logger),
	)

	controller := lodging.NewPortalController(func(c *lodging.PortalController) *lodging.PortalController {
		c.Debug = cfg.Debug
		c.Logger = logger
		c.Repo = repo
		c.Verifier = verifier
		c.Tokens = tokens
		c.Machine = machine
		c.Activity = hub
		c.CookieName = cfg.GetCookieName()
		c.SecureCookies = cfg.GetSecureCookies()
		c.LoginRoute = cfg.GetLoginRoute()
		c.ForbiddenRoute = cfg.GetForbiddenRoute()
		c.ProtectedPrefix = cfg.GetProtectedPrefix()
		return c
	})

	app := fiber.New(fiber.Config{
		AppName: "lodging",
	})
	controller.RegisterRoutes(app)

	errs := make(chan error, 1)
	go func() {
		errs <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func createTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*lodging.Account)(nil),
		(*lodging.Application)(nil),
		(*lodging.CommunicationEntry)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) { log.Printf("[DBG] "+format, args...) }
func (stdLogger) Info(format string, args ...any)  { log.Printf("[INF] "+format, args...) }
func (stdLogger) Warn(format string, args ...any)  { log.Printf("[WRN] "+format, args...) }
func (stdLogger) Error(format string, args ...any) { log.Printf("[ERR] "+format, args...) }
