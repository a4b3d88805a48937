package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventsvc "farmoracle-backend/internal/application/events"
	"farmoracle-backend/internal/config"
	"farmoracle-backend/internal/infrastructure/database"
	"farmoracle-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "farmoracle-api",
		Usage: "crop listing ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", Usage: "overrides DATABASE_URL", EnvVars: []string{"DATABASE_URL"}},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API and the event relay", Action: serve},
			{Name: "migrate", Usage: "create or update the ledger tables", Action: migrate},
			{Name: "verify", Usage: "recompute the event hash chain", Action: verify},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}

func load(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s := c.String("database-url"); s != "" {
		cfg.DatabaseURL = s
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func serve(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		return fmt.Errorf("app create: %w", err)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server running")
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		return rt.Relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Deliver whatever committed during shutdown.
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if n, err := rt.Relay.Flush(flushCtx); err != nil {
		log.Warn().Err(err).Int("delivered", n).Msg("final relay flush")
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func verify(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	res, err := (&eventsvc.Service{DB: db}).Verify(c.Context)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("event chain broken at seq %d: %s", *res.BrokenAt, res.Reason)
	}
	log.Info().Uint64("checked", res.Checked).Str("head", res.Head).Msg("event chain verified")
	return nil
}
