package router

import (
	"context"
	"net/http"
	"time"

	eventsvc "farmoracle-backend/internal/application/events"
	ledgersvc "farmoracle-backend/internal/application/ledger"
	"farmoracle-backend/internal/application/query"
	"farmoracle-backend/internal/application/submission"
	"farmoracle-backend/internal/config"
	"farmoracle-backend/internal/infrastructure/database"
	"farmoracle-backend/internal/infrastructure/eventbus"
	accounthandler "farmoracle-backend/internal/interfaces/handlers/accounts"
	eventhandler "farmoracle-backend/internal/interfaces/handlers/events"
	healthhandler "farmoracle-backend/internal/interfaces/handlers/health"
	ledgerhandler "farmoracle-backend/internal/interfaces/handlers/ledger"
	listhandler "farmoracle-backend/internal/interfaces/handlers/listings"
	"farmoracle-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Runtime is what CreateApp opened; the caller owns its lifecycle.
type Runtime struct {
	DB    *gorm.DB
	Rdb   *redis.Client
	Relay *eventsvc.Relay
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() {
	if r.Rdb != nil {
		_ = r.Rdb.Close()
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Deps are the collaborators New wires into the app.
type Deps struct {
	DB             *gorm.DB
	Rdb            *redis.Client // optional
	Relay          *eventsvc.Relay
	Settler        ledgersvc.Settler
	CORS           middleware.CORSConfig
	HealthAdminKey string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// CreateApp opens the database (migrating it) and Redis when configured, and
// returns the wired app. The relay is returned unstarted.
func CreateApp(cfg *config.Config) (*fiber.App, *Runtime, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	rt := &Runtime{DB: db}

	var publisher eventsvc.Publisher = eventbus.LogPublisher{}
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rt.Rdb = redis.NewClient(opt)
		if err := rt.Rdb.Ping(context.Background()).Err(); err != nil {
			// Commits never wait on Redis; the relay retries until it is back.
			log.Warn().Err(err).Msg("redis unreachable at startup")
		}
		publisher = &eventbus.RedisPublisher{Rdb: rt.Rdb, Stream: cfg.EventStream, Channel: cfg.EventChannel}
	}
	rt.Relay = &eventsvc.Relay{
		DB:        db,
		Publisher: publisher,
		BatchSize: cfg.RelayBatchSize,
		Interval:  cfg.RelayInterval,
	}

	app := New(Deps{
		DB:    db,
		Rdb:   rt.Rdb,
		Relay: rt.Relay,
		CORS: middleware.CORSConfig{
			AllowedSuffix: cfg.FrontendURLEndsWith,
			DevPassword:   cfg.DevPassword,
		},
		HealthAdminKey: cfg.HealthAdminKey,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	})
	return app, rt, nil
}

// New builds the Fiber app over already opened dependencies.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(d.Rdb),
		EnableTrustedProxyCheck: true,
		UnescapePath:            true,
		ReadTimeout:             d.ReadTimeout,
		WriteTimeout:            d.WriteTimeout,
	})

	app.Use(middleware.CORS(d.CORS))
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.Signer())
	app.Use(middleware.RouteLogger())

	qs := &query.Service{DB: d.DB}
	es := &eventsvc.Service{DB: d.DB}

	hh := &healthhandler.Handlers{
		Rdb:            d.Rdb,
		DB:             database.Pinger{DB: d.DB},
		Ledger:         healthhandler.LedgerStats{Query: qs, Events: es},
		HealthAdminKey: d.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	// Ledger writes
	ls := &ledgersvc.Service{DB: d.DB, Settler: d.Settler}
	if d.Relay != nil {
		ls.Notifier = d.Relay
	}
	lh := &ledgerhandler.Handlers{Service: ls, Submission: &submission.Service{Ledger: ls}}
	lg := app.Group("/api/v1/ledger", middleware.RequireSigner())
	lg.Post("/list", lh.List)
	lg.Post("/buy", lh.Buy)
	lg.Post("/submit", lh.Submit)

	// Listings
	qh := &listhandler.Handlers{Service: qs}
	qg := app.Group("/api/v1/listings")
	qg.Get("/get-listing/:id", qh.GetListing)
	qg.Get("/get-owner-listings/:owner", qh.GetOwnerListings)
	qg.Get("/get-buyer-purchases/:buyer", qh.GetBuyerPurchases)
	qg.Get("/get-available-listings", qh.GetAvailableListings)
	qg.Get("/count", qh.Count)

	// Accounts
	ah := &accounthandler.Handlers{Service: qs}
	ag := app.Group("/api/v1/accounts")
	ag.Get("/:account/balance", ah.Balance)
	ag.Get("/:account/settlements", ah.Settlements)

	// Events
	eh := &eventhandler.Handlers{Service: es}
	eg := app.Group("/api/v1/events")
	eg.Get("/", eh.List)
	eg.Get("/verify", eh.Verify)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
