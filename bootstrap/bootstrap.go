package bootstrap

import (
	"context"

	"farmoracle-backend/internal/config"
	"farmoracle-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deployment (api handler imports
// this package, not internal). The event relay runs in the background for
// the life of the instance.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	go func() { _ = rt.Relay.Run(context.Background()) }()
	return app, nil
}
