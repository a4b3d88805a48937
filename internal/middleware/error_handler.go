package middleware

import (
	"context"
	"encoding/json"
	"time"

	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// ErrorHandler returns the global error handler. Returns the standard error
// format; unexpected errors are logged and, when rdb is set, pushed onto the
// capped error log shown by the health dashboard.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
			if rdb != nil {
				recordError(rdb, c, err)
			}
		}
		return response.Error(c, message, code, nil)
	}
}

func recordError(rdb *redis.Client, c *fiber.Ctx, err error) {
	b, _ := json.Marshal(map[string]interface{}{
		"time":     time.Now().UTC(),
		"method":   c.Method(),
		"path":     c.Path(),
		"trace_id": GetTraceID(c),
		"error":    err.Error(),
	})
	ctx := context.Background()
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, KeyErrorLog, b)
	pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Warn().Err(perr).Msg("record error log")
	}
}
