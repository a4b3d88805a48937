package events

import (
	"math"
	"strconv"

	eventsvc "farmoracle-backend/internal/application/events"
	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *eventsvc.Service
}

// GET /api/v1/events?after=&limit=
// after is exclusive; without it the log is read from seq 0.
func (h *Handlers) List(c *fiber.Ctx) error {
	var from uint64
	if s := c.Query("after"); s != "" {
		after, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return response.Error(c, "Invalid after", fiber.StatusBadRequest, nil)
		}
		if after == math.MaxUint64 {
			return response.Success(c, "Events fetched", []interface{}{}, fiber.Map{"count": 0})
		}
		from = after + 1
	}
	limit := c.QueryInt("limit", eventsvc.DefaultPageSize)
	if limit <= 0 {
		return response.Error(c, "Invalid limit", fiber.StatusBadRequest, nil)
	}
	evs, err := h.Service.List(c.UserContext(), from, limit)
	if err != nil {
		return err
	}
	meta := fiber.Map{"count": len(evs)}
	if len(evs) > 0 {
		meta["last_seq"] = evs[len(evs)-1].Seq
	}
	return response.Success(c, "Events fetched", evs, meta)
}

// GET /api/v1/events/verify
func (h *Handlers) Verify(c *fiber.Ctx) error {
	res, err := h.Service.Verify(c.UserContext())
	if err != nil {
		return err
	}
	if !res.Valid {
		return response.Error(c, "Event chain broken", fiber.StatusConflict, res)
	}
	return response.Success(c, "Event chain verified", res, nil)
}
