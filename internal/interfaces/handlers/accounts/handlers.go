package accounts

import (
	"farmoracle-backend/internal/application/query"
	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *query.Service
}

// GET /api/v1/accounts/:account/balance
func (h *Handlers) Balance(c *fiber.Ctx) error {
	account := c.Params("account")
	balance, err := h.Service.Balance(c.UserContext(), account)
	if err != nil {
		return err
	}
	return response.Success(c, "Balance fetched", fiber.Map{"account": account, "balance": balance}, nil)
}

// GET /api/v1/accounts/:account/settlements
func (h *Handlers) Settlements(c *fiber.Ctx) error {
	out, err := h.Service.SettlementsOf(c.UserContext(), c.Params("account"))
	if err != nil {
		return err
	}
	return response.Success(c, "Settlements fetched", out, fiber.Map{"count": len(out)})
}
