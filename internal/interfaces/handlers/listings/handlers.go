package listings

import (
	"strconv"

	"farmoracle-backend/internal/application/query"
	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *query.Service
}

// GET /api/v1/listings/get-listing/:id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/get-owner-listings/:owner
func (h *Handlers) GetOwnerListings(c *fiber.Ctx) error {
	ids, err := h.Service.ListingsOf(c.UserContext(), c.Params("owner"))
	if err != nil {
		return err
	}
	return h.ids(c, "Owner listings fetched", ids)
}

// GET /api/v1/listings/get-buyer-purchases/:buyer
func (h *Handlers) GetBuyerPurchases(c *fiber.Ctx) error {
	ids, err := h.Service.PurchasesOf(c.UserContext(), c.Params("buyer"))
	if err != nil {
		return err
	}
	return h.ids(c, "Buyer purchases fetched", ids)
}

// GET /api/v1/listings/get-available-listings
func (h *Handlers) GetAvailableListings(c *fiber.Ctx) error {
	ids, err := h.Service.Available(c.UserContext())
	if err != nil {
		return err
	}
	return h.ids(c, "Available listings fetched", ids)
}

// GET /api/v1/listings/count
func (h *Handlers) Count(c *fiber.Ctx) error {
	n, err := h.Service.Count(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, "Listing count fetched", fiber.Map{"count": n}, nil)
}

// ids sends the id list, or the full records in the same order when
// ?expand=true.
func (h *Handlers) ids(c *fiber.Ctx, message string, ids []uint64) error {
	meta := fiber.Map{"count": len(ids)}
	if !c.QueryBool("expand") {
		return response.Success(c, message, ids, meta)
	}
	listings, err := h.Service.Listings(c.UserContext(), ids)
	if err != nil {
		return err
	}
	return response.Success(c, message, listings, meta)
}
