package ledger

import (
	"bytes"
	"encoding/json"

	ledgersvc "farmoracle-backend/internal/application/ledger"
	"farmoracle-backend/internal/application/submission"
	"farmoracle-backend/internal/middleware"
	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service    *ledgersvc.Service
	Submission *submission.Service
}

type listBody struct {
	Description string `json:"description"`
	Quantity    *int64 `json:"quantity"`
	Price       *int64 `json:"price"`
}

type buyBody struct {
	ListingID *uint64 `json:"listing_id"`
	Payment   *int64  `json:"payment"`
}

// POST /api/v1/ledger/list
func (h *Handlers) List(c *fiber.Ctx) error {
	var body listBody
	if err := decodeBody(c, &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Quantity == nil || body.Price == nil {
		return response.Error(c, "quantity and price are required", fiber.StatusBadRequest, nil)
	}
	commit, err := h.Service.List(c.UserContext(), middleware.GetSigner(c), body.Description, *body.Quantity, *body.Price)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", commit.Listing, fiber.Map{
		"event_seq":  commit.Event.Seq,
		"event_hash": commit.Event.Hash,
	})
}

// POST /api/v1/ledger/buy
func (h *Handlers) Buy(c *fiber.Ctx) error {
	var body buyBody
	if err := decodeBody(c, &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.ListingID == nil || body.Payment == nil {
		return response.Error(c, "listing_id and payment are required", fiber.StatusBadRequest, nil)
	}
	commit, err := h.Service.Buy(c.UserContext(), middleware.GetSigner(c), *body.ListingID, *body.Payment)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing purchased successfully", fiber.Map{
		"listing":    commit.Listing,
		"settlement": commit.Settlement,
	}, fiber.Map{
		"event_seq":  commit.Event.Seq,
		"event_hash": commit.Event.Hash,
	})
}

// POST /api/v1/ledger/submit
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body struct {
		Operation submission.Operation `json:"operation"`
		Args      json.RawMessage      `json:"args"`
	}
	if err := decodeBody(c, &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	receipt, err := h.Submission.Submit(c.UserContext(), submission.Request{
		Operation: body.Operation,
		Args:      body.Args,
		Signer:    middleware.GetSigner(c),
	})
	if err != nil {
		return response.LedgerError(c, err)
	}
	if receipt.Operation == submission.OpList {
		return response.SuccessCreated(c, "Transaction committed", receipt, nil)
	}
	return response.Success(c, "Transaction committed", receipt, nil)
}

func decodeBody(c *fiber.Ctx, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
