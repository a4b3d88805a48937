package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"farmoracle-backend/internal/application/ledger"
	"farmoracle-backend/internal/domain"
)

type Operation string

const (
	OpList Operation = "list"
	OpBuy  Operation = "buy"
)

// Request is a transition submitted on behalf of Signer. The signer is taken
// as authenticated by whatever relayed the request.
type Request struct {
	Operation Operation       `json:"operation"`
	Args      json.RawMessage `json:"args"`
	Signer    string          `json:"signer"`
}

type ListArgs struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
}

type BuyArgs struct {
	ListingID *uint64 `json:"listing_id"`
	Payment   int64   `json:"payment"`
}

// Receipt acknowledges a committed transition.
type Receipt struct {
	Operation   Operation `json:"operation"`
	ListingID   uint64    `json:"listing_id"`
	Signer      string    `json:"signer"`
	Seller      string    `json:"seller,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Overpayment int64     `json:"overpayment,omitempty"`
	EventSeq    uint64    `json:"event_seq"`
	EventHash   string    `json:"event_hash"`
	CommittedAt time.Time `json:"committed_at"`
}

// Ledger is the part of the ledger core the submission layer drives.
type Ledger interface {
	List(ctx context.Context, owner, description string, quantity, price int64) (*ledger.Commit, error)
	Buy(ctx context.Context, buyer string, id uint64, payment int64) (*ledger.Commit, error)
}

type Service struct {
	Ledger Ledger
}

// Submit decodes req.Args for the named operation and applies it as signer.
// Ledger errors are returned unchanged so callers can inspect their kind.
func (s *Service) Submit(ctx context.Context, req Request) (*Receipt, error) {
	switch req.Operation {
	case OpList:
		var args ListArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		c, err := s.Ledger.List(ctx, req.Signer, args.Description, args.Quantity, args.Price)
		if err != nil {
			return nil, err
		}
		return &Receipt{
			Operation:   OpList,
			ListingID:   c.Listing.ID,
			Signer:      c.Listing.Owner,
			EventSeq:    c.Event.Seq,
			EventHash:   c.Event.Hash,
			CommittedAt: c.Listing.CreatedAt,
		}, nil
	case OpBuy:
		var args BuyArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		if args.ListingID == nil {
			return nil, fmt.Errorf("%w: listing_id is required", domain.ErrInvalidArgument)
		}
		c, err := s.Ledger.Buy(ctx, req.Signer, *args.ListingID, args.Payment)
		if err != nil {
			return nil, err
		}
		r := &Receipt{
			Operation: OpBuy,
			ListingID: c.Listing.ID,
			Signer:    *c.Listing.Buyer,
			EventSeq:  c.Event.Seq,
			EventHash: c.Event.Hash,
		}
		if c.Settlement != nil {
			r.Seller = c.Settlement.Seller
			r.Amount = c.Settlement.Amount
			r.Overpayment = c.Settlement.Overpayment
			r.CommittedAt = c.Settlement.CreatedAt
		}
		return r, nil
	case "":
		return nil, fmt.Errorf("%w: operation is required", domain.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidArgument, req.Operation)
	}
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: args are required", domain.ErrInvalidArgument)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: args: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
