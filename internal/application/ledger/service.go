package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmoracle-backend/internal/application/events"
	"farmoracle-backend/internal/domain"
	"farmoracle-backend/internal/infrastructure/database"
	"farmoracle-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// Notifier is told after every successful commit. It must not block.
type Notifier interface {
	Notify()
}

// Service is the ledger core. It owns the listing table, the id counter and
// the derived indices, and applies list and buy as single transactions.
// Mutations are serialized in-process by a writer semaphore; the counter row
// lock and the conditional status flip keep them serialized across processes
// sharing a database.
type Service struct {
	DB       *gorm.DB
	Settler  Settler
	Notifier Notifier
	Now      func() time.Time

	once   sync.Once
	writer *semaphore.Weighted
}

// Commit is what a successful transition produced.
type Commit struct {
	Listing    domain.Listing     `json:"listing"`
	Settlement *domain.Settlement `json:"settlement,omitempty"`
	Event      domain.LedgerEvent `json:"event"`
}

func (s *Service) init() {
	s.once.Do(func() {
		s.writer = semaphore.NewWeighted(1)
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) settler() Settler {
	if s.Settler != nil {
		return s.Settler
	}
	return BalanceSettler{}
}

// List creates a new available listing owned by owner and returns it with its
// sequential id. Invalid input fails with ErrInvalidArgument before any id is
// allocated.
func (s *Service) List(ctx context.Context, owner, description string, quantity, price int64) (*Commit, error) {
	owner = validation.NormalizeAccount(owner)
	if err := validAccount("owner", owner); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidArgument)
	}

	var out Commit
	err := s.commit(ctx, func(tx *gorm.DB, now time.Time) error {
		id, err := database.NextSequence(tx, domain.CounterListing)
		if err != nil {
			return fmt.Errorf("next listing id: %w", err)
		}
		listing := domain.Listing{
			ID:          id,
			Owner:       owner,
			Description: description,
			Quantity:    quantity,
			Price:       price,
			Status:      domain.ListingAvailable,
			CreatedAt:   now,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.OwnerListing{Owner: owner, ListingID: id}).Error; err != nil {
			return err
		}
		ev, err := events.Append(tx, domain.Listed{
			ID:          id,
			Owner:       owner,
			Description: description,
			Quantity:    quantity,
			Price:       price,
		}, now)
		if err != nil {
			return err
		}
		out = Commit{Listing: listing, Event: *ev}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Uint64("listing_id", out.Listing.ID).Str("owner", owner).Msg("listing committed")
	return &out, nil
}

// Buy settles listing id to buyer. The whole payment goes to the owner, not
// just the price. Preconditions are checked in this order: the listing
// exists, it is still available, payment covers the price, and the buyer is
// not the owner.
func (s *Service) Buy(ctx context.Context, buyer string, id uint64, payment int64) (*Commit, error) {
	buyer = validation.NormalizeAccount(buyer)
	if err := validAccount("buyer", buyer); err != nil {
		return nil, err
	}

	var out Commit
	err := s.commit(ctx, func(tx *gorm.DB, now time.Time) error {
		var listing domain.Listing
		if err := tx.Where("id = ?", id).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
			}
			return err
		}
		if !listing.Available() {
			return fmt.Errorf("%w: id %d", domain.ErrAlreadySold, id)
		}
		if payment < listing.Price {
			return fmt.Errorf("%w: paid %d, price %d", domain.ErrInsufficientPayment, payment, listing.Price)
		}
		if buyer == listing.Owner {
			return fmt.Errorf("%w: id %d", domain.ErrSelfPurchase, id)
		}

		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND status = ?", id, domain.ListingAvailable).
			Updates(map[string]interface{}{
				"status": domain.ListingSold,
				"buyer":  buyer,
				"soldAt": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: id %d", domain.ErrAlreadySold, id)
		}
		listing.Status = domain.ListingSold
		listing.Buyer = &buyer
		listing.SoldAt = &now

		if err := tx.Create(&domain.BuyerPurchase{Buyer: buyer, ListingID: id}).Error; err != nil {
			return err
		}
		settlement := domain.Settlement{
			ListingID:   id,
			Seller:      listing.Owner,
			Buyer:       buyer,
			Amount:      payment,
			Price:       listing.Price,
			Overpayment: payment - listing.Price,
			CreatedAt:   now,
		}
		if err := s.settler().Settle(ctx, tx, &settlement); err != nil {
			return fmt.Errorf("settle listing %d: %w", id, err)
		}
		ev, err := events.Append(tx, domain.Sold{
			ID:     id,
			Buyer:  buyer,
			Owner:  listing.Owner,
			Amount: payment,
		}, now)
		if err != nil {
			return err
		}
		out = Commit{Listing: listing, Settlement: &settlement, Event: *ev}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Uint64("listing_id", id).Str("buyer", buyer).Int64("amount", payment).Msg("purchase committed")
	return &out, nil
}

// commit runs fn as one transaction while holding the writer semaphore. A
// context cancelled before commit rolls the transaction back.
func (s *Service) commit(ctx context.Context, fn func(tx *gorm.DB, now time.Time) error) error {
	s.init()
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	now := s.now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx, now); err != nil {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.Notify()
	}
	return nil
}

func validAccount(field, account string) error {
	if account == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, field)
	}
	if !validation.IsValidAccount(account) {
		return fmt.Errorf("%w: %s must be at most %d bytes of printable text", domain.ErrInvalidArgument, field, validation.MaxAccountLen)
	}
	return nil
}
