package query

import (
	"context"
	"errors"
	"fmt"

	"farmoracle-backend/internal/domain"
	"farmoracle-backend/internal/infrastructure/database"
	"farmoracle-backend/internal/pkg/validation"

	"gorm.io/gorm"
)

// Service is the read side of the ledger. It only reads committed rows; the
// indices it serves are written by the ledger core in the same transaction as
// the listing change, so they never lag a successful commit.
type Service struct {
	DB *gorm.DB
}

// Get returns the full listing record.
func (s *Service) Get(ctx context.Context, id uint64) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &listing, nil
}

// ListingsOf returns every id created by owner, oldest first.
func (s *Service) ListingsOf(ctx context.Context, owner string) ([]uint64, error) {
	ids := []uint64{}
	err := s.DB.WithContext(ctx).Model(&domain.OwnerListing{}).
		Where("owner = ?", validation.NormalizeAccount(owner)).
		Order("position ASC").
		Pluck("listing_id", &ids).Error
	return ids, err
}

// PurchasesOf returns every id bought by buyer, in purchase order.
func (s *Service) PurchasesOf(ctx context.Context, buyer string) ([]uint64, error) {
	ids := []uint64{}
	err := s.DB.WithContext(ctx).Model(&domain.BuyerPurchase{}).
		Where("buyer = ?", validation.NormalizeAccount(buyer)).
		Order("position ASC").
		Pluck("listing_id", &ids).Error
	return ids, err
}

// Available returns the ids of all unsold listings in ascending order.
func (s *Service) Available(ctx context.Context) ([]uint64, error) {
	ids := []uint64{}
	err := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("status = ?", domain.ListingAvailable).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Count returns how many listings have ever been created.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return database.CurrentSequence(s.DB.WithContext(ctx), domain.CounterListing)
}

// Listings loads the records for ids, preserving the order of ids. Unknown
// ids are skipped.
func (s *Service) Listings(ctx context.Context, ids []uint64) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Listing
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]domain.Listing, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// Balance returns the settled balance credited to account; zero if the
// account has never sold anything.
func (s *Service) Balance(ctx context.Context, account string) (int64, error) {
	var acct domain.Account
	if err := s.DB.WithContext(ctx).Where("account = ?", validation.NormalizeAccount(account)).Limit(1).Find(&acct).Error; err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// SettlementsOf returns settlements where account was seller or buyer, oldest
// first.
func (s *Service) SettlementsOf(ctx context.Context, account string) ([]domain.Settlement, error) {
	out := []domain.Settlement{}
	account = validation.NormalizeAccount(account)
	err := s.DB.WithContext(ctx).
		Where("seller = ? OR buyer = ?", account, account).
		Order(`"createdAt" ASC, listing_id ASC`).
		Find(&out).Error
	return out, err
}
