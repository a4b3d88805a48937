package ledger

import (
	"context"
	"fmt"
	"math"

	"farmoracle-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settler moves a buy's payment to the seller. Settle runs inside the buy
// transaction: returning an error rolls back the status flip with it.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, s *domain.Settlement) error
}

// BalanceSettler records the settlement and credits the seller's account
// balance in the same transaction. The credit is a single upsert so two
// processes settling to a new seller at once both succeed.
type BalanceSettler struct{}

func (BalanceSettler) Settle(ctx context.Context, tx *gorm.DB, s *domain.Settlement) error {
	var current domain.Account
	if err := tx.Where("account = ?", s.Seller).Limit(1).Find(&current).Error; err != nil {
		return err
	}
	if current.Balance > 0 && s.Amount > math.MaxInt64-current.Balance {
		return fmt.Errorf("%w: crediting %d would overflow the balance of %s", domain.ErrInvalidArgument, s.Amount, s.Seller)
	}
	if err := tx.Create(s).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":   gorm.Expr("accounts.balance + ?", s.Amount),
			"updatedAt": s.CreatedAt,
		}),
	}).Create(&domain.Account{
		Account:   s.Seller,
		Balance:   s.Amount,
		UpdatedAt: s.CreatedAt,
	}).Error
}
