package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Settlement records the value moved to a seller by a successful buy.
// Amount is the full submitted payment; Overpayment is Amount - Price and is
// not refunded.
type Settlement struct {
	SettlementID uuid.UUID `gorm:"column:settlement_id;type:uuid;primaryKey" json:"settlement_id"`
	ListingID    uint64    `gorm:"column:listing_id;not null;uniqueIndex" json:"listing_id"`
	Seller       string    `gorm:"column:seller;size:128;not null;index" json:"seller"`
	Buyer        string    `gorm:"column:buyer;size:128;not null;index" json:"buyer"`
	Amount       int64     `gorm:"column:amount;not null" json:"amount"`
	Price        int64     `gorm:"column:price;not null" json:"price"`
	Overpayment  int64     `gorm:"column:overpayment;not null;default:0" json:"overpayment"`
	CreatedAt    time.Time `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
}

func (Settlement) TableName() string {
	return "settlements"
}

func (s *Settlement) BeforeCreate(tx *gorm.DB) error {
	if s.SettlementID == uuid.Nil {
		s.SettlementID = uuid.New()
	}
	return nil
}

// Account holds the running balance credited to a seller by settlements.
type Account struct {
	Account   string    `gorm:"column:account;size:128;primaryKey" json:"account"`
	Balance   int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}
