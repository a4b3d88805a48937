package domain

import (
	"time"
)

// ListingStatus is the sale state of a listing. It only ever moves from
// ListingAvailable to ListingSold.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
)

// Listing is a single crop-for-sale record. Rows are created by the ledger's
// list transition and mutated once by buy; they are never deleted.
type Listing struct {
	ID          uint64        `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Owner       string        `gorm:"column:owner;size:128;not null;index" json:"owner"`
	Description string        `gorm:"column:description;type:text;not null" json:"description"`
	Quantity    int64         `gorm:"column:quantity;not null" json:"quantity"`
	Price       int64         `gorm:"column:price;not null" json:"price"`
	Status      ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'available';index" json:"status"`
	Buyer       *string       `gorm:"column:buyer;size:128" json:"buyer"`
	CreatedAt   time.Time     `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	SoldAt      *time.Time    `gorm:"column:soldAt" json:"soldAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// Available reports whether the listing can still be bought.
func (l *Listing) Available() bool {
	return l.Status == ListingAvailable
}
