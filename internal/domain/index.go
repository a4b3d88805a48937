package domain

// Counter names.
const (
	CounterListing = "listing"
	CounterEvent   = "event"
)

// Counter is a named monotonic sequence. Value is the number of ids handed
// out so far, so the next id is Value before the increment.
type Counter struct {
	Name  string `gorm:"column:name;type:varchar(32);primaryKey"`
	Value uint64 `gorm:"column:value;not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}

// OwnerListing is one entry of the by-owner index. Entries are append-only and
// Position orders them by creation.
type OwnerListing struct {
	Position  uint64 `gorm:"column:position;primaryKey;autoIncrement"`
	Owner     string `gorm:"column:owner;size:128;not null;index:idx_owner_listings_owner"`
	ListingID uint64 `gorm:"column:listing_id;not null;uniqueIndex"`
}

func (OwnerListing) TableName() string {
	return "owner_listings"
}

// BuyerPurchase is one entry of the by-buyer index, ordered by purchase.
type BuyerPurchase struct {
	Position  uint64 `gorm:"column:position;primaryKey;autoIncrement"`
	Buyer     string `gorm:"column:buyer;size:128;not null;index:idx_buyer_purchases_buyer"`
	ListingID uint64 `gorm:"column:listing_id;not null;uniqueIndex"`
}

func (BuyerPurchase) TableName() string {
	return "buyer_purchases"
}
