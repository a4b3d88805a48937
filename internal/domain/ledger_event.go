package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventListed = "Listed"
	EventSold   = "Sold"
)

// Event is a notification payload emitted after a successful commit.
type Event interface {
	Type() string
	ListingID() uint64
}

type Listed struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
}

func (e Listed) Type() string      { return EventListed }
func (e Listed) ListingID() uint64 { return e.ID }

type Sold struct {
	ID     uint64 `json:"id"`
	Buyer  string `json:"buyer"`
	Owner  string `json:"owner"`
	Amount int64  `json:"amount"`
}

func (e Sold) Type() string      { return EventSold }
func (e Sold) ListingID() uint64 { return e.ID }

// LedgerEvent is the persisted, hash-chained form of an Event. It doubles as
// the outbox row: DeliveredAt stays nil until a publisher has accepted it.
type LedgerEvent struct {
	Seq         uint64         `gorm:"column:seq;primaryKey;autoIncrement:false" json:"seq"`
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;uniqueIndex;not null" json:"event_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ListingID   uint64         `gorm:"column:listing_id;not null;index" json:"listing_id"`
	Payload     datatypes.JSON `gorm:"column:payload;type:text;not null" json:"payload"`
	PrevHash    string         `gorm:"column:prev_hash;type:varchar(64);not null" json:"prev_hash"`
	Hash        string         `gorm:"column:hash;type:varchar(64);not null" json:"hash"`
	CreatedAt   time.Time      `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	DeliveredAt *time.Time     `gorm:"column:deliveredAt;index" json:"deliveredAt"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   *string        `gorm:"column:last_error" json:"last_error,omitempty"`
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
