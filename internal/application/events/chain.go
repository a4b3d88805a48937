package events

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"farmoracle-backend/internal/domain"
	"farmoracle-backend/internal/infrastructure/database"

	"golang.org/x/crypto/blake2b"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenesisHash is the prev_hash of the first event in the chain.
var GenesisHash = strings.Repeat("0", 64)

// Append writes ev as the next event of the chain inside tx. It must run in
// the same transaction as the state change it describes.
func Append(tx *gorm.DB, ev domain.Event, at time.Time) (*domain.LedgerEvent, error) {
	seq, err := database.NextSequence(tx, domain.CounterEvent)
	if err != nil {
		return nil, fmt.Errorf("next event seq: %w", err)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	prev := GenesisHash
	if seq > 0 {
		var last domain.LedgerEvent
		if err := tx.Select("hash").Where("seq = ?", seq-1).First(&last).Error; err != nil {
			return nil, fmt.Errorf("load event %d: %w", seq-1, err)
		}
		prev = last.Hash
	}
	le := &domain.LedgerEvent{
		Seq:       seq,
		EventType: ev.Type(),
		ListingID: ev.ListingID(),
		Payload:   datatypes.JSON(payload),
		PrevHash:  prev,
		CreatedAt: at.UTC(),
	}
	le.Hash = Hash(le)
	if err := tx.Create(le).Error; err != nil {
		return nil, err
	}
	return le, nil
}

// Hash is blake2b-256 over prev_hash, seq, type, listing id and payload.
func Hash(e *domain.LedgerEvent) string {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	h.Write([]byte(e.PrevHash))
	binary.BigEndian.PutUint64(n[:], e.Seq)
	h.Write(n[:])
	h.Write([]byte(e.EventType))
	binary.BigEndian.PutUint64(n[:], e.ListingID)
	h.Write(n[:])
	h.Write(e.Payload)
	return hex.EncodeToString(h.Sum(nil))
}
