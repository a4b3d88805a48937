package events

import (
	"context"

	"farmoracle-backend/internal/domain"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
	verifyBatchSize = 500
)

type Service struct {
	DB *gorm.DB
}

// List returns events with seq >= from in chain order.
func (s *Service) List(ctx context.Context, from uint64, limit int) ([]domain.LedgerEvent, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	events := []domain.LedgerEvent{}
	if err := s.DB.WithContext(ctx).Where("seq >= ?", from).Order("seq ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Backlog counts events not yet accepted by a publisher.
func (s *Service) Backlog(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.LedgerEvent{}).Where(map[string]interface{}{"deliveredAt": nil}).Count(&n).Error
	return n, err
}

type VerifyResult struct {
	Valid    bool    `json:"valid"`
	Checked  uint64  `json:"checked"`
	Head     string  `json:"head"`
	BrokenAt *uint64 `json:"broken_at,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Verify walks the whole chain and recomputes every hash. It stops at the
// first event whose seq, prev_hash or hash does not match.
func (s *Service) Verify(ctx context.Context) (*VerifyResult, error) {
	res := &VerifyResult{Valid: true, Head: GenesisHash}
	var next uint64
	for {
		var batch []domain.LedgerEvent
		if err := s.DB.WithContext(ctx).Where("seq >= ?", next).Order("seq ASC").Limit(verifyBatchSize).Find(&batch).Error; err != nil {
			return nil, err
		}
		for i := range batch {
			e := &batch[i]
			reason := ""
			switch {
			case e.Seq != next:
				reason = "sequence gap"
			case e.PrevHash != res.Head:
				reason = "prev_hash mismatch"
			case e.Hash != Hash(e):
				reason = "hash mismatch"
			}
			if reason != "" {
				broken := next
				res.Valid = false
				res.BrokenAt = &broken
				res.Reason = reason
				return res, nil
			}
			res.Head = e.Hash
			res.Checked++
			next++
		}
		if len(batch) < verifyBatchSize {
			return res, nil
		}
	}
}
