package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farmoracle-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Publisher delivers a committed event to external consumers. Publish may be
// called more than once for the same event.
type Publisher interface {
	Publish(ctx context.Context, e *domain.LedgerEvent) error
}

const (
	defaultRelayInterval  = 2 * time.Second
	defaultRelayBatchSize = 100
)

// Relay drains undelivered ledger events to a Publisher in seq order.
// Delivery is at-least-once: an event is stamped delivered only after
// Publish returns nil, and a failed publish is retried on the next pass.
type Relay struct {
	DB        *gorm.DB
	Publisher Publisher
	BatchSize int
	Interval  time.Duration

	once sync.Once
	kick chan struct{}
}

func (r *Relay) init() {
	r.once.Do(func() {
		r.kick = make(chan struct{}, 1)
	})
}

// Notify wakes the relay without blocking the caller.
func (r *Relay) Notify() {
	r.init()
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run flushes on every Notify and on each Interval tick until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.init()
	interval := r.Interval
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := r.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Int("delivered", n).Msg("event relay flush failed")
		} else if n > 0 {
			log.Debug().Int("delivered", n).Msg("event relay flushed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.kick:
		}
	}
}

// Flush publishes pending events until none are left or a publish fails.
// It returns the number of events delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	size := r.BatchSize
	if size <= 0 {
		size = defaultRelayBatchSize
	}
	delivered := 0
	for {
		var batch []domain.LedgerEvent
		if err := r.DB.WithContext(ctx).
			Where(map[string]interface{}{"deliveredAt": nil}).
			Order("seq ASC").
			Limit(size).
			Find(&batch).Error; err != nil {
			return delivered, err
		}
		for i := range batch {
			e := &batch[i]
			if err := r.Publisher.Publish(ctx, e); err != nil {
				msg := err.Error()
				if uerr := r.DB.WithContext(ctx).Model(&domain.LedgerEvent{}).Where("seq = ?", e.Seq).Updates(map[string]interface{}{
					"attempts":   gorm.Expr("attempts + 1"),
					"last_error": msg,
				}).Error; uerr != nil {
					log.Warn().Err(uerr).Uint64("seq", e.Seq).Msg("record publish failure")
				}
				// Stop here so consumers never see seq n+1 before seq n.
				return delivered, fmt.Errorf("publish event %d: %w", e.Seq, err)
			}
			if err := r.DB.WithContext(ctx).Model(&domain.LedgerEvent{}).Where("seq = ?", e.Seq).Updates(map[string]interface{}{
				"deliveredAt": time.Now().UTC(),
				"attempts":    gorm.Expr("attempts + 1"),
				"last_error":  nil,
			}).Error; err != nil {
				return delivered, err
			}
			delivered++
		}
		if len(batch) < size {
			return delivered, nil
		}
	}
}
