package eventbus

import (
	"context"
	"encoding/json"
	"strconv"

	"farmoracle-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStream  = "ledger:events"
	DefaultChannel = "ledger:events:live"
	streamMaxLen   = 100000
)

// RedisPublisher appends each event to a Redis stream (durable, replayable by
// consumer groups) and then announces it on a pub/sub channel for live
// subscribers. Consumers dedupe on the seq field.
type RedisPublisher struct {
	Rdb     *redis.Client
	Stream  string
	Channel string
}

type message struct {
	Seq       uint64          `json:"seq"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	ListingID uint64          `json:"listing_id"`
	Hash      string          `json:"hash"`
	Payload   json.RawMessage `json:"payload"`
}

func (p *RedisPublisher) Publish(ctx context.Context, e *domain.LedgerEvent) error {
	stream := p.Stream
	if stream == "" {
		stream = DefaultStream
	}
	if err := p.Rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"seq":        strconv.FormatUint(e.Seq, 10),
			"event_id":   e.EventID.String(),
			"type":       e.EventType,
			"listing_id": strconv.FormatUint(e.ListingID, 10),
			"hash":       e.Hash,
			"payload":    string(e.Payload),
		},
	}).Err(); err != nil {
		return err
	}

	channel := p.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	b, err := json.Marshal(message{
		Seq:       e.Seq,
		EventID:   e.EventID.String(),
		Type:      e.EventType,
		ListingID: e.ListingID,
		Hash:      e.Hash,
		Payload:   json.RawMessage(e.Payload),
	})
	if err != nil {
		return err
	}
	// The stream entry is the durable copy; a missed live announcement is not
	// a delivery failure.
	if err := p.Rdb.Publish(ctx, channel, b).Err(); err != nil {
		log.Warn().Err(err).Uint64("seq", e.Seq).Msg("live event announce failed")
	}
	return nil
}

// LogPublisher writes events to the structured log. Used when Redis is not
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e *domain.LedgerEvent) error {
	log.Info().
		Uint64("seq", e.Seq).
		Str("type", e.EventType).
		Uint64("listing_id", e.ListingID).
		Str("hash", e.Hash).
		RawJSON("payload", e.Payload).
		Msg("ledger event")
	return nil
}
