// Package broadcaster relays outbox notifications to Kafka.
package broadcaster

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Henry-E/auction-house/infra/kafka"
	"github.com/Henry-E/auction-house/infra/metrics"
	"github.com/Henry-E/auction-house/infra/outbox"
)

// errStop ends a pass early without reporting an error.
var errStop = errors.New("broadcaster: stop")

// Publisher is satisfied by both Kafka producers in infra/kafka.
type Publisher interface {
	Publish(ctx context.Context, n kafka.Notification) error
	Close() error
}

type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher Publisher
	interval  time.Duration
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(ob *outbox.Outbox, p Publisher, interval time.Duration, log zerolog.Logger, m *metrics.Metrics) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		outbox:    ob,
		publisher: p,
		interval:  interval,
		log:       log.With().Str("module", "broadcaster").Logger(),
		metrics:   m,
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run relays until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info().Dur("interval", b.interval).Msg("started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := b.ReplayOnce(ctx); err != nil {
				b.log.Error().Err(err).Msg("outbox scan failed")
			}
		}
	}
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

// ReplayOnce publishes every unacknowledged record in sequence order. It
// stops at the first failed publish so one auction's notifications are
// never delivered out of order; the record is retried on the next pass.
func (b *Broadcaster) ReplayOnce(ctx context.Context) (int, error) {
	sent := 0
	err := b.outbox.Pending(func(rec outbox.Record) error {
		if ctx.Err() != nil {
			return errStop
		}

		// 1️⃣ Mark SENT
		if err := b.outbox.MarkSent(rec); err != nil {
			return err
		}

		// 2️⃣ Publish
		err := b.publisher.Publish(ctx, kafka.Notification{
			AuctionID: rec.AuctionID,
			EventID:   rec.ID.String(),
			Type:      rec.Type,
			Seq:       rec.Seq,
			Payload:   rec.Payload,
		})
		b.metrics.ObservePublish(err)
		if err != nil {
			b.log.Warn().Err(err).Uint64("seq", rec.Seq).Str("type", rec.Type).Msg("publish failed")
			if mErr := b.outbox.MarkFailed(rec); mErr != nil {
				return mErr
			}
			return errStop
		}

		// 3️⃣ Mark ACKED
		if err := b.outbox.MarkAcked(rec); err != nil {
			return err
		}
		sent++
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	if sent > 0 {
		b.log.Debug().Int("sent", sent).Msg("outbox relayed")
		if _, pErr := b.outbox.PurgeAcked(); pErr != nil && err == nil {
			err = pErr
		}
	}
	return sent, err
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
