// Package crank drives auctions through discovery, matching and
// settlement once their order and decryption phases are over. Every call
// it makes is a bounded, separately committed instruction.
package crank

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/service"
)

type Limits struct {
	Clearing int
	Match    int
	Consume  int
}

// Stats counts the instructions one pass committed.
type Stats struct {
	ClearingCalls int
	MatchCalls    int
	ConsumeCalls  int
	Events        int
}

func (s Stats) Idle() bool {
	return s.ClearingCalls == 0 && s.MatchCalls == 0 && s.ConsumeCalls == 0
}

type Crank struct {
	svc      *service.AuctionService
	limits   Limits
	interval time.Duration
	log      zerolog.Logger
}

func New(svc *service.AuctionService, limits Limits, interval time.Duration, log zerolog.Logger) *Crank {
	if limits.Clearing <= 0 {
		limits.Clearing = 64
	}
	if limits.Match <= 0 {
		limits.Match = 32
	}
	if limits.Consume <= 0 {
		limits.Consume = 32
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Crank{
		svc:      svc,
		limits:   limits,
		interval: interval,
		log:      log.With().Str("module", "crank").Logger(),
	}
}

func (c *Crank) Run(ctx context.Context) error {
	c.log.Info().Dur("interval", c.interval).Msg("started")

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			st, err := c.Once(ctx)
			if err != nil {
				c.log.Error().Err(err).Msg("crank pass failed")
			}
			if !st.Idle() {
				c.log.Info().
					Int("clearing", st.ClearingCalls).
					Int("match", st.MatchCalls).
					Int("consume", st.ConsumeCalls).
					Int("events", st.Events).
					Msg("crank pass")
			}
		}
	}
}

// Once advances every open auction as far as it can go right now. An
// auction that fails is logged and skipped; the error returned is the
// first of them.
func (c *Crank) Once(ctx context.Context) (Stats, error) {
	var st Stats
	auctions, err := c.svc.ListAuctions(ctx)
	if err != nil {
		return st, err
	}

	var first error
	for _, a := range auctions {
		if a.Closed {
			continue
		}
		if err := c.advance(ctx, a.ID, &st); err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			c.log.Warn().Err(err).Str("auction", a.ID).Msg("auction stalled")
			if first == nil {
				first = err
			}
		}
	}
	return st, first
}

func (c *Crank) advance(ctx context.Context, id string, st *Stats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		phase, err := c.svc.Phase(ctx, id)
		if err != nil {
			return err
		}

		switch phase {
		case auction.PhaseClearingDiscovery:
			if _, err := c.svc.CalculateClearingPrice(ctx, service.CalculateClearingPriceRequest{
				AuctionID: id,
				Limit:     c.limits.Clearing,
			}); err != nil {
				return err
			}
			st.ClearingCalls++

		case auction.PhaseMatching:
			if err := c.match(ctx, id, st); err != nil {
				return err
			}

		case auction.PhaseSettlement:
			if progressed, err := c.consume(ctx, id, st); err != nil || !progressed {
				return err
			}

		default:
			return nil
		}
	}
}

// match takes one batch off the book. When the event queue cannot hold the
// batch it is drained first, and the batch shrinks while even an empty
// queue is too small.
func (c *Crank) match(ctx context.Context, id string, st *Stats) error {
	limit := c.limits.Match
	for {
		_, err := c.svc.MatchOrders(ctx, service.MatchOrdersRequest{AuctionID: id, Limit: limit})
		if err == nil {
			st.MatchCalls++
			return nil
		}
		if !errors.Is(err, auction.ErrEventQueueFull) {
			return err
		}

		progressed, err := c.consume(ctx, id, st)
		if err != nil {
			return err
		}
		if !progressed {
			if limit == 1 {
				return auction.ErrEventQueueFull
			}
			limit /= 2
		}
	}
}

// consume settles one batch with every OpenOrders record of the auction
// as a candidate. It reports whether any event was applied.
func (c *Crank) consume(ctx context.Context, id string, st *Stats) (bool, error) {
	list, err := c.svc.ListOpenOrders(ctx, id)
	if err != nil {
		return false, err
	}
	cands := make([]string, 0, len(list))
	for _, oo := range list {
		cands = append(cands, oo.ID.String())
	}

	res, err := c.svc.ConsumeEvents(ctx, service.ConsumeEventsRequest{
		AuctionID:  id,
		Candidates: cands,
		Limit:      c.limits.Consume,
		AllowNoOp:  true,
	})
	if err != nil {
		return false, err
	}
	st.ConsumeCalls++
	st.Events += res.Processed
	return res.Processed > 0, nil
}
