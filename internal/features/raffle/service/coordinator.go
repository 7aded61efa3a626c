package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/monitoring"
)

const defaultMaxAttempts = 3

// DrawResult is one committed allocation. Counters reflect the state after
// the decrement.
type DrawResult struct {
	Prize models.Prize
	Tier  models.Tier
}

// Coordinator turns a logical draw into one atomic decrement against the
// store. Correctness leans on the store's conditional decrement, not on
// in-process locking, so a second server process sharing the store stays
// correct.
type Coordinator struct {
	pool        repository.PoolStore
	sessions    repository.SessionStore
	allocator   *Allocator
	maxAttempts int
}

func NewCoordinator(pool repository.PoolStore, sessions repository.SessionStore, allocator *Allocator, maxAttempts int) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Coordinator{
		pool:        pool,
		sessions:    sessions,
		allocator:   allocator,
		maxAttempts: maxAttempts,
	}
}

// Allocate draws one prize for the session. Lost decrement races are retried
// from a fresh snapshot up to maxAttempts times, then surface as CONTENTION.
// An exhausted pool performs no writes.
func (c *Coordinator) Allocate(ctx context.Context, sessionID string) (*DrawResult, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		snapshot, err := c.loadSnapshot(ctx)
		if err != nil {
			monitoring.DrawsTotal.WithLabelValues("store_error").Inc()
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to load pool snapshot")
		}

		tier, prize, ok := c.allocator.Draw(snapshot)
		if !ok {
			monitoring.DrawsTotal.WithLabelValues("exhausted").Inc()
			return nil, errors.New(errors.CodePoolExhausted, "prize pool is exhausted")
		}

		committed, err := c.pool.DecrementPrizeAndTier(ctx, prize.ID, tier.Tier)
		if err != nil {
			monitoring.DrawsTotal.WithLabelValues("store_error").Inc()
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to commit draw")
		}
		if !committed {
			// Lost the race to a concurrent draw; re-snapshot and retry.
			log.Debug().
				Str("prize_id", prize.ID).
				Int("tier", tier.Tier).
				Int("attempt", attempt).
				Msg("draw lost conditional decrement, retrying")
			monitoring.DrawRetries.Inc()
			continue
		}

		prize.Remaining--
		tier.Remaining--

		// The prize is committed at this point; the session counter is a
		// projection and must not fail the draw.
		if err := c.sessions.IncrementCounter(ctx, sessionID, repository.CounterPrizesAwarded, 1); err != nil {
			log.Warn().Err(err).
				Str("session_id", sessionID).
				Msg("failed to bump prizes-awarded counter")
		}

		monitoring.DrawsTotal.WithLabelValues("awarded").Inc()
		log.Info().
			Str("prize_id", prize.ID).
			Str("prize", prize.Name).
			Int("tier", tier.Tier).
			Str("session_id", sessionID).
			Msg("prize allocated")
		return &DrawResult{Prize: prize, Tier: tier}, nil
	}

	monitoring.DrawsTotal.WithLabelValues("contention").Inc()
	return nil, errors.Newf(errors.CodeContention, "draw unresolved after %d attempts", c.maxAttempts)
}

func (c *Coordinator) loadSnapshot(ctx context.Context) ([]models.TierSnapshot, error) {
	tiers, err := c.pool.FindEligibleTiers(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := make([]models.TierSnapshot, 0, len(tiers))
	for _, tier := range tiers {
		prizes, err := c.pool.FindEligiblePrizes(ctx, tier.Tier)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, models.TierSnapshot{Tier: tier, Prizes: prizes})
	}
	return snapshot, nil
}
