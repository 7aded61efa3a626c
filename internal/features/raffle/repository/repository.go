package repository

import (
	"context"
	"errors"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrPrizeNotFound       = errors.New("prize not found")
	ErrTierNotFound        = errors.New("tier not found")
	ErrNoCurrentSession    = errors.New("no current session")
	ErrDuplicateSubmission = errors.New("submission already exists for this session")
	ErrSubmissionNotFound  = errors.New("submission not found")
)

// PoolStore is the prize-pool side of the store. FindEligibleTiers and
// FindEligiblePrizes return snapshot data only; DecrementPrizeAndTier is the
// single atomic commit point for a draw: it moves both remaining counters
// down by one, or neither, and reports false when a concurrent draw consumed
// the last unit after the snapshot was taken.
type PoolStore interface {
	FindEligibleTiers(ctx context.Context) ([]models.Tier, error)
	FindEligiblePrizes(ctx context.Context, tierID int) ([]models.Prize, error)
	DecrementPrizeAndTier(ctx context.Context, prizeID string, tierID int) (bool, error)

	ListTiers(ctx context.Context) ([]models.Tier, error)
	PrizeStats(ctx context.Context) ([]models.TierStats, error)

	CreateTier(ctx context.Context, tier *models.Tier) error
	CreatePrize(ctx context.Context, prize *models.Prize) error
}

// SubmissionStore persists attendee entries. InsertIfAbsent is a single
// conditional operation keyed on (email, session); a losing concurrent insert
// observes ErrDuplicateSubmission, never a second stored entry.
type SubmissionStore interface {
	InsertIfAbsent(ctx context.Context, sub *models.Submission) error
	AttachPrize(ctx context.Context, sessionID, email, prizeID string) error
	EmailCount(ctx context.Context, sessionID string) (int64, error)
}

// SessionStore persists sessions and the current-session pointer. Counters
// move only through IncrementCounter so concurrent handlers never lose
// updates to a read-modify-write.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	IncrementCounter(ctx context.Context, id, field string, delta int64) error

	CurrentSessionID(ctx context.Context) (string, error)
	SetCurrentSession(ctx context.Context, id string) error
	ClearCurrentSession(ctx context.Context) error
}

// Session counter field names.
const (
	CounterTotalEntries  = "total_entries"
	CounterPrizesAwarded = "prizes_awarded"
)

// Store bundles the three store facets the service layer consumes.
type Store interface {
	PoolStore
	SubmissionStore
	SessionStore
}
