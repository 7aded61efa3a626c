package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/monitoring"
)

// Service is the application face of the raffle: submissions, the session
// lifecycle, and the read-only projections. Draws are delegated to the
// coordinator after the session gate.
type Service struct {
	store       repository.Store
	coordinator *Coordinator
}

func NewService(store repository.Store, coordinator *Coordinator) *Service {
	return &Service{store: store, coordinator: coordinator}
}

// --- session registry ---

// CurrentSession returns the current session, creating and activating one
// lazily when none exists. Exactly one session is current at any time.
func (s *Service) CurrentSession(ctx context.Context) (*models.Session, error) {
	id, err := s.store.CurrentSessionID(ctx)
	if err == nil {
		return s.GetSession(ctx, id)
	}
	if !stderrors.Is(err, repository.ErrNoCurrentSession) {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to resolve current session")
	}

	session := &models.Session{
		ID:        newSessionID(),
		Status:    models.SessionStatusActive,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to create session")
	}
	if err := s.store.SetCurrentSession(ctx, session.ID); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to mark session current")
	}
	log.Info().Str("session_id", session.ID).Msg("session created")
	return session, nil
}

// ResolveSession returns the session with the given id, or the lazily created
// current one when id is empty. This is the registration path for clients
// that present no explicit session identifier.
func (s *Service) ResolveSession(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return s.CurrentSession(ctx)
	}
	return s.GetSession(ctx, id)
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if stderrors.Is(err, repository.ErrSessionNotFound) {
		return nil, errors.Newf(errors.CodeNotFound, "session not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to load session")
	}
	return session, nil
}

// CloseSession performs the terminal transition. Further submissions and
// draws against the session fail with SESSION_CLOSED.
func (s *Service) CloseSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Close(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to close session")
	}

	if currentID, err := s.store.CurrentSessionID(ctx); err == nil && currentID == id {
		if err := s.store.ClearCurrentSession(ctx); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("failed to clear current session pointer")
		}
	}

	log.Info().Str("session_id", id).Msg("session closed")
	return session, nil
}

// --- submissions ---

// SubmitEmail validates, normalizes and stores one attendee entry. The
// duplicate check and the insert are a single conditional store operation, so
// two simultaneous identical submissions yield exactly one stored entry.
func (s *Service) SubmitEmail(ctx context.Context, sessionID, rawEmail string, meta models.SubmissionMeta) (*models.Submission, error) {
	email, err := models.NormalizeEmail(rawEmail)
	if err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.EnsureActive(); err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("session_closed").Inc()
		return nil, err
	}

	sub := &models.Submission{
		Email:       email,
		SessionID:   sessionID,
		SubmittedAt: time.Now().UTC(),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}
	if err := s.store.InsertIfAbsent(ctx, sub); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateSubmission) {
			monitoring.SubmissionsTotal.WithLabelValues("duplicate").Inc()
			return nil, errors.Newf(errors.CodeDuplicate, "email already submitted in this session")
		}
		monitoring.SubmissionsTotal.WithLabelValues("store_error").Inc()
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to store submission")
	}

	if err := s.store.IncrementCounter(ctx, sessionID, repository.CounterTotalEntries, 1); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to bump total-entries counter")
	}

	monitoring.SubmissionsTotal.WithLabelValues("accepted").Inc()
	log.Info().Str("email", email).Str("session_id", sessionID).Msg("email submitted")
	return sub, nil
}

// --- draws ---

// SelectPrize runs one draw for the session. winnerEmail, when present, names
// the submission the awarded prize is attached to.
func (s *Service) SelectPrize(ctx context.Context, sessionID, winnerEmail string) (*DrawResult, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.EnsureActive(); err != nil {
		return nil, err
	}

	result, err := s.coordinator.Allocate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if winnerEmail != "" {
		email, normErr := models.NormalizeEmail(winnerEmail)
		if normErr != nil {
			log.Warn().Str("email", winnerEmail).Msg("draw winner email malformed, prize not attached")
			return result, nil
		}
		// The prize is already committed; an attach failure is logged, not
		// surfaced.
		if err := s.store.AttachPrize(ctx, sessionID, email, result.Prize.ID); err != nil {
			log.Warn().Err(err).
				Str("email", email).
				Str("prize_id", result.Prize.ID).
				Msg("failed to attach prize to submission")
		}
	}
	return result, nil
}

// --- projections ---

// AvailablePrizes returns the non-depleted tiers with their eligible prizes.
// With no intervening allocation, two calls return identical results.
func (s *Service) AvailablePrizes(ctx context.Context) ([]models.TierSnapshot, error) {
	tiers, err := s.store.FindEligibleTiers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to list tiers")
	}
	snapshot := make([]models.TierSnapshot, 0, len(tiers))
	for _, tier := range tiers {
		prizes, err := s.store.FindEligiblePrizes(ctx, tier.Tier)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to list prizes")
		}
		snapshot = append(snapshot, models.TierSnapshot{Tier: tier, Prizes: prizes})
	}
	return snapshot, nil
}

func (s *Service) PrizeStats(ctx context.Context) ([]models.TierStats, error) {
	stats, err := s.store.PrizeStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to aggregate prize stats")
	}
	return stats, nil
}

// SessionInfo assembles the recovery payload late-joining clients request
// instead of an event replay.
func (s *Service) SessionInfo(ctx context.Context, sessionID string) (*models.SessionInfo, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	emailCount, err := s.store.EmailCount(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to count emails")
	}

	info := &models.SessionInfo{
		SessionID:     session.ID,
		IsActive:      session.Active(),
		StartTime:     session.StartedAt,
		TotalEntries:  session.TotalEntries,
		PrizesAwarded: session.PrizesAwarded,
		EmailStats: models.EmailStats{
			TotalEmails:   emailCount,
			PrizesAwarded: session.PrizesAwarded,
		},
	}
	if !session.EndedAt.IsZero() {
		ended := session.EndedAt
		info.EndTime = &ended
	}
	return info, nil
}

func newSessionID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
