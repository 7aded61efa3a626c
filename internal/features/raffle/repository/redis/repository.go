package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository"
)

const (
	keyPrefixTier       = "raffle:tier:"
	keyPrefixPrize      = "raffle:prize:"
	keyPrefixSubmission = "raffle:submission:"
	keyPrefixSession    = "raffle:session:"
	keyTierIndex        = "raffle:tiers"
	keyCurrentSession   = "raffle:session:current"

	defaultOpTimeout = 3 * time.Second
)

// decrementScript is the single commit point of a draw: both remaining
// counters move down by one, or neither. The guards re-check eligibility at
// commit time, closing the window between snapshot and decrement.
const decrementScript = `
local prizeRemaining = tonumber(redis.call('HGET', KEYS[1], 'remaining') or '0')
local prizeActive = redis.call('HGET', KEYS[1], 'active')
local tierRemaining = tonumber(redis.call('HGET', KEYS[2], 'remaining') or '0')
if prizeRemaining <= 0 or prizeActive ~= '1' or tierRemaining <= 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'remaining', -1)
redis.call('HINCRBY', KEYS[2], 'remaining', -1)
return 1
`

// Repository implements repository.Store on a single redis instance. Every
// call is bounded by opTimeout; an expired or failed round-trip surfaces to
// the caller as a retryable infrastructure error.
type Repository struct {
	client    redis.Cmdable
	opTimeout time.Duration
}

func NewRepository(client redis.Cmdable, opTimeout time.Duration) *Repository {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Repository{client: client, opTimeout: opTimeout}
}

func makeTierKey(id int) string {
	return keyPrefixTier + strconv.Itoa(id)
}

func makeTierPrizesKey(id int) string {
	return keyPrefixTier + strconv.Itoa(id) + ":prizes"
}

func makePrizeKey(id string) string {
	return keyPrefixPrize + id
}

func makeSubmissionKey(sessionID, email string) string {
	return keyPrefixSubmission + sessionID + ":" + email
}

func makeSessionKey(id string) string {
	return keyPrefixSession + id
}

func makeSessionEmailsKey(id string) string {
	return keyPrefixSession + id + ":emails"
}

func (r *Repository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

// --- pool ---

func (r *Repository) CreateTier(ctx context.Context, tier *models.Tier) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, makeTierKey(tier.Tier), map[string]interface{}{
		"tier":      tier.Tier,
		"name":      tier.Name,
		"weight":    tier.Weight,
		"total":     tier.Total,
		"remaining": tier.Remaining,
	})
	pipe.ZAdd(ctx, keyTierIndex, redis.Z{Score: float64(tier.Tier), Member: strconv.Itoa(tier.Tier)})
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create tier %d: %w", tier.Tier, err)
	}
	return nil
}

func (r *Repository) CreatePrize(ctx context.Context, prize *models.Prize) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, makePrizeKey(prize.ID), map[string]interface{}{
		"id":          prize.ID,
		"tier":        prize.Tier,
		"name":        prize.Name,
		"description": prize.Description,
		"image_url":   prize.ImageURL,
		"total":       prize.Total,
		"remaining":   prize.Remaining,
		"active":      boolField(prize.Active),
	})
	pipe.SAdd(ctx, makeTierPrizesKey(prize.Tier), prize.ID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create prize %s: %w", prize.ID, err)
	}
	return nil
}

// ListTiers returns every tier in ascending tier order.
func (r *Repository) ListTiers(ctx context.Context) ([]models.Tier, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.ZRange(ctx, keyTierIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}

	tiers := make([]models.Tier, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.HGetAll(ctx, keyPrefixTier+id).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load tier %s: %w", id, err)
		}
		if len(data) == 0 {
			continue
		}
		tier, err := parseTier(data)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// FindEligibleTiers returns tiers with remaining units, ascending.
func (r *Repository) FindEligibleTiers(ctx context.Context) ([]models.Tier, error) {
	tiers, err := r.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	eligible := tiers[:0]
	for _, t := range tiers {
		if !t.Depleted() {
			eligible = append(eligible, t)
		}
	}
	return eligible, nil
}

// FindEligiblePrizes returns the tier's prizes with remaining > 0 and the
// active flag set, in stable id order.
func (r *Repository) FindEligiblePrizes(ctx context.Context, tierID int) ([]models.Prize, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, makeTierPrizesKey(tierID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes for tier %d: %w", tierID, err)
	}
	sort.Strings(ids)

	prizes := make([]models.Prize, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.HGetAll(ctx, makePrizeKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load prize %s: %w", id, err)
		}
		if len(data) == 0 {
			continue
		}
		prize, err := parsePrize(data)
		if err != nil {
			return nil, err
		}
		if prize.Available() {
			prizes = append(prizes, prize)
		}
	}
	return prizes, nil
}

// DecrementPrizeAndTier conditionally consumes one unit of the prize and its
// tier. Returns false when a concurrent draw won the race.
func (r *Repository) DecrementPrizeAndTier(ctx context.Context, prizeID string, tierID int) (bool, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.client.Eval(ctx, decrementScript, []string{makePrizeKey(prizeID), makeTierKey(tierID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to decrement prize %s: %w", prizeID, err)
	}
	return res == 1, nil
}

// PrizeStats is a read-only per-tier aggregation over the counters.
func (r *Repository) PrizeStats(ctx context.Context) ([]models.TierStats, error) {
	tiers, err := r.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]models.TierStats, 0, len(tiers))
	for _, t := range tiers {
		stats = append(stats, models.TierStats{
			Tier:      t.Tier,
			Name:      t.Name,
			Total:     t.Total,
			Remaining: t.Remaining,
			Awarded:   t.Total - t.Remaining,
		})
	}
	return stats, nil
}

// --- submissions ---

// InsertIfAbsent stores a submission unless one already exists for the
// (email, session) pair. The HSETNX on the email field is the single
// conditional gate; two simultaneous identical submissions resolve to exactly
// one stored entry.
func (r *Repository) InsertIfAbsent(ctx context.Context, sub *models.Submission) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	key := makeSubmissionKey(sub.SessionID, sub.Email)
	ok, err := r.client.HSetNX(ctx, key, "email", sub.Email).Result()
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	if !ok {
		return repository.ErrDuplicateSubmission
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"session_id":   sub.SessionID,
		"submitted_at": sub.SubmittedAt.UTC().Format(time.RFC3339Nano),
		"ip":           sub.IPAddress,
		"user_agent":   sub.UserAgent,
	})
	pipe.SAdd(ctx, makeSessionEmailsKey(sub.SessionID), sub.Email)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store submission fields: %w", err)
	}
	return nil
}

// AttachPrize records the awarded prize on a submission at most once; a
// second attach is a no-op.
func (r *Repository) AttachPrize(ctx context.Context, sessionID, email, prizeID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	key := makeSubmissionKey(sessionID, email)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check submission: %w", err)
	}
	if exists == 0 {
		return repository.ErrSubmissionNotFound
	}
	if err := r.client.HSetNX(ctx, key, "prize_id", prizeID).Err(); err != nil {
		return fmt.Errorf("failed to attach prize: %w", err)
	}
	return nil
}

func (r *Repository) EmailCount(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	count, err := r.client.SCard(ctx, makeSessionEmailsKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

// --- sessions ---

func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	data, err := r.client.HGetAll(ctx, makeSessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, repository.ErrSessionNotFound
	}
	return parseSession(data)
}

func (r *Repository) SaveSession(ctx context.Context, session *models.Session) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	fields := map[string]interface{}{
		"id":         session.ID,
		"status":     string(session.Status),
		"started_at": session.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if !session.EndedAt.IsZero() {
		fields["ended_at"] = session.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	if err := r.client.HSet(ctx, makeSessionKey(session.ID), fields).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *Repository) IncrementCounter(ctx context.Context, id, field string, delta int64) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if err := r.client.HIncrBy(ctx, makeSessionKey(id), field, delta).Err(); err != nil {
		return fmt.Errorf("failed to increment %s on session %s: %w", field, id, err)
	}
	return nil
}

func (r *Repository) CurrentSessionID(ctx context.Context) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id, err := r.client.Get(ctx, keyCurrentSession).Result()
	if err == redis.Nil {
		return "", repository.ErrNoCurrentSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to load current session: %w", err)
	}
	return id, nil
}

func (r *Repository) SetCurrentSession(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if err := r.client.Set(ctx, keyCurrentSession, id, 0).Err(); err != nil {
		return fmt.Errorf("failed to set current session: %w", err)
	}
	return nil
}

func (r *Repository) ClearCurrentSession(ctx context.Context) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if err := r.client.Del(ctx, keyCurrentSession).Err(); err != nil {
		return fmt.Errorf("failed to clear current session: %w", err)
	}
	return nil
}

// --- parsing ---

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseTier(data map[string]string) (models.Tier, error) {
	tierID, err := strconv.Atoi(data["tier"])
	if err != nil {
		return models.Tier{}, fmt.Errorf("malformed tier id %q: %w", data["tier"], err)
	}
	weight, err := strconv.ParseFloat(data["weight"], 64)
	if err != nil {
		return models.Tier{}, fmt.Errorf("malformed tier weight %q: %w", data["weight"], err)
	}
	total, err := strconv.Atoi(data["total"])
	if err != nil {
		return models.Tier{}, fmt.Errorf("malformed tier total %q: %w", data["total"], err)
	}
	remaining, err := strconv.Atoi(data["remaining"])
	if err != nil {
		return models.Tier{}, fmt.Errorf("malformed tier remaining %q: %w", data["remaining"], err)
	}
	return models.Tier{
		Tier:      tierID,
		Name:      data["name"],
		Weight:    weight,
		Total:     total,
		Remaining: remaining,
	}, nil
}

func parsePrize(data map[string]string) (models.Prize, error) {
	tierID, err := strconv.Atoi(data["tier"])
	if err != nil {
		return models.Prize{}, fmt.Errorf("malformed prize tier %q: %w", data["tier"], err)
	}
	total, err := strconv.Atoi(data["total"])
	if err != nil {
		return models.Prize{}, fmt.Errorf("malformed prize total %q: %w", data["total"], err)
	}
	remaining, err := strconv.Atoi(data["remaining"])
	if err != nil {
		return models.Prize{}, fmt.Errorf("malformed prize remaining %q: %w", data["remaining"], err)
	}
	return models.Prize{
		ID:          data["id"],
		Tier:        tierID,
		Name:        data["name"],
		Description: data["description"],
		ImageURL:    data["image_url"],
		Total:       total,
		Remaining:   remaining,
		Active:      data["active"] == "1",
	}, nil
}

func parseSession(data map[string]string) (*models.Session, error) {
	session := &models.Session{
		ID:     data["id"],
		Status: models.SessionStatus(data["status"]),
	}
	if v := data["started_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("malformed session start time %q: %w", v, err)
		}
		session.StartedAt = t
	}
	if v := data["ended_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("malformed session end time %q: %w", v, err)
		}
		session.EndedAt = t
	}
	if v := data["total_entries"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed session entry counter %q: %w", v, err)
		}
		session.TotalEntries = n
	}
	if v := data["prizes_awarded"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed session award counter %q: %w", v, err)
		}
		session.PrizesAwarded = n
	}
	return session, nil
}
