package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository"
)

func setupTestRepository() (*Repository, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewRepository(db, time.Second), mock
}

func TestDecrementPrizeAndTier_Committed(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectEval(decrementScript, []string{"raffle:prize:p1", "raffle:tier:1"}).SetVal(int64(1))

	committed, err := repo.DecrementPrizeAndTier(context.Background(), "p1", 1)

	require.NoError(t, err)
	assert.True(t, committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementPrizeAndTier_LostRace(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectEval(decrementScript, []string{"raffle:prize:p1", "raffle:tier:1"}).SetVal(int64(0))

	committed, err := repo.DecrementPrizeAndTier(context.Background(), "p1", 1)

	require.NoError(t, err)
	assert.False(t, committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIfAbsent_Duplicate(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	// The gate field already exists, so no submission fields are written.
	mock.ExpectHSetNX("raffle:submission:s1:jane@example.com", "email", "jane@example.com").SetVal(false)

	err := repo.InsertIfAbsent(context.Background(), &models.Submission{
		Email:       "jane@example.com",
		SessionID:   "s1",
		SubmittedAt: time.Now().UTC(),
	})

	assert.ErrorIs(t, err, repository.ErrDuplicateSubmission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPrize_MissingSubmission(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectExists("raffle:submission:s1:ghost@example.com").SetVal(0)

	err := repo.AttachPrize(context.Background(), "s1", "ghost@example.com", "p1")

	assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPrize_SecondAttachIsNoOp(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectExists("raffle:submission:s1:jane@example.com").SetVal(1)
	// HSETNX reports the field untouched; the first award stands.
	mock.ExpectHSetNX("raffle:submission:s1:jane@example.com", "prize_id", "p2").SetVal(false)

	err := repo.AttachPrize(context.Background(), "s1", "jane@example.com", "p2")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_ParsesHash(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	mock.ExpectHGetAll("raffle:session:s1").SetVal(map[string]string{
		"id":             "s1",
		"status":         "active",
		"started_at":     started.Format(time.RFC3339Nano),
		"total_entries":  "42",
		"prizes_awarded": "7",
	})

	session, err := repo.GetSession(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.True(t, started.Equal(session.StartedAt))
	assert.Equal(t, int64(42), session.TotalEntries)
	assert.Equal(t, int64(7), session.PrizesAwarded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_NotFound(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectHGetAll("raffle:session:missing").SetVal(map[string]string{})

	_, err := repo.GetSession(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_CorruptCounterSurfaces(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectHGetAll("raffle:session:s1").SetVal(map[string]string{
		"id":            "s1",
		"status":        "active",
		"total_entries": "forty-two",
	})

	_, err := repo.GetSession(context.Background(), "s1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "forty-two")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentSessionID_NoneSet(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectGet("raffle:session:current").RedisNil()

	_, err := repo.CurrentSessionID(context.Background())

	assert.ErrorIs(t, err, repository.ErrNoCurrentSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCounter(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectHIncrBy("raffle:session:s1", "total_entries", 1).SetVal(5)

	err := repo.IncrementCounter(context.Background(), "s1", "total_entries", 1)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleTiers_SkipsDepleted(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectZRange("raffle:tiers", 0, -1).SetVal([]string{"1", "2"})
	mock.ExpectHGetAll("raffle:tier:1").SetVal(map[string]string{
		"tier": "1", "name": "Grand", "weight": "0.01", "total": "1", "remaining": "0",
	})
	mock.ExpectHGetAll("raffle:tier:2").SetVal(map[string]string{
		"tier": "2", "name": "Premium", "weight": "0.05", "total": "10", "remaining": "4",
	})

	tiers, err := repo.FindEligibleTiers(context.Background())

	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, 2, tiers[0].Tier)
	assert.Equal(t, 4, tiers[0].Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTiers_CorruptCounterSurfaces(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectZRange("raffle:tiers", 0, -1).SetVal([]string{"1"})
	mock.ExpectHGetAll("raffle:tier:1").SetVal(map[string]string{
		"tier": "1", "name": "Grand", "weight": "0.01", "total": "1", "remaining": "garbage",
	})

	_, err := repo.ListTiers(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "garbage")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligiblePrizes_FiltersAndOrders(t *testing.T) {
	repo, mock := setupTestRepository()
	defer mock.ClearExpect()

	mock.ExpectSMembers("raffle:tier:2:prizes").SetVal([]string{"p_b", "p_a", "p_c"})
	mock.ExpectHGetAll("raffle:prize:p_a").SetVal(map[string]string{
		"id": "p_a", "tier": "2", "name": "Speaker", "total": "4", "remaining": "2", "active": "1",
	})
	mock.ExpectHGetAll("raffle:prize:p_b").SetVal(map[string]string{
		"id": "p_b", "tier": "2", "name": "Headphones", "total": "6", "remaining": "0", "active": "1",
	})
	mock.ExpectHGetAll("raffle:prize:p_c").SetVal(map[string]string{
		"id": "p_c", "tier": "2", "name": "Charger", "total": "3", "remaining": "3", "active": "0",
	})

	prizes, err := repo.FindEligiblePrizes(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, prizes, 1)
	assert.Equal(t, "p_a", prizes[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
