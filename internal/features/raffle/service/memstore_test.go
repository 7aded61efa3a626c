package service

import (
	"context"
	"sort"
	"sync"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository"
)

// memStore is an in-memory repository.Store with the same atomicity contract
// as the real one: conditional decrements and inserts resolve under one lock.
type memStore struct {
	mu          sync.Mutex
	tiers       map[int]*models.Tier
	prizes      map[string]*models.Prize
	sessions    map[string]*models.Session
	submissions map[string]*models.Submission
	current     string

	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		tiers:       make(map[int]*models.Tier),
		prizes:      make(map[string]*models.Prize),
		sessions:    make(map[string]*models.Session),
		submissions: make(map[string]*models.Submission),
	}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) seedPool(tiers []models.Tier, prizes []models.Prize) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range tiers {
		t := tiers[i]
		m.tiers[t.Tier] = &t
	}
	for i := range prizes {
		p := prizes[i]
		m.prizes[p.ID] = &p
	}
}

func (m *memStore) addSession(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &s
}

func submissionKey(sessionID, email string) string {
	return sessionID + "|" + email
}

func (m *memStore) FindEligibleTiers(context.Context) ([]models.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]models.Tier, 0, len(m.tiers))
	for _, t := range m.tiers {
		if !t.Depleted() {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (m *memStore) FindEligiblePrizes(_ context.Context, tierID int) ([]models.Prize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Prize, 0)
	for _, p := range m.prizes {
		if p.Tier == tierID && p.Available() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DecrementPrizeAndTier(_ context.Context, prizeID string, tierID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	prize, ok := m.prizes[prizeID]
	if !ok {
		return false, repository.ErrPrizeNotFound
	}
	tier, ok := m.tiers[tierID]
	if !ok {
		return false, repository.ErrTierNotFound
	}
	if prize.Remaining <= 0 || !prize.Active || tier.Remaining <= 0 {
		return false, nil
	}
	prize.Remaining--
	tier.Remaining--
	return true, nil
}

func (m *memStore) ListTiers(context.Context) ([]models.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Tier, 0, len(m.tiers))
	for _, t := range m.tiers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (m *memStore) PrizeStats(context.Context) ([]models.TierStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TierStats, 0, len(m.tiers))
	for _, t := range m.tiers {
		out = append(out, models.TierStats{
			Tier:      t.Tier,
			Name:      t.Name,
			Total:     t.Total,
			Remaining: t.Remaining,
			Awarded:   t.Total - t.Remaining,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (m *memStore) CreateTier(_ context.Context, tier *models.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *tier
	m.tiers[t.Tier] = &t
	return nil
}

func (m *memStore) CreatePrize(_ context.Context, prize *models.Prize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *prize
	m.prizes[p.ID] = &p
	return nil
}

func (m *memStore) InsertIfAbsent(_ context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	key := submissionKey(sub.SessionID, sub.Email)
	if _, exists := m.submissions[key]; exists {
		return repository.ErrDuplicateSubmission
	}
	stored := *sub
	m.submissions[key] = &stored
	return nil
}

func (m *memStore) AttachPrize(_ context.Context, sessionID, email, prizeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[submissionKey(sessionID, email)]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	if sub.PrizeID == "" {
		sub.PrizeID = prizeID
	}
	return nil
}

func (m *memStore) EmailCount(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sub := range m.submissions {
		if sub.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *memStore) SaveSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	if existing, ok := m.sessions[session.ID]; ok {
		copied.TotalEntries = existing.TotalEntries
		copied.PrizesAwarded = existing.PrizesAwarded
	}
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memStore) IncrementCounter(_ context.Context, id, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	switch field {
	case repository.CounterTotalEntries:
		s.TotalEntries += delta
	case repository.CounterPrizesAwarded:
		s.PrizesAwarded += delta
	}
	return nil
}

func (m *memStore) CurrentSessionID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return "", repository.ErrNoCurrentSession
	}
	return m.current, nil
}

func (m *memStore) SetCurrentSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = id
	return nil
}

func (m *memStore) ClearCurrentSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ""
	return nil
}
