package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps scores in maps and serializes each user on its own
// mutex. Writes made inside WithUser are staged and applied only when fn
// returns nil.
type MemoryStore struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	scores map[string]int64
	badges map[string][]UserBadge
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:  make(map[string]*sync.Mutex),
		scores: make(map[string]int64),
		badges: make(map[string][]UserBadge),
		now:    time.Now,
	}
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *MemoryStore) WithUser(ctx context.Context, userID string, fn func(tx UserTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	tx := &memUserTx{store: s, userID: userID, points: s.scores[userID]}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID] = tx.points
	s.badges[userID] = append(s.badges[userID], tx.staged...)
	return nil
}

func (s *MemoryStore) Score(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.scores[userID]
	if !ok {
		return 0, ErrNoUser
	}
	return p, nil
}

func (s *MemoryStore) Badges(ctx context.Context, userID string) ([]UserBadge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := append([]UserBadge(nil), s.badges[userID]...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Milestone < out[j].Milestone })
	return out, nil
}

func (s *MemoryStore) UserIDs(ctx context.Context, after string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	ids := make([]string, 0, len(s.scores))
	for id := range s.scores {
		if id > after {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) Top(ctx context.Context, limit int) ([]UserScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]UserScore, 0, len(s.scores))
	for id, p := range s.scores {
		out = append(out, UserScore{UserID: id, Points: p})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetScore writes a total directly, bypassing milestones. It stands in for
// points that arrived outside the ledger, which Reconcile then backfills.
func (s *MemoryStore) SetScore(userID string, points int64) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID] = points
}

type memUserTx struct {
	store  *MemoryStore
	userID string
	points int64
	staged []UserBadge
}

func (t *memUserTx) Points() int64 { return t.points }

func (t *memUserTx) SetPoints(points int64) error {
	t.points = points
	return nil
}

func (t *memUserTx) InsertBadge(b UserBadge) (bool, error) {
	have, err := t.BadgeIDs()
	if err != nil {
		return false, err
	}
	if have[b.BadgeID] {
		return false, nil
	}
	b.UserID = t.userID
	if b.EarnedAt.IsZero() {
		b.EarnedAt = t.store.now().UTC()
	}
	t.staged = append(t.staged, b)
	return true, nil
}

func (t *memUserTx) BadgeIDs() (map[string]bool, error) {
	t.store.mu.Lock()
	committed := t.store.badges[t.userID]
	out := make(map[string]bool, len(committed)+len(t.staged))
	for _, b := range committed {
		out[b.BadgeID] = true
	}
	t.store.mu.Unlock()
	for _, b := range t.staged {
		out[b.BadgeID] = true
	}
	return out, nil
}
