package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/pkg/metrics"
)

const defaultMaxJobs = 10_000

type classKey struct {
	userID string
	gpt    game.GPT
}

// MemoryStore is an in-memory Store. Score IDs are deterministic, so saving
// the same play twice keeps one copy.
type MemoryStore struct {
	mu      sync.RWMutex
	scores  map[string]map[string]model.Score // user -> score ID -> score
	total   int
	classes map[classKey]model.Classes

	jobs     map[string]model.ImportStatus
	jobOrder []string
	maxJobs  int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		scores:  make(map[string]map[string]model.Score),
		classes: make(map[classKey]model.Classes),
		jobs:    make(map[string]model.ImportStatus),
		maxJobs: defaultMaxJobs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveBatch implements ScoreStore.
func (s *MemoryStore) SaveBatch(_ context.Context, userID string, scores []model.Score) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreBatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if userID == "" {
		return 0, ErrMissingUser
	}
	for i, sc := range scores {
		if sc.ID == "" {
			return 0, fmt.Errorf("%w: position %d", ErrMissingID, i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.scores[userID]
	if !ok {
		held = make(map[string]model.Score, len(scores))
		s.scores[userID] = held
	}
	added := 0
	for _, sc := range scores {
		if _, dup := held[sc.ID]; dup {
			continue
		}
		held[sc.ID] = sc
		added++
	}
	s.total += added
	metrics.UpdateStoredScores(s.total)
	return added, nil
}

// Scores implements ScoreStore.
func (s *MemoryStore) Scores(_ context.Context, f ScoreFilter) ([]model.Score, error) {
	if f.UserID == "" {
		return nil, ErrMissingUser
	}
	s.mu.RLock()
	out := make([]model.Score, 0, len(s.scores[f.UserID]))
	for _, sc := range s.scores[f.UserID] {
		if f.Game != "" && sc.Game != f.Game {
			continue
		}
		if f.Playtype != "" && sc.Playtype != f.Playtype {
			continue
		}
		out = append(out, sc)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, newestFirst)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// newestFirst orders by achievement time descending; undated scores last,
// ties by ID.
func newestFirst(a, b model.Score) int {
	switch {
	case a.TimeAchieved == nil && b.TimeAchieved != nil:
		return 1
	case a.TimeAchieved != nil && b.TimeAchieved == nil:
		return -1
	case a.TimeAchieved != nil && !a.TimeAchieved.Equal(*b.TimeAchieved):
		return b.TimeAchieved.Compare(*a.TimeAchieved)
	}
	return cmp.Compare(a.ID, b.ID)
}

// Summary implements ScoreStore.
func (s *MemoryStore) Summary(_ context.Context, userID string, g game.Game, playtypes ...game.Playtype) model.ClassSummary {
	counts := make(map[game.Playtype]int, len(playtypes))
	for _, pt := range playtypes {
		counts[pt] = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scores[userID] {
		if sc.Game != g {
			continue
		}
		if _, ok := counts[sc.Playtype]; ok || len(playtypes) == 0 {
			counts[sc.Playtype]++
		}
	}
	return model.ClassSummary{UserID: userID, Game: g, Counts: counts}
}

// SaveClasses implements ScoreStore.
func (s *MemoryStore) SaveClasses(_ context.Context, userID string, achieved model.Achievements) error {
	if userID == "" {
		return ErrMissingUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for gpt, classes := range achieved {
		key := classKey{userID: userID, gpt: gpt}
		merged := maps.Clone(s.classes[key])
		if merged == nil {
			merged = model.Classes{}
		}
		maps.Copy(merged, classes)
		s.classes[key] = merged
	}
	return nil
}

// Classes implements ScoreStore.
func (s *MemoryStore) Classes(_ context.Context, userID string, gpt game.GPT) (model.Classes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[classKey{userID: userID, gpt: gpt}]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(c), nil
}

// Count implements ScoreStore.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// SaveJob implements JobStore.
func (s *MemoryStore) SaveJob(_ context.Context, status model.ImportStatus) error {
	if status.ID == "" {
		return fmt.Errorf("%w: job", ErrMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[status.ID]; !ok {
		s.jobOrder = append(s.jobOrder, status.ID)
		for len(s.jobOrder) > s.maxJobs {
			delete(s.jobs, s.jobOrder[0])
			s.jobOrder = s.jobOrder[1:]
		}
	}
	status.Classes = cloneClasses(status.Classes)
	s.jobs[status.ID] = status
	return nil
}

// Job implements JobStore.
func (s *MemoryStore) Job(_ context.Context, id string) (model.ImportStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[id]
	if !ok {
		return model.ImportStatus{}, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	st.Classes = cloneClasses(st.Classes)
	return st, nil
}

func cloneClasses(in map[string]model.Classes) map[string]model.Classes {
	if in == nil {
		return nil
	}
	out := make(map[string]model.Classes, len(in))
	for k, v := range in {
		out[k] = maps.Clone(v)
	}
	return out
}
