package staging

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// MemoryStore is a Store kept in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	results map[models.CandidateKey]*models.MatchResult
	aliases map[models.CandidateKey]*models.Alias
	ranks   map[models.RankKey]*models.RankEntry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[models.CandidateKey]*models.MatchResult),
		aliases: make(map[models.CandidateKey]*models.Alias),
		ranks:   make(map[models.RankKey]*models.RankEntry),
	}
}

func (s *MemoryStore) UpsertResults(ctx context.Context, results []*models.MatchResult) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, r := range results {
		if s.upsertLocked(r) {
			written++
		}
	}
	return written, nil
}

func (s *MemoryStore) upsertLocked(r *models.MatchResult) bool {
	existing, ok := s.results[r.Key()]
	if ok && (existing.Manual || existing.Fingerprint == r.Fingerprint) {
		return false
	}
	s.putLocked(r)
	return true
}

func (s *MemoryStore) putLocked(r *models.MatchResult) {
	stored := *r
	if r.CollegeID != nil {
		id := *r.CollegeID
		stored.CollegeID = &id
	}
	s.results[r.Key()] = &stored
}

func (s *MemoryStore) GetResult(ctx context.Context, key models.CandidateKey) (*models.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[key]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no match result for %s", key)
	}
	out := *r
	return &out, nil
}

func (s *MemoryStore) ListResults(ctx context.Context, filter ResultFilter) ([]*models.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.MatchResult
	for _, r := range s.results {
		if filter.State != "" && r.State != filter.State {
			continue
		}
		if filter.NeedsReview != nil && r.NeedsReview != *filter.NeedsReview {
			continue
		}
		if filter.Matched != nil && r.IsMatched() != *filter.Matched {
			continue
		}
		if filter.MinPass > 0 && r.Pass < filter.MinPass {
			continue
		}
		c := *r
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RecordCount != b.RecordCount {
			return a.RecordCount > b.RecordCount
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.RawName < b.RawName
	})

	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
		if len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAliases(ctx context.Context) ([]*models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].RawName < out[j].RawName
	})
	return out, nil
}

func (s *MemoryStore) SaveDecision(ctx context.Context, a *models.Alias, result *models.MatchResult) (*models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	previous, ok := s.aliases[a.Key()]
	if ok {
		a.ID = previous.ID
		a.CreatedAt = previous.CreatedAt
	} else {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	stored := *a
	s.aliases[a.Key()] = &stored
	if result != nil {
		s.putLocked(result)
	}
	return previous, nil
}

func (s *MemoryStore) DeleteAlias(ctx context.Context, key models.CandidateKey) (*models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.aliases[key]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no alias for %s", key)
	}
	delete(s.aliases, key)
	if r, ok := s.results[key]; ok && r.Manual {
		delete(s.results, key)
	}
	return a, nil
}

func (s *MemoryStore) ReplaceRankEntries(ctx context.Context, keys []models.RankKey, entries []*models.RankEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.ranks, k)
	}
	for _, e := range entries {
		c := *e
		s.ranks[e.RankKey] = &c
	}
	return nil
}

func (s *MemoryStore) ListRankEntries(ctx context.Context, filter RankFilter) ([]*models.RankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RankEntry
	for _, e := range s.ranks {
		if filter.CollegeID != "" && e.CollegeID != filter.CollegeID {
			continue
		}
		if filter.Year != 0 && e.Year != filter.Year {
			continue
		}
		if filter.AnomalyOnly && !e.Anomaly {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return rankKeyLess(out[i].RankKey, out[j].RankKey)
	})
	return out, nil
}

func rankKeyLess(a, b models.RankKey) bool {
	switch {
	case a.Year != b.Year:
		return a.Year < b.Year
	case a.CollegeID != b.CollegeID:
		return a.CollegeID < b.CollegeID
	case a.Course != b.Course:
		return a.Course < b.Course
	case a.Category != b.Category:
		return a.Category < b.Category
	case a.Quota != b.Quota:
		return a.Quota < b.Quota
	default:
		return a.Round < b.Round
	}
}
