package indexmatch

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MemoryBackend is an in-process typo-tolerant index used for offline runs
type MemoryBackend struct {
	mu      sync.RWMutex
	byState map[string][]Document
	loaded  bool
}

// NewMemoryBackend creates an empty in-process index
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{byState: make(map[string][]Document)}
}

func (b *MemoryBackend) Load(ctx context.Context, docs []Document) error {
	byState := make(map[string][]Document)
	for _, d := range docs {
		byState[d.State] = append(byState[d.State], d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byState = byState
	b.loaded = true
	return nil
}

type rankedDocument struct {
	doc   Document
	match fieldMatch
	rank  int
}

func (b *MemoryBackend) Search(ctx context.Context, query, state string, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		return nil, ErrNotLoaded
	}

	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var ranked []rankedDocument
	for _, doc := range b.byState[state] {
		m := bestField(doc, tokens)
		if m.Matched == 0 {
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(query, doc.Name)
		if rank < 0 {
			rank = len(query) + len(doc.Name)
		}
		ranked = append(ranked, rankedDocument{doc: doc, match: m, rank: rank})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, c := ranked[i], ranked[j]
		if a.match.better(c.match) {
			return true
		}
		if c.match.better(a.match) {
			return false
		}
		if a.rank != c.rank {
			return a.rank < c.rank
		}
		return a.doc.Position < c.doc.Position
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Document, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.doc)
	}
	return out, nil
}
