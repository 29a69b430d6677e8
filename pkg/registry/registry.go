// Package registry holds the canonical college list for one batch run
package registry

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Entry is a registry college with its precomputed normalized forms
type Entry struct {
	models.CanonicalCollege
	Position           int
	NormalizedName     string
	NormalizedPrevious string
	NormalizedState    string
}

// Registry is immutable after construction and safe to share between workers
type Registry struct {
	entries     []*Entry
	byID        map[string]*Entry
	byState     map[string][]*Entry
	byNormState map[string][]*Entry
	normalizer  *normalizers.NameNormalizer
}

// New builds a registry. Order of colleges is preserved and drives tie breaks.
func New(colleges []models.CanonicalCollege, normalizer *normalizers.NameNormalizer) (*Registry, error) {
	r := &Registry{
		entries:     make([]*Entry, 0, len(colleges)),
		byID:        make(map[string]*Entry, len(colleges)),
		byState:     make(map[string][]*Entry),
		byNormState: make(map[string][]*Entry),
		normalizer:  normalizer,
	}

	for i, c := range colleges {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.State) == "" {
			return nil, fmt.Errorf("registry entry %d is missing a name or state", i)
		}
		if c.ID == "" {
			c.ID = DeriveID(c.State, c.Name)
		}
		if c.Type == "" {
			c.Type = models.CollegeTypeOther
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("registry entry %d reuses id %s", i, c.ID)
		}

		e := &Entry{
			CanonicalCollege: c,
			Position:         i,
			NormalizedName:   normalizer.College(c.Name),
			NormalizedState:  normalizer.State(c.State),
		}
		if c.PreviousName != "" {
			e.NormalizedPrevious = normalizer.College(c.PreviousName)
		}

		r.entries = append(r.entries, e)
		r.byID[c.ID] = e
		exact := exactState(c.State)
		r.byState[exact] = append(r.byState[exact], e)
		r.byNormState[e.NormalizedState] = append(r.byNormState[e.NormalizedState], e)
	}

	return r, nil
}

// DeriveID returns a stable id for a college without one
func DeriveID(state, name string) string {
	return fingerprint.Generate(map[string]any{
		"state": exactState(state),
		"name":  strings.ToUpper(strings.TrimSpace(name)),
	})[:16]
}

// InState returns the entries registered under rawState. When that exact
// spelling has no entries the alias-normalized state is used instead.
func (r *Registry) InState(rawState, normalizedState string) []*Entry {
	if entries := r.byState[exactState(rawState)]; len(entries) > 0 {
		return entries
	}
	if normalizedState == "" {
		normalizedState = r.normalizer.State(rawState)
	}
	return r.byNormState[normalizedState]
}

// Get returns the entry with the given id
func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Entries returns every entry in registry order
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}

// States returns the normalized states present in the registry
func (r *Registry) States() []string {
	states := make([]string, 0, len(r.byNormState))
	for s := range r.byNormState {
		states = append(states, s)
	}
	return states
}

// Normalizer returns the normalizer the registry was built with
func (r *Registry) Normalizer() *normalizers.NameNormalizer {
	return r.normalizer
}

func exactState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
