// Package normalizers canonicalizes college and state names before matching
package normalizers

import (
	"strings"
	"sync"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Normalizer)

	defaultOnce       sync.Once
	defaultNormalizer *NameNormalizer
)

func init() {
	Register("uppercase", strings.ToUpper)
	Register("trim", strings.TrimSpace)
	Register("fold", Fold)
	Register("collapse_whitespace", collapse)
	Register("strip_punctuation", stripPunctuation)
	Register("clean_college", CleanCollegeName)
	Register("college", func(s string) string { return Default().College(s) })
	Register("state", func(s string) string { return Default().State(s) })
}

// Default returns the normalizer built from the embedded tables
func Default() *NameNormalizer {
	defaultOnce.Do(func() {
		tables, err := DefaultTables()
		if err != nil {
			// the embedded document is part of the build
			panic(err)
		}
		defaultNormalizer = NewNameNormalizer(tables)
	})
	return defaultNormalizer
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := Get(normalizer)
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}
