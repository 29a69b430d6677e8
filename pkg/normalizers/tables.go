package normalizers

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

//go:embed tables.yaml
var defaultTables []byte

// Replacement maps one spelling to another
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Tables drives the name and state normalizers. Order within each list matters.
type Tables struct {
	Typos           []Replacement `yaml:"typos"`
	Abbreviations   []Replacement `yaml:"abbreviations"`
	StateAliases    []Replacement `yaml:"state_aliases"`
	CanonicalStates []string      `yaml:"canonical_states"`
}

// DefaultTables returns the embedded tables
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTables)
}

// LoadTablesFile reads tables from a YAML file
func LoadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read normalization tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables decodes a YAML tables document
func ParseTables(data []byte) (*Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse normalization tables: %w", err)
	}
	for i, r := range tables.Abbreviations {
		if r.From == "" || r.To == "" {
			return nil, fmt.Errorf("abbreviation %d has an empty side", i)
		}
	}
	for i, r := range tables.Typos {
		if r.From == "" {
			return nil, fmt.Errorf("typo correction %d has an empty source", i)
		}
	}
	return &tables, nil
}
