package registry

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/Ramsey-B/clover/pkg/models"
)

// LoadFile reads registry colleges from a CSV, JSON or YAML file
func LoadFile(path string) ([]models.CanonicalCollege, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		var colleges []models.CanonicalCollege
		if err := json.NewDecoder(f).Decode(&colleges); err != nil {
			return nil, fmt.Errorf("failed to decode registry %s: %w", path, err)
		}
		return colleges, nil
	case ".yaml", ".yml":
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		var colleges []models.CanonicalCollege
		if err := yaml.Unmarshal(data, &colleges); err != nil {
			return nil, fmt.Errorf("failed to decode registry %s: %w", path, err)
		}
		return colleges, nil
	default:
		return nil, fmt.Errorf("unsupported registry format %q", filepath.Ext(path))
	}
}

// ReadCSV reads registry colleges from CSV with a header row. Recognised
// columns: id, name, state, address, previous_name, type.
func ReadCSV(r io.Reader) ([]models.CanonicalCollege, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New("registry csv has no name column")
	}
	if _, ok := cols["state"]; !ok {
		return nil, errors.New("registry csv has no state column")
	}

	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var colleges []models.CanonicalCollege
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read registry row: %w", err)
		}
		colleges = append(colleges, models.CanonicalCollege{
			ID:           get(row, "id"),
			Name:         get(row, "name"),
			State:        get(row, "state"),
			Address:      get(row, "address"),
			PreviousName: get(row, "previous_name"),
			Type:         models.CollegeType(strings.ToLower(get(row, "type"))),
		})
	}
	return colleges, nil
}
