package ingest

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	partitionRe = regexp.MustCompile(`^([A-Za-z0-9]+)[-_]([A-Za-z]+)[-_](\d{4})`)
	roundRe     = regexp.MustCompile(`(?i)(?:^|[-_\s])R(?:OUND)?[-_\s]?(\d+)(?:$|[-_\s.])`)
)

// Partition is the source, level and year encoded in a file name such as
// "AIQ-PG-2024.xlsx"
type Partition struct {
	Source string `json:"source"`
	Level  string `json:"level"`
	Year   int    `json:"year"`
	Round  int    `json:"round,omitempty"`
}

func (p Partition) String() string {
	if p.Source == "" {
		return ""
	}
	return p.Source + "-" + p.Level + "-" + strconv.Itoa(p.Year)
}

// ParsePartition reads the partition from a file name. ok is false when the
// name does not follow SOURCE-LEVEL-YEAR.
func ParsePartition(path string) (Partition, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var p Partition
	if m := roundRe.FindStringSubmatch(stem); m != nil {
		p.Round, _ = strconv.Atoi(m[1])
	}

	m := partitionRe.FindStringSubmatch(stem)
	if m == nil {
		return p, false
	}
	p.Source = strings.ToUpper(m[1])
	p.Level = strings.ToUpper(m[2])
	p.Year, _ = strconv.Atoi(m[3])
	return p, true
}
