// Package extractor collapses admission records into unique college candidates
package extractor

import (
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Stats summarizes how much matching work extraction saved
type Stats struct {
	Records    int     `json:"records"`
	Candidates int     `json:"candidates"`
	States     int     `json:"states"`
	Reduction  float64 `json:"reduction"`
}

// Partition is the candidates of one normalized state
type Partition struct {
	State      string
	Candidates []*models.UniqueCollegeCandidate
}

// Extractor groups records by (normalized state, raw college name)
type Extractor struct {
	normalizer *normalizers.NameNormalizer
}

// New creates an extractor
func New(normalizer *normalizers.NameNormalizer) *Extractor {
	return &Extractor{normalizer: normalizer}
}

// Extract groups records in one pass. Candidates come back in the order their
// key was first seen.
func (e *Extractor) Extract(records []*models.RawAdmissionRecord) ([]*models.UniqueCollegeCandidate, Stats) {
	byKey := make(map[models.CandidateKey]*models.UniqueCollegeCandidate)
	candidates := make([]*models.UniqueCollegeCandidate, 0)
	states := make(map[string]struct{})

	for _, r := range records {
		key := models.CandidateKey{State: e.normalizer.State(r.State), RawName: r.RawCollegeName}
		c, ok := byKey[key]
		if !ok {
			c = &models.UniqueCollegeCandidate{Key: key, RawState: r.State}
			byKey[key] = c
			candidates = append(candidates, c)
			states[key.State] = struct{}{}
		}
		c.Add(r)
	}

	stats := Stats{Records: len(records), Candidates: len(candidates), States: len(states)}
	if stats.Records > 0 {
		stats.Reduction = 1 - float64(stats.Candidates)/float64(stats.Records)
	}
	return candidates, stats
}

// PartitionByState splits candidates into per-state work, keeping first-seen
// order of both states and candidates
func PartitionByState(candidates []*models.UniqueCollegeCandidate) []*Partition {
	index := make(map[string]*Partition)
	var partitions []*Partition
	for _, c := range candidates {
		p, ok := index[c.Key.State]
		if !ok {
			p = &Partition{State: c.Key.State}
			index[c.Key.State] = p
			partitions = append(partitions, p)
		}
		p.Candidates = append(p.Candidates, c)
	}
	return partitions
}
