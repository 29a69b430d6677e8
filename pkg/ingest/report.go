package ingest

import "sort"

// FileReport is the ingestion outcome of one file
type FileReport struct {
	Path      string         `json:"path"`
	Partition string         `json:"partition,omitempty"`
	Rows      int            `json:"rows"`
	Valid     int            `json:"valid"`
	Dropped   map[string]int `json:"dropped,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (f *FileReport) drop(reason string) {
	if f.Dropped == nil {
		f.Dropped = make(map[string]int)
	}
	f.Dropped[reason]++
}

// QualityReport aggregates every file of a run. Every dropped row is counted
// under a reason.
type QualityReport struct {
	Files       []*FileReport  `json:"files"`
	Rows        int            `json:"rows"`
	Valid       int            `json:"valid"`
	Dropped     map[string]int `json:"dropped"`
	FailedFiles int            `json:"failed_files"`
}

// NewQualityReport creates an empty report
func NewQualityReport() *QualityReport {
	return &QualityReport{Dropped: make(map[string]int)}
}

// Add folds a file report into the totals
func (q *QualityReport) Add(f *FileReport) {
	q.Files = append(q.Files, f)
	q.Rows += f.Rows
	q.Valid += f.Valid
	for reason, n := range f.Dropped {
		q.Dropped[reason] += n
	}
	if f.Error != "" {
		q.FailedFiles++
	}
}

// DroppedTotal returns the number of rows dropped for any reason
func (q *QualityReport) DroppedTotal() int {
	total := 0
	for _, n := range q.Dropped {
		total += n
	}
	return total
}

// Reasons returns drop reasons ordered by count, then name
func (q *QualityReport) Reasons() []string {
	reasons := make([]string, 0, len(q.Dropped))
	for r := range q.Dropped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if q.Dropped[reasons[i]] != q.Dropped[reasons[j]] {
			return q.Dropped[reasons[i]] > q.Dropped[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
