package models

// CandidateKey groups records that share a college spelling within a state.
// State is normalized; RawName is kept exactly as it appeared in the source.
type CandidateKey struct {
	State   string `json:"state" db:"state"`
	RawName string `json:"raw_name" db:"raw_name"`
}

func (k CandidateKey) String() string {
	return k.State + "|" + k.RawName
}

// UniqueCollegeCandidate is the unit of matching work
type UniqueCollegeCandidate struct {
	Key         CandidateKey          `json:"key"`
	RawState    string                `json:"raw_state"`
	RecordCount int                   `json:"record_count"`
	Records     []*RawAdmissionRecord `json:"-"`
}

// Add attaches a record to the candidate
func (c *UniqueCollegeCandidate) Add(record *RawAdmissionRecord) {
	c.Records = append(c.Records, record)
	c.RecordCount++
}
