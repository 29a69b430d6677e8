package models

import "time"

// Alias is a durable human decision for a raw (state, name) pair
type Alias struct {
	ID          string       `json:"id" db:"id"`
	State       string       `json:"state" db:"state"`
	RawName     string       `json:"raw_name" db:"raw_name"`
	CollegeID   *string      `json:"college_id,omitempty" db:"college_id"`
	CollegeName string       `json:"college_name,omitempty" db:"college_name"`
	NoMatch     bool         `json:"no_match" db:"no_match"`
	Action      ReviewAction `json:"action" db:"action"`
	Reviewer    string       `json:"reviewer,omitempty" db:"reviewer"`
	Note        string       `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// Key returns the candidate key the alias applies to
func (a *Alias) Key() CandidateKey {
	return CandidateKey{State: a.State, RawName: a.RawName}
}

// Target describes where the alias points, for conflict logging
func (a *Alias) Target() string {
	if a.NoMatch {
		return "no-match"
	}
	if a.CollegeID == nil {
		return ""
	}
	return *a.CollegeID
}
