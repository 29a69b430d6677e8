package models

import "time"

// RankKey identifies one rank statistic
type RankKey struct {
	CollegeID string `json:"college_id" db:"college_id"`
	Course    string `json:"course" db:"course"`
	Category  string `json:"category" db:"category"`
	Quota     string `json:"quota" db:"quota"`
	Round     int    `json:"round" db:"round"`
	Year      int    `json:"year" db:"year"`
}

// RankEntry is the opening/closing rank of one RankKey
type RankEntry struct {
	RankKey
	CollegeName string    `json:"college_name" db:"college_name"`
	OpeningRank int       `json:"opening_rank" db:"opening_rank"`
	ClosingRank int       `json:"closing_rank" db:"closing_rank"`
	Seats       int       `json:"seats" db:"seats"`
	RecordCount int       `json:"record_count" db:"record_count"`
	Anomaly     bool      `json:"anomaly" db:"anomaly"`
	ComputedAt  time.Time `json:"computed_at" db:"computed_at"`
}

// Validate flags entries whose closing rank is below the opening rank
func (e *RankEntry) Validate() bool {
	e.Anomaly = e.ClosingRank < e.OpeningRank
	return !e.Anomaly
}
