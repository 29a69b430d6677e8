package models

import "fmt"

// RawAdmissionRecord is one validated row of admission-round data
type RawAdmissionRecord struct {
	Year           int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Round          int    `json:"round" validate:"required,gte=1"`
	Quota          string `json:"quota" validate:"required"`
	RawCollegeName string `json:"raw_college_name" validate:"required"`
	State          string `json:"state" validate:"required"`
	RawCourseName  string `json:"raw_course_name" validate:"required"`
	Category       string `json:"category" validate:"required"`
	Rank           int    `json:"rank" validate:"required,gt=0"`

	// Provenance
	Source     string `json:"source,omitempty"`
	Level      string `json:"level,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	RowNumber  int    `json:"row_number,omitempty"`
}

// Ref identifies the row in its source file
func (r *RawAdmissionRecord) Ref() string {
	return fmt.Sprintf("%s:%d", r.SourceFile, r.RowNumber)
}
