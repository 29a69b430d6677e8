package models

// CollegeType classifies a registry entry
type CollegeType string

const (
	CollegeTypeMedical CollegeType = "medical"
	CollegeTypeDental  CollegeType = "dental"
	CollegeTypeOther   CollegeType = "other"
)

// CanonicalCollege is a registry entry. The registry is read-only to the pipeline.
type CanonicalCollege struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	State        string      `json:"state" yaml:"state"`
	Address      string      `json:"address,omitempty" yaml:"address"`
	PreviousName string      `json:"previous_name,omitempty" yaml:"previous_name"`
	Type         CollegeType `json:"type,omitempty" yaml:"type"`
}
