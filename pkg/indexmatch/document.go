package indexmatch

import (
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/registry"
)

// Document is one registry entry as stored in a search backend. Every text
// field holds normalized names.
type Document struct {
	ID           string   `json:"id"`
	CollegeID    string   `json:"college_id"`
	Name         string   `json:"name"`
	PreviousName string   `json:"previous_name,omitempty"`
	Address      string   `json:"address,omitempty"`
	State        string   `json:"state"`
	Variations   []string `json:"variations,omitempty"`
	Position     int      `json:"position"`
}

type namedField struct {
	name  string
	value string
}

// fields lists the searchable values in evaluation order
func (d Document) fields() []namedField {
	fields := []namedField{{name: "name", value: d.Name}}
	if d.PreviousName != "" {
		fields = append(fields, namedField{name: "previous_name", value: d.PreviousName})
	}
	for _, v := range d.Variations {
		fields = append(fields, namedField{name: "variation", value: v})
	}
	if d.Address != "" {
		fields = append(fields, namedField{name: "address", value: d.Address})
	}
	return fields
}

// BuildDocuments turns the registry into search documents
func BuildDocuments(reg *registry.Registry) []Document {
	normalizer := reg.Normalizer()
	docs := make([]Document, 0, reg.Len())
	for _, e := range reg.Entries() {
		doc := Document{
			ID:           fingerprint.Generate(map[string]any{"college_id": e.ID})[:20],
			CollegeID:    e.ID,
			Name:         e.NormalizedName,
			PreviousName: e.NormalizedPrevious,
			State:        e.NormalizedState,
			Position:     e.Position,
			Variations:   Variations(normalizer, e.Name),
		}
		if e.Address != "" {
			doc.Address = normalizer.College(e.Address)
		}
		if e.PreviousName != "" {
			doc.Variations = appendUnique(doc.Variations, Variations(normalizer, e.PreviousName)...)
		}
		docs = append(docs, doc)
	}
	return docs
}
