package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/staging"
)

// WorklistItem is one candidate a reviewer should look at
type WorklistItem struct {
	State              string             `json:"state"`
	RawName            string             `json:"raw_name"`
	RecordCount        int                `json:"record_count"`
	Pass               string             `json:"pass"`
	Method             models.MatchMethod `json:"method"`
	Confidence         float64            `json:"confidence"`
	SuggestedCollegeID string             `json:"suggested_college_id,omitempty"`
	SuggestedCollege   string             `json:"suggested_college,omitempty"`
	Reason             string             `json:"reason"`
}

var worklistHeader = []string{
	"state", "raw_name", "record_count", "pass", "method", "confidence",
	"suggested_college_id", "suggested_college", "reason",
}

// Worklist selects the unmatched and low-confidence results still waiting for
// a decision, highest record count first
func Worklist(results []*models.MatchResult) []*WorklistItem {
	var items []*WorklistItem
	for _, r := range results {
		if !r.NeedsReview {
			continue
		}
		items = append(items, worklistItem(r, staging.Reason(r)))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RecordCount != items[j].RecordCount {
			return items[i].RecordCount > items[j].RecordCount
		}
		if items[i].State != items[j].State {
			return items[i].State < items[j].State
		}
		return items[i].RawName < items[j].RawName
	})
	return items
}

// QueueWorklist converts review queue items, keeping the queue order
func QueueWorklist(queue []*models.ReviewItem) []*WorklistItem {
	items := make([]*WorklistItem, 0, len(queue))
	for _, q := range queue {
		items = append(items, worklistItem(&q.MatchResult, q.Reason))
	}
	return items
}

func worklistItem(r *models.MatchResult, reason string) *WorklistItem {
	item := &WorklistItem{
		State:            r.State,
		RawName:          r.RawName,
		RecordCount:      r.RecordCount,
		Pass:             r.Pass.String(),
		Method:           r.Method,
		Confidence:       r.Confidence,
		SuggestedCollege: r.CollegeName,
		Reason:           reason,
	}
	if r.CollegeID != nil {
		item.SuggestedCollegeID = *r.CollegeID
	}
	return item
}

// WriteWorklist writes the worklist as csv, json or a text table
func WriteWorklist(w io.Writer, format Format, items []*WorklistItem) error {
	switch format {
	case FormatTable:
		return section(w, fmt.Sprintf("Review worklist (%d)", len(items)), worklistHeader, worklistRows(items))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if items == nil {
			items = []*WorklistItem{}
		}
		return enc.Encode(items)
	case FormatCSV, "":
		cw := csv.NewWriter(w)
		if err := cw.Write(worklistHeader); err != nil {
			return err
		}
		return cw.WriteAll(worklistRows(items))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func worklistRows(items []*WorklistItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.State,
			it.RawName,
			strconv.Itoa(it.RecordCount),
			it.Pass,
			string(it.Method),
			strconv.FormatFloat(it.Confidence, 'f', 4, 64),
			it.SuggestedCollegeID,
			it.SuggestedCollege,
			it.Reason,
		})
	}
	return rows
}
