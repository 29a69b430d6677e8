package ingest

import (
	"fmt"
	"strings"
)

// Column is a canonical input column
type Column string

const (
	ColumnRank     Column = "rank"
	ColumnQuota    Column = "quota"
	ColumnCollege  Column = "college"
	ColumnState    Column = "state"
	ColumnCourse   Column = "course"
	ColumnCategory Column = "category"
	ColumnRound    Column = "round"
	ColumnYear     Column = "year"
)

// requiredColumns must be present in every file. Round and year can come
// from the file name.
var requiredColumns = []Column{ColumnRank, ColumnQuota, ColumnCollege, ColumnState, ColumnCourse, ColumnCategory}

var headerAliases = map[string]Column{
	"RANK":               ColumnRank,
	"ALL_INDIA_RANK":     ColumnRank,
	"AIR":                ColumnRank,
	"STATE_RANK":         ColumnRank,
	"QUOTA":              ColumnQuota,
	"ALLOTTED_QUOTA":     ColumnQuota,
	"COLLEGE":            ColumnCollege,
	"INSTITUTE":          ColumnCollege,
	"COLLEGE_INSTITUTE":  ColumnCollege,
	"COLLEGE_NAME":       ColumnCollege,
	"INSTITUTE_NAME":     ColumnCollege,
	"ALLOTTED_INSTITUTE": ColumnCollege,
	"STATE":              ColumnState,
	"STATE_NAME":         ColumnState,
	"COURSE":             ColumnCourse,
	"COURSE_NAME":        ColumnCourse,
	"PROGRAM":            ColumnCourse,
	"CATEGORY":           ColumnCategory,
	"ALLOTTED_CATEGORY":  ColumnCategory,
	"ROUND":              ColumnRound,
	"YEAR":               ColumnYear,
	"SESSION":            ColumnYear,
}

// headerKey folds a header cell into the alias table spelling
func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToUpper(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '_' || r == '/' || r == '-' || r == '.'
	}), "_")
}

// columnIndex maps canonical columns to their position in the header. The
// first occurrence of a column wins.
type columnIndex map[Column]int

func mapHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, h := range header {
		col, ok := headerAliases[headerKey(h)]
		if !ok {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, string(col))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

// value returns the trimmed cell for a column, or "" when absent
func (c columnIndex) value(row []string, col Column) (string, bool) {
	i, ok := c[col]
	if !ok {
		return "", false
	}
	if i >= len(row) {
		return "", true
	}
	return strings.TrimSpace(row[i]), true
}
