package reporting

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Format is an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ErrUnsupportedFormat is returned for a format the writer cannot produce
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat converts a flag value to a Format
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return format, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// WriteSummary renders the summary as text tables, json or yaml
func WriteSummary(w io.Writer, format Format, s *Summary) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		data, err := yaml.MarshalWithOptions(s, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatTable, "":
		return writeTables(w, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func writeTables(w io.Writer, s *Summary) error {
	if s.RunID != "" {
		fmt.Fprintf(w, "Run %s (%s)\n\n", s.RunID, s.Strategy)
	}

	overview := [][]string{
		{"Candidates", strconv.Itoa(s.Candidates), strconv.Itoa(s.MatchedCandidates), percent(s.CandidateMatchRate)},
		{"Records", strconv.Itoa(s.Records), strconv.Itoa(s.MatchedRecords), percent(s.RecordMatchRate)},
	}
	if err := section(w, "Match rate", []string{"", "Total", "Matched", "Rate"}, overview); err != nil {
		return err
	}
	fmt.Fprintf(w, "Needs review: %d\n\n", s.NeedsReview)

	for _, b := range []struct {
		title  string
		groups []*Breakdown
	}{
		{"By pass", s.ByPass},
		{"By state", s.ByState},
		{"By round", s.ByRound},
	} {
		if len(b.groups) == 0 {
			continue
		}
		if err := section(w, b.title, []string{"Group", "Candidates", "Matched", "Records", "Matched records", "Rate"}, breakdownRows(b.groups)); err != nil {
			return err
		}
	}

	for _, top := range []struct {
		title string
		rows  []*Row
	}{
		{"Top matched", s.TopMatched},
		{"Top unmatched", s.TopUnmatched},
	} {
		if len(top.rows) == 0 {
			continue
		}
		if err := section(w, top.title, []string{"State", "Raw name", "College", "Pass", "Confidence", "Records"}, rowRows(top.rows)); err != nil {
			return err
		}
	}

	if q := s.Quality; q != nil {
		rows := [][]string{{"rows read", strconv.Itoa(q.Rows)}, {"valid", strconv.Itoa(q.Valid)}}
		for _, reason := range q.Reasons() {
			rows = append(rows, []string{"dropped: " + reason, strconv.Itoa(q.Dropped[reason])})
		}
		if q.FailedFiles > 0 {
			rows = append(rows, []string{"failed files", strconv.Itoa(q.FailedFiles)})
		}
		if err := section(w, "Ingestion quality", []string{"", "Count"}, rows); err != nil {
			return err
		}
	}

	if len(s.Anomalies) > 0 {
		rows := make([][]string, 0, len(s.Anomalies))
		for _, a := range s.Anomalies {
			rows = append(rows, []string{
				a.CollegeID, a.Course, a.Category, a.Quota, strconv.Itoa(a.Round), strconv.Itoa(a.Year),
				strconv.Itoa(a.OpeningRank), strconv.Itoa(a.ClosingRank),
			})
		}
		if err := section(w, "Rank anomalies", []string{"College", "Course", "Category", "Quota", "Round", "Year", "Opening", "Closing"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func section(w io.Writer, title string, headers []string, rows [][]string) error {
	fmt.Fprintln(w, title)

	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
	}))

	hdr := make([]any, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	table.Header(hdr...)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func breakdownRows(groups []*Breakdown) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Name,
			strconv.Itoa(g.Candidates),
			strconv.Itoa(g.MatchedCandidates),
			strconv.Itoa(g.Records),
			strconv.Itoa(g.MatchedRecords),
			percent(g.RecordMatchRate),
		})
	}
	return rows
}

func rowRows(top []*Row) [][]string {
	rows := make([][]string, 0, len(top))
	for _, r := range top {
		rows = append(rows, []string{
			r.State,
			r.RawName,
			r.CollegeName,
			r.Pass,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			strconv.Itoa(r.Records),
		})
	}
	return rows
}

func percent(r float64) string {
	return strconv.FormatFloat(r*100, 'f', 1, 64) + "%"
}
