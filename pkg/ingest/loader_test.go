package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const pgCSV = `ALL INDIA RANK,QUOTA,COLLEGE/INSTITUTE,STATE,COURSE,CATEGORY,ROUND
120,AIQ,"Seth G.S. Medical College, Mumbai",Maharashtra,MD General Medicine,GENERAL,AIQ_PG_R2
abc,AIQ,X,Goa,MBBS,GENERAL,1
,AIQ,X,Goa,MBBS,GENERAL,1
340,AIQ,,Goa,MBBS,GENERAL,1
,,,,,,
"1,234",AIQ,Y,Goa,MBBS,OBC,Round 1
500,AIQ,Z,Goa,MBBS,GENERAL,
1e300,AIQ,W,Goa,MBBS,GENERAL,1
`

func newTestLoader() *Loader {
	return NewLoader(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_LoadFile_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "AIQ-PG-2024.csv", pgCSV)

	records, report, err := newTestLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "AIQ-PG-2024", report.Partition)
	assert.Equal(t, 7, report.Rows)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, map[string]int{
		"invalid_rank":             2,
		"missing_rank":             1,
		"missing_raw_college_name": 1,
		"missing_round":            1,
	}, report.Dropped)

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, 120, first.Rank)
	assert.Equal(t, 2, first.Round)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, "Seth G.S. Medical College, Mumbai", first.RawCollegeName)
	assert.Equal(t, "AIQ", first.Source)
	assert.Equal(t, "PG", first.Level)
	assert.Equal(t, "AIQ-PG-2024.csv:2", first.Ref())

	assert.Equal(t, 1234, records[1].Rank)
	assert.Equal(t, 1, records[1].Round)
	assert.Equal(t, 7, records[1].RowNumber)
}

func TestLoader_LoadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "KEA-UG-2023_R3.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Rank", "Quota", "Institute", "State", "Course", "Category", "Year"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{55, "State", "Goa Medical College", "Goa", "MBBS", "SC", 2023}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, report, err := newTestLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Valid)
	require.Len(t, records, 1)
	assert.Equal(t, 55, records[0].Rank)
	assert.Equal(t, 2023, records[0].Year)
	assert.Equal(t, 3, records[0].Round)
	assert.Equal(t, "KEA", records[0].Source)
}

func TestLoader_LoadFiles_IsolatesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "AIQ-UG-2024.xlsx", "not a spreadsheet")
	missing := writeFile(t, dir, "AIQ-UG-2023.csv", "RANK,STATE\n1,Goa\n")
	good := writeFile(t, dir, "AIQ-PG-2024.csv", pgCSV)

	records, report := newTestLoader().LoadFiles(context.Background(), []string{bad, missing, good})

	assert.Len(t, records, 2)
	assert.Equal(t, 2, report.FailedFiles)
	require.Len(t, report.Files, 3)
	assert.NotEmpty(t, report.Files[0].Error)
	assert.Contains(t, report.Files[1].Error, "quota")
	assert.Empty(t, report.Files[2].Error)
	assert.Equal(t, 4, report.DroppedTotal())
	assert.Equal(t, report.Rows, report.Valid+report.DroppedTotal())
}

func TestMapHeader(t *testing.T) {
	_, err := mapHeader([]string{"RANK", "STATE"})
	assert.ErrorIs(t, err, ErrMissingColumns)

	idx, err := mapHeader([]string{"\ufeffRank", "quota", "College_Institute", "State", "Course", "Category", "Rank"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx[ColumnRank])
	assert.Equal(t, 2, idx[ColumnCollege])
	_, hasRound := idx[ColumnRound]
	assert.False(t, hasRound)
}

func TestParsePartition(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected Partition
		ok       bool
	}{
		{name: "plain", path: "data/AIQ-PG-2024.xlsx", expected: Partition{Source: "AIQ", Level: "PG", Year: 2024}, ok: true},
		{name: "underscores and round", path: "kea_ug_2023_round_2.csv", expected: Partition{Source: "KEA", Level: "UG", Year: 2023, Round: 2}, ok: true},
		{name: "unrecognized", path: "cutoffs.csv"},
		{name: "round only", path: "export_R4.csv", expected: Partition{Round: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParsePartition(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in string
		n  int
		ok bool
	}{
		{in: "120", n: 120, ok: true},
		{in: " 1,234 ", n: 1234, ok: true},
		{in: "340.0", n: 340, ok: true},
		{in: "", n: 0, ok: true},
		{in: "2147483647", n: 2147483647, ok: true},
		{in: "-5.0", n: -5, ok: true},
		{in: "12.5"},
		{in: "abc"},
		{in: "1e300"},
		{in: "-1e300"},
		{in: "2147483648"},
		{in: "99999999999.0"},
		{in: "Inf"},
		{in: "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := parseInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.n, n)
		})
	}
}
