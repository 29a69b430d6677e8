// Package ingest turns admission-round files into validated records
package ingest

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	ErrMissingColumns    = errors.New("missing required columns")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file has no header row")
)

// Loader reads source files into records, dropping and counting bad rows
type Loader struct {
	logger   ectologger.Logger
	validate *validator.Validate
}

// NewLoader creates a loader
func NewLoader(logger ectologger.Logger) *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Loader{logger: logger, validate: v}
}

// LoadFiles loads every file. A file that cannot be read is recorded in the
// report and skipped; the rest still load.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]*models.RawAdmissionRecord, *QualityReport) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Loader.LoadFiles")
	defer span.End()

	report := NewQualityReport()
	var records []*models.RawAdmissionRecord
	for _, path := range paths {
		fileRecords, fileReport, err := l.LoadFile(ctx, path)
		if err != nil {
			l.logger.WithContext(ctx).WithError(err).WithField("path", path).Error("Skipping unreadable source file")
		}
		report.Add(fileReport)
		records = append(records, fileRecords...)
	}
	return records, report
}

// LoadFile loads one file. The returned report is never nil.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*models.RawAdmissionRecord, *FileReport, error) {
	_, span := tracing.StartSpan(ctx, "ingest.Loader.LoadFile")
	defer span.End()

	report := &FileReport{Path: path}
	partition, _ := ParsePartition(path)
	report.Partition = partition.String()

	header, rows, err := readTable(path)
	if err == nil {
		var columns columnIndex
		columns, err = mapHeader(header)
		if err == nil {
			return l.parseRows(path, partition, columns, rows, report), report, nil
		}
	}

	report.Error = err.Error()
	return nil, report, err
}

func (l *Loader) parseRows(path string, partition Partition, columns columnIndex, rows [][]string, report *FileReport) []*models.RawAdmissionRecord {
	records := make([]*models.RawAdmissionRecord, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		report.Rows++

		// header is row 1
		record, reason := l.parseRow(row, columns, partition)
		if reason != "" {
			report.drop(reason)
			continue
		}
		record.SourceFile = filepath.Base(path)
		record.RowNumber = i + 2
		report.Valid++
		records = append(records, record)
	}
	return records
}

// parseRow builds and validates one record. A non-empty reason means the row
// was dropped.
func (l *Loader) parseRow(row []string, columns columnIndex, partition Partition) (*models.RawAdmissionRecord, string) {
	get := func(col Column) string {
		v, _ := columns.value(row, col)
		return v
	}

	record := &models.RawAdmissionRecord{
		Quota:          get(ColumnQuota),
		RawCollegeName: get(ColumnCollege),
		State:          get(ColumnState),
		RawCourseName:  get(ColumnCourse),
		Category:       get(ColumnCategory),
		Source:         partition.Source,
		Level:          partition.Level,
	}

	rank, ok := parseInt(get(ColumnRank))
	if !ok {
		return nil, "invalid_rank"
	}
	record.Rank = rank

	year, present := columns.value(row, ColumnYear)
	switch {
	case present && year != "":
		if record.Year, ok = parseInt(year); !ok {
			return nil, "invalid_year"
		}
	case !present:
		record.Year = partition.Year
	}

	round, present := columns.value(row, ColumnRound)
	switch {
	case present && round != "":
		record.Round = normalizers.NormalizeRound(round)
	case !present && partition.Round > 0:
		record.Round = partition.Round
	case !present:
		record.Round = 1
	}

	if err := l.validate.Struct(record); err != nil {
		return nil, dropReason(err)
	}
	return record, ""
}

func dropReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid_row"
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return "missing_" + fe.Field()
	}
	return "invalid_" + fe.Field()
}

// parseInt accepts "1,234" and integral floats such as "120.0" which spreadsheet
// exports produce. An empty cell parses as zero so validation reports it missing.
// Values outside the int32 range are rejected; the staging columns are INTEGER.
func parseInt(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, true
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
