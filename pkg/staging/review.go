package staging

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Review reasons
const (
	ReasonAmbiguous     = "ambiguous"
	ReasonError         = "search-error"
	ReasonUnmatched     = "unmatched"
	ReasonLowConfidence = "low-confidence"
)

// QueueFilter narrows the review queue
type QueueFilter struct {
	State   string
	MinPass models.MatchPass
	Limit   int
	Offset  int
}

// ImportSummary reports a bulk alias import
type ImportSummary struct {
	Imported  int            `json:"imported"`
	Conflicts int            `json:"conflicts"`
	Rejected  map[string]int `json:"rejected,omitempty"`
}

// ReviewService turns reviewer decisions into durable aliases
type ReviewService struct {
	store    Store
	registry *registry.Registry
	logger   ectologger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewReviewService creates a review service. The registry validates
// reassignment targets.
func NewReviewService(store Store, reg *registry.Registry, logger ectologger.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		registry: reg,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Queue lists results waiting for review, highest record count first
func (s *ReviewService) Queue(ctx context.Context, filter QueueFilter) ([]*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.ReviewService.Queue")
	defer span.End()

	needsReview := true
	results, err := s.store.ListResults(ctx, ResultFilter{
		State:       filter.State,
		NeedsReview: &needsReview,
		MinPass:     filter.MinPass,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	items := make([]*models.ReviewItem, 0, len(results))
	for _, r := range results {
		items = append(items, &models.ReviewItem{MatchResult: *r, Reason: Reason(r)})
	}
	return items, nil
}

// Reason explains why a result is in the review queue
func Reason(r *models.MatchResult) string {
	switch {
	case r.Method == models.MethodError:
		return ReasonError
	case r.Ambiguous:
		return ReasonAmbiguous
	case !r.IsMatched():
		return ReasonUnmatched
	default:
		return ReasonLowConfidence
	}
}

// Decide applies a reviewer decision: the alias and the manual result are
// written together. A decision that replaces a different earlier decision
// wins and is logged as a conflict.
func (s *ReviewService) Decide(ctx context.Context, decision models.ReviewDecision) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.ReviewService.Decide")
	defer span.End()

	if err := s.validate.Struct(decision); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid review decision: %v", err)
	}

	current, err := s.store.GetResult(ctx, decision.Key)
	if err != nil {
		return nil, err
	}

	alias, err := s.buildAlias(decision, current)
	if err != nil {
		return nil, err
	}

	candidate := &models.UniqueCollegeCandidate{Key: decision.Key, RecordCount: current.RecordCount}
	result := matching.ResultFromAlias(alias, candidate, current.Strategy, s.now())

	if err := s.save(ctx, alias, result); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"state":    decision.Key.State,
		"raw_name": decision.Key.RawName,
		"action":   decision.Action,
		"target":   alias.Target(),
		"reviewer": decision.Reviewer,
	}).Info("Applied review decision")

	return result, nil
}

// RemoveAlias withdraws a decision. The candidate's manual result goes with
// it, so the next run matches the candidate automatically again.
func (s *ReviewService) RemoveAlias(ctx context.Context, key models.CandidateKey) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.ReviewService.RemoveAlias")
	defer span.End()

	if key.State == "" || key.RawName == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "state and raw name are required")
	}

	removed, err := s.store.DeleteAlias(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"state":    key.State,
		"raw_name": key.RawName,
		"target":   removed.Target(),
	}).Info("Removed alias")
	return removed, nil
}

func (s *ReviewService) buildAlias(decision models.ReviewDecision, current *models.MatchResult) (*models.Alias, error) {
	alias := &models.Alias{
		State:    decision.Key.State,
		RawName:  decision.Key.RawName,
		Action:   decision.Action,
		Reviewer: decision.Reviewer,
		Note:     decision.Note,
	}

	switch decision.Action {
	case models.ReviewActionAccept:
		if !current.IsMatched() {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s has no suggested college to accept", decision.Key)
		}
		id := *current.CollegeID
		alias.CollegeID = &id
		alias.CollegeName = current.CollegeName
	case models.ReviewActionReassign, models.ReviewActionImport:
		entry, err := s.target(decision.Key, decision.CollegeID)
		if err != nil {
			return nil, err
		}
		id := entry.ID
		alias.CollegeID = &id
		alias.CollegeName = entry.Name
	case models.ReviewActionNoMatch:
		alias.NoMatch = true
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown review action %q", decision.Action)
	}
	return alias, nil
}

// target resolves a reassignment college and keeps it inside the candidate's state
func (s *ReviewService) target(key models.CandidateKey, collegeID string) (*registry.Entry, error) {
	if s.registry == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a registry is required to reassign candidates")
	}
	entry, ok := s.registry.Get(collegeID)
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "college %s is not in the registry", collegeID)
	}
	if entry.NormalizedState != key.State {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "college %s is in %s, not %s", collegeID, entry.NormalizedState, key.State)
	}
	return entry, nil
}

func (s *ReviewService) save(ctx context.Context, alias *models.Alias, result *models.MatchResult) error {
	previous, err := s.store.SaveDecision(ctx, alias, result)
	if err != nil {
		return err
	}
	if previous != nil && previous.Target() != alias.Target() {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"state":           alias.State,
			"raw_name":        alias.RawName,
			"previous_target": previous.Target(),
			"previous_by":     previous.Reviewer,
			"new_target":      alias.Target(),
			"new_by":          alias.Reviewer,
		}).Warn("Review decision replaces a conflicting alias")
	}
	return nil
}

// ImportAliases loads decisions from CSV with the columns state, raw_name,
// college_id and optionally no_match, note. Rows with an empty college_id
// and no_match true record a no-match decision. Invalid rows are counted and
// skipped.
func (s *ReviewService) ImportAliases(ctx context.Context, r io.Reader, reviewer string) (*ImportSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.ReviewService.ImportAliases")
	defer span.End()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "alias file has no header: %v", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"state", "raw_name"} {
		if _, ok := cols[required]; !ok {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "alias file is missing the %s column", required)
		}
	}
	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	summary := &ImportSummary{Rejected: make(map[string]int)}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, httperror.NewHTTPErrorf(http.StatusBadRequest, "malformed alias file: %v", err)
		}

		rawState := get(row, "state")
		key := models.CandidateKey{RawName: get(row, "raw_name")}
		if s.registry != nil {
			key.State = s.registry.Normalizer().State(rawState)
		} else {
			key.State = strings.ToUpper(rawState)
		}
		if key.State == "" || key.RawName == "" {
			summary.Rejected["missing_key"]++
			continue
		}

		noMatch, _ := strconv.ParseBool(get(row, "no_match"))
		collegeID := get(row, "college_id")

		alias := &models.Alias{
			State:    key.State,
			RawName:  key.RawName,
			Action:   models.ReviewActionImport,
			Reviewer: reviewer,
			Note:     get(row, "note"),
		}
		switch {
		case noMatch || strings.EqualFold(collegeID, "no-match"):
			alias.NoMatch = true
		case collegeID == "":
			summary.Rejected["missing_college_id"]++
			continue
		default:
			entry, err := s.target(key, collegeID)
			if err != nil {
				summary.Rejected["invalid_college_id"]++
				continue
			}
			id := entry.ID
			alias.CollegeID = &id
			alias.CollegeName = entry.Name
		}

		// a staged candidate gets its manual result now; otherwise the next run applies the alias
		var result *models.MatchResult
		if current, err := s.store.GetResult(ctx, key); err == nil {
			candidate := &models.UniqueCollegeCandidate{Key: key, RecordCount: current.RecordCount}
			result = matching.ResultFromAlias(alias, candidate, current.Strategy, s.now())
		} else if httperror.GetStatusCode(err) != http.StatusNotFound {
			return summary, err
		}

		previous, err := s.store.SaveDecision(ctx, alias, result)
		if err != nil {
			return summary, fmt.Errorf("import alias %s: %w", key, err)
		}
		if previous != nil && previous.Target() != alias.Target() {
			summary.Conflicts++
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"state":           key.State,
				"raw_name":        key.RawName,
				"previous_target": previous.Target(),
				"new_target":      alias.Target(),
			}).Warn("Imported alias replaces a conflicting alias")
		}
		summary.Imported++
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"imported":  summary.Imported,
		"conflicts": summary.Conflicts,
		"rejected":  summary.Rejected,
	}).Info("Imported aliases")
	return summary, nil
}
