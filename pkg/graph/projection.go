package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Writer runs a write statement
type Writer interface {
	Write(ctx context.Context, cypher string, params map[string]any) error
}

const (
	upsertCollegesCypher = `
		UNWIND $rows AS row
		MERGE (c:College {id: row.id})
		SET c.name = row.name, c.state = row.state, c.type = row.type`

	// The old edge is dropped first so a re-resolved name keeps one RESOLVES_TO edge.
	upsertResolutionsCypher = `
		UNWIND $rows AS row
		MERGE (r:RawCollege {state: row.state, raw_name: row.raw_name})
		SET r.record_count = row.record_count, r.pass = row.pass, r.method = row.method,
			r.needs_review = row.needs_review, r.run_id = $run_id
		WITH r, row
		OPTIONAL MATCH (r)-[old:RESOLVES_TO]->()
		DELETE old
		WITH r, row
		WHERE row.college_id <> ''
		MATCH (c:College {id: row.college_id})
		MERGE (r)-[e:RESOLVES_TO]->(c)
		SET e.confidence = row.confidence, e.manual = row.manual, e.variation = row.variation`
)

// Projector writes (:RawCollege)-[:RESOLVES_TO]->(:College)
type Projector struct {
	writer    Writer
	logger    ectologger.Logger
	batchSize int
}

func NewProjector(writer Writer, logger ectologger.Logger) *Projector {
	return &Projector{writer: writer, logger: logger, batchSize: 500}
}

// ProjectRegistry upserts one College node per registry entry
func (p *Projector) ProjectRegistry(ctx context.Context, reg *registry.Registry) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectRegistry")
	defer span.End()

	entries := reg.Entries()
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]any{
			"id":    e.ID,
			"name":  e.Name,
			"state": e.NormalizedState,
			"type":  string(e.Type),
		})
	}
	return p.writeBatches(ctx, upsertCollegesCypher, nil, rows)
}

// ProjectResults upserts one RawCollege node per result and points it at its college
func (p *Projector) ProjectResults(ctx context.Context, runID string, results []*models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectResults")
	defer span.End()

	return p.writeBatches(ctx, upsertResolutionsCypher, map[string]any{"run_id": runID}, resolutionRows(results))
}

func (p *Projector) writeBatches(ctx context.Context, cypher string, params map[string]any, rows []map[string]any) error {
	for start := 0; start < len(rows); start += p.batchSize {
		end := min(start+p.batchSize, len(rows))
		batch := map[string]any{"rows": rows[start:end]}
		for k, v := range params {
			batch[k] = v
		}
		if err := p.writer.Write(ctx, cypher, batch); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"batch_start": start,
				"batch_size":  end - start,
			}).Error("Failed to write graph batch")
			return fmt.Errorf("graph projection: %w", err)
		}
	}
	return nil
}

func resolutionRows(results []*models.MatchResult) []map[string]any {
	rows := make([]map[string]any, 0, len(results))
	for _, r := range results {
		collegeID := ""
		if r.CollegeID != nil {
			collegeID = *r.CollegeID
		}
		rows = append(rows, map[string]any{
			"state":        r.State,
			"raw_name":     r.RawName,
			"college_id":   collegeID,
			"record_count": r.RecordCount,
			"pass":         int(r.Pass),
			"method":       string(r.Method),
			"confidence":   r.Confidence,
			"needs_review": r.NeedsReview,
			"manual":       r.Manual,
			"variation":    r.MatchedVariation,
		})
	}
	return rows
}
