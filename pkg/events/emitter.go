// Package events handles event emission for resolution changes
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Publisher is the transport the emitter writes to
type Publisher interface {
	Publish(ctx context.Context, messages ...kafka.Message) error
}

// Emitter handles event emission for clover
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EmitResults emits one event per result, keyed by candidate so changes to a
// candidate stay ordered.
func (e *Emitter) EmitResults(ctx context.Context, runID string, results []*models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResults")
	defer span.End()

	if len(results) == 0 {
		return nil
	}

	now := e.now()
	messages := make([]kafka.Message, 0, len(results))
	for _, r := range results {
		event := ResolutionEvent{
			BaseEvent: BaseEvent{
				EventType:     resultEventType(r),
				SchemaVersion: SchemaVersion,
				RunID:         runID,
				Timestamp:     now,
			},
			State:            r.State,
			RawName:          r.RawName,
			CollegeName:      r.CollegeName,
			Pass:             r.Pass,
			Method:           r.Method,
			Confidence:       r.Confidence,
			NeedsReview:      r.NeedsReview,
			Manual:           r.Manual,
			MatchedVariation: r.MatchedVariation,
			RecordCount:      r.RecordCount,
		}
		if r.CollegeID != nil {
			event.CollegeID = *r.CollegeID
		}
		messages = append(messages, kafka.Message{
			Key:       r.Key().String(),
			EventType: string(event.EventType),
			Value:     event,
		})
	}

	if err := e.publisher.Publish(ctx, messages...); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit resolution events")
		return err
	}
	return nil
}

// EmitRunCompleted emits the run summary event
func (e *Emitter) EmitRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	event.EventType = EventTypeRunCompleted
	event.SchemaVersion = SchemaVersion
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}

	if err := e.publisher.Publish(ctx, kafka.Message{Key: event.RunID, EventType: string(event.EventType), Value: event}); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.completed event")
		return err
	}
	return nil
}

func resultEventType(r *models.MatchResult) EventType {
	switch {
	case r.NeedsReview:
		return EventTypeReviewRequired
	case r.IsMatched():
		return EventTypeCollegeResolved
	default:
		return EventTypeCollegeUnresolved
	}
}
