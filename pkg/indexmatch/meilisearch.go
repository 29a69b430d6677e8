package indexmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/meilisearch/meilisearch-go"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MeiliConfig holds the Meilisearch connection settings
type MeiliConfig struct {
	Host   string
	APIKey string
	Index  string
}

// MeiliBackend stores registry documents in a Meilisearch index
type MeiliBackend struct {
	client *meilisearch.Client
	index  string
	logger ectologger.Logger
}

// NewMeiliBackend creates a Meilisearch backed index
func NewMeiliBackend(cfg MeiliConfig, logger ectologger.Logger) *MeiliBackend {
	return &MeiliBackend{
		client: meilisearch.NewClient(meilisearch.ClientConfig{
			Host:   cfg.Host,
			APIKey: cfg.APIKey,
		}),
		index:  cfg.Index,
		logger: logger,
	}
}

func (b *MeiliBackend) Load(ctx context.Context, docs []Document) error {
	ctx, span := tracing.StartSpan(ctx, "indexmatch.MeiliBackend.Load")
	defer span.End()

	log := b.logger.WithContext(ctx).WithFields(map[string]any{
		"index":     b.index,
		"documents": len(docs),
	})

	idx := b.client.Index(b.index)

	task, err := idx.UpdateFilterableAttributes(&[]string{"state"})
	if err != nil {
		log.WithError(err).Error("Failed to set filterable attributes")
		return fmt.Errorf("set filterable attributes: %w", err)
	}
	if err := b.wait(task); err != nil {
		return err
	}

	task, err = idx.DeleteAllDocuments()
	if err != nil {
		log.WithError(err).Error("Failed to clear index")
		return fmt.Errorf("clear index: %w", err)
	}
	if err := b.wait(task); err != nil {
		return err
	}

	task, err = idx.AddDocuments(docs, "id")
	if err != nil {
		log.WithError(err).Error("Failed to add documents")
		return fmt.Errorf("add documents: %w", err)
	}
	if err := b.wait(task); err != nil {
		return err
	}

	log.Info("Loaded registry into search index")
	return nil
}

func (b *MeiliBackend) Search(ctx context.Context, query, state string, limit int) ([]Document, error) {
	_, span := tracing.StartSpan(ctx, "indexmatch.MeiliBackend.Search")
	defer span.End()

	resp, err := b.client.Index(b.index).Search(query, &meilisearch.SearchRequest{
		Filter: StateFilter(state),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", b.index, err)
	}

	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	return docs, nil
}

func (b *MeiliBackend) wait(task *meilisearch.TaskInfo) error {
	done, err := b.client.WaitForTask(task.TaskUID)
	if err != nil {
		return fmt.Errorf("wait for task %d: %w", task.TaskUID, err)
	}
	if done.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d finished with status %s", task.TaskUID, done.Status)
	}
	return nil
}

// StateFilter builds the hard state filter expression
func StateFilter(state string) string {
	return "state = " + strconv.Quote(state)
}
