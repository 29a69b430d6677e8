package app

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/indexmatch"
)

func (a *App) indexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the registry search index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Replace the search index documents with the current registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadIndex(cmd.Context())
		},
	})
	return cmd
}

func (a *App) loadIndex(ctx context.Context) error {
	if a.cfg.SearchBackend != "meilisearch" {
		return errors.New("index load needs SEARCH_BACKEND=meilisearch, the memory index is built on every run")
	}
	if err := a.require(ctx, depSearch); err != nil {
		return err
	}

	docs := indexmatch.BuildDocuments(a.registry)
	if err := a.search.Load(ctx, docs); err != nil {
		return err
	}
	a.logger.WithContext(ctx).WithFields(map[string]any{
		"index":     a.cfg.MeilisearchIndex,
		"documents": len(docs),
	}).Info("Loaded search index")
	return nil
}

func (a *App) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the staging schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.DatabaseDriver == "memory" {
				return errors.New("migrate needs DB_DRIVER postgres or sqlite")
			}
			a.cfg.DatabaseAutoMigrate = true
			return a.require(cmd.Context(), depDatabase)
		},
	}
}
