package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	mongodb "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
)

// NewEnsureIndexesCmd creates the ensure-indexes subcommand.
func NewEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the service relies on",
		Long: `Create the unique email index on every role collection, the unique
partial index on traders.client_id and the category lookup index.`,
		RunE: runEnsureIndexes,
	}
}

func runEnsureIndexes(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to mongo").Wrap(err)
	}
	defer func() {
		if err := mongodb.Disconnect(client, 0); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	if err := mongodb.NewIdentityRepository(db).EnsureIndexes(ctx); err != nil {
		return oops.Code("INDEX_FAILED").With("operation", "identity indexes").Wrap(err)
	}
	if err := mongodb.NewCategoryRepository(db).EnsureIndexes(ctx); err != nil {
		return oops.Code("INDEX_FAILED").With("operation", "category indexes").Wrap(err)
	}

	log.Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
	cmd.Println("Indexes ensured")
	return nil
}
