package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"microlens/adapters/postgres"
	"microlens/internal/api"
	"microlens/internal/migration"
	"microlens/ports"
)

func newServeCmd(configFile *string) *cobra.Command {
	var modelPath string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classification HTTP API",
		Long: `Serve the classification API. With database.url configured, results are
persisted to the PostgreSQL ledger; without it the API runs stateless.

Example: microlens serve --model model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			model, err := loadModel(modelPath, seed, logger)
			if err != nil {
				return err
			}
			pipeline, err := buildPipeline(cfg, model, logger)
			if err != nil {
				return err
			}

			var results ports.ResultRepository
			if cfg.Database.URL != "" {
				db, err := postgres.Connect(cmd.Context(), cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := migration.NewRunner().Run(cmd.Context(), db); err != nil {
					return err
				}
				results = postgres.NewResultRepository(db)
				logger.Info("result ledger enabled")
			} else {
				logger.Info("no database configured, running stateless")
			}

			server := api.NewApp(pipeline, results, logger)
			logger.Info("serving classification API", zap.String("port", cfg.Server.Port))
			return http.ListenAndServe(":"+cfg.Server.Port, server.Router())
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to a trained model file (trains a reference model when empty)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Seed for reference-model training")
	return cmd
}
