// The root binary serves the classification API with everything taken from
// the environment; the microlens CLI under cmd/ is the richer entrypoint.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"microlens/adapters/postgres"
	"microlens/internal/api"
	"microlens/internal/config"
	"microlens/internal/migration"
	"microlens/ports"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("MICROLENS_CONFIG"))
	if err != nil {
		return err
	}

	model, err := loadServerModel(cfg, logger)
	if err != nil {
		return err
	}
	pipeline, err := buildServerPipeline(cfg, model, logger)
	if err != nil {
		return err
	}

	var results ports.ResultRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			return err
		}
		results = postgres.NewResultRepository(db)
		logger.Info("result ledger enabled")
	}

	server := api.NewApp(pipeline, results, logger)
	logger.Info("serving classification API", zap.String("port", cfg.Server.Port))
	return http.ListenAndServe(":"+cfg.Server.Port, server.Router())
}
