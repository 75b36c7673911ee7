package main

import (
	"os"

	"go.uber.org/zap"

	"microlens/adapters/centroid"
	"microlens/adapters/optimizers"
	"microlens/adapters/pspl"
	"microlens/app"
	"microlens/internal/config"
	"microlens/internal/simulate"
	"microlens/internal/trainingset"
	"microlens/ports"
)

// loadServerModel reads the model named by MICROLENS_MODEL, or trains the
// reference model from simulations when unset.
func loadServerModel(cfg *config.Config, logger *zap.Logger) (ports.Model, error) {
	if path := os.Getenv("MICROLENS_MODEL"); path != "" {
		return centroid.Load(path)
	}
	logger.Info("MICROLENS_MODEL not set, training reference model from simulations")

	gen, err := simulate.NewGenerator(simulate.DefaultConfig(), cfg.Pipeline.OptimizerSeed)
	if err != nil {
		return nil, err
	}
	table, err := trainingset.Build(gen, trainingset.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return centroid.Train(table.Examples())
}

func buildServerPipeline(cfg *config.Config, model ports.Model, logger *zap.Logger) (*app.Pipeline, error) {
	local := optimizers.NewLocalGradient(cfg.Pipeline.LocalMaxIter)
	global := optimizers.NewGlobalStochastic(cfg.Pipeline.GlobalMaxEvals, cfg.Pipeline.OptimizerSeed)
	return app.NewPipeline(model, pspl.NewModel(), local, global, cfg.Pipeline, logger)
}
