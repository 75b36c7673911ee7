// Command microlens is the operational CLI: classify lightcurves from CSV,
// emit simulated training sets, train the reference model, and serve the
// HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
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

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "microlens",
		Short: "Lightcurve classification with microlensing confirmation",
	}

	var configFile string
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(
		newClassifyCmd(&configFile),
		newSimulateCmd(&configFile),
		newTrainCmd(&configFile),
		newServeCmd(&configFile),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(configFile string) (*config.Config, error) {
	return config.Load(configFile)
}

// loadModel reads a trained model, or trains the reference model from
// simulations when no path is given.
func loadModel(path string, seed uint64, logger *zap.Logger) (ports.Model, error) {
	if path != "" {
		return centroid.Load(path)
	}
	logger.Info("no model file given, training reference model from simulations",
		zap.Uint64("seed", seed))
	return trainReferenceModel(seed, trainingset.DefaultOptions())
}

func trainReferenceModel(seed uint64, opts trainingset.Options) (*centroid.Model, error) {
	gen, err := simulate.NewGenerator(simulate.DefaultConfig(), seed)
	if err != nil {
		return nil, err
	}
	table, err := trainingset.Build(gen, opts)
	if err != nil {
		return nil, err
	}
	return centroid.Train(table.Examples())
}

// buildPipeline assembles the production stack around the given model.
func buildPipeline(cfg *config.Config, model ports.Model, logger *zap.Logger) (*app.Pipeline, error) {
	local := optimizers.NewLocalGradient(cfg.Pipeline.LocalMaxIter)
	global := optimizers.NewGlobalStochastic(cfg.Pipeline.GlobalMaxEvals, cfg.Pipeline.OptimizerSeed)
	return app.NewPipeline(model, pspl.NewModel(), local, global, cfg.Pipeline, logger)
}
