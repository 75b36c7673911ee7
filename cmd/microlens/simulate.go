package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"microlens/internal/simulate"
	"microlens/internal/trainingset"
)

func newSimulateCmd(configFile *string) *cobra.Command {
	var (
		perClass int
		epochs   int
		cadence  float64
		seed     uint64
		csvOut   string
		xlsxOut  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a labeled training set and export it",
		Long: `Simulate lightcurves for every source class, extract the full feature
catalogue, and export the labeled table.

Example: microlens simulate --per-class 100 --csv trainingset.csv --xlsx trainingset.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvOut == "" && xlsxOut == "" {
				return fmt.Errorf("at least one of --csv or --xlsx is required")
			}

			gen, err := simulate.NewGenerator(simulate.DefaultConfig(), seed)
			if err != nil {
				return err
			}
			table, err := trainingset.Build(gen, trainingset.Options{
				PerClass: perClass,
				Epochs:   epochs,
				Cadence:  cadence,
			})
			if err != nil {
				return err
			}

			if csvOut != "" {
				f, err := os.Create(csvOut)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := table.WriteCSV(f); err != nil {
					return err
				}
				fmt.Printf("wrote %d rows to %s\n", len(table.Rows), csvOut)
			}
			if xlsxOut != "" {
				if err := table.WriteXLSX(xlsxOut); err != nil {
					return err
				}
				fmt.Printf("wrote %d rows to %s\n", len(table.Rows), xlsxOut)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&perClass, "per-class", 50, "Simulated curves per class")
	cmd.Flags().IntVar(&epochs, "epochs", 150, "Epochs per curve")
	cmd.Flags().Float64Var(&cadence, "cadence", 1.0, "Days between epochs")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&csvOut, "csv", "", "CSV output path")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "XLSX output path")
	return cmd
}

func newTrainCmd(configFile *string) *cobra.Command {
	var (
		perClass int
		epochs   int
		cadence  float64
		seed     uint64
		out      string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the reference model on a simulated training set",
		Long: `Train the nearest-centroid reference model on simulated lightcurves and
save it as JSON for later classify/serve runs.

Example: microlens train --per-class 200 --out model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := trainReferenceModel(seed, trainingset.Options{
				PerClass: perClass,
				Epochs:   epochs,
				Cadence:  cadence,
			})
			if err != nil {
				return err
			}
			if err := model.Save(out); err != nil {
				return err
			}
			fmt.Printf("saved model (%d features) to %s\n", model.Dim, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&perClass, "per-class", 100, "Simulated curves per class")
	cmd.Flags().IntVar(&epochs, "epochs", 150, "Epochs per curve")
	cmd.Flags().Float64Var(&cadence, "cadence", 1.0, "Days between epochs")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&out, "out", "model.json", "Model output path")
	return cmd
}
