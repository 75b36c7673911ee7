package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"microlens/domain/classify"
)

func newClassifyCmd(configFile *string) *cobra.Command {
	var modelPath string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "classify [lightcurve.csv...]",
		Short: "Classify lightcurves from CSV files",
		Long: `Classify one or more lightcurves stored as CSV with columns time,mag,magerr.
A header row is detected and skipped automatically.

Example: microlens classify ogle_blg_0011.csv --model model.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			logger := zap.NewNop()

			model, err := loadModel(modelPath, seed, logger)
			if err != nil {
				return err
			}
			pipeline, err := buildPipeline(cfg, model, logger)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, path := range args {
				times, mags, errs, err := readCurveCSV(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				result, err := pipeline.Classify(cmd.Context(), times, mags, errs)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				rows = append(rows, resultRow(path, result))
			}

			return printResults(rows)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to a trained model file (trains a reference model when empty)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Seed for reference-model training")
	return cmd
}

// readCurveCSV parses a time,mag,magerr table, skipping a header row.
func readCurveCSV(path string) (times, mags, errs []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, err
		}
		t, errT := strconv.ParseFloat(record[0], 64)
		m, errM := strconv.ParseFloat(record[1], 64)
		e, errE := strconv.ParseFloat(record[2], 64)
		if errT != nil || errM != nil || errE != nil {
			if first {
				first = false
				continue // header row
			}
			return nil, nil, nil, fmt.Errorf("non-numeric row %q", record)
		}
		first = false
		times = append(times, t)
		mags = append(mags, m)
		errs = append(errs, e)
	}
	return times, mags, errs, nil
}

func resultRow(path string, result *classify.PipelineResult) []string {
	confirmed := "-"
	chiSq := "-"
	if len(result.FitAttempts) > 0 {
		last := result.FitAttempts[len(result.FitAttempts)-1]
		chiSq = fmt.Sprintf("%.3f", last.ReducedChiSq)
		if result.Confirmed {
			confirmed = color.GreenString("yes (%s)", last.Method)
		} else {
			confirmed = color.RedString("no")
		}
	}
	label := result.Label.String()
	if result.Label == classify.LabelMicrolensing && result.Confirmed {
		label = color.HiGreenString(label)
	}
	return []string{
		path,
		label,
		fmt.Sprintf("%.3f", result.Probabilities[result.Label]),
		confirmed,
		chiSq,
		result.RunID.String(),
	}
}

func printResults(rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"File", "Label", "Prob", "Confirmed", "Chi2", "Run ID"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
