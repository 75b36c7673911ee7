// Package trainingset turns the per-class simulators into a labeled feature
// table: n curves per class, each validated, feature-extracted, and tagged
// with its class and a sequential ID. The table feeds model training and can
// be exported as CSV or a spreadsheet for offline inspection.
package trainingset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"microlens/domain/classify"
	"microlens/domain/lightcurve"
	"microlens/internal/errors"
	"microlens/internal/features"
	"microlens/internal/simulate"
)

// Row is one simulated, feature-extracted lightcurve.
type Row struct {
	ID       int
	Label    classify.Label
	Features []float64
}

// Table is a complete training set over the fixed feature catalogue.
type Table struct {
	FeatureNames []string
	Rows         []Row
}

// Options controls the size and cadence of the simulated set.
type Options struct {
	PerClass int     // curves per class
	Epochs   int     // epochs per curve
	Cadence  float64 // days between epochs
}

// DefaultOptions gives a set large enough to train the reference model.
func DefaultOptions() Options {
	return Options{PerClass: 50, Epochs: 150, Cadence: 1.0}
}

// Build simulates Options.PerClass curves for every class and extracts the
// full feature catalogue from each. IDs are sequential across the whole
// table, grouped by class in canonical label order.
func Build(gen *simulate.Generator, opts Options) (*Table, error) {
	if opts.PerClass <= 0 {
		return nil, errors.InvalidInput("training set requires at least one curve per class")
	}
	if opts.Epochs < lightcurve.MinSamplesDefault {
		return nil, errors.InvalidInput(fmt.Sprintf("training curves need at least %d epochs", lightcurve.MinSamplesDefault))
	}

	engine := features.NewEngine()
	table := &Table{FeatureNames: features.Names()}

	id := 0
	for _, label := range classify.Labels() {
		for k := 0; k < opts.PerClass; k++ {
			times := gen.Timestamps(opts.Epochs, 0, opts.Cadence)
			curve, err := gen.Simulate(label, times)
			if err != nil {
				return nil, err
			}
			lc, err := lightcurve.New(curve.Time, curve.Mag, curve.Err, 0)
			if err != nil {
				return nil, err
			}
			vec, err := engine.Extract(lc).Slice()
			if err != nil {
				return nil, err
			}
			id++
			table.Rows = append(table.Rows, Row{ID: id, Label: label, Features: vec})
		}
	}
	return table, nil
}

// Examples regroups the table by class for model training.
func (t *Table) Examples() map[classify.Label][][]float64 {
	out := make(map[classify.Label][][]float64, len(classify.Labels()))
	for _, row := range t.Rows {
		out[row.Label] = append(out[row.Label], row.Features)
	}
	return out
}

// header is the shared column layout of both export formats.
func (t *Table) header() []string {
	return append([]string{"class", "id"}, t.FeatureNames...)
}

// WriteCSV streams the table as CSV with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header()); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(t.FeatureNames)+2)
		record = append(record, row.Label.String(), strconv.Itoa(row.ID))
		for _, v := range row.Features {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX saves the table as a single-sheet spreadsheet.
func (t *Table) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, name := range t.header() {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		values := make([]interface{}, 0, len(t.FeatureNames)+2)
		values = append(values, row.Label.String(), row.ID)
		for _, v := range row.Features {
			values = append(values, v)
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
