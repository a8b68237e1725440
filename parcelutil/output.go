/*
Copyright © 2013 the parcel authors.
This file is part of parcel.

parcel is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

parcel is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with parcel.  If not, see <http://www.gnu.org/licenses/>.
*/

package parcelutil

import (
	"fmt"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/scan"
	"github.com/tealeg/xlsx"
)

// Names of the sheets in the output workbooks.
const (
	TrajectorySheet = "Trajectory"
	ActivationSheet = "Activation"
	SummarySheet    = "Summary"
	ScanSheet       = "Scan"
)

// runOutput holds the results of a single simulation.
type runOutput struct {
	pop             *parcel.Population
	traj            *parcel.Trajectory
	act             parcel.ActivationResult
	kinetic         []bool
	kineticFraction float64
	preds           []namedPrediction
}

func addHeader(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func addFloats(row *xlsx.Row, vals ...float64) {
	for _, v := range vals {
		row.AddCell().SetFloat(v)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// write saves the results to an Excel workbook at path.
func (o *runOutput) write(path string) error {
	f := xlsx.NewFile()

	// Trajectory
	sheet, err := f.AddSheet(TrajectorySheet)
	if err != nil {
		return fmt.Errorf("parcel: writing output: %v", err)
	}
	cols, rows := o.traj.Table()
	addHeader(sheet, cols...)
	for _, r := range rows {
		addFloats(sheet.AddRow(), r...)
	}

	// Activation by bin
	if sheet, err = f.AddSheet(ActivationSheet); err != nil {
		return fmt.Errorf("parcel: writing output: %v", err)
	}
	header := []string{"species", "r_dry", "N", "kappa", "Sc", "activated", "kinetic"}
	for _, p := range o.preds {
		header = append(header, p.name)
	}
	addHeader(sheet, header...)
	species := o.pop.Species()
	for i, b := range o.pop.Bins() {
		row := sheet.AddRow()
		row.AddCell().SetString(species[b.Species].Name())
		addFloats(row, b.R, b.N, b.Kappa, o.act.Critical[i],
			boolFloat(o.act.Activated[i]), boolFloat(o.kinetic[i]))
		for _, p := range o.preds {
			addFloats(row, p.BinFraction[i])
		}
	}

	// Summary
	if sheet, err = f.AddSheet(SummarySheet); err != nil {
		return fmt.Errorf("parcel: writing output: %v", err)
	}
	summary := func(name string, v float64) {
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetFloat(v)
	}
	summary("Smax", o.act.Smax)
	summary("TimeOfMax", o.act.TimeOfMax)
	summary("AltitudeOfMax", o.act.AltitudeOfMax)
	summary("NumberFraction", o.act.NumberFraction)
	summary("MassFraction", o.act.MassFraction)
	summary("KineticFraction", o.kineticFraction)
	for j, s := range species {
		summary(s.Name()+"_NumberFraction", o.act.SpeciesNumberFraction[j])
		summary(s.Name()+"_MassFraction", o.act.SpeciesMassFraction[j])
	}
	for _, p := range o.preds {
		summary(p.name+"_Smax", p.Smax)
		summary(p.name+"_NumberFraction", p.NumberFraction)
	}
	summary("Steps", float64(o.traj.Stats.Steps))
	summary("Rejected", float64(o.traj.Stats.Rejected))
	summary("Evaluations", float64(o.traj.Stats.Evaluations))
	summary("Jacobians", float64(o.traj.Stats.Jacobians))

	if err := f.Save(path); err != nil {
		return fmt.Errorf("parcel: saving output: %v", err)
	}
	return nil
}

// writeScan saves the output variables for each scan result to an
// Excel workbook at path. Results for failed simulations have their
// error message in place of the output variables.
func writeScan(path string, results []*scan.Result, o *Outputter) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(ScanSheet)
	if err != nil {
		return fmt.Errorf("parcel: writing output: %v", err)
	}
	addHeader(sheet, append(append([]string{"V"}, o.Names()...), "Error")...)
	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetFloat(r.V)
		var msg string
		switch {
		case r.Err != nil:
			msg = r.Err.Error()
		case r.Predictions == nil:
			msg = "updraft speed must be positive"
		}
		if msg != "" {
			for range o.Names() {
				row.AddCell()
			}
			row.AddCell().SetString(msg)
			continue
		}
		vals, err := o.Evaluate(r)
		if err != nil {
			return err
		}
		for _, n := range o.Names() {
			row.AddCell().SetFloat(vals[n])
		}
		row.AddCell()
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("parcel: saving output: %v", err)
	}
	return nil
}
