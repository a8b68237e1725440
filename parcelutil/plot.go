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
	"os"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/scan"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	figWidth  = 5 * vg.Inch
	figHeight = 3.5 * vg.Inch
)

// plotTrajectory plots the supersaturation profile of traj, along with
// the maximum supersaturation predicted by each parameterization, to a
// PNG file.
func plotTrajectory(path string, traj *parcel.Trajectory, preds []namedPrediction) error {
	p := plot.New()
	p.Title.Text = "Supersaturation profile"
	p.X.Label.Text = "Supersaturation (%)"
	p.Y.Label.Text = "Height (m)"

	xy := make(plotter.XYs, traj.Len())
	for i, s := range traj.States {
		xy[i].X = s.S * 100
		xy[i].Y = traj.Altitude[i]
	}
	lines := []interface{}{"parcel", xy}
	zMax := traj.Altitude[traj.Len()-1]
	for _, pred := range preds {
		lines = append(lines, pred.name, plotter.XYs{
			{X: pred.Smax * 100, Y: 0},
			{X: pred.Smax * 100, Y: zMax},
		})
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("parcel: plotting trajectory: %v", err)
	}
	p.Legend.Top = true
	return savePlot(p, path)
}

// plotScan plots the simulated and predicted maximum supersaturation
// against updraft speed to a PNG file. Failed simulations are left out.
func plotScan(path string, results []*scan.Result) error {
	p := plot.New()
	p.Title.Text = "Maximum supersaturation"
	p.X.Label.Text = "Updraft speed (m/s)"
	p.Y.Label.Text = "Smax (%)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}

	var sim plotter.XYs
	preds := make(map[string]plotter.XYs)
	var names []string
	for _, r := range results {
		if r.Err != nil || r.Predictions == nil {
			continue
		}
		sim = append(sim, plotter.XY{X: r.V, Y: r.Activation.Smax * 100})
		for _, param := range scan.Parameterizations {
			pred, ok := r.Predictions[param.Name()]
			if !ok {
				continue
			}
			if _, ok := preds[param.Name()]; !ok {
				names = append(names, param.Name())
			}
			preds[param.Name()] = append(preds[param.Name()], plotter.XY{X: r.V, Y: pred.Smax * 100})
		}
	}
	if len(sim) == 0 {
		return fmt.Errorf("parcel: plotting scan: all simulations failed")
	}
	lines := []interface{}{"parcel", sim}
	for _, n := range names {
		lines = append(lines, n, preds[n])
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("parcel: plotting scan: %v", err)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return savePlot(p, path)
}

func savePlot(p *plot.Plot, path string) error {
	wt, err := p.WriterTo(figWidth, figHeight, "png")
	if err != nil {
		return fmt.Errorf("parcel: saving plot: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parcel: saving plot: %v", err)
	}
	if _, err = wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("parcel: saving plot: %v", err)
	}
	return f.Close()
}
