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

package parcel

import (
	"fmt"
	"math"

	"github.com/spatialmodel/parcel/science/constants"
	"github.com/spatialmodel/parcel/science/thermo"
)

// ParcelState is the state of the parcel at an instant in time.
type ParcelState struct {
	P float64 // pressure [Pa]
	T float64 // temperature [K]
	S float64 // supersaturation (relative humidity - 1)

	// R holds the wet radius of each aerosol bin [m], in the same order
	// as the bins in the Population.
	R []float64
}

// Clone returns a deep copy of s.
func (s ParcelState) Clone() ParcelState {
	s.R = append([]float64(nil), s.R...)
	return s
}

// VaporPressure returns the water vapor partial pressure [Pa].
func (s ParcelState) VaporPressure() (float64, error) {
	es, err := thermo.SaturationVaporPressure(s.T)
	if err != nil {
		return math.NaN(), err
	}
	return (1 + s.S) * es, nil
}

// VaporMixingRatio returns the water vapor mixing ratio [kg/kg dry air].
func (s ParcelState) VaporMixingRatio() (float64, error) {
	e, err := s.VaporPressure()
	if err != nil {
		return math.NaN(), err
	}
	return thermo.VaporMixingRatio(s.P, e)
}

// AirDensity returns the density of the moist air in the parcel [kg/m³].
func (s ParcelState) AirDensity() (float64, error) {
	wv, err := s.VaporMixingRatio()
	if err != nil {
		return math.NaN(), err
	}
	return thermo.MoistAirDensity(s.T, s.P, wv)
}

// DryAirDensity returns the density of the dry air in the parcel [kg/m³].
func (s ParcelState) DryAirDensity() (float64, error) {
	e, err := s.VaporPressure()
	if err != nil {
		return math.NaN(), err
	}
	return thermo.DryAirDensity(s.T, s.P, e)
}

// LiquidWaterMixingRatio returns the mass of water condensed on the
// particles of population pop per unit mass of dry air [kg/kg], where
// rhoDry is the dry air density that the population's number
// concentrations refer to.
func (s ParcelState) LiquidWaterMixingRatio(pop *Population, rhoDry float64) float64 {
	var wc float64
	for i, r := range s.R {
		b := pop.bins[i]
		wc += b.N * (r*r*r - b.R*b.R*b.R)
	}
	return 4. / 3. * math.Pi * constants.RhoWater * wc / rhoDry
}

// Peak describes the supersaturation maximum of a trajectory.
type Peak struct {
	S        float64 // maximum supersaturation
	Time     float64 // [s]
	Altitude float64 // [m]
}

// SolverStats describe the work done by the solver.
type SolverStats struct {
	Steps, Rejected, Evaluations, Jacobians int
}

// Trajectory is the time history of a parcel.
type Trajectory struct {
	// Time holds the sample times [s] in strictly increasing order.
	Time []float64

	// Altitude holds the height of the parcel above its starting
	// point [m] at each sample time.
	Altitude []float64

	// States holds the parcel state at each sample time.
	States []ParcelState

	// Peak is the supersaturation maximum found over all accepted
	// solver steps, which may fall between samples.
	Peak Peak

	// Stopped is true if the run ended early because the
	// supersaturation passed its peak.
	Stopped bool

	Stats SolverStats
}

// Len returns the number of samples.
func (t *Trajectory) Len() int { return len(t.Time) }

// Final returns the time and state of the last sample.
func (t *Trajectory) Final() (float64, ParcelState) {
	i := len(t.Time) - 1
	return t.Time[i], t.States[i]
}

// Table returns the trajectory as a table, with one row per sample and
// columns for time [s], altitude [m], pressure [Pa], temperature [K],
// supersaturation, and the wet radius of each bin [m].
func (t *Trajectory) Table() (columns []string, rows [][]float64) {
	columns = []string{"time", "z", "P", "T", "S"}
	if len(t.States) > 0 {
		for i := range t.States[0].R {
			columns = append(columns, fmt.Sprintf("r%03d", i))
		}
	}
	rows = make([][]float64, len(t.Time))
	for i, s := range t.States {
		row := make([]float64, 0, len(columns))
		row = append(row, t.Time[i], t.Altitude[i], s.P, s.T, s.S)
		row = append(row, s.R...)
		rows[i] = row
	}
	return columns, rows
}
