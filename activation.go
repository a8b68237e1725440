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

	"github.com/spatialmodel/parcel/science/growth"
)

// criticals is shared by all diagnostics; critical supersaturations
// depend only on the dry particle and the temperature.
var criticals = growth.NewCriticalCache(1 << 14)

// ActivationResult describes which particles in a population activated.
type ActivationResult struct {
	// Smax is the maximum supersaturation, and TimeOfMax and
	// AltitudeOfMax are when [s] and where [m] it occurred.
	Smax, TimeOfMax, AltitudeOfMax float64

	// Critical holds the critical supersaturation of each bin.
	Critical []float64

	// Activated holds whether each bin activated.
	Activated []bool

	// NumberFraction and MassFraction are the fractions of the total
	// particle number and dry mass that activated.
	NumberFraction, MassFraction float64

	// SpeciesNumberFraction and SpeciesMassFraction hold the activated
	// fractions of each species.
	SpeciesNumberFraction, SpeciesMassFraction []float64
}

// Diagnose classifies each bin in pop as activated if its critical
// supersaturation does not exceed the maximum supersaturation of traj.
func Diagnose(traj *Trajectory, pop *Population) (ActivationResult, error) {
	if traj == nil || traj.Len() == 0 {
		return ActivationResult{}, fmt.Errorf("parcel: empty trajectory")
	}
	// Use the temperature of the sample closest to the peak.
	iPeak := 0
	for i, t := range traj.Time {
		if math.Abs(t-traj.Peak.Time) < math.Abs(traj.Time[iPeak]-traj.Peak.Time) {
			iPeak = i
		}
	}
	res, err := DiagnoseAt(traj.Peak.S, traj.States[iPeak].T, pop)
	if err != nil {
		return res, err
	}
	res.TimeOfMax = traj.Peak.Time
	res.AltitudeOfMax = traj.Peak.Altitude
	return res, nil
}

// DiagnoseAt classifies each bin in pop as activated if its critical
// supersaturation at temperature T [K] does not exceed smax.
func DiagnoseAt(smax, T float64, pop *Population) (ActivationResult, error) {
	res := ActivationResult{
		Smax:                  smax,
		Critical:              make([]float64, pop.Len()),
		Activated:             make([]bool, pop.Len()),
		SpeciesNumberFraction: make([]float64, len(pop.species)),
		SpeciesMassFraction:   make([]float64, len(pop.species)),
	}
	for i, b := range pop.bins {
		_, sc, err := criticals.Critical(b.R, b.Kappa, T)
		if err != nil {
			return res, err
		}
		res.Critical[i] = sc
		res.Activated[i] = sc <= smax
	}
	res.NumberFraction, res.MassFraction = fractions(pop, res.Activated, 0, pop.Len())
	for j := range pop.species {
		start, end := pop.SpeciesRange(j)
		res.SpeciesNumberFraction[j], res.SpeciesMassFraction[j] = fractions(pop, res.Activated, start, end)
	}
	return res, nil
}

// fractions returns the activated number and mass fractions of bins
// [start, end).
func fractions(pop *Population, activated []bool, start, end int) (number, mass float64) {
	var n, nAct, m, mAct float64
	for i := start; i < end; i++ {
		b := pop.bins[i]
		n += b.N
		m += b.N * b.Mass
		if activated[i] {
			nAct += b.N
			mAct += b.N * b.Mass
		}
	}
	if n > 0 {
		number = nAct / n
	}
	if m > 0 {
		mass = mAct / m
	}
	return number, mass
}

// KineticActivation classifies each bin as activated if its wet radius
// at the end of traj is at least as large as its critical radius. Unlike
// Diagnose, it accounts for large particles that have not had time to
// grow past their critical radius. It returns the classification and the
// activated number fraction.
func KineticActivation(traj *Trajectory, pop *Population) ([]bool, float64, error) {
	if traj == nil || traj.Len() == 0 {
		return nil, 0, fmt.Errorf("parcel: empty trajectory")
	}
	_, final := traj.Final()
	if len(final.R) != pop.Len() {
		return nil, 0, fmt.Errorf("parcel: trajectory has %d bins but population has %d", len(final.R), pop.Len())
	}
	activated := make([]bool, pop.Len())
	for i, b := range pop.bins {
		rc, _, err := criticals.Critical(b.R, b.Kappa, final.T)
		if err != nil {
			return nil, 0, err
		}
		activated[i] = final.R[i] >= rc
	}
	number, _ := fractions(pop, activated, 0, pop.Len())
	return activated, number, nil
}

// Prediction is the result of an activation parameterization.
type Prediction struct {
	// Smax is the predicted maximum supersaturation.
	Smax float64

	// NumberFraction is the predicted activated fraction of all particles.
	NumberFraction float64

	// SpeciesFraction and BinFraction are the predicted activated number
	// fractions of each species and bin.
	SpeciesFraction, BinFraction []float64
}

// Parameterization is a closed-form approximation of cloud droplet
// activation. Implementations do not integrate the parcel equations.
type Parameterization interface {
	// Name returns the name of the parameterization.
	Name() string

	// Predict returns the maximum supersaturation and activated
	// fractions for a parcel rising at speed V [m/s] from temperature
	// T0 [K] and pressure P0 [Pa], carrying population pop, with
	// condensation coefficient accom.
	Predict(V, T0, P0 float64, pop *Population, accom float64) (Prediction, error)
}

// Modes returns the lognormal mode of each species in pop, or an error if
// any species was not created from a lognormal distribution.
func Modes(pop *Population) ([]Lognormal, error) {
	modes := make([]Lognormal, len(pop.species))
	for j, s := range pop.species {
		if s.mode == nil {
			return nil, &ConfigurationError{Param: s.name + ".Mode", Value: nil,
				Reason: "activation parameterizations require lognormal aerosol modes"}
		}
		modes[j] = *s.mode
	}
	return modes, nil
}

// PredictedFractions returns the fraction of each species and bin, and of
// the population as a whole, with a critical supersaturation below smax at
// temperature T [K]. The dry radius of the smallest activated particle is
// calculated from the dilute-solution approximation of κ-Köhler theory,
// and each species' lognormal mode determines the activated fraction of
// bins that straddle it.
func PredictedFractions(pop *Population, smax, T float64) (Prediction, error) {
	modes, err := Modes(pop)
	if err != nil {
		return Prediction{}, err
	}
	A, err := growth.KelvinCoefficient(T)
	if err != nil {
		return Prediction{}, err
	}
	p := Prediction{
		Smax:            smax,
		SpeciesFraction: make([]float64, len(modes)),
		BinFraction:     make([]float64, pop.Len()),
	}
	var nTotal, nAct float64
	for j, m := range modes {
		κ := pop.species[j].kappa
		var rAct float64
		if smax > 0 {
			rAct = math.Cbrt(4 * A * A * A / (27 * κ * smax * smax))
		} else {
			rAct = math.Inf(1)
		}
		dist := m.dist()
		p.SpeciesFraction[j] = dist.Survival(rAct)
		start, end := pop.SpeciesRange(j)
		for i := start; i < end; i++ {
			b := pop.bins[i]
			switch {
			case rAct <= b.Lo:
				p.BinFraction[i] = 1
			case rAct >= b.Hi:
				p.BinFraction[i] = 0
			default:
				p.BinFraction[i] = (dist.CDF(b.Hi) - dist.CDF(rAct)) / (dist.CDF(b.Hi) - dist.CDF(b.Lo))
			}
		}
		nTotal += m.N
		nAct += m.N * p.SpeciesFraction[j]
	}
	p.NumberFraction = nAct / nTotal
	return p, nil
}
