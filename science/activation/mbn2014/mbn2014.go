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

// Package mbn2014 implements the droplet activation parameterization of
// Morales Betancourt and Nenes (2014), an iterative refinement of
// Fountoukis and Nenes (2005), for lognormal aerosol modes with κ-Köhler
// hygroscopicity.
package mbn2014

import (
	"fmt"
	"math"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/internal/roots"
	"github.com/spatialmodel/parcel/science/activation"
	"github.com/spatialmodel/parcel/science/constants"
)

// Bounds of the search for the maximum supersaturation.
const (
	SmaxLow  = 1e-5
	SmaxHigh = 0.1
)

// Parameterization predicts droplet activation following Morales
// Betancourt and Nenes (2014).
type Parameterization struct {
	// Tolerance is the absolute convergence tolerance of the maximum
	// supersaturation. The default is 1e-10.
	Tolerance float64

	// MaxIterations is the iteration limit of the root search. The
	// default is 100.
	MaxIterations int
}

// Name returns "MBN2014".
func (Parameterization) Name() string { return "MBN2014" }

// Predict returns the predicted maximum supersaturation and activated
// fractions for a parcel rising at speed V [m/s] from temperature T0 [K]
// and pressure P0 [Pa].
func (p Parameterization) Predict(V, T0, P0 float64, pop *parcel.Population, accom float64) (parcel.Prediction, error) {
	if !(V > 0) {
		return parcel.Prediction{}, &parcel.ConfigurationError{Param: "UpdraftSpeed", Value: V, Reason: "must be positive"}
	}
	modes, err := parcel.Modes(pop)
	if err != nil {
		return parcel.Prediction{}, err
	}
	c, err := activation.NewCoefficients(T0, P0, accom)
	if err != nil {
		return parcel.Prediction{}, err
	}
	smax, err := p.Smax(c, V, modes, activation.Kappas(pop))
	if err != nil {
		return parcel.Prediction{}, err
	}
	return parcel.PredictedFractions(pop, smax, T0)
}

// Smax returns the maximum supersaturation predicted for a parcel with
// coefficients c rising at speed V [m/s] through the given modes with
// hygroscopicities kappa. It is the root of the supersaturation budget
// at the time of maximum supersaturation.
func (p Parameterization) Smax(c activation.Coefficients, V float64, modes []parcel.Lognormal, kappa []float64) (float64, error) {
	if len(modes) != len(kappa) {
		return math.NaN(), fmt.Errorf("mbn2014: %d modes but %d hygroscopicities", len(modes), len(kappa))
	}
	tol := p.Tolerance
	if tol == 0 {
		tol = 1e-10
	}
	maxIter := p.MaxIterations
	if maxIter == 0 {
		maxIter = 100
	}
	b := newBudget(c, V, modes, kappa)
	smax, err := roots.Brent(b.residual, SmaxLow, SmaxHigh, tol, maxIter)
	if err != nil {
		return math.NaN(), fmt.Errorf("mbn2014: %w", err)
	}
	return smax, nil
}

// budget is the supersaturation budget in the diameter-based notation of
// Fountoukis and Nenes (2005).
type budget struct {
	αV     float64
	ad, gd float64 // diameter-based Kelvin and growth coefficients
	cond   float64 // condensation rate per unit integral
	modes  []mode
}

type mode struct {
	n, lnσ, sg float64
}

func newBudget(c activation.Coefficients, V float64, modes []parcel.Lognormal, kappa []float64) *budget {
	b := &budget{
		αV:   c.Alpha * V,
		ad:   2 * c.A,
		gd:   4 * c.G,
		cond: c.Gamma * 2 * math.Pi * constants.RhoWater * c.G,
	}
	for i, m := range modes {
		if m.N <= 0 {
			continue
		}
		b.modes = append(b.modes, mode{
			n:   m.N,
			lnσ: math.Log(m.Sigma),
			sg:  c.ModeCritical(m.Mu, kappa[i]),
		})
	}
	return b
}

// partition returns the supersaturation that separates droplets whose
// size at the supersaturation maximum is controlled by growth kinetics
// from those that remain close to equilibrium.
func (b *budget) partition(smax float64) float64 {
	Δ := 1 - 16*b.ad*b.ad*b.αV/(9*b.gd*smax*smax*smax*smax)
	if Δ >= 0 {
		return smax * math.Sqrt(0.5*(1+math.Sqrt(Δ)))
	}
	return smax * math.Min(2e7*b.ad/3*math.Pow(smax, -0.3824), 1)
}

// integral approximates the size integral of droplets activated at smax.
func (b *budget) integral(smax float64) float64 {
	spart := b.partition(smax)
	var i1, i2 float64
	for _, m := range b.modes {
		upart := 2 * math.Log(m.sg/spart) / (3 * math.Sqrt2 * m.lnσ)
		umax := 2 * math.Log(m.sg/smax) / (3 * math.Sqrt2 * m.lnσ)
		ratio := m.sg / smax
		i1 += m.n / 2 * math.Sqrt(b.gd/b.αV) * smax *
			(math.Erfc(upart) - 0.5*ratio*ratio*math.Exp(4.5*m.lnσ*m.lnσ)*math.Erfc(upart+3*m.lnσ/math.Sqrt2))
		shift := 3 * m.lnσ / (2 * math.Sqrt2)
		i2 += b.ad * m.n / (3 * m.sg) * math.Exp(9.0/8.0*m.lnσ*m.lnσ) *
			(math.Erf(upart-shift) - math.Erf(umax-shift))
	}
	return i1 + i2
}

// residual is positive while the cooling of the parcel outpaces
// condensation.
func (b *budget) residual(smax float64) (float64, error) {
	if len(b.modes) == 0 {
		return math.NaN(), fmt.Errorf("no particles")
	}
	return b.αV - b.cond*smax*b.integral(smax), nil
}
