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

// Package arg2000 implements the droplet activation parameterization of
// Abdul-Razzak and Ghan (2000) for a population of lognormal aerosol modes
// with κ-Köhler hygroscopicity.
package arg2000

import (
	"fmt"
	"math"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/science/activation"
	"github.com/spatialmodel/parcel/science/constants"
)

// Parameterization predicts droplet activation following Abdul-Razzak and
// Ghan (2000).
type Parameterization struct{}

// Name returns "ARG2000".
func (Parameterization) Name() string { return "ARG2000" }

// Predict returns the predicted maximum supersaturation and activated
// fractions for a parcel rising at speed V [m/s] from temperature T0 [K]
// and pressure P0 [Pa].
func (Parameterization) Predict(V, T0, P0 float64, pop *parcel.Population, accom float64) (parcel.Prediction, error) {
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
	smax, err := Smax(c, V, modes, activation.Kappas(pop))
	if err != nil {
		return parcel.Prediction{}, err
	}
	return parcel.PredictedFractions(pop, smax, T0)
}

// Smax returns the maximum supersaturation predicted for a parcel with
// coefficients c rising at speed V [m/s] through the given modes with
// hygroscopicities kappa.
func Smax(c activation.Coefficients, V float64, modes []parcel.Lognormal, kappa []float64) (float64, error) {
	if len(modes) != len(kappa) {
		return math.NaN(), fmt.Errorf("arg2000: %d modes but %d hygroscopicities", len(modes), len(kappa))
	}
	ratio := c.Alpha * V / c.G
	ζ := 2 * c.A / 3 * math.Sqrt(ratio)
	var sum float64
	for i, m := range modes {
		if m.N <= 0 {
			continue
		}
		lnσ := math.Log(m.Sigma)
		f := 0.5 * math.Exp(2.5*lnσ*lnσ)
		g := 1 + 0.25*lnσ
		η := math.Pow(ratio, 1.5) / (2 * math.Pi * constants.RhoWater * c.Gamma * m.N)
		sm := c.ModeCritical(m.Mu, kappa[i])
		sum += (f*math.Pow(ζ/η, 1.5) + g*math.Pow(sm*sm/(η+3*ζ), 0.75)) / (sm * sm)
	}
	if !(sum > 0) {
		return math.NaN(), fmt.Errorf("arg2000: no particles")
	}
	return 1 / math.Sqrt(sum), nil
}
