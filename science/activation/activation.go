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

// Package activation holds the quantities shared by the closed-form
// droplet activation parameterizations.
package activation

import (
	"math"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/science/constants"
	"github.com/spatialmodel/parcel/science/growth"
	"github.com/spatialmodel/parcel/science/thermo"
)

// Coefficients are the thermodynamic coefficients of the supersaturation
// budget of a rising parcel: dS/dt = Alpha·V - Gamma·d(ρw·Vliquid)/dt.
type Coefficients struct {
	// Alpha is the rate of supersaturation increase per unit of
	// ascent [1/m].
	Alpha float64

	// Gamma converts the condensation rate into a rate of
	// supersaturation decrease [m³/kg].
	Gamma float64

	// G is the radius-based droplet growth coefficient [m²/s], using the
	// size-averaged diffusivity of Fountoukis and Nenes (2005) and the
	// continuum thermal conductivity.
	G float64

	// A is the radius-based Kelvin coefficient [m].
	A float64
}

// NewCoefficients calculates the coefficients for a parcel at temperature
// T [K] and pressure P [Pa] with condensation coefficient accom.
func NewCoefficients(T, P, accom float64) (Coefficients, error) {
	tr, err := thermo.NewTransport(T, P)
	if err != nil {
		return Coefficients{}, err
	}
	dv, err := thermo.AveragedDiffusivity(T, P, accom)
	if err != nil {
		return Coefficients{}, err
	}
	A, err := growth.KelvinCoefficient(T)
	if err != nil {
		return Coefficients{}, err
	}
	const (
		g  = constants.Gravity
		Mw = constants.Mw
		Ma = constants.Ma
		R  = constants.R
		Cp = constants.Cp
	)
	L := tr.L
	return Coefficients{
		Alpha: g*Mw*L/(Cp*R*T*T) - g*Ma/(R*T),
		Gamma: R*T/(tr.Es*Mw) + Mw*L*L/(Cp*Ma*T*P),
		G:     tr.GrowthCoefficient(dv, tr.Ka),
		A:     A,
	}, nil
}

// ModeCritical returns the critical supersaturation of a particle with
// dry radius rd [m] and hygroscopicity κ from the dilute-solution
// approximation of κ-Köhler theory.
func (c Coefficients) ModeCritical(rd, κ float64) float64 {
	return math.Sqrt(4 * c.A * c.A * c.A / (27 * κ * rd * rd * rd))
}

// Kappas returns the hygroscopicity of each species in pop.
func Kappas(pop *parcel.Population) []float64 {
	species := pop.Species()
	k := make([]float64, len(species))
	for i, s := range species {
		k[i] = s.Kappa()
	}
	return k
}
