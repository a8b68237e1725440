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

// Package constants holds the physical constants used throughout the parcel
// model. Values are untyped Go constants so that they cannot be modified at
// run time; Table provides a dimensioned view of the same values.
package constants

import "github.com/ctessum/unit"

// Physical constants in SI units.
const (
	// Gravity is the acceleration due to gravity [m/s²].
	Gravity = 9.81

	// Cp is the specific heat of dry air at constant pressure [J/(kg K)].
	Cp = 1004.0

	// L0 is the latent heat of vaporization of water at 0 °C [J/kg].
	L0 = 2.501e6

	// RhoWater is the density of liquid water [kg/m³].
	RhoWater = 1000.0

	// Rd is the gas constant for dry air [J/(kg K)].
	Rd = 287.0

	// Rv is the gas constant for water vapor [J/(kg K)].
	Rv = 461.5

	// R is the universal gas constant [J/(mol K)].
	R = 8.314

	// Mw is the molar mass of water [kg/mol].
	Mw = 18.0153e-3

	// Ma is the molar mass of dry air [kg/mol].
	Ma = 28.9e-3

	// Epsilon is the ratio of the molar masses of water and dry air.
	Epsilon = 0.622

	// AlphaT is the thermal accommodation coefficient.
	AlphaT = 0.96

	// T0C is the freezing point of water [K].
	T0C = 273.15

	// Pstd is standard sea-level pressure [Pa].
	Pstd = 101325.0

	// DefaultAerosolDensity is the density assumed for aerosol particles
	// (ammonium sulfate) when none is given [kg/m³].
	DefaultAerosolDensity = 1760.0
)

var (
	joulePerKgK = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}
	joulePerKg  = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2}
	joulePerK   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}
)

// Constant is a named physical constant with dimensions.
type Constant struct {
	Name   string
	Symbol string
	Value  *unit.Unit

	// Note holds information that the dimensions cannot express,
	// such as a per-mole basis.
	Note string
}

// Table returns the physical constants used by the model. A new copy is
// returned on every call, so callers may modify the result freely.
func Table() []Constant {
	return []Constant{
		{Name: "gravitational acceleration", Symbol: "g", Value: unit.New(Gravity, unit.MeterPerSecond2)},
		{Name: "specific heat of dry air", Symbol: "Cp", Value: unit.New(Cp, joulePerKgK)},
		{Name: "latent heat of vaporization at 0 °C", Symbol: "L0", Value: unit.New(L0, joulePerKg)},
		{Name: "density of liquid water", Symbol: "ρw", Value: unit.New(RhoWater, unit.KilogramPerMeter3)},
		{Name: "dry air gas constant", Symbol: "Rd", Value: unit.New(Rd, joulePerKgK)},
		{Name: "water vapor gas constant", Symbol: "Rv", Value: unit.New(Rv, joulePerKgK)},
		{Name: "universal gas constant", Symbol: "R", Value: unit.New(R, joulePerK), Note: "per mole"},
		{Name: "molar mass of water", Symbol: "Mw", Value: unit.New(Mw, unit.Kilogram), Note: "per mole"},
		{Name: "molar mass of dry air", Symbol: "Ma", Value: unit.New(Ma, unit.Kilogram), Note: "per mole"},
		{Name: "molar mass ratio of water to dry air", Symbol: "ε", Value: unit.New(Epsilon, unit.Dimless)},
		{Name: "thermal accommodation coefficient", Symbol: "αT", Value: unit.New(AlphaT, unit.Dimless)},
		{Name: "freezing point of water", Symbol: "T0", Value: unit.New(T0C, unit.Kelvin)},
		{Name: "standard pressure", Symbol: "Pstd", Value: unit.New(Pstd, unit.Pascal)},
		{Name: "default aerosol density", Symbol: "ρa", Value: unit.New(DefaultAerosolDensity, unit.KilogramPerMeter3)},
	}
}
