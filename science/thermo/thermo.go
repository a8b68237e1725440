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

// Package thermo provides the thermodynamic state functions of moist air and
// liquid water used by the parcel model. All functions are pure. Inputs
// outside of the supported range of 200–320 K and 300–110,000 Pa result in a
// *DomainError.
package thermo

import (
	"fmt"
	"math"

	"github.com/spatialmodel/parcel/science/constants"
)

// Valid input ranges.
const (
	TMin = 200.0
	TMax = 320.0
	PMin = 300.0
	PMax = 110000.0
)

// DomainError is returned when a thermodynamic function is called with an
// input outside of its valid physical range.
type DomainError struct {
	Func     string
	Variable string
	Value    float64
	Min, Max float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("thermo: %s: %s=%g is outside of the valid range [%g, %g]",
		e.Func, e.Variable, e.Value, e.Min, e.Max)
}

func checkT(fn string, T float64) error {
	if !(T >= TMin && T <= TMax) {
		return &DomainError{Func: fn, Variable: "T", Value: T, Min: TMin, Max: TMax}
	}
	return nil
}

func checkP(fn string, P float64) error {
	if !(P >= PMin && P <= PMax) {
		return &DomainError{Func: fn, Variable: "P", Value: P, Min: PMin, Max: PMax}
	}
	return nil
}

func checkTP(fn string, T, P float64) error {
	if err := checkT(fn, T); err != nil {
		return err
	}
	return checkP(fn, P)
}

// SaturationVaporPressure returns the saturation vapor pressure over a flat
// surface of liquid water [Pa] at temperature T [K], using the
// Clausius–Clapeyron fit of Bolton (1980).
func SaturationVaporPressure(T float64) (float64, error) {
	if err := checkT("SaturationVaporPressure", T); err != nil {
		return math.NaN(), err
	}
	return es(T), nil
}

func es(T float64) float64 {
	return 611.2 * math.Exp(17.67*(T-constants.T0C)/(T-29.65))
}

// DSaturationVaporPressureDT returns the derivative of the saturation
// vapor pressure with respect to temperature [Pa/K].
func DSaturationVaporPressureDT(T float64) (float64, error) {
	if err := checkT("DSaturationVaporPressureDT", T); err != nil {
		return math.NaN(), err
	}
	d := T - 29.65
	return es(T) * 17.67 * (constants.T0C - 29.65) / (d * d), nil
}

// LatentHeat returns the latent heat of vaporization of water [J/kg].
func LatentHeat(T float64) (float64, error) {
	if err := checkT("LatentHeat", T); err != nil {
		return math.NaN(), err
	}
	return latentHeat(T), nil
}

func latentHeat(T float64) float64 {
	return constants.L0 - 2370*(T-constants.T0C)
}

// VaporMixingRatio returns the water vapor mass mixing ratio [kg/kg dry air]
// given total pressure P and vapor pressure e [Pa].
func VaporMixingRatio(P, e float64) (float64, error) {
	if err := checkP("VaporMixingRatio", P); err != nil {
		return math.NaN(), err
	}
	if e < 0 || e >= P {
		return math.NaN(), &DomainError{Func: "VaporMixingRatio", Variable: "e", Value: e, Min: 0, Max: P}
	}
	return constants.Epsilon * e / (P - e), nil
}

// VaporPressure returns the water vapor partial pressure [Pa] given the total
// pressure P [Pa] and the vapor mixing ratio wv [kg/kg].
func VaporPressure(P, wv float64) (float64, error) {
	if err := checkP("VaporPressure", P); err != nil {
		return math.NaN(), err
	}
	return P * wv / (constants.Epsilon + wv), nil
}

// DryAirDensity returns the density of the dry air component [kg/m³] given
// temperature T [K], total pressure P [Pa] and vapor pressure e [Pa].
func DryAirDensity(T, P, e float64) (float64, error) {
	if err := checkTP("DryAirDensity", T, P); err != nil {
		return math.NaN(), err
	}
	return (P - e) / (constants.Rd * T), nil
}

// MoistAirDensity returns the density of moist air [kg/m³] using the virtual
// temperature, given temperature T [K], pressure P [Pa], and vapor mixing
// ratio wv [kg/kg].
func MoistAirDensity(T, P, wv float64) (float64, error) {
	if err := checkTP("MoistAirDensity", T, P); err != nil {
		return math.NaN(), err
	}
	Tv := T * (1 + 0.61*wv)
	return P / (constants.Rd * Tv), nil
}

// Diffusivity returns the continuum diffusivity of water vapor in air
// [m²/s] (Pruppacher and Klett, 1997).
func Diffusivity(T, P float64) (float64, error) {
	if err := checkTP("Diffusivity", T, P); err != nil {
		return math.NaN(), err
	}
	return diffusivity(T, P), nil
}

func diffusivity(T, P float64) float64 {
	return 0.211e-4 * math.Pow(T/constants.T0C, 1.94) * (constants.Pstd / P)
}

// Conductivity returns the continuum thermal conductivity of air [W/(m K)].
func Conductivity(T float64) (float64, error) {
	if err := checkT("Conductivity", T); err != nil {
		return math.NaN(), err
	}
	return conductivity(T), nil
}

func conductivity(T float64) float64 {
	return 1e-3 * (4.39 + 0.071*T)
}

// DynamicViscosity returns the dynamic viscosity of air [kg/(m s)]
// from Sutherland's law.
func DynamicViscosity(T float64) (float64, error) {
	if err := checkT("DynamicViscosity", T); err != nil {
		return math.NaN(), err
	}
	return dynamicViscosity(T), nil
}

func dynamicViscosity(T float64) float64 {
	return 1.458e-6 * math.Pow(T, 1.5) / (T + 110.4)
}

// MeanFreePath returns the mean free path of air molecules [m]
// (Seinfeld and Pandis, eq. 9.6).
func MeanFreePath(T, P float64) (float64, error) {
	if err := checkTP("MeanFreePath", T, P); err != nil {
		return math.NaN(), err
	}
	return meanFreePath(T, P), nil
}

func meanFreePath(T, P float64) float64 {
	return 2 * dynamicViscosity(T) / (P * math.Sqrt(8*constants.Ma/(math.Pi*constants.R*T)))
}

// SurfaceTension returns the surface tension of water against air [J/m²].
func SurfaceTension(T float64) (float64, error) {
	if err := checkT("SurfaceTension", T); err != nil {
		return math.NaN(), err
	}
	return surfaceTension(T), nil
}

func surfaceTension(T float64) float64 {
	return 0.0761 - 1.55e-4*(T-constants.T0C)
}

// KineticDiffusivity returns the diffusivity of water vapor corrected for
// non-continuum effects at the surface of a droplet of radius r [m]
// (Pruppacher and Klett, 1997, eq. 13.14). The vapor jump length is taken to
// be the mean free path of air, and αc is the condensation (mass)
// accommodation coefficient.
func KineticDiffusivity(T, P, r, αc float64) (float64, error) {
	tr, err := NewTransport(T, P)
	if err != nil {
		return math.NaN(), err
	}
	if !(r > 0) || !(αc > 0) {
		return math.NaN(), fmt.Errorf("thermo: KineticDiffusivity: radius (%g) and accommodation coefficient (%g) must be positive", r, αc)
	}
	return tr.KineticDiffusivity(r, αc), nil
}

// KineticConductivity returns the thermal conductivity of air corrected for
// non-continuum effects at the surface of a droplet of radius r [m]
// (Pruppacher and Klett, 1997, eq. 13.20). ρ is the air density [kg/m³].
func KineticConductivity(T, P, ρ, r float64) (float64, error) {
	tr, err := NewTransport(T, P)
	if err != nil {
		return math.NaN(), err
	}
	if !(r > 0) || !(ρ > 0) {
		return math.NaN(), fmt.Errorf("thermo: KineticConductivity: radius (%g) and density (%g) must be positive", r, ρ)
	}
	return tr.KineticConductivity(r, ρ), nil
}

// Transport holds the state-dependent properties needed to calculate
// droplet growth, so that they can be calculated once and reused for
// many droplets.
type Transport struct {
	T, P float64

	Dv           float64 // continuum vapor diffusivity [m²/s]
	Ka           float64 // continuum thermal conductivity [W/(m K)]
	MeanFreePath float64 // [m]
	Es           float64 // saturation vapor pressure [Pa]
	L            float64 // latent heat [J/kg]

	vaporSpeed, heatSpeed float64
}

// NewTransport calculates the transport properties of air at temperature T
// [K] and pressure P [Pa].
func NewTransport(T, P float64) (Transport, error) {
	if err := checkTP("NewTransport", T, P); err != nil {
		return Transport{}, err
	}
	return Transport{
		T:            T,
		P:            P,
		Dv:           diffusivity(T, P),
		Ka:           conductivity(T),
		MeanFreePath: meanFreePath(T, P),
		Es:           es(T),
		L:            latentHeat(T),
		vaporSpeed:   math.Sqrt(2 * math.Pi * constants.Mw / (constants.R * T)),
		heatSpeed:    math.Sqrt(2 * math.Pi * constants.Ma / (constants.R * T)),
	}, nil
}

// KineticDiffusivity returns the vapor diffusivity at the surface of a
// droplet of radius r with accommodation coefficient αc.
func (tr Transport) KineticDiffusivity(r, αc float64) float64 {
	return tr.Dv / (r/(r+tr.MeanFreePath) + tr.Dv/(r*αc)*tr.vaporSpeed)
}

// KineticConductivity returns the thermal conductivity at the surface of a
// droplet of radius r in air of density ρ.
func (tr Transport) KineticConductivity(r, ρ float64) float64 {
	return tr.Ka / (r/(r+tr.MeanFreePath) + tr.Ka/(r*constants.AlphaT*ρ*constants.Cp)*tr.heatSpeed)
}

// GrowthCoefficient returns the coefficient G [m²/s] in the droplet growth
// law r dr/dt = G (S - Seq), given the corrected diffusivity dv and
// conductivity ka (Seinfeld and Pandis, eq. 17.70).
func (tr Transport) GrowthCoefficient(dv, ka float64) float64 {
	Ga := constants.RhoWater * constants.R * tr.T / (tr.Es * dv * constants.Mw)
	Gb := tr.L * constants.RhoWater * (tr.L*constants.Mw/(constants.R*tr.T) - 1) / (ka * tr.T)
	return 1 / (Ga + Gb)
}

// AveragedDiffusivity returns the vapor diffusivity averaged over the range
// of droplet sizes that is relevant for growth near the supersaturation
// maximum (Fountoukis and Nenes, 2005, eq. 17). It is used by the
// closed-form activation parameterizations.
func AveragedDiffusivity(T, P, αc float64) (float64, error) {
	if err := checkTP("AveragedDiffusivity", T, P); err != nil {
		return math.NaN(), err
	}
	if !(αc > 0) {
		return math.NaN(), fmt.Errorf("thermo: AveragedDiffusivity: accommodation coefficient must be positive but is %g", αc)
	}
	const dpBig = 5e-6
	dpLow := math.Min(0.207683*math.Pow(αc, -0.33048), 5.0) * 1e-6
	dv := diffusivity(T, P)
	B := 2 * dv * math.Sqrt(2*math.Pi*constants.Mw/(constants.R*T)) / αc
	if dpLow >= dpBig {
		return dv / (1 + B/dpBig), nil
	}
	return dv / (dpBig - dpLow) * ((dpBig - dpLow) - B*math.Log((dpBig+B)/(dpLow+B))), nil
}

// GrowthCoefficient returns the coefficient G [m²/s] in the droplet growth
// law r dr/dt = G (S - Seq), combining resistance to vapor diffusion and to
// the conduction of latent heat, given the corrected diffusivity dv and
// conductivity ka.
func GrowthCoefficient(T, P, dv, ka float64) (float64, error) {
	tr, err := NewTransport(T, P)
	if err != nil {
		return math.NaN(), err
	}
	return tr.GrowthCoefficient(dv, ka), nil
}
