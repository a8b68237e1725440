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

// Package growth implements the condensational growth law for a single
// solution droplet: κ-Köhler equilibrium supersaturation balanced against
// the kinetic resistance of vapor diffusion and heat conduction.
package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/spatialmodel/parcel/internal/roots"
	"github.com/spatialmodel/parcel/science/constants"
	"github.com/spatialmodel/parcel/science/thermo"
)

// maxLogSaturation caps ln(1+Seq) so that the equilibrium supersaturation
// of vanishingly small particles stays finite.
const maxLogSaturation = 10.0

// ErrSupercritical is returned by EquilibriumRadius when the requested
// supersaturation is at or above the particle's critical supersaturation,
// so that no stable equilibrium exists.
var ErrSupercritical = errors.New("growth: supersaturation exceeds the critical supersaturation")

// Particle holds the properties of a single solution droplet.
type Particle struct {
	R     float64 // wet radius [m]
	Rd    float64 // dry radius [m]
	Kappa float64 // hygroscopicity
}

// Environment holds the ambient conditions a droplet grows in.
type Environment struct {
	T     float64 // temperature [K]
	P     float64 // pressure [Pa]
	S     float64 // supersaturation
	Rho   float64 // air density [kg/m³]
	Alpha float64 // condensation accommodation coefficient
}

// KelvinCoefficient returns the coefficient A in the Kelvin term exp(A/r)
// [m].
func KelvinCoefficient(T float64) (float64, error) {
	σ, err := thermo.SurfaceTension(T)
	if err != nil {
		return math.NaN(), err
	}
	return 2 * σ * constants.Mw / (constants.R * T * constants.RhoWater), nil
}

// logSaturation returns ln(1+Seq).
func logSaturation(r, rd, κ, A float64) float64 {
	r3 := r * r * r
	rd3 := rd * rd * rd
	B := r3 - rd3
	if B <= 0 {
		return math.Inf(-1)
	}
	v := math.Log(B) - math.Log(r3-rd3*(1-κ)) + A/r
	return math.Min(v, maxLogSaturation)
}

// EquilibriumSupersaturation returns the supersaturation at which a
// droplet of wet radius r [m] with dry radius rd [m] and hygroscopicity κ is
// in equilibrium with its environment at temperature T [K]. At and below the
// dry radius the result is -1.
func EquilibriumSupersaturation(r, rd, κ, T float64) (float64, error) {
	if !(r > 0) || rd < 0 || !(κ > 0) {
		return math.NaN(), fmt.Errorf("growth: invalid particle: r=%g, rd=%g, κ=%g", r, rd, κ)
	}
	A, err := KelvinCoefficient(T)
	if err != nil {
		return math.NaN(), err
	}
	return math.Expm1(logSaturation(r, rd, κ, A)), nil
}

// Rate returns the rate of change of the wet radius of particle p [m/s]
// in environment env. A particle at or below its dry radius does not shrink
// further.
func Rate(env Environment, p Particle) (float64, error) {
	k, err := NewKinetics(env)
	if err != nil {
		return math.NaN(), err
	}
	return k.Rate(p)
}

// Kinetics calculates growth rates for many particles in the same
// environment.
type Kinetics struct {
	env Environment
	tr  thermo.Transport
	a   float64
}

// NewKinetics prepares growth rate calculations for environment env.
func NewKinetics(env Environment) (*Kinetics, error) {
	tr, err := thermo.NewTransport(env.T, env.P)
	if err != nil {
		return nil, err
	}
	A, err := KelvinCoefficient(env.T)
	if err != nil {
		return nil, err
	}
	if !(env.Alpha > 0) || !(env.Rho > 0) {
		return nil, fmt.Errorf("growth: accommodation coefficient (%g) and air density (%g) must be positive", env.Alpha, env.Rho)
	}
	return &Kinetics{env: env, tr: tr, a: A}, nil
}

// Rate returns the rate of change of the wet radius of particle p [m/s].
func (k *Kinetics) Rate(p Particle) (float64, error) {
	if !(p.R > 0) || p.Rd < 0 || !(p.Kappa > 0) {
		return math.NaN(), fmt.Errorf("growth: invalid particle: r=%g, rd=%g, κ=%g", p.R, p.Rd, p.Kappa)
	}
	seq := math.Expm1(logSaturation(p.R, p.Rd, p.Kappa, k.a))
	dv := k.tr.KineticDiffusivity(p.R, k.env.Alpha)
	ka := k.tr.KineticConductivity(p.R, k.env.Rho)
	G := k.tr.GrowthCoefficient(dv, ka)
	rate := G * (k.env.S - seq) / p.R
	if p.R <= p.Rd && rate < 0 {
		return 0, nil
	}
	return rate, nil
}

// ApproxCritical returns the critical radius [m] and critical
// supersaturation of a particle from the dilute-solution approximation of
// κ-Köhler theory (Petters and Kreidenweis, 2007).
func ApproxCritical(rd, κ, T float64) (rc, sc float64, err error) {
	if !(rd > 0) || !(κ > 0) {
		return math.NaN(), math.NaN(), fmt.Errorf("growth: invalid particle: rd=%g, κ=%g", rd, κ)
	}
	A, err := KelvinCoefficient(T)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	rd3 := rd * rd * rd
	return math.Sqrt(3 * κ * rd3 / A), math.Sqrt(4 * A * A * A / (27 * κ * rd3)), nil
}

// CriticalSupersaturation returns the critical radius [m] and critical
// supersaturation of a particle with dry radius rd [m] and hygroscopicity κ
// at temperature T [K]. These are the location and value of the maximum of
// the full κ-Köhler curve.
func CriticalSupersaturation(rd, κ, T float64) (rc, sc float64, err error) {
	rcApprox, _, err := ApproxCritical(rd, κ, T)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	A, _ := KelvinCoefficient(T)
	// Zero of r²·d ln(1+Seq)/dr, scaled by A, as a function of u = r/rd.
	f := func(u float64) (float64, error) {
		u3 := u * u * u
		u4 := u3 * u
		return (3*u4*rd/(u3-1) - 3*u4*rd/(u3-(1-κ)) - A) / A, nil
	}
	hi := 10 * math.Max(rcApprox/rd, 1)
	for i := 0; i < 20; i++ {
		if v, _ := f(hi); v < 0 {
			break
		}
		hi *= 10
	}
	u, err := roots.Brent(f, 1+1e-9, hi, 1e-12, 200)
	if err != nil {
		return math.NaN(), math.NaN(), fmt.Errorf("growth: critical supersaturation for rd=%g, κ=%g: %w", rd, κ, err)
	}
	rc = u * rd
	return rc, math.Expm1(logSaturation(rc, rd, κ, A)), nil
}

// EquilibriumRadius returns the wet radius [m] at which a particle with
// dry radius rd [m] and hygroscopicity κ is in stable equilibrium with
// supersaturation S at temperature T [K]. ErrSupercritical is returned if S
// is not below the critical supersaturation.
func EquilibriumRadius(S, rd, κ, T float64) (float64, error) {
	if !(S > -1) {
		return math.NaN(), fmt.Errorf("growth: invalid supersaturation %g", S)
	}
	rc, sc, err := CriticalSupersaturation(rd, κ, T)
	if err != nil {
		return math.NaN(), err
	}
	if S >= sc {
		return rc, fmt.Errorf("%w: S=%g, Sc=%g, rd=%g", ErrSupercritical, S, sc, rd)
	}
	A, _ := KelvinCoefficient(T)
	target := math.Log1p(S)
	f := func(u float64) (float64, error) {
		return logSaturation(u*rd, rd, κ, A) - target, nil
	}
	u, err := roots.Brent(f, 1+1e-12, rc/rd, 1e-13, 200)
	if err != nil {
		return math.NaN(), fmt.Errorf("growth: equilibrium radius for rd=%g, κ=%g, S=%g: %w", rd, κ, S, err)
	}
	return u * rd, nil
}
