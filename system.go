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
	"github.com/spatialmodel/parcel/science/growth"
	"github.com/spatialmodel/parcel/science/thermo"
)

// Tendency holds the time derivative of a ParcelState.
type Tendency struct {
	P, T, S float64   // [Pa/s], [K/s], [1/s]
	R       []float64 // [m/s]

	// Wc is the rate of change of the liquid water mixing ratio
	// [kg/kg/s]. The vapor mixing ratio changes at the rate -Wc.
	Wc float64
}

// System is the set of ordinary differential equations describing the
// parcel: hydrostatic pressure change, adiabatic cooling with latent
// heating, the supersaturation budget, and droplet growth in each bin.
// A System is not safe for concurrent use.
type System struct {
	pop *Population
	cfg SimulationConfig

	// number of particles in each bin per kg of dry air
	n  []float64
	rd []float64
	κ  []float64

	rhoDry0 float64

	scratch ParcelState
	tend    Tendency
}

// NewSystem returns the ODE system for population pop and configuration
// cfg.
func NewSystem(pop *Population, cfg SimulationConfig) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pop == nil || pop.Len() == 0 {
		return nil, &ConfigurationError{Param: "population", Value: 0, Reason: "the aerosol population is empty"}
	}
	s0 := ParcelState{P: cfg.P0, T: cfg.T0, S: cfg.S0}
	rhoDry0, err := s0.DryAirDensity()
	if err != nil {
		return nil, err
	}
	sys := &System{
		pop:     pop,
		cfg:     cfg,
		n:       make([]float64, pop.Len()),
		rd:      make([]float64, pop.Len()),
		κ:       make([]float64, pop.Len()),
		rhoDry0: rhoDry0,
		tend:    Tendency{R: make([]float64, pop.Len())},
	}
	for i, b := range pop.bins {
		sys.n[i] = b.N / rhoDry0
		sys.rd[i] = b.R
		sys.κ[i] = b.Kappa
	}
	return sys, nil
}

// InitialState returns the initial state of the parcel, with each
// particle in equilibrium with the initial supersaturation.
func (sys *System) InitialState() (ParcelState, error) {
	s := ParcelState{P: sys.cfg.P0, T: sys.cfg.T0, S: sys.cfg.S0, R: make([]float64, sys.pop.Len())}
	for i := range s.R {
		r, err := growth.EquilibriumRadius(s.S, sys.rd[i], sys.κ[i], s.T)
		if err != nil {
			return ParcelState{}, fmt.Errorf("parcel: initial radius of bin %d: %w", i, err)
		}
		s.R[i] = r
	}
	return s, nil
}

// Derivative calculates the time derivative of state s and stores it in
// d. d.R must have the same length as s.R.
func (sys *System) Derivative(s ParcelState, d *Tendency) error {
	if len(s.R) != len(sys.n) || len(d.R) != len(sys.n) {
		return fmt.Errorf("parcel: state has %d radii and tendency has %d; want %d", len(s.R), len(d.R), len(sys.n))
	}
	es, err := thermo.SaturationVaporPressure(s.T)
	if err != nil {
		return err
	}
	desdT, err := thermo.DSaturationVaporPressureDT(s.T)
	if err != nil {
		return err
	}
	L, err := thermo.LatentHeat(s.T)
	if err != nil {
		return err
	}
	e := (1 + s.S) * es
	wv, err := thermo.VaporMixingRatio(s.P, e)
	if err != nil {
		return err
	}
	ρ, err := thermo.MoistAirDensity(s.T, s.P, wv)
	if err != nil {
		return err
	}
	kin, err := growth.NewKinetics(growth.Environment{
		T:     s.T,
		P:     s.P,
		S:     s.S,
		Rho:   ρ,
		Alpha: sys.cfg.AccommodationCoefficient,
	})
	if err != nil {
		return err
	}

	var dwc float64
	for i, r := range s.R {
		dr, err := kin.Rate(growth.Particle{R: r, Rd: sys.rd[i], Kappa: sys.κ[i]})
		if err != nil {
			return fmt.Errorf("parcel: bin %d: %w", i, err)
		}
		d.R[i] = dr
		dwc += sys.n[i] * r * r * dr
	}
	dwc *= 4 * math.Pi * constants.RhoWater
	dwv := -dwc

	V := sys.cfg.UpdraftSpeed
	d.Wc = dwc
	d.P = -ρ * constants.Gravity * V
	d.T = -constants.Gravity*V/constants.Cp + L/constants.Cp*dwc

	// Differentiate e = P·wv/(ε+wv) and e = (1+S)·es(T).
	ε := constants.Epsilon
	dedt := wv/(ε+wv)*d.P + s.P*ε/((ε+wv)*(ε+wv))*dwv
	d.S = (dedt - (1+s.S)*desdT*d.T) / es
	return nil
}

// LiquidWater returns the liquid water mixing ratio of state s [kg/kg].
func (sys *System) LiquidWater(s ParcelState) float64 {
	return s.LiquidWaterMixingRatio(sys.pop, sys.rhoDry0)
}

// TotalWater returns the total water mixing ratio, vapor plus liquid, of
// state s [kg/kg]. It is conserved as the parcel evolves.
func (sys *System) TotalWater(s ParcelState) (float64, error) {
	wv, err := s.VaporMixingRatio()
	if err != nil {
		return math.NaN(), err
	}
	return wv + sys.LiquidWater(s), nil
}

// f is the derivative function in the form required by the solver.
func (sys *System) f(_ float64, y, dydt []float64) error {
	decodeInto(y, &sys.scratch)
	if err := sys.Derivative(sys.scratch, &sys.tend); err != nil {
		return err
	}
	encodeTendency(&sys.tend, dydt)
	return nil
}
