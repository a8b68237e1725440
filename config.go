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
	"strings"
	"time"

	"github.com/spatialmodel/parcel/science/thermo"
)

// Termination specifies when a simulation ends.
type Termination int

const (
	// FixedHorizon runs until SimulationConfig.TEnd.
	FixedHorizon Termination = iota

	// StopAfterPeak stops once the supersaturation has passed its
	// maximum and fallen by SimulationConfig.PeakMargin, or at TEnd,
	// whichever happens first.
	StopAfterPeak
)

func (t Termination) String() string {
	switch t {
	case FixedHorizon:
		return "FixedHorizon"
	case StopAfterPeak:
		return "StopAfterPeak"
	default:
		return fmt.Sprintf("Termination(%d)", int(t))
	}
}

// ParseTermination converts a string to a Termination. It is not case
// sensitive.
func ParseTermination(s string) (Termination, error) {
	switch strings.ToLower(s) {
	case "fixedhorizon", "fixed":
		return FixedHorizon, nil
	case "stopafterpeak", "peak":
		return StopAfterPeak, nil
	default:
		return 0, &ConfigurationError{Param: "Termination", Value: s, Reason: "valid options are 'FixedHorizon' and 'StopAfterPeak'"}
	}
}

// SimulationConfig holds the parameters of a simulation.
type SimulationConfig struct {
	// UpdraftSpeed is the constant vertical velocity of the parcel [m/s].
	UpdraftSpeed float64

	// P0, T0, and S0 are the initial pressure [Pa], temperature [K], and
	// supersaturation.
	P0, T0, S0 float64

	// AccommodationCoefficient is the condensation coefficient αc.
	AccommodationCoefficient float64

	// DtOutput is the interval between trajectory samples [s].
	DtOutput float64

	// TEnd is the maximum simulation time [s].
	TEnd float64

	// Termination is the termination policy.
	Termination Termination

	// PeakMargin is used with StopAfterPeak: the simulation stops once
	// S <= Smax - PeakMargin·|Smax|, with Smax the maximum so far.
	PeakMargin float64

	// Rtol and Atol are the relative and absolute solver tolerances.
	// Atol applies to the scaled state vector, where pressure is in hPa,
	// supersaturation is in percent, and radii are in μm.
	Rtol, Atol float64

	// MaxSteps limits the number of solver steps. Zero means no limit.
	MaxSteps int

	// MaxWallTime limits the run time of a simulation. Zero means no
	// limit.
	MaxWallTime time.Duration

	// RetryRelaxFactor is the factor the tolerances are multiplied by when
	// a failed integration is retried. Zero disables the retry.
	RetryRelaxFactor float64
}

// DefaultConfig returns a configuration with default values for
// everything except the initial state and updraft speed.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		UpdraftSpeed:             1,
		P0:                       100000,
		T0:                       283.15,
		S0:                       -0.05,
		AccommodationCoefficient: 1,
		DtOutput:                 1,
		TEnd:                     1800,
		Termination:              StopAfterPeak,
		PeakMargin:               0.1,
		Rtol:                     1e-6,
		Atol:                     1e-9,
		MaxSteps:                 100000,
		MaxWallTime:              10 * time.Minute,
		RetryRelaxFactor:         10,
	}
}

// Validate checks the configuration, returning a *ConfigurationError if a
// parameter is invalid.
func (c SimulationConfig) Validate() error {
	bad := func(param string, v interface{}, reason string) error {
		return &ConfigurationError{Param: param, Value: v, Reason: reason}
	}
	switch {
	case !(c.UpdraftSpeed > 0) || math.IsInf(c.UpdraftSpeed, 0):
		return bad("UpdraftSpeed", c.UpdraftSpeed, "updraft speed must be positive")
	case !(c.P0 >= thermo.PMin && c.P0 <= thermo.PMax):
		return bad("P0", c.P0, fmt.Sprintf("pressure must be within [%g, %g] Pa", thermo.PMin, thermo.PMax))
	case !(c.T0 >= thermo.TMin && c.T0 <= thermo.TMax):
		return bad("T0", c.T0, fmt.Sprintf("temperature must be within [%g, %g] K", thermo.TMin, thermo.TMax))
	case !(c.S0 > -1 && c.S0 < 0):
		return bad("S0", c.S0, "initial supersaturation must be within (-1, 0) so that particles start in equilibrium")
	case !(c.AccommodationCoefficient > 0 && c.AccommodationCoefficient <= 1):
		return bad("AccommodationCoefficient", c.AccommodationCoefficient, "must be within (0, 1]")
	case !(c.DtOutput > 0):
		return bad("DtOutput", c.DtOutput, "output interval must be positive")
	case !(c.TEnd >= c.DtOutput) || math.IsInf(c.TEnd, 0):
		return bad("TEnd", c.TEnd, "end time must be finite and at least one output interval")
	case c.Termination != FixedHorizon && c.Termination != StopAfterPeak:
		return bad("Termination", c.Termination, "unknown termination policy")
	case c.Termination == StopAfterPeak && !(c.PeakMargin > 0 && c.PeakMargin < 1):
		return bad("PeakMargin", c.PeakMargin, "must be within (0, 1)")
	case !(c.Rtol > 0 && c.Rtol < 1):
		return bad("Rtol", c.Rtol, "relative tolerance must be within (0, 1)")
	case !(c.Atol > 0):
		return bad("Atol", c.Atol, "absolute tolerance must be positive")
	case c.MaxSteps < 0:
		return bad("MaxSteps", c.MaxSteps, "must not be negative")
	case c.MaxWallTime < 0:
		return bad("MaxWallTime", c.MaxWallTime, "must not be negative")
	case c.RetryRelaxFactor != 0 && !(c.RetryRelaxFactor > 1):
		return bad("RetryRelaxFactor", c.RetryRelaxFactor, "must be zero or greater than 1")
	}
	return nil
}

// outputTimes returns the sample times DtOutput, 2·DtOutput, ..., ending
// at TEnd.
func (c SimulationConfig) outputTimes() []float64 {
	n := int(math.Floor(c.TEnd/c.DtOutput + 1e-9))
	out := make([]float64, 0, n+1)
	for i := 1; i <= n; i++ {
		out = append(out, float64(i)*c.DtOutput)
	}
	if last := out[len(out)-1]; c.TEnd-last > 1e-9*c.TEnd {
		out = append(out, c.TEnd)
	} else {
		out[len(out)-1] = c.TEnd
	}
	return out
}
