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
	"strings"

	"github.com/spatialmodel/parcel/science/thermo"
)

// ConfigurationError is returned when a simulation is set up with invalid
// parameters.
type ConfigurationError struct {
	// Param is the name of the offending parameter.
	Param string
	// Value is the offending value.
	Value interface{}
	// Reason describes the problem.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("parcel: invalid configuration: %s=%v: %s", e.Param, e.Value, e.Reason)
}

// DomainError is returned when a thermodynamic function is evaluated
// outside of its valid range.
type DomainError = thermo.DomainError

// IntegrationError is returned when the solver fails or exceeds its
// budget. The trajectory calculated up to the failure is kept.
type IntegrationError struct {
	// Config is the configuration of the failed run.
	Config SimulationConfig

	// Bins is the number of aerosol bins, and Species holds the names of
	// the aerosol species, in the population of the failed run.
	Bins    int
	Species []string

	// Time is the time of the last valid state [s].
	Time float64

	// Last is the last valid parcel state.
	Last ParcelState

	// Trajectory holds the samples calculated before the failure.
	Trajectory *Trajectory

	Err error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("parcel: integration failed at t=%g s (P=%g Pa, T=%g K, S=%g) with config %+v and %d bins of species [%s]: %v",
		e.Time, e.Last.P, e.Last.T, e.Last.S, e.Config, e.Bins, strings.Join(e.Species, ", "), e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }
