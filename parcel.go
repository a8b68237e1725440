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

// Package parcel is an adiabatic cloud parcel model. It simulates the
// condensational growth of a population of hygroscopic aerosol particles in
// a parcel of air rising at a constant speed, and diagnoses which particles
// activate into cloud droplets.
//
// A simulation starts from a Population of aerosol size bins and a
// SimulationConfig. Run integrates the Parcel ODE System with a stiff
// solver and returns a Trajectory, and Diagnose classifies each bin as
// activated or not based on the maximum supersaturation reached. The
// closed-form activation parameterizations in packages
// science/activation/arg2000 and science/activation/mbn2014 implement the
// Parameterization interface and can be used to check the numerical results.
package parcel

// Version gives the version number.
const Version = "0.1.0"
