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

// The solver works on a flat state vector with the layout
//
//	y[0]     pressure [hPa]
//	y[1]     temperature [K]
//	y[2]     supersaturation [%]
//	y[3+i]   wet radius of bin i [μm]
//
// The scaling brings all components to similar magnitudes. Encode, Decode,
// and encodeTendency are the only functions that know about this layout.
const (
	iP      = 0
	iT      = 1
	iS      = 2
	nScalar = 3

	pScale = 1e-2
	sScale = 1e2
	rScale = 1e6
)

// vectorLen returns the length of the state vector for a population with
// nbins bins.
func vectorLen(nbins int) int { return nScalar + nbins }

// Encode writes state s into dst, which is allocated if it is nil, and
// returns it.
func Encode(s ParcelState, dst []float64) []float64 {
	n := vectorLen(len(s.R))
	if dst == nil {
		dst = make([]float64, n)
	}
	dst[iP] = s.P * pScale
	dst[iT] = s.T
	dst[iS] = s.S * sScale
	for i, r := range s.R {
		dst[nScalar+i] = r * rScale
	}
	return dst
}

// Decode converts state vector y into a new ParcelState.
func Decode(y []float64) ParcelState {
	var s ParcelState
	decodeInto(y, &s)
	return s
}

// decodeInto converts y into s, reusing s.R if it has the right length.
func decodeInto(y []float64, s *ParcelState) {
	s.P = y[iP] / pScale
	s.T = y[iT]
	s.S = y[iS] / sScale
	nb := len(y) - nScalar
	if len(s.R) != nb {
		s.R = make([]float64, nb)
	}
	for i := range s.R {
		s.R[i] = y[nScalar+i] / rScale
	}
}

// encodeTendency writes the time derivative d into dst using the same
// layout and scaling as Encode.
func encodeTendency(d *Tendency, dst []float64) {
	dst[iP] = d.P * pScale
	dst[iT] = d.T
	dst[iS] = d.S * sScale
	for i, r := range d.R {
		dst[nScalar+i] = r * rScale
	}
}
