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

// Package roots finds the roots of scalar functions.
package roots

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoBracket is returned when the function values at the interval ends
// do not have opposite signs.
var ErrNoBracket = errors.New("roots: interval does not bracket a root")

// ErrMaxIter is returned when the root is not found within the iteration
// limit.
var ErrMaxIter = errors.New("roots: maximum number of iterations exceeded")

// Brent finds a root of f within [a, b] using Brent's method. f(a) and f(b)
// must have opposite signs. The search stops when the bracketing interval is
// narrower than tol or after maxIter iterations. Errors returned by f are
// passed through to the caller.
func Brent(f func(float64) (float64, error), a, b, tol float64, maxIter int) (float64, error) {
	fa, err := f(a)
	if err != nil {
		return math.NaN(), err
	}
	fb, err := f(b)
	if err != nil {
		return math.NaN(), err
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return math.NaN(), fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", ErrNoBracket, a, fa, b, fb)
	}
	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < maxIter; i++ {
		if math.Signbit(fb) == math.Signbit(fc) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*epsilon*math.Abs(b) + 0.5*tol
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// Attempt inverse quadratic interpolation.
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*m*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else if m > 0 {
			b += tol1
		} else {
			b -= tol1
		}
		fb, err = f(b)
		if err != nil {
			return math.NaN(), err
		}
	}
	return b, ErrMaxIter
}

const epsilon = 2.220446049250313e-16
