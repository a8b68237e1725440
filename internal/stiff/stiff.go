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

// Package stiff integrates stiff systems of ordinary differential equations
// using the second-order L-stable Rosenbrock method of Shampine and
// Reichelt (1997), with a finite difference Jacobian and continuous output.
package stiff

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Func calculates the time derivative dydt of state y at time t.
type Func func(t float64, y, dydt []float64) error

// Event is called after every accepted step. Integration stops if it
// returns true.
type Event func(t float64, y []float64) bool

// Problem is an initial value problem dy/dt = F(t, y), y(T0) = Y0, to be
// solved over [T0, T1].
type Problem struct {
	F      Func
	Y0     []float64
	T0, T1 float64
}

// Settings control the integration.
type Settings struct {
	// Rtol is the relative error tolerance.
	Rtol float64

	// Atol is the absolute error tolerance. It can either have one
	// element, which is used for every component, or one element per
	// component.
	Atol []float64

	// MaxSteps is the maximum number of steps, including rejected steps.
	// Zero means no limit.
	MaxSteps int

	// InitialStep, MinStep, and MaxStep limit the step size. Zero values
	// are replaced by defaults.
	InitialStep, MinStep, MaxStep float64

	// JacobianAge is the maximum number of accepted steps the Jacobian is
	// reused for. The Jacobian is always recalculated after a rejected
	// step. Zero means the default of 5.
	JacobianAge int
}

// Statistics describe the work done by the integrator.
type Statistics struct {
	Steps       int
	Rejected    int
	Evaluations int
	Jacobians   int
	LastStep    float64
}

// Solution holds the state at each requested output time.
type Solution struct {
	T     []float64
	Y     [][]float64
	Stats Statistics

	// Stopped is true if integration was stopped by an event, in which
	// case the last element of T and Y hold the state at the stopping
	// point.
	Stopped bool
}

// Errors returned by Solve.
var (
	ErrStepTooSmall = errors.New("stiff: step size too small")
	ErrMaxSteps     = errors.New("stiff: maximum number of steps exceeded")
	ErrNonFinite    = errors.New("stiff: non-finite state")
)

// Error holds information about an integration failure.
type Error struct {
	// T and Y are the last accepted time and state.
	T float64
	Y []float64

	// Step is the step size at the time of failure.
	Step float64

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stiff: integration failed at t=%g (h=%g): %v", e.T, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const (
	d   = 0.29289321881345247559915563789515 // 1/(2+√2)
	e32 = 7.4142135623730950488016887242097  // 6+√2

	defaultJacobianAge = 5
	jacobianStep       = 1e-7
	safety             = 0.8
	maxGrowth          = 5.0
	minShrink          = 0.2
)

// Solve integrates problem p, returning the state at each of the times in
// outputs, which must be increasing and within (p.T0, p.T1]. The
// solution calculated up to the point of any failure is always returned.
func Solve(ctx context.Context, p Problem, outputs []float64, s Settings, event Event) (*Solution, error) {
	if err := check(p, outputs, s); err != nil {
		return nil, err
	}
	n := len(p.Y0)
	atol := make([]float64, n)
	if len(s.Atol) == 1 {
		for i := range atol {
			atol[i] = s.Atol[0]
		}
	} else {
		copy(atol, s.Atol)
	}
	jacAge := s.JacobianAge
	if jacAge <= 0 {
		jacAge = defaultJacobianAge
	}
	maxStep := s.MaxStep
	if maxStep <= 0 {
		maxStep = p.T1 - p.T0
	}

	sol := &Solution{}
	in := newIntegrator(p.F, n, &sol.Stats)

	t := p.T0
	y := make([]float64, n)
	copy(y, p.Y0)

	fail := func(h float64, err error) (*Solution, error) {
		yy := make([]float64, n)
		copy(yy, y)
		sol.Stats.LastStep = h
		return sol, &Error{T: t, Y: yy, Step: h, Err: err}
	}

	if err := in.eval(t, y, in.f0); err != nil {
		return fail(0, err)
	}

	h := s.InitialStep
	if h <= 0 {
		h = initialStep(y, in.f0, atol, s.Rtol)
	}
	h = math.Min(h, maxStep)

	needJac := true
	age := 0
	var stageErr error // derivative error from the most recent rejected step
	next := 0          // index of the next output time
	for next < len(outputs) {
		if err := ctx.Err(); err != nil {
			return fail(h, err)
		}
		if s.MaxSteps > 0 && sol.Stats.Steps+sol.Stats.Rejected >= s.MaxSteps {
			return fail(h, ErrMaxSteps)
		}
		minStep := s.MinStep
		if floor := 16 * epsilon * math.Abs(t); minStep < floor {
			minStep = floor
		}
		if h < minStep {
			if stageErr != nil {
				return fail(h, fmt.Errorf("%w: %w", ErrStepTooSmall, stageErr))
			}
			return fail(h, ErrStepTooSmall)
		}
		if t+1.1*h >= p.T1 {
			h = p.T1 - t
		}

		if needJac {
			if err := in.jacobian(t, y); err != nil {
				return fail(h, err)
			}
			needJac = false
			age = 0
		}

		errNorm, err := in.step(t, y, h, atol, s.Rtol)
		if err != nil || math.IsNaN(errNorm) || errNorm > 1 {
			sol.Stats.Rejected++
			stageErr = err
			if err != nil || math.IsNaN(errNorm) {
				h *= 0.25
			} else {
				h *= math.Max(minShrink, safety*math.Pow(errNorm, -1.0/3))
			}
			needJac = true
			continue
		}

		// The step is accepted.
		stageErr = nil
		sol.Stats.Steps++
		tNew := t + h
		if tNew >= p.T1 || p.T1-tNew <= 16*epsilon*math.Abs(p.T1) {
			tNew = p.T1
		}
		for next < len(outputs) && outputs[next] <= tNew {
			sol.T = append(sol.T, outputs[next])
			sol.Y = append(sol.Y, in.interpolate(y, h, (outputs[next]-t)/h, outputs[next] == tNew))
			next++
		}
		t = tNew
		copy(y, in.yNew)
		copy(in.f0, in.f2)
		sol.Stats.LastStep = h

		if event != nil && event(t, y) {
			if len(sol.T) == 0 || sol.T[len(sol.T)-1] != t {
				yy := make([]float64, n)
				copy(yy, y)
				sol.T = append(sol.T, t)
				sol.Y = append(sol.Y, yy)
			}
			sol.Stopped = true
			return sol, nil
		}

		age++
		if age >= jacAge {
			needJac = true
		}
		fac := maxGrowth
		if errNorm > 0 {
			fac = math.Min(maxGrowth, safety*math.Pow(errNorm, -1.0/3))
		}
		h = math.Min(h*math.Max(fac, minShrink), maxStep)
	}
	return sol, nil
}

const epsilon = 2.220446049250313e-16

func check(p Problem, outputs []float64, s Settings) error {
	n := len(p.Y0)
	switch {
	case p.F == nil:
		return fmt.Errorf("stiff: derivative function is nil")
	case n == 0:
		return fmt.Errorf("stiff: empty initial state")
	case !(p.T1 > p.T0):
		return fmt.Errorf("stiff: end time (%g) must be after start time (%g)", p.T1, p.T0)
	case !(s.Rtol > 0):
		return fmt.Errorf("stiff: relative tolerance must be positive but is %g", s.Rtol)
	case len(s.Atol) != 1 && len(s.Atol) != n:
		return fmt.Errorf("stiff: absolute tolerance has length %d; it should have length 1 or %d", len(s.Atol), n)
	case len(outputs) == 0:
		return fmt.Errorf("stiff: no output times")
	}
	for _, a := range s.Atol {
		if !(a > 0) {
			return fmt.Errorf("stiff: absolute tolerance must be positive but is %g", a)
		}
	}
	for i, o := range outputs {
		if !(o > p.T0) || o > p.T1 || (i > 0 && !(o > outputs[i-1])) {
			return fmt.Errorf("stiff: output times must be increasing and within (%g, %g]", p.T0, p.T1)
		}
	}
	if !allFinite(p.Y0) {
		return ErrNonFinite
	}
	return nil
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// initialStep estimates a starting step size from the magnitudes of the
// state and its derivative (Hairer et al., 1993).
func initialStep(y, f, atol []float64, rtol float64) float64 {
	var d0, d1 float64
	for i := range y {
		sc := atol[i] + rtol*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (f[i] / sc) * (f[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(len(y)))
	d1 = math.Sqrt(d1 / float64(len(y)))
	if d0 < 1e-5 || d1 < 1e-5 {
		return 1e-6
	}
	return 0.01 * d0 / d1
}

// integrator holds the work space for a single integration.
type integrator struct {
	f     Func
	n     int
	stats *Statistics

	jac  *mat.Dense
	dfdt []float64
	w    *mat.Dense
	lu   mat.LU

	f0, f1, f2 []float64
	k1, k2, k3 []float64
	yTmp, yNew []float64
	fjac       []float64

	rhs           *mat.VecDense
	kv1, kv2, kv3 *mat.VecDense

	jacErr error
	tJac   float64
}

func newIntegrator(f Func, n int, stats *Statistics) *integrator {
	in := &integrator{
		f:     f,
		n:     n,
		stats: stats,
		jac:   mat.NewDense(n, n, nil),
		dfdt:  make([]float64, n),
		w:     mat.NewDense(n, n, nil),
		f0:    make([]float64, n),
		f1:    make([]float64, n),
		f2:    make([]float64, n),
		k1:    make([]float64, n),
		k2:    make([]float64, n),
		k3:    make([]float64, n),
		yTmp:  make([]float64, n),
		yNew:  make([]float64, n),
		fjac:  make([]float64, n),
	}
	in.rhs = mat.NewVecDense(n, nil)
	in.kv1 = mat.NewVecDense(n, in.k1)
	in.kv2 = mat.NewVecDense(n, in.k2)
	in.kv3 = mat.NewVecDense(n, in.k3)
	return in
}

func (in *integrator) eval(t float64, y, dydt []float64) error {
	in.stats.Evaluations++
	if err := in.f(t, y, dydt); err != nil {
		return err
	}
	if !allFinite(dydt) {
		return ErrNonFinite
	}
	return nil
}

// jacobian calculates the Jacobian matrix and the time derivative of the
// derivative function at (t, y). in.f0 must hold f(t, y).
func (in *integrator) jacobian(t float64, y []float64) error {
	in.stats.Jacobians++
	in.tJac = t
	if err := in.fdJacobian(y, fd.Forward); err != nil {
		// Near the edge of the domain of F only one side can be evaluated.
		if err := in.fdJacobian(y, fd.Backward); err != nil {
			return err
		}
	}
	δ := jacobianStep * math.Max(1, math.Abs(t))
	if err := in.eval(t+δ, y, in.fjac); err != nil {
		δ = -δ
		if err := in.eval(t+δ, y, in.fjac); err != nil {
			return err
		}
	}
	for i := range in.dfdt {
		in.dfdt[i] = (in.fjac[i] - in.f0[i]) / δ
	}
	return nil
}

// fdJacobian stores the finite difference approximation of ∂F/∂y at y
// using formula in in.jac.
func (in *integrator) fdJacobian(y []float64, formula fd.Formula) error {
	in.jacErr = nil
	fd.Jacobian(in.jac, func(dst, x []float64) {
		if in.jacErr != nil {
			return
		}
		if err := in.eval(in.tJac, x, dst); err != nil {
			in.jacErr = err
		}
	}, y, &fd.JacobianSettings{
		Formula:     formula,
		OriginValue: in.f0,
		Step:        jacobianStep,
	})
	return in.jacErr
}

// step attempts a step of size h from (t, y), storing the new state in
// in.yNew and its derivative in in.f2. It returns the weighted RMS norm of
// the local error estimate.
func (in *integrator) step(t float64, y []float64, h float64, atol []float64, rtol float64) (float64, error) {
	n := in.n
	hd := h * d
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -hd * in.jac.At(i, j)
			if i == j {
				v++
			}
			in.w.Set(i, j, v)
		}
	}
	in.lu.Factorize(in.w)

	// k1 = W⁻¹ (f0 + h d ∂f/∂t)
	for i := 0; i < n; i++ {
		in.rhs.SetVec(i, in.f0[i]+hd*in.dfdt[i])
	}
	if err := in.solve(in.kv1); err != nil {
		return math.NaN(), err
	}

	// f1 = f(t + h/2, y + h/2 k1)
	for i := 0; i < n; i++ {
		in.yTmp[i] = y[i] + 0.5*h*in.k1[i]
	}
	if err := in.eval(t+0.5*h, in.yTmp, in.f1); err != nil {
		return math.NaN(), err
	}

	// k2 = W⁻¹ (f1 - k1) + k1
	for i := 0; i < n; i++ {
		in.rhs.SetVec(i, in.f1[i]-in.k1[i])
	}
	if err := in.solve(in.kv2); err != nil {
		return math.NaN(), err
	}
	for i := 0; i < n; i++ {
		in.k2[i] += in.k1[i]
		in.yNew[i] = y[i] + h*in.k2[i]
	}
	if !allFinite(in.yNew) {
		return math.NaN(), ErrNonFinite
	}

	// f2 = f(t + h, y_new)
	if err := in.eval(t+h, in.yNew, in.f2); err != nil {
		return math.NaN(), err
	}

	// k3 = W⁻¹ (f2 - e32 (k2 - f1) - 2 (k1 - f0) + h d ∂f/∂t)
	for i := 0; i < n; i++ {
		in.rhs.SetVec(i, in.f2[i]-e32*(in.k2[i]-in.f1[i])-2*(in.k1[i]-in.f0[i])+hd*in.dfdt[i])
	}
	if err := in.solve(in.kv3); err != nil {
		return math.NaN(), err
	}

	var sum float64
	for i := 0; i < n; i++ {
		e := h / 6 * (in.k1[i] - 2*in.k2[i] + in.k3[i])
		sc := atol[i] + rtol*math.Max(math.Abs(y[i]), math.Abs(in.yNew[i]))
		sum += (e / sc) * (e / sc)
	}
	return math.Sqrt(sum / float64(n)), nil
}

// solve solves W x = in.rhs.
func (in *integrator) solve(x *mat.VecDense) error {
	err := in.lu.SolveVecTo(x, false, in.rhs)
	if err == nil {
		return nil
	}
	var c mat.Condition
	if errors.As(err, &c) && !math.IsInf(float64(c), 1) {
		return nil // ill-conditioned but finite
	}
	return err
}

// interpolate returns the state at fraction s of the way through the
// accepted step of size h from y, using the continuous extension of the
// method.
func (in *integrator) interpolate(y []float64, h, s float64, atEnd bool) []float64 {
	out := make([]float64, in.n)
	if atEnd {
		copy(out, in.yNew)
		return out
	}
	a := s * (1 - s) / (1 - 2*d)
	b := s * (s - 2*d) / (1 - 2*d)
	for i := range out {
		out[i] = y[i] + h*(a*in.k1[i]+b*in.k2[i])
	}
	return out
}
