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

package stiff

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	floats.Span(out, a, b)
	return out
}

func TestExponentialDecay(t *testing.T) {
	p := Problem{
		F: func(_ float64, y, dydt []float64) error {
			dydt[0] = -y[0]
			dydt[1] = -100 * (y[1] - math.Cos(0))
			return nil
		},
		Y0: []float64{1, 0},
		T0: 0,
		T1: 2,
	}
	sol, err := Solve(context.Background(), p, []float64{0.5, 1, 2}, Settings{Rtol: 1e-6, Atol: []float64{1e-10}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sol.T) != 3 {
		t.Fatalf("have %d outputs, want 3", len(sol.T))
	}
	for i, tt := range sol.T {
		if want := math.Exp(-tt); math.Abs(sol.Y[i][0]-want) > 1e-5 {
			t.Errorf("t=%g: have %g, want %g", tt, sol.Y[i][0], want)
		}
		if want := 1 - math.Exp(-100*tt); math.Abs(sol.Y[i][1]-want) > 1e-5 {
			t.Errorf("t=%g: stiff component: have %g, want %g", tt, sol.Y[i][1], want)
		}
	}
}

func TestInterpolation(t *testing.T) {
	p := Problem{
		F: func(t float64, _, dydt []float64) error {
			dydt[0] = math.Cos(t)
			return nil
		},
		Y0: []float64{0},
		T0: 0,
		T1: 6,
	}
	outputs := linspace(0.1, 6, 60)
	sol, err := Solve(context.Background(), p, outputs, Settings{Rtol: 1e-7, Atol: []float64{1e-9}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(sol.T, outputs) {
		t.Fatalf("output times %v should equal %v", sol.T, outputs)
	}
	for i, tt := range sol.T {
		if math.Abs(sol.Y[i][0]-math.Sin(tt)) > 1e-4 {
			t.Errorf("t=%g: have %g, want %g", tt, sol.Y[i][0], math.Sin(tt))
		}
	}
}

// TestRobertson solves the classic stiff chemical kinetics problem of
// Robertson (1966).
func TestRobertson(t *testing.T) {
	p := Problem{
		F: func(_ float64, y, dydt []float64) error {
			dydt[0] = -0.04*y[0] + 1e4*y[1]*y[2]
			dydt[2] = 3e7 * y[1] * y[1]
			dydt[1] = -dydt[0] - dydt[2]
			return nil
		},
		Y0: []float64{1, 0, 0},
		T0: 0,
		T1: 40,
	}
	sol, err := Solve(context.Background(), p, []float64{40}, Settings{Rtol: 1e-6, Atol: []float64{1e-8, 1e-12, 1e-8}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	y := sol.Y[0]
	if math.Abs(y[0]-0.7158270687) > 1e-4 {
		t.Errorf("y1: have %g, want 0.7158270687", y[0])
	}
	if math.Abs(y[2]-0.2841637457) > 1e-4 {
		t.Errorf("y3: have %g, want 0.2841637457", y[2])
	}
	if math.Abs(floats.Sum(y)-1) > 1e-6 {
		t.Errorf("sum should be conserved but is %g", floats.Sum(y))
	}
	if sol.Stats.Steps > 5000 {
		t.Errorf("too many steps: %d", sol.Stats.Steps)
	}
	if sol.Stats.Jacobians == 0 || sol.Stats.Evaluations == 0 {
		t.Errorf("statistics not recorded: %+v", sol.Stats)
	}
}

func TestEvent(t *testing.T) {
	p := Problem{
		F: func(_ float64, _, dydt []float64) error {
			dydt[0] = 1
			return nil
		},
		Y0: []float64{0},
		T0: 0,
		T1: 10,
	}
	sol, err := Solve(context.Background(), p, linspace(0.25, 10, 40),
		Settings{Rtol: 1e-6, Atol: []float64{1e-9}, MaxStep: 0.1},
		func(t float64, y []float64) bool { return y[0] >= 0.5 })
	if err != nil {
		t.Fatal(err)
	}
	if !sol.Stopped {
		t.Fatal("integration should have been stopped")
	}
	last := sol.T[len(sol.T)-1]
	if last < 0.5 || last > 0.61 {
		t.Errorf("integration stopped at %g", last)
	}
	if sol.T[0] != 0.25 {
		t.Errorf("first output should be at 0.25 but is at %g", sol.T[0])
	}
}

func TestMaxSteps(t *testing.T) {
	p := Problem{
		F: func(t float64, _, dydt []float64) error {
			dydt[0] = math.Sin(100 * t)
			return nil
		},
		Y0: []float64{0},
		T0: 0,
		T1: 100,
	}
	sol, err := Solve(context.Background(), p, linspace(1, 100, 100), Settings{Rtol: 1e-8, Atol: []float64{1e-10}, MaxSteps: 50}, nil)
	if !errors.Is(err, ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if sol == nil || len(e.Y) != 1 || !(e.T > 0) {
		t.Errorf("partial solution not returned: %+v, %+v", sol, e)
	}
}

func TestDerivativeError(t *testing.T) {
	errBad := errors.New("bad state")
	p := Problem{
		F: func(_ float64, y, dydt []float64) error {
			if y[0] > 1 {
				return errBad
			}
			dydt[0] = 1
			return nil
		},
		Y0: []float64{2},
		T0: 0,
		T1: 1,
	}
	_, err := Solve(context.Background(), p, []float64{1}, Settings{Rtol: 1e-6, Atol: []float64{1e-9}}, nil)
	if !errors.Is(err, errBad) {
		t.Errorf("expected the derivative error, got %v", err)
	}
}

func TestPersistentStageError(t *testing.T) {
	errBad := errors.New("bad state")
	p := Problem{
		F: func(_ float64, y, dydt []float64) error {
			if y[0] > 1 {
				return errBad
			}
			dydt[0] = 1
			return nil
		},
		Y0: []float64{0},
		T0: 0,
		T1: 2,
	}
	sol, err := Solve(context.Background(), p, []float64{0.5, 2}, Settings{Rtol: 1e-6, Atol: []float64{1e-9}}, nil)
	if !errors.Is(err, errBad) || !errors.Is(err, ErrStepTooSmall) {
		t.Errorf("expected the derivative error and ErrStepTooSmall, got %v", err)
	}
	if sol == nil || len(sol.T) != 1 {
		t.Errorf("partial solution should hold one output")
	}
}

// TestJacobianAtDomainEdge starts on the boundary of the domain of F, where
// only a backward difference can be evaluated.
func TestJacobianAtDomainEdge(t *testing.T) {
	errBad := errors.New("bad state")
	p := Problem{
		F: func(t float64, y, dydt []float64) error {
			if y[0] > 1 || t > 1 {
				return errBad
			}
			dydt[0] = -y[0]
			return nil
		},
		Y0: []float64{1},
		T0: 0,
		T1: 1,
	}
	sol, err := Solve(context.Background(), p, []float64{0.5, 1}, Settings{Rtol: 1e-6, Atol: []float64{1e-9}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Exp(-1); math.Abs(sol.Y[1][0]-want) > 1e-4 {
		t.Errorf("have %g, want %g", sol.Y[1][0], want)
	}
	if sol.Stats.Jacobians == 0 {
		t.Error("no Jacobians were calculated")
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Problem{
		F: func(_ float64, y, dydt []float64) error {
			dydt[0] = -y[0]
			return nil
		},
		Y0: []float64{1},
		T0: 0,
		T1: 1,
	}
	_, err := Solve(ctx, p, []float64{1}, Settings{Rtol: 1e-6, Atol: []float64{1e-9}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInvalidSettings(t *testing.T) {
	p := Problem{
		F:  func(_ float64, y, dydt []float64) error { return nil },
		Y0: []float64{1, 2},
		T0: 0,
		T1: 1,
	}
	for name, test := range map[string]struct {
		s       Settings
		outputs []float64
	}{
		"rtol":          {s: Settings{Rtol: 0, Atol: []float64{1}}, outputs: []float64{1}},
		"atol length":   {s: Settings{Rtol: 1, Atol: []float64{1, 1, 1}}, outputs: []float64{1}},
		"atol negative": {s: Settings{Rtol: 1, Atol: []float64{-1}}, outputs: []float64{1}},
		"outputs":       {s: Settings{Rtol: 1, Atol: []float64{1}}, outputs: []float64{0.5, 0.2}},
		"beyond end":    {s: Settings{Rtol: 1, Atol: []float64{1}}, outputs: []float64{2}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Solve(context.Background(), p, test.outputs, test.s, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
