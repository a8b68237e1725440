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

package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/parcel"
)

func testScanner(t *testing.T) *Scanner {
	sp, err := parcel.NewSpecies("sulfate", parcel.Lognormal{Mu: 0.05e-6, Sigma: 2, N: 1e9}, 0.7, 1760, 30)
	if err != nil {
		t.Fatal(err)
	}
	pop, err := parcel.NewPopulation(sp)
	if err != nil {
		t.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	s, err := NewScanner(pop, 3, WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSweep(t *testing.T) {
	s := testScanner(t)
	speeds := []float64{0.1, 1, 10}
	results := s.Sweep(context.Background(), parcel.DefaultConfig(), speeds)
	if len(results) != len(speeds) {
		t.Fatalf("have %d results, want %d", len(results), len(speeds))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("V=%g: %v", r.V, r.Err)
		}
		if r.V != speeds[i] {
			t.Errorf("result %d: V=%g, want %g", i, r.V, speeds[i])
		}
		for _, name := range []string{"ARG2000", "MBN2014"} {
			if _, ok := r.Predictions[name]; !ok {
				t.Errorf("V=%g: missing %s prediction", r.V, name)
			}
		}
		if r.Stats.Steps == 0 {
			t.Errorf("V=%g: no solver steps", r.V)
		}
		if i == 0 {
			continue
		}
		prev := results[i-1]
		if r.Activation.Smax <= prev.Activation.Smax {
			t.Errorf("Smax should increase with updraft speed: %g at %g m/s, %g at %g m/s",
				prev.Activation.Smax, prev.V, r.Activation.Smax, r.V)
		}
		if r.Activation.NumberFraction < prev.Activation.NumberFraction {
			t.Errorf("activated fraction should not decrease with updraft speed: %g at %g m/s, %g at %g m/s",
				prev.Activation.NumberFraction, prev.V, r.Activation.NumberFraction, r.V)
		}
	}
}

func TestRunMemoized(t *testing.T) {
	s := testScanner(t)
	cfg := parcel.DefaultConfig()
	a := s.Run(context.Background(), cfg)
	b := s.Run(context.Background(), cfg)
	if a != b {
		t.Error("repeated requests should return the cached result")
	}
	cfg.UpdraftSpeed = 2
	if c := s.Run(context.Background(), cfg); c == a {
		t.Error("a different configuration should not use the cached result")
	}
}

func TestRunCanceledNotMemoized(t *testing.T) {
	s := testScanner(t)
	cfg := parcel.DefaultConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := s.Run(ctx, cfg)
	if !errors.Is(a.Err, context.Canceled) {
		t.Fatalf("have %v, want context.Canceled", a.Err)
	}
	b := s.Run(context.Background(), cfg)
	if b.Err != nil {
		t.Fatalf("a canceled run should not be reused: %v", b.Err)
	}
	if !(b.Activation.Smax > 0) {
		t.Errorf("Smax=%g, want > 0", b.Activation.Smax)
	}
	if c := s.Run(context.Background(), cfg); c != b {
		t.Error("the completed run should be memoized")
	}
}

func TestRunFailures(t *testing.T) {
	s := testScanner(t)
	cfg := parcel.DefaultConfig()
	cfg.MaxSteps = 3
	results := s.Sweep(context.Background(), cfg, []float64{0, 1})
	if r := results[0]; r.Err != nil || r.V != 0 || r.Predictions != nil {
		t.Errorf("a zero updraft should give an empty result: %+v", r)
	}
	var intErr *parcel.IntegrationError
	if !errors.As(results[1].Err, &intErr) {
		t.Errorf("have %v, want IntegrationError", results[1].Err)
	}
}

func TestSweepErrors(t *testing.T) {
	if _, err := Sweep(context.Background(), nil, parcel.DefaultConfig(), []float64{1}, 1); err == nil {
		t.Error("a nil population should cause an error")
	}
	s := testScanner(t)
	if _, err := NewScanner(s.pop, 0); err == nil {
		t.Error("zero workers should cause an error")
	}
}
