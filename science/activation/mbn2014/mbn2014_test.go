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

package mbn2014

import (
	"errors"
	"math"
	"testing"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/internal/roots"
	"github.com/spatialmodel/parcel/science/activation"
	"github.com/spatialmodel/parcel/science/activation/arg2000"
)

func testPopulation(t *testing.T, n float64) *parcel.Population {
	s, err := parcel.NewSpecies("sulfate", parcel.Lognormal{Mu: 0.05e-6, Sigma: 2, N: n}, 0.7, 1760, 50)
	if err != nil {
		t.Fatal(err)
	}
	pop, err := parcel.NewPopulation(s)
	if err != nil {
		t.Fatal(err)
	}
	return pop
}

func TestPredict(t *testing.T) {
	pop := testPopulation(t, 1e9)
	var p Parameterization
	if p.Name() != "MBN2014" {
		t.Errorf("name = %s", p.Name())
	}
	var lastS, lastF float64
	for _, v := range []float64{0.1, 1, 10} {
		pred, err := p.Predict(v, 283.15, 85000, pop, 1)
		if err != nil {
			t.Fatal(err)
		}
		if pred.Smax < SmaxLow || pred.Smax > SmaxHigh {
			t.Errorf("V=%g: Smax %g out of range", v, pred.Smax)
		}
		if pred.NumberFraction <= 0 || pred.NumberFraction >= 1 {
			t.Errorf("V=%g: activated fraction %g out of range", v, pred.NumberFraction)
		}
		if pred.Smax <= lastS || pred.NumberFraction <= lastF {
			t.Errorf("V=%g: prediction (%g, %g) should increase with updraft speed", v, pred.Smax, pred.NumberFraction)
		}
		lastS, lastF = pred.Smax, pred.NumberFraction
	}
}

func TestSmaxIsRoot(t *testing.T) {
	pop := testPopulation(t, 1e9)
	modes, err := parcel.Modes(pop)
	if err != nil {
		t.Fatal(err)
	}
	c, err := activation.NewCoefficients(283.15, 85000, 1)
	if err != nil {
		t.Fatal(err)
	}
	var p Parameterization
	smax, err := p.Smax(c, 1, modes, activation.Kappas(pop))
	if err != nil {
		t.Fatal(err)
	}
	b := newBudget(c, 1, modes, activation.Kappas(pop))
	lo, _ := b.residual(smax * 0.99)
	hi, _ := b.residual(smax * 1.01)
	if !(lo > 0 && hi < 0) {
		t.Errorf("residual should change sign from positive to negative at %g: %g, %g", smax, lo, hi)
	}
	if sp := b.partition(smax); sp <= 0 || sp > smax {
		t.Errorf("partitioning supersaturation %g should be in (0, %g]", sp, smax)
	}
}

func TestAgreesWithARG2000(t *testing.T) {
	pop := testPopulation(t, 1e9)
	for _, v := range []float64{0.1, 1, 10} {
		mbn, err := Parameterization{}.Predict(v, 283.15, 85000, pop, 1)
		if err != nil {
			t.Fatal(err)
		}
		arg, err := arg2000.Parameterization{}.Predict(v, 283.15, 85000, pop, 1)
		if err != nil {
			t.Fatal(err)
		}
		if r := mbn.Smax / arg.Smax; r < 0.5 || r > 2 {
			t.Errorf("V=%g: MBN2014 Smax %g and ARG2000 Smax %g differ by more than a factor of 2", v, mbn.Smax, arg.Smax)
		}
	}
}

func TestNoBracket(t *testing.T) {
	pop := testPopulation(t, 1e9)
	p := Parameterization{MaxIterations: 50}
	// An updraft this strong cannot be balanced by condensation within
	// the search interval.
	_, err := p.Predict(1e7, 283.15, 85000, pop, 1)
	if !errors.Is(err, roots.ErrNoBracket) {
		t.Errorf("have %v, want %v", err, roots.ErrNoBracket)
	}
}

func TestPredictErrors(t *testing.T) {
	var p Parameterization
	_, err := p.Predict(math.NaN(), 283.15, 85000, testPopulation(t, 1e9), 1)
	var cfgErr *parcel.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("NaN updraft: have %v, want ConfigurationError", err)
	}
	_, err = p.Predict(1, 283.15, 10, testPopulation(t, 1e9), 1)
	var domErr *parcel.DomainError
	if !errors.As(err, &domErr) {
		t.Errorf("low pressure: have %v, want DomainError", err)
	}
}
