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

package parcelutil

import (
	"fmt"
	"testing"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/scan"
)

func testResult() *scan.Result {
	return &scan.Result{
		V: 1,
		Activation: parcel.ActivationResult{
			Smax:           0.004,
			NumberFraction: 0.5,
		},
		KineticFraction: 0.4,
		Predictions: map[string]parcel.Prediction{
			"ARG2000": {Smax: 0.005, NumberFraction: 0.45},
			"MBN2014": {Smax: 0.0042, NumberFraction: 0.48},
		},
		Stats: parcel.SolverStats{Steps: 120},
	}
}

var testParams = []string{"ARG2000", "MBN2014"}

func TestOutputter(t *testing.T) {
	o, err := NewOutputter(map[string]string{
		"Pct":   "Smax * 100",
		"PctX2": "Pct * 2",
		"Err":   "relErr(MBN2014_Smax, Smax)",
		"Smax":  "Smax",
		"Steps": "Steps",
		"E":     "exp(log(abs(0 - NumberFraction)))",
		"Sq":    "square(KineticFraction)",
	}, map[string]govaluate.ExpressionFunction{
		"square": func(arg ...interface{}) (interface{}, error) {
			return arg[0].(float64) * arg[0].(float64), nil
		},
	}, testParams...)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		"Pct":   0.4,
		"PctX2": 0.8,
		"Err":   0.05,
		"Smax":  0.004,
		"Steps": 120,
		"E":     0.5,
		"Sq":    0.16,
	}
	have, err := o.Evaluate(testResult())
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range want {
		if different(have[k], v, 1e-10) {
			t.Errorf("%s: have %g, want %g", k, have[k], v)
		}
	}
	if fmt.Sprint(o.Names()) != "[E Err Pct PctX2 Smax Sq Steps]" {
		t.Errorf("names: %v", o.Names())
	}
}

// TestOutputterCase checks references to output variables whose names
// were lower-cased when the configuration was read.
func TestOutputterCase(t *testing.T) {
	o, err := NewOutputter(map[string]string{
		"smaxmbn": "MBN2014_Smax",
		"errmbn":  "relErr(SmaxMBN, Smax)",
		"smax":    "Smax",
	}, nil, testParams...)
	if err != nil {
		t.Fatal(err)
	}
	have, err := o.Evaluate(testResult())
	if err != nil {
		t.Fatal(err)
	}
	if different(have["errmbn"], 0.05, 1e-10) {
		t.Errorf("have %g, want 0.05", have["errmbn"])
	}
}

func TestOutputterErrors(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"cycle":     {"a": "b + 1", "b": "a * 2"},
		"undefined": {"a": "Smin"},
		"syntax":    {"a": "Smax +* 2"},
		"param":     {"a": "MBN2015_Smax"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewOutputter(vars, nil, testParams...); err == nil {
				t.Error("expected an error")
			}
		})
	}
	t.Run("function", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"a": "exp(Smax, V)"}, nil, testParams...)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := o.Evaluate(testResult()); err == nil {
			t.Error("expected an error")
		}
	})
}
