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
	"math"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/scan"
)

// Outputter calculates user-specified output variables from scan results.
type Outputter struct {
	names       []string
	expressions map[string]*govaluate.EvaluableExpression

	// order holds the output variables sorted so that each one comes
	// after the output variables its expression refers to.
	order []string

	// aliases holds the spellings that expressions use to refer to each
	// output variable. Configuration keys may have been lower-cased.
	aliases map[string][]string

	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter. outputVariables maps the
// names of the output variables to the expressions that calculate them.
// Expressions can refer to the variables of each scan result (see
// ResultVariables), to other output variables, and to the functions in
// outputFunctions in addition to the default functions exp, log, abs,
// and relErr. params are the names of the parameterizations the results
// hold predictions from.
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction, params ...string) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("parcel: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("parcel: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return math.Log(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("parcel: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		"relErr": func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("parcel: got %d arguments for function 'relErr', but needs 2", len(args))
			}
			return (args[0].(float64) - args[1].(float64)) / args[1].(float64), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		expressions:     make(map[string]*govaluate.EvaluableExpression, len(outputVariables)),
		aliases:         make(map[string][]string),
		outputFunctions: defaultOutputFuncs,
	}
	available := make(map[string]bool)
	for _, v := range resultVariableNames(params) {
		available[v] = true
	}
	for name, expr := range outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("parcel: output variable %s: %v", name, err)
		}
		o.expressions[name] = expression
		o.names = append(o.names, name)
	}
	sort.Strings(o.names)
	lower := make(map[string]string, len(o.names))
	for _, name := range o.names {
		lower[strings.ToLower(name)] = name
	}
	// outputName returns the output variable that v refers to, if any.
	outputName := func(v string) (string, bool) {
		if _, ok := o.expressions[v]; ok {
			return v, true
		}
		name, ok := lower[strings.ToLower(v)]
		return name, ok
	}

	// Sort the variables so that derived variables are calculated after
	// the variables they are derived from.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(o.names))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("parcel: output variable %s is defined in terms of itself", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, v := range removeDuplicates(o.expressions[name].Vars()) {
			if ref, ok := outputName(v); ok && ref != name {
				if err := visit(ref); err != nil {
					return err
				}
				if v != ref {
					o.aliases[ref] = append(o.aliases[ref], v)
				}
			} else if !available[v] {
				return fmt.Errorf("parcel: undefined variable name '%s' in output variable %s", v, name)
			}
		}
		state[name] = done
		o.order = append(o.order, name)
		return nil
	}
	for _, name := range o.names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Names returns the names of the output variables in alphabetical order.
func (o *Outputter) Names() []string { return o.names }

// Evaluate calculates the output variables for scan result r.
func (o *Outputter) Evaluate(r *scan.Result) (map[string]float64, error) {
	params := ResultVariables(r)
	out := make(map[string]float64, len(o.order))
	for _, name := range o.order {
		v, err := o.expressions[name].Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("parcel: calculating output variable %s: %v", name, err)
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("parcel: output variable %s is %T, not a number", name, v)
		}
		out[name] = f
		params[name] = f
		for _, a := range o.aliases[name] {
			params[a] = f
		}
	}
	return out, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

var baseResultVariables = []string{"V", "Smax", "TimeOfMax", "AltitudeOfMax",
	"NumberFraction", "MassFraction", "KineticFraction", "Steps"}

// resultVariableNames returns the names of the variables that
// ResultVariables returns for results with predictions from params.
func resultVariableNames(params []string) []string {
	names := append([]string(nil), baseResultVariables...)
	for _, p := range params {
		names = append(names, p+"_Smax", p+"_NumberFraction")
	}
	return names
}

// ResultVariables returns the variables of scan result r that are
// available to output expressions. Predictions are named by the
// parameterization followed by an underscore and the field name, for
// example MBN2014_Smax.
func ResultVariables(r *scan.Result) map[string]interface{} {
	a := r.Activation
	vars := map[string]interface{}{
		"V":               r.V,
		"Smax":            a.Smax,
		"TimeOfMax":       a.TimeOfMax,
		"AltitudeOfMax":   a.AltitudeOfMax,
		"NumberFraction":  a.NumberFraction,
		"MassFraction":    a.MassFraction,
		"KineticFraction": r.KineticFraction,
		"Steps":           float64(r.Stats.Steps),
	}
	for name, p := range r.Predictions {
		vars[name+"_Smax"] = p.Smax
		vars[name+"_NumberFraction"] = p.NumberFraction
	}
	return vars
}

// parameterizationNames returns the names of params.
func parameterizationNames(params []parcel.Parameterization) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names
}
