/*
Copyright © 2017 the parcel authors.
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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spatialmodel/parcel"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// aerosolConfig is the configuration of a single aerosol species. Sizes
// and concentrations are in the units that are customary for aerosol
// measurements rather than SI units.
type aerosolConfig struct {
	Name    string  `json:"Name" toml:"Name"`
	Mu      float64 `json:"Mu" toml:"Mu"`           // median radius [μm]
	Sigma   float64 `json:"Sigma" toml:"Sigma"`     // geometric standard deviation
	N       float64 `json:"N" toml:"N"`             // number concentration [cm⁻³]
	Kappa   float64 `json:"Kappa" toml:"Kappa"`     // hygroscopicity
	Density float64 `json:"Density" toml:"Density"` // dry density [kg/m³]
	Bins    int     `json:"Bins" toml:"Bins"`       // number of size bins
}

var defaultAerosols = []aerosolConfig{
	{Name: "ammonium sulfate", Mu: 0.05, Sigma: 2, N: 1000, Kappa: 0.61, Density: 1770, Bins: 100},
}

const (
	micron = 1e-6 // [m/μm]
	perCC  = 1e6  // [cm³/m³]

	// minNumber is the number concentration [m⁻³] below which a species
	// is left out of the simulation.
	minNumber = 0.01 * perCC
)

// SimulationConfig unmarshals a viper configuration for a parcel
// simulation and checks that it is valid.
func SimulationConfig(cfg *viper.Viper) (parcel.SimulationConfig, error) {
	term, err := parcel.ParseTermination(os.ExpandEnv(cfg.GetString("Termination")))
	if err != nil {
		return parcel.SimulationConfig{}, err
	}
	wall, err := durationOption(cfg.Get("MaxWallTime"))
	if err != nil {
		return parcel.SimulationConfig{}, fmt.Errorf("parcel: reading MaxWallTime: %v", err)
	}
	c := parcel.SimulationConfig{
		UpdraftSpeed:             cfg.GetFloat64("UpdraftSpeed"),
		P0:                       cfg.GetFloat64("P0"),
		T0:                       cfg.GetFloat64("T0"),
		S0:                       cfg.GetFloat64("S0"),
		AccommodationCoefficient: cfg.GetFloat64("AccommodationCoefficient"),
		DtOutput:                 cfg.GetFloat64("DtOutput"),
		TEnd:                     cfg.GetFloat64("TEnd"),
		Termination:              term,
		PeakMargin:               cfg.GetFloat64("PeakMargin"),
		Rtol:                     cfg.GetFloat64("Rtol"),
		Atol:                     cfg.GetFloat64("Atol"),
		MaxSteps:                 cfg.GetInt("MaxSteps"),
		MaxWallTime:              wall,
		RetryRelaxFactor:         cfg.GetFloat64("RetryRelaxFactor"),
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Population unmarshals the aerosol species in a viper configuration
// and bins them into a population. Species with fewer than 0.01
// particles per cm³ are left out.
func Population(cfg *viper.Viper) (*parcel.Population, error) {
	aerosols, err := aerosolConfigs(cfg.Get("Aerosols"))
	if err != nil {
		return nil, fmt.Errorf("parcel: reading Aerosols: %v", err)
	}
	if len(aerosols) == 0 {
		return nil, fmt.Errorf("there are no aerosols specified. Please fill in " +
			"the Aerosols configuration and try again")
	}
	species := make([]*parcel.Species, len(aerosols))
	for i, a := range aerosols {
		mode := parcel.Lognormal{
			Mu:    a.Mu * micron,
			Sigma: a.Sigma,
			N:     a.N * perCC,
		}
		species[i], err = parcel.NewSpecies(os.ExpandEnv(a.Name), mode, a.Kappa, a.Density, a.Bins)
		if err != nil {
			return nil, err
		}
	}
	pop, err := parcel.NewPopulation(species...)
	if err != nil {
		return nil, err
	}
	return pop.Without(minNumber)
}

// aerosolConfigs returns the aerosol species configuration, accounting
// for the fact that it might be a json array if it was set from a command
// line argument or a list of tables if it was set from a configuration
// file.
func aerosolConfigs(i interface{}) ([]aerosolConfig, error) {
	switch v := i.(type) {
	case []aerosolConfig:
		return v, nil
	case string:
		var o []aerosolConfig
		d := json.NewDecoder(bytes.NewBufferString(v))
		d.DisallowUnknownFields()
		if err := d.Decode(&o); err != nil {
			return nil, err
		}
		return o, nil
	case []map[string]interface{}:
		o := make([]aerosolConfig, len(v))
		for j, m := range v {
			var err error
			if o[j], err = aerosolFromMap(m); err != nil {
				return nil, err
			}
		}
		return o, nil
	case []interface{}:
		o := make([]aerosolConfig, len(v))
		for j, val := range v {
			m, err := cast.ToStringMapE(val)
			if err != nil {
				return nil, err
			}
			if o[j], err = aerosolFromMap(m); err != nil {
				return nil, err
			}
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type %T", i)
	}
}

// aerosolFromMap converts a table of aerosol settings, with
// case-insensitive keys, into an aerosolConfig.
func aerosolFromMap(m map[string]interface{}) (aerosolConfig, error) {
	var a aerosolConfig
	for k, v := range m {
		var err error
		switch strings.ToLower(k) {
		case "name":
			a.Name, err = cast.ToStringE(v)
		case "mu":
			a.Mu, err = cast.ToFloat64E(v)
		case "sigma":
			a.Sigma, err = cast.ToFloat64E(v)
		case "n":
			a.N, err = cast.ToFloat64E(v)
		case "kappa":
			a.Kappa, err = cast.ToFloat64E(v)
		case "density":
			a.Density, err = cast.ToFloat64E(v)
		case "bins":
			a.Bins, err = cast.ToIntE(v)
		default:
			err = fmt.Errorf("unknown aerosol setting %q", k)
		}
		if err != nil {
			return a, fmt.Errorf("%s: %v", k, err)
		}
	}
	return a, nil
}

// toFloat64SliceE converts s to a slice of floats. s can be a list from a
// configuration file, a json array, or a comma-separated list.
func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case string:
		var o []float64
		if err := json.Unmarshal([]byte(v), &o); err == nil {
			return o, nil
		}
		for _, f := range strings.Split(strings.Trim(v, "[] "), ",") {
			val, err := cast.ToFloat64E(strings.TrimSpace(f))
			if err != nil {
				return nil, err
			}
			o = append(o, val)
		}
		return o, nil
	case []float64:
		return v, nil
	default:
		vals, err := cast.ToSliceE(s)
		if err != nil {
			return nil, err
		}
		o := make([]float64, len(vals))
		for i, val := range vals {
			if o[i], err = cast.ToFloat64E(val); err != nil {
				return nil, err
			}
		}
		return o, nil
	}
}

// workers returns the number of simulations to run at once, where n <= 0
// means one per processor.
func workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(-1)
	}
	return n
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.xlsx"`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("parcel: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}
