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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/science/constants"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	def := parcel.DefaultConfig()
	sim := []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags(), predictCmd.Flags()}
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "UpdraftSpeed",
			usage: `
              UpdraftSpeed is the constant vertical velocity of the parcel [m/s].`,
			shorthand:  "V",
			defaultVal: def.UpdraftSpeed,
			flagsets:   sim,
		},
		{
			name: "P0",
			usage: `
              P0 is the initial pressure of the parcel [Pa].`,
			defaultVal: def.P0,
			flagsets:   sim,
		},
		{
			name: "T0",
			usage: `
              T0 is the initial temperature of the parcel [K].`,
			defaultVal: def.T0,
			flagsets:   sim,
		},
		{
			name: "S0",
			usage: `
              S0 is the initial supersaturation of the parcel (relative
              humidity - 1). It must be negative so that the particles start
              in equilibrium.`,
			defaultVal: def.S0,
			flagsets:   sim,
		},
		{
			name: "AccommodationCoefficient",
			usage: `
              AccommodationCoefficient is the condensation coefficient of
              water vapor on the droplets.`,
			defaultVal: def.AccommodationCoefficient,
			flagsets:   sim,
		},
		{
			name: "DtOutput",
			usage: `
              DtOutput is the interval between trajectory samples [s].`,
			defaultVal: def.DtOutput,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "TEnd",
			usage: `
              TEnd is the maximum simulation time [s].`,
			defaultVal: def.TEnd,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "Termination",
			usage: `
              Termination specifies when the simulation ends. Options are
              'StopAfterPeak', which stops once the supersaturation has passed
              its maximum, and 'FixedHorizon', which runs until TEnd.`,
			defaultVal: def.Termination.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "PeakMargin",
			usage: `
              PeakMargin is the fraction of the maximum supersaturation that
              the supersaturation must fall by before a StopAfterPeak
              simulation ends.`,
			defaultVal: def.PeakMargin,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "Rtol",
			usage: `
              Rtol is the relative tolerance of the solver.`,
			defaultVal: def.Rtol,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "Atol",
			usage: `
              Atol is the absolute tolerance of the solver, applied to the
              scaled state (pressure in hPa, supersaturation in percent, and
              radii in μm).`,
			defaultVal: def.Atol,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "MaxSteps",
			usage: `
              MaxSteps is the maximum number of solver steps in a simulation.
              Zero means no limit.`,
			defaultVal: def.MaxSteps,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "MaxWallTime",
			usage: `
              MaxWallTime is the maximum run time of a simulation, for
              example '10m'. Zero means no limit.`,
			defaultVal: def.MaxWallTime.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "RetryRelaxFactor",
			usage: `
              RetryRelaxFactor is the factor that the solver tolerances are
              multiplied by when a failed simulation is retried. Zero
              disables the retry.`,
			defaultVal: def.RetryRelaxFactor,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "Aerosols",
			usage: `
              Aerosols is a list of the aerosol species in the parcel. Each
              species has a Name, a lognormal mode with median radius Mu [μm],
              geometric standard deviation Sigma, and number concentration
              N [cm⁻³], a hygroscopicity Kappa, a dry Density [kg/m³], and
              the number of size Bins to divide the mode into.`,
			defaultVal: defaultAerosols,
			flagsets:   sim,
		},
		{
			name: "Scan.Speeds",
			usage: `
              Scan.Speeds are the updraft speeds [m/s] to simulate.`,
			defaultVal: []float64{0.1, 0.3, 1, 3, 10},
			flagsets:   []*pflag.FlagSet{scanCmd.Flags()},
		},
		{
			name: "Scan.Workers",
			usage: `
              Scan.Workers is the number of simulations to run at once. Zero
              means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scanCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the Excel file where the results
              are written. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: "parcel.xlsx",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path to a PNG image of the supersaturation and
              temperature profiles. No image is created if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired log file location. It can
              include environment variables. If it is empty, the log file is
              placed next to the output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages: 'debug',
              'info', 'warning', or 'error'.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies the scan results to write to the
              output file, as a map of names to expressions. Expressions can
              use the variables V, Smax, TimeOfMax, AltitudeOfMax,
              NumberFraction, MassFraction, KineticFraction, Steps, and
              <Parameterization>_Smax and <Parameterization>_NumberFraction for
              each parameterization (e.g. MBN2014_Smax), along with the
              functions exp, log, abs, and relErr, and the names of other
              output variables.`,
			defaultVal: map[string]string{
				"Smax":     "Smax",
				"Nact":     "NumberFraction",
				"SmaxARG":  "ARG2000_Smax",
				"SmaxMBN":  "MBN2014_Smax",
				"ErrorMBN": "relErr(SmaxMBN, Smax)",
			},
			flagsets: []*pflag.FlagSet{scanCmd.Flags()},
		},
	}

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case []float64:
				if option.shorthand == "" {
					set.Float64Slice(option.name, option.defaultVal.([]float64), option.usage)
				} else {
					set.Float64SliceP(option.name, option.shorthand, option.defaultVal.([]float64), option.usage)
				}
			case map[string]string, []aerosolConfig:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := b.String()
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
		}
	}
	initializeConfig()
}

// initializeConfig creates a new configuration that is bound to the
// command line flags and to environment variables. Any values that were
// set or read from a configuration file are discarded.
func initializeConfig() {
	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("PARCEL")
	Cfg.AutomaticEnv()

	for _, option := range options {
		Cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(scanCmd)
	Root.AddCommand(predictCmd)
	Root.AddCommand(constantsCmd)
	Root.AddCommand(configCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("parcel: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "parcel",
	Short: "An adiabatic cloud parcel model.",
	Long: `parcel simulates the activation of aerosol particles into cloud droplets
in an adiabatically rising air parcel, and compares the results with
closed-form activation parameterizations.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'PARCEL_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of parcel.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("parcel v%s\n", parcel.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a parcel simulation.",
	Long: `run simulates the ascent of a parcel at a single updraft speed, writes
the trajectory and activation diagnosis to OutputFile, and optionally plots
the supersaturation and temperature profiles to PlotFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := SimulationConfig(Cfg)
		if err != nil {
			return err
		}
		pop, err := Population(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return Run(context.Background(), cmd.OutOrStdout(),
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			Cfg.GetString("LogLevel"),
			outputFile,
			os.ExpandEnv(Cfg.GetString("PlotFile")),
			pop, cfg)
	},
	DisableAutoGenTag: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run simulations over a range of updraft speeds.",
	Long: `scan simulates the ascent of a parcel at each of the updraft speeds in
Scan.Speeds, compares the results with the ARG2000 and MBN2014
parameterizations, and writes the OutputVariables for each speed to
OutputFile. Simulations that fail are reported but do not stop the scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := SimulationConfig(Cfg)
		if err != nil {
			return err
		}
		pop, err := Population(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		speeds, err := toFloat64SliceE(Cfg.Get("Scan.Speeds"))
		if err != nil {
			return fmt.Errorf("parcel: reading Scan.Speeds: %v", err)
		}
		return Scan(context.Background(), cmd.OutOrStdout(),
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			Cfg.GetString("LogLevel"),
			outputFile,
			os.ExpandEnv(Cfg.GetString("PlotFile")),
			outputVars, speeds, Cfg.GetInt("Scan.Workers"),
			pop, cfg)
	},
	DisableAutoGenTag: true,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict activation with the parameterizations.",
	Long: `predict prints the maximum supersaturation and activated fractions
predicted by the ARG2000 and MBN2014 parameterizations without running a
simulation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := SimulationConfig(Cfg)
		if err != nil {
			return err
		}
		pop, err := Population(Cfg)
		if err != nil {
			return err
		}
		return Predict(cmd.OutOrStdout(), pop, cfg)
	},
	DisableAutoGenTag: true,
}

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "Print the physical constants.",
	Long:  "constants prints the physical constants used by the model, with their units.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return PrintConstants(cmd.OutOrStdout(), constants.Table())
	},
	DisableAutoGenTag: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration.",
	Long: `config prints a configuration file in TOML format that holds the default
value of every option. It can be edited and passed back with --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return WriteDefaultConfig(cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}

// writerOrDiscard returns w, or a writer that discards its input if w is nil.
func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// durationOption parses a duration that may be given as a string, such
// as '10m', or as a number of seconds.
func durationOption(v interface{}) (time.Duration, error) {
	switch v := v.(type) {
	case int, int64, float64:
		s, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(s * float64(time.Second)), nil
	default:
		return cast.ToDurationE(v)
	}
}
