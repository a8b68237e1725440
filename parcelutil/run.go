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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/scan"
	"github.com/spatialmodel/parcel/science/constants"
)

// newLogger returns a logger that writes to w and to logFile, along with
// a function that closes logFile.
func newLogger(w io.Writer, logFile, level string) (*logrus.Logger, func() error, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parcel: invalid LogLevel: %v", err)
	}
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("parcel: problem creating log file: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.MultiWriter(writerOrDiscard(w), f))
	log.SetLevel(lvl)
	return log, f.Close, nil
}

// namedPrediction is the prediction of a single parameterization.
type namedPrediction struct {
	name string
	parcel.Prediction
}

// Run simulates a parcel containing population pop using configuration
// cfg. It writes the trajectory and activation results to outputFile
// and, if plotFile is not empty, plots the trajectory to plotFile.
// Log messages are written to w and logFile.
func Run(ctx context.Context, w io.Writer, logFile, logLevel, outputFile, plotFile string, pop *parcel.Population, cfg parcel.SimulationConfig) error {
	log, closeLog, err := newLogger(w, logFile, logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	log.WithFields(logrus.Fields{
		"version": parcel.Version,
		"V":       cfg.UpdraftSpeed,
		"bins":    pop.Len(),
	}).Info("parcel: starting simulation")

	traj, err := parcel.Run(ctx, pop, cfg, parcel.WithLogger(log))
	if err != nil {
		return err
	}
	act, err := parcel.Diagnose(traj, pop)
	if err != nil {
		return err
	}
	kinetic, kineticFrac, err := parcel.KineticActivation(traj, pop)
	if err != nil {
		return err
	}
	var preds []namedPrediction
	for _, p := range scan.Parameterizations {
		pred, err := p.Predict(cfg.UpdraftSpeed, cfg.T0, cfg.P0, pop, cfg.AccommodationCoefficient)
		if err != nil {
			log.WithError(err).Warnf("parcel: %s prediction failed", p.Name())
			continue
		}
		preds = append(preds, namedPrediction{name: p.Name(), Prediction: pred})
	}

	out := &runOutput{
		pop:             pop,
		traj:            traj,
		act:             act,
		kinetic:         kinetic,
		kineticFraction: kineticFrac,
		preds:           preds,
	}
	if err := out.write(outputFile); err != nil {
		return err
	}
	log.WithField("file", outputFile).Info("parcel: wrote output")
	if plotFile != "" {
		if err := plotTrajectory(plotFile, traj, preds); err != nil {
			return err
		}
		log.WithField("file", plotFile).Info("parcel: wrote plot")
	}
	return nil
}

// Scan simulates a parcel containing population pop at each of the
// updraft speeds in speeds, using cfg for all other settings, with up to
// nWorkers simulations running at once (or one per processor if
// nWorkers <= 0). It writes outputVariables for each speed to outputFile
// and, if plotFile is not empty, plots the maximum supersaturation
// against updraft speed to plotFile. Log messages are written to w and
// logFile.
func Scan(ctx context.Context, w io.Writer, logFile, logLevel, outputFile, plotFile string, outputVariables map[string]string, speeds []float64, nWorkers int, pop *parcel.Population, cfg parcel.SimulationConfig) error {
	o, err := NewOutputter(outputVariables, nil, parameterizationNames(scan.Parameterizations)...)
	if err != nil {
		return err
	}
	if len(speeds) == 0 {
		return &parcel.ConfigurationError{Param: "Scan.Speeds", Value: speeds, Reason: "no updraft speeds specified"}
	}
	log, closeLog, err := newLogger(w, logFile, logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	log.WithFields(logrus.Fields{
		"version": parcel.Version,
		"speeds":  len(speeds),
		"bins":    pop.Len(),
	}).Info("parcel: starting scan")

	results, err := scan.Sweep(ctx, pop, cfg, speeds, workers(nWorkers), scan.WithLogger(log))
	if err != nil {
		return err
	}
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.WithField("failed", failed).Warn("parcel: some simulations failed")
	}
	if err := writeScan(outputFile, results, o); err != nil {
		return err
	}
	log.WithField("file", outputFile).Info("parcel: wrote output")
	if plotFile != "" {
		if err := plotScan(plotFile, results); err != nil {
			return err
		}
		log.WithField("file", plotFile).Info("parcel: wrote plot")
	}
	return nil
}

// Predict writes the predictions of each parameterization for a parcel
// containing population pop with configuration cfg to w.
func Predict(w io.Writer, pop *parcel.Population, cfg parcel.SimulationConfig) error {
	fmt.Fprintf(w, "%-10s %12s %12s\n", "Scheme", "Smax (%)", "Activated")
	for _, p := range scan.Parameterizations {
		pred, err := p.Predict(cfg.UpdraftSpeed, cfg.T0, cfg.P0, pop, cfg.AccommodationCoefficient)
		if err != nil {
			return fmt.Errorf("parcel: %s: %w", p.Name(), err)
		}
		fmt.Fprintf(w, "%-10s %12.5f %12.4f\n", p.Name(), pred.Smax*100, pred.NumberFraction)
	}
	return nil
}

// PrintConstants writes a table of constants to w.
func PrintConstants(w io.Writer, c []constants.Constant) error {
	for _, k := range c {
		name := k.Name
		if k.Note != "" {
			name += " (" + k.Note + ")"
		}
		if _, err := fmt.Fprintf(w, "%-5s %-48s %v\n", k.Symbol, name, k.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteDefaultConfig writes a TOML configuration file holding the default
// value of every configuration option to w.
func WriteDefaultConfig(w io.Writer) error {
	cfg := make(map[string]interface{})
	for _, o := range options {
		if o.name == "config" {
			continue
		}
		m := cfg
		path := strings.Split(o.name, ".")
		for _, p := range path[:len(path)-1] {
			sub, ok := m[p].(map[string]interface{})
			if !ok {
				sub = make(map[string]interface{})
				m[p] = sub
			}
			m = sub
		}
		m[path[len(path)-1]] = o.defaultVal
	}
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("parcel: writing default configuration: %v", err)
	}
	return nil
}
