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

package parcel

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/parcel/internal/stiff"
)

// Option is an optional setting for Run.
type Option func(*runOptions)

type runOptions struct {
	log logrus.FieldLogger
}

// WithLogger sets the logger used by Run. The default is the logrus
// standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *runOptions) { o.log = log }
}

// Run simulates the ascent of a parcel carrying aerosol population pop
// with configuration cfg.
//
// Invalid inputs result in a *ConfigurationError. If the solver fails to
// converge, the integration is retried once with tolerances relaxed by
// cfg.RetryRelaxFactor. Failures caused by a *DomainError or by exceeding
// the step or wall time budget are not retried. When the run fails, a
// *IntegrationError is returned along with the trajectory up to the point
// of failure.
func Run(ctx context.Context, pop *Population, cfg SimulationConfig, opts ...Option) (*Trajectory, error) {
	o := runOptions{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	sys, err := NewSystem(pop, cfg)
	if err != nil {
		return nil, err
	}
	s0, err := sys.InitialState()
	if err != nil {
		return nil, &ConfigurationError{Param: "S0", Value: cfg.S0, Reason: err.Error()}
	}
	if cfg.MaxWallTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWallTime)
		defer cancel()
	}

	log := o.log.WithFields(logrus.Fields{
		"V":    cfg.UpdraftSpeed,
		"T0":   cfg.T0,
		"P0":   cfg.P0,
		"S0":   cfg.S0,
		"bins": pop.Len(),
	})
	log.Debug("parcel: starting run")
	start := time.Now()

	rtol, atol := cfg.Rtol, cfg.Atol
	var traj *Trajectory
	var retries uint64
	if cfg.RetryRelaxFactor > 0 {
		retries = 1
	}
	err = backoff.RetryNotify(
		func() error {
			var err error
			traj, err = integrate(ctx, sys, s0, rtol, atol)
			if err == nil {
				return nil
			}
			var de *DomainError
			if errors.As(err, &de) || ctx.Err() != nil || errors.Is(err, stiff.ErrMaxSteps) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries),
		func(err error, _ time.Duration) {
			rtol = math.Min(rtol*cfg.RetryRelaxFactor, 0.1)
			atol *= cfg.RetryRelaxFactor
			log.WithFields(logrus.Fields{
				"error": err,
				"rtol":  rtol,
				"atol":  atol,
			}).Warn("parcel: integration failed; retrying with relaxed tolerances")
		},
	)
	if err != nil {
		t, last := traj.Final()
		var se *stiff.Error
		if errors.As(err, &se) {
			t, last = se.T, Decode(se.Y)
		}
		log.WithFields(logrus.Fields{
			"error": err,
			"t":     t,
		}).Error("parcel: integration failed")
		species := make([]string, len(pop.species))
		for i, s := range pop.species {
			species[i] = s.name
		}
		return traj, &IntegrationError{Config: cfg, Bins: pop.Len(), Species: species,
			Time: t, Last: last, Trajectory: traj, Err: err}
	}
	log.WithFields(logrus.Fields{
		"Smax":     traj.Peak.S,
		"tmax":     traj.Peak.Time,
		"steps":    traj.Stats.Steps,
		"duration": time.Since(start),
	}).Info("parcel: run complete")
	return traj, nil
}

// integrate solves the system from initial state s0.
func integrate(ctx context.Context, sys *System, s0 ParcelState, rtol, atol float64) (*Trajectory, error) {
	cfg := sys.cfg
	V := cfg.UpdraftSpeed
	traj := &Trajectory{
		Time:     []float64{0},
		Altitude: []float64{0},
		States:   []ParcelState{s0.Clone()},
		Peak:     Peak{S: s0.S},
	}
	event := func(t float64, y []float64) bool {
		S := y[iS] / sScale
		if S > traj.Peak.S {
			traj.Peak = Peak{S: S, Time: t, Altitude: V * t}
		}
		if cfg.Termination != StopAfterPeak || traj.Peak.S <= 0 {
			return false
		}
		return S <= traj.Peak.S-cfg.PeakMargin*math.Abs(traj.Peak.S)
	}
	sol, err := stiff.Solve(ctx,
		stiff.Problem{F: sys.f, Y0: Encode(s0, nil), T0: 0, T1: cfg.TEnd},
		cfg.outputTimes(),
		stiff.Settings{Rtol: rtol, Atol: []float64{atol}, MaxSteps: cfg.MaxSteps},
		event,
	)
	if sol != nil {
		for i, t := range sol.T {
			traj.Time = append(traj.Time, t)
			traj.Altitude = append(traj.Altitude, V*t)
			traj.States = append(traj.States, Decode(sol.Y[i]))
		}
		traj.Stopped = sol.Stopped
		traj.Stats = SolverStats{
			Steps:       sol.Stats.Steps,
			Rejected:    sol.Stats.Rejected,
			Evaluations: sol.Stats.Evaluations,
			Jacobians:   sol.Stats.Jacobians,
		}
	}
	return traj, err
}
