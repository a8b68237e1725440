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

// Package scan runs parcel simulations over a range of updraft speeds and
// compares them with the activation parameterizations.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/internal/hash"
	"github.com/spatialmodel/parcel/science/activation/arg2000"
	"github.com/spatialmodel/parcel/science/activation/mbn2014"
)

// Result is the outcome of the simulation at one updraft speed.
type Result struct {
	// V is the updraft speed [m/s].
	V float64

	// Activation is the activation diagnosed from the simulated
	// trajectory.
	Activation parcel.ActivationResult

	// KineticFraction is the number fraction of particles that grew past
	// their critical radius by the end of the simulation.
	KineticFraction float64

	// Predictions holds the prediction of each parameterization, by
	// name.
	Predictions map[string]parcel.Prediction

	// Stats describe the work done by the solver.
	Stats parcel.SolverStats

	// Err is the error that caused the simulation or a prediction to
	// fail, if any. Results with errors are otherwise empty.
	Err error
}

// Parameterizations are the parameterizations that simulations are
// compared with by default.
var Parameterizations = []parcel.Parameterization{
	arg2000.Parameterization{},
	mbn2014.Parameterization{},
}

// Scanner runs simulations of a single aerosol population. Results are
// memoized, so repeated requests for the same updraft speed and
// configuration are only simulated once. A Scanner is safe for
// concurrent use.
type Scanner struct {
	pop    *parcel.Population
	params []parcel.Parameterization
	log    logrus.FieldLogger

	popKey    string
	cache     *requestcache.Cache
	cacheInit sync.Once
	workers   int
}

// Option is an optional setting for a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = log }
}

// WithParameterizations sets the parameterizations that simulations
// are compared with.
func WithParameterizations(p ...parcel.Parameterization) Option {
	return func(s *Scanner) { s.params = p }
}

// NewScanner returns a Scanner for population pop that runs up to workers
// simulations at once.
func NewScanner(pop *parcel.Population, workers int, opts ...Option) (*Scanner, error) {
	if pop == nil || pop.Len() == 0 {
		return nil, &parcel.ConfigurationError{Param: "population", Value: 0, Reason: "the aerosol population is empty"}
	}
	if workers < 1 {
		return nil, &parcel.ConfigurationError{Param: "Scan.Workers", Value: workers, Reason: "must be at least 1"}
	}
	s := &Scanner{
		pop:     pop,
		params:  Parameterizations,
		log:     logrus.StandardLogger(),
		popKey:  hash.Hash(pop.Bins()),
		workers: workers,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

type request struct {
	cfg parcel.SimulationConfig
}

// Run returns the result of the simulation with configuration cfg.
// Simulations that were canceled or ran out of time are not memoized.
func (s *Scanner) Run(ctx context.Context, cfg parcel.SimulationConfig) *Result {
	s.cacheInit.Do(func() {
		s.cache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			res := s.run(ctx, req.(request).cfg)
			if interrupted(res.Err) {
				// Errored requests are left out of the memory cache.
				return nil, res.Err
			}
			return res, nil
		}, s.workers, requestcache.Deduplicate(), requestcache.Memory(1000))
	})
	if !(cfg.UpdraftSpeed > 0) {
		return &Result{V: cfg.UpdraftSpeed}
	}
	r, err := s.cache.NewRequest(ctx, request{cfg: cfg}, hash.Hash(cfg, s.popKey)).Result()
	if err != nil {
		return &Result{V: cfg.UpdraftSpeed, Err: err}
	}
	return r.(*Result)
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// run simulates a single updraft speed.
func (s *Scanner) run(ctx context.Context, cfg parcel.SimulationConfig) *Result {
	log := s.log.WithField("V", cfg.UpdraftSpeed)
	res := &Result{V: cfg.UpdraftSpeed, Predictions: make(map[string]parcel.Prediction)}
	traj, err := parcel.Run(ctx, s.pop, cfg, parcel.WithLogger(log))
	if err != nil {
		log.WithError(err).Warn("scan: simulation failed")
		return &Result{V: cfg.UpdraftSpeed, Err: err}
	}
	res.Stats = traj.Stats
	if res.Activation, err = parcel.Diagnose(traj, s.pop); err != nil {
		return &Result{V: cfg.UpdraftSpeed, Err: err}
	}
	if _, res.KineticFraction, err = parcel.KineticActivation(traj, s.pop); err != nil {
		return &Result{V: cfg.UpdraftSpeed, Err: err}
	}
	for _, p := range s.params {
		pred, err := p.Predict(cfg.UpdraftSpeed, cfg.T0, cfg.P0, s.pop, cfg.AccommodationCoefficient)
		if err != nil {
			return &Result{V: cfg.UpdraftSpeed, Err: fmt.Errorf("scan: %s: %w", p.Name(), err)}
		}
		res.Predictions[p.Name()] = pred
	}
	log.WithFields(logrus.Fields{
		"Smax":     res.Activation.Smax,
		"fraction": res.Activation.NumberFraction,
	}).Info("scan: simulation complete")
	return res
}

// Sweep runs one simulation for each updraft speed in speeds, using base
// for all other settings, with up to workers simulations running at
// once. Results are returned in the same order as speeds. A failed
// simulation does not stop the sweep; its error is recorded in its
// Result. Speeds that are not positive result in empty Results.
func Sweep(ctx context.Context, pop *parcel.Population, base parcel.SimulationConfig, speeds []float64, workers int, opts ...Option) ([]*Result, error) {
	s, err := NewScanner(pop, workers, opts...)
	if err != nil {
		return nil, err
	}
	return s.Sweep(ctx, base, speeds), nil
}

// Sweep runs one simulation for each updraft speed in speeds, using base
// for all other settings.
func (s *Scanner) Sweep(ctx context.Context, base parcel.SimulationConfig, speeds []float64) []*Result {
	results := make([]*Result, len(speeds))
	var wg sync.WaitGroup
	wg.Add(len(speeds))
	for i, v := range speeds {
		go func(i int, v float64) {
			defer wg.Done()
			cfg := base
			cfg.UpdraftSpeed = v
			results[i] = s.Run(ctx, cfg)
		}(i, v)
	}
	wg.Wait()
	return results
}
