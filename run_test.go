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
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/parcel/internal/stiff"
)

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func testRun(t *testing.T, pop *Population, cfg SimulationConfig) *Trajectory {
	traj, err := Run(context.Background(), pop, cfg, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return traj
}

func TestRun(t *testing.T) {
	pop := testPopulation(t, 30)
	cfg := DefaultConfig()
	traj := testRun(t, pop, cfg)

	if !traj.Stopped {
		t.Error("the run should stop after the supersaturation peak")
	}
	if traj.Peak.S <= 0 || traj.Peak.S > 0.05 {
		t.Errorf("peak supersaturation %g out of range", traj.Peak.S)
	}
	if traj.Peak.Time <= 0 || traj.Peak.Altitude != traj.Peak.Time*cfg.UpdraftSpeed {
		t.Errorf("peak at t=%g, z=%g", traj.Peak.Time, traj.Peak.Altitude)
	}
	tEnd, final := traj.Final()
	if final.S > traj.Peak.S*(1-cfg.PeakMargin) {
		t.Errorf("final S=%g should be below the peak %g by the margin", final.S, traj.Peak.S)
	}
	if tEnd >= cfg.TEnd {
		t.Errorf("the run should stop before %g s", cfg.TEnd)
	}
	if traj.Stats.Steps == 0 || traj.Stats.Evaluations == 0 || traj.Stats.Jacobians == 0 {
		t.Errorf("stats = %+v", traj.Stats)
	}

	checkWaterConserved(t, pop, cfg, traj)
	for i := range traj.Time {
		s := traj.States[i]
		if i > 0 {
			if traj.Time[i] <= traj.Time[i-1] {
				t.Errorf("sample %d: time %g is not after %g", i, traj.Time[i], traj.Time[i-1])
			}
			if s.P > traj.States[i-1].P {
				t.Errorf("sample %d: pressure increased from %g to %g", i, traj.States[i-1].P, s.P)
			}
		}
		if s.S > traj.Peak.S*(1+1e-3) {
			t.Errorf("sample %d: S=%g is above the peak %g", i, s.S, traj.Peak.S)
		}
		for j, r := range s.R {
			if r < pop.Bin(j).R {
				t.Errorf("sample %d, bin %d: wet radius %g below dry radius", i, j, r)
			}
		}
	}
}

// checkWaterConserved checks that vapor plus liquid water is constant at
// every sample of traj.
func checkWaterConserved(t *testing.T, pop *Population, cfg SimulationConfig, traj *Trajectory) {
	t.Helper()
	sys, err := NewSystem(pop, cfg)
	if err != nil {
		t.Fatal(err)
	}
	w0, err := sys.TotalWater(traj.States[0])
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range traj.States {
		w, err := sys.TotalWater(s)
		if err != nil {
			t.Fatal(err)
		}
		if different(w, w0, 1e-6) {
			t.Errorf("sample %d: total water %g, initially %g", i, w, w0)
		}
	}
}

func TestRunTwoSpecies(t *testing.T) {
	sulfate, err := NewSpecies("sulfate", sulfateMode, 0.7, 1760, 20)
	if err != nil {
		t.Fatal(err)
	}
	salt, err := NewSpecies("sea salt", Lognormal{Mu: 0.3e-6, Sigma: 1.8, N: 5e6}, 1.2, 2160, 10)
	if err != nil {
		t.Fatal(err)
	}
	pop, err := NewPopulation(sulfate, salt)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	traj := testRun(t, pop, cfg)
	if !(traj.Peak.S > 0) {
		t.Errorf("peak supersaturation %g", traj.Peak.S)
	}
	checkWaterConserved(t, pop, cfg, traj)
}

func TestRunGrowthAboveCritical(t *testing.T) {
	pop := testPopulation(t, 30)
	traj := testRun(t, pop, DefaultConfig())
	for i := 1; i < traj.Len(); i++ {
		prev, s := traj.States[i-1], traj.States[i]
		for j, r := range s.R {
			b := pop.Bin(j)
			_, sc, err := criticals.Critical(b.R, b.Kappa, s.T)
			if err != nil {
				t.Fatal(err)
			}
			if prev.S > sc && s.S > sc && r < prev.R[j] {
				t.Errorf("sample %d, bin %d: radius shrank from %g to %g while S > Sc", i, j, prev.R[j], r)
			}
		}
	}
}

func TestRunFixedHorizon(t *testing.T) {
	pop := testPopulation(t, 10)
	cfg := DefaultConfig()
	cfg.Termination = FixedHorizon
	cfg.TEnd = 60
	cfg.DtOutput = 2
	traj := testRun(t, pop, cfg)
	if traj.Stopped {
		t.Error("a fixed horizon run should not stop early")
	}
	if traj.Len() != 31 {
		t.Errorf("have %d samples, want 31", traj.Len())
	}
	if tEnd, _ := traj.Final(); tEnd != 60 {
		t.Errorf("final time %g", tEnd)
	}
	cols, rows := traj.Table()
	if len(cols) != 15 || cols[0] != "time" || cols[5] != "r000" || len(rows) != 31 || len(rows[3]) != 15 {
		t.Errorf("table: %v, %d rows", cols, len(rows))
	}
	if rows[30][0] != 60 || rows[30][1] != 60*cfg.UpdraftSpeed {
		t.Errorf("last row %v", rows[30][:2])
	}
}

func TestRunIdempotent(t *testing.T) {
	pop := testPopulation(t, 20)
	cfg := DefaultConfig()
	t1 := testRun(t, pop, cfg)
	t2 := testRun(t, pop, cfg)
	if diff := pretty.Diff(t1, t2); len(diff) > 0 {
		t.Errorf("repeated runs differ: %v", diff)
	}
}

func TestRunLogging(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	if _, err := Run(context.Background(), testPopulation(t, 10), DefaultConfig(), WithLogger(log)); err != nil {
		t.Fatal(err)
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("have %d log entries, want 2", len(entries))
	}
	last := hook.LastEntry()
	if last.Level != logrus.InfoLevel || last.Message != "parcel: run complete" {
		t.Errorf("last entry: %s %s", last.Level, last.Message)
	}
	if _, ok := last.Data["Smax"]; !ok {
		t.Error("missing Smax field")
	}
}

func TestRunConfigurationError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdraftSpeed = -1
	_, err := Run(context.Background(), testPopulation(t, 10), cfg, WithLogger(quietLogger()))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Param != "UpdraftSpeed" {
		t.Errorf("have %v, want ConfigurationError", err)
	}
}

func TestRunMaxSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 5
	log, hook := test.NewNullLogger()
	traj, err := Run(context.Background(), testPopulation(t, 10), cfg, WithLogger(log))
	var intErr *IntegrationError
	if !errors.As(err, &intErr) {
		t.Fatalf("have %v, want IntegrationError", err)
	}
	if !errors.Is(err, stiff.ErrMaxSteps) {
		t.Errorf("have %v, want %v", err, stiff.ErrMaxSteps)
	}
	if traj == nil || traj != intErr.Trajectory || traj.Len() == 0 {
		t.Fatal("the partial trajectory should be returned")
	}
	if intErr.Config != cfg || len(intErr.Last.R) != 10 || !(intErr.Time >= 0) {
		t.Errorf("error details: %+v", intErr)
	}
	if intErr.Bins != 10 || len(intErr.Species) != 1 || intErr.Species[0] != "sulfate" {
		t.Errorf("population details: %d bins, species %v", intErr.Bins, intErr.Species)
	}
	if msg := err.Error(); !strings.Contains(msg, "10 bins") || !strings.Contains(msg, "[sulfate]") {
		t.Errorf("message %q should describe the population", msg)
	}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			t.Error("exceeding the step budget should not be retried")
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testPopulation(t, 10), DefaultConfig(), WithLogger(quietLogger()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("have %v, want %v", err, context.Canceled)
	}
	var intErr *IntegrationError
	if !errors.As(err, &intErr) || intErr.Time != 0 {
		t.Errorf("have %v, want IntegrationError at t=0", err)
	}
}

func TestRunLowAccommodation(t *testing.T) {
	pop := testPopulation(t, 20)
	fast := testRun(t, pop, DefaultConfig())
	cfg := DefaultConfig()
	cfg.AccommodationCoefficient = 0.1
	slow := testRun(t, pop, cfg)
	if slow.Peak.S <= fast.Peak.S {
		t.Errorf("slower condensation should raise the peak: %g <= %g", slow.Peak.S, fast.Peak.S)
	}
	if math.IsNaN(slow.Peak.S) {
		t.Error("NaN peak")
	}
}
