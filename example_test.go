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

package parcel_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/parcel"
	"github.com/spatialmodel/parcel/science/activation/mbn2014"
)

// TestAmmoniumSulfate compares the peak supersaturation of a detailed
// parcel simulation with the MBN2014 parameterization.
func TestAmmoniumSulfate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	s, err := parcel.NewSpecies("ammonium sulfate",
		parcel.Lognormal{Mu: 0.05e-6, Sigma: 2, N: 1000e6}, 0.7, 1760, 100)
	if err != nil {
		t.Fatal(err)
	}
	pop, err := parcel.NewPopulation(s)
	if err != nil {
		t.Fatal(err)
	}
	cfg := parcel.DefaultConfig()
	cfg.UpdraftSpeed = 1
	cfg.T0 = 279
	cfg.P0 = 100000
	cfg.S0 = -0.1
	cfg.AccommodationCoefficient = 0.1

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	traj, err := parcel.Run(context.Background(), pop, cfg, parcel.WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	pred, err := mbn2014.Parameterization{}.Predict(cfg.UpdraftSpeed, cfg.T0, cfg.P0, pop, cfg.AccommodationCoefficient)
	if err != nil {
		t.Fatal(err)
	}
	if r := (pred.Smax - traj.Peak.S) / traj.Peak.S; r < -0.1 || r > 0.1 {
		t.Errorf("parcel Smax %g and MBN2014 Smax %g differ by %.1f%%", traj.Peak.S, pred.Smax, r*100)
	}

	res, err := parcel.Diagnose(traj, pop)
	if err != nil {
		t.Fatal(err)
	}
	if d := res.NumberFraction - pred.NumberFraction; d < -0.1 || d > 0.1 {
		t.Errorf("parcel activated fraction %g and MBN2014 fraction %g differ by more than 0.1",
			res.NumberFraction, pred.NumberFraction)
	}
}

func ExampleRun() {
	s, err := parcel.NewSpecies("sulfate", parcel.Lognormal{Mu: 0.05e-6, Sigma: 2, N: 500e6}, 0.6, 1770, 40)
	if err != nil {
		panic(err)
	}
	pop, err := parcel.NewPopulation(s)
	if err != nil {
		panic(err)
	}
	cfg := parcel.DefaultConfig()
	cfg.UpdraftSpeed = 0.5

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	traj, err := parcel.Run(context.Background(), pop, cfg, parcel.WithLogger(log))
	if err != nil {
		panic(err)
	}
	res, err := parcel.Diagnose(traj, pop)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Smax > 0, res.NumberFraction > 0 && res.NumberFraction < 1)
	// Output: true true
}
