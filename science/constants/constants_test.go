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

package constants

import (
	"testing"

	"github.com/ctessum/unit"
)

func TestTable(t *testing.T) {
	tbl := Table()
	want := map[string]unit.Dimensions{
		"g":  unit.MeterPerSecond2,
		"ρw": unit.KilogramPerMeter3,
		"T0": unit.Kelvin,
		"ε":  unit.Dimless,
	}
	for _, c := range tbl {
		d, ok := want[c.Symbol]
		if !ok {
			continue
		}
		if err := c.Value.Check(d); err != nil {
			t.Errorf("%s: %v", c.Name, err)
		}
		delete(want, c.Symbol)
	}
	if len(want) > 0 {
		t.Errorf("missing constants: %v", want)
	}
}

func TestTableIsCopy(t *testing.T) {
	a := Table()
	a[0].Value = unit.New(0, unit.Dimless)
	b := Table()
	if b[0].Value.Value() != Gravity {
		t.Errorf("table modification leaked: %g", b[0].Value.Value())
	}
}

func TestEpsilon(t *testing.T) {
	if d := Epsilon - Rd/Rv; d > 1e-3 || d < -1e-3 {
		t.Errorf("ε should equal Rd/Rv, difference %g", d)
	}
}
