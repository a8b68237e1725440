/*
Copyright © 2019 the parcel authors.
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

package hash

import (
	"math"
	"testing"
)

type unexported struct {
	a float64
	b []int
}

func TestHash(t *testing.T) {
	type config struct {
		V, T float64
	}
	k1 := Hash(config{V: 1, T: 280}, "sulfate")
	if k1 != Hash(config{V: 1, T: 280}, "sulfate") {
		t.Error("keys of equal objects should match")
	}
	if k1 == Hash(config{V: 2, T: 280}, "sulfate") {
		t.Error("keys of different objects should differ")
	}
	if k1 == Hash("sulfate", config{V: 1, T: 280}) {
		t.Error("keys should depend on order")
	}
	if len(k1) != 32 {
		t.Errorf("key length %d", len(k1))
	}
}

func TestHashUnexported(t *testing.T) {
	a := Hash(&unexported{a: 1, b: []int{1, 2}})
	if a != Hash(&unexported{a: 1, b: []int{1, 2}}) {
		t.Error("keys of equal objects should match")
	}
	if a == Hash(&unexported{a: 1, b: []int{1, 3}}) {
		t.Error("keys of different objects should differ")
	}
	if Hash(math.NaN()) != Hash(math.NaN()) {
		t.Error("NaN keys should match")
	}
}
