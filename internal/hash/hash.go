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

// Package hash calculates cache keys for simulation requests.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a key that identifies the combination of the given
// objects. Objects are gob-encoded where possible; objects that gob
// cannot encode, such as structs without exported fields, are printed
// with spew, which includes unexported fields.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()
	for i, o := range objects {
		fmt.Fprintf(h, "%d:", i)
		if err := gob.NewEncoder(h).Encode(o); err != nil {
			printer.Fprintf(h, "%#v", o)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
