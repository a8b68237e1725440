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

package growth

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// CriticalCache memoizes critical supersaturation calculations. It is safe
// for concurrent use.
type CriticalCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

type criticalKey struct {
	rd, κ, T float64
}

type criticalValue struct {
	rc, sc float64
}

// NewCriticalCache returns a cache holding at most maxEntries results.
func NewCriticalCache(maxEntries int) *CriticalCache {
	return &CriticalCache{cache: lru.New(maxEntries)}
}

// Critical returns the same values as CriticalSupersaturation, computing
// them only if they are not already in the cache.
func (c *CriticalCache) Critical(rd, κ, T float64) (rc, sc float64, err error) {
	key := criticalKey{rd: rd, κ: κ, T: T}
	c.mu.Lock()
	v, ok := c.cache.Get(key)
	c.mu.Unlock()
	if ok {
		cv := v.(criticalValue)
		return cv.rc, cv.sc, nil
	}
	rc, sc, err = CriticalSupersaturation(rd, κ, T)
	if err != nil {
		return rc, sc, err
	}
	c.mu.Lock()
	c.cache.Add(key, criticalValue{rc: rc, sc: sc})
	c.mu.Unlock()
	return rc, sc, nil
}

// Len returns the number of cached entries.
func (c *CriticalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
