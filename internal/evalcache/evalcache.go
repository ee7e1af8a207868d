/*
SPDX-License-Identifier: GPL-3.0-or-later

Copyright (C) 2026 The ranger-tagenricher Authors

This file is part of ranger-tagenricher.

ranger-tagenricher is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ranger-tagenricher is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ranger-tagenricher. If not, see https://www.gnu.org/licenses/.
*/

// Package evalcache memoizes the candidate matcher set computed for a
// (resource cache key, matching scopes) pair so that repeated enrich()
// calls against the same resource skip the per-dimension trie lookups.
// It owns its own lock, always enabled, and is cleared whenever the
// enricher installs a new snapshot.
package evalcache

import (
	"sort"
	"strings"
	"sync"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
)

// Cache is a two-level memo: resource cache key -> scopes key -> matcher set.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]map[string][]*matcher.ServiceResourceMatcher
}

// New creates an empty evaluator cache.
func New() *Cache {
	return &Cache{entries: make(map[string]map[string][]*matcher.ServiceResourceMatcher)}
}

// ScopesKey builds the stable sub-key for a per-dimension matching-scope map.
func ScopesKey(scopes map[string]matcher.Scope) string {
	if len(scopes) == 0 {
		return ""
	}
	dims := make([]string, 0, len(scopes))
	for d := range scopes {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	var sb strings.Builder
	for _, d := range dims {
		sb.WriteString(d)
		sb.WriteByte('=')
		if scopes[d] == matcher.ScopeSelf {
			sb.WriteByte('S')
		} else {
			sb.WriteByte('D')
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// Get returns the memoized matcher set for (resourceCacheKey, scopesKey),
// if present.
func (c *Cache) Get(resourceCacheKey, scopesKey string) ([]*matcher.ServiceResourceMatcher, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sub, ok := c.entries[resourceCacheKey]
	if !ok {
		return nil, false
	}
	v, ok := sub[scopesKey]
	return v, ok
}

// Put memoizes matchers for (resourceCacheKey, scopesKey).
func (c *Cache) Put(resourceCacheKey, scopesKey string, matchers []*matcher.ServiceResourceMatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.entries[resourceCacheKey]
	if !ok {
		sub = make(map[string][]*matcher.ServiceResourceMatcher)
		c.entries[resourceCacheKey] = sub
	}
	sub[scopesKey] = matchers
}

// Clear empties the cache. Called by the enricher on every setServiceTags.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string][]*matcher.ServiceResourceMatcher)
}

// Len reports the number of distinct resource cache keys memoized, for tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
