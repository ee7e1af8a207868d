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

package resource

import (
	"sort"
	"strings"
)

// AccessResource is the resource addressed by an incoming authorization
// request: a mapping from dimension name to one or more values.
type AccessResource struct {
	Values map[string][]string
}

// NewAccessResource builds an AccessResource from single-valued dimensions.
func NewAccessResource(values map[string]string) *AccessResource {
	r := &AccessResource{Values: make(map[string][]string, len(values))}
	for k, v := range values {
		r.Values[k] = []string{v}
	}
	return r
}

// IsEmpty reports whether the resource has no populated dimensions.
func (r *AccessResource) IsEmpty() bool {
	return r == nil || len(r.Values) == 0
}

// Keys returns the set of populated dimension names.
func (r *AccessResource) Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Values))
	for k := range r.Values {
		out[k] = struct{}{}
	}
	return out
}

// LeafName returns the deepest populated dimension according to the given
// service def's hierarchies, or "" if no hierarchy covers the resource.
func (r *AccessResource) LeafName(def *ServiceDef) string {
	if r.IsEmpty() {
		return ""
	}
	_, h, ok := def.FindCoveringHierarchy(r.Keys())
	if !ok {
		return ""
	}
	leaf := ""
	for _, d := range h.Dimensions {
		if _, ok := r.Values[d]; !ok {
			break
		}
		leaf = d
	}
	return leaf
}

// CacheKey returns a stable string identifying this resource's dimension
// values, suitable for use as an evaluator-cache key.
func (r *AccessResource) CacheKey() string {
	if r.IsEmpty() {
		return ""
	}
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		vals := append([]string(nil), r.Values[k]...)
		sort.Strings(vals)
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.Join(vals, ","))
	}
	return sb.String()
}

// AsMap returns the first value for every populated dimension, which is
// what a per-dimension trie lookup is keyed by.
func (r *AccessResource) AsMap() map[string]string {
	out := make(map[string]string, len(r.Values))
	for k, vs := range r.Values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
