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

// PolicyResourceValue is the value-side of a single dimension within a
// service resource: a set of concrete or wildcarded values, optionally
// negated (excludes).
type PolicyResourceValue struct {
	Values      []string
	IsExcludes  bool
	IsRecursive bool
}

// ServiceResource is a tagged object: an identified, versioned record of
// dimension values. A zero-length Signature marks the record as a deletion
// within a delta (see the delta package).
type ServiceResource struct {
	ID             string
	Signature      string
	ResourceElements map[string]PolicyResourceValue
}

// IsDelete reports whether this resource represents a deletion.
func (r *ServiceResource) IsDelete() bool {
	return r.Signature == ""
}

// Keys returns the set of dimension names this resource populates.
func (r *ServiceResource) Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(r.ResourceElements))
	for k := range r.ResourceElements {
		out[k] = struct{}{}
	}
	return out
}

// AsAccessResource converts a service resource's values into an
// AccessResource, carrying over every value of every dimension.
func (r *ServiceResource) AsAccessResource() *AccessResource {
	values := make(map[string][]string, len(r.ResourceElements))
	for k, prv := range r.ResourceElements {
		values[k] = append([]string(nil), prv.Values...)
	}
	return &AccessResource{Values: values}
}
