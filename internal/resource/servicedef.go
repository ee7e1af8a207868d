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

// Package resource models a service's resource dimensions (e.g. database,
// table, column) and the hierarchies that policy types admit over them.
package resource

// PolicyType identifies the kind of policy a hierarchy belongs to. The
// matcher construction order in matcher.New walks these in a fixed
// sequence: access first, then datamask, then row-filter.
type PolicyType int

const (
	PolicyTypeAccess PolicyType = iota
	PolicyTypeDataMask
	PolicyTypeRowFilter
)

// PolicyTypeOrder is the fixed precedence used when selecting which
// policy type a service resource's dimension set belongs to.
var PolicyTypeOrder = []PolicyType{PolicyTypeAccess, PolicyTypeDataMask, PolicyTypeRowFilter}

func (t PolicyType) String() string {
	switch t {
	case PolicyTypeAccess:
		return "access"
	case PolicyTypeDataMask:
		return "datamask"
	case PolicyTypeRowFilter:
		return "row-filter"
	default:
		return "unknown"
	}
}

// Hierarchy is an ordered subsequence of dimension names forming a legal
// resource path for some policy type, shallowest dimension first.
type Hierarchy struct {
	Dimensions []string
}

// Leaf returns the deepest dimension name in the hierarchy, or "" if empty.
func (h Hierarchy) Leaf() string {
	if len(h.Dimensions) == 0 {
		return ""
	}
	return h.Dimensions[len(h.Dimensions)-1]
}

// Covers reports whether keys is exactly the set of dimensions in a
// prefix of this hierarchy (i.e. a legal, possibly partial, resource path).
func (h Hierarchy) Covers(keys map[string]struct{}) bool {
	if len(keys) > len(h.Dimensions) {
		return false
	}
	seen := make(map[string]struct{}, len(keys))
	for i, dim := range h.Dimensions {
		if i >= len(keys) {
			break
		}
		if _, ok := keys[dim]; !ok {
			return false
		}
		seen[dim] = struct{}{}
	}
	return len(seen) == len(keys)
}

// ServiceDef describes a service's dimension vocabulary and the
// hierarchies each policy type admits over that vocabulary.
type ServiceDef struct {
	Name          string
	Dimensions    []string
	CaseSensitive bool
	PathSeparator string
	hierarchies   map[PolicyType][]Hierarchy
}

// NewServiceDef builds a ServiceDef. pathSeparator defaults to "/" when empty.
func NewServiceDef(name string, dimensions []string, hierarchies map[PolicyType][]Hierarchy, caseSensitive bool, pathSeparator string) *ServiceDef {
	if pathSeparator == "" {
		pathSeparator = "/"
	}
	return &ServiceDef{
		Name:          name,
		Dimensions:    dimensions,
		CaseSensitive: caseSensitive,
		PathSeparator: pathSeparator,
		hierarchies:   hierarchies,
	}
}

// HierarchiesFor returns the hierarchies admitted by the given policy type.
func (d *ServiceDef) HierarchiesFor(pt PolicyType) []Hierarchy {
	return d.hierarchies[pt]
}

// FindCoveringHierarchy returns the first hierarchy (in PolicyTypeOrder,
// then declaration order) whose dimension prefix exactly equals keys, along
// with the policy type it belongs to. ok is false if no hierarchy covers.
func (d *ServiceDef) FindCoveringHierarchy(keys map[string]struct{}) (pt PolicyType, h Hierarchy, ok bool) {
	for _, pt := range PolicyTypeOrder {
		for _, h := range d.hierarchies[pt] {
			if h.Covers(keys) {
				return pt, h, true
			}
		}
	}
	return 0, Hierarchy{}, false
}
