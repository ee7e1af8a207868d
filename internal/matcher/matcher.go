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

package matcher

import (
	"errors"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"github.com/coldestlin/ranger-tagenricher/internal/resource"
)

var foldCase = cases.Fold()

// ErrNoCoveringHierarchy is returned by New when a service resource's
// dimension set does not fully populate any hierarchy of any policy type.
var ErrNoCoveringHierarchy = errors.New("matcher: no policy type admits this resource's dimensions")

// ServiceResourceMatcher decides whether an AccessResource matches the
// ServiceResource it was built from, and in what relation.
type ServiceResourceMatcher struct {
	Resource   *resource.ServiceResource
	PolicyType resource.PolicyType
	Hierarchy  resource.Hierarchy
	def        *resource.ServiceDef
}

// New selects the first policy type (access, datamask, row-filter) whose
// hierarchy set fully covers res's dimension keys and builds a matcher for
// it. It returns ErrNoCoveringHierarchy if no policy type admits res; the
// caller must drop res and its tag associations in that case.
func New(res *resource.ServiceResource, def *resource.ServiceDef) (*ServiceResourceMatcher, error) {
	pt, h, ok := def.FindCoveringHierarchy(res.Keys())
	if !ok {
		return nil, ErrNoCoveringHierarchy
	}
	return &ServiceResourceMatcher{Resource: res, PolicyType: pt, Hierarchy: h, def: def}, nil
}

// IsLeaf reports whether dimName is the deepest dimension this matcher's
// resource populates.
func (m *ServiceResourceMatcher) IsLeaf(dimName string) bool {
	leaf := ""
	for _, d := range m.Hierarchy.Dimensions {
		if _, ok := m.Resource.ResourceElements[d]; ok {
			leaf = d
			continue
		}
		break
	}
	return leaf == dimName
}

// IsAncestorOf reports whether this matcher cannot be a strict descendant
// of a resource whose leaf dimension is leafDim, i.e. whether the matcher's
// own depth in the hierarchy is at or above leafDim's position.
func (m *ServiceResourceMatcher) IsAncestorOf(leafDim string) bool {
	myDepth := m.depth()
	for i, d := range m.Hierarchy.Dimensions {
		if d == leafDim {
			return myDepth <= i+1
		}
	}
	return false
}

func (m *ServiceResourceMatcher) depth() int {
	n := 0
	for _, d := range m.Hierarchy.Dimensions {
		if _, ok := m.Resource.ResourceElements[d]; ok {
			n++
		} else {
			break
		}
	}
	return n
}

// MatchType compares access against this matcher's resource along the
// shared hierarchy and returns their relation. Each shared dimension's
// access values are compared against the policy values as given; scopes is
// accepted but does not change that comparison. The relation follows from
// the two populated depths.
func (m *ServiceResourceMatcher) MatchType(access *resource.AccessResource, scopes map[string]Scope) MatchType {
	if access.IsEmpty() {
		return MatchTypeNone
	}

	myDepth := m.depth()
	accessDepth := 0
	for _, d := range m.Hierarchy.Dimensions {
		if _, ok := access.Values[d]; ok {
			accessDepth++
		} else {
			break
		}
	}
	if myDepth == 0 || accessDepth == 0 {
		return MatchTypeNone
	}

	shared := myDepth
	if accessDepth < shared {
		shared = accessDepth
	}

	var lastPRV resource.PolicyResourceValue
	for i := 0; i < shared; i++ {
		dim := m.Hierarchy.Dimensions[i]
		prv := m.Resource.ResourceElements[dim]
		lastPRV = prv
		accessVals := access.Values[dim]

		scope := scopes[dim]
		if !valuesMatch(prv, accessVals, m.def, scope) {
			return MatchTypeNone
		}
	}

	switch {
	case myDepth == accessDepth:
		if lastPRV.IsRecursive {
			return MatchTypeSelfAndAllDescendants
		}
		return MatchTypeSelf
	case myDepth < accessDepth:
		return MatchTypeAncestor
	default:
		return MatchTypeDescendant
	}
}

// valuesMatch reports whether any access value matches the policy
// resource value's value set, honoring wildcards, exclusion and case
// sensitivity per the service definition.
func valuesMatch(prv resource.PolicyResourceValue, accessVals []string, def *resource.ServiceDef, _ Scope) bool {
	if len(accessVals) == 0 {
		return false
	}
	matched := false
	for _, av := range accessVals {
		for _, pv := range prv.Values {
			if valueMatches(pv, av, def.CaseSensitive) {
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}
	if prv.IsExcludes {
		return !matched
	}
	return matched
}

func valueMatches(pattern, value string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = foldCase.String(pattern)
		value = foldCase.String(value)
	}
	if pattern == value {
		return true
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(value)
}
