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

// Package matcher decides whether an accessed resource matches a tagged
// service resource, and in what relation.
package matcher

// MatchType is the relation between an accessed resource and a service
// resource along a hierarchy.
type MatchType int

const (
	MatchTypeNone MatchType = iota
	MatchTypeSelf
	MatchTypeAncestor
	MatchTypeDescendant
	MatchTypeSelfAndAllDescendants
)

func (m MatchType) String() string {
	switch m {
	case MatchTypeSelf:
		return "SELF"
	case MatchTypeAncestor:
		return "ANCESTOR"
	case MatchTypeDescendant:
		return "DESCENDANT"
	case MatchTypeSelfAndAllDescendants:
		return "SELF_AND_ALL_DESCENDANTS"
	default:
		return "NONE"
	}
}

// Scope narrows how a trie lookup or a classification treats descendants
// of the queried value.
type Scope int

const (
	// ScopeSelf restricts a trie lookup to entries that cover the queried
	// value itself (an exact or wildcard match, or a recursive entry on an
	// ancestor path); entries indexed only under descendants of the queried
	// value are not returned.
	ScopeSelf Scope = iota
	// ScopeSelfOrDescendants also returns matchers indexed under values
	// that are descendants of the queried value.
	ScopeSelfOrDescendants
)

// AccessType is the kind of access an authorization request is evaluated
// for. AccessTypeAny is the wildcard used for "any action on this resource".
type AccessType string

const AccessTypeAny AccessType = "*"
