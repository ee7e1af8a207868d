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

// Package tagmodel holds the wire-level tag and service-tags payload types
// and the immutable enriched-snapshot bundle built from them.
package tagmodel

import (
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
)

// Tag is an identified record carrying free-form attributes and an
// optional validity window.
type Tag struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	ValidFrom  *time.Time        `json:"validFrom,omitempty"`
	ValidTo    *time.Time        `json:"validTo,omitempty"`
}

// AppliesAt reports whether the tag is valid at access time t. A tag with
// no validity window always applies.
func (t *Tag) AppliesAt(at time.Time) bool {
	if t == nil {
		return false
	}
	if t.ValidFrom != nil && at.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && at.After(*t.ValidTo) {
		return false
	}
	return true
}

// TagForEval wraps a tag with the match type observed when it was matched
// against an access resource.
type TagForEval struct {
	Tag       *Tag
	MatchType matcher.MatchType
}

// CloneAttributes returns an independent deep copy of the tag's attribute
// map, for callers (row-filter and data-mask expression evaluators) that
// substitute values into the map and must not mutate the shared snapshot's
// copy. Falls back to the tag's own map if the deep copy fails, which only
// happens for attribute values copystructure cannot introspect.
func (t *Tag) CloneAttributes() map[string]string {
	if len(t.Attributes) == 0 {
		return nil
	}
	copied, err := copystructure.Copy(t.Attributes)
	if err != nil {
		return t.Attributes
	}
	out, ok := copied.(map[string]string)
	if !ok {
		return t.Attributes
	}
	return out
}
