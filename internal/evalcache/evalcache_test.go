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

package evalcache

import (
	"testing"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New()
	matchers := []*matcher.ServiceResourceMatcher{{}}
	c.Put("db1", "", matchers)

	got, ok := c.Get("db1", "")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 matcher, got %d", len(got))
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New()
	if _, ok := c.Get("nope", ""); ok {
		t.Fatal("expected cache miss on unknown resource key")
	}
}

func TestCache_ClearEmptiesEverything(t *testing.T) {
	c := New()
	c.Put("db1", "", []*matcher.ServiceResourceMatcher{{}})
	c.Put("db2", "", []*matcher.ServiceResourceMatcher{{}})
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries before clear, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected 0 entries after clear, got %d", c.Len())
	}
	if _, ok := c.Get("db1", ""); ok {
		t.Fatal("expected cache miss after clear")
	}
}

func TestScopesKey_OrderIndependent(t *testing.T) {
	a := map[string]matcher.Scope{"database": matcher.ScopeSelf, "table": matcher.ScopeSelfOrDescendants}
	b := map[string]matcher.Scope{"table": matcher.ScopeSelfOrDescendants, "database": matcher.ScopeSelf}

	if ScopesKey(a) != ScopesKey(b) {
		t.Fatalf("expected scopes key to be independent of map iteration order: %q vs %q", ScopesKey(a), ScopesKey(b))
	}
}

func TestScopesKey_DiffersOnDifferentScope(t *testing.T) {
	a := map[string]matcher.Scope{"database": matcher.ScopeSelf}
	b := map[string]matcher.Scope{"database": matcher.ScopeSelfOrDescendants}

	if ScopesKey(a) == ScopesKey(b) {
		t.Fatal("expected different scope values to produce different keys")
	}
}

func TestScopesKey_EmptyIsEmptyString(t *testing.T) {
	if ScopesKey(nil) != "" {
		t.Fatalf("expected empty scopes key for nil map, got %q", ScopesKey(nil))
	}
}
