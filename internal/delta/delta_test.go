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

package delta

import (
	"errors"
	"testing"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

func testDef() *resource.ServiceDef {
	access := []resource.Hierarchy{
		{Dimensions: []string{"database"}},
		{Dimensions: []string{"database", "table"}},
	}
	return resource.NewServiceDef("hive", []string{"database", "table"},
		map[resource.PolicyType][]resource.Hierarchy{resource.PolicyTypeAccess: access}, false, "/")
}

func baseSnapshot(def *resource.ServiceDef) *tagmodel.ServiceTags {
	return &tagmodel.ServiceTags{
		TagVersion: 1,
		ServiceResources: []*resource.ServiceResource{
			{ID: "r1", Signature: "sig1", ResourceElements: map[string]resource.PolicyResourceValue{
				"database": {Values: []string{"db1"}},
			}},
		},
		ResourceToTagIDs: map[string][]string{"r1": {"t1"}},
		Tags:             map[string]*tagmodel.Tag{"t1": {ID: "t1"}},
	}
}

func TestApply_FullReplacement(t *testing.T) {
	def := testDef()
	incoming := baseSnapshot(def)

	got, err := Apply(nil, incoming, Options{Def: def})
	if err != nil {
		t.Fatal(err)
	}
	if got.ServiceTags.TagVersion != 1 {
		t.Fatalf("expected version 1, got %d", got.ServiceTags.TagVersion)
	}
	if len(got.Matchers) != 1 {
		t.Fatalf("expected 1 matcher, got %d", len(got.Matchers))
	}
}

func TestApply_ChangeExtentNoneIsNoOp(t *testing.T) {
	def := testDef()
	prior := tagmodel.Build(baseSnapshot(def), def, false)

	incoming := &tagmodel.ServiceTags{IsDelta: true, TagsChangeExtent: tagmodel.ChangeExtentNone, TagVersion: 2}
	got, err := Apply(prior, incoming, Options{Def: def})
	if err != nil {
		t.Fatal(err)
	}
	if got != prior {
		t.Fatal("expected ChangeExtentNone to return the prior snapshot unchanged")
	}
}

func TestApply_ChangeExtentTagsReusesMatchersAndTries(t *testing.T) {
	def := testDef()
	prior := tagmodel.Build(baseSnapshot(def), def, false)

	incoming := &tagmodel.ServiceTags{
		IsDelta:          true,
		TagsChangeExtent: tagmodel.ChangeExtentTags,
		TagVersion:       2,
		Tags:             map[string]*tagmodel.Tag{"t1": {ID: "t1", Type: "renamed"}},
		ResourceToTagIDs: map[string][]string{"r1": {"t1"}},
	}
	got, err := Apply(prior, incoming, Options{Def: def})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Matchers) != len(prior.Matchers) || got.Matchers[0] != prior.Matchers[0] {
		t.Fatal("expected matchers to be reused, not rebuilt")
	}
	for dim, tr := range prior.Tries {
		if got.Tries[dim] != tr {
			t.Fatalf("expected trie for %q to be reused, not rebuilt", dim)
		}
	}
	if got.ServiceTags.Tags["t1"].Type != "renamed" {
		t.Fatal("expected tag record to be swapped in")
	}
}

func TestApply_ServiceResourceChangeReplacesMatcher(t *testing.T) {
	def := testDef()
	prior := tagmodel.Build(baseSnapshot(def), def, false)

	incoming := &tagmodel.ServiceTags{
		IsDelta:          true,
		TagsChangeExtent: tagmodel.ChangeExtentServiceResources,
		TagVersion:       2,
		ServiceResources: []*resource.ServiceResource{
			{ID: "r1", Signature: "sig2", ResourceElements: map[string]resource.PolicyResourceValue{
				"database": {Values: []string{"db2"}},
			}},
		},
	}
	got, err := Apply(prior, incoming, Options{Def: def})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matchers) != 1 {
		t.Fatalf("expected exactly 1 matcher after replacement, got %d", len(got.Matchers))
	}

	// old value must no longer be indexed
	oldCandidates := got.Tries["database"].GetEvaluatorsForResource("db1", matcher.ScopeSelf)
	if len(oldCandidates) != 0 {
		t.Fatal("expected old matcher removed from trie")
	}
	newCandidates := got.Tries["database"].GetEvaluatorsForResource("db2", matcher.ScopeSelf)
	if len(newCandidates) != 1 {
		t.Fatal("expected new matcher indexed in trie")
	}
}

func TestApply_DeleteServiceResourceRemovesMatcherOnly(t *testing.T) {
	def := testDef()
	prior := tagmodel.Build(baseSnapshot(def), def, false)

	incoming := &tagmodel.ServiceTags{
		IsDelta:          true,
		TagsChangeExtent: tagmodel.ChangeExtentServiceResources,
		TagVersion:       2,
		ServiceResources: []*resource.ServiceResource{
			{ID: "r1", Signature: ""}, // deletion
		},
	}
	got, err := Apply(prior, incoming, Options{Def: def})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matchers) != 0 {
		t.Fatalf("expected 0 matchers after delete, got %d", len(got.Matchers))
	}
	if _, ok := got.ByResourceID["r1"]; ok {
		t.Fatal("expected r1 removed from ByResourceID")
	}
}

func TestApply_AbortOnMatcherBuildFailurePreservesPriorState(t *testing.T) {
	def := testDef()
	prior := tagmodel.Build(baseSnapshot(def), def, false)

	// "column" is not covered by any hierarchy in testDef, forcing matcher.New to fail.
	incoming := &tagmodel.ServiceTags{
		IsDelta:          true,
		TagsChangeExtent: tagmodel.ChangeExtentServiceResources,
		TagVersion:       2,
		ServiceResources: []*resource.ServiceResource{
			{ID: "r2", Signature: "sig2", ResourceElements: map[string]resource.PolicyResourceValue{
				"column": {Values: []string{"c1"}},
			}},
		},
	}
	_, err := Apply(prior, incoming, Options{Def: def, InPlaceUpdatesEnabled: false})
	if !errors.Is(err, ErrAbort) {
		t.Fatalf("expected ErrAbort, got %v", err)
	}

	// prior must be untouched since in-place updates were disabled
	if len(prior.Matchers) != 1 {
		t.Fatalf("expected prior snapshot's matcher count unchanged, got %d", len(prior.Matchers))
	}
	candidates := prior.Tries["database"].GetEvaluatorsForResource("db1", matcher.ScopeSelf)
	if len(candidates) != 1 {
		t.Fatal("expected prior's trie to still answer as before the aborted delta")
	}
}
