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

package tagmodel

import (
	"testing"
	"time"

	"github.com/coldestlin/ranger-tagenricher/internal/resource"
)

func testDef() *resource.ServiceDef {
	access := []resource.Hierarchy{
		{Dimensions: []string{"database"}},
		{Dimensions: []string{"database", "table"}},
	}
	return resource.NewServiceDef("hive", []string{"database", "table"},
		map[resource.PolicyType][]resource.Hierarchy{resource.PolicyTypeAccess: access}, false, "/")
}

func TestTag_AppliesAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tag := &Tag{ID: "t1", ValidFrom: &past, ValidTo: &future}
	if !tag.AppliesAt(now) {
		t.Fatal("expected tag within validity window to apply")
	}

	expired := &Tag{ID: "t2", ValidTo: &past}
	if expired.AppliesAt(now) {
		t.Fatal("expected expired tag to not apply")
	}

	notYet := &Tag{ID: "t3", ValidFrom: &future}
	if notYet.AppliesAt(now) {
		t.Fatal("expected not-yet-valid tag to not apply")
	}

	unbounded := &Tag{ID: "t4"}
	if !unbounded.AppliesAt(now) {
		t.Fatal("expected tag with no validity window to always apply")
	}
}

func TestTag_CloneAttributesIsIndependent(t *testing.T) {
	tag := &Tag{ID: "t1", Attributes: map[string]string{"owner": "alice"}}
	clone := tag.CloneAttributes()
	clone["owner"] = "bob"

	if tag.Attributes["owner"] != "alice" {
		t.Fatalf("expected original attributes untouched, got %q", tag.Attributes["owner"])
	}
}

func TestServiceTags_DedupeTags(t *testing.T) {
	st := &ServiceTags{
		Tags: map[string]*Tag{
			"t1": {ID: "t1", Type: "PII", Attributes: map[string]string{"level": "high"}},
			"t2": {ID: "t2", Type: "PII", Attributes: map[string]string{"level": "high"}},
			"t3": {ID: "t3", Type: "PII", Attributes: map[string]string{"level": "low"}},
		},
		ResourceToTagIDs: map[string][]string{
			"r1": {"t1"},
			"r2": {"t2"},
			"r3": {"t3"},
		},
	}
	st.DedupeTags()

	if len(st.Tags) != 2 {
		t.Fatalf("expected 2 surviving tags after dedup, got %d", len(st.Tags))
	}
	if st.ResourceToTagIDs["r1"][0] != st.ResourceToTagIDs["r2"][0] {
		t.Fatalf("expected r1 and r2 to be remapped to the same canonical tag id")
	}
	if !st.IsTagsDeduped {
		t.Fatal("expected IsTagsDeduped to be set")
	}
}

func TestBuild_DropsResourceWithNoCoveringHierarchy(t *testing.T) {
	def := testDef()
	tags := &ServiceTags{
		TagVersion: 1,
		ServiceResources: []*resource.ServiceResource{
			{ID: "bad", Signature: "sig", ResourceElements: map[string]resource.PolicyResourceValue{
				"table": {Values: []string{"t1"}},
			}},
		},
		ResourceToTagIDs: map[string][]string{"bad": {"tag1"}},
		Tags:             map[string]*Tag{"tag1": {ID: "tag1"}},
	}

	est := Build(tags, def, false)
	if len(est.Matchers) != 0 {
		t.Fatalf("expected resource with no covering hierarchy to be dropped, got %d matchers", len(est.Matchers))
	}
	if _, ok := tags.ResourceToTagIDs["bad"]; ok {
		t.Fatal("expected dropped resource's tag association to be removed")
	}
}

func TestBuild_TrieMapKeysEqualDimensions(t *testing.T) {
	def := testDef()
	tags := &ServiceTags{TagVersion: 1}
	est := Build(tags, def, false)

	if len(est.Tries) != len(def.Dimensions) {
		t.Fatalf("expected one trie per dimension, got %d", len(est.Tries))
	}
	for _, dim := range def.Dimensions {
		if _, ok := est.Tries[dim]; !ok {
			t.Fatalf("expected a trie for dimension %q", dim)
		}
	}
}

func TestBuild_ByResourceIDIndexesEverySurvivingMatcher(t *testing.T) {
	def := testDef()
	tags := &ServiceTags{
		TagVersion: 1,
		ServiceResources: []*resource.ServiceResource{
			{ID: "r1", Signature: "sig1", ResourceElements: map[string]resource.PolicyResourceValue{
				"database": {Values: []string{"db1"}},
			}},
		},
	}
	est := Build(tags, def, false)

	m, ok := est.ByResourceID["r1"]
	if !ok {
		t.Fatal("expected r1 indexed in ByResourceID")
	}
	found := false
	for _, cand := range est.Matchers {
		if cand == m {
			found = true
		}
	}
	if !found {
		t.Fatal("expected ByResourceID entry to point at a matcher present in Matchers")
	}
}

func TestBuild_EmptyResourceAnyAccessCoversAllValidTags(t *testing.T) {
	def := testDef()
	tags := &ServiceTags{
		TagVersion: 1,
		Tags: map[string]*Tag{
			"t1": {ID: "t1"},
			"t2": {ID: "t2"},
		},
	}
	est := Build(tags, def, false)
	if len(est.TagsForEmptyResourceAndAnyAccess) != 2 {
		t.Fatalf("expected 2 precomputed tags, got %d", len(est.TagsForEmptyResourceAndAnyAccess))
	}
}
