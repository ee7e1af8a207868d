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
	"sort"
	"strings"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/trie"
)

// EnrichedServiceTags is the immutable, indexed form of a ServiceTags
// payload: every matcher built from a surviving service resource, a trie
// per service-definition dimension, and the tag set to return for an
// empty-resource/any-access request. Readers must treat it as immutable;
// in-place mutation is permitted only by the delta applicator, only while
// the enricher's write lock is held, and only when in-place updates are
// enabled.
type EnrichedServiceTags struct {
	ServiceTags                      *ServiceTags
	Matchers                         []*matcher.ServiceResourceMatcher
	ByResourceID                     map[string]*matcher.ServiceResourceMatcher
	Tries                            map[string]*trie.Trie
	TagsForEmptyResourceAndAnyAccess []TagForEval
	ResourceTrieVersion              int64
}

// Clone returns a shallow copy of the snapshot: a new top-level struct and
// a new ByResourceID map (so the delta applicator can rewrite entries
// without mutating the version readers currently hold), but the same
// trie pointers, which the applicator replaces one dimension at a time via
// trie.Copy() only when in-place updates are disabled.
func (e *EnrichedServiceTags) Clone() *EnrichedServiceTags {
	out := &EnrichedServiceTags{
		ServiceTags:          e.ServiceTags,
		Matchers:             append([]*matcher.ServiceResourceMatcher(nil), e.Matchers...),
		ByResourceID:         make(map[string]*matcher.ServiceResourceMatcher, len(e.ByResourceID)),
		Tries:                make(map[string]*trie.Trie, len(e.Tries)),
		TagsForEmptyResourceAndAnyAccess: e.TagsForEmptyResourceAndAnyAccess,
		ResourceTrieVersion:  e.ResourceTrieVersion,
	}
	for k, v := range e.ByResourceID {
		out.ByResourceID[k] = v
	}
	for k, v := range e.Tries {
		out.Tries[k] = v
	}
	return out
}

// Build constructs a fresh enriched snapshot from tags, dropping any
// service resource whose matcher fails to build (and its tag-id
// associations along with it). If disableTriePrefilter is true, the
// built tries answer every lookup with the full candidate set.
func Build(tags *ServiceTags, def *resource.ServiceDef, disableTriePrefilter bool) *EnrichedServiceTags {
	matchers := make([]*matcher.ServiceResourceMatcher, 0, len(tags.ServiceResources))
	byID := make(map[string]*matcher.ServiceResourceMatcher, len(tags.ServiceResources))
	validity := NewHierarchyValidityCache(def)

	for _, sr := range tags.ServiceResources {
		if sr.IsDelete() {
			continue
		}
		if !validity.Admits(sr.Keys()) {
			delete(tags.ResourceToTagIDs, sr.ID)
			continue
		}
		m, err := matcher.New(sr, def)
		if err != nil {
			delete(tags.ResourceToTagIDs, sr.ID)
			continue
		}
		matchers = append(matchers, m)
		byID[sr.ID] = m
	}

	tries := make(map[string]*trie.Trie, len(def.Dimensions))
	for _, dim := range def.Dimensions {
		tries[dim] = trie.New(def, dim, matchers, disableTriePrefilter)
	}

	est := &EnrichedServiceTags{
		ServiceTags:         tags,
		Matchers:            matchers,
		ByResourceID:        byID,
		Tries:               tries,
		ResourceTrieVersion: tags.TagVersion,
	}
	est.TagsForEmptyResourceAndAnyAccess = buildEmptyResourceTags(tags)
	return est
}

func buildEmptyResourceTags(tags *ServiceTags) []TagForEval {
	out := make([]TagForEval, 0, len(tags.Tags))
	for _, t := range tags.Tags {
		out = append(out, TagForEval{Tag: t, MatchType: matcher.MatchTypeDescendant})
	}
	return out
}

// HierarchyValidityCache memoizes, for the duration of one enriched
// snapshot build, whether a set of dimension names is admitted by any
// hierarchy of any policy type. It is shared across resources within one
// build and discarded afterward.
type HierarchyValidityCache struct {
	def  *resource.ServiceDef
	memo map[string]bool
}

// NewHierarchyValidityCache creates an empty cache bound to def.
func NewHierarchyValidityCache(def *resource.ServiceDef) *HierarchyValidityCache {
	return &HierarchyValidityCache{def: def, memo: make(map[string]bool)}
}

// Admits reports whether keys is covered by some hierarchy of some
// policy type, memoizing the result.
func (c *HierarchyValidityCache) Admits(keys map[string]struct{}) bool {
	k := fingerprint(keys)
	if v, ok := c.memo[k]; ok {
		return v
	}
	_, _, ok := c.def.FindCoveringHierarchy(keys)
	c.memo[k] = ok
	return ok
}

func fingerprint(keys map[string]struct{}) string {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
