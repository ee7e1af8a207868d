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

// Package delta applies a retrieved ServiceTags payload — full replacement
// or incremental delta — onto the enricher's current enriched snapshot.
package delta

import (
	"fmt"

	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
	"github.com/coldestlin/ranger-tagenricher/internal/trie"
)

var deltaLog = log.With("delta")

// ErrAbort is wrapped around any error that leaves the incoming delta only
// partially applied. The caller must treat the enricher's tag version as
// invalid (-1) and fall back to requesting a full replacement.
var ErrAbort = fmt.Errorf("delta: apply aborted")

// Options controls how Apply mutates the prior snapshot.
type Options struct {
	Def                   *resource.ServiceDef
	InPlaceUpdatesEnabled bool
	DisableTriePrefilter  bool
}

// Apply installs incoming onto prior and returns the resulting snapshot.
//
// A non-delta payload is a full replacement: Apply discards prior entirely
// and calls tagmodel.Build. A delta payload is merged according to its
// TagsChangeExtent: ChangeExtentNone is a no-op over the prior snapshot,
// ChangeExtentTags swaps tag records and overlays the incoming
// resource-to-tag-id entries (matchers and tries are untouched), and ChangeExtentServiceResources/ChangeExtentAll walk the
// incoming service resources one at a time, removing each one's previous
// matcher before indexing its replacement.
//
// When opts.InPlaceUpdatesEnabled is false, Apply never mutates a trie
// reachable from prior: every touched trie is copied first via trie.Copy,
// so readers still holding prior observe a fully consistent view
// throughout the merge.
func Apply(prior *tagmodel.EnrichedServiceTags, incoming *tagmodel.ServiceTags, opts Options) (*tagmodel.EnrichedServiceTags, error) {
	if !incoming.IsDelta || prior == nil {
		return tagmodel.Build(incoming, opts.Def, opts.DisableTriePrefilter), nil
	}

	switch incoming.TagsChangeExtent {
	case tagmodel.ChangeExtentNone:
		return prior, nil
	case tagmodel.ChangeExtentTags:
		return applyTagsOnly(prior, incoming), nil
	default:
		return applyResourceChanges(prior, incoming, opts)
	}
}

// applyTagsOnly reuses prior's matchers and tries untouched, replaces the
// tag records and tag version, overlays the incoming resource-to-tag-id
// entries per resource id, and rebuilds the empty-resource/any-access tag
// list.
func applyTagsOnly(prior *tagmodel.EnrichedServiceTags, incoming *tagmodel.ServiceTags) *tagmodel.EnrichedServiceTags {
	merged := prior.ServiceTags.Clone()
	merged.TagVersion = incoming.TagVersion
	merged.Tags = incoming.Tags
	for rid, tagIDs := range incoming.ResourceToTagIDs {
		merged.ResourceToTagIDs[rid] = tagIDs
	}

	next := prior.Clone()
	next.ServiceTags = merged
	next.ResourceTrieVersion = incoming.TagVersion
	next.TagsForEmptyResourceAndAnyAccess = emptyResourceTags(merged)
	return next
}

// applyResourceChanges walks every changed service resource, removing its
// prior matcher (if any) from every trie it populated and, unless the
// resource is itself a deletion, indexing its replacement. If building a
// replacement matcher fails partway through, the whole apply aborts: the
// caller must not trust the partially-mutated snapshot and should force a
// full replacement on the next poll.
func applyResourceChanges(prior *tagmodel.EnrichedServiceTags, incoming *tagmodel.ServiceTags, opts Options) (*tagmodel.EnrichedServiceTags, error) {
	next := prior.Clone()

	workingTries := make(map[string]*trie.Trie, len(prior.Tries))
	for dim, t := range prior.Tries {
		if opts.InPlaceUpdatesEnabled {
			workingTries[dim] = t
		} else {
			workingTries[dim] = t.Copy()
		}
	}

	merged := prior.ServiceTags.Clone()
	merged.TagVersion = incoming.TagVersion
	merged.TagsChangeExtent = incoming.TagsChangeExtent
	if incoming.Tags != nil {
		merged.Tags = incoming.Tags
	}

	for _, sr := range incoming.ServiceResources {
		if old, ok := next.ByResourceID[sr.ID]; ok {
			for dim, prv := range old.Resource.ResourceElements {
				if t, ok := workingTries[dim]; ok {
					t.Delete(prv, old)
				}
			}
			delete(next.ByResourceID, sr.ID)
			next.Matchers = removeMatcher(next.Matchers, old)
		}

		delete(merged.ResourceToTagIDs, sr.ID)
		if tagIDs, ok := incoming.ResourceToTagIDs[sr.ID]; ok {
			merged.ResourceToTagIDs[sr.ID] = tagIDs
		}

		if sr.IsDelete() {
			continue
		}

		m, err := matcher.New(sr, opts.Def)
		if err != nil {
			deltaLog.Error().Err(err).Str("resource", sr.ID).Msg("delta: failed to build replacement matcher, aborting")
			return nil, fmt.Errorf("%w: resource %s: %v", ErrAbort, sr.ID, err)
		}
		next.Matchers = append(next.Matchers, m)
		next.ByResourceID[sr.ID] = m

		for dim, prv := range sr.ResourceElements {
			t, ok := workingTries[dim]
			if !ok {
				continue
			}
			t.Add(prv, m)
		}
	}

	for dim, t := range workingTries {
		t.WrapUpUpdate()
		next.Tries[dim] = t
	}

	next.ServiceTags = merged
	next.ResourceTrieVersion = incoming.TagVersion
	next.TagsForEmptyResourceAndAnyAccess = emptyResourceTags(merged)
	return next, nil
}

func removeMatcher(matchers []*matcher.ServiceResourceMatcher, target *matcher.ServiceResourceMatcher) []*matcher.ServiceResourceMatcher {
	out := matchers[:0]
	for _, m := range matchers {
		if m != target {
			out = append(out, m)
		}
	}
	return out
}

func emptyResourceTags(tags *tagmodel.ServiceTags) []tagmodel.TagForEval {
	out := make([]tagmodel.TagForEval, 0, len(tags.Tags))
	for _, t := range tags.Tags {
		out = append(out, tagmodel.TagForEval{Tag: t, MatchType: matcher.MatchTypeDescendant})
	}
	return out
}
