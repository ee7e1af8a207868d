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

// Package enricher is the access-control plugin's tag-context enricher: it
// holds the current enriched tag snapshot for one service and answers
// enrich() calls by walking the snapshot's per-dimension tries.
package enricher

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coldestlin/ranger-tagenricher/internal/config"
	"github.com/coldestlin/ranger-tagenricher/internal/delta"
	"github.com/coldestlin/ranger-tagenricher/internal/evalcache"
	"github.com/coldestlin/ranger-tagenricher/internal/events"
	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

var engineLog = log.With("enricher")

// ErrNoSnapshot is returned by Enrich before any tag snapshot has been
// installed via SetServiceTags.
var ErrNoSnapshot = errors.New("enricher: no tag snapshot installed")

// Engine is one service's tag-context enricher instance. The access-control
// plugin constructs one Engine per service definition.
type Engine struct {
	def         *resource.ServiceDef
	serviceName string
	appID       string
	cfg         *config.PluginConfig
	opts        config.EnricherOptions

	// lockEnabled mirrors deltasEnabled && inPlaceUpdatesEnabled: when
	// true, SetServiceTags and Enrich serialize through rw so in-place
	// trie mutation never races a reader; when false, SetServiceTags
	// always builds a copy-on-write snapshot and publishes it with a
	// single atomic store, so Enrich needs no lock at all.
	lockEnabled bool
	rw          sync.RWMutex
	writeMu     sync.Mutex

	current   atomic.Pointer[tagmodel.EnrichedServiceTags]
	evalCache *evalcache.Cache
	observer  *events.Observer
}

// New constructs an Engine for one service definition. cfg supplies the
// plugin's tag.delta.enabled / in.place.tag.update.enabled settings that
// derive the concurrency mode.
func New(def *resource.ServiceDef, serviceName, appID string, cfg *config.PluginConfig, opts config.EnricherOptions, observer *events.Observer) *Engine {
	return &Engine{
		def:         def,
		serviceName: serviceName,
		appID:       appID,
		cfg:         cfg,
		opts:        opts,
		lockEnabled: cfg.TagDeltaEnabled() && cfg.InPlaceTagUpdateEnabled(),
		evalCache:   evalcache.New(),
		observer:    observer,
	}
}

// PreCleanup discards the current snapshot and evaluator cache, the way a
// plugin instance is torn down before a service definition is reloaded.
func (e *Engine) PreCleanup() {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.lockEnabled {
		e.rw.Lock()
		defer e.rw.Unlock()
	}
	e.current.Store(nil)
	e.evalCache.Clear()
}

// SetServiceTags installs a newly retrieved payload — full replacement or
// delta — as the engine's current snapshot. It clears the evaluator cache
// and notifies the observer on success.
func (e *Engine) SetServiceTags(tags *tagmodel.ServiceTags) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.lockEnabled {
		e.rw.Lock()
		defer e.rw.Unlock()
	}

	if !tags.IsDelta && !tags.IsTagsDeduped && e.cfg.DedupStrings() {
		tags.DedupeTags()
	}

	prior := e.current.Load()
	next, err := delta.Apply(prior, tags, delta.Options{
		Def:                   e.def,
		InPlaceUpdatesEnabled: e.lockEnabled,
		DisableTriePrefilter:  e.opts.DisableTrieLookupPrefilter,
	})
	if err != nil {
		engineLog.Error().Err(err).Str("service", e.serviceName).Msg("setServiceTags failed, snapshot left unchanged")
		return err
	}

	e.current.Store(next)
	e.evalCache.Clear()

	if e.observer != nil {
		e.observer.Notify(events.SnapshotInstalled{
			ServiceName: e.serviceName,
			TagVersion:  next.ServiceTags.TagVersion,
			IsDelta:     tags.IsDelta,
		})
	}
	return nil
}

// Enrich resolves the tags applicable to access under accessType, honoring
// the per-dimension matching scopes and the evaluation time at (used for
// tag validity-window filtering).
func (e *Engine) Enrich(access *resource.AccessResource, accessType matcher.AccessType, scopes map[string]matcher.Scope, at time.Time) ([]tagmodel.TagForEval, error) {
	if e.lockEnabled {
		e.rw.RLock()
		defer e.rw.RUnlock()
	}

	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	if access.IsEmpty() && accessType == matcher.AccessTypeAny {
		return filterValid(snap.TagsForEmptyResourceAndAnyAccess, at), nil
	}

	candidates := e.candidateMatchers(snap, access, scopes)
	return resolveTags(snap, access, scopes, candidates, at), nil
}

// candidateMatchers returns the deduplicated matcher set that might apply
// to access, consulting the evaluator cache before walking the tries.
func (e *Engine) candidateMatchers(snap *tagmodel.EnrichedServiceTags, access *resource.AccessResource, scopes map[string]matcher.Scope) []*matcher.ServiceResourceMatcher {
	resourceKey := access.CacheKey()
	scopesKey := evalcache.ScopesKey(scopes)

	if cached, ok := e.evalCache.Get(resourceKey, scopesKey); ok {
		return cached
	}

	seen := make(map[*matcher.ServiceResourceMatcher]struct{})
	for dim, value := range access.AsMap() {
		t, ok := snap.Tries[dim]
		if !ok {
			continue
		}
		scope := scopes[dim]
		for m := range t.GetEvaluatorsForResource(value, scope) {
			seen[m] = struct{}{}
		}
	}

	out := make([]*matcher.ServiceResourceMatcher, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	e.evalCache.Put(resourceKey, scopesKey, out)
	return out
}

// resolveTags classifies each candidate matcher against access, excludes
// descendant matches the caller's scopes don't ask for, resolves the
// surviving matchers to their tags, filters by validity window, and
// dedupes by tag id keeping the most specific match type.
func resolveTags(snap *tagmodel.EnrichedServiceTags, access *resource.AccessResource, scopes map[string]matcher.Scope, candidates []*matcher.ServiceResourceMatcher, at time.Time) []tagmodel.TagForEval {
	best := make(map[string]tagmodel.TagForEval)

	for _, m := range candidates {
		mt := m.MatchType(access, scopes)
		if excludeDescendantMatch(mt, m, scopes) {
			continue
		}
		tagIDs := snap.ServiceTags.ResourceToTagIDs[m.Resource.ID]
		for _, tagID := range tagIDs {
			tag, ok := snap.ServiceTags.Tags[tagID]
			if !ok || !tag.AppliesAt(at) {
				continue
			}
			existing, has := best[tagID]
			if !has || precedence(mt) > precedence(existing.MatchType) {
				best[tagID] = tagmodel.TagForEval{Tag: tag, MatchType: mt}
			}
		}
	}

	out := make([]tagmodel.TagForEval, 0, len(best))
	for _, t := range best {
		out = append(out, t)
	}
	return out
}

// excludeDescendantMatch drops a DESCENDANT classification when none of the
// matcher's populated dimensions was requested with
// ScopeSelfOrDescendants — the caller asked only about the access resource
// itself, not what lies beneath it.
func excludeDescendantMatch(mt matcher.MatchType, m *matcher.ServiceResourceMatcher, scopes map[string]matcher.Scope) bool {
	if mt == matcher.MatchTypeNone {
		return true
	}
	if mt != matcher.MatchTypeDescendant {
		return false
	}
	for dim := range m.Resource.ResourceElements {
		if scopes[dim] == matcher.ScopeSelfOrDescendants {
			return false
		}
	}
	return true
}

func precedence(mt matcher.MatchType) int {
	switch mt {
	case matcher.MatchTypeSelf:
		return 4
	case matcher.MatchTypeSelfAndAllDescendants:
		return 3
	case matcher.MatchTypeAncestor:
		return 2
	case matcher.MatchTypeDescendant:
		return 1
	default:
		return 0
	}
}

func filterValid(tags []tagmodel.TagForEval, at time.Time) []tagmodel.TagForEval {
	out := make([]tagmodel.TagForEval, 0, len(tags))
	for _, t := range tags {
		if t.Tag.AppliesAt(at) {
			out = append(out, t)
		}
	}
	return out
}
