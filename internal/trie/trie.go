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

// Package trie indexes one resource dimension's values to the matchers
// that populate them, supporting path-separated values, wildcards and a
// recursive (self-and-descendants) flag, the way Ranger indexes
// hierarchical resource values such as a filesystem path.
package trie

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
)

var foldCase = cases.Fold()

type entry struct {
	m          *matcher.ServiceResourceMatcher
	prv        resource.PolicyResourceValue
	isRecursive bool
}

type node struct {
	children  map[string]*node
	self      []entry
	recursive []entry
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

type globEntry struct {
	pattern string
	g       glob.Glob
	e       entry
}

// Trie is a per-dimension index from resource values to the matchers that
// populate that dimension with those values.
type Trie struct {
	mu            sync.RWMutex
	def           *resource.ServiceDef
	dim           string
	caseSensitive bool
	separator     string
	disablePrefilter bool
	root          *node
	globs         []globEntry
	pendingWrap   bool
}

// New builds a trie for dimension dim from an initial batch of matchers.
// disablePrefilter, when true, still builds the index but every lookup
// returns the full candidate set (used when the trie lookup pre-filter
// optimization is turned off in the enricher options).
func New(def *resource.ServiceDef, dim string, matchers []*matcher.ServiceResourceMatcher, disablePrefilter bool) *Trie {
	t := &Trie{
		def:              def,
		dim:              dim,
		caseSensitive:    def.CaseSensitive,
		separator:        def.PathSeparator,
		disablePrefilter: disablePrefilter,
		root:             newNode(),
	}
	for _, m := range matchers {
		prv, ok := m.Resource.ResourceElements[dim]
		if !ok {
			continue
		}
		t.add(prv, m)
	}
	t.wrapUpUpdateLocked()
	return t
}

// Copy returns a structural copy of the trie suitable for a copy-on-write
// update: the node tree is rebuilt but entries (matchers) are shared.
func (t *Trie) Copy() *Trie {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cp := &Trie{
		def:              t.def,
		dim:              t.dim,
		caseSensitive:    t.caseSensitive,
		separator:        t.separator,
		disablePrefilter: t.disablePrefilter,
		root:             copyNode(t.root),
		globs:            append([]globEntry(nil), t.globs...),
	}
	return cp
}

func copyNode(n *node) *node {
	if n == nil {
		return newNode()
	}
	c := &node{
		children:  make(map[string]*node, len(n.children)),
		self:      append([]entry(nil), n.self...),
		recursive: append([]entry(nil), n.recursive...),
	}
	for k, child := range n.children {
		c.children[k] = copyNode(child)
	}
	return c
}

func (t *Trie) normalize(v string) string {
	if !t.caseSensitive {
		v = foldCase.String(v)
	}
	return v
}

func (t *Trie) segments(value string) []string {
	value = t.normalize(value)
	sep := t.separator
	if sep == "" {
		sep = "/"
	}
	trimmed := strings.Trim(value, sep)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, sep)
}

// Add indexes matcher m under the values policyResource holds for this
// trie's dimension. The caller must call WrapUpUpdate once the batch of
// adds/deletes is complete.
func (t *Trie) Add(policyResource resource.PolicyResourceValue, m *matcher.ServiceResourceMatcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(policyResource, m)
	t.pendingWrap = true
}

func (t *Trie) add(prv resource.PolicyResourceValue, m *matcher.ServiceResourceMatcher) {
	for _, v := range prv.Values {
		e := entry{m: m, prv: prv, isRecursive: prv.IsRecursive}
		if isWildcard(v) {
			g, err := glob.Compile(t.normalize(v))
			if err != nil {
				continue
			}
			t.globs = append(t.globs, globEntry{pattern: v, g: g, e: e})
			continue
		}
		segs := t.segments(v)
		n := t.root
		for _, s := range segs {
			child, ok := n.children[s]
			if !ok {
				child = newNode()
				n.children[s] = child
			}
			n = child
		}
		if prv.IsRecursive {
			n.recursive = append(n.recursive, e)
		} else {
			n.self = append(n.self, e)
		}
	}
}

func isWildcard(v string) bool {
	return strings.ContainsAny(v, "*?[")
}

// Delete removes one indexed entry for matcher m under the values
// policyResource holds for this trie's dimension. It is idempotent: if the
// entry is not present, it is a no-op. The caller must call WrapUpUpdate
// once the batch of adds/deletes is complete.
func (t *Trie) Delete(policyResource resource.PolicyResourceValue, m *matcher.ServiceResourceMatcher) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range policyResource.Values {
		if isWildcard(v) {
			out := t.globs[:0]
			for _, ge := range t.globs {
				if ge.pattern == v && ge.e.m == m {
					continue
				}
				out = append(out, ge)
			}
			t.globs = out
			continue
		}
		segs := t.segments(v)
		n := t.root
		ok := true
		for _, s := range segs {
			child, present := n.children[s]
			if !present {
				ok = false
				break
			}
			n = child
		}
		if !ok {
			continue
		}
		n.self = removeEntry(n.self, m)
		n.recursive = removeEntry(n.recursive, m)
	}
	t.pendingWrap = true
}

func removeEntry(entries []entry, m *matcher.ServiceResourceMatcher) []entry {
	out := entries[:0]
	for _, e := range entries {
		if e.m != m {
			out = append(out, e)
		}
	}
	return out
}

// WrapUpUpdate finalizes the trie after a batch of adds/deletes. It must
// be called before the trie is queried again.
func (t *Trie) WrapUpUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wrapUpUpdateLocked()
}

func (t *Trie) wrapUpUpdateLocked() {
	t.pendingWrap = false
}

// GetEvaluatorsForResource returns the candidate matcher set for value
// under the given matching scope. Results are a superset of the true
// match: callers recompute the exact relation via matcher.MatchType.
func (t *Trie) GetEvaluatorsForResource(value string, scope matcher.Scope) map[*matcher.ServiceResourceMatcher]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[*matcher.ServiceResourceMatcher]struct{})
	if t.disablePrefilter {
		t.collectAll(t.root, out)
		for _, ge := range t.globs {
			out[ge.e.m] = struct{}{}
		}
		return out
	}

	segs := t.segments(value)
	n := t.root
	for _, s := range segs {
		for _, e := range n.recursive {
			out[e.m] = struct{}{}
		}
		child, ok := n.children[s]
		if !ok {
			n = nil
			break
		}
		n = child
	}
	if n != nil {
		for _, e := range n.self {
			out[e.m] = struct{}{}
		}
		for _, e := range n.recursive {
			out[e.m] = struct{}{}
		}
		if scope == matcher.ScopeSelfOrDescendants {
			t.collectAll(n, out)
		}
	}
	for _, ge := range t.globs {
		if ge.g.Match(t.normalize(value)) {
			out[ge.e.m] = struct{}{}
		}
	}
	return out
}

func (t *Trie) collectAll(n *node, out map[*matcher.ServiceResourceMatcher]struct{}) {
	if n == nil {
		return
	}
	for _, e := range n.self {
		out[e.m] = struct{}{}
	}
	for _, e := range n.recursive {
		out[e.m] = struct{}{}
	}
	for _, child := range n.children {
		t.collectAll(child, out)
	}
}
