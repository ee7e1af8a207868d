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

	"github.com/coldestlin/ranger-tagenricher/internal/resource"
)

// ChangeExtent classifies how much of a delta's payload actually changed,
// letting the delta applicator skip rebuilding matchers and tries when
// only tag attributes moved.
type ChangeExtent int

const (
	ChangeExtentNone ChangeExtent = iota
	ChangeExtentTags
	ChangeExtentServiceResources
	ChangeExtentAll
)

// ServiceTags is the versioned payload pulled from the retriever: either a
// full replacement or an incremental delta over the enricher's prior
// payload.
type ServiceTags struct {
	ServiceName       string
	TagVersion        int64
	IsDelta           bool
	TagsChangeExtent  ChangeExtent
	ServiceResources  []*resource.ServiceResource
	ResourceToTagIDs  map[string][]string
	Tags              map[string]*Tag
	IsDeduped         bool
	IsTagsDeduped     bool
}

// Clone returns a deep-enough copy of the payload for safe retention by
// the enricher once a delta has been merged onto it; the retriever and
// refresher must not mutate a snapshot after handing it to setServiceTags.
func (s *ServiceTags) Clone() *ServiceTags {
	if s == nil {
		return nil
	}
	out := &ServiceTags{
		ServiceName:      s.ServiceName,
		TagVersion:       s.TagVersion,
		IsDelta:          s.IsDelta,
		TagsChangeExtent: s.TagsChangeExtent,
		IsDeduped:        s.IsDeduped,
		IsTagsDeduped:    s.IsTagsDeduped,
	}
	out.ServiceResources = append(out.ServiceResources, s.ServiceResources...)
	out.ResourceToTagIDs = make(map[string][]string, len(s.ResourceToTagIDs))
	for k, v := range s.ResourceToTagIDs {
		out.ResourceToTagIDs[k] = append([]string(nil), v...)
	}
	out.Tags = make(map[string]*Tag, len(s.Tags))
	for k, v := range s.Tags {
		out.Tags[k] = v
	}
	return out
}

// DedupeTags collapses tags carrying identical type+attributes into one
// shared record, rewriting ResourceToTagIDs to point at the survivor. Used
// on full replacement when IsTagsDeduped is not already set by the
// retriever.
func (s *ServiceTags) DedupeTags() {
	type key struct {
		typ   string
		attrs string
	}
	canonical := make(map[key]string)
	remap := make(map[string]string, len(s.Tags))
	deduped := make(map[string]*Tag, len(s.Tags))

	for id, t := range s.Tags {
		k := key{typ: t.Type, attrs: attrString(t.Attributes)}
		if existing, ok := canonical[k]; ok {
			remap[id] = existing
			continue
		}
		canonical[k] = id
		remap[id] = id
		deduped[id] = t
	}
	s.Tags = deduped

	for rid, tagIDs := range s.ResourceToTagIDs {
		seen := make(map[string]struct{}, len(tagIDs))
		var out []string
		for _, tid := range tagIDs {
			rewritten := remap[tid]
			if rewritten == "" {
				rewritten = tid
			}
			if _, ok := seen[rewritten]; ok {
				continue
			}
			seen[rewritten] = struct{}{}
			out = append(out, rewritten)
		}
		s.ResourceToTagIDs[rid] = out
	}
	s.IsTagsDeduped = true
}

func attrString(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(attrs[k])
		sb.WriteByte(';')
	}
	return sb.String()
}
