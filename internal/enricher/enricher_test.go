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

package enricher

import (
	"testing"
	"time"

	"github.com/coldestlin/ranger-tagenricher/internal/config"
	"github.com/coldestlin/ranger-tagenricher/internal/events"
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

func testCfg() *config.PluginConfig {
	return config.NewPluginConfig(map[string]interface{}{}, "ranger.plugin.tagenricher")
}

func baseSnapshot() *tagmodel.ServiceTags {
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

func TestEnrich_NoSnapshotYetReturnsError(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	_, err := e.Enrich(resource.NewAccessResource(map[string]string{"database": "db1"}), matcher.AccessTypeAny, nil, time.Now())
	if err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestEnrich_SelfMatch(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}

	tags, err := e.Enrich(resource.NewAccessResource(map[string]string{"database": "db1"}), matcher.AccessTypeAny, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Tag.ID != "t1" {
		t.Fatalf("expected 1 matching tag t1, got %+v", tags)
	}
}

func TestEnrich_EmptyResourceAnyAccessReturnsAllTags(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}

	tags, err := e.Enrich(&resource.AccessResource{}, matcher.AccessTypeAny, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag for empty-resource/any-access, got %d", len(tags))
	}
}

func TestSetServiceTags_ClearsEvalCache(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}

	// warm the cache
	_, err := e.Enrich(resource.NewAccessResource(map[string]string{"database": "db1"}), matcher.AccessTypeAny, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if e.evalCache.Len() == 0 {
		t.Fatal("expected evaluator cache to have an entry after Enrich")
	}

	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}
	if e.evalCache.Len() != 0 {
		t.Fatal("expected evaluator cache cleared after SetServiceTags")
	}
}

func TestSetServiceTags_NotifiesObserver(t *testing.T) {
	obs := events.NewObserver()
	var gotVersion int64
	obs.Subscribe(func(evt events.SnapshotInstalled) {
		gotVersion = evt.TagVersion
	})

	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, obs)
	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}
	if gotVersion != 1 {
		t.Fatalf("expected observer notified with version 1, got %d", gotVersion)
	}
}

func TestPreCleanup_DiscardsSnapshot(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	if err := e.SetServiceTags(baseSnapshot()); err != nil {
		t.Fatal(err)
	}
	e.PreCleanup()

	_, err := e.Enrich(resource.NewAccessResource(map[string]string{"database": "db1"}), matcher.AccessTypeAny, nil, time.Now())
	if err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot after PreCleanup, got %v", err)
	}
}

func TestEnrich_ExpiredTagIsExcluded(t *testing.T) {
	e := New(testDef(), "hive", "app1", testCfg(), config.EnricherOptions{}, events.NewObserver())
	past := time.Now().Add(-time.Hour * 2)
	expiry := time.Now().Add(-time.Hour)
	snap := baseSnapshot()
	snap.Tags["t1"] = &tagmodel.Tag{ID: "t1", ValidFrom: &past, ValidTo: &expiry}
	if err := e.SetServiceTags(snap); err != nil {
		t.Fatal(err)
	}

	tags, err := e.Enrich(resource.NewAccessResource(map[string]string{"database": "db1"}), matcher.AccessTypeAny, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected expired tag excluded, got %d tags", len(tags))
	}
}
