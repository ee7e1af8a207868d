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

// Package config loads the enricher plugin's configuration: a YAML file of
// prefixed keys (the way a Ranger service-plugin's install properties are
// laid out) merged with process environment overrides, read through koanf.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// PluginConfig wraps a koanf instance holding one plugin instance's
// <servicePrefix>.<setting> keys.
type PluginConfig struct {
	k      *koanf.Koanf
	prefix string
}

// LoadPluginConfig reads a YAML file into a flat key/value map and loads it
// into a koanf instance namespaced under prefix (e.g. "ranger.plugin.hive").
func LoadPluginConfig(path, prefix string) (*PluginConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var flat map[string]interface{}
	if err := yaml.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return NewPluginConfig(flat, prefix), nil
}

// NewPluginConfig builds a PluginConfig directly from an already-loaded
// settings map, the form in which a Ranger plugin typically hands its
// install properties to the enricher at Init time.
func NewPluginConfig(values map[string]interface{}, prefix string) *PluginConfig {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(values, "."), nil)
	return &PluginConfig{k: k, prefix: prefix}
}

func (c *PluginConfig) key(suffix string) string {
	return c.prefix + "." + suffix
}

// String returns the string value at <prefix>.suffix, or def if unset.
func (c *PluginConfig) String(suffix, def string) string {
	k := c.key(suffix)
	if !c.k.Exists(k) {
		return envOverride(k, def)
	}
	return envOverride(k, c.k.String(k))
}

// Bool returns the bool value at <prefix>.suffix, or def if unset.
func (c *PluginConfig) Bool(suffix string, def bool) bool {
	k := c.key(suffix)
	if v := envOverride(k, ""); v != "" {
		return v == "true"
	}
	if !c.k.Exists(k) {
		return def
	}
	return c.k.Bool(k)
}

// Int returns the int value at <prefix>.suffix, or def if unset.
func (c *PluginConfig) Int(suffix string, def int) int {
	k := c.key(suffix)
	if v := envOverride(k, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if !c.k.Exists(k) {
		return def
	}
	return c.k.Int(k)
}

// StringSlice returns the comma-separated list at <prefix>.suffix.
func (c *PluginConfig) StringSlice(suffix string) []string {
	v := c.String(suffix, "")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envOverride lets RANGER_PLUGIN_HIVE_DEDUP_STRINGS-style env vars override
// a dotted config key, mirroring the env-override pattern the daemon's
// server-side config loader uses.
func envOverride(key, def string) string {
	envKey := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}

// Well-known plugin config suffixes, named the way Ranger's tag enricher
// install properties are named.
const (
	KeyDedupStrings                   = "dedup.strings"
	KeyDisableCacheIfServiceNotFound  = "disable.cache.if.servicenotfound"
	KeyPolicyCacheDir                 = "policy.cache.dir"
	KeyTagDeltaEnabled                = "tag.delta.enabled"
	KeyInPlaceTagUpdateEnabled        = "in.place.tag.update.enabled"
)

// DedupStrings reports whether tag-set string interning is enabled.
func (c *PluginConfig) DedupStrings() bool { return c.Bool(KeyDedupStrings, true) }

// DisableCacheIfServiceNotFound reports whether a ServiceNotFound response
// from the retriever should delete the on-disk cache file for this service.
func (c *PluginConfig) DisableCacheIfServiceNotFound() bool {
	return c.Bool(KeyDisableCacheIfServiceNotFound, false)
}

// PolicyCacheDir returns the directory enriched-tag cache files are
// persisted under.
func (c *PluginConfig) PolicyCacheDir() string {
	return c.String(KeyPolicyCacheDir, "/tmp/tagenricher/policycache")
}

// TagDeltaEnabled reports whether the retriever is permitted to hand back
// incremental deltas instead of always doing a full replacement.
func (c *PluginConfig) TagDeltaEnabled() bool { return c.Bool(KeyTagDeltaEnabled, false) }

// InPlaceTagUpdateEnabled reports whether delta application may mutate the
// current snapshot's tries in place instead of copy-on-write.
func (c *PluginConfig) InPlaceTagUpdateEnabled() bool {
	return c.Bool(KeyInPlaceTagUpdateEnabled, false)
}

// EnricherOptions carries the plugin-options map the access-control plugin
// supplies to the enricher at construction time, outside of the YAML
// install properties.
type EnricherOptions struct {
	TagRetrieverClassName      string
	TagRefresherPollingInterval time.Duration
	DisableTrieLookupPrefilter bool
}

// NewEnricherOptions parses an options map into an EnricherOptions,
// defaulting the polling interval to 60 seconds and the prefilter to
// enabled, the way the default.go constants describe.
func NewEnricherOptions(options map[string]string) EnricherOptions {
	opts := EnricherOptions{
		TagRetrieverClassName:       options["tagRetrieverClassName"],
		TagRefresherPollingInterval: DefaultPollingInterval,
		DisableTrieLookupPrefilter:  false,
	}
	if v, ok := options["tagRefresherPollingInterval"]; ok {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			opts.TagRefresherPollingInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := options["disableTrieLookupPrefilter"]; ok {
		opts.DisableTrieLookupPrefilter = v == "true"
	}
	return opts
}
