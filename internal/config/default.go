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

package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultPollingInterval is how often the refresher polls the retriever
// for new tags when tagRefresherPollingInterval is not set in the
// enricher options.
const DefaultPollingInterval = 60 * time.Second

// defaultPluginYAML is the minimal install-properties file written when no
// plugin configuration exists yet, enabling zero-configuration startup for
// development.
const defaultPluginYAML = `ranger.plugin.tagenricher.dedup.strings: true
ranger.plugin.tagenricher.disable.cache.if.servicenotfound: false
ranger.plugin.tagenricher.policy.cache.dir: /tmp/tagenricher/policycache
ranger.plugin.tagenricher.tag.delta.enabled: false
ranger.plugin.tagenricher.in.place.tag.update.enabled: false
`

// EnsureDefaultPluginConfig creates a minimal plugin config file at path if
// one does not already exist.
func EnsureDefaultPluginConfig(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(defaultPluginYAML), 0644)
	}
	return nil
}
