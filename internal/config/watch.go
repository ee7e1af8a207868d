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
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/coldestlin/ranger-tagenricher/internal/log"
)

var watchLog = log.With("config")

// Watch reloads a plugin config YAML file's values into a fresh
// PluginConfig whenever the file changes on disk, the way an install
// property file is edited in place without restarting the service plugin.
// onReload is called with the new config on every successful reload; load
// errors are logged and the previous config keeps serving until the file
// becomes parseable again. Watch blocks until ctx is done.
func Watch(ctx context.Context, path, prefix string, onReload func(*PluginConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadPluginConfig(path, prefix)
			if err != nil {
				watchLog.Error().Err(err).Str("path", path).Msg("config: reload failed, keeping previous config")
				continue
			}
			watchLog.Info().Str("path", path).Msg("config: reloaded")
			onReload(cfg)
		case err := <-watcher.Errors:
			watchLog.Error().Err(err).Msg("config: watcher error")
		}
	}
}
