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

// Package cachecodec persists a service's tag snapshot to disk between
// refresher polls so the enricher has something to load at process start
// before the first successful retrieve. Files are gzip-compressed JSON,
// named "<appId>_<serviceName>_tag.json.gz".
package cachecodec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"

	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// checksumSuffix names the sidecar file holding the BLAKE2b-256 digest of
// the gzip payload, so Load can detect a cache file left half-written by a
// process that crashed mid-Save even when the gzip trailer still happens to
// decompress cleanly.
const checksumSuffix = ".b2"

// FileName returns the cache file name for a (appID, serviceName) pair,
// with path separators in either component flattened to underscores.
func FileName(appID, serviceName string) string {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "/", "_")
		return strings.ReplaceAll(s, string(filepath.Separator), "_")
	}
	return fmt.Sprintf("%s_%s_tag.json.gz", clean(appID), clean(serviceName))
}

// Save writes tags to dir/FileName(appID, serviceName), replacing any
// existing file atomically via a temp-file rename.
func Save(dir, appID, serviceName string, tags *tagmodel.ServiceTags) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cachecodec: mkdir %s: %w", dir, err)
	}
	raw, err := jsonAPI.Marshal(tags)
	if err != nil {
		return fmt.Errorf("cachecodec: marshal: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return fmt.Errorf("cachecodec: compress: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("cachecodec: compress close: %w", err)
	}

	path := filepath.Join(dir, FileName(appID, serviceName))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("cachecodec: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cachecodec: rename %s: %w", tmp, err)
	}

	sum := blake2b.Sum256(buf.Bytes())
	if err := os.WriteFile(path+checksumSuffix, sum[:], 0644); err != nil {
		return fmt.Errorf("cachecodec: write checksum: %w", err)
	}
	return nil
}

// Load reads a previously Saved snapshot. It returns (nil, nil) if the
// file does not exist — a tolerant cache miss, not an error — and is
// deliberately tolerant of a truncated file left by a prior crash mid-write:
// any decode error is also reported as a cache miss rather than a failure,
// since retrieving fresh tags from the admin is always a safe fallback.
func Load(dir, appID, serviceName string) (*tagmodel.ServiceTags, error) {
	path := filepath.Join(dir, FileName(appID, serviceName))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cachecodec: open %s: %w", path, err)
	}
	defer f.Close()

	gzBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, nil
	}
	if want, err := os.ReadFile(path + checksumSuffix); err == nil {
		got := blake2b.Sum256(gzBytes)
		if !bytes.Equal(got[:], want) {
			return nil, nil
		}
	}

	gr, err := gzip.NewReader(bytes.NewReader(gzBytes))
	if err != nil {
		return nil, nil
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil
	}

	var tags tagmodel.ServiceTags
	if err := jsonAPI.Unmarshal(raw, &tags); err != nil {
		return nil, nil
	}
	return &tags, nil
}

// Remove deletes a service's cache file. Called when the retriever reports
// ServiceNotFound and the plugin config asks the cache to be invalidated.
func Remove(dir, appID, serviceName string) error {
	path := filepath.Join(dir, FileName(appID, serviceName))
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cachecodec: remove %s: %w", path, err)
	}
	_ = os.Remove(path + checksumSuffix)
	return nil
}

// Rename moves a service's cache file aside (e.g. to mark it stale after
// a ServiceNotFound response that does not ask for outright deletion).
func Rename(dir, appID, oldServiceName, newSuffix string) error {
	oldPath := filepath.Join(dir, FileName(appID, oldServiceName))
	newPath := oldPath + newSuffix
	err := os.Rename(oldPath, newPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
