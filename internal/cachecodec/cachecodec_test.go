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

package cachecodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	tags := &tagmodel.ServiceTags{
		ServiceName: "hive",
		TagVersion:  3,
		Tags:        map[string]*tagmodel.Tag{"t1": {ID: "t1", Type: "PII"}},
	}
	if err := Save(dir, "app1", "hive", tags); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir, "app1", "hive")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a cache hit after Save")
	}
	if got.TagVersion != 3 || got.Tags["t1"].Type != "PII" {
		t.Fatalf("unexpected round-tripped contents: %+v", got)
	}
}

func TestLoad_MissingFileIsNilNil(t *testing.T) {
	dir := t.TempDir()
	got, err := Load(dir, "app1", "missing")
	if err != nil {
		t.Fatalf("expected no error for missing cache file, got %v", err)
	}
	if got != nil {
		t.Fatal("expected nil result for missing cache file")
	}
}

func TestLoad_ChecksumMismatchIsTolerantMiss(t *testing.T) {
	dir := t.TempDir()
	tags := &tagmodel.ServiceTags{ServiceName: "hive", TagVersion: 1}
	if err := Save(dir, "app1", "hive", tags); err != nil {
		t.Fatal(err)
	}

	sumPath := filepath.Join(dir, FileName("app1", "hive")+checksumSuffix)
	if err := os.WriteFile(sumPath, []byte("not-a-real-checksum-00000000000"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir, "app1", "hive")
	if err != nil {
		t.Fatalf("expected checksum mismatch to be a tolerant miss, got error %v", err)
	}
	if got != nil {
		t.Fatal("expected nil result on checksum mismatch")
	}
}

func TestLoad_CorruptGzipIsTolerantMiss(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName("app1", "hive"))
	if err := os.WriteFile(path, []byte("not gzip data"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir, "app1", "hive")
	if err != nil {
		t.Fatalf("expected corrupt gzip to be a tolerant miss, got error %v", err)
	}
	if got != nil {
		t.Fatal("expected nil result on corrupt gzip")
	}
}

func TestRemove_AlsoRemovesChecksumSidecar(t *testing.T) {
	dir := t.TempDir()
	tags := &tagmodel.ServiceTags{ServiceName: "hive"}
	if err := Save(dir, "app1", "hive", tags); err != nil {
		t.Fatal(err)
	}

	if err := Remove(dir, "app1", "hive"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName("app1", "hive"))); !os.IsNotExist(err) {
		t.Fatal("expected cache file removed")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName("app1", "hive")+checksumSuffix)); !os.IsNotExist(err) {
		t.Fatal("expected checksum sidecar removed")
	}
}

func TestRemove_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir, "app1", "missing"); err != nil {
		t.Fatalf("expected no error removing a nonexistent cache file, got %v", err)
	}
}

func TestRename_MovesFileAside(t *testing.T) {
	dir := t.TempDir()
	tags := &tagmodel.ServiceTags{ServiceName: "hive"}
	if err := Save(dir, "app1", "hive", tags); err != nil {
		t.Fatal(err)
	}

	if err := Rename(dir, "app1", "hive", ".stale"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName("app1", "hive"))); !os.IsNotExist(err) {
		t.Fatal("expected original file moved aside")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName("app1", "hive")+".stale")); err != nil {
		t.Fatal("expected renamed file to exist")
	}
}

func TestRename_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if err := Rename(dir, "app1", "missing", ".stale"); err != nil {
		t.Fatalf("expected no error renaming a nonexistent cache file, got %v", err)
	}
}
