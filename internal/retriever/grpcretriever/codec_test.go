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

package grpcretriever

import (
	"testing"

	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

func TestJSONCodec_MarshalUnmarshalRoundTrip(t *testing.T) {
	c := jsonCodec{}
	in := &tagmodel.ServiceTags{ServiceName: "hive", TagVersion: 9}

	raw, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out tagmodel.ServiceTags
	if err := c.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.ServiceName != "hive" || out.TagVersion != 9 {
		t.Fatalf("unexpected round-tripped value: %+v", out)
	}
}

func TestJSONCodec_Name(t *testing.T) {
	if jsonCodec{}.Name() != "json" {
		t.Fatalf("expected codec name 'json', got %q", jsonCodec{}.Name())
	}
}
