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
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered as a grpc content-subtype so the tag-admin
// wire messages can ride genuine grpc framing, flow control and
// compression without a protoc-generated message set.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return jsonAPI.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return jsonAPI.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return jsonCodecName }
