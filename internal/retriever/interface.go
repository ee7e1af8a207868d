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

// Package retriever defines the interface the refresher polls to pull new
// tag snapshots from a policy admin, and the sentinel error a retriever
// returns when the admin no longer knows about a service.
package retriever

import (
	"context"
	"errors"

	"github.com/coldestlin/ranger-tagenricher/internal/config"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

// ErrServiceNotFound is returned by Retrieve when the admin has no record
// of the service the enricher is asking about — a renamed or deleted
// service, most commonly.
var ErrServiceNotFound = errors.New("retriever: service not found")

// Retriever pulls tag snapshots for one service from wherever the admin
// publishes them (gRPC endpoint, push listener, local file, ...).
//
// Retrieve returns (nil, nil) when there is nothing newer than
// lastKnownVersion, (tags, nil) for a full or delta payload, and
// (nil, ErrServiceNotFound) when the service is unknown to the admin.
type Retriever interface {
	Init(options config.EnricherOptions) error
	SetServiceName(name string)
	SetServiceDef(def *resource.ServiceDef)
	SetAppID(appID string)
	Retrieve(ctx context.Context, lastKnownVersion int64, lastActivationTimeMs int64) (*tagmodel.ServiceTags, error)
}
