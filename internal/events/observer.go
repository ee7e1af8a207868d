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

// Package events notifies interested subscribers whenever the enricher
// installs a new tag snapshot for a service, so an auth-context consumer
// sitting in front of the enricher can invalidate anything it cached off
// the previous snapshot's tag version.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/coldestlin/ranger-tagenricher/internal/log"
)

var observerLog = log.With("events")

// SnapshotInstalled is published once a setServiceTags call has finished
// publishing its new enriched snapshot.
type SnapshotInstalled struct {
	ServiceName string
	TagVersion  int64
	IsDelta     bool
}

// Subscription identifies one registered observer; pass it to Unsubscribe
// to stop receiving notifications.
type Subscription string

// Observer fans SnapshotInstalled events out to subscribers. The enricher
// holds one Observer per plugin instance and calls Notify after every
// successful setServiceTags.
type Observer struct {
	mu          sync.RWMutex
	subscribers map[Subscription]func(SnapshotInstalled)
}

// NewObserver creates an empty Observer.
func NewObserver() *Observer {
	return &Observer{subscribers: make(map[Subscription]func(SnapshotInstalled))}
}

// Subscribe registers fn to be called on every future Notify and returns a
// handle for Unsubscribe.
func (o *Observer) Subscribe(fn func(SnapshotInstalled)) Subscription {
	sub := Subscription(uuid.NewString())
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers[sub] = fn
	return sub
}

// Unsubscribe removes a previously registered subscriber. Idempotent.
func (o *Observer) Unsubscribe(sub Subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subscribers, sub)
}

// Notify fans evt out to every current subscriber, synchronously; the order
// in which subscribers are called is not defined. Subscribers must not block
// for long: Notify runs under the enricher's write lock.
func (o *Observer) Notify(evt SnapshotInstalled) {
	o.mu.RLock()
	fns := make([]func(SnapshotInstalled), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	observerLog.Debug().
		Str("service", evt.ServiceName).
		Int64("version", evt.TagVersion).
		Bool("delta", evt.IsDelta).
		Msg("tag snapshot installed")

	for _, fn := range fns {
		fn(evt)
	}
}
