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

// Package pushlistener supplements the refresher's polling timer with a
// websocket connection to the admin: a "tags changed" push lets the
// refresher react immediately instead of waiting out the poll interval.
package pushlistener

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/refresher"
)

var listenerLog = log.With("pushlistener")

// TagsChangedNotice is the message shape the admin pushes on its
// notification websocket whenever a service's tag version advances.
type TagsChangedNotice struct {
	ServiceName string `json:"serviceName"`
	TagVersion  int64  `json:"tagVersion"`
}

// TriggerTarget is the subset of refresher.Manager the listener needs.
type TriggerTarget interface {
	Trigger(serviceName string, src refresher.TriggerSource)
}

// Listener maintains a reconnecting websocket connection to the admin's
// push endpoint and forwards each notice as a refresher trigger.
type Listener struct {
	url     string
	target  TriggerTarget
	dialer  *websocket.Dialer
	retry   time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// New builds a Listener that dials url and forwards notices to target.
func New(url string, target TriggerTarget) *Listener {
	return &Listener{
		url:    url,
		target: target,
		dialer: websocket.DefaultDialer,
		retry:  5 * time.Second,
	}
}

// Run connects and reads notices until ctx is cancelled, reconnecting with
// a fixed backoff on any read or dial error.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.closeConn()
			return
		default:
		}

		if err := l.runOnce(ctx); err != nil {
			listenerLog.Error().Err(err).Msg("push listener disconnected, retrying")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) runOnce(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer l.closeConn()

	listenerLog.Info().Str("url", l.url).Msg("push listener connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var notice TagsChangedNotice
		if err := json.Unmarshal(raw, &notice); err != nil {
			listenerLog.Error().Err(err).Msg("malformed push notice, ignoring")
			continue
		}
		l.target.Trigger(notice.ServiceName, refresher.TriggerPush)
	}
}

func (l *Listener) closeConn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}
