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

package refresher

import (
	"context"
	"sync"
)

// Manager runs one Refresher per service plugin instance and coordinates
// their shutdown, the way a single sync manager in the daemon owns several
// independent periodic workers.
type Manager struct {
	mu         sync.Mutex
	refreshers map[string]*Refresher
	ctx        context.Context
}

// NewManager creates a Manager bound to ctx; all refreshers it starts are
// cancelled when ctx is cancelled.
func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx, refreshers: make(map[string]*Refresher)}
}

// Register adds a Refresher for serviceName and starts it immediately.
// Registering the same service name again stops the previous instance
// first.
func (m *Manager) Register(serviceName string, r *Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.refreshers[serviceName]; ok {
		existing.Stop()
	}
	m.refreshers[serviceName] = r
	r.Start(m.ctx)
}

// Trigger forwards an out-of-band refresh request to one service's
// refresher, if registered.
func (m *Manager) Trigger(serviceName string, src TriggerSource) {
	m.mu.Lock()
	r, ok := m.refreshers[serviceName]
	m.mu.Unlock()
	if ok {
		r.Trigger(src)
	}
}

// StopAll stops every registered refresher and waits for them to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	refreshers := make([]*Refresher, 0, len(m.refreshers))
	for _, r := range m.refreshers {
		refreshers = append(refreshers, r)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range refreshers {
		wg.Add(1)
		go func(r *Refresher) {
			defer wg.Done()
			r.Stop()
		}(r)
	}
	wg.Wait()
}
