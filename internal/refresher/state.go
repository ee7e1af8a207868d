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

import "sync"

// state tracks one service's refresh bookkeeping across polling cycles.
// lastKnownVersion starts at -1 so the very first poll always asks the
// retriever for a full payload.
type state struct {
	mu                      sync.RWMutex
	lastKnownVersion        int64
	lastActivationTimeMs    int64
	hasProvidedTagsToReceiver bool
	cacheFile               string
}

func newState(cacheFile string) *state {
	return &state{lastKnownVersion: -1, cacheFile: cacheFile}
}

func (s *state) snapshot() (version, activationMs int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastKnownVersion, s.lastActivationTimeMs
}

func (s *state) recordDelivered(version, activationMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownVersion = version
	s.lastActivationTimeMs = activationMs
	s.hasProvidedTagsToReceiver = true
}

func (s *state) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownVersion = -1
	s.lastActivationTimeMs = 0
	s.hasProvidedTagsToReceiver = false
}

func (s *state) delivered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasProvidedTagsToReceiver
}
