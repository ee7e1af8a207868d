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

// Package refresher runs the background worker that polls a Retriever for
// new tag snapshots, persists them to the on-disk cache, and installs them
// into the enricher. It is the one piece of this daemon that talks to the
// outside world on a timer instead of on a caller's goroutine.
package refresher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coldestlin/ranger-tagenricher/internal/cachecodec"
	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/retriever"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

var refresherLog = log.With("refresher")

// TriggerSource identifies what asked for an out-of-band refresh.
type TriggerSource string

const (
	TriggerPoll   TriggerSource = "poll"
	TriggerPush   TriggerSource = "push"
	TriggerManual TriggerSource = "manual"
)

// SnapshotSetter is the subset of the enricher the refresher depends on:
// installing a newly retrieved (full or delta) payload.
type SnapshotSetter interface {
	SetServiceTags(tags *tagmodel.ServiceTags) error
}

// Options configures one Refresher instance.
type Options struct {
	ServiceName                  string
	AppID                        string
	CacheDir                     string
	PollInterval                 time.Duration
	DisableCacheIfServiceNotFound bool
	TriggerQueueSize             int
}

// Refresher owns the trigger queue and polling ticker for one service.
type Refresher struct {
	opts      Options
	retriever retriever.Retriever
	setter    SnapshotSetter
	state     *state

	triggers chan TriggerSource
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// New builds a Refresher. Call LoadCachedSnapshot before Start if the
// caller wants the on-disk cache installed before the first poll completes.
func New(opts Options, r retriever.Retriever, setter SnapshotSetter) *Refresher {
	if opts.TriggerQueueSize <= 0 {
		opts.TriggerQueueSize = 8
	}
	return &Refresher{
		opts:      opts,
		retriever: r,
		setter:    setter,
		state:     newState(opts.CacheDir),
		triggers:  make(chan TriggerSource, opts.TriggerQueueSize),
	}
}

// LoadCachedSnapshot installs whatever tag snapshot was last persisted to
// disk, if any, so the enricher has something to answer with before the
// first retrieve completes.
func (r *Refresher) LoadCachedSnapshot() error {
	tags, err := cachecodec.Load(r.opts.CacheDir, r.opts.AppID, r.opts.ServiceName)
	if err != nil {
		return err
	}
	if tags == nil {
		return nil
	}
	if err := r.setter.SetServiceTags(tags); err != nil {
		return err
	}
	r.state.recordDelivered(tags.TagVersion, 0)
	refresherLog.Info().Str("service", r.opts.ServiceName).Int64("version", tags.TagVersion).Msg("installed cached tag snapshot")
	return nil
}

// Trigger enqueues an out-of-band refresh from src. Non-blocking: if the
// queue is full the trigger is dropped, since a pending poll will pick up
// the same work anyway.
func (r *Refresher) Trigger(src TriggerSource) {
	select {
	case r.triggers <- src:
	default:
		refresherLog.Debug().Str("service", r.opts.ServiceName).Str("source", string(src)).Msg("trigger queue full, dropping")
	}
}

// Start launches the trigger-processing loop and the periodic poll timer.
// It returns immediately; call Stop to shut both down.
func (r *Refresher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(2)
	go r.runTriggerLoop(ctx)
	go r.runPeriodicTimer(ctx)
}

// Stop cancels both loops and waits for them to exit.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Refresher) runTriggerLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case src := <-r.triggers:
			r.refreshOnce(ctx, src)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) runPeriodicTimer(ctx context.Context) {
	defer r.wg.Done()
	interval := r.opts.PollInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Trigger(TriggerPoll)
		case <-ctx.Done():
			return
		}
	}
}

// refreshOnce runs one retrieve-and-install cycle. It never panics on a
// retrieve or install failure; it logs and waits for the next trigger.
func (r *Refresher) refreshOnce(ctx context.Context, src TriggerSource) {
	version, activationMs := r.state.snapshot()

	tags, err := r.retriever.Retrieve(ctx, version, activationMs)
	if err != nil {
		if errors.Is(err, retriever.ErrServiceNotFound) {
			r.handleServiceNotFound()
			return
		}
		refresherLog.Error().Err(err).Msg("retrieve failed")
		return
	}
	if tags == nil {
		refresherLog.Debug().Str("service", r.opts.ServiceName).Str("trigger", string(src)).Msg("no new tags")
		return
	}

	if err := r.setter.SetServiceTags(tags); err != nil {
		refresherLog.Error().Err(err).Msg("setServiceTags failed, forcing full redownload on next cycle")
		r.state.reset()
		return
	}
	r.state.recordDelivered(tags.TagVersion, nowMs())

	if err := cachecodec.Save(r.opts.CacheDir, r.opts.AppID, r.opts.ServiceName, tags); err != nil {
		refresherLog.Error().Err(err).Msg("failed to persist tag cache")
	}
}

func (r *Refresher) handleServiceNotFound() {
	refresherLog.Info().Str("service", r.opts.ServiceName).Msg("service not found, resetting state")
	r.state.reset()
	if r.opts.DisableCacheIfServiceNotFound {
		if err := cachecodec.Remove(r.opts.CacheDir, r.opts.AppID, r.opts.ServiceName); err != nil {
			refresherLog.Error().Err(err).Msg("failed to remove stale tag cache")
		}
		return
	}
	if err := cachecodec.Rename(r.opts.CacheDir, r.opts.AppID, r.opts.ServiceName, ".stale"); err != nil {
		refresherLog.Error().Err(err).Msg("failed to rename stale tag cache")
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
