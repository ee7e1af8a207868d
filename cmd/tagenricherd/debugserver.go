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

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/coldestlin/ranger-tagenricher/internal/enricher"
	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/matcher"
	"github.com/coldestlin/ranger-tagenricher/internal/refresher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
)

var debugLog = log.With("debugserver")

// newDebugServer builds the process's local operator surface: a health
// check, a manual refresh trigger per service, and an ad-hoc enrich probe
// useful for confirming a snapshot installed correctly without waiting on
// the real access-control plugin to issue a request.
func newDebugServer(addr string, engine *enricher.Engine, manager *refresher.Manager, serviceName string) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/services/{service}/trigger", handleTrigger(manager)).Methods(http.MethodPost)
	r.HandleFunc("/services/{service}/enrich", handleEnrichProbe(engine)).Methods(http.MethodPost)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(r)

	return &http.Server{
		Addr:         addr,
		Handler:      withAccessLog(corsHandler),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// withAccessLog wraps the handler chain with httpsnoop so every debug
// request is logged with its status code and duration.
func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, req)
		debugLog.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", m.Code).
			Dur("duration", m.Duration).
			Msg("debugserver: request")
	})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleTrigger enqueues a manual refresh trigger for the named service,
// the debug-surface equivalent of syncTagsWithAdmin.
func handleTrigger(manager *refresher.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		service := mux.Vars(req)["service"]
		manager.Trigger(service, refresher.TriggerManual)
		w.WriteHeader(http.StatusAccepted)
	}
}

type enrichProbeRequest struct {
	Resource   map[string]string `json:"resource"`
	AccessType string            `json:"accessType"`
}

// handleEnrichProbe runs a one-off enrich() call against the engine's
// current snapshot so an operator can confirm a just-installed snapshot
// answers as expected without routing real traffic through it.
func handleEnrichProbe(engine *enricher.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body enrichProbeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		access := resource.NewAccessResource(body.Resource)
		accessType := matcher.AccessType(body.AccessType)
		if accessType == "" {
			accessType = matcher.AccessTypeAny
		}

		tags, err := engine.Enrich(access, accessType, nil, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tags)
	}
}
