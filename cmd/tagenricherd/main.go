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

// File: cmd/tagenricherd/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldestlin/ranger-tagenricher/internal/config"
	"github.com/coldestlin/ranger-tagenricher/internal/enricher"
	"github.com/coldestlin/ranger-tagenricher/internal/events"
	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/refresher"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/retriever/grpcretriever"
	"github.com/coldestlin/ranger-tagenricher/internal/retriever/pushlistener"
)

func main() {
	var (
		configPath  = flag.String("config", "/etc/tagenricher/install.yaml", "path to the plugin's install-properties YAML file")
		prefix      = flag.String("prefix", "ranger.plugin.tagenricher", "plugin config key prefix")
		serviceName = flag.String("service", "", "service name this enricher instance serves")
		appID       = flag.String("app-id", "tagenricher", "application id used in the on-disk cache file name")
		adminAddr   = flag.String("admin-addr", "", "gRPC address of the tag admin service (required)")
		pushAddr    = flag.String("push-addr", "", "websocket URL to receive tag-change push notices (optional)")
		debugAddr   = flag.String("debug-addr", "127.0.0.1:7070", "address for the local debug HTTP surface")
		logLevel    = flag.String("log-level", "info", "zerolog level")
		logPretty   = flag.Bool("log-pretty", true, "use the human-readable console writer instead of JSON")
	)
	flag.Parse()

	log.Init(*logLevel, *logPretty)
	mainLog := log.With("main")

	if *serviceName == "" || *adminAddr == "" {
		mainLog.Error().Msg("main: -service and -admin-addr are required")
		os.Exit(2)
	}

	if err := config.EnsureDefaultPluginConfig(*configPath); err != nil {
		mainLog.Error().Err(err).Str("path", *configPath).Msg("main: could not write default plugin config")
	}
	cfg, err := config.LoadPluginConfig(*configPath, *prefix)
	if err != nil {
		mainLog.Error().Err(err).Msg("main: failed to load plugin config, exiting")
		os.Exit(1)
	}

	def := demoServiceDef(*serviceName)
	observer := events.NewObserver()
	opts := config.EnricherOptions{
		TagRetrieverClassName:       "grpc",
		TagRefresherPollingInterval: config.DefaultPollingInterval,
	}

	engine := enricher.New(def, *serviceName, *appID, cfg, opts, observer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	retr := grpcretriever.New(grpcretriever.Config{Addr: *adminAddr, DialTimeout: 10 * time.Second})
	if err := retr.Init(opts); err != nil {
		mainLog.Error().Err(err).Str("addr", *adminAddr).Msg("main: failed to dial tag admin, continuing with an unpopulated enricher")
	} else {
		defer retr.Close()
	}
	retr.SetServiceName(*serviceName)
	retr.SetServiceDef(def)
	retr.SetAppID(*appID)

	rfOpts := refresher.Options{
		ServiceName:                   *serviceName,
		AppID:                         *appID,
		CacheDir:                      cfg.PolicyCacheDir(),
		PollInterval:                  opts.TagRefresherPollingInterval,
		DisableCacheIfServiceNotFound: cfg.DisableCacheIfServiceNotFound(),
	}
	rf := refresher.New(rfOpts, retr, engine)
	if err := rf.LoadCachedSnapshot(); err != nil {
		mainLog.Error().Err(err).Msg("main: no usable on-disk cache, starting empty")
	}

	manager := refresher.NewManager(ctx)
	manager.Register(*serviceName, rf)
	defer manager.StopAll()

	if *pushAddr != "" {
		listener := pushlistener.New(*pushAddr, manager)
		go listener.Run(ctx)
	}

	go func() {
		if err := config.Watch(ctx, *configPath, *prefix, func(*config.PluginConfig) {
			mainLog.Info().Msg("main: plugin config changed on disk; restart the service to pick up lock-mode changes")
		}); err != nil {
			mainLog.Error().Err(err).Msg("main: config watcher stopped")
		}
	}()

	srv := newDebugServer(*debugAddr, engine, manager, *serviceName)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			mainLog.Info().Err(err).Msg("main: debug server stopped")
		}
	}()

	mainLog.Info().Str("service", *serviceName).Str("debug-addr", *debugAddr).Msg("main: tagenricherd running")
	<-ctx.Done()
	mainLog.Info().Msg("main: shutting down")
	engine.PreCleanup()
}

// demoServiceDef is a minimal three-dimension hierarchy (database/table/
// column) of the kind a Ranger Hive-style service definition would supply;
// a production deployment loads this from the access-control plugin's own
// service-def loader instead (out of scope per this package's contract).
func demoServiceDef(name string) *resource.ServiceDef {
	access := []resource.Hierarchy{
		{Dimensions: []string{"database"}},
		{Dimensions: []string{"database", "table"}},
		{Dimensions: []string{"database", "table", "column"}},
	}
	return resource.NewServiceDef(
		name,
		[]string{"database", "table", "column"},
		map[resource.PolicyType][]resource.Hierarchy{resource.PolicyTypeAccess: access},
		false,
		"/",
	)
}
