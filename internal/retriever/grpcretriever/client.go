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

// Package grpcretriever implements a Retriever that pulls tag snapshots
// from a policy admin's gRPC endpoint over a long-lived client connection.
package grpcretriever

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	_ "github.com/mostynb/go-grpc-compression/snappy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/coldestlin/ranger-tagenricher/internal/config"
	"github.com/coldestlin/ranger-tagenricher/internal/log"
	"github.com/coldestlin/ranger-tagenricher/internal/resource"
	"github.com/coldestlin/ranger-tagenricher/internal/retriever"
	"github.com/coldestlin/ranger-tagenricher/internal/tagmodel"
)

var clientLog = log.With("grpcretriever")

const getServiceTagsMethod = "/ranger.tagenricher.TagService/GetServiceTags"

type getTagsRequest struct {
	ServiceName          string `json:"serviceName"`
	LastKnownVersion     int64  `json:"lastKnownVersion"`
	LastActivationTimeMs int64  `json:"lastActivationTimeMs"`
}

type getTagsResponse struct {
	NotFound bool                  `json:"notFound"`
	Tags     *tagmodel.ServiceTags `json:"tags,omitempty"`
}

// Config configures the gRPC connection to the tag admin.
type Config struct {
	Addr               string
	TLSEnabled         bool
	InsecureSkipVerify bool
	DialTimeout        time.Duration
}

// Retriever is a retriever.Retriever backed by a long-lived gRPC
// connection to a tag admin endpoint.
type Retriever struct {
	cfg         Config
	serviceName string
	def         *resource.ServiceDef
	appID       string
	opts        config.EnricherOptions

	conn *grpc.ClientConn
}

// New creates a gRPC-backed retriever. The connection is established lazily
// on the first Init call.
func New(cfg Config) *Retriever {
	return &Retriever{cfg: cfg}
}

var _ retriever.Retriever = (*Retriever)(nil)

// Init dials the tag admin endpoint.
func (r *Retriever) Init(opts config.EnricherOptions) error {
	r.opts = opts

	var creds credentials.TransportCredentials
	if r.cfg.TLSEnabled {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: r.cfg.InsecureSkipVerify})
	} else {
		creds = insecure.NewCredentials()
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(jsonCodecName),
			grpc.UseCompressor("snappy"),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	conn, err := grpc.NewClient(r.cfg.Addr, dialOpts...)
	if err != nil {
		return fmt.Errorf("grpcretriever: dial %s: %w", r.cfg.Addr, err)
	}
	r.conn = conn
	clientLog.Info().Str("addr", r.cfg.Addr).Msg("connected to tag admin")
	return nil
}

// SetServiceName records which service this retriever instance serves.
func (r *Retriever) SetServiceName(name string) { r.serviceName = name }

// SetServiceDef records the service definition, unused by the wire call
// itself but required by the Retriever interface for retrievers that need
// it to validate responses.
func (r *Retriever) SetServiceDef(def *resource.ServiceDef) { r.def = def }

// SetAppID records the Ranger application id this retriever answers for.
func (r *Retriever) SetAppID(appID string) { r.appID = appID }

// Retrieve calls the tag admin's GetServiceTags RPC.
func (r *Retriever) Retrieve(ctx context.Context, lastKnownVersion, lastActivationTimeMs int64) (*tagmodel.ServiceTags, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("grpcretriever: not initialized")
	}

	req := &getTagsRequest{
		ServiceName:          r.serviceName,
		LastKnownVersion:     lastKnownVersion,
		LastActivationTimeMs: lastActivationTimeMs,
	}
	resp := &getTagsResponse{}

	if err := r.conn.Invoke(ctx, getServiceTagsMethod, req, resp); err != nil {
		return nil, fmt.Errorf("grpcretriever: GetServiceTags(%s): %w", r.serviceName, err)
	}
	if resp.NotFound {
		return nil, retriever.ErrServiceNotFound
	}
	return resp.Tags, nil
}

// Close releases the underlying gRPC connection.
func (r *Retriever) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
