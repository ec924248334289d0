/*
 * Copyright 2025 The FlowGate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package flowgate is an embeddable HTTP gateway/dispatch core for dataflow
// runtimes.
//
// Endpoints are registered at runtime as path patterns with literal and
// :name parameter segments. Each inbound request is matched against the
// registered patterns and delivered either synchronously to a handler
// callback (direct mode) or onto a bounded per-endpoint queue drained by an
// external polling consumer (queued mode). A full queue immediately yields
// an overload response instead of blocking the accepting goroutine, pushing
// the retry decision to the caller.
//
// The Gateway is an explicitly owned component: construct one with New and
// pass it by reference to the transport that accepts requests and to the
// processors that register endpoints. There is no global instance.
//
// Direct mode:
//
//	gw := flowgate.New()
//	gw.RegisterEndpoint("/api/user/:id", func(req *gateway.Request) (*gateway.Response, error) {
//		return gateway.OK([]byte(req.PathParams["id"])), nil
//	})
//	resp := gw.Dispatch(gateway.NewRequest("GET", "/api/user/42"))
//
// Queued mode:
//
//	gw.RegisterQueuedEndpoint("/api/ingest", 1000)
//	resp := gw.Dispatch(gateway.NewRequest("POST", "/api/ingest")) // 202 or 503
//	serialized, err := gw.Poll("/api/ingest", 30*time.Second)     // consumer side
package flowgate

import (
	"time"

	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/api/types/metrics"
	"github.com/flowgate/flowgate/dispatch"
	"github.com/flowgate/flowgate/polling"
	"github.com/flowgate/flowgate/registry"
)

// Gateway composes the registry, the dispatch coordinator and the polling
// retrieval service behind one handle. All methods are safe for concurrent
// use.
type Gateway struct {
	config     types.Config
	registry   *registry.Registry
	dispatcher *dispatch.Coordinator
	poller     *polling.Service
}

// Option configures a Gateway under construction.
type Option func(*options)

type options struct {
	config          types.Config
	defaultCapacity int
	maxRequestSize  int64
}

// WithConfig sets the shared component configuration.
func WithConfig(config types.Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithLogger sets the logger without replacing the rest of the config.
func WithLogger(logger types.Logger) Option {
	return func(o *options) {
		o.config.Logger = logger
	}
}

// WithDefaultQueueCapacity sets the queue capacity applied when a queued
// registration does not specify one.
func WithDefaultQueueCapacity(capacity int) Option {
	return func(o *options) {
		o.defaultCapacity = capacity
	}
}

// WithMaxRequestSize bounds the accepted request body size in bytes;
// oversized requests are refused with 413 and counted as failures. Zero
// disables the guard.
func WithMaxRequestSize(size int64) Option {
	return func(o *options) {
		o.maxRequestSize = size
	}
}

// New creates a Gateway.
func New(opts ...Option) *Gateway {
	o := &options{config: types.NewConfig()}
	for _, opt := range opts {
		opt(o)
	}
	reg := registry.New(o.config, o.defaultCapacity)
	return &Gateway{
		config:     o.config,
		registry:   reg,
		dispatcher: dispatch.New(o.config, reg, o.maxRequestSize),
		poller:     polling.New(o.config, reg),
	}
}

// RegisterEndpoint registers a direct-mode endpoint whose handler runs
// synchronously on the accepting goroutine.
func (g *Gateway) RegisterEndpoint(pattern string, handler gateway.Handler) error {
	_, err := g.registry.Register(pattern, handler)
	return err
}

// RegisterQueuedEndpoint registers a queued-polling endpoint with the given
// queue capacity (the gateway default applies when capacity is
// non-positive).
func (g *Gateway) RegisterQueuedEndpoint(pattern string, capacity int) error {
	_, err := g.registry.RegisterQueued(pattern, capacity)
	return err
}

// UnregisterEndpoint removes a registration. Remaining queued requests are
// discarded and counted, and consumers blocked in Poll are woken.
func (g *Gateway) UnregisterEndpoint(pattern string) error {
	return g.registry.Unregister(pattern)
}

// Dispatch routes one inbound request and returns the response to send. It
// never returns an error; request-time failures become response values.
func (g *Gateway) Dispatch(request *gateway.Request) *gateway.Response {
	return g.dispatcher.Dispatch(request)
}

// Poll retrieves the next queued request for the endpoint registered under
// the exact pattern string, waiting up to timeout. A nil result with a nil
// error means the timeout elapsed with nothing queued.
func (g *Gateway) Poll(pattern string, timeout time.Duration) (*gateway.SerializedRequest, error) {
	return g.poller.Poll(pattern, timeout)
}

// RegisteredEndpoints returns the registered pattern strings in registration
// order.
func (g *Gateway) RegisteredEndpoints() []string {
	return g.registry.Patterns()
}

// EndpointMetrics returns a metrics snapshot for one endpoint. The live
// metrics object is never exposed.
func (g *Gateway) EndpointMetrics(pattern string) (metrics.Snapshot, bool) {
	registration, exists := g.registry.Get(pattern)
	if !exists {
		return metrics.Snapshot{}, false
	}
	return registration.Snapshot(), true
}

// MetricsSnapshots returns a snapshot per registered endpoint.
func (g *Gateway) MetricsSnapshots() map[string]metrics.Snapshot {
	return g.registry.Snapshots()
}

// Queue returns the consumer-facing queue view of a queued endpoint, for
// in-process consumers that want to drain it directly instead of going
// through Poll.
func (g *Gateway) Queue(pattern string) (gateway.Queue, bool) {
	registration, exists := g.registry.Get(pattern)
	if !exists || registration.Queue() == nil {
		return nil, false
	}
	return registration.Queue(), true
}

// Registry exposes the underlying registry to supporting components
// (documentation generation, metrics export).
func (g *Gateway) Registry() *registry.Registry {
	return g.registry
}

// DroppedOnUnregister returns the total number of queued requests discarded
// by unregistration.
func (g *Gateway) DroppedOnUnregister() int64 {
	return g.registry.DroppedOnUnregister()
}

// Config returns the gateway's shared configuration.
func (g *Gateway) Config() types.Config {
	return g.config
}
