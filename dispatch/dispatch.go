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

// Package dispatch routes inbound requests to their matched endpoint.
//
// Dispatch never returns an error and never lets a panic escape: request-time
// failures are always converted into a response value, which keeps the hot
// path free of exception-style control flow and makes the coordinator
// uncrashable by a single misbehaving handler. Dispatch is safe under
// concurrent invocation for the same and for different endpoints.
package dispatch

import (
	"fmt"
	"time"

	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/registry"
)

// Coordinator resolves each request against the registry and executes the
// endpoint's dispatch mode.
type Coordinator struct {
	registry *registry.Registry
	logger   types.Logger
	// maxRequestSize rejects oversized bodies with 413 before delivery;
	// zero disables the guard.
	maxRequestSize int64
}

// New creates a coordinator over the given registry. maxRequestSize bounds
// the accepted body size in bytes; pass 0 for no limit.
func New(config types.Config, reg *registry.Registry, maxRequestSize int64) *Coordinator {
	return &Coordinator{
		registry:       reg,
		logger:         types.NewLogger(config.Logger),
		maxRequestSize: maxRequestSize,
	}
}

// Dispatch routes one request and returns the response to send.
//
// Direct mode invokes the handler synchronously on the calling goroutine and
// records success with the observed latency, or failure when the handler
// returns an error or panics. Queued mode offers the request to the
// endpoint's queue without blocking: acceptance records a success (the
// request was admitted for later processing, the coordinator has no
// visibility into the eventual consumer) and a full queue records a
// queue-full rejection and answers with the overload signal.
func (c *Coordinator) Dispatch(request *gateway.Request) *gateway.Response {
	matched, params, ok := c.registry.FindMatch(request.Path)
	if !ok {
		// No endpoint to attribute the request to, so no metrics update.
		return gateway.NotFound("no endpoint registered for path: " + request.Path)
	}

	bound := request.WithPathParams(params)
	m := matched.Metrics()
	m.RecordRequest()

	if c.maxRequestSize > 0 && int64(len(bound.Body)) > c.maxRequestSize {
		m.RecordFailure()
		return gateway.PayloadTooLarge()
	}

	switch matched.Mode() {
	case registry.DirectHandler:
		start := time.Now()
		response, err := c.invoke(matched.Handler(), bound)
		if err != nil {
			m.RecordFailure()
			c.logger.Printf("handler failed: endpoint=%s id=%s err=%v", matched.Pattern(), bound.ID, err)
			return gateway.InternalError("internal server error")
		}
		m.RecordSuccess(time.Since(start).Milliseconds())
		return response
	default:
		start := time.Now()
		q := matched.Queue()
		if !q.Offer(bound) {
			m.RecordQueueFull()
			return gateway.Overloaded()
		}
		m.UpdateQueueSize(q.Size())
		m.RecordSuccess(time.Since(start).Milliseconds())
		return gateway.Accepted()
	}
}

// invoke runs the handler, converting a panic into an error so it is fully
// absorbed here and never propagates to the transport.
func (c *Coordinator) invoke(handler gateway.Handler, request *gateway.Request) (response *gateway.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	response, err = handler(request)
	if err == nil && response == nil {
		err = fmt.Errorf("handler returned no response")
	}
	return response, err
}
