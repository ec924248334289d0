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

// Package registry owns the authoritative mapping from endpoint pattern to
// registration.
//
// The registry is an explicitly owned component: it is constructed once and
// passed by reference to whatever accepts requests and whatever registers
// endpoints. There is no package-level default instance.
//
// Matching is deterministic. Registrations are kept in an insertion-ordered
// list beside the lookup map, and when several registered patterns match the
// same concrete path the one with the fewest parameter segments wins (a
// literal route beats a parameterized one); patterns of equal specificity
// are resolved by registration order.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/api/types/metrics"
	"github.com/flowgate/flowgate/pattern"
	"github.com/flowgate/flowgate/queue"
)

// Mode is the dispatch mode of a registration.
type Mode int

const (
	// DirectHandler delivers each request synchronously to a handler
	// callback on the accepting goroutine.
	DirectHandler Mode = iota + 1
	// QueuedPolling parks each request on a bounded queue drained by an
	// external polling consumer.
	QueuedPolling
)

func (m Mode) String() string {
	switch m {
	case DirectHandler:
		return "direct"
	case QueuedPolling:
		return "queued"
	default:
		return "unknown"
	}
}

// Registration binds a compiled pattern to its dispatch mode, its handler or
// queue, and its metrics. A registration exists from Register until
// Unregister; exactly one registration may exist per distinct pattern string
// at any time.
type Registration struct {
	compiled *pattern.Pattern
	mode     Mode
	handler  gateway.Handler
	queue    *queue.RequestQueue
	metrics  *metrics.EndpointMetrics
}

// Pattern returns the registered pattern string.
func (r *Registration) Pattern() string {
	return r.compiled.Source()
}

// Compiled returns the compiled pattern.
func (r *Registration) Compiled() *pattern.Pattern {
	return r.compiled
}

// Mode returns the dispatch mode.
func (r *Registration) Mode() Mode {
	return r.mode
}

// Handler returns the handler callback, nil for queued registrations.
func (r *Registration) Handler() gateway.Handler {
	return r.handler
}

// Queue returns the consumer-facing queue view, nil for direct
// registrations.
func (r *Registration) Queue() gateway.Queue {
	if r.queue == nil {
		return nil
	}
	return r.queue
}

// Metrics returns the live metrics recorder. Only the dispatcher and the
// polling service mutate it; external readers must use Snapshot.
func (r *Registration) Metrics() *metrics.EndpointMetrics {
	return r.metrics
}

// Snapshot returns an immutable view of the registration's metrics.
func (r *Registration) Snapshot() metrics.Snapshot {
	return r.metrics.Snapshot()
}

// requestQueue gives core packages access to the concrete queue for
// draining; consumers only ever see the gateway.Queue interface.
func (r *Registration) requestQueue() *queue.RequestQueue {
	return r.queue
}

// Registry is the authoritative pattern-to-registration map. Reads
// (matching) take the read lock and run concurrently; register/unregister
// take the write lock and are fully serialized, which subsumes the required
// per-pattern mutual exclusion.
type Registry struct {
	mu      sync.RWMutex
	entries []*Registration // insertion order, drives the tie-break rule
	index   map[string]*Registration

	logger          types.Logger
	defaultCapacity int

	// version increments on every successful register/unregister so derived
	// artifacts (e.g. the OpenAPI document) can cache against it.
	version int64

	// droppedOnUnregister counts queued requests discarded while draining
	// unregistered endpoints.
	droppedOnUnregister int64
}

// New creates an empty registry. defaultCapacity bounds queues created by
// RegisterQueued when the caller passes a non-positive capacity; it falls
// back to queue.DefaultCapacity when itself non-positive.
func New(config types.Config, defaultCapacity int) *Registry {
	if defaultCapacity <= 0 {
		defaultCapacity = queue.DefaultCapacity
	}
	return &Registry{
		index:           make(map[string]*Registration),
		logger:          types.NewLogger(config.Logger),
		defaultCapacity: defaultCapacity,
	}
}

// Register registers a direct-mode endpoint. It fails with
// *gateway.InvalidPatternError for malformed patterns and
// *gateway.DuplicatePatternError when the pattern string is already
// registered; a failed attempt leaves the registry unchanged.
func (reg *Registry) Register(patternStr string, handler gateway.Handler) (*Registration, error) {
	if handler == nil {
		return nil, &gateway.InvalidPatternError{Pattern: patternStr, Reason: "handler must not be nil"}
	}
	return reg.add(patternStr, DirectHandler, handler, 0)
}

// RegisterQueued registers a queued-polling endpoint with the given queue
// capacity (the registry default applies when capacity is non-positive).
func (reg *Registry) RegisterQueued(patternStr string, capacity int) (*Registration, error) {
	if capacity <= 0 {
		capacity = reg.defaultCapacity
	}
	return reg.add(patternStr, QueuedPolling, nil, capacity)
}

func (reg *Registry) add(patternStr string, mode Mode, handler gateway.Handler, capacity int) (*Registration, error) {
	compiled, err := pattern.Parse(patternStr)
	if err != nil {
		return nil, err
	}
	registration := &Registration{
		compiled: compiled,
		mode:     mode,
		handler:  handler,
		metrics:  metrics.New(),
	}
	if mode == QueuedPolling {
		registration.queue = queue.New(capacity)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.index[patternStr]; exists {
		return nil, &gateway.DuplicatePatternError{Pattern: patternStr}
	}
	reg.index[patternStr] = registration
	reg.entries = append(reg.entries, registration)
	atomic.AddInt64(&reg.version, 1)
	reg.logger.Printf("registered endpoint: %s mode=%s", patternStr, mode)
	return registration, nil
}

// Unregister removes the registration for the exact pattern string. The
// registration leaves the matchable set before its queue is drained, so no
// new requests can be admitted while draining. For queued endpoints the
// queue is closed — waking any consumer blocked in Poll — and every
// remaining request is discarded and counted.
func (reg *Registry) Unregister(patternStr string) error {
	reg.mu.Lock()
	registration, exists := reg.index[patternStr]
	if !exists {
		reg.mu.Unlock()
		return gateway.ErrNotFound
	}
	delete(reg.index, patternStr)
	for i, entry := range reg.entries {
		if entry == registration {
			reg.entries = append(reg.entries[:i], reg.entries[i+1:]...)
			break
		}
	}
	atomic.AddInt64(&reg.version, 1)
	reg.mu.Unlock()

	if q := registration.requestQueue(); q != nil {
		q.Close()
		drained := q.DrainAll()
		if len(drained) > 0 {
			atomic.AddInt64(&reg.droppedOnUnregister, int64(len(drained)))
			for _, request := range drained {
				reg.logger.Printf("[DEBUG] dropped queued request on unregister: endpoint=%s id=%s", patternStr, request.ID)
			}
		}
		registration.metrics.UpdateQueueSize(0)
	}
	reg.logger.Printf("unregistered endpoint: %s", patternStr)
	return nil
}

// FindMatch returns the registration matching the concrete path together
// with the extracted path parameters. When several patterns match, the most
// specific one (fewest parameter segments) wins; ties fall back to
// registration order.
func (reg *Registry) FindMatch(path string) (*Registration, map[string]string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var (
		best       *Registration
		bestParams map[string]string
	)
	for _, registration := range reg.entries {
		params, ok := registration.compiled.Match(path)
		if !ok {
			continue
		}
		if best == nil || registration.compiled.ParamCount() < best.compiled.ParamCount() {
			best = registration
			bestParams = params
		}
	}
	if best == nil {
		return nil, nil, false
	}
	return best, bestParams, true
}

// Get returns the registration for the exact pattern string.
func (reg *Registry) Get(patternStr string) (*Registration, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	registration, exists := reg.index[patternStr]
	return registration, exists
}

// Patterns returns the registered pattern strings in registration order.
func (reg *Registry) Patterns() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	patterns := make([]string, 0, len(reg.entries))
	for _, registration := range reg.entries {
		patterns = append(patterns, registration.Pattern())
	}
	return patterns
}

// Len returns the number of registrations.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.entries)
}

// Snapshots returns a metrics snapshot per registered pattern.
func (reg *Registry) Snapshots() map[string]metrics.Snapshot {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	snapshots := make(map[string]metrics.Snapshot, len(reg.entries))
	for _, registration := range reg.entries {
		snapshots[registration.Pattern()] = registration.Snapshot()
	}
	return snapshots
}

// Version returns a counter that increments on every successful register or
// unregister.
func (reg *Registry) Version() int64 {
	return atomic.LoadInt64(&reg.version)
}

// DroppedOnUnregister returns the total number of queued requests discarded
// by unregistration.
func (reg *Registry) DroppedOnUnregister() int64 {
	return atomic.LoadInt64(&reg.droppedOnUnregister)
}
