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

// Package metrics tracks per-endpoint request statistics.
//
// Counters are updated with lock-free atomics because they sit on the hot
// dispatch path, shared between every accepting goroutine of an endpoint.
// The live object is never handed out: mutation happens only through the
// Record* methods and readers get immutable Snapshot values, so ownership is
// unambiguous and torn reads are impossible.
package metrics

import (
	"sync/atomic"
	"time"
)

// EndpointMetrics holds the counters for one registered endpoint. All
// counters are monotonically non-decreasing except lastRequestTime and the
// queueSize gauge. At any quiescent point (no in-flight requests)
// TotalRequests == SuccessCount + FailureCount + QueueFullRejections.
type EndpointMetrics struct {
	totalRequests       int64
	successCount        int64
	failureCount        int64
	queueFullRejections int64
	cumulativeLatencyMs int64
	queueSize           int64
	// lastRequestTime is unix milliseconds; 0 means no request seen yet.
	lastRequestTime int64
}

// New creates a new EndpointMetrics with all counters at zero.
func New() *EndpointMetrics {
	return &EndpointMetrics{}
}

// RecordRequest increments the total request count.
func (m *EndpointMetrics) RecordRequest() {
	atomic.AddInt64(&m.totalRequests, 1)
}

// RecordSuccess increments the success count and adds the observed latency.
// For queued endpoints success means accepted for later processing, not
// processed.
func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	atomic.AddInt64(&m.successCount, 1)
	atomic.AddInt64(&m.cumulativeLatencyMs, latencyMs)
	m.touch()
}

// RecordFailure increments the failure count.
func (m *EndpointMetrics) RecordFailure() {
	atomic.AddInt64(&m.failureCount, 1)
	m.touch()
}

// RecordQueueFull increments the queue-full rejection count.
func (m *EndpointMetrics) RecordQueueFull() {
	atomic.AddInt64(&m.queueFullRejections, 1)
	m.touch()
}

// UpdateQueueSize sets the current queue depth gauge.
func (m *EndpointMetrics) UpdateQueueSize(size int) {
	atomic.StoreInt64(&m.queueSize, int64(size))
}

// Reset zeroes all counters. Reset is for explicit operator action only; the
// core never resets metrics on its own.
func (m *EndpointMetrics) Reset() {
	atomic.StoreInt64(&m.totalRequests, 0)
	atomic.StoreInt64(&m.successCount, 0)
	atomic.StoreInt64(&m.failureCount, 0)
	atomic.StoreInt64(&m.queueFullRejections, 0)
	atomic.StoreInt64(&m.cumulativeLatencyMs, 0)
	atomic.StoreInt64(&m.queueSize, 0)
	atomic.StoreInt64(&m.lastRequestTime, 0)
}

func (m *EndpointMetrics) touch() {
	atomic.StoreInt64(&m.lastRequestTime, time.Now().UnixMilli())
}

// Snapshot is an immutable view of the counters at one point in time.
type Snapshot struct {
	TotalRequests       int64  `json:"totalRequests"`
	SuccessCount        int64  `json:"successCount"`
	FailureCount        int64  `json:"failureCount"`
	QueueFullRejections int64  `json:"queueFullRejections"`
	CumulativeLatencyMs int64  `json:"cumulativeLatencyMs"`
	AverageLatencyMs    int64  `json:"averageLatencyMs"`
	SuccessRate         float64 `json:"successRate"`
	QueueSize           int64  `json:"queueSize"`
	LastRequestTime     string `json:"lastRequestTime,omitempty"`

	lastRequestUnixMs int64
}

// Snapshot returns a copy of the current metrics.
func (m *EndpointMetrics) Snapshot() Snapshot {
	s := Snapshot{
		TotalRequests:       atomic.LoadInt64(&m.totalRequests),
		SuccessCount:        atomic.LoadInt64(&m.successCount),
		FailureCount:        atomic.LoadInt64(&m.failureCount),
		QueueFullRejections: atomic.LoadInt64(&m.queueFullRejections),
		CumulativeLatencyMs: atomic.LoadInt64(&m.cumulativeLatencyMs),
		QueueSize:           atomic.LoadInt64(&m.queueSize),
		lastRequestUnixMs:   atomic.LoadInt64(&m.lastRequestTime),
	}
	if s.TotalRequests > 0 {
		s.AverageLatencyMs = s.CumulativeLatencyMs / s.TotalRequests
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalRequests) * 100.0
	} else {
		s.SuccessRate = 100.0
	}
	if s.lastRequestUnixMs > 0 {
		s.LastRequestTime = time.UnixMilli(s.lastRequestUnixMs).UTC().Format(time.RFC3339)
	}
	return s
}

// LastRequestUnixMs returns the last-seen timestamp in unix milliseconds, 0
// when no request has been recorded.
func (s Snapshot) LastRequestUnixMs() int64 {
	return s.lastRequestUnixMs
}
