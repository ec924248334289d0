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

// Package queue implements the bounded per-endpoint request queue.
//
// The queue is a fixed-capacity FIFO shared between the accepting goroutines
// (producers) and one or more polling consumers. Offer never blocks the
// producer: a full queue is reported immediately so the dispatcher can
// answer with the overload signal instead of tying up transport concurrency.
// Poll is a bounded blocking wait built on channel select; it never
// busy-spins, and closing the queue wakes every blocked poller promptly.
package queue

import (
	"sync"
	"time"

	"github.com/flowgate/flowgate/api/types/gateway"
)

// DefaultCapacity is used when a registration does not specify a capacity.
const DefaultCapacity = 1000

// Ensure RequestQueue implements the consumer-facing interface.
var _ gateway.Queue = (*RequestQueue)(nil)

// RequestQueue is a channel-backed bounded FIFO of pending requests for one
// endpoint. Concurrent pollers each dequeue distinct items; there is no
// broadcast.
type RequestQueue struct {
	ch        chan *gateway.Request
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a queue with the given capacity. A non-positive capacity falls
// back to DefaultCapacity.
func New(capacity int) *RequestQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RequestQueue{
		ch:   make(chan *gateway.Request, capacity),
		done: make(chan struct{}),
	}
}

// Offer enqueues the request without blocking. It returns false when the
// queue is at capacity or already closed. Under concurrent offers against a
// queue with N free slots exactly N succeed; no request is silently lost or
// double-accepted.
func (q *RequestQueue) Offer(request *gateway.Request) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- request:
		return true
	default:
		return false
	}
}

// Poll blocks up to timeout for the next request. It returns (nil, nil) when
// the timeout elapses with nothing queued — an expected, first-class result
// under low load — and gateway.ErrQueueClosed once Close has been called.
func (q *RequestQueue) Poll(timeout time.Duration) (*gateway.Request, error) {
	// Fast path: hand out an already queued item without arming a timer.
	select {
	case request := <-q.ch:
		return request, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case request := <-q.ch:
		return request, nil
	case <-q.done:
		return nil, gateway.ErrQueueClosed
	case <-timer.C:
		return nil, nil
	}
}

// DrainAll removes and returns all queued requests. It is used only during
// unregistration, after Close, to account for discarded requests.
func (q *RequestQueue) DrainAll() []*gateway.Request {
	var drained []*gateway.Request
	for {
		select {
		case request := <-q.ch:
			drained = append(drained, request)
		default:
			return drained
		}
	}
}

// Close marks the queue closed and wakes all blocked pollers. It is
// idempotent. Queued items remain readable by DrainAll.
func (q *RequestQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *RequestQueue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Size returns the number of queued requests.
func (q *RequestQueue) Size() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *RequestQueue) Cap() int {
	return cap(q.ch)
}
