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

package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/test/assert"
)

func TestOfferAndPollFIFO(t *testing.T) {
	q := New(10)
	first := gateway.NewRequest("POST", "/api/ingest")
	second := gateway.NewRequest("POST", "/api/ingest")

	assert.True(t, q.Offer(first))
	assert.True(t, q.Offer(second))
	assert.Equal(t, 2, q.Size())

	got, err := q.Poll(time.Second)
	assert.Nil(t, err)
	assert.Equal(t, first.ID, got.ID)
	got, err = q.Poll(time.Second)
	assert.Nil(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 0, q.Size())
}

func TestDefaultCapacity(t *testing.T) {
	q := New(0)
	assert.Equal(t, DefaultCapacity, q.Cap())
	q = New(-5)
	assert.Equal(t, DefaultCapacity, q.Cap())
	q = New(2)
	assert.Equal(t, 2, q.Cap())
}

func TestOfferNeverBlocksWhenFull(t *testing.T) {
	q := New(1)
	assert.True(t, q.Offer(gateway.NewRequest("POST", "/x")))

	done := make(chan bool, 1)
	go func() {
		done <- q.Offer(gateway.NewRequest("POST", "/x"))
	}()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Offer blocked on a full queue")
	}
}

// For a queue of capacity N, offering N+k items concurrently accepts exactly
// N regardless of arrival order.
func TestConcurrentOffersRespectCapacity(t *testing.T) {
	const capacity = 8
	const producers = 32
	q := New(capacity)

	var accepted int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if q.Offer(gateway.NewRequest("POST", "/api/ingest")) {
				atomic.AddInt64(&accepted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(capacity), atomic.LoadInt64(&accepted))
	assert.Equal(t, capacity, q.Size())
}

func TestPollTimeoutBounds(t *testing.T) {
	q := New(1)
	timeout := 100 * time.Millisecond

	begin := time.Now()
	got, err := q.Poll(timeout)
	elapsed := time.Since(begin)

	assert.Nil(t, err)
	assert.Nil(t, got)
	// No earlier than the timeout, and promptly after it.
	assert.True(t, elapsed >= timeout-5*time.Millisecond, "returned too early: %v", elapsed)
	assert.True(t, elapsed < timeout+300*time.Millisecond, "returned too late: %v", elapsed)
}

func TestPollReturnsAsSoonAsDataArrives(t *testing.T) {
	q := New(1)
	go func() {
		time.Sleep(30 * time.Millisecond)
		q.Offer(gateway.NewRequest("POST", "/x"))
	}()

	begin := time.Now()
	got, err := q.Poll(5 * time.Second)
	assert.Nil(t, err)
	assert.NotNil(t, got)
	assert.True(t, time.Since(begin) < time.Second)
}

func TestCloseWakesBlockedPollers(t *testing.T) {
	q := New(1)
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := q.Poll(30 * time.Second)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	q.Close()

	for i := 0; i < 3; i++ {
		select {
		case err := <-errs:
			assert.Equal(t, gateway.ErrQueueClosed, err)
		case <-time.After(time.Second):
			t.Fatal("poller not woken by Close")
		}
	}
}

func TestOfferAfterCloseRejected(t *testing.T) {
	q := New(4)
	q.Close()
	assert.False(t, q.Offer(gateway.NewRequest("POST", "/x")))
	assert.True(t, q.Closed())
	// Close is idempotent.
	q.Close()
}

func TestDrainAll(t *testing.T) {
	q := New(4)
	for i := 0; i < 3; i++ {
		assert.True(t, q.Offer(gateway.NewRequest("POST", "/x")))
	}
	q.Close()
	drained := q.DrainAll()
	assert.Equal(t, 3, len(drained))
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, 0, len(q.DrainAll()))
}

// Concurrent pollers each dequeue distinct items; nothing is delivered
// twice.
func TestConcurrentPollersReceiveDistinctItems(t *testing.T) {
	const items = 50
	q := New(items)
	for i := 0; i < items; i++ {
		assert.True(t, q.Offer(gateway.NewRequest("POST", "/x")))
	}

	var mu sync.Mutex
	seen := make(map[string]struct{}, items)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, err := q.Poll(50 * time.Millisecond)
				if err != nil || got == nil {
					return
				}
				mu.Lock()
				if _, dup := seen[got.ID]; dup {
					t.Errorf("request %s delivered twice", got.ID)
				}
				seen[got.ID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, items, len(seen))
}
