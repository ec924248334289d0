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

package flowgate

import (
	"net/http"
	"testing"
	"time"

	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/test/assert"
)

func TestDirectEndpointRoundTrip(t *testing.T) {
	gw := New()
	err := gw.RegisterEndpoint("/api/user/:id", func(req *gateway.Request) (*gateway.Response, error) {
		return gateway.OK([]byte(`{"userId":"` + req.PathParams["id"] + `"}`)), nil
	})
	assert.Nil(t, err)

	response := gw.Dispatch(gateway.NewRequest("GET", "/api/user/42"))
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, `{"userId":"42"}`, string(response.Body))

	snapshot, exists := gw.EndpointMetrics("/api/user/:id")
	assert.True(t, exists)
	assert.Equal(t, int64(1), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.SuccessCount)
}

func TestQueuedEndpointRoundTrip(t *testing.T) {
	gw := New()
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))

	request := gateway.NewRequest("POST", "/api/ingest").
		WithBody(gateway.JSONContentType, []byte(`{"v":1}`))
	response := gw.Dispatch(request)
	assert.Equal(t, http.StatusAccepted, response.StatusCode)

	serialized, err := gw.Poll("/api/ingest", time.Second)
	assert.Nil(t, err)
	assert.NotNil(t, serialized)
	assert.Equal(t, request.ID, serialized.ID)
	assert.Equal(t, `{"v":1}`, serialized.BodyText)

	// The queue is now empty, a short poll times out cleanly.
	serialized, err = gw.Poll("/api/ingest", 50*time.Millisecond)
	assert.Nil(t, err)
	assert.Nil(t, serialized)
}

func TestBackpressure(t *testing.T) {
	gw := New()
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 2))

	for i := 0; i < 2; i++ {
		response := gw.Dispatch(gateway.NewRequest("POST", "/api/ingest"))
		assert.Equal(t, http.StatusAccepted, response.StatusCode)
	}
	response := gw.Dispatch(gateway.NewRequest("POST", "/api/ingest"))
	assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode)

	// Draining one slot makes room again.
	_, err := gw.Poll("/api/ingest", time.Second)
	assert.Nil(t, err)
	response = gw.Dispatch(gateway.NewRequest("POST", "/api/ingest"))
	assert.Equal(t, http.StatusAccepted, response.StatusCode)
}

func TestUnregisterThenDispatchIsNotFound(t *testing.T) {
	gw := New()
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))
	assert.Equal(t, http.StatusAccepted, gw.Dispatch(gateway.NewRequest("POST", "/api/ingest")).StatusCode)

	assert.Nil(t, gw.UnregisterEndpoint("/api/ingest"))
	assert.Equal(t, http.StatusNotFound, gw.Dispatch(gateway.NewRequest("POST", "/api/ingest")).StatusCode)
	assert.Equal(t, int64(1), gw.DroppedOnUnregister())

	_, err := gw.Poll("/api/ingest", 50*time.Millisecond)
	assert.Equal(t, gateway.ErrNotFound, err)

	// The pattern can be registered again afterwards.
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))
	assert.Equal(t, http.StatusAccepted, gw.Dispatch(gateway.NewRequest("POST", "/api/ingest")).StatusCode)
}

func TestRegisteredEndpointsOrder(t *testing.T) {
	gw := New()
	assert.Nil(t, gw.RegisterQueuedEndpoint("/b", 1))
	assert.Nil(t, gw.RegisterEndpoint("/a/:x", func(_ *gateway.Request) (*gateway.Response, error) {
		return gateway.OK(nil), nil
	}))
	assert.Equal(t, []string{"/b", "/a/:x"}, gw.RegisteredEndpoints())
}

func TestWithMaxRequestSize(t *testing.T) {
	gw := New(WithMaxRequestSize(4))
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))

	response := gw.Dispatch(gateway.NewRequest("POST", "/api/ingest").
		WithBody("text/plain", []byte("hello")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, response.StatusCode)
}

func TestWithDefaultQueueCapacity(t *testing.T) {
	gw := New(WithDefaultQueueCapacity(2))
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 0))

	q, exists := gw.Queue("/api/ingest")
	assert.True(t, exists)
	assert.Equal(t, 2, q.Cap())
}

func TestEndpointMetricsUnknownPattern(t *testing.T) {
	gw := New()
	_, exists := gw.EndpointMetrics("/never")
	assert.False(t, exists)
	_, exists = gw.Queue("/never")
	assert.False(t, exists)
}
