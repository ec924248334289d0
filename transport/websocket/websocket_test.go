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

package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowgate/flowgate"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/test/assert"
	"github.com/flowgate/flowgate/transport/rest"
	"github.com/flowgate/flowgate/utils/json"
)

func newStreamServer(t *testing.T, pollTimeout time.Duration) (*flowgate.Gateway, *httptest.Server) {
	t.Helper()
	gw := flowgate.New()
	transport := rest.New(gw, rest.Config{})
	New(gw, pollTimeout).Mount(transport)
	server := httptest.NewServer(transport.Router())
	t.Cleanup(server.Close)
	return gw, server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestStreamDeliversQueuedRequests(t *testing.T) {
	gw, server := newStreamServer(t, time.Second)
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))

	queued := gateway.NewRequest("POST", "/api/ingest").
		WithBody(gateway.JSONContentType, []byte(`{"v":1}`))
	assert.Equal(t, 202, gw.Dispatch(queued).StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/_internal/stream/api/ingest"), nil)
	assert.Nil(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, frame, err := conn.ReadMessage()
	assert.Nil(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)

	var serialized gateway.SerializedRequest
	assert.Nil(t, json.Unmarshal(frame, &serialized))
	assert.Equal(t, queued.ID, serialized.ID)
	assert.Equal(t, `{"v":1}`, serialized.BodyText)

	// A request dispatched while the stream is open is pushed too.
	second := gateway.NewRequest("POST", "/api/ingest").
		WithBody(gateway.JSONContentType, []byte(`{"v":2}`))
	assert.Equal(t, 202, gw.Dispatch(second).StatusCode)

	_, frame, err = conn.ReadMessage()
	assert.Nil(t, err)
	assert.Nil(t, json.Unmarshal(frame, &serialized))
	assert.Equal(t, second.ID, serialized.ID)
}

func TestStreamUnknownEndpointClosesWithPolicyViolation(t *testing.T) {
	_, server := newStreamServer(t, time.Second)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/_internal/stream/never"), nil)
	assert.Nil(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.NotNil(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err)
}

func TestStreamClosedByUnregister(t *testing.T) {
	gw, server := newStreamServer(t, 100*time.Millisecond)
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 8))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/_internal/stream/api/ingest"), nil)
	assert.Nil(t, err)
	defer conn.Close()

	assert.Nil(t, gw.UnregisterEndpoint("/api/ingest"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.NotNil(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err)
}
