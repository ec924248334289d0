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

// Package websocket streams queued requests to external consumers over a
// websocket connection, as a push alternative to HTTP long-polling.
//
// A consumer connects to /_internal/stream/<pattern> and receives one JSON
// text frame per queued request, in the same wire shape as the polling API.
// When the endpoint is unregistered (or was never registered) the connection
// is closed with a policy-violation close frame so the consumer can tell
// "endpoint gone" apart from transport failures.
package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/flowgate/flowgate"
	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/transport/rest"
	"github.com/flowgate/flowgate/utils/json"
)

// Type is the transport type name.
const Type = "ws"

// StreamPath is the reserved route the streamer mounts on the REST
// transport.
const StreamPath = "/_internal/stream/*pattern"

const (
	// pollTimeout bounds each wait on the endpoint queue so the loop can
	// notice a closed connection or an unregistered endpoint.
	defaultPollTimeout = 10 * time.Second
	writeWait          = 10 * time.Second
)

// Streamer pushes queued requests over websocket connections.
type Streamer struct {
	gateway     *flowgate.Gateway
	logger      types.Logger
	upgrader    websocket.Upgrader
	pollTimeout time.Duration
}

// New creates a streamer for the gateway. pollTimeout bounds each internal
// queue wait; non-positive falls back to the default.
func New(gw *flowgate.Gateway, pollTimeout time.Duration) *Streamer {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Streamer{
		gateway: gw,
		logger:  types.NewLogger(gw.Config().Logger),
		upgrader: websocket.Upgrader{
			// Origin policy is handled by the hosting transport's CORS
			// configuration; internal consumers are not browsers.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		pollTimeout: pollTimeout,
	}
}

// Mount registers the stream route on the REST transport. It must be called
// before the transport starts.
func (s *Streamer) Mount(transport *rest.Rest) {
	transport.Handle(http.MethodGet, StreamPath, s.handle)
}

func (s *Streamer) handle(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	patternStr := params.ByName("pattern")
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: endpoint=%s err=%v", patternStr, err)
		return
	}
	defer func() { _ = conn.Close() }()

	// Reader goroutine: consumers send no data; a read error means the peer
	// went away and the stream loop should stop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		serialized, err := s.gateway.Poll(patternStr, s.pollTimeout)
		if err != nil {
			// Unregistered, either from the start or while streaming.
			deadline := time.Now().Add(writeWait)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "endpoint not registered"),
				deadline)
			return
		}
		if serialized == nil {
			// Poll timeout; probe the connection before waiting again.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		frame, err := json.Marshal(serialized)
		if err != nil {
			s.logger.Printf("failed to encode stream frame: endpoint=%s id=%s err=%v", patternStr, serialized.ID, err)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Printf("stream write failed, dropping request: endpoint=%s id=%s err=%v", patternStr, serialized.ID, err)
			return
		}
	}
}
