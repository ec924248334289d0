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

// Package polling implements the retrieval service used by external
// consumers to drain queued endpoints, and the serialization of requests
// into the JSON wire shape those consumers receive.
package polling

import (
	"encoding/base64"
	"time"
	"unicode/utf8"

	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/registry"
)

// DefaultTimeout is the long-poll wait applied when the consumer does not
// specify one.
const DefaultTimeout = 30 * time.Second

// Service retrieves queued requests by pattern with bounded wait semantics.
type Service struct {
	registry *registry.Registry
	logger   types.Logger
}

// New creates a polling service over the given registry.
func New(config types.Config, reg *registry.Registry) *Service {
	return &Service{
		registry: reg,
		logger:   types.NewLogger(config.Logger),
	}
}

// Poll blocks up to timeout for the next request queued on the endpoint
// registered under the exact pattern string.
//
// It returns gateway.ErrNotFound when the pattern is unregistered, is
// unregistered while waiting, or names a direct-mode endpoint (which has no
// queue). A timeout with nothing queued is not an error: it returns
// (nil, nil) and is logged at debug only, since empty polls are routine
// under low load.
func (s *Service) Poll(patternStr string, timeout time.Duration) (*gateway.SerializedRequest, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	registration, exists := s.registry.Get(patternStr)
	if !exists || registration.Mode() != registry.QueuedPolling {
		return nil, gateway.ErrNotFound
	}
	q := registration.Queue()
	request, err := q.Poll(timeout)
	if err != nil {
		// Closed while waiting: the endpoint was unregistered, report it the
		// same way as a poll against an unknown pattern.
		return nil, gateway.ErrNotFound
	}
	if request == nil {
		s.logger.Printf("[DEBUG] poll timeout with empty queue: endpoint=%s timeout=%s", patternStr, timeout)
		return nil, nil
	}
	registration.Metrics().UpdateQueueSize(q.Size())
	return Serialize(request), nil
}

// Serialize converts a request into the polling wire shape. The body is
// base64-encoded; BodyText additionally carries it as a string when it is
// valid UTF-8.
func Serialize(request *gateway.Request) *gateway.SerializedRequest {
	headers := make(map[string]string, len(request.Header))
	for name, values := range request.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	serialized := &gateway.SerializedRequest{
		ID:            request.ID,
		Method:        request.Method,
		Path:          request.Path,
		ContentType:   request.ContentType,
		Timestamp:     request.Timestamp.UTC().Format(time.RFC3339),
		ClientAddress: request.ClientAddress,
		Headers:       headers,
		QueryParams:   request.Query,
		PathParams:    request.PathParams,
	}
	if len(request.Body) > 0 {
		serialized.Body = base64.StdEncoding.EncodeToString(request.Body)
		if utf8.Valid(request.Body) {
			serialized.BodyText = string(request.Body)
		}
	}
	return serialized
}
