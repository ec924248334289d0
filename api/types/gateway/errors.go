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

package gateway

import (
	"errors"

	"github.com/flowgate/flowgate/utils/json"
)

var (
	// ErrNotFound is returned when a dispatch or poll targets an
	// unregistered pattern, or when unregistering a pattern that does not
	// exist.
	ErrNotFound = errors.New("endpoint not registered")

	// ErrQueueClosed is returned by Queue.Poll once the queue has been
	// closed by unregistration. Blocked pollers are woken promptly instead
	// of waiting out their timeout.
	ErrQueueClosed = errors.New("endpoint queue closed")
)

// InvalidPatternError reports a malformed pattern string at registration
// time. The pattern is rejected synchronously and never stored.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return "invalid endpoint pattern " + quote(e.Pattern) + ": " + e.Reason
}

// DuplicatePatternError reports an attempt to register a pattern string that
// is already registered. Registration is an error, not an overwrite.
type DuplicatePatternError struct {
	Pattern string
}

func (e *DuplicatePatternError) Error() string {
	return "endpoint pattern already registered: " + e.Pattern
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func marshalErrorBody(message string) ([]byte, error) {
	return json.Marshal(map[string]string{"error": message})
}
