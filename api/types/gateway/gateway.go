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

// Package gateway defines the data types and narrow interfaces of the
// dispatch core: requests and responses exchanged with transports, the
// handler callback contract, the queue abstraction seen by consumers, and
// the error taxonomy of registration and retrieval.
//
// The package holds contracts only. Implementations live in the pattern,
// queue, registry, dispatch and polling packages; transports depend on this
// package alone and never on a concrete implementation.
package gateway

import (
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

const (
	// ContentTypeKey is the canonical Content-Type header name.
	ContentTypeKey = "Content-Type"
	// JSONContentType is the media type of the synthesized response bodies.
	JSONContentType = "application/json"
)

// Request is an already-parsed inbound request handed to the dispatch core
// by a transport. A Request is treated as immutable once it enters Dispatch:
// the dispatcher binds path parameters onto a copy via WithPathParams, the
// original is never modified.
type Request struct {
	// ID uniquely identifies the request. It is carried on the polling wire
	// format so a response-correlation protocol can be layered on later
	// without a format break.
	ID string
	// Method is the upper-cased HTTP method.
	Method string
	// Path is the request path, e.g. "/api/user/42".
	Path string
	// Header holds the request headers with case-insensitive access.
	Header textproto.MIMEHeader
	// Query holds single-valued query parameters.
	Query map[string]string
	// Body is the raw request body.
	Body []byte
	// ContentType is the declared media type of Body.
	ContentType string
	// Timestamp is the time the transport accepted the request.
	Timestamp time.Time
	// ClientAddress is the remote address as reported by the transport.
	ClientAddress string
	// PathParams holds the values bound from :name pattern segments. It is
	// populated by the dispatcher at match time, never by the transport.
	PathParams map[string]string
}

// NewRequest creates a Request with a fresh id and timestamp. The fluent
// With* setters below are for the construction phase only; after the request
// is handed to Dispatch it must not be mutated.
func NewRequest(method, path string) *Request {
	id, _ := uuid.NewV4()
	return &Request{
		ID:        id.String(),
		Method:    strings.ToUpper(method),
		Path:      path,
		Header:    make(textproto.MIMEHeader),
		Query:     make(map[string]string),
		Timestamp: time.Now(),
	}
}

// WithBody sets the body and content type.
func (r *Request) WithBody(contentType string, body []byte) *Request {
	r.ContentType = contentType
	r.Body = body
	if contentType != "" {
		r.Header.Set(ContentTypeKey, contentType)
	}
	return r
}

// WithHeader sets a single header value.
func (r *Request) WithHeader(key, value string) *Request {
	r.Header.Set(key, value)
	return r
}

// WithQuery sets a single query parameter.
func (r *Request) WithQuery(key, value string) *Request {
	r.Query[key] = value
	return r
}

// WithClientAddress sets the remote address.
func (r *Request) WithClientAddress(addr string) *Request {
	r.ClientAddress = addr
	return r
}

// WithPathParams returns a shallow copy of the request with the given path
// parameters bound. The receiver is left untouched.
func (r *Request) WithPathParams(params map[string]string) *Request {
	clone := *r
	clone.PathParams = params
	return &clone
}

// GetHeader returns the header value for key using canonical MIME key
// matching, or "" when absent.
func (r *Request) GetHeader(key string) string {
	return r.Header.Get(key)
}

// Response is the abstract response returned by Dispatch, translated into
// wire format by the transport. Responses are produced either by a handler
// or synthesized by the coordinator.
type Response struct {
	StatusCode int
	Body       []byte
	Header     map[string]string
}

// NewResponse creates a response with the given status code and body.
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{
		StatusCode: statusCode,
		Body:       body,
		Header:     map[string]string{ContentTypeKey: JSONContentType},
	}
}

// OK creates a 200 response with the given JSON body.
func OK(body []byte) *Response {
	return NewResponse(http.StatusOK, body)
}

// Accepted creates the 202 response returned when a request was admitted to
// an endpoint queue.
func Accepted() *Response {
	return NewResponse(http.StatusAccepted, []byte(`{"status":"accepted"}`))
}

// NoContent creates the 204 response returned when a poll timed out with
// nothing queued. An empty poll is a routine result, not an error.
func NoContent() *Response {
	return &Response{StatusCode: http.StatusNoContent, Header: map[string]string{}}
}

// NotFound creates the 404 response for paths with no registered endpoint.
func NotFound(message string) *Response {
	return NewResponse(http.StatusNotFound, errorBody(message))
}

// PayloadTooLarge creates the 413 response for bodies over the transport's
// configured maximum.
func PayloadTooLarge() *Response {
	return NewResponse(http.StatusRequestEntityTooLarge, errorBody("request body too large"))
}

// Overloaded creates the 503 response returned when an endpoint queue is at
// capacity. This is the backpressure signal: the caller should retry with
// backoff.
func Overloaded() *Response {
	return NewResponse(http.StatusServiceUnavailable, errorBody("queue full, retry later"))
}

// InternalError creates the 500 response synthesized when a direct handler
// returned an error or panicked.
func InternalError(message string) *Response {
	return NewResponse(http.StatusInternalServerError, errorBody(message))
}

func errorBody(message string) []byte {
	b, _ := marshalErrorBody(message)
	return b
}

// Handler processes a direct-mode request synchronously and returns the
// response to send. Handlers execute on the accepting goroutine: a slow
// handler directly consumes transport concurrency, and the core imposes no
// execution timeout. A returned error or a panic is absorbed by the
// coordinator and surfaced as a 500 response plus a failure count.
type Handler func(request *Request) (*Response, error)

// Queue is the bounded per-endpoint request queue seen by consumers. The
// concrete implementation stays private so it can change without breaking
// consumers.
type Queue interface {
	// Offer enqueues the request without blocking. It returns false when the
	// queue is at capacity or closed; the producer is never blocked.
	Offer(request *Request) bool
	// Poll blocks up to timeout for the next request. It returns (nil, nil)
	// when the timeout elapses with nothing queued and ErrQueueClosed once
	// the queue has been closed by unregistration.
	Poll(timeout time.Duration) (*Request, error)
	// Size returns the number of queued requests.
	Size() int
	// Cap returns the queue capacity.
	Cap() int
}

// SerializedRequest is the JSON wire shape handed to external polling
// consumers. Body carries the raw bytes base64-encoded; BodyText carries the
// same bytes as a string for text payloads.
type SerializedRequest struct {
	ID            string            `json:"id"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	ContentType   string            `json:"contentType"`
	Body          string            `json:"body"`
	BodyText      string            `json:"bodyText"`
	Timestamp     string            `json:"timestamp"`
	ClientAddress string            `json:"clientAddress"`
	Headers       map[string]string `json:"headers"`
	QueryParams   map[string]string `json:"queryParameters"`
	PathParams    map[string]string `json:"pathParameters"`
}
