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

// Package rest embeds the gateway behind an HTTP server.
//
// Reserved paths are served by the router; every other path falls through to
// the public gateway handler, which translates the parsed http.Request into
// a gateway.Request and dispatches it:
//
//	GET /_metrics                    all endpoint metrics snapshots
//	GET /_metrics/*pattern           snapshot for one endpoint
//	GET /_internal/poll/*pattern     long-poll a queued endpoint
//	GET /_docs/openapi.json          OpenAPI document of registered endpoints
//
// The transport owns HTTP concerns only (listening, TLS, CORS, body size
// bounding, wire translation); matching, admission control and metrics stay
// in the dispatch core.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/flowgate/flowgate"
	"github.com/flowgate/flowgate/api/types"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/docs"
	"github.com/flowgate/flowgate/utils/json"
	"github.com/flowgate/flowgate/utils/maps"
)

// Type is the transport type name.
const Type = "http"

// Config is the REST transport configuration. It can be populated directly
// or decoded from a generic configuration map via Init.
type Config struct {
	// Addr is the listen address, e.g. ":5050".
	Addr string
	// CertFile and CertKeyFile enable TLS when both are set.
	CertFile    string
	CertKeyFile string
	// MaxRequestSize bounds body reads in bytes. The dispatcher enforces the
	// same bound for per-endpoint accounting; this keeps the transport from
	// buffering unbounded input.
	MaxRequestSize int64
	// PollTimeoutSeconds is the default long-poll wait; MaxPollTimeoutSeconds
	// clamps client-requested waits.
	PollTimeoutSeconds    int
	MaxPollTimeoutSeconds int
	// AllowCors enables CORS handling with the settings below (comma
	// separated lists, as the hosting runtime's property format).
	AllowCors          bool
	CorsAllowedOrigins string
	CorsAllowedMethods string
	CorsAllowedHeaders string
	CorsMaxAge         int
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":5050"
	}
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = 10 * 1024 * 1024
	}
	if c.PollTimeoutSeconds <= 0 {
		c.PollTimeoutSeconds = 30
	}
	if c.MaxPollTimeoutSeconds <= 0 {
		c.MaxPollTimeoutSeconds = 60
	}
	if c.CorsAllowedOrigins == "" {
		c.CorsAllowedOrigins = "*"
	}
	if c.CorsAllowedMethods == "" {
		c.CorsAllowedMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	}
	if c.CorsAllowedHeaders == "" {
		c.CorsAllowedHeaders = "Content-Type, Authorization, X-Requested-With"
	}
	if c.CorsMaxAge <= 0 {
		c.CorsMaxAge = 3600
	}
}

// Rest serves a gateway over HTTP.
type Rest struct {
	Config    Config
	gateway   *flowgate.Gateway
	logger    types.Logger
	router    *httprouter.Router
	server    *http.Server
	generator *docs.Generator
}

// New creates a REST transport for the gateway.
func New(gw *flowgate.Gateway, config Config) *Rest {
	config.applyDefaults()
	return &Rest{
		Config:    config,
		gateway:   gw,
		logger:    types.NewLogger(gw.Config().Logger),
		generator: docs.New(gw.Registry(), "", ""),
	}
}

// Init decodes a generic configuration map over the current config.
func (r *Rest) Init(configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &r.Config); err != nil {
		return err
	}
	r.Config.applyDefaults()
	return nil
}

func (r *Rest) ensureRouter() *httprouter.Router {
	if r.router == nil {
		router := httprouter.New()
		router.GET("/_metrics", r.handleMetricsAll)
		router.GET("/_metrics/*pattern", r.handleMetricsOne)
		router.GET("/_internal/poll/*pattern", r.handlePoll)
		router.GET("/_docs/openapi.json", r.handleOpenAPI)
		router.NotFound = http.HandlerFunc(r.handleGateway)
		r.router = router
	}
	return r.router
}

// Handle registers an additional reserved route ("/_..." path) on the
// transport router, e.g. the websocket streamer. It must be called before
// Start.
func (r *Rest) Handle(method, path string, handle httprouter.Handle) {
	r.ensureRouter().Handle(method, path, handle)
}

// Router returns the HTTP handler, building it on first use. Reserved paths
// are routed explicitly; everything else is handed to the dispatcher via the
// router's NotFound fallback.
func (r *Rest) Router() http.Handler {
	var handler http.Handler = r.ensureRouter()
	if r.Config.AllowCors {
		handler = cors.New(cors.Options{
			AllowedOrigins: splitList(r.Config.CorsAllowedOrigins),
			AllowedMethods: splitList(r.Config.CorsAllowedMethods),
			AllowedHeaders: splitList(r.Config.CorsAllowedHeaders),
			MaxAge:         r.Config.CorsMaxAge,
		}).Handler(handler)
	}
	return handler
}

// Start listens and serves until Shutdown. It starts with TLS when both cert
// files are configured.
func (r *Rest) Start() error {
	r.server = &http.Server{Addr: r.Config.Addr, Handler: r.Router()}
	var err error
	if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
		r.logger.Printf("starting gateway server with TLS on %s", r.Config.Addr)
		err = r.server.ListenAndServeTLS(r.Config.CertFile, r.Config.CertKeyFile)
	} else {
		r.logger.Printf("starting gateway server on %s", r.Config.Addr)
		err = r.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (r *Rest) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// handleGateway translates the HTTP request and dispatches it. All paths
// under the reserved "/_" prefix are refused here so registered patterns can
// never shadow internal endpoints.
func (r *Rest) handleGateway(w http.ResponseWriter, req *http.Request) {
	if strings.HasPrefix(req.URL.Path, "/_") {
		r.writeResponse(w, gateway.NotFound("reserved path"))
		return
	}
	request, err := r.buildRequest(req)
	if err != nil {
		r.logger.Printf("failed to read request body: path=%s err=%v", req.URL.Path, err)
		r.writeResponse(w, gateway.InternalError("failed to read request body"))
		return
	}
	r.writeResponse(w, r.gateway.Dispatch(request))
}

func (r *Rest) buildRequest(req *http.Request) (*gateway.Request, error) {
	var body []byte
	if req.Body != nil {
		defer func() { _ = req.Body.Close() }()
		// One byte beyond the limit is enough for the dispatcher to detect
		// and account the overflow per endpoint.
		var err error
		body, err = io.ReadAll(io.LimitReader(req.Body, r.Config.MaxRequestSize+1))
		if err != nil {
			return nil, err
		}
	}
	request := gateway.NewRequest(req.Method, req.URL.Path)
	request.Header = textproto.MIMEHeader(req.Header)
	request.ContentType = req.Header.Get(gateway.ContentTypeKey)
	request.Body = body
	request.ClientAddress = req.RemoteAddr
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			request.Query[key] = values[0]
		}
	}
	return request, nil
}

// handlePoll long-polls a queued endpoint. The catch-all parameter carries
// its leading slash, so the pattern string arrives exactly as registered.
func (r *Rest) handlePoll(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	patternStr := params.ByName("pattern")
	timeout := r.pollTimeout(req.URL.Query().Get("timeout"))

	serialized, err := r.gateway.Poll(patternStr, timeout)
	if err != nil {
		r.writeResponse(w, gateway.NotFound("endpoint not registered: "+patternStr))
		return
	}
	if serialized == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.writeJSON(w, http.StatusOK, serialized)
}

// pollTimeout parses the client's requested wait, accepting a Go duration
// ("30s") or a plain number of seconds, clamped to the configured maximum.
func (r *Rest) pollTimeout(raw string) time.Duration {
	timeout := time.Duration(r.Config.PollTimeoutSeconds) * time.Second
	if raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			timeout = d
		} else if seconds, err := strconv.Atoi(raw); err == nil {
			timeout = time.Duration(seconds) * time.Second
		}
	}
	maxTimeout := time.Duration(r.Config.MaxPollTimeoutSeconds) * time.Second
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
	}
	return timeout
}

func (r *Rest) handleMetricsAll(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	r.writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoints":           r.gateway.MetricsSnapshots(),
		"droppedOnUnregister": r.gateway.DroppedOnUnregister(),
	})
}

func (r *Rest) handleMetricsOne(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	patternStr := params.ByName("pattern")
	snapshot, exists := r.gateway.EndpointMetrics(patternStr)
	if !exists {
		r.writeResponse(w, gateway.NotFound("endpoint not registered: "+patternStr))
		return
	}
	r.writeJSON(w, http.StatusOK, snapshot)
}

func (r *Rest) handleOpenAPI(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	document, err := r.generator.OpenAPI()
	if err != nil {
		r.writeResponse(w, gateway.InternalError("failed to generate documentation"))
		return
	}
	w.Header().Set(gateway.ContentTypeKey, gateway.JSONContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}

func (r *Rest) writeResponse(w http.ResponseWriter, response *gateway.Response) {
	for key, value := range response.Header {
		w.Header().Set(key, value)
	}
	w.WriteHeader(response.StatusCode)
	if len(response.Body) > 0 {
		_, _ = w.Write(response.Body)
	}
}

func (r *Rest) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		r.writeResponse(w, gateway.InternalError("failed to encode response"))
		return
	}
	w.Header().Set(gateway.ContentTypeKey, gateway.JSONContentType)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
