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

// Package docs generates an OpenAPI 3.0 document describing the currently
// registered endpoints.
//
// Pattern semantics are obtained exclusively through the pattern package
// (Pattern.ToOpenAPI and Pattern.ParamNames); the :name convention is never
// re-parsed here, so matcher and documentation can not diverge.
package docs

import (
	"sync"

	"github.com/flowgate/flowgate/registry"
	"github.com/flowgate/flowgate/utils/json"
)

// Generator builds the OpenAPI document for a registry. The document is
// cached and regenerated only when the registry version changes, since
// registrations are rare compared to reads.
type Generator struct {
	registry  *registry.Registry
	title     string
	serverURL string

	mu      sync.Mutex
	cached  []byte
	version int64
}

// New creates a generator. serverURL is advertised in the document's servers
// list, e.g. "http://localhost:5050".
func New(reg *registry.Registry, title, serverURL string) *Generator {
	if title == "" {
		title = "FlowGate Gateway API"
	}
	return &Generator{registry: reg, title: title, serverURL: serverURL, version: -1}
}

// OpenAPI returns the JSON document for the current set of registrations.
func (g *Generator) OpenAPI() ([]byte, error) {
	version := g.registry.Version()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cached != nil && g.version == version {
		return g.cached, nil
	}
	document, err := json.Marshal(g.build())
	if err != nil {
		return nil, err
	}
	g.cached = document
	g.version = version
	return document, nil
}

func (g *Generator) build() map[string]interface{} {
	paths := make(map[string]interface{})
	for _, patternStr := range g.registry.Patterns() {
		registration, exists := g.registry.Get(patternStr)
		if !exists {
			continue
		}
		compiled := registration.Compiled()

		var parameters []map[string]interface{}
		for _, name := range compiled.ParamNames() {
			parameters = append(parameters, map[string]interface{}{
				"name":     name,
				"in":       "path",
				"required": true,
				"schema":   map[string]string{"type": "string"},
			})
		}

		operation := map[string]interface{}{
			"summary":   "Endpoint " + patternStr + " (" + registration.Mode().String() + " mode)",
			"responses": g.responses(registration),
		}
		if parameters != nil {
			operation["parameters"] = parameters
		}
		// Registered endpoints accept any method; document the common ones.
		paths[compiled.ToOpenAPI()] = map[string]interface{}{
			"get":  operation,
			"post": operation,
		}
	}

	document := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": "1.0.0",
		},
		"paths": paths,
	}
	if g.serverURL != "" {
		document["servers"] = []map[string]string{{"url": g.serverURL}}
	}
	return document
}

func (g *Generator) responses(registration *registry.Registration) map[string]interface{} {
	if registration.Mode() == registry.QueuedPolling {
		return map[string]interface{}{
			"202": map[string]string{"description": "Accepted for processing"},
			"503": map[string]string{"description": "Queue full, retry with backoff"},
		}
	}
	return map[string]interface{}{
		"200": map[string]string{"description": "Handler response"},
		"500": map[string]string{"description": "Handler error"},
	}
}
