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

// Package pattern parses endpoint path patterns and matches concrete request
// paths against them.
//
// A pattern is an ordered sequence of /-delimited segments, each either a
// literal or a named parameter written as :name (e.g. "/api/user/:id").
// This package is the single source of truth for the :name convention: the
// registry, the dispatcher and the OpenAPI generator all relate patterns to
// paths or to external representations through it, never by re-parsing the
// syntax themselves.
package pattern

import (
	"strings"

	"github.com/flowgate/flowgate/api/types/gateway"
)

// Segment is one /-delimited element of a compiled pattern.
type Segment struct {
	// Value is the literal text, or the parameter name without the colon.
	Value string
	// Param marks a :name parameter segment.
	Param bool
}

// Pattern is a compiled endpoint pattern. It is compiled once at
// registration and cached for the lifetime of the registration; matching
// never re-parses the source string.
type Pattern struct {
	source     string
	segments   []Segment
	paramNames []string
}

// Parse compiles a pattern string. It fails with *gateway.InvalidPatternError
// when the pattern is empty, does not start with '/', contains an empty
// segment, a parameter with a non-identifier name, or two parameters sharing
// a name.
func Parse(source string) (*Pattern, error) {
	if source == "" {
		return nil, &gateway.InvalidPatternError{Pattern: source, Reason: "pattern is empty"}
	}
	if !strings.HasPrefix(source, "/") {
		return nil, &gateway.InvalidPatternError{Pattern: source, Reason: "pattern must start with '/'"}
	}
	parts := strings.Split(source[1:], "/")
	segments := make([]Segment, 0, len(parts))
	var paramNames []string
	seen := make(map[string]struct{})
	for _, part := range parts {
		if part == "" {
			return nil, &gateway.InvalidPatternError{Pattern: source, Reason: "empty path segment"}
		}
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			if !isIdentifier(name) {
				return nil, &gateway.InvalidPatternError{Pattern: source, Reason: "parameter name must be an identifier: " + part}
			}
			if _, dup := seen[name]; dup {
				return nil, &gateway.InvalidPatternError{Pattern: source, Reason: "duplicate parameter name: " + name}
			}
			seen[name] = struct{}{}
			paramNames = append(paramNames, name)
			segments = append(segments, Segment{Value: name, Param: true})
		} else {
			segments = append(segments, Segment{Value: part})
		}
	}
	return &Pattern{source: source, segments: segments, paramNames: paramNames}, nil
}

// Source returns the original pattern string.
func (p *Pattern) Source() string {
	return p.source
}

// Segments returns the compiled segments in order.
func (p *Pattern) Segments() []Segment {
	return p.segments
}

// ParamNames returns the parameter names in order of appearance.
func (p *Pattern) ParamNames() []string {
	return p.paramNames
}

// ParamCount returns the number of parameter segments. The registry uses it
// for most-specific-first ordering: fewer parameters means more specific.
func (p *Pattern) ParamCount() int {
	return len(p.paramNames)
}

// Match tests a concrete request path against the pattern. Matching is
// segment-count exact: the path must have the same number of /-delimited
// segments, literals must match byte-for-byte, and each parameter segment
// binds any non-empty path segment to its name. On success the extracted
// parameters are returned; the map is nil for patterns without parameters.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	if path == "" || path[0] != '/' {
		return nil, false
	}
	rest := path[1:]
	var params map[string]string
	for i, seg := range p.segments {
		var part string
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			part = rest[:idx]
			rest = rest[idx+1:]
			if i == len(p.segments)-1 {
				// path has more segments than the pattern
				return nil, false
			}
		} else {
			part = rest
			rest = ""
			if i != len(p.segments)-1 {
				// path has fewer segments than the pattern
				return nil, false
			}
		}
		if part == "" {
			return nil, false
		}
		if seg.Param {
			if params == nil {
				params = make(map[string]string, len(p.paramNames))
			}
			params[seg.Value] = part
		} else if seg.Value != part {
			return nil, false
		}
	}
	return params, true
}

// ToOpenAPI converts the pattern to OpenAPI 3.0 path format, rewriting each
// :name segment to {name}: "/u/:id" becomes "/u/{id}".
func (p *Pattern) ToOpenAPI() string {
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.Param {
			b.WriteByte('{')
			b.WriteString(seg.Value)
			b.WriteByte('}')
		} else {
			b.WriteString(seg.Value)
		}
	}
	return b.String()
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
