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

// Package types defines the shared configuration and logging contracts used
// across the gateway core and its transports.
package types

// Configuration is a generic key-value configuration map. Components decode
// it into their typed config structs during Init.
type Configuration map[string]interface{}

// Config holds the global settings shared by every gateway component.
type Config struct {
	// Logger is the logging interface, defaulting to DefaultLogger().
	Logger Logger
	// Properties are global properties in key-value format. They are made
	// available to transports and reporters but never interpreted by the
	// dispatch core itself.
	Properties map[string]string
}

// Option modifies a Config.
type Option func(*Config)

// WithLogger sets a custom logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProperties sets the global properties.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) {
		c.Properties = properties
	}
}

// NewConfig creates a new Config with defaults applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		Logger:     DefaultLogger(),
		Properties: make(map[string]string),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger()
	}
	return c
}
