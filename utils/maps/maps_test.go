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

package maps

import (
	"testing"

	"github.com/flowgate/flowgate/test/assert"
)

func TestMap2Struct(t *testing.T) {
	type serverConfig struct {
		Addr           string
		MaxRequestSize int64
		AllowCors      bool
	}
	var cfg serverConfig
	err := Map2Struct(map[string]interface{}{
		"addr":           ":9090",
		"maxRequestSize": 1024,
		"allowCors":      true,
	}, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, int64(1024), cfg.MaxRequestSize)
	assert.True(t, cfg.AllowCors)
}

func TestMap2StructUnknownKeysIgnored(t *testing.T) {
	type target struct {
		Name string
	}
	var v target
	assert.Nil(t, Map2Struct(map[string]interface{}{"name": "a", "extra": 1}, &v))
	assert.Equal(t, "a", v.Name)
}
