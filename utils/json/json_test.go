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

package json

import (
	"strings"
	"testing"

	"github.com/flowgate/flowgate/test/assert"
)

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	b, err := Marshal(map[string]string{"url": "http://a.example/?x=1&y=<2>"})
	assert.Nil(t, err)
	assert.Equal(t, `{"url":"http://a.example/?x=1&y=<2>"}`, string(b))
}

func TestMarshal2EscapesWhenAsked(t *testing.T) {
	b, err := Marshal2("a&b", true)
	assert.Nil(t, err)
	// The ampersand is rewritten to its unicode escape.
	assert.False(t, strings.Contains(string(b), "&"))
	var s string
	assert.Nil(t, Unmarshal(b, &s))
	assert.Equal(t, "a&b", s)
}

func TestMarshalNoTrailingNewline(t *testing.T) {
	b, err := Marshal(1)
	assert.Nil(t, err)
	assert.Equal(t, "1", string(b))
}

func TestUnmarshal(t *testing.T) {
	var m map[string]int
	assert.Nil(t, Unmarshal([]byte(`{"a":1}`), &m))
	assert.Equal(t, 1, m["a"])
}
