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

package schedule

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/flowgate/flowgate"
	"github.com/flowgate/flowgate/api/types/gateway"
	"github.com/flowgate/flowgate/test/assert"
)

// captureLogger collects log lines for inspection.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func TestNewReporterRejectsInvalidSchedule(t *testing.T) {
	gw := flowgate.New()
	_, err := NewReporter(gw, "not a cron spec")
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid report schedule"))
}

func TestReportLogsEndpointMetrics(t *testing.T) {
	logger := &captureLogger{}
	gw := flowgate.New(flowgate.WithLogger(logger))
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 4))
	gw.Dispatch(gateway.NewRequest("POST", "/api/ingest"))

	reporter, err := NewReporter(gw, "*/30 * * * * *")
	assert.Nil(t, err)
	reporter.report()

	var found bool
	for _, line := range logger.all() {
		if strings.Contains(line, "endpoint=/api/ingest") && strings.Contains(line, "total=1") {
			found = true
		}
	}
	assert.True(t, found, logger.all())
}

func TestReportSilentWithNoEndpoints(t *testing.T) {
	logger := &captureLogger{}
	gw := flowgate.New(flowgate.WithLogger(logger))

	reporter, err := NewReporter(gw, "*/30 * * * * *")
	assert.Nil(t, err)
	reporter.report()
	assert.Equal(t, 0, len(logger.all()))
}

func TestReportIncludesDroppedOnUnregister(t *testing.T) {
	logger := &captureLogger{}
	gw := flowgate.New(flowgate.WithLogger(logger))
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/ingest", 4))
	gw.Dispatch(gateway.NewRequest("POST", "/api/ingest"))
	assert.Nil(t, gw.UnregisterEndpoint("/api/ingest"))
	// Another endpoint keeps the report non-empty after the unregister.
	assert.Nil(t, gw.RegisterQueuedEndpoint("/api/other", 4))

	reporter, err := NewReporter(gw, "*/30 * * * * *")
	assert.Nil(t, err)
	reporter.report()

	var found bool
	for _, line := range logger.all() {
		if strings.Contains(line, "droppedOnUnregister=1") {
			found = true
		}
	}
	assert.True(t, found, logger.all())
}

func TestStartStop(t *testing.T) {
	gw := flowgate.New()
	reporter, err := NewReporter(gw, "0 0 * * * *")
	assert.Nil(t, err)
	reporter.Start()
	reporter.Stop()
}
