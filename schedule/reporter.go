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

// Package schedule logs periodic metrics reports on a cron schedule, for
// deployments that want endpoint statistics in the log stream without
// running a metrics scraper.
package schedule

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/flowgate/flowgate"
	"github.com/flowgate/flowgate/api/types"
)

// Reporter periodically writes one log line per registered endpoint.
type Reporter struct {
	gateway *flowgate.Gateway
	logger  types.Logger
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewReporter creates a reporter. spec is a cron expression with seconds
// field support, e.g. "*/30 * * * * *" for every 30 seconds.
func NewReporter(gw *flowgate.Gateway, spec string) (*Reporter, error) {
	r := &Reporter{
		gateway: gw,
		logger:  types.NewLogger(gw.Config().Logger),
		cron:    cron.New(cron.WithSeconds()),
	}
	entryID, err := r.cron.AddFunc(spec, r.report)
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	r.entryID = entryID
	return r, nil
}

// Start begins reporting in the cron's own goroutine.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop stops the schedule. A report in flight finishes.
func (r *Reporter) Stop() {
	r.cron.Stop()
}

func (r *Reporter) report() {
	snapshots := r.gateway.MetricsSnapshots()
	if len(snapshots) == 0 {
		return
	}
	for endpoint, s := range snapshots {
		r.logger.Printf("metrics: endpoint=%s total=%d success=%d failed=%d queueFull=%d avgLatencyMs=%d queueSize=%d",
			endpoint, s.TotalRequests, s.SuccessCount, s.FailureCount, s.QueueFullRejections, s.AverageLatencyMs, s.QueueSize)
	}
	if dropped := r.gateway.DroppedOnUnregister(); dropped > 0 {
		r.logger.Printf("metrics: droppedOnUnregister=%d", dropped)
	}
}
