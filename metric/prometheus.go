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

// Package metric exports the gateway's per-endpoint counters to Prometheus.
//
// The collector reads immutable snapshots on every scrape instead of keeping
// parallel Prometheus counters on the dispatch hot path, so scraping adds no
// cost to request handling.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowgate/flowgate"
)

const namespace = "flowgate"

var (
	requestsDesc = prometheus.NewDesc(namespace+"_requests_total",
		"Total requests dispatched to the endpoint.", []string{"endpoint"}, nil)
	successDesc = prometheus.NewDesc(namespace+"_success_total",
		"Requests handled successfully or admitted to the endpoint queue.", []string{"endpoint"}, nil)
	failuresDesc = prometheus.NewDesc(namespace+"_failures_total",
		"Requests failed by the handler or refused as oversized.", []string{"endpoint"}, nil)
	queueFullDesc = prometheus.NewDesc(namespace+"_queue_full_total",
		"Requests rejected because the endpoint queue was at capacity.", []string{"endpoint"}, nil)
	latencyDesc = prometheus.NewDesc(namespace+"_latency_ms_total",
		"Cumulative handling latency in milliseconds.", []string{"endpoint"}, nil)
	queueSizeDesc = prometheus.NewDesc(namespace+"_queue_size",
		"Current queue depth of the endpoint.", []string{"endpoint"}, nil)
	lastRequestDesc = prometheus.NewDesc(namespace+"_last_request_timestamp_seconds",
		"Unix timestamp of the endpoint's last request.", []string{"endpoint"}, nil)
	droppedDesc = prometheus.NewDesc(namespace+"_dropped_on_unregister_total",
		"Queued requests discarded by unregistration.", nil, nil)
)

// Collector implements prometheus.Collector over a gateway.
type Collector struct {
	gateway *flowgate.Gateway
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for the gateway. Register it with a
// prometheus registry:
//
//	prometheus.MustRegister(metric.NewCollector(gw))
func NewCollector(gw *flowgate.Gateway) *Collector {
	return &Collector{gateway: gw}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- successDesc
	ch <- failuresDesc
	ch <- queueFullDesc
	ch <- latencyDesc
	ch <- queueSizeDesc
	ch <- lastRequestDesc
	ch <- droppedDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for endpoint, snapshot := range c.gateway.MetricsSnapshots() {
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue,
			float64(snapshot.TotalRequests), endpoint)
		ch <- prometheus.MustNewConstMetric(successDesc, prometheus.CounterValue,
			float64(snapshot.SuccessCount), endpoint)
		ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue,
			float64(snapshot.FailureCount), endpoint)
		ch <- prometheus.MustNewConstMetric(queueFullDesc, prometheus.CounterValue,
			float64(snapshot.QueueFullRejections), endpoint)
		ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.CounterValue,
			float64(snapshot.CumulativeLatencyMs), endpoint)
		ch <- prometheus.MustNewConstMetric(queueSizeDesc, prometheus.GaugeValue,
			float64(snapshot.QueueSize), endpoint)
		if ms := snapshot.LastRequestUnixMs(); ms > 0 {
			ch <- prometheus.MustNewConstMetric(lastRequestDesc, prometheus.GaugeValue,
				float64(ms)/1000.0, endpoint)
		}
	}
	ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue,
		float64(c.gateway.DroppedOnUnregister()))
}
