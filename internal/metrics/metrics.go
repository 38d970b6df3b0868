// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every zfskit collector. A dedicated registry keeps the
// exported set limited to what zfskit itself records.
var Registry = prometheus.NewRegistry()

var (
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zfskit_command_duration_seconds",
			Help:    "Duration of zfs/zpool command invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CommandFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zfskit_command_failures_total",
			Help: "Number of failed zfs/zpool command invocations",
		},
		[]string{"command"},
	)

	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zfskit_gateway_calls_total",
			Help: "Number of gateway operations by backend and operation",
		},
		[]string{"backend", "op"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zfskit_http_requests_total",
			Help: "Number of API requests by route, method and status class",
		},
		[]string{"route", "method", "class"},
	)

	OpenHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zfskit_open_handles",
			Help: "Number of dataset handles currently open",
		},
	)
)

func init() {
	Registry.MustRegister(
		CommandDuration,
		CommandFailuresTotal,
		GatewayCallsTotal,
		HTTPRequestsTotal,
		OpenHandles,
	)
}

// ObserveCommand records one command run. cmd is the subcommand, e.g.
// "zfs list", never the full argument list.
func ObserveCommand(cmd string, took time.Duration, err error) {
	CommandDuration.WithLabelValues(cmd).Observe(took.Seconds())
	if err != nil {
		CommandFailuresTotal.WithLabelValues(cmd).Inc()
	}
}

// ObserveRequest counts one API request. route is the matched pattern so
// dataset names never become label values.
func ObserveRequest(route, method string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status/100)+"xx").Inc()
}

// Handler exposes Registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
