// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs           prometheus.Counter
	ServersChecked prometheus.Counter
	ServersSkipped *prometheus.CounterVec
	Notifications  prometheus.Counter
}

// NewMetrics registers the notifier counters on reg. A nil reg yields
// unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qremote",
			Subsystem: "notifier",
			Name:      "runs_total",
			Help:      "Completed notifier runs.",
		}),
		ServersChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qremote",
			Subsystem: "notifier",
			Name:      "servers_checked_total",
			Help:      "Servers whose torrent list was compared against the last check.",
		}),
		ServersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qremote",
			Subsystem: "notifier",
			Name:      "servers_skipped_total",
			Help:      "Servers skipped during a run, by reason.",
		}, []string{"reason"}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qremote",
			Subsystem: "notifier",
			Name:      "notifications_total",
			Help:      "Notifications raised.",
		}),
	}
}
