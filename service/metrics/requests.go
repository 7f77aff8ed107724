// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "walletkit"

// Requests records the requests made to the blockchain database.
type Requests struct {
	count    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRequests creates the request metrics on the given registerer.
func NewRequests(reg prometheus.Registerer) *Requests {

	countOpts := prometheus.CounterOpts{
		Name:      "bdb_requests_total",
		Namespace: namespace,
		Help:      "number of blockchain database request attempts",
	}
	count := promauto.With(reg).NewCounterVec(countOpts, []string{"operation", "outcome"})

	durationOpts := prometheus.HistogramOpts{
		Name:      "bdb_request_duration_seconds",
		Namespace: namespace,
		Help:      "duration of blockchain database request attempts",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}
	duration := promauto.With(reg).NewHistogramVec(durationOpts, []string{"operation"})

	r := Requests{
		count:    count,
		duration: duration,
	}

	return &r
}

func (r *Requests) Request(operation string, outcome string, duration time.Duration) {
	r.count.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
