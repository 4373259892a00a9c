// Copyright 2024 The raftrecovery Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes recovery-engine Prometheus metrics, in the
// promauto style used throughout the retrieval pack's cdc-sink example
// (internal/staging/stage/metrics.go).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Path names the terminal action §4.3's RecoveryCompleted handler
// took, for the raftrecovery_path_total counter.
type Path string

const (
	PathNone    Path = "none"
	PathWipe    Path = "wipe"
	PathCapture Path = "capture"
	PathRestore Path = "restore"
)

var (
	durationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raftrecovery_duration_seconds",
		Help:    "time spent replaying the recovery event stream, start to RecoveryCompleted",
		Buckets: prometheus.DefBuckets,
	})
	pathTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "raftrecovery_path_total",
		Help: "count of RecoveryCompleted terminal paths taken, by path",
	}, []string{"path"})
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raftrecovery_in_flight",
		Help: "1 while a recovery run is in progress, 0 otherwise",
	})
)

// Recorder records recovery-engine metrics. It holds no state of its
// own, so a zero Recorder behaves the same as one from NewRecorder.
// A nil *Recorder is valid and makes every
// method a no-op, so tests can construct a RecoveryDriver without a
// metrics registry.
type Recorder struct{}

// NewRecorder returns a Recorder backed by the package's registered
// collectors.
func NewRecorder() *Recorder { return &Recorder{} }

// Begin marks a recovery run as started.
func (r *Recorder) Begin() {
	if r == nil {
		return
	}
	inFlight.Set(1)
}

// Finish records the total elapsed duration and which terminal path
// was taken, and clears the in-flight gauge.
func (r *Recorder) Finish(elapsed time.Duration, path Path) {
	if r == nil {
		return
	}
	durationSeconds.Observe(elapsed.Seconds())
	pathTotal.WithLabelValues(string(path)).Inc()
	inFlight.Set(0)
}
