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

package recovery

import "time"

// stopwatch is a monotonic elapsed-time counter with start/stop/reset,
// per §4.4 of SPEC_FULL.md. The total recovery stopwatch is started
// exactly once and stopped at RecoveryCompleted; the mid-recovery
// stopwatch is restartable, reset after every accepted capture so the
// interval is measured from the last capture rather than from the
// start of recovery.
type stopwatch struct {
	running    bool
	startedAt  time.Time
	elapsed    time.Duration
	nowFn      func() time.Time
}

func newStopwatch() *stopwatch {
	return &stopwatch{nowFn: time.Now}
}

// start begins timing if the stopwatch is not already running. Calling
// start on a running stopwatch is a no-op, matching §4.4's "started
// lazily on the first substantive event".
func (s *stopwatch) start() {
	if s.running {
		return
	}
	s.running = true
	s.startedAt = s.nowFn()
}

// stop freezes the elapsed duration.
func (s *stopwatch) stop() {
	if !s.running {
		return
	}
	s.elapsed += s.nowFn().Sub(s.startedAt)
	s.running = false
}

// reset clears the elapsed duration and, if the stopwatch was running,
// keeps it running from now - used after an accepted mid-recovery
// capture so the next interval is measured from that capture.
func (s *stopwatch) reset() {
	wasRunning := s.running
	s.elapsed = 0
	if wasRunning {
		s.startedAt = s.nowFn()
	}
}

// elapsedSeconds returns the whole-seconds elapsed duration, including
// time accrued since the stopwatch was last started if it is still
// running.
func (s *stopwatch) elapsedSeconds() uint64 {
	d := s.elapsed
	if s.running {
		d += s.nowFn().Sub(s.startedAt)
	}
	return uint64(d / time.Second)
}

// duration returns the total elapsed duration so far, including time
// accrued since the stopwatch was last started if still running.
func (s *stopwatch) duration() time.Duration {
	d := s.elapsed
	if s.running {
		d += s.nowFn().Sub(s.startedAt)
	}
	return d
}
