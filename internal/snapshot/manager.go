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

// Package snapshot implements the SnapshotManager collaborator: a
// single background worker that captures snapshots without blocking
// the actor dispatch thread, admitting or refusing capture requests
// synchronously the way dragonboat's offload bookkeeping in
// internal/rsm.OffloadedStatus reports state synchronously while the
// underlying work happens off-thread.
package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/lni/raftrecovery/internal/logger"
	"github.com/lni/raftrecovery/raftpb"
)

var plog = logger.GetLogger("snapshot")

// ApplySnapshot requests that snap be installed as the current state,
// discarding whatever the cohort currently holds. Used for the
// operator-restore terminal path (§4.3 path C).
type ApplySnapshot struct {
	Snapshot raftpb.Snapshot
}

// Manager is the SnapshotManager collaborator consumed by the
// recovery driver (§6 of SPEC_FULL.md).
type Manager interface {
	// IsCapturing reports whether a capture is currently in flight.
	IsCapturing() bool
	// Capture requests a snapshot anchored at meta. It returns
	// whether the request was accepted; refusal is not an error and
	// must not be treated as one (§9 "opportunistic snapshot
	// interaction").
	Capture(meta raftpb.EntryMeta, replicatedToAllIndex int64) bool
	// Apply installs req, used for the operator-restore path.
	Apply(req ApplySnapshot) error
}

// CaptureFunc performs the actual, potentially slow, snapshot write.
// It runs on the manager's background worker goroutine, never on the
// caller of Capture.
type CaptureFunc func(meta raftpb.EntryMeta, replicatedToAllIndex int64) error

// ApplyFunc installs an operator-restore snapshot. It runs
// synchronously on the caller of Apply, matching dragonboat's own
// choice to make restore a blocking operation since it only happens
// once, at startup.
type ApplyFunc func(req ApplySnapshot) error

// manager is the concrete Manager backing production use.
type manager struct {
	capturing int32 // atomic bool
	requests  chan captureRequest
	capture   CaptureFunc
	apply     ApplyFunc

	wg   sync.WaitGroup
	stop chan struct{}
}

type captureRequest struct {
	meta                 raftpb.EntryMeta
	replicatedToAllIndex int64
}

// New returns a Manager whose Capture requests are served by a single
// background worker calling captureFn, and whose Apply calls call
// applyFn directly.
func New(captureFn CaptureFunc, applyFn ApplyFunc) Manager {
	m := &manager{
		requests: make(chan captureRequest, 1),
		capture:  captureFn,
		apply:    applyFn,
		stop:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.captureWorker()
	return m
}

// Close stops the background worker. Safe to call once, typically
// during actor shutdown.
func (m *manager) Close() {
	close(m.stop)
	m.wg.Wait()
}

func (m *manager) IsCapturing() bool {
	return atomic.LoadInt32(&m.capturing) == 1
}

func (m *manager) Capture(meta raftpb.EntryMeta, replicatedToAllIndex int64) bool {
	if !atomic.CompareAndSwapInt32(&m.capturing, 0, 1) {
		return false
	}
	select {
	case m.requests <- captureRequest{meta: meta, replicatedToAllIndex: replicatedToAllIndex}:
		return true
	default:
		// Worker channel is unexpectedly full even though capturing
		// was false a moment ago; refuse rather than block the
		// caller, and release the flag we just took.
		atomic.StoreInt32(&m.capturing, 0)
		return false
	}
}

func (m *manager) Apply(req ApplySnapshot) error {
	return m.apply(req)
}

func (m *manager) captureWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case req := <-m.requests:
			if err := m.capture(req.meta, req.replicatedToAllIndex); err != nil {
				plog.Errorf("snapshot capture at %+v failed: %v", req.meta, err)
			}
			atomic.StoreInt32(&m.capturing, 0)
		}
	}
}
