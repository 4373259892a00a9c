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

package main

import (
	"fmt"

	"github.com/lni/raftrecovery/raftpb"
)

// stdoutCohort is a demo RecoveryCohort that prints every call it
// receives instead of applying them to real application state. It
// exists to drive the engine as a real binary (§11 of SPEC_FULL.md);
// production embedders supply their own RecoveryCohort.
type stdoutCohort struct {
	restore     *raftpb.Snapshot
	batchSize   uint32
	batchCount  uint32
	batchNumber int
}

func newStdoutCohort(restore *raftpb.Snapshot) *stdoutCohort {
	return &stdoutCohort{restore: restore}
}

func (c *stdoutCohort) StartLogRecoveryBatch(maxBatchSize uint32) {
	c.batchSize = maxBatchSize
	c.batchCount = 0
	c.batchNumber++
	fmt.Printf("  batch %d: start (max size %d)\n", c.batchNumber, maxBatchSize)
}

func (c *stdoutCohort) AppendRecoveredLogEntry(payload raftpb.Payload) {
	c.batchCount++
	fmt.Printf("  batch %d: append %s entry (%d bytes)\n", c.batchNumber, payload.Kind, len(payload.Data))
}

func (c *stdoutCohort) ApplyCurrentLogRecoveryBatch() {
	fmt.Printf("  batch %d: applied %d entries\n", c.batchNumber, c.batchCount)
}

func (c *stdoutCohort) ApplyRecoverySnapshot(state raftpb.SnapshotState) {
	fmt.Printf("  applied recovery snapshot (migration needed: %v)\n", state.NeedsMigration())
}

func (c *stdoutCohort) GetRestoreFromSnapshot() (raftpb.Snapshot, bool) {
	if c.restore == nil {
		return raftpb.Snapshot{}, false
	}
	return *c.restore, true
}
