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

// Package recoverytest provides fake RecoveryCohort, Provider and
// SnapshotManager implementations that record call sequences, for
// asserting §8 of SPEC_FULL.md's testable properties against
// internal/recovery.Driver without any real storage or threading.
package recoverytest

import (
	"fmt"

	"github.com/lni/raftrecovery/internal/snapshot"
	"github.com/lni/raftrecovery/raftpb"
)

// Call is one recorded call made by the driver to the cohort.
type Call struct {
	Name    string
	Payload raftpb.Payload
	Size    uint32
}

func (c Call) String() string {
	if c.Name == "AppendRecoveredLogEntry" {
		return fmt.Sprintf("%s(%v)", c.Name, c.Payload.Kind)
	}
	return c.Name
}

// Cohort is a fake RecoveryCohort recording every call it receives.
type Cohort struct {
	Calls              []Call
	AppliedSnapshots   []raftpb.SnapshotState
	RestoreSnapshot    *raftpb.Snapshot
	inBatch            bool
	lastBatchSize      uint32
}

// SetRestoreFromSnapshot configures GetRestoreFromSnapshot to return
// snap, ok.
func (c *Cohort) SetRestoreFromSnapshot(snap raftpb.Snapshot) {
	s := snap
	c.RestoreSnapshot = &s
}

func (c *Cohort) StartLogRecoveryBatch(maxBatchSize uint32) {
	if c.inBatch {
		panic("StartLogRecoveryBatch called while a batch is already open")
	}
	c.inBatch = true
	c.lastBatchSize = maxBatchSize
	c.Calls = append(c.Calls, Call{Name: "StartLogRecoveryBatch", Size: maxBatchSize})
}

func (c *Cohort) AppendRecoveredLogEntry(payload raftpb.Payload) {
	if !c.inBatch {
		panic("AppendRecoveredLogEntry called outside an open batch")
	}
	c.Calls = append(c.Calls, Call{Name: "AppendRecoveredLogEntry", Payload: payload})
}

func (c *Cohort) ApplyCurrentLogRecoveryBatch() {
	if !c.inBatch {
		panic("ApplyCurrentLogRecoveryBatch called without an open batch")
	}
	c.inBatch = false
	c.Calls = append(c.Calls, Call{Name: "ApplyCurrentLogRecoveryBatch"})
}

func (c *Cohort) ApplyRecoverySnapshot(state raftpb.SnapshotState) {
	c.AppliedSnapshots = append(c.AppliedSnapshots, state)
	c.Calls = append(c.Calls, Call{Name: "ApplyRecoverySnapshot"})
}

func (c *Cohort) GetRestoreFromSnapshot() (raftpb.Snapshot, bool) {
	if c.RestoreSnapshot == nil {
		return raftpb.Snapshot{}, false
	}
	return *c.RestoreSnapshot, true
}

// CountCalls returns the number of recorded calls named name.
func (c *Cohort) CountCalls(name string) int {
	n := 0
	for _, call := range c.Calls {
		if call.Name == name {
			n++
		}
	}
	return n
}

// Provider is a fake PersistenceProvider.
type Provider struct {
	Applicable       bool
	SavedSnapshots   []raftpb.Snapshot
	DeletedUpTo      []uint64
	LastSeq          uint64
	SaveSnapshotErr  error
	DeleteMessageErr error
}

func (p *Provider) IsRecoveryApplicable() bool { return p.Applicable }

func (p *Provider) SaveSnapshot(snap raftpb.Snapshot) error {
	if p.SaveSnapshotErr != nil {
		return p.SaveSnapshotErr
	}
	p.SavedSnapshots = append(p.SavedSnapshots, snap)
	return nil
}

func (p *Provider) DeleteMessages(seq uint64) error {
	if p.DeleteMessageErr != nil {
		return p.DeleteMessageErr
	}
	p.DeletedUpTo = append(p.DeletedUpTo, seq)
	return nil
}

func (p *Provider) LastSequenceNumber() uint64 { return p.LastSeq }

// SnapshotManager is a fake snapshot.Manager. Capture always succeeds
// unless RefuseCapture is set, and records every accepted capture and
// every Apply call; refused captures are not recorded.
type SnapshotManager struct {
	RefuseCapture  bool
	Captures       []raftpb.EntryMeta
	Applies        []snapshot.ApplySnapshot
	capturing      bool
	ApplyErr       error
}

func (m *SnapshotManager) IsCapturing() bool { return m.capturing }

func (m *SnapshotManager) Capture(meta raftpb.EntryMeta, replicatedToAllIndex int64) bool {
	if m.RefuseCapture {
		return false
	}
	m.Captures = append(m.Captures, meta)
	return true
}

func (m *SnapshotManager) Apply(req snapshot.ApplySnapshot) error {
	m.Applies = append(m.Applies, req)
	return m.ApplyErr
}
