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

// Package raftrecovery defines the two interfaces the recovery engine
// is built against: RecoveryCohort, the application-side consumer of
// replayed state, and PersistenceProvider, the journal/snapshot store.
// Concrete implementations live in internal/persistence and in
// whatever package embeds this engine; the engine itself (package
// internal/recovery) depends only on these contracts.
package raftrecovery

import "github.com/lni/raftrecovery/raftpb"

// RecoveryCohort is the application-side consumer of recovered state.
// The recovery driver drives it through a well-formed sequence of
// calls: StartLogRecoveryBatch, then zero or more
// AppendRecoveredLogEntry, then ApplyCurrentLogRecoveryBatch, with no
// overlap across batches (§5 of SPEC_FULL.md).
type RecoveryCohort interface {
	// StartLogRecoveryBatch begins a new replay batch of at most
	// maxBatchSize entries.
	StartLogRecoveryBatch(maxBatchSize uint32)
	// AppendRecoveredLogEntry adds one recovered payload to the
	// current batch. Never called for ServerConfiguration payloads -
	// those are applied directly to cluster membership and are not
	// replayed through the cohort (§9 "ServerConfiguration
	// double-path").
	AppendRecoveredLogEntry(payload raftpb.Payload)
	// ApplyCurrentLogRecoveryBatch applies every entry accumulated
	// since the last StartLogRecoveryBatch and closes the batch.
	ApplyCurrentLogRecoveryBatch()
	// ApplyRecoverySnapshot installs application state captured in a
	// snapshot offered at the start of recovery.
	ApplyRecoverySnapshot(state raftpb.SnapshotState)
	// GetRestoreFromSnapshot returns an operator-supplied snapshot to
	// restore from, or (zero value, false) if none was requested.
	// Consulted only at RecoveryCompleted, and only applied when no
	// data was recovered from the journal (§4.3 path C).
	GetRestoreFromSnapshot() (raftpb.Snapshot, bool)
}

// PersistenceProvider is the journal + snapshot store the recovery
// engine replays from and, at completion, may instruct to save a
// snapshot or delete a journal prefix.
type PersistenceProvider interface {
	// IsRecoveryApplicable reports whether persisted state should be
	// treated as authoritative. False means persistence is configured
	// off and any data found in the journal is stale evidence to be
	// cleaned up, not replayed (§4.1, §4.3 path A).
	IsRecoveryApplicable() bool
	// SaveSnapshot enqueues snap for durable storage. The call returns
	// once the write is enqueued; completion is asynchronous.
	SaveSnapshot(snap raftpb.Snapshot) error
	// DeleteMessages drops journal entries up to and including
	// sequenceNumber.
	DeleteMessages(sequenceNumber uint64) error
	// LastSequenceNumber returns the highest sequence number written
	// to the journal so far.
	LastSequenceNumber() uint64
}
