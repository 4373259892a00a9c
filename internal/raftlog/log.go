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

// Package raftlog implements ReplicatedLog: an append-only,
// truncatable, snapshot-anchored sequence of log entries.
package raftlog

import (
	"fmt"

	"github.com/lni/raftrecovery/internal/logger"
	"github.com/lni/raftrecovery/raftpb"
)

var plog = logger.GetLogger("raftlog")

// ErrOutOfOrder is the error text of the panic Append raises when the
// entry's index does not immediately follow the log's current last index.
var ErrOutOfOrder = fmt.Errorf("raftlog: entry index out of order")

// ErrBeforeSnapshot is the error text of the panic RemoveFrom raises
// when asked to truncate at or before the log's snapshot index.
var ErrBeforeSnapshot = fmt.Errorf("raftlog: truncation index at or before snapshot")

// Log is a dense, snapshot-anchored sequence of ReplicatedLogEntry
// values. Entries are contiguous in Index starting at
// snapshotIndex+1; Term is non-decreasing with increasing Index.
//
// Log is not safe for concurrent use; the recovery driver and,
// afterwards, the single-threaded actor dispatch loop are its only
// callers.
type Log struct {
	snapshotIndex int64
	snapshotTerm  int64
	entries       []raftpb.ReplicatedLogEntry
}

// New returns an empty log anchored at snapshotIndex/snapshotTerm.
func New(snapshotIndex, snapshotTerm int64) *Log {
	return &Log{snapshotIndex: snapshotIndex, snapshotTerm: snapshotTerm}
}

// NewFromSnapshot constructs a log seeded from snap.UnappliedEntries,
// anchored at snap.LastIndex/snap.LastTerm, per §4.2 of SPEC_FULL.md.
func NewFromSnapshot(snap raftpb.Snapshot) *Log {
	l := New(snap.LastIndex, snap.LastTerm)
	if len(snap.UnappliedEntries) > 0 {
		l.entries = append(l.entries, snap.UnappliedEntries...)
	}
	return l
}

// Append adds entry to the end of the log. entry.Index must equal
// LastIndex()+1 (or SnapshotIndex()+1 for an empty log); any other
// index is a programmer error - the caller violated the contiguity
// invariant the rest of the engine relies on - and Append panics
// rather than silently corrupting the log.
func (l *Log) Append(entry raftpb.ReplicatedLogEntry) {
	want := l.LastIndex() + 1
	if entry.Index != uint64(want) {
		plog.Panicf("%v: append out of order, got index %d, want %d",
			ErrOutOfOrder, entry.Index, want)
	}
	l.entries = append(l.entries, entry)
}

// RemoveFrom drops all entries with Index >= index. It is a no-op when
// index is past the current last index, and idempotent when called
// repeatedly. Calling it at or before the snapshot index is a
// programmer error, since that data can no longer be represented by
// this log; RemoveFrom panics rather than silently doing nothing.
func (l *Log) RemoveFrom(index uint64) {
	if int64(index) <= l.snapshotIndex {
		plog.Panicf("%v: removeFrom(%d) at or before snapshot index %d",
			ErrBeforeSnapshot, index, l.snapshotIndex)
	}
	if int64(index) > l.LastIndex() {
		return
	}
	pos := index - uint64(l.snapshotIndex) - 1
	l.entries = l.entries[:pos]
}

// Get returns the entry at index and true, or the zero entry and false
// if index is outside (snapshotIndex, lastIndex].
func (l *Log) Get(index uint64) (raftpb.ReplicatedLogEntry, bool) {
	if int64(index) <= l.snapshotIndex || int64(index) > l.LastIndex() {
		return raftpb.ReplicatedLogEntry{}, false
	}
	pos := index - uint64(l.snapshotIndex) - 1
	return l.entries[pos], true
}

// Size returns the number of entries held in the log.
func (l *Log) Size() int {
	return len(l.entries)
}

// LastIndex returns the index of the last entry, or the snapshot index
// when the log holds no entries.
func (l *Log) LastIndex() int64 {
	if len(l.entries) == 0 {
		return l.snapshotIndex
	}
	return int64(l.entries[len(l.entries)-1].Index)
}

// LastTerm returns the term of the last entry, or the snapshot term
// when the log holds no entries.
func (l *Log) LastTerm() int64 {
	if len(l.entries) == 0 {
		return l.snapshotTerm
	}
	return int64(l.entries[len(l.entries)-1].Term)
}

// SnapshotIndex returns the index this log is anchored at.
func (l *Log) SnapshotIndex() int64 { return l.snapshotIndex }

// SnapshotTerm returns the term this log is anchored at.
func (l *Log) SnapshotTerm() int64 { return l.snapshotTerm }

// LastMeta returns the EntryMeta of the last entry, or of the snapshot
// anchor when the log holds no entries.
func (l *Log) LastMeta() raftpb.EntryMeta {
	return raftpb.EntryMeta{Index: uint64(l.LastIndex()), Term: uint64(l.LastTerm())}
}
