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

package raftlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

func entry(index, term uint64) raftpb.ReplicatedLogEntry {
	return raftpb.ReplicatedLogEntry{Index: index, Term: term}
}

func TestAppendRequiresContiguousIndex(t *testing.T) {
	l := New(-1, -1)
	l.Append(entry(0, 1))
	l.Append(entry(1, 1))
	require.Equal(t, int64(1), l.LastIndex())
	require.Equal(t, 2, l.Size())

	require.Panics(t, func() { l.Append(entry(3, 1)) })
}

func TestGetReturnsEntryOrFalse(t *testing.T) {
	l := New(-1, -1)
	l.Append(entry(0, 1))
	l.Append(entry(1, 1))

	e, ok := l.Get(0)
	require.True(t, ok)
	require.Equal(t, uint64(0), e.Index)

	_, ok = l.Get(2)
	require.False(t, ok)
}

func TestRemoveFromDropsTailAndIsIdempotent(t *testing.T) {
	l := New(-1, -1)
	l.Append(entry(0, 1))
	l.Append(entry(1, 1))
	l.Append(entry(2, 1))

	l.RemoveFrom(1)
	require.Equal(t, int64(0), l.LastIndex())
	require.Equal(t, 1, l.Size())

	// no-op: index is past lastIndex+1
	l.RemoveFrom(5)
	require.Equal(t, int64(0), l.LastIndex())

	// idempotent: calling again with the same boundary changes nothing
	l.RemoveFrom(1)
	require.Equal(t, int64(0), l.LastIndex())
}

func TestRemoveFromBeforeSnapshotPanics(t *testing.T) {
	l := New(5, 1)
	require.Panics(t, func() { l.RemoveFrom(5) })
	require.Panics(t, func() { l.RemoveFrom(3) })
}

func TestSizeInvariant(t *testing.T) {
	l := New(9, 2)
	for i := uint64(10); i < 15; i++ {
		l.Append(entry(i, 2))
	}
	require.Equal(t, l.LastIndex()-l.SnapshotIndex(), int64(l.Size()))
}

func TestNewFromSnapshotAnchors(t *testing.T) {
	snap := raftpb.Snapshot{
		LastIndex: 10,
		LastTerm:  3,
		UnappliedEntries: []raftpb.ReplicatedLogEntry{
			entry(11, 3),
			entry(12, 3),
		},
	}
	l := NewFromSnapshot(snap)
	require.Equal(t, int64(10), l.SnapshotIndex())
	require.Equal(t, int64(12), l.LastIndex())
	require.Equal(t, 2, l.Size())
}
