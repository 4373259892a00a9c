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

package pebblestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

func TestSaveAndLoadLatestSnapshot(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.True(t, store.IsRecoveryApplicable())

	snap := raftpb.Snapshot{
		State:            raftpb.NewSnapshotState([]byte("state-1"), false),
		LastIndex:        10,
		LastTerm:         2,
		LastAppliedIndex: 10,
		LastAppliedTerm:  2,
		TermInfo:         raftpb.TermInfo{Term: 2},
	}
	require.NoError(t, store.SaveSnapshot(snap))

	loaded, ok, err := store.LoadLatestSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.LastAppliedIndex, loaded.LastAppliedIndex)
	require.Equal(t, []byte("state-1"), loaded.State.Blob)
	require.False(t, loaded.State.Empty())
}

func TestDeleteMessagesAdvancesLastSequenceNumber(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, uint64(0), store.LastSequenceNumber())
	require.NoError(t, store.DeleteMessages(7))
	require.Equal(t, uint64(7), store.LastSequenceNumber())
	// Idempotent: deleting the same bound again does not error.
	require.NoError(t, store.DeleteMessages(7))
}
