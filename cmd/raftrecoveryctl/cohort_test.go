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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

func TestStdoutCohortTracksBatchAndRestore(t *testing.T) {
	restore := raftpb.Snapshot{LastIndex: 5}
	c := newStdoutCohort(&restore)

	got, ok := c.GetRestoreFromSnapshot()
	require.True(t, ok)
	require.Equal(t, restore, got)

	c.StartLogRecoveryBatch(10)
	c.AppendRecoveredLogEntry(raftpb.NewApplicationPayload([]byte("x"), true))
	require.Equal(t, uint32(1), c.batchCount)
	c.ApplyCurrentLogRecoveryBatch()
}

func TestStdoutCohortNoRestoreByDefault(t *testing.T) {
	c := newStdoutCohort(nil)
	_, ok := c.GetRestoreFromSnapshot()
	require.False(t, ok)
}

func TestOpenProviderDisabledNeverApplicable(t *testing.T) {
	provider, loadLatest, closeFn, err := openProvider("disabled", t.TempDir())
	require.NoError(t, err)
	defer closeFn()

	require.False(t, provider.IsRecoveryApplicable())
	_, ok, err := loadLatest()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenProviderBoltIsRecoveryApplicable(t *testing.T) {
	provider, _, closeFn, err := openProvider("bolt", t.TempDir())
	require.NoError(t, err)
	defer closeFn()

	require.True(t, provider.IsRecoveryApplicable())
}
