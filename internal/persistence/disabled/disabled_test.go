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

package disabled

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

func TestProviderNeverApplicable(t *testing.T) {
	p := New(42)
	require.False(t, p.IsRecoveryApplicable())
	require.Equal(t, uint64(42), p.LastSequenceNumber())

	require.NoError(t, p.SaveSnapshot(raftpb.Snapshot{LastAppliedIndex: -1}))
	require.NoError(t, p.DeleteMessages(42))

	require.Len(t, p.Saved, 1)
	require.Equal(t, []uint64{42}, p.DeletedUpTo)
}
