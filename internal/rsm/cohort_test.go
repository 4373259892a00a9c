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

package rsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

type fakeCohort struct{ applied int }

func (f *fakeCohort) ApplyRecoverySnapshot(raftpb.SnapshotState) { f.applied++ }

type fakeCloser struct{ closed int }

func (f *fakeCloser) Close() { f.closed++ }

func TestManagedCohortClosesOnlyAfterAllReleased(t *testing.T) {
	c := &fakeCohort{}
	cl := &fakeCloser{}
	m := NewManagedCohort(c, cl)

	m.Loaded(FromStepWorker)
	m.Loaded(FromSnapshotWorker)

	m.Offloaded(FromActor)
	require.False(t, m.Destroyed())
	require.Equal(t, 0, cl.closed)

	m.Offloaded(FromStepWorker)
	require.False(t, m.Destroyed())

	m.Offloaded(FromSnapshotWorker)
	require.True(t, m.Destroyed())
	require.Equal(t, 1, cl.closed)
}

func TestManagedCohortClosesImmediatelyWhenNeverLoadedByWorkers(t *testing.T) {
	c := &fakeCohort{}
	cl := &fakeCloser{}
	m := NewManagedCohort(c, cl)

	m.Offloaded(FromActor)
	require.True(t, m.Destroyed())
	require.Equal(t, 1, cl.closed)
}
