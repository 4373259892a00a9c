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

package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lni/raftrecovery/raftpb"
)

func TestCaptureRefusedWhileCapturing(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	m := New(func(raftpb.EntryMeta, int64) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}, nil).(*manager)
	defer func() { close(release); m.Close() }()

	require.True(t, m.Capture(raftpb.EntryMeta{Index: 1}, -1))
	<-started
	require.True(t, m.IsCapturing())
	require.False(t, m.Capture(raftpb.EntryMeta{Index: 2}, -1))
}

func TestCaptureAvailableAfterCompletion(t *testing.T) {
	done := make(chan struct{})
	var once sync.Once
	m := New(func(raftpb.EntryMeta, int64) error {
		once.Do(func() { close(done) })
		return nil
	}, nil).(*manager)
	defer m.Close()

	require.True(t, m.Capture(raftpb.EntryMeta{Index: 1}, -1))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("capture never ran")
	}
	require.Eventually(t, func() bool { return !m.IsCapturing() }, time.Second, time.Millisecond)
	require.True(t, m.Capture(raftpb.EntryMeta{Index: 2}, -1))
}

func TestApplyDelegatesToApplyFunc(t *testing.T) {
	var got ApplySnapshot
	m := New(nil, func(req ApplySnapshot) error {
		got = req
		return nil
	}).(*manager)
	defer m.Close()

	snap := raftpb.Snapshot{LastIndex: 7}
	require.NoError(t, m.Apply(ApplySnapshot{Snapshot: snap}))
	require.Equal(t, int64(7), got.Snapshot.LastIndex)
}
