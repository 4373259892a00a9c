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

package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rcontext "github.com/lni/raftrecovery/internal/context"
	"github.com/lni/raftrecovery/internal/recovery/recoverytest"
	"github.com/lni/raftrecovery/raftpb"
)

// fakeClock lets tests advance a stopwatch's notion of "now" without
// sleeping, since driver_test.go shares package recovery with stopwatch.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func newHarness(batchSize, intervalSeconds uint32) (*Driver, *rcontext.RaftActorContext, *recoverytest.Cohort, *recoverytest.Provider, *recoverytest.SnapshotManager) {
	cohort := &recoverytest.Cohort{}
	provider := &recoverytest.Provider{Applicable: true}
	snapMgr := &recoverytest.SnapshotManager{}
	config := rcontext.NewConfigParams(batchSize, intervalSeconds)
	ctx := rcontext.New(1, config, snapMgr)
	d := New(ctx, cohort, snapMgr, nil)
	return d, ctx, cohort, provider, snapMgr
}

func appEntry(index uint64) raftpb.ReplicatedLogEntry {
	return raftpb.ReplicatedLogEntry{
		Index:   index,
		Term:    1,
		Payload: raftpb.NewApplicationPayload([]byte("x"), true),
	}
}

// S1: cold start, operator restore.
func TestS1ColdStartOperatorRestore(t *testing.T) {
	d, _, cohort, provider, snapMgr := newHarness(10, 0)
	cohort.SetRestoreFromSnapshot(raftpb.Snapshot{LastIndex: 3})

	done := d.Offer(raftpb.RecoveryCompleted(), provider)
	require.True(t, done)

	require.Len(t, snapMgr.Applies, 1)
	require.Equal(t, int64(3), snapMgr.Applies[0].Snapshot.LastIndex)
	require.Empty(t, provider.SavedSnapshots)
	require.Empty(t, snapMgr.Captures)
}

// S2: snapshot + apply.
func TestS2SnapshotAndApply(t *testing.T) {
	d, ctx, cohort, provider, _ := newHarness(10, 0)

	snap := raftpb.Snapshot{
		State:            raftpb.NewSnapshotState([]byte("state"), false),
		LastIndex:        5,
		LastTerm:         1,
		LastAppliedIndex: 5,
		LastAppliedTerm:  1,
	}
	require.False(t, d.Offer(raftpb.SnapshotOffer(&snap), provider))
	e6, e7 := appEntry(6), appEntry(7)
	require.False(t, d.Offer(raftpb.LogEntry(&e6), provider))
	require.False(t, d.Offer(raftpb.LogEntry(&e7), provider))
	require.False(t, d.Offer(raftpb.ApplyJournalEntries(7), provider))
	require.True(t, d.Offer(raftpb.RecoveryCompleted(), provider))

	require.Len(t, cohort.AppliedSnapshots, 1)
	require.Equal(t, 1, cohort.CountCalls("StartLogRecoveryBatch"))
	require.Equal(t, 2, cohort.CountCalls("AppendRecoveredLogEntry"))
	require.Equal(t, 1, cohort.CountCalls("ApplyCurrentLogRecoveryBatch"))
	require.Equal(t, uint64(7), ctx.GetLastApplied())
	require.Equal(t, uint64(7), ctx.GetCommitIndex())
}

// S3: batch boundary.
func TestS3BatchBoundary(t *testing.T) {
	d, _, cohort, provider, _ := newHarness(2, 0)

	e1, e2, e3 := appEntry(1), appEntry(2), appEntry(3)
	d.Offer(raftpb.LogEntry(&e1), provider)
	d.Offer(raftpb.LogEntry(&e2), provider)
	d.Offer(raftpb.LogEntry(&e3), provider)
	d.Offer(raftpb.ApplyJournalEntries(3), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	require.Equal(t, 2, cohort.CountCalls("StartLogRecoveryBatch"))
	require.Equal(t, 2, cohort.CountCalls("ApplyCurrentLogRecoveryBatch"))
}

// S4: persistence disabled with data.
func TestS4PersistenceDisabledWithData(t *testing.T) {
	d, _, _, provider, snapMgr := newHarness(10, 0)
	provider.Applicable = false
	provider.LastSeq = 42

	e1 := raftpb.ReplicatedLogEntry{
		Index:   1,
		Term:    1,
		Payload: raftpb.NewApplicationPayload([]byte("x"), false),
	}
	d.Offer(raftpb.LogEntry(&e1), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	require.Len(t, provider.SavedSnapshots, 1)
	require.True(t, provider.SavedSnapshots[0].State.Empty())
	require.Equal(t, []uint64{42}, provider.DeletedUpTo)
	require.Empty(t, snapMgr.Captures)
}

// S5: migrated data triggers exactly one capture.
func TestS5MigratedDataCapturesOnce(t *testing.T) {
	d, _, _, provider, snapMgr := newHarness(10, 0)

	e1 := raftpb.ReplicatedLogEntry{
		Index:   1,
		Term:    1,
		Payload: raftpb.NewApplicationPayload([]byte("x"), true).WithMigratedFormat(),
	}
	d.Offer(raftpb.LogEntry(&e1), provider)
	d.Offer(raftpb.ApplyJournalEntries(1), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	require.Len(t, snapMgr.Captures, 1)
	require.Empty(t, provider.SavedSnapshots)
}

// S6: mid-recovery snapshot never fires when the interval is disabled.
func TestS6MidRecoveryDisabled(t *testing.T) {
	d, _, _, provider, snapMgr := newHarness(1, 0)

	for i := uint64(1); i <= 50; i++ {
		e := appEntry(i)
		d.Offer(raftpb.LogEntry(&e), provider)
	}
	d.Offer(raftpb.ApplyJournalEntries(50), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	require.Empty(t, snapMgr.Captures)
}

func TestServerConfigurationEntrySkipsCohortButUpdatesMembership(t *testing.T) {
	d, ctx, cohort, provider, _ := newHarness(10, 0)

	cfg := raftpb.NewServerConfig()
	cfg.Voting[2] = struct{}{}
	e1 := raftpb.ReplicatedLogEntry{
		Index:   1,
		Term:    1,
		Payload: raftpb.NewServerConfigPayload(cfg, true),
	}
	d.Offer(raftpb.LogEntry(&e1), provider)
	d.Offer(raftpb.ApplyJournalEntries(1), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	_, voting := ctx.GetPeerServerInfo(true).Voting[2]
	require.True(t, voting)
	require.Equal(t, 0, cohort.CountCalls("AppendRecoveredLogEntry"))
	require.Equal(t, 0, cohort.CountCalls("StartLogRecoveryBatch"))
}

func TestOfferAfterCompletionPanics(t *testing.T) {
	d, _, _, provider, _ := newHarness(10, 0)
	require.True(t, d.Offer(raftpb.RecoveryCompleted(), provider))
	require.Panics(t, func() { d.Offer(raftpb.RecoveryCompleted(), provider) })
}

func TestAnyDataRecoveredSuppressesRestoreOnStrayServerConfig(t *testing.T) {
	d, _, cohort, provider, snapMgr := newHarness(10, 0)
	cohort.SetRestoreFromSnapshot(raftpb.Snapshot{LastIndex: 9})

	cfg := raftpb.NewServerConfig()
	d.Offer(raftpb.ServerConfigurationEvent(&cfg), provider)
	d.Offer(raftpb.RecoveryCompleted(), provider)

	require.Empty(t, snapMgr.Applies)
}

// A snapshot offer that gets scrubbed (persistence not applicable)
// carries LastAppliedIndex == raftpb.NoSnapshotIndex. That must clamp
// to 0, not wrap to a near-max uint64.
func TestScrubbedSnapshotOfferClampsLastAppliedToZero(t *testing.T) {
	d, ctx, _, provider, _ := newHarness(10, 0)
	provider.Applicable = false

	snap := raftpb.Snapshot{
		State:            raftpb.NewSnapshotState([]byte("state"), false),
		LastIndex:        5,
		LastTerm:         1,
		LastAppliedIndex: 5,
		LastAppliedTerm:  1,
	}
	require.False(t, d.Offer(raftpb.SnapshotOffer(&snap), provider))

	require.Equal(t, uint64(0), ctx.GetLastApplied())
	require.Equal(t, uint64(0), ctx.GetCommitIndex())
}

// An accepted mid-recovery capture must flush the open batch before it
// commits lastApplied/commitIndex and captures, so the cohort's applied
// state never lags what the context claims is committed.
func TestMidRecoveryCaptureFlushesOpenBatchFirst(t *testing.T) {
	d, ctx, cohort, provider, snapMgr := newHarness(10, 1)

	fake := &fakeClock{}
	d.totalTimer = newStopwatch()
	d.totalTimer.nowFn = fake.now
	d.totalTimer.start()
	d.midTimer = newStopwatch()
	d.midTimer.nowFn = fake.now
	d.midTimer.start()

	e1, e2, e3 := appEntry(1), appEntry(2), appEntry(3)
	d.Offer(raftpb.LogEntry(&e1), provider)
	d.Offer(raftpb.LogEntry(&e2), provider)
	d.Offer(raftpb.LogEntry(&e3), provider)

	// Elapse the mid-recovery interval before the batch (size 10) would
	// otherwise close on its own.
	fake.advance(2 * time.Second)

	d.Offer(raftpb.ApplyJournalEntries(3), provider)

	require.Len(t, snapMgr.Captures, 1)
	require.Equal(t, 1, cohort.CountCalls("ApplyCurrentLogRecoveryBatch"))
	require.Equal(t, uint64(3), ctx.GetLastApplied())
	require.Equal(t, uint64(3), ctx.GetCommitIndex())

	// The flush closes the batch opened for this apply, so it is recorded
	// after that batch's first StartLogRecoveryBatch.
	flushIdx, startIdx := -1, -1
	for i, call := range cohort.Calls {
		switch call.Name {
		case "ApplyCurrentLogRecoveryBatch":
			flushIdx = i
		case "StartLogRecoveryBatch":
			if startIdx == -1 {
				startIdx = i
			}
		}
	}
	require.GreaterOrEqual(t, flushIdx, startIdx)
	require.Len(t, snapMgr.Captures, 1)
}

func TestMissingJournalEntryStopsWithoutCrashing(t *testing.T) {
	d, ctx, _, provider, _ := newHarness(10, 0)

	e1 := appEntry(1)
	d.Offer(raftpb.LogEntry(&e1), provider)
	// ApplyJournalEntries references index 5, but only index 1 exists.
	require.NotPanics(t, func() { d.Offer(raftpb.ApplyJournalEntries(5), provider) })
	require.Equal(t, uint64(1), ctx.GetLastApplied())
}
