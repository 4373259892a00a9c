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

// Package recovery implements RecoveryDriver, the event state machine
// described in §4.1-§4.4 of SPEC_FULL.md: it consumes the persisted
// recovery stream one event at a time, reconstructs RaftActorContext,
// batches replayed entries into a RecoveryCohort, opportunistically
// triggers a mid-recovery snapshot, and on RecoveryCompleted picks
// exactly one of three terminal reconciliation paths.
package recovery

import (
	"github.com/cockroachdb/errors"

	"github.com/lni/raftrecovery/internal/context"
	"github.com/lni/raftrecovery/internal/logger"
	"github.com/lni/raftrecovery/internal/metrics"
	"github.com/lni/raftrecovery/internal/raftlog"
	"github.com/lni/raftrecovery/internal/snapshot"
	"github.com/lni/raftrecovery/raftpb"
)

var plog = logger.GetLogger("recovery")

// Cohort is the application-side consumer of replayed state. It is
// declared locally, matching raftrecovery.RecoveryCohort structurally,
// so this package has no import-time dependency on the module root
// (which instead depends only on raftpb, keeping the dependency graph a
// DAG rooted at the interfaces rather than the engine).
type Cohort interface {
	StartLogRecoveryBatch(maxBatchSize uint32)
	AppendRecoveredLogEntry(payload raftpb.Payload)
	ApplyCurrentLogRecoveryBatch()
	ApplyRecoverySnapshot(state raftpb.SnapshotState)
	GetRestoreFromSnapshot() (raftpb.Snapshot, bool)
}

// Provider is the persistence provider collaborator, declared locally
// for the same reason as Cohort above.
type Provider interface {
	IsRecoveryApplicable() bool
	SaveSnapshot(snap raftpb.Snapshot) error
	DeleteMessages(sequenceNumber uint64) error
	LastSequenceNumber() uint64
}

// Driver is the RecoveryDriver state machine (§4.1 of SPEC_FULL.md). A
// Driver is single-use: construct it at actor start, call Offer for
// every event in the persisted stream, in order, until it returns
// true. RaftActorContext and its log outlive the Driver; the Driver
// itself is discarded once Offer reports completion.
type Driver struct {
	ctx     *context.RaftActorContext
	cohort  Cohort
	snapMgr snapshot.Manager
	metrics *metrics.Recorder

	currentBatchCount uint32
	activeBatchSize   uint32

	dataRecoveredWithPersistenceDisabled bool
	anyDataRecovered                     bool
	hasMigratedDataRecovered             bool

	totalTimer *stopwatch
	midTimer   *stopwatch

	done bool
}

// New returns a Driver that will mutate ctx and drive cohort as it
// replays events, using snapMgr for the opportunistic mid-recovery
// snapshot and path B/C of the RecoveryCompleted reconciliation.
// recorder may be nil, in which case metrics are no-ops.
func New(ctx *context.RaftActorContext, cohort Cohort, snapMgr snapshot.Manager, recorder *metrics.Recorder) *Driver {
	return &Driver{
		ctx:     ctx,
		cohort:  cohort,
		snapMgr: snapMgr,
		metrics: recorder,
	}
}

// Offer consumes one persisted recovery event. It returns true exactly
// once, when event is EventRecoveryCompleted; all other events return
// false. Offer must never be called again after it has returned true,
// and events must be delivered in the order the persistence runtime
// produced them - the driver does not reorder or deduplicate.
func (d *Driver) Offer(event raftpb.RecoveryEvent, provider Provider) bool {
	if d.done {
		plog.Panicf("Offer called again after recovery already completed")
	}

	// Per §9's documented ambiguity: anyDataRecovered is updated
	// before the event is classified, so a stray ServerConfiguration
	// event also counts as "data recovered" and will suppress a later
	// operator restore. This is intentional, not a bug - see
	// SPEC_FULL.md §13.
	d.anyDataRecovered = d.anyDataRecovered || event.Kind != raftpb.EventRecoveryCompleted
	d.hasMigratedDataRecovered = d.hasMigratedDataRecovered || event.IsMigratedFormat()

	switch event.Kind {
	case raftpb.EventSnapshotOffer:
		d.onSnapshotOffer(event.Snapshot, provider)
	case raftpb.EventLogEntry:
		d.onLogEntry(event.Entry, provider)
	case raftpb.EventApplyJournalEntries:
		d.onApplyJournalEntries(event.ApplyToIndex, provider)
	case raftpb.EventDeleteEntries:
		d.onDeleteEntries(event.DeleteFromIndex, provider)
	case raftpb.EventServerConfiguration:
		d.ctx.UpdatePeerIds(*event.ServerConfig)
	case raftpb.EventUpdateElectionTerm:
		d.ctx.SetTermInfo(*event.TermInfo)
	case raftpb.EventRecoveryCompleted:
		d.onRecoveryCompleted(provider)
		d.done = true
		return true
	default:
		// Unknown: no-op fallthrough, per the Design Notes' closed sum
		// type with an Unknown variant.
	}
	return false
}

func (d *Driver) onSnapshotOffer(snap *raftpb.Snapshot, provider Provider) {
	if d.metrics != nil {
		d.metrics.Begin()
	}
	d.totalTimer = newStopwatch()
	d.totalTimer.start()
	if d.ctx.GetConfigParams().RecoverySnapshotIntervalSeconds > 0 {
		d.midTimer = newStopwatch()
		d.midTimer.start()
	}

	for _, e := range snap.UnappliedEntries {
		d.hasMigratedDataRecovered = d.hasMigratedDataRecovered || e.Payload.IsMigratedFormat()
	}

	effective := *snap
	if !provider.IsRecoveryApplicable() {
		effective = raftpb.Scrub(snap.TermInfo, snap.ServerConfig)
	}

	d.ctx.SetReplicatedLog(raftlog.NewFromSnapshot(effective))
	d.ctx.SetLastApplied(clampToUint64(effective.LastAppliedIndex))
	d.ctx.SetCommitIndex(clampToUint64(effective.LastAppliedIndex))
	d.ctx.SetTermInfo(effective.TermInfo)

	if effective.State.NeedsMigration() {
		d.hasMigratedDataRecovered = true
	}
	if !effective.State.Empty() {
		d.cohort.ApplyRecoverySnapshot(effective.State)
	}
	if effective.ServerConfig != nil {
		d.ctx.UpdatePeerIds(*effective.ServerConfig)
	}
}

func (d *Driver) onLogEntry(entry *raftpb.ReplicatedLogEntry, provider Provider) {
	if entry.Payload.IsServerConfig() {
		d.ctx.UpdatePeerIds(entry.Payload.Config)
	}
	d.hasMigratedDataRecovered = d.hasMigratedDataRecovered || entry.Payload.IsMigratedFormat()

	if provider.IsRecoveryApplicable() {
		d.ctx.GetReplicatedLog().Append(*entry)
	} else if !entry.Payload.IsPersistent() {
		d.dataRecoveredWithPersistenceDisabled = true
	}
}

func (d *Driver) onApplyJournalEntries(toIndex uint64, provider Provider) {
	if !provider.IsRecoveryApplicable() {
		d.dataRecoveredWithPersistenceDisabled = true
		return
	}

	lastApplied := d.ctx.GetLastApplied()
	i := lastApplied + 1
	for ; i <= toIndex; i++ {
		entry, ok := d.ctx.GetReplicatedLog().Get(i)
		if !ok {
			// A snapshot may have already superseded entries this
			// ApplyJournalEntries still references; this is expected,
			// not a crash-worthy condition (§7).
			plog.Errorf("apply journal entries: index %d missing from log (up to %d), stopping", i, toIndex)
			break
		}
		d.batchRecoveredLogEntry(entry)
		lastApplied = i

		if d.shouldTakeRecoverySnapshot() && !d.snapMgr.IsCapturing() {
			if d.currentBatchCount > 0 {
				d.cohort.ApplyCurrentLogRecoveryBatch()
				d.currentBatchCount = 0
			}
			d.ctx.SetLastApplied(lastApplied)
			d.ctx.SetCommitIndex(lastApplied)
			if d.snapMgr.Capture(entry.Meta(), -1) {
				d.midTimer.reset()
			}
		}
	}
	d.ctx.SetLastApplied(lastApplied)
	d.ctx.SetCommitIndex(lastApplied)
}

func (d *Driver) onDeleteEntries(fromIndex uint64, provider Provider) {
	if provider.IsRecoveryApplicable() {
		d.ctx.GetReplicatedLog().RemoveFrom(fromIndex)
	} else {
		d.dataRecoveredWithPersistenceDisabled = true
	}
}

// batchRecoveredLogEntry implements §4.1's batching discipline.
// ServerConfiguration payloads are skipped: they were already applied
// to context membership in onLogEntry, and replaying them through the
// cohort would double-apply a change that belongs to Raft's own state,
// not application state (§9's "ServerConfiguration double-path").
func (d *Driver) batchRecoveredLogEntry(entry raftpb.ReplicatedLogEntry) {
	if entry.Payload.IsServerConfig() {
		return
	}
	if d.currentBatchCount == 0 {
		d.ensureTotalTimer()
		d.totalTimer.start()
		if d.midTimer == nil && d.ctx.GetConfigParams().RecoverySnapshotIntervalSeconds > 0 {
			d.midTimer = newStopwatch()
			d.midTimer.start()
		}
		d.activeBatchSize = d.ctx.GetConfigParams().JournalRecoveryLogBatchSize
		d.cohort.StartLogRecoveryBatch(d.activeBatchSize)
	}
	d.cohort.AppendRecoveredLogEntry(entry.Payload)
	d.currentBatchCount++
	if d.currentBatchCount == d.activeBatchSize {
		d.cohort.ApplyCurrentLogRecoveryBatch()
		d.currentBatchCount = 0
	}
}

// clampToUint64 converts a snapshot index to the unsigned form
// RaftActorContext stores it in, treating raftpb.NoSnapshotIndex (and
// any other negative value) as "nothing applied yet" rather than
// letting it wrap to a near-max uint64 (§4.1, scrubbed/empty snapshot
// offers).
func clampToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// ensureTotalTimer lazily allocates the total stopwatch for event
// streams that have no SnapshotOffer (the only other place it is
// started), e.g. a cold start whose first events are bare log entries.
func (d *Driver) ensureTotalTimer() {
	if d.totalTimer == nil {
		d.totalTimer = newStopwatch()
	}
}

// shouldTakeRecoverySnapshot reports whether the mid-recovery interval
// has elapsed. It is always false when the mid-recovery timer was
// never started, i.e. RecoverySnapshotIntervalSeconds == 0 (§8 S6).
func (d *Driver) shouldTakeRecoverySnapshot() bool {
	if d.midTimer == nil {
		return false
	}
	interval := d.ctx.GetConfigParams().RecoverySnapshotIntervalSeconds
	return d.midTimer.elapsedSeconds() >= uint64(interval)
}

// onRecoveryCompleted implements §4.3's post-recovery reconciliation:
// flush any open batch, stop both timers, and choose exactly one
// terminal path.
func (d *Driver) onRecoveryCompleted(provider Provider) {
	if d.currentBatchCount > 0 {
		d.cohort.ApplyCurrentLogRecoveryBatch()
		d.currentBatchCount = 0
	}
	if d.totalTimer == nil {
		d.totalTimer = newStopwatch()
	}
	d.totalTimer.stop()
	if d.midTimer != nil {
		d.midTimer.stop()
	}
	elapsed := d.totalTimer.duration()
	plog.Infof("recovery completed in %s", elapsed)

	path := metrics.PathNone
	switch {
	case d.dataRecoveredWithPersistenceDisabled ||
		(d.hasMigratedDataRecovered && !provider.IsRecoveryApplicable()):
		d.wipeAndSnapshot(provider)
		path = metrics.PathWipe
	case d.hasMigratedDataRecovered:
		// Upgrade on-disk format: capture is opportunistic everywhere
		// else in this driver, but here it is the entire point of the
		// path, so its refusal is logged rather than silently ignored.
		if !d.snapMgr.Capture(d.ctx.GetReplicatedLog().LastMeta(), -1) {
			plog.Warningf("migrated-format snapshot capture refused at completion")
		}
		path = metrics.PathCapture
	default:
		if restored := d.maybeRestoreOperatorSnapshot(); restored {
			path = metrics.PathRestore
		}
	}

	if d.metrics != nil {
		d.metrics.Finish(elapsed, path)
	}
}

func (d *Driver) wipeAndSnapshot(provider Provider) {
	cfg := d.ctx.GetPeerServerInfo(true)
	snap := raftpb.Scrub(d.ctx.TermInfo(), &cfg)
	if err := provider.SaveSnapshot(snap); err != nil {
		plog.Errorf("saveSnapshot during wipe-and-snapshot failed: %v", errors.Wrap(err, "recovery"))
		return
	}
	if err := provider.DeleteMessages(provider.LastSequenceNumber()); err != nil {
		plog.Errorf("deleteMessages during wipe-and-snapshot failed: %v", errors.Wrap(err, "recovery"))
	}
}

// maybeRestoreOperatorSnapshot implements path C: apply an
// operator-supplied restore snapshot, but only when nothing was
// recovered from the journal (§4.3, §8 invariant 6). A restore request
// against a non-empty store is discarded with a warning rather than
// silently mixed with recovered data.
func (d *Driver) maybeRestoreOperatorSnapshot() bool {
	restore, ok := d.cohort.GetRestoreFromSnapshot()
	if !ok {
		return false
	}
	if d.anyDataRecovered {
		plog.Warningf("ignoring operator restore snapshot: data was already recovered from the journal")
		return false
	}
	if err := d.snapMgr.Apply(snapshot.ApplySnapshot{Snapshot: restore}); err != nil {
		plog.Errorf("applying operator restore snapshot failed: %v", err)
		return false
	}
	return true
}
