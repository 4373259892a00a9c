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

// Package rsm tracks a RecoveryCohort's lifecycle past the point where
// RecoveryDriver hands off to normal actor operation: the same cohort
// instance a recovery run drove through StartLogRecoveryBatch /
// AppendRecoveredLogEntry / ApplyCurrentLogRecoveryBatch keeps being
// used afterwards by the step worker (applying newly committed
// entries) and the snapshot worker (concurrent capture), and must not
// be closed until every one of them has released it. This is adapted
// from dragonboat's internal/rsm.OffloadedStatus/From bookkeeping,
// which does the same job for dragonboat's own managed state machines.
package rsm

import "github.com/lni/raftrecovery/internal/logger"

var plog = logger.GetLogger("rsm")

// From identifies the system component releasing or acquiring a
// cohort.
type From uint64

const (
	// FromActor indicates the cohort was offloaded from the owning
	// actor itself (recovery, or a manual shutdown). The actor holds
	// the cohort from the start and never reports a load: SetLoaded
	// panics on FromActor.
	FromActor From = iota
	// FromStepWorker indicates the cohort was loaded by or offloaded
	// from the worker applying newly committed entries.
	FromStepWorker
	// FromSnapshotWorker indicates the cohort was loaded by or
	// offloaded from the worker taking concurrent snapshots.
	FromSnapshotWorker
)

// OffloadedStatus tracks whether a managed cohort has been released by
// every component that can hold a reference to it, so it is only
// closed once no one needs it anymore.
type OffloadedStatus struct {
	readyToDestroy       bool
	destroyed            bool
	offloadedFromActor   bool
	offloadedFromStep    bool
	offloadedFromSnap    bool
	loadedByStepWorker   bool
	loadedBySnapWorker   bool
}

// ReadyToDestroy reports whether every component that can hold this
// cohort has released it.
func (o *OffloadedStatus) ReadyToDestroy() bool { return o.readyToDestroy }

// Destroyed reports whether the cohort has already been closed.
func (o *OffloadedStatus) Destroyed() bool { return o.destroyed }

// SetDestroyed marks the cohort as closed.
func (o *OffloadedStatus) SetDestroyed() { o.destroyed = true }

// SetLoaded marks the cohort as loaded by from.
func (o *OffloadedStatus) SetLoaded(from From) {
	if o.offloadedFromActor {
		if from == FromStepWorker || from == FromSnapshotWorker {
			plog.Panicf("loaded from %v after offloaded from actor", from)
		}
	}
	switch from {
	case FromActor:
		panic("not supposed to get a loaded notification from the actor")
	case FromStepWorker:
		o.loadedByStepWorker = true
	case FromSnapshotWorker:
		o.loadedBySnapWorker = true
	default:
		panic("unknown From value")
	}
}

// SetOffloaded marks the cohort as offloaded from from. Once the actor
// itself has offloaded and every worker that ever loaded the cohort
// has also offloaded it, ReadyToDestroy becomes true.
func (o *OffloadedStatus) SetOffloaded(from From) {
	switch from {
	case FromActor:
		o.offloadedFromActor = true
		if !o.loadedByStepWorker {
			o.offloadedFromStep = true
		}
		if !o.loadedBySnapWorker {
			o.offloadedFromSnap = true
		}
	case FromStepWorker:
		o.offloadedFromStep = true
	case FromSnapshotWorker:
		o.offloadedFromSnap = true
	default:
		panic("unknown From value")
	}
	if o.offloadedFromActor && o.offloadedFromStep && o.offloadedFromSnap {
		o.readyToDestroy = true
	}
}
