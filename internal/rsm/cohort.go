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
	"sync"

	"github.com/lni/raftrecovery/raftpb"
)

// Closer is implemented by a RecoveryCohort that holds resources (file
// handles, in-memory indexes) which must be released once every
// component using it has let go.
type Closer interface {
	Close()
}

// cohort is the minimal slice of raftrecovery.RecoveryCohort that
// ManagedCohort needs; declared locally so this package does not
// import the root package. Any raftrecovery.RecoveryCohort satisfies
// it.
type cohort interface {
	ApplyRecoverySnapshot(state raftpb.SnapshotState)
}

// ManagedCohort wraps a RecoveryCohort with the load/offload tracking
// described in the package doc: recovery loads it, the step and
// snapshot workers load and offload it during normal operation, and it
// is only closed once every one of them has let go.
type ManagedCohort struct {
	mu sync.Mutex
	OffloadedStatus
	cohort cohort
	closer Closer // nil if the cohort does not hold closeable resources
}

// NewManagedCohort wraps c. closer may be nil.
func NewManagedCohort(c cohort, closer Closer) *ManagedCohort {
	return &ManagedCohort{cohort: c, closer: closer}
}

// ApplyRecoverySnapshot forwards to the wrapped cohort.
func (m *ManagedCohort) ApplyRecoverySnapshot(state raftpb.SnapshotState) {
	m.cohort.ApplyRecoverySnapshot(state)
}

// Loaded marks the cohort as loaded by from.
func (m *ManagedCohort) Loaded(from From) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetLoaded(from)
}

// Offloaded marks the cohort as offloaded from from, closing it once
// every loader has released it.
func (m *ManagedCohort) Offloaded(from From) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetOffloaded(from)
	if m.ReadyToDestroy() && !m.Destroyed() {
		if m.closer != nil {
			m.closer.Close()
		}
		m.SetDestroyed()
	}
}
