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

// Package disabled implements a PersistenceProvider whose recovery is
// never applicable - a deployment running with persistence turned off
// entirely. Its sole purpose is exercising path A (wipe-and-snapshot)
// end to end without any real storage backend.
package disabled

import "github.com/lni/raftrecovery/raftpb"

// Provider is a PersistenceProvider that always reports recovery as
// not applicable. SaveSnapshot and DeleteMessages still record their
// arguments so callers (tests, the CLI) can confirm path A ran.
type Provider struct {
	Saved       []raftpb.Snapshot
	DeletedUpTo []uint64
	lastSeq     uint64
}

// New returns a Provider seeded with lastSeq as its LastSequenceNumber.
func New(lastSeq uint64) *Provider {
	return &Provider{lastSeq: lastSeq}
}

// IsRecoveryApplicable always returns false.
func (p *Provider) IsRecoveryApplicable() bool { return false }

// SaveSnapshot records snap and succeeds unconditionally.
func (p *Provider) SaveSnapshot(snap raftpb.Snapshot) error {
	p.Saved = append(p.Saved, snap)
	return nil
}

// DeleteMessages records sequenceNumber and succeeds unconditionally.
func (p *Provider) DeleteMessages(sequenceNumber uint64) error {
	p.DeletedUpTo = append(p.DeletedUpTo, sequenceNumber)
	return nil
}

// LastSequenceNumber returns the sequence number this provider was
// constructed with.
func (p *Provider) LastSequenceNumber() uint64 { return p.lastSeq }
