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

// Package raftpb defines the data types shared between the recovery
// engine and its persistence provider / cohort collaborators: election
// term info, log entries, the payload taxonomy, and snapshots.
package raftpb

// NoLeader is the NodeID value used when no leader is known.
const NoLeader uint64 = 0

// NodeID identifies a member of the raft cluster.
type NodeID uint64

// TermInfo is the election term and the candidate this node voted for
// in that term, if any.
type TermInfo struct {
	Term     uint64
	VotedFor NodeID
	HasVote  bool
}

// PayloadKind classifies a Payload.
type PayloadKind int

const (
	// ApplicationData is an opaque command destined for the cohort.
	ApplicationData PayloadKind = iota
	// ServerConfiguration carries a cluster membership change.
	ServerConfiguration
	// NoOp is the empty entry a new leader appends on taking office.
	NoOp
)

// String returns a human readable name for the payload kind.
func (k PayloadKind) String() string {
	switch k {
	case ApplicationData:
		return "application-data"
	case ServerConfiguration:
		return "server-configuration"
	case NoOp:
		return "no-op"
	default:
		return "unknown"
	}
}

// ServerConfig is the membership carried by a ServerConfiguration
// payload: the voting and non-voting members of the cluster.
type ServerConfig struct {
	Voting    map[NodeID]struct{}
	NonVoting map[NodeID]struct{}
}

// NewServerConfig returns an empty ServerConfig ready for use.
func NewServerConfig() ServerConfig {
	return ServerConfig{
		Voting:    make(map[NodeID]struct{}),
		NonVoting: make(map[NodeID]struct{}),
	}
}

// Clone returns a deep copy of the config.
func (c ServerConfig) Clone() ServerConfig {
	n := NewServerConfig()
	for id := range c.Voting {
		n.Voting[id] = struct{}{}
	}
	for id := range c.NonVoting {
		n.NonVoting[id] = struct{}{}
	}
	return n
}

// Payload is a tagged variant of the data carried by a log entry.
// isPersistent and isMigratedFormat are markers, not payload content -
// they are read by the recovery driver while replaying the journal and
// never by the cohort.
type Payload struct {
	Kind             PayloadKind
	Data             []byte
	Config           ServerConfig
	isPersistent     bool
	isMigratedFormat bool
}

// NewApplicationPayload returns an ApplicationData payload.
func NewApplicationPayload(data []byte, persistent bool) Payload {
	return Payload{Kind: ApplicationData, Data: data, isPersistent: persistent}
}

// NewServerConfigPayload returns a ServerConfiguration payload.
func NewServerConfigPayload(cfg ServerConfig, persistent bool) Payload {
	return Payload{Kind: ServerConfiguration, Config: cfg, isPersistent: persistent}
}

// NewNoOpPayload returns a NoOp payload.
func NewNoOpPayload(persistent bool) Payload {
	return Payload{Kind: NoOp, isPersistent: persistent}
}

// IsPersistent reports whether this payload was written with
// persistence enabled.
func (p Payload) IsPersistent() bool { return p.isPersistent }

// IsMigratedFormat reports whether this payload was serialized in an
// older, superseded wire format.
func (p Payload) IsMigratedFormat() bool { return p.isMigratedFormat }

// WithMigratedFormat returns a copy of p marked as migrated-format.
// Used by tests and by persistence providers that detect legacy
// encodings while decoding the journal.
func (p Payload) WithMigratedFormat() Payload {
	p.isMigratedFormat = true
	return p
}

// IsServerConfig reports whether this payload is a membership change.
func (p Payload) IsServerConfig() bool { return p.Kind == ServerConfiguration }

// EntryMeta identifies a position in the log by index and term.
type EntryMeta struct {
	Index uint64
	Term  uint64
}

// ReplicatedLogEntry is one entry in the replicated log.
type ReplicatedLogEntry struct {
	Index   uint64
	Term    uint64
	Payload Payload
	Size    uint64
}

// Meta returns the EntryMeta identifying this entry's position.
func (e ReplicatedLogEntry) Meta() EntryMeta {
	return EntryMeta{Index: e.Index, Term: e.Term}
}

// SnapshotState is the application-defined state captured by a
// snapshot. The Empty state (Empty() == true, built by
// EmptySnapshotState) represents no application state at all - the
// state after persistence-disabled cleanup or before any data has ever
// been written. The zero value is not Empty: it is a non-empty state
// with a nil Blob.
type SnapshotState struct {
	empty          bool
	Blob           []byte
	needsMigration bool
}

// EmptySnapshotState returns the Empty snapshot state.
func EmptySnapshotState() SnapshotState {
	return SnapshotState{empty: true}
}

// NewSnapshotState returns a non-empty snapshot state wrapping blob.
func NewSnapshotState(blob []byte, needsMigration bool) SnapshotState {
	return SnapshotState{Blob: blob, needsMigration: needsMigration}
}

// Empty reports whether this is the Empty snapshot state.
func (s SnapshotState) Empty() bool { return s.empty }

// NeedsMigration reports whether this snapshot was captured in an
// older format that must be re-persisted in the current format.
func (s SnapshotState) NeedsMigration() bool { return s.needsMigration }

// Snapshot is a point-in-time capture of consensus and application
// state: everything the recovery engine needs to resume without
// replaying the full journal from the beginning.
type Snapshot struct {
	State             SnapshotState
	UnappliedEntries  []ReplicatedLogEntry
	LastIndex         int64
	LastTerm          int64
	LastAppliedIndex  int64
	LastAppliedTerm   int64
	TermInfo          TermInfo
	ServerConfig      *ServerConfig
	ElectionVotes     map[NodeID]bool
}

// NoSnapshotIndex is the LastIndex/LastAppliedIndex value used for a
// synthesized snapshot that anchors an empty log (see §4.1/§4.3 of
// SPEC_FULL.md: the scrubbed persistence-inapplicable snapshot and the
// empty wipe-and-snapshot both use this).
const NoSnapshotIndex int64 = -1

// Scrub returns a snapshot with Empty state, no unapplied entries, and
// indices reset to NoSnapshotIndex, preserving only term info and
// server config. Used both when the persistence provider reports
// recovery is not applicable (§4.1 step 1) and when building the
// wipe-and-snapshot terminal snapshot (§4.3 path A).
func Scrub(termInfo TermInfo, cfg *ServerConfig) Snapshot {
	return Snapshot{
		State:            EmptySnapshotState(),
		UnappliedEntries: nil,
		LastIndex:        NoSnapshotIndex,
		LastTerm:         NoSnapshotIndex,
		LastAppliedIndex: NoSnapshotIndex,
		LastAppliedTerm:  NoSnapshotIndex,
		TermInfo:         termInfo,
		ServerConfig:     cfg,
	}
}
