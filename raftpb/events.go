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

package raftpb

// EventKind tags a RecoveryEvent. It is a closed sum type over the
// seven recovery-stream variants plus Unknown, replacing the
// class-hierarchy-based dispatch of the source this engine is derived
// from (see SPEC_FULL.md Design Notes).
type EventKind int

const (
	// Unknown is the zero value; offer() no-ops on it rather than
	// panicking, so a persistence runtime can widen the event set
	// without breaking old recovery engines mid-rollout.
	Unknown EventKind = iota
	EventSnapshotOffer
	EventLogEntry
	EventApplyJournalEntries
	EventDeleteEntries
	EventServerConfiguration
	EventUpdateElectionTerm
	EventRecoveryCompleted
)

// RecoveryEvent is one element of the persisted recovery stream
// replayed by RecoveryDriver.Offer. Exactly one of the typed fields
// below is meaningful, selected by Kind.
type RecoveryEvent struct {
	Kind EventKind

	Snapshot *Snapshot // EventSnapshotOffer

	Entry *ReplicatedLogEntry // EventLogEntry

	ApplyToIndex uint64 // EventApplyJournalEntries

	DeleteFromIndex uint64 // EventDeleteEntries

	ServerConfig *ServerConfig // EventServerConfiguration

	TermInfo *TermInfo // EventUpdateElectionTerm
}

// SnapshotOffer builds an EventSnapshotOffer event.
func SnapshotOffer(s *Snapshot) RecoveryEvent {
	return RecoveryEvent{Kind: EventSnapshotOffer, Snapshot: s}
}

// LogEntry builds an EventLogEntry event.
func LogEntry(e *ReplicatedLogEntry) RecoveryEvent {
	return RecoveryEvent{Kind: EventLogEntry, Entry: e}
}

// ApplyJournalEntries builds an EventApplyJournalEntries event.
func ApplyJournalEntries(toIndex uint64) RecoveryEvent {
	return RecoveryEvent{Kind: EventApplyJournalEntries, ApplyToIndex: toIndex}
}

// DeleteEntries builds an EventDeleteEntries event.
func DeleteEntries(fromIndex uint64) RecoveryEvent {
	return RecoveryEvent{Kind: EventDeleteEntries, DeleteFromIndex: fromIndex}
}

// ServerConfigurationEvent builds a bare EventServerConfiguration event.
func ServerConfigurationEvent(cfg *ServerConfig) RecoveryEvent {
	return RecoveryEvent{Kind: EventServerConfiguration, ServerConfig: cfg}
}

// UpdateElectionTerm builds an EventUpdateElectionTerm event.
func UpdateElectionTerm(ti *TermInfo) RecoveryEvent {
	return RecoveryEvent{Kind: EventUpdateElectionTerm, TermInfo: ti}
}

// RecoveryCompleted builds the terminal EventRecoveryCompleted event.
func RecoveryCompleted() RecoveryEvent {
	return RecoveryEvent{Kind: EventRecoveryCompleted}
}

// IsMigratedFormat reports whether this event carries a payload marked
// as a migrated (legacy) format. Only SnapshotOffer (via its snapshot
// state) and LogEntry (via its payload) carry the marker; all other
// events report false.
func (e RecoveryEvent) IsMigratedFormat() bool {
	switch e.Kind {
	case EventSnapshotOffer:
		return e.Snapshot != nil && e.Snapshot.State.NeedsMigration()
	case EventLogEntry:
		return e.Entry != nil && e.Entry.Payload.IsMigratedFormat()
	default:
		return false
	}
}
