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

// Package wire encodes and decodes raftpb.Snapshot for the persistence
// providers. raftpb.SnapshotState keeps its empty/needsMigration
// markers unexported so callers cannot forge them by hand; this
// package is the one place outside raftpb allowed to reconstruct a
// SnapshotState from its wire representation, via the public
// EmptySnapshotState/NewSnapshotState constructors.
package wire

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/errors"

	"github.com/lni/raftrecovery/raftpb"
)

type snapshotState struct {
	Empty          bool
	Blob           []byte
	NeedsMigration bool
}

type payload struct {
	Kind             raftpb.PayloadKind
	Data             []byte
	Config           raftpb.ServerConfig
	IsPersistent     bool
	IsMigratedFormat bool
}

type logEntry struct {
	Index   uint64
	Term    uint64
	Payload payload
	Size    uint64
}

type snapshot struct {
	State            snapshotState
	UnappliedEntries []logEntry
	LastIndex        int64
	LastTerm         int64
	LastAppliedIndex int64
	LastAppliedTerm  int64
	TermInfo         raftpb.TermInfo
	ServerConfig     *raftpb.ServerConfig
	ElectionVotes    map[raftpb.NodeID]bool
}

func toWirePayload(p raftpb.Payload) payload {
	return payload{
		Kind:             p.Kind,
		Data:             p.Data,
		Config:           p.Config,
		IsPersistent:     p.IsPersistent(),
		IsMigratedFormat: p.IsMigratedFormat(),
	}
}

func fromWirePayload(p payload) raftpb.Payload {
	var out raftpb.Payload
	switch p.Kind {
	case raftpb.ServerConfiguration:
		out = raftpb.NewServerConfigPayload(p.Config, p.IsPersistent)
	case raftpb.NoOp:
		out = raftpb.NewNoOpPayload(p.IsPersistent)
	default:
		out = raftpb.NewApplicationPayload(p.Data, p.IsPersistent)
	}
	if p.IsMigratedFormat {
		out = out.WithMigratedFormat()
	}
	return out
}

// EncodeSnapshot serializes snap for storage.
func EncodeSnapshot(snap raftpb.Snapshot) ([]byte, error) {
	w := snapshot{
		LastIndex:        snap.LastIndex,
		LastTerm:         snap.LastTerm,
		LastAppliedIndex: snap.LastAppliedIndex,
		LastAppliedTerm:  snap.LastAppliedTerm,
		TermInfo:         snap.TermInfo,
		ServerConfig:     snap.ServerConfig,
		ElectionVotes:    snap.ElectionVotes,
	}
	w.State = snapshotState{
		Empty:          snap.State.Empty(),
		Blob:           snap.State.Blob,
		NeedsMigration: snap.State.NeedsMigration(),
	}
	for _, e := range snap.UnappliedEntries {
		w.UnappliedEntries = append(w.UnappliedEntries, logEntry{
			Index:   e.Index,
			Term:    e.Term,
			Payload: toWirePayload(e.Payload),
			Size:    e.Size,
		})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, errors.Wrap(err, "wire: encode snapshot")
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(data []byte) (raftpb.Snapshot, error) {
	var w snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return raftpb.Snapshot{}, errors.Wrap(err, "wire: decode snapshot")
	}
	state := raftpb.EmptySnapshotState()
	if !w.State.Empty {
		state = raftpb.NewSnapshotState(w.State.Blob, w.State.NeedsMigration)
	}
	var entries []raftpb.ReplicatedLogEntry
	for _, e := range w.UnappliedEntries {
		entries = append(entries, raftpb.ReplicatedLogEntry{
			Index:   e.Index,
			Term:    e.Term,
			Payload: fromWirePayload(e.Payload),
			Size:    e.Size,
		})
	}
	return raftpb.Snapshot{
		State:            state,
		UnappliedEntries: entries,
		LastIndex:        w.LastIndex,
		LastTerm:         w.LastTerm,
		LastAppliedIndex: w.LastAppliedIndex,
		LastAppliedTerm:  w.LastAppliedTerm,
		TermInfo:         w.TermInfo,
		ServerConfig:     w.ServerConfig,
		ElectionVotes:    w.ElectionVotes,
	}, nil
}
