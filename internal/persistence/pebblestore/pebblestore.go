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

// Package pebblestore implements a PersistenceProvider backed by
// github.com/cockroachdb/pebble, an embedded LSM KV store. Snapshots
// are stored gob-encoded under "snap/<index>" keys; the journal key
// range "jnl/<seq>" is only ever range-deleted by DeleteMessages, never
// written here (journal entries themselves are owned by the
// out-of-scope persistence runtime per §6 of SPEC_FULL.md - this store
// only implements the snapshot/delete half of the PersistenceProvider
// contract).
package pebblestore

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/lni/raftrecovery/internal/logger"
	"github.com/lni/raftrecovery/internal/persistence/wire"
	"github.com/lni/raftrecovery/raftpb"
)

var plog = logger.GetLogger("pebblestore")

const (
	journalPrefix     = "jnl/"
	snapshotPrefix    = "snap/"
	snapshotPrefixEnd = "snap0" // '0' immediately follows '/' in ASCII, bounding the snapshot key range
	lastSeqKey        = "meta/lastseq"
)

// Store is a pebble-backed PersistenceProvider.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble store at dir.
func Open(dir string) (*Store, error) {
	opts := &pebble.Options{}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "pebblestore: open %s", dir)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsRecoveryApplicable always returns true for a live pebble store -
// persistence is enabled whenever the store is open.
func (s *Store) IsRecoveryApplicable() bool { return true }

// SaveSnapshot persists snap under a key keyed by its last applied
// index. It does not touch the sequence mark LastSequenceNumber reads.
func (s *Store) SaveSnapshot(snap raftpb.Snapshot) error {
	data, err := wire.EncodeSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, "pebblestore: encode snapshot")
	}
	key := snapshotKey(uint64(snap.LastAppliedIndex))
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebblestore: set snapshot")
	}
	return nil
}

// LoadLatestSnapshot returns the saved snapshot with the highest key,
// if any, for use by the CLI driver on cold start (§11's replay
// command). Keys are the last applied index as an unsigned integer, so
// a snapshot saved with LastAppliedIndex NoSnapshotIndex sorts last.
func (s *Store) LoadLatestSnapshot() (raftpb.Snapshot, bool, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(snapshotPrefix),
		UpperBound: []byte(snapshotPrefixEnd),
	})
	if err != nil {
		return raftpb.Snapshot{}, false, errors.Wrap(err, "pebblestore: new iter")
	}
	defer iter.Close()

	found := false
	var latest raftpb.Snapshot
	for iter.First(); iter.Valid(); iter.Next() {
		snap, err := wire.DecodeSnapshot(iter.Value())
		if err != nil {
			return raftpb.Snapshot{}, false, errors.Wrap(err, "pebblestore: decode snapshot")
		}
		latest = snap
		found = true
	}
	return latest, found, nil
}

// DeleteMessages issues a range delete over every journal key whose
// sequence number is <= sequenceNumber, matching §6's "idempotent,
// may be retried" contract - pebble's DeleteRange tolerates replay of
// the same bound.
func (s *Store) DeleteMessages(sequenceNumber uint64) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	lower := journalKey(0)
	upper := journalKey(sequenceNumber + 1)
	if err := batch.DeleteRange(lower, upper, nil); err != nil {
		return errors.Wrap(err, "pebblestore: delete range")
	}
	if err := batch.Set([]byte(lastSeqKey), encodeUint64(sequenceNumber), nil); err != nil {
		return errors.Wrap(err, "pebblestore: set last sequence")
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "pebblestore: commit delete batch")
	}
	return nil
}

// LastSequenceNumber returns the sequence number passed to the most
// recent DeleteMessages call, or 0 if DeleteMessages was never called.
func (s *Store) LastSequenceNumber() uint64 {
	v, closer, err := s.db.Get([]byte(lastSeqKey))
	if err != nil {
		if err != pebble.ErrNotFound {
			plog.Errorf("pebblestore: read last sequence: %v", err)
		}
		return 0
	}
	defer closer.Close()
	return decodeUint64(v)
}

func journalKey(seq uint64) []byte {
	return append([]byte(journalPrefix), encodeUint64(seq)...)
}

func snapshotKey(index uint64) []byte {
	return append([]byte(snapshotPrefix), encodeUint64(index)...)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
