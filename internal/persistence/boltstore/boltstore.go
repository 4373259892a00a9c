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

// Package boltstore implements a PersistenceProvider backed by
// go.etcd.io/bbolt, for single-node and development deployments that
// want real durability without pebble's background compaction.
package boltstore

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/lni/raftrecovery/internal/persistence/wire"
	"github.com/lni/raftrecovery/raftpb"
)

var (
	snapshotsBucket = []byte("snapshots")
	metaBucket      = []byte("meta")
	lastSeqKey      = []byte("lastseq")
)

// Store is a bbolt-backed PersistenceProvider.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a single-file bolt store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "boltstore: open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(snapshotsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "boltstore: create buckets")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bolt handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsRecoveryApplicable always returns true for a live bolt store.
func (s *Store) IsRecoveryApplicable() bool { return true }

// SaveSnapshot persists snap keyed by its last applied index.
func (s *Store) SaveSnapshot(snap raftpb.Snapshot) error {
	data, err := wire.EncodeSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, "boltstore: encode snapshot")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotsBucket)
		return b.Put(indexKey(uint64(snap.LastAppliedIndex)), data)
	})
}

// DeleteMessages records sequenceNumber as the store's sequence mark.
// boltstore has no separate journal bucket of its own (the journal is
// owned by the out-of-scope persistence runtime, per §6), so no entries
// are removed; only the mark that LastSequenceNumber reports is
// written.
func (s *Store) DeleteMessages(sequenceNumber uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		return b.Put(lastSeqKey, indexKey(sequenceNumber))
	})
}

// LastSequenceNumber returns the sequence number passed to the most
// recent DeleteMessages call, or 0 if it was never called.
func (s *Store) LastSequenceNumber() uint64 {
	var seq uint64
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		v := b.Get(lastSeqKey)
		if v != nil {
			seq = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return seq
}

// LoadLatestSnapshot returns the saved snapshot with the highest key,
// if any. Keys are the last applied index as an unsigned integer, so a
// snapshot saved with LastAppliedIndex NoSnapshotIndex sorts last.
func (s *Store) LoadLatestSnapshot() (raftpb.Snapshot, bool, error) {
	var (
		snap  raftpb.Snapshot
		found bool
		err   error
	)
	viewErr := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotsBucket)
		c := b.Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		found = true
		snap, err = wire.DecodeSnapshot(v)
		return err
	})
	if viewErr != nil {
		return raftpb.Snapshot{}, false, errors.Wrap(viewErr, "boltstore: load latest snapshot")
	}
	return snap, found, nil
}

func indexKey(index uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, index)
	return b
}
