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

// Package context implements RaftActorContext: the mutable consensus
// state (log, term, commit/last-applied indices, membership) the
// recovery driver reconstructs and hands off to the actor's normal
// operating role once recovery completes.
package context

import (
	"github.com/lni/raftrecovery/internal/logger"
	"github.com/lni/raftrecovery/internal/raftlog"
	"github.com/lni/raftrecovery/internal/snapshot"
	"github.com/lni/raftrecovery/raftpb"
)

var plog = logger.GetLogger("context")

// RaftActorContext is the shared consensus state a RaftActorContext
// exposes to the recovery engine and, afterwards, to the actor's
// normal Follower/Candidate/Leader roles.
type RaftActorContext struct {
	id       raftpb.NodeID
	log      *raftlog.Log
	termInfo raftpb.TermInfo

	lastApplied uint64
	commitIndex uint64

	peers raftpb.ServerConfig

	config          ConfigParams
	snapshotManager snapshot.Manager
	logger          logger.ILogger
}

// New returns a RaftActorContext for node id, configured by config and
// with snapMgr as its SnapshotManager collaborator.
func New(id raftpb.NodeID, config ConfigParams, snapMgr snapshot.Manager) *RaftActorContext {
	return &RaftActorContext{
		id:              id,
		log:             raftlog.New(0, 0),
		peers:           raftpb.NewServerConfig(),
		config:          config,
		snapshotManager: snapMgr,
		logger:          logger.GetLogger("context"),
	}
}

// GetId returns this node's id.
func (c *RaftActorContext) GetId() raftpb.NodeID { return c.id }

// SetReplicatedLog installs log as the context's log, replacing
// whatever log (if any) was previously installed. Used by the
// recovery driver when it seeds a fresh log from a SnapshotOffer.
func (c *RaftActorContext) SetReplicatedLog(log *raftlog.Log) { c.log = log }

// GetReplicatedLog returns the context's current log.
func (c *RaftActorContext) GetReplicatedLog() *raftlog.Log { return c.log }

// SetTermInfo overwrites the current election term info.
func (c *RaftActorContext) SetTermInfo(ti raftpb.TermInfo) { c.termInfo = ti }

// TermInfo returns the current election term info.
func (c *RaftActorContext) TermInfo() raftpb.TermInfo { return c.termInfo }

// SetLastApplied sets the highest log index applied to the cohort.
func (c *RaftActorContext) SetLastApplied(index uint64) { c.lastApplied = index }

// GetLastApplied returns the highest log index applied to the cohort.
func (c *RaftActorContext) GetLastApplied() uint64 { return c.lastApplied }

// SetCommitIndex sets the highest log index known to be committed.
func (c *RaftActorContext) SetCommitIndex(index uint64) { c.commitIndex = index }

// GetCommitIndex returns the highest log index known to be committed.
func (c *RaftActorContext) GetCommitIndex() uint64 { return c.commitIndex }

// UpdatePeerIds replaces cluster membership with cfg. Called both
// while replaying a SnapshotOffer/bare ServerConfiguration event and
// immediately upon seeing a ServerConfiguration log entry, since
// membership changes take effect at the log position regardless of
// whether persistence is currently applicable (§4.1 event 2).
func (c *RaftActorContext) UpdatePeerIds(cfg raftpb.ServerConfig) {
	c.peers = cfg.Clone()
}

// GetPeerServerInfo returns the current member set. When includeSelf
// is false, this node's own id is excluded.
func (c *RaftActorContext) GetPeerServerInfo(includeSelf bool) raftpb.ServerConfig {
	cfg := c.peers.Clone()
	if !includeSelf {
		delete(cfg.Voting, c.id)
		delete(cfg.NonVoting, c.id)
	}
	return cfg
}

// GetSnapshotManager returns the SnapshotManager collaborator.
func (c *RaftActorContext) GetSnapshotManager() snapshot.Manager { return c.snapshotManager }

// GetConfigParams returns the read-only configuration.
func (c *RaftActorContext) GetConfigParams() ConfigParams { return c.config }

// GetLogger returns the context's logger.
func (c *RaftActorContext) GetLogger() logger.ILogger { return c.logger }
