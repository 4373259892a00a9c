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

// Package settings holds the small set of hard-coded defaults used
// when ConfigParams does not specify a value, in the style of
// dragonboat's own internal/settings package.
package settings

// Soft is the table of overridable defaults.
var Soft = softSettings{
	JournalRecoveryLogBatchSize:     1000,
	RecoverySnapshotIntervalSeconds: 0,
}

type softSettings struct {
	// JournalRecoveryLogBatchSize is the default cohort replay batch
	// size when ConfigParams leaves it unset.
	JournalRecoveryLogBatchSize uint32
	// RecoverySnapshotIntervalSeconds is the default mid-recovery
	// snapshot interval. Zero disables mid-recovery snapshotting.
	RecoverySnapshotIntervalSeconds uint32
}

// Hard is the table of limits that are never overridable by
// configuration, matching dragonboat's split between Soft and Hard
// settings tables.
var Hard = hardSettings{
	MaxJournalRecoveryLogBatchSize: 1 << 16,
}

type hardSettings struct {
	// MaxJournalRecoveryLogBatchSize bounds the batch size accepted
	// from ConfigParams; anything larger is a misconfiguration.
	MaxJournalRecoveryLogBatchSize uint32
}
