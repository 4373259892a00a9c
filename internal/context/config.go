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

package context

import "github.com/lni/raftrecovery/internal/settings"

// ConfigParams holds the read-only tunables the recovery driver
// consults (§6 of SPEC_FULL.md). Zero-value fields fall back to
// internal/settings.Soft defaults via NewConfigParams.
type ConfigParams struct {
	// JournalRecoveryLogBatchSize is the batch size passed to
	// RecoveryCohort.StartLogRecoveryBatch.
	JournalRecoveryLogBatchSize uint32
	// RecoverySnapshotIntervalSeconds gates the mid-recovery
	// snapshot; zero disables it entirely.
	RecoverySnapshotIntervalSeconds uint32
}

// NewConfigParams returns a ConfigParams with defaults applied for any
// zero-valued field.
func NewConfigParams(batchSize, intervalSeconds uint32) ConfigParams {
	if batchSize == 0 {
		batchSize = settings.Soft.JournalRecoveryLogBatchSize
	}
	if batchSize > settings.Hard.MaxJournalRecoveryLogBatchSize {
		batchSize = settings.Hard.MaxJournalRecoveryLogBatchSize
	}
	return ConfigParams{
		JournalRecoveryLogBatchSize:     batchSize,
		RecoverySnapshotIntervalSeconds: intervalSeconds,
	}
}
