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

// Command raftrecoveryctl drives a RecoveryDriver against a real
// persistence provider, exercising the whole engine end to end the
// way pulumi's cobra command tree exercises its backend (§11 of
// SPEC_FULL.md).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lni/raftrecovery/internal/context"
	"github.com/lni/raftrecovery/internal/metrics"
	"github.com/lni/raftrecovery/internal/persistence/boltstore"
	"github.com/lni/raftrecovery/internal/persistence/disabled"
	"github.com/lni/raftrecovery/internal/persistence/pebblestore"
	"github.com/lni/raftrecovery/internal/recovery"
	"github.com/lni/raftrecovery/internal/rsm"
	"github.com/lni/raftrecovery/internal/snapshot"
	"github.com/lni/raftrecovery/raftpb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "raftrecoveryctl",
		Short: "Drive the raftrecovery engine against a real persistence backend",
	}
	root.AddCommand(newReplayCmd())
	return root
}

func newReplayCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Offer the latest saved snapshot for a data directory to a recovery driver and print lastApplied/commitIndex",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(v)
		},
	}

	flags := cmd.Flags()
	flags.String("data-dir", "./raftrecovery-data", "data directory for the persistence backend")
	flags.String("backend", "bolt", "persistence backend: bolt, pebble, or disabled")
	flags.Uint32("batch-size", 0, "journal recovery log batch size (0 = default)")
	flags.Uint32("snapshot-interval-seconds", 0, "mid-recovery snapshot interval in seconds (0 = disabled)")
	_ = v.BindPFlags(flags)

	return cmd
}

func runReplay(v *viper.Viper) error {
	dataDir := v.GetString("data-dir")
	backend := v.GetString("backend")

	provider, loadLatest, closeFn, err := openProvider(backend, dataDir)
	if err != nil {
		return err
	}
	defer closeFn()

	config := context.NewConfigParams(v.GetUint32("batch-size"), v.GetUint32("snapshot-interval-seconds"))
	snapMgr := snapshot.New(
		func(meta raftpb.EntryMeta, replicatedToAllIndex int64) error {
			fmt.Printf("capturing snapshot at %+v\n", meta)
			return nil
		},
		func(req snapshot.ApplySnapshot) error {
			fmt.Printf("applying operator restore snapshot (last index %d)\n", req.Snapshot.LastIndex)
			return nil
		},
	)
	defer snapMgr.(interface{ Close() }).Close()

	ctx := context.New(1, config, snapMgr)
	cohort := newStdoutCohort(nil)
	managed := rsm.NewManagedCohort(cohort, nil)

	driver := recovery.New(ctx, cohort, snapMgr, metrics.NewRecorder())

	if latest, ok, err := loadLatest(); err != nil {
		return err
	} else if ok {
		fmt.Println("offering persisted snapshot")
		driver.Offer(raftpb.SnapshotOffer(&latest), provider)
	}
	driver.Offer(raftpb.RecoveryCompleted(), provider)

	managed.Loaded(rsm.FromStepWorker)
	managed.Offloaded(rsm.FromStepWorker)
	managed.Offloaded(rsm.FromActor)

	fmt.Printf("recovery finished: lastApplied=%d commitIndex=%d\n", ctx.GetLastApplied(), ctx.GetCommitIndex())
	return nil
}

type latestSnapshotLoader func() (raftpb.Snapshot, bool, error)

func openProvider(backend, dataDir string) (recovery.Provider, latestSnapshotLoader, func(), error) {
	switch backend {
	case "pebble":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, nil, nil, err
		}
		store, err := pebblestore.Open(dataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store.LoadLatestSnapshot, func() { store.Close() }, nil
	case "disabled":
		store := disabled.New(0)
		return store, func() (raftpb.Snapshot, bool, error) { return raftpb.Snapshot{}, false, nil }, func() {}, nil
	default:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, nil, nil, err
		}
		store, err := boltstore.Open(dataDir + "/raftrecovery.db")
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store.LoadLatestSnapshot, func() { store.Close() }, nil
	}
}
