package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/cuemby/fragmentmgr/pkg/config"
	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/fragment"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect jobs and fragments in the meta store",
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List every job and its lifecycle state",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openReadOnlyManager(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		for _, tf := range mgr.ListTableFragments(context.Background()) {
			fmt.Printf("%-10d %-10s fragments=%d actors=%d\n", tf.ID, tf.State, len(tf.Fragments), len(tf.ActorStatus))
		}
		return nil
	},
}

var inspectJobCmd = &cobra.Command{
	Use:   "inspect <job-id>",
	Short: "Show a single job's fragment graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := parseJobID(args[0])
		if err != nil {
			return err
		}

		mgr, closeFn, err := openReadOnlyManager(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		tf, err := mgr.SelectTableFragmentsByTableID(jobID)
		if err != nil {
			return err
		}

		fmt.Printf("job %d (%s)\n", tf.ID, tf.State)
		for _, fid := range sortedFragmentIDsForDisplay(tf) {
			f := tf.Fragments[fid]
			fmt.Printf("  fragment %d [%s] actors=%d\n", f.ID, f.Type, len(f.Actors))
			for _, a := range f.Actors {
				st := tf.ActorStatus[a.ID]
				if st == nil {
					fmt.Printf("    actor %d (no status)\n", a.ID)
					continue
				}
				fmt.Printf("    actor %d state=%s worker=%d parallel_unit=%d\n",
					a.ID, st.State, st.ParallelUnit.WorkerID, st.ParallelUnit.ID)
			}
		}
		return nil
	},
}

var listFragmentsCmd = &cobra.Command{
	Use:   "list-fragments <job-id>",
	Short: "List a job's fragments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := parseJobID(args[0])
		if err != nil {
			return err
		}

		mgr, closeFn, err := openReadOnlyManager(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		tf, err := mgr.SelectTableFragmentsByTableID(jobID)
		if err != nil {
			return err
		}
		for _, fid := range sortedFragmentIDsForDisplay(tf) {
			f := tf.Fragments[fid]
			fmt.Printf("%-10d %-10s actors=%d\n", f.ID, f.Type, len(f.Actors))
		}
		return nil
	},
}

func init() {
	jobCmd.AddCommand(listJobsCmd)
	jobCmd.AddCommand(inspectJobCmd)
	jobCmd.AddCommand(listFragmentsCmd)
}

func parseJobID(s string) (types.JobID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q: %w", s, err)
	}
	return types.JobID(n), nil
}

func sortedFragmentIDsForDisplay(tf *types.TableFragments) []types.FragmentID {
	ids := make([]types.FragmentID, 0, len(tf.Fragments))
	for id := range tf.Fragments {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// openReadOnlyManager opens the same bolt meta store the daemon uses and
// rehydrates a Manager from it. There's no running-daemon RPC to query
// against, so these subcommands read the on-disk store directly; the
// cluster manager is only needed to satisfy NewManager's constructor and
// plays no part in a read-only inspection.
func openReadOnlyManager(cmd *cobra.Command) (*fragment.Manager, func(), error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	store, err := storage.NewBoltMetaStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open meta store: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	clusterMgr := cluster.NewStaticManager(cfg.Workers)

	mgr, err := fragment.NewManager(context.Background(), store, clusterMgr, broker, cfg.VNodeCount)
	if err != nil {
		broker.Stop()
		store.Close()
		return nil, nil, fmt.Errorf("rehydrate fragment manager: %w", err)
	}

	return mgr, func() {
		broker.Stop()
		store.Close()
	}, nil
}
