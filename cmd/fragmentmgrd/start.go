package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/cuemby/fragmentmgr/pkg/config"
	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/fragment"
	"github.com/cuemby/fragmentmgr/pkg/metrics"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fragment manager daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		fmt.Println("Starting fragment manager...")
		fmt.Printf("  Data directory: %s\n", cfg.DataDir)
		fmt.Printf("  VNode count: %d\n", cfg.VNodeCount)
		fmt.Printf("  Workers: %d\n", len(cfg.Workers))

		store, err := storage.NewBoltMetaStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open meta store: %w", err)
		}
		defer store.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		clusterMgr := cluster.NewStaticManager(cfg.Workers)

		ctx := context.Background()
		mgr, err := fragment.NewManager(ctx, store, clusterMgr, broker, cfg.VNodeCount)
		if err != nil {
			return fmt.Errorf("create fragment manager: %w", err)
		}
		fmt.Println("✓ Fragment manager rehydrated from meta store")

		collector := metrics.NewCollector(mgr)
		collector.Start()
		defer collector.Stop()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("meta_store", true, "ready")
		metrics.RegisterComponent("fragment_manager", true, "ready")

		errCh := make(chan error, 1)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())
			if cfg.Metrics.EnablePprof {
				mux.Handle("/debug/pprof/", http.DefaultServeMux)
			}
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Metrics.Addr)
		fmt.Printf("✓ Health endpoints: http://%s/{health,ready,live}\n", cfg.Metrics.Addr)

		fmt.Println()
		fmt.Println("Fragment manager is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	startCmd.Flags().String("config", "", "Path to YAML config file (overrides --config on root)")
}
