package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuemby/hutch/pkg/api"
	"github.com/cuemby/hutch/pkg/dispatch"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/manager"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/reconciler"
	"github.com/cuemby/hutch/pkg/scheduler"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hutch",
	Short: "Hutch - hardware test-lab job scheduler",
	Long: `Hutch schedules test jobs onto physical lab machines.

Hosts carry labels (board type, capabilities, installed build); jobs queue
up as host queue entries and are leased eligible hosts once per scheduling
tick, honoring label dependencies, ACL groups, operator locks, and priority.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hutch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(aclCmd)
	rootCmd.AddCommand(statusCmd)
}

// Daemon

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lab scheduler daemon",
	Long: `Run the Hutch scheduler daemon.

The daemon runs the scheduling loop, the lease reconciler, the metrics
collector, and a read-only HTTP endpoint for probes and Prometheus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		httpAddr, _ := cmd.Flags().GetString("http-addr")
		tick, _ := cmd.Flags().GetDuration("tick")
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")

		log.Init(log.Config{
			Level:      log.Level(logLevel),
			JSONOutput: logJSON,
		})
		metrics.SetVersion(Version)

		fmt.Println("Starting Hutch scheduler...")
		fmt.Printf("  Data Directory: %s\n", dataDir)
		fmt.Printf("  HTTP Address: %s\n", httpAddr)
		fmt.Printf("  Tick Interval: %s\n", tick)
		fmt.Println()

		mgr, err := manager.NewManager(&manager.Config{DataDir: dataDir})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}
		metrics.RegisterComponent("storage", true, "")

		cfg := scheduler.DefaultConfig()
		cfg.TickInterval = tick
		sched := scheduler.New(mgr.Store(), dispatch.NewLogDispatcher(), mgr.EventBroker(), cfg)
		sched.Start()
		fmt.Println("✓ Scheduler started")

		recon := reconciler.NewReconciler(mgr.Store(), mgr.EventBroker(), 30*time.Second)
		recon.Start()
		fmt.Println("✓ Reconciler started")

		collector := metrics.NewCollector(mgr.Store())
		collector.Start()

		apiServer := api.NewServer(mgr.Store())
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(httpAddr); err != nil {
				errCh <- fmt.Errorf("HTTP server error: %v", err)
			}
		}()

		fmt.Println()
		fmt.Println("Scheduler is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		sched.Stop()
		recon.Stop()
		collector.Stop()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiServer.Stop(stopCtx)
		if err := mgr.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown: %v", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

// Host inventory commands

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage lab host inventory",
}

var hostAddCmd = &cobra.Command{
	Use:   "add <hostname>",
	Short: "Add a host to the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetStringSlice("labels")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		host, err := mgr.AddHost(args[0], labels)
		if err != nil {
			return err
		}
		fmt.Printf("Added host %s (%s)\n", host.Hostname, host.ID)
		return nil
	},
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		var hosts []*types.Host
		if label != "" {
			hosts, err = mgr.Store().ListHostsWithLabel(label)
		} else {
			hosts, err = mgr.ListHosts()
		}
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %-14s %-8s %-8s %s\n", "HOSTNAME", "STATUS", "LOCKED", "LEASED", "LABELS")
		for _, h := range hosts {
			fmt.Printf("%-20s %-14s %-8t %-8t %s\n",
				h.Hostname, h.Status, h.Locked, h.Leased, strings.Join(h.Labels, ","))
		}
		return nil
	},
}

var hostLockCmd = &cobra.Command{
	Use:   "lock <hostname>",
	Short: "Lock a host out of scheduling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lockedBy, _ := cmd.Flags().GetString("by")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		host, err := mgr.GetHostByHostname(args[0])
		if err != nil {
			return err
		}
		if err := mgr.LockHost(host.ID, lockedBy); err != nil {
			return err
		}
		fmt.Printf("Locked host %s\n", host.Hostname)
		return nil
	},
}

var hostUnlockCmd = &cobra.Command{
	Use:   "unlock <hostname>",
	Short: "Return a locked host to scheduling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		host, err := mgr.GetHostByHostname(args[0])
		if err != nil {
			return err
		}
		if err := mgr.UnlockHost(host.ID); err != nil {
			return err
		}
		fmt.Printf("Unlocked host %s\n", host.Hostname)
		return nil
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:   "rm <hostname>",
	Short: "Remove a host from the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		host, err := mgr.GetHostByHostname(args[0])
		if err != nil {
			return err
		}
		if err := mgr.RemoveHost(host.ID); err != nil {
			return err
		}
		fmt.Printf("Removed host %s\n", host.Hostname)
		return nil
	},
}

// ACL commands

var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Manage ACL groups",
}

var aclCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an ACL group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		users, _ := cmd.Flags().GetStringSlice("users")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		group, err := mgr.CreateACLGroup(args[0], users)
		if err != nil {
			return err
		}
		fmt.Printf("Created ACL group %s\n", group.Name)
		return nil
	},
}

var aclGrantCmd = &cobra.Command{
	Use:   "grant <group> <hostname>",
	Short: "Add a host to an ACL group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		if err := mgr.GrantHost(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Granted %s to group %s\n", args[1], args[0])
		return nil
	},
}

// Status command

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lab summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		hosts, err := mgr.ListHosts()
		if err != nil {
			return err
		}
		jobs, err := mgr.ListJobs()
		if err != nil {
			return err
		}
		pending, err := mgr.ListPendingEntries()
		if err != nil {
			return err
		}

		leased := 0
		locked := 0
		for _, h := range hosts {
			if h.Leased {
				leased++
			}
			if h.Locked {
				locked++
			}
		}
		fmt.Printf("Hosts:           %d (%d leased, %d locked)\n", len(hosts), leased, locked)
		fmt.Printf("Jobs:            %d\n", len(jobs))
		fmt.Printf("Pending entries: %d\n", len(pending))
		return nil
	},
}

func openManager(cmd *cobra.Command) (*manager.Manager, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	log.Init(log.Config{Level: log.WarnLevel})
	return manager.NewManager(&manager.Config{DataDir: dataDir})
}

func init() {
	serveCmd.Flags().String("data-dir", "/var/lib/hutch", "Directory for the lab database")
	serveCmd.Flags().String("http-addr", ":8080", "Address for the read-only HTTP endpoint")
	serveCmd.Flags().Duration("tick", 5*time.Second, "Scheduling pass interval")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("log-json", false, "Emit JSON logs instead of console output")

	for _, c := range []*cobra.Command{
		hostAddCmd, hostListCmd, hostLockCmd, hostUnlockCmd, hostRemoveCmd,
		aclCreateCmd, aclGrantCmd, statusCmd,
	} {
		c.Flags().String("data-dir", "/var/lib/hutch", "Directory for the lab database")
	}

	hostAddCmd.Flags().StringSlice("labels", nil, "Labels the host carries")
	hostListCmd.Flags().String("label", "", "Only show hosts carrying this label")
	hostLockCmd.Flags().String("by", "", "Operator taking the lock")
	aclCreateCmd.Flags().StringSlice("users", nil, "Users in the group")

	hostCmd.AddCommand(hostAddCmd)
	hostCmd.AddCommand(hostListCmd)
	hostCmd.AddCommand(hostLockCmd)
	hostCmd.AddCommand(hostUnlockCmd)
	hostCmd.AddCommand(hostRemoveCmd)

	aclCmd.AddCommand(aclCreateCmd)
	aclCmd.AddCommand(aclGrantCmd)
}
