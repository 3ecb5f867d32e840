package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpwatch/perpwatch/internal/aggregate"
	"github.com/perpwatch/perpwatch/internal/analytics"
	"github.com/perpwatch/perpwatch/internal/cache"
	"github.com/perpwatch/perpwatch/internal/config"
	"github.com/perpwatch/perpwatch/internal/fleet"
	"github.com/perpwatch/perpwatch/internal/httpapi"
	"github.com/perpwatch/perpwatch/internal/httpapi/handlers"
	"github.com/perpwatch/perpwatch/internal/logging"
	"github.com/perpwatch/perpwatch/internal/materialize"
	"github.com/perpwatch/perpwatch/internal/metrics"
	"github.com/perpwatch/perpwatch/internal/scheduler"
	"github.com/perpwatch/perpwatch/internal/store/readdb"
	"github.com/perpwatch/perpwatch/internal/store/writedb"
)

const version = "v0.1.0"

// lateTickGuard matches spec.md §5: "buckets ending more than 5 min ago"
// are the only ones aggregation will fold, so an in-flight snapshot cycle
// can never corrupt an already-closed minute bucket.
const lateTickGuard = 5 * time.Minute

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "perpwatch",
		Short:   "Multi-exchange perpetual-futures funding and market-data tracker",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newMigrateCmd(&configPath))
	rootCmd.AddCommand(newTrackerCmd(&configPath))
	rootCmd.AddCommand(newJobCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run trackers, scheduled jobs, and the HTTP query surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the WRITE and READ store schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(*configPath)
		},
	}
}

func newTrackerCmd(configPath *string) *cobra.Command {
	trackerCmd := &cobra.Command{Use: "tracker", Short: "Inspect or control per-venue trackers"}
	trackerCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print every venue's persisted tracker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrackerStatus(*configPath)
		},
	})
	return trackerCmd
}

func newJobCmd(configPath *string) *cobra.Command {
	jobCmd := &cobra.Command{Use: "job", Short: "Run scheduled jobs on demand"}
	jobCmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run one named job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobByName(*configPath, args[0])
		},
	})
	return jobCmd
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	write, err := writedb.Open(cfg.WriteDB.DSN(), cfg.WriteDB.Timeout())
	if err != nil {
		return fmt.Errorf("open write db: %w", err)
	}
	if _, err := write.DB.Exec(writedb.Schema); err != nil {
		return fmt.Errorf("apply write schema: %w", err)
	}

	read, err := readdb.Open(cfg.ReadDB.DSN(), cfg.ReadDB.Timeout())
	if err != nil {
		return fmt.Errorf("open read db: %w", err)
	}
	if _, err := read.DB.Exec(readdb.Schema); err != nil {
		return fmt.Errorf("apply read schema: %w", err)
	}

	log.Info().Msg("schema migration complete")
	return nil
}

func runTrackerStatus(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	read, err := readdb.Open(cfg.ReadDB.DSN(), cfg.ReadDB.Timeout())
	if err != nil {
		return fmt.Errorf("open read db: %w", err)
	}

	rows, err := read.ListTrackerStatuses(context.Background())
	if err != nil {
		return fmt.Errorf("list tracker statuses: %w", err)
	}
	for _, r := range rows {
		fmt.Printf("%-12s %-12s reconnects=%-3d last_error=%q\n", r.Exchange, r.State, r.ReconnectCount, r.LastError)
	}
	return nil
}

func runJobByName(configPath, name string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	write, err := writedb.Open(cfg.WriteDB.DSN(), cfg.WriteDB.Timeout())
	if err != nil {
		return fmt.Errorf("open write db: %w", err)
	}
	read, err := readdb.Open(cfg.ReadDB.DSN(), cfg.ReadDB.Timeout())
	if err != nil {
		return fmt.Errorf("open read db: %w", err)
	}

	sched := buildScheduler(cfg, write, read, nil)
	res, err := sched.RunByName(context.Background(), name)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("job %q failed: %w", name, res.Err)
	}
	fmt.Printf("job %q completed in %s\n", res.JobName, res.Duration)
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	write, err := writedb.Open(cfg.WriteDB.DSN(), cfg.WriteDB.Timeout())
	if err != nil {
		return fmt.Errorf("open write db: %w", err)
	}
	read, err := readdb.Open(cfg.ReadDB.DSN(), cfg.ReadDB.Timeout())
	if err != nil {
		return fmt.Errorf("open read db: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mreg := metrics.New()

	mgr := fleet.NewManager(fleet.All(), write, read, mreg)
	mgr.StartAll(ctx)

	sched := buildScheduler(cfg, write, read, mreg)
	go sched.Start(ctx)

	c := cache.NewAuto()
	h := handlers.New(read, write, c, mgr)
	server := httpapi.New(httpapi.Config{
		Addr:        cfg.HTTP.Addr,
		ReadTimeout: cfg.HTTP.ReadTimeout(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, h, mreg)

	serverErrs := make(chan error, 1)
	go func() { serverErrs <- server.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		return err
	case <-sig:
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ReadTimeout())
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}

// buildScheduler wires every periodic job named in spec.md §4.5-§4.7 onto
// the fixed cadences read from config.yaml.
func buildScheduler(cfg *config.Config, write *writedb.Store, read *readdb.Store, mreg *metrics.Registry) *scheduler.Scheduler {
	aggEngine := aggregate.New(write)
	matEngine := materialize.New(write, read)
	anaEngine := analytics.New(write, read)

	jobs := []scheduler.Job{
		{Name: "raw-to-minute", Interval: cfg.Jobs.RawToMinuteInterval(), Run: func(ctx context.Context, now time.Time) error {
			return aggEngine.RollupRawToMinute(ctx, now, lateTickGuard)
		}},
		{Name: "minute-to-hour", Interval: cfg.Jobs.MinuteToHourInterval(), Run: func(ctx context.Context, now time.Time) error {
			return aggEngine.RollupMinuteToHour(ctx, now)
		}},
		{Name: "retention", Interval: cfg.Jobs.RetentionInterval(), Run: func(ctx context.Context, now time.Time) error {
			return aggEngine.Retention(ctx, now, cfg.Retention.MinuteHorizon(), cfg.Retention.HourHorizon())
		}},
		{Name: "latest-projection", Interval: cfg.Jobs.LatestProjectionInterval(), Run: func(ctx context.Context, now time.Time) error {
			return matEngine.LatestProjection(ctx, now, cfg.Jobs.LatestProjectionInterval()*4)
		}},
		{Name: "backfill-history", Interval: cfg.Jobs.BackfillInterval(), Run: func(ctx context.Context, now time.Time) error {
			_, _, err := matEngine.BackfillHistory(ctx)
			return err
		}},
		{Name: "funding-ma", Interval: cfg.Jobs.FundingMAInterval(), Run: func(ctx context.Context, now time.Time) error {
			return anaEngine.FundingMovingAverages(ctx, now)
		}},
		{Name: "arbitrage", Interval: cfg.Jobs.ArbitrageInterval(), Run: func(ctx context.Context, now time.Time) error {
			return anaEngine.ArbitrageOpportunities(ctx, now)
		}},
	}

	return scheduler.New(jobs, mreg)
}
