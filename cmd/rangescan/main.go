// Command rangescan scans a paginated JSON endpoint range by range until a
// record carrying the marker field is found or the data runs out.
//
// Usage:
//
//	rangescan run --base-url http://localhost:5000/level2
//	rangescan run -c scan.yaml --cohort-size 20 --marker secret
//	rangescan version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Sternrassler/range-scanner/internal/config"
	"github.com/Sternrassler/range-scanner/pkg/cache"
	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/Sternrassler/range-scanner/pkg/metrics"
	"github.com/Sternrassler/range-scanner/pkg/scan"
	"github.com/Sternrassler/range-scanner/pkg/source"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "rangescan",
		Short:        "Scan a paginated endpoint for a marker record",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd(&configPath, &verbose))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		baseURL        string
		batchSize      int64
		cohortSize     int
		marker         string
		start          int64
		cancelInFlight bool
		maxRetries     int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scan until the marker is found or the source is exhausted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("base-url") {
				cfg.Source.BaseURL = baseURL
			}
			if flags.Changed("batch-size") {
				cfg.Scan.BatchSize = batchSize
			}
			if flags.Changed("cohort-size") {
				cfg.Scan.CohortSize = cohortSize
			}
			if flags.Changed("marker") {
				cfg.Scan.MarkerField = marker
			}
			if flags.Changed("start") {
				cfg.Scan.Start = start
			}
			if flags.Changed("cancel-in-flight") {
				cfg.Scan.CancelInFlight = cancelInFlight
			}
			if flags.Changed("max-retries") {
				cfg.Source.MaxRetries = maxRetries
			}
			if *verbose {
				cfg.Log.Level = string(logging.LevelDebug)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			lc := cfg.LoggingConfig()
			lc.Output = cmd.ErrOrStderr()
			logging.Setup(lc)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := runScan(ctx, cfg)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "endpoint URL, e.g. http://localhost:5000/level2")
	cmd.Flags().Int64Var(&batchSize, "batch-size", 1000, "indices per range")
	cmd.Flags().IntVar(&cohortSize, "cohort-size", 10, "ranges fetched concurrently")
	cmd.Flags().StringVar(&marker, "marker", scan.DefaultMarkerField, "record field that marks a match")
	cmd.Flags().Int64Var(&start, "start", 0, "first index to scan")
	cmd.Flags().BoolVar(&cancelInFlight, "cancel-in-flight", false, "abort running fetches once the marker is found")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retries per failed range (0 = report as failed)")

	return cmd
}

// runScan wires the session, the optional cache and metrics server, and
// runs one scan.
func runScan(ctx context.Context, cfg config.Config) (*scan.Result, error) {
	srcCfg := cfg.SourceConfig()

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		srcCfg.Cache = cache.NewManager(redisClient, cfg.Redis.TTL)
	}

	client, err := source.New(srcCfg)
	if err != nil {
		return nil, fmt.Errorf("create source session: %w", err)
	}
	defer client.Close()

	if cfg.Metrics.Addr != "" {
		srv := newMetricsServer(cfg.Metrics.Addr)
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Starting metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return scan.NewOrchestrator(client, cfg.ScanConfig()).Run(ctx)
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func printResult(w io.Writer, result *scan.Result) {
	switch {
	case result.Found:
		fmt.Fprintf(w, "found %s in range %s\n", result.Marker, result.Range)
	case result.Reason == scan.ReasonCancelled:
		fmt.Fprintf(w, "not found: scan cancelled after %d cohorts\n", result.Cohorts)
	default:
		fmt.Fprintln(w, "not found: source exhausted")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(out, "rangescan: version info not available")
				return
			}

			fmt.Fprintf(out, "rangescan: %s\n", info.Main.Version)
			fmt.Fprintf(out, "go:        %s\n", info.GoVersion)
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Fprintf(out, "commit:    %s\n", s.Value)
				case "vcs.time":
					fmt.Fprintf(out, "built:     %s\n", s.Value)
				}
			}
		},
	}
}
