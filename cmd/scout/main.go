package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"startupscout/internal/config"
	"startupscout/internal/logging"
	"startupscout/internal/oracle"
	"startupscout/internal/pipeline"
	"startupscout/internal/report"
	"startupscout/internal/research"
	"startupscout/internal/store"
	"startupscout/internal/validate"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "startupscout - LLM-sourced startup discovery with deterministic validation",
	Long: `startupscout discovers startups matching an investment thesis through a
research oracle, then runs every candidate through a deterministic
validation core before anything touches the database.

The oracle is treated as an unreliable narrator: its output is coerced,
normalized and cross-checked, and only records that survive with a clean
verdict are persisted.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Debug = true
		}
		logger, err = logging.New(cfg.Logging.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd executes one discovery round
var runCmd = &cobra.Command{
	Use:   "run [thesis]",
	Short: "Run one discovery round for an investment thesis",
	Long: `Runs the full pipeline once: discover candidate names for the thesis,
fetch a structured record per candidate, validate and normalize each one
against the current database snapshot, and persist the accepted records.

Example:
  scout run "LATAM agtech startups using computer vision"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscovery,
}

// validateCmd validates a single candidate payload without persisting it
var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a candidate JSON payload and print the verdict",
	Long: `Reads one candidate payload (a bare candidate object, or a wrapped
{"candidate": ..., "db_startups": [...]} input) and prints the verdict as
JSON. Pass "-" to read from stdin. Nothing is written to the database;
the current database contents serve as the dedup snapshot unless the
payload carries its own.`,
	Args: cobra.ExactArgs(1),
	RunE: validatePayload,
}

// reportCmd prints portfolio totals or answers a question about them
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show portfolio totals, or ask a question with --ask",
	RunE:  runReport,
}

// scheduleCmd runs discovery on a cron schedule
var scheduleCmd = &cobra.Command{
	Use:   "schedule [cron-spec] [thesis]",
	Short: "Run discovery rounds on a cron schedule until interrupted",
	Long: `Schedules repeated discovery runs. The first argument is a standard
5-field cron spec (or a descriptor like @hourly), the rest is the thesis.

Example:
  scout schedule "0 9 * * 1" "LATAM AI startups with recent funding"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSchedule,
}

var askQuestion string

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	reportCmd.Flags().StringVar(&askQuestion, "ask", "", "ask a free-form question about the portfolio")

	rootCmd.AddCommand(runCmd, validateCmd, reportCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newResearchOracle builds the oracle client the config selects.
func newResearchOracle(ctx context.Context) (oracle.Oracle, error) {
	timeout, err := cfg.OracleTimeout()
	if err != nil {
		return nil, err
	}
	switch cfg.Oracle.Provider {
	case "perplexity":
		return oracle.NewPerplexityClientWithConfig(oracle.PerplexityConfig{
			APIKey:  cfg.Oracle.APIKey,
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			Timeout: timeout,
		}), nil
	case "nim":
		return oracle.NewNIMClientWithConfig(oracle.NIMConfig{
			APIKey:  cfg.Oracle.APIKey,
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			Timeout: timeout,
		}), nil
	case "gemini":
		return oracle.NewGeminiClient(ctx, oracle.GeminiConfig{
			APIKey: cfg.Oracle.APIKey,
			Model:  cfg.Oracle.Model,
		})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

func retryPolicy() (oracle.Policy, error) {
	base, max, err := cfg.RetryDelays()
	if err != nil {
		return oracle.Policy{}, err
	}
	return oracle.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   base,
		MaxDelay:    max,
		Retryable:   oracle.IsTransient,
	}, nil
}

func buildPipeline(ctx context.Context) (*pipeline.Pipeline, *store.Store, error) {
	o, err := newResearchOracle(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	policy, err := retryPolicy()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	r := research.New(o, research.Config{MaxNames: cfg.Research.MaxNames}, logger)
	p := pipeline.New(r, s, pipeline.Config{
		Concurrency: cfg.Research.Concurrency,
		Retry:       policy,
	}, logger)
	return p, s, nil
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, s, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := p.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Print(report.RenderSummary(summary))
	return nil
}

func validatePayload(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	s, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	known, err := s.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	verdict := validate.ValidateRaw(raw, known)
	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	totals, err := s.Totals(cmd.Context())
	if err != nil {
		return err
	}

	if askQuestion == "" {
		fmt.Print(report.RenderTotals(totals))
		return nil
	}

	known, err := s.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	apiKey := cfg.Oracle.ReportAPIKey
	if apiKey == "" {
		apiKey = cfg.Oracle.APIKey
	}
	nim := oracle.NewNIMClient(apiKey)

	answer, err := report.Ask(cmd.Context(), nim, askQuestion, known, totals)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	spec := args[0]
	thesis := strings.Join(args[1:], " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, s, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		summary, err := p.Run(ctx, thesis)
		if err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
			return
		}
		fmt.Print(report.RenderSummary(summary))
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	logger.Info("schedule started", zap.String("spec", spec), zap.String("thesis", thesis))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("schedule stopped")
	return nil
}
