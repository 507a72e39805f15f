// Package main implements the adanalyst CLI, which runs the ad performance
// analysis pipeline over a CSV export and writes reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/agents"
	"github.com/fyrsmithlabs/adanalyst/internal/config"
	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
	"github.com/fyrsmithlabs/adanalyst/internal/embeddings"
	"github.com/fyrsmithlabs/adanalyst/internal/llm"
	"github.com/fyrsmithlabs/adanalyst/internal/logging"
	"github.com/fyrsmithlabs/adanalyst/internal/metrics"
	"github.com/fyrsmithlabs/adanalyst/internal/orchestrator"
	"github.com/fyrsmithlabs/adanalyst/internal/store"
)

var (
	// configPath is the YAML config file. A missing file is not an error.
	configPath string
	// quiet suppresses per-stage progress lines.
	quiet bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adanalyst <query>",
	Short: "Analyze ad performance and propose creative improvements",
	Long: `adanalyst loads an ad performance CSV, asks a cascade of language models
to explain what changed, checks those explanations against the numbers,
and proposes rewrites for low-CTR creatives.

Outputs:
  <reports>/insights.json    validated hypotheses
  <reports>/creatives.json   creative rewrites
  <reports>/report.md        human-readable summary
  <logs>/pipeline_log.json   one JSON object per stage

Examples:
  # Run with defaults (reads config.yaml if present)
  adanalyst "Why did ROAS drop last week?"

  # Use a different config and override the dataset via env
  ADANALYST_PATHS_DATA=data/q3.csv adanalyst --config prod.yaml "Analyze CTR"`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print stage progress")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("adanalyst"))
	fmt.Fprintln(out, labelStyle.Render("query: ")+args[0])

	events, err := app.pipeline.Run(ctx, args[0])
	if err != nil {
		logger.Error(ctx, "pipeline aborted", zap.Error(err))
		return err
	}
	fmt.Fprint(out, renderSummary(events, cfg.Paths.Reports, cfg.Paths.Logs))
	return nil
}

// app holds the wired components of one CLI invocation.
type app struct {
	pipeline *orchestrator.Pipeline
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc, err := logging.ConfigFromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(lc)
}

// newCompleter selects the completion transport.
func newCompleter(cfg config.LLMConfig) (llm.Completer, error) {
	hc := llm.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey.Value(),
		Referer:   cfg.Referer,
		Title:     cfg.Title,
		Timeout:   cfg.Timeout.Duration(),
		RateLimit: cfg.RateLimit,
	}
	if cfg.Transport == config.TransportLangchain {
		return llm.NewLangchainCompleter(hc)
	}
	return llm.NewHTTPCompleter(hc)
}

// completerError adds the ways to supply a key to ErrMissingAPIKey.
func completerError(err error) error {
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return fmt.Errorf("%w: set llm.api_key, %sLLM_API_KEY or %s", err, config.EnvPrefix, config.APIKeyEnv)
	}
	return err
}

// isFastEmbed reports whether provider selects the local ONNX model.
func isFastEmbed(provider string) bool {
	return provider == "" || provider == "fastembed"
}

func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer) (*app, error) {
	a := &app{}

	completer, err := newCompleter(cfg.LLM)
	if err != nil {
		return nil, completerError(err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	embedder := embeddings.NewLazy(func() (embeddings.Provider, error) {
		if isFastEmbed(cfg.Embeddings.Provider) {
			if _, err := embeddings.EnsureONNXRuntime(ctx, logger); err != nil {
				return nil, err
			}
		}
		return embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: cfg.Embeddings.Provider,
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
			APIKey:   cfg.Embeddings.APIKey.Value(),
			CacheDir: cfg.Embeddings.CacheDir,
		})
	}, logger)
	a.closers = append(a.closers, embedder)

	validator := llm.NewValidator(llm.ValidatorConfig{
		MinLength:           cfg.Validation.MinLength,
		FallbackMinLength:   cfg.Validation.FallbackMinLength,
		SimilarityThreshold: cfg.Validation.SimilarityThreshold,
		Denylist:            cfg.Validation.Denylist,
	}, embedder, logger, m)

	cascade := llm.NewCascade(completer, validator, llm.CascadeConfig{
		Models:      cfg.LLM.Models,
		Timeout:     cfg.LLM.Timeout.Duration(),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger, m)

	agentOpts := []agents.Option{agents.WithLogger(logger)}
	planner, err := agents.NewPlanner(cascade, agentOpts...)
	if err != nil {
		return nil, err
	}
	insights, err := agents.NewInsightAgent(cascade, agentOpts...)
	if err != nil {
		return nil, err
	}
	creatives, err := agents.NewCreativeAgent(cascade, cfg.Thresholds.LowCTR, cfg.Thresholds.MaxCreatives, agentOpts...)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(m),
	}
	if !quiet {
		opts = append(opts, orchestrator.OnEvent(progressPrinter(out)))
	}
	if cfg.Store.SQLitePath != "" {
		st, err := store.Open(cfg.Store.SQLitePath)
		if err != nil {
			// History is optional; the run proceeds without it.
			logger.Warn(ctx, "run history unavailable", zap.Error(err))
		} else {
			a.closers = append(a.closers, st)
			opts = append(opts, orchestrator.WithRecorder(st))
		}
	}

	metricsFile := ""
	if cfg.Metrics.Enabled {
		metricsFile = cfg.Metrics.Filename
	}
	p, err := orchestrator.New(orchestrator.Stages{
		Planner:   planner,
		Data:      dataset.NewBuilder(cfg.Paths.Data, cfg.Thresholds.LowCTR, logger),
		Insights:  insights,
		Evaluator: agents.NewEvaluator(agentOpts...),
		Creatives: creatives,
	}, orchestrator.Config{
		ReportsDir:  cfg.Paths.Reports,
		LogsDir:     cfg.Paths.Logs,
		DatasetPath: cfg.Paths.Data,
		MetricsFile: metricsFile,
	}, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p
	return a, nil
}
