package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberflux/internal/config"
	"cyberflux/internal/ingest"
	"cyberflux/internal/llm"
	"cyberflux/internal/logging"
	"cyberflux/internal/rag"
	"cyberflux/internal/report"
	"cyberflux/internal/server"
	"cyberflux/internal/session"
	"cyberflux/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cyberflux",
	Short: "CyberFluxAI - flow-log incident report service",
	Long: `CyberFluxAI turns network flow-log CSVs into PDF incident reports
with metrics, charts, evidence samples and an LLM executive summary,
and serves them over HTTP together with follow-up Q&A sessions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report HTTP service",
	RunE:  runServe,
}

// reportCmd generates one report from the command line
var reportCmd = &cobra.Command{
	Use:   "report [csv-file]",
	Short: "Generate a single report without starting the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

var (
	reportIncludeAI bool
	reportNRows     int
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cyberflux.yaml", "path to config file")

	reportCmd.Flags().BoolVar(&reportIncludeAI, "include-ai", false, "include the LLM executive summary")
	reportCmd.Flags().IntVar(&reportNRows, "nrows", 0, "limit parsed rows (dev)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Initialize(logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Dir:        cfg.Logging.Dir,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := llm.NewGeminiClient(cfg.LLM, cfg.GetLLMTimeout())
	if !client.Configured() {
		logger.Warn("no API key configured, reports use deterministic summaries")
	}

	var embedder rag.Embedder
	if cfg.HasAPIKey() {
		genaiEmbedder, err := rag.NewGenAIEmbedder(cmd.Context(), cfg.LLM.APIKey, cfg.LLM.EmbeddingModel)
		if err != nil {
			logger.Warn("embedding client unavailable, sessions use lexical retrieval", zap.Error(err))
		} else {
			embedder = genaiEmbedder
		}
	}

	datasets, err := ingest.NewDatasetIndex(cfg.Report.DataDir)
	if err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}
	defer datasets.Close()

	gen := report.NewGenerator(cfg, client, st)
	sessions := session.NewManager(client, st)
	srv := server.New(cfg, gen, sessions, datasets, client, embedder)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("cyberflux started", zap.String("addr", cfg.Server.Addr), zap.String("data_dir", cfg.Report.DataDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	csvFile := "logs.csv"
	if len(args) > 0 {
		csvFile = args[0]
	}

	client := llm.NewGeminiClient(cfg.LLM, cfg.GetLLMTimeout())
	gen := report.NewGenerator(cfg, client, nil)

	start := time.Now()
	meta, err := gen.Generate(cmd.Context(), report.Request{
		CSVFile:   csvFile,
		IncludeAI: reportIncludeAI,
		NRows:     reportNRows,
	})
	if err != nil {
		return err
	}

	logger.Info("report generated",
		zap.String("pdf", meta.PDFPath),
		zap.Int("records", meta.NumRecords),
		zap.Int("suspicious", meta.Suspicious),
		zap.Duration("took", time.Since(start)))

	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
