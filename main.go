package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	cfgPath string
	reset   bool
)

var rootCmd = &cobra.Command{
	Use:   "rag-themes",
	Short: "Cited answers and cross-document themes over your documents",
	Long: `Ingests PDFs, scans, images and text files, answers questions from every
document with page and paragraph citations and groups the answers into themes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "cfg/config.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&reset, "reset", false, "Reinitialize the database from scratch if set")
}

func openLog(cfg *Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil)), io.NopCloser(nil), nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(slog.NewJSONHandler(logFile, nil)), logFile, nil
}

// withApp loads the configuration and builds the corpus for one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := readConfig(cfgPath)
	if err != nil {
		return err
	}

	logger, logFile, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, reset)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
