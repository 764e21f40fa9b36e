package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/server"
	"github.com/hyperjump/cmassist/internal/watcher"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API on server.host:server.port.

With --watch (or watch.enabled in the config) the knowledge directory is
synced on startup and then watched; new or modified files are ingested
automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "watch the knowledge directory and ingest changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	kb := components.Knowledge

	if serveWatch || cfg.Watch.Enabled {
		w, err := startWatching(ctx, kb)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(kb, components.Index, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// startWatching brings the index up to date with the knowledge directory and
// then ingests files as they change.
func startWatching(ctx context.Context, kb *knowledge.Service) (*watcher.Watcher, error) {
	root := cfg.Storage.KnowledgeDir
	w := watcher.New(
		[]string{root},
		cfg.Watch.Extensions,
		func(root, path string) {
			res := kb.IngestFile(context.Background(), root, path, knowledge.ChangedOnly())
			if res.Err != nil {
				logger.Warn("ingest changed file failed", zap.String("path", path), zap.Error(res.Err))
				return
			}
			if !res.Skipped {
				logger.Info("ingested changed file", zap.String("path", path), zap.Int("chunks", res.Chunks))
			}
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	report, err := kb.IngestDirectory(ctx, root, knowledge.ChangedOnly())
	if err != nil {
		w.Stop()
		return nil, err
	}
	logger.Info("knowledge directory synced",
		zap.String("root", root),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return w, nil
}
