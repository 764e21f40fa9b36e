package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/cli"
	"github.com/hyperjump/cmassist/internal/storage"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format: text or json")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseOutputFormat(statusOutput)
	if err != nil {
		return err
	}
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	ix := components.Index

	st := &cli.Status{
		ChunkCount:   ix.Count(),
		Dimensions:   ix.Dimensions(),
		Model:        ix.Model(),
		IndexPath:    ix.Path(),
		KnowledgeDir: cfg.Storage.KnowledgeDir,
	}
	if sources, err := ix.Store().ListSources(cmd.Context()); err == nil {
		st.Sources = len(sources)
	} else {
		logger.Warn("list sources failed", zap.Error(err))
	}
	if size, err := storage.DiskUsageBytes(cfg.Storage.IndexPath); err == nil {
		st.DiskUsageBytes = size
	}
	return cli.WriteStatus(cmd.OutOrStdout(), st, format)
}
