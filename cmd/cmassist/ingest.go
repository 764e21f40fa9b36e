package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/cmassist/internal/cli"
	"github.com/hyperjump/cmassist/internal/knowledge"
)

var (
	ingestSample      bool
	ingestChangedOnly bool
	ingestOutput      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents into the knowledge base",
	Long: `Ingest every supported file under a directory (default: storage.knowledge_dir).
Subdirectory names become the category of their files.

Use --sample to first write the bundled sample documents into the directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestSample, "sample", false, "seed the directory with the bundled sample documents first")
	ingestCmd.Flags().BoolVar(&ingestChangedOnly, "changed-only", false, "skip files unchanged since they were last ingested")
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "text", "output format: text or json")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(ingestOutput)
	if err != nil {
		return err
	}
	dir := cfg.Storage.KnowledgeDir
	if len(args) == 1 {
		dir = args[0]
	}
	if ingestSample {
		written, err := knowledge.SeedSamples(dir)
		if err != nil {
			return fmt.Errorf("seed samples: %w", err)
		}
		cmd.Printf("Wrote %d sample documents to %s\n", len(written), dir)
	}

	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	var opts []knowledge.IngestOption
	if ingestChangedOnly {
		opts = append(opts, knowledge.ChangedOnly())
	}
	report, err := components.Knowledge.IngestDirectory(cmd.Context(), dir, opts...)
	if err != nil {
		return err
	}
	return cli.WriteIngestReport(cmd.OutOrStdout(), report, format)
}
