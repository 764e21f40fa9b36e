package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/cli"
	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/models"
)

var (
	retrieveTopK      int
	retrieveThreshold float64
	retrieveOutput    string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Retrieve the passages most relevant to a question",
	Long: `Retrieve passages from the knowledge base. The query is all arguments
joined by spaces, so quoting is optional.

Examples:
  cmassist retrieve what are the stages of the ADKAR model
  cmassist retrieve "managing resistance" --top-k 3 --threshold 0.5
  cmassist retrieve kotter urgency -o context`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of passages to consider (0 = config default)")
	retrieveCmd.Flags().Float64VarP(&retrieveThreshold, "threshold", "t", -1, "minimum similarity in [0, 1] (negative = config default)")
	retrieveCmd.Flags().StringVarP(&retrieveOutput, "output", "o", "text", "output format: text, json or context")
	rootCmd.AddCommand(retrieveCmd)
}

// buildQuery joins args into one query string.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(retrieveOutput)
	if err != nil {
		return err
	}
	req := models.RetrieveRequest{Query: buildQuery(args), TopK: retrieveTopK}
	if retrieveThreshold >= 0 {
		th := retrieveThreshold
		req.Threshold = &th
	}
	if err := req.Validate(); err != nil {
		return err
	}

	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	resp := &models.RetrieveResponse{Query: req.Query, Results: []models.SimilarityResult{}}
	results, err := components.Knowledge.Retrieve(cmd.Context(), req)
	if err != nil {
		logger.Warn("retrieval failed", zap.Error(err))
		resp.Warning = err.Error()
	} else {
		resp.Results = results
	}
	resp.Context = knowledge.BuildContext(knowledge.Chunks(resp.Results))
	resp.ChunkCount = len(resp.Results)
	return cli.WriteRetrieveResults(cmd.OutOrStdout(), resp, format)
}
