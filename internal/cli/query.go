package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/domain"
	"ragquery/internal/validation"
)

var (
	queryText       string
	queryMaxSources int
	queryMaxTokens  int
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question against the knowledge base",
	Long: `Rank knowledge-base chunks for a question, synthesize a cited answer and
list the documents it cites.

Examples:
  ragquery query -q "What is the deployment topology?"
  ragquery query -q "node configuration" --max-sources 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	queryCmd.Flags().IntVarP(&queryMaxSources, "max-sources", "k", 0, "maximum chunks used as evidence (default from config)")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "answer length budget (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the response as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	req := domain.QueryRequest{Query: queryText}
	if cmd.Flags().Changed("max-sources") {
		req.MaxSources = &queryMaxSources
	}
	if cmd.Flags().Changed("max-tokens") {
		req.MaxTokens = &queryMaxTokens
	}

	if err := validation.New().ValidateQuery(req); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	svc, err := newQueryService(GetRootDir(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.Queries.Execute(context.Background(), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Answer)
	fmt.Println()

	if len(resp.CitedDocuments) == 0 {
		fmt.Println("No documents cited.")
	} else {
		fmt.Printf("Sources (%d):\n", len(resp.CitedDocuments))
		for i, d := range resp.CitedDocuments {
			fmt.Printf("--- [%d] %s (%s) ---\n", i+1, d.Title, d.ID)
			if d.URL != nil {
				fmt.Println(*d.URL)
			}
			fmt.Println(analyzer.Truncate(d.Snippet, 300))
			fmt.Println()
		}
	}

	fmt.Printf("Chunks retrieved: %d, synthesized: %v, took %dms\n",
		resp.Metadata.TotalChunksRetrieved, resp.AnswerSynthesized, resp.Metadata.ProcessingTimeMs)
	return nil
}
