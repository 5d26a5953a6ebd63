package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ragquery/internal/adapter/retriever"
	"ragquery/internal/adapter/synthesizer"
	"ragquery/internal/usecase"
)

var (
	promptQuery      string
	promptMaxSources int
	promptSystem     bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt a query would send to the model",
	Long: `Rank chunks for a question and print the generator prompt without calling
a model. Useful for inspecting evidence or running the prompt by hand.

Examples:
  ragquery prompt -q "How are nodes configured?"
  ragquery prompt -q "deployment topology" --system`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question to build the prompt for (required)")
	promptCmd.Flags().IntVarP(&promptMaxSources, "max-sources", "k", 0, "maximum chunks included (default from config)")
	promptCmd.Flags().BoolVar(&promptSystem, "system", false, "also print the system prompt")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(GetRootDir(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	limit := cfg.Retrieve.DefaultMaxSources
	if promptMaxSources > 0 {
		limit = promptMaxSources
	}
	if limit <= 0 {
		limit = usecase.DefaultMaxSources
	}

	chunks, err := retriever.NewKeywordRetriever(st, GetLogger()).Retrieve(context.Background(), promptQuery, limit)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Println("No relevant chunks; the query would get the no-information answer.")
		return nil
	}

	system, user, err := synthesizer.RenderPrompt(promptQuery, chunks)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}

	if promptSystem {
		fmt.Println(system)
		fmt.Println()
	}
	fmt.Println(user)
	return nil
}
