package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragquery/config"
	"ragquery/internal/adapter/store"
	"ragquery/internal/usecase"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chunk store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	st, err := openStore(dir, cfg)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	stats, err := usecase.ComputeStats(st)
	if err != nil {
		return err
	}

	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Backend:   %s\n", cfg.Store.Backend)
	if cfg.Store.Backend != "memory" {
		fmt.Printf("Path:      %s\n", config.StorePath(dir, cfg))
	}
	fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("Documents: %d\n", stats.TotalDocuments)

	if bolt, ok := st.(*store.BoltStore); ok {
		info, err := bolt.GetSchemaInfo()
		if err != nil {
			return err
		}
		fmt.Printf("Schema:    v%d\n", info.Version)
		if rebuild, reason, err := bolt.NeedsRebuild(cfg); err == nil && rebuild {
			fmt.Printf("Warning: %s, run 'ragquery ingest --reset'\n", reason)
		}
	}
	return nil
}
