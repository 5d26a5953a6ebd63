package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragquery/config"
	"ragquery/internal/adapter/store"
	"ragquery/internal/usecase"
)

var (
	ingestSeed  string
	ingestReset bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Load documents into the chunk store",
	Long: `Walk a directory, split every matching document into chunks and add them
to the configured chunk store. Markdown, plain text, HTML and PDF files are
read. Chunks already present are skipped.

Examples:
  ragquery ingest .                # Ingest current directory
  ragquery ingest ./docs --reset   # Clear the store first
  ragquery ingest --seed kb.yaml   # Load a prepared chunk file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestSeed, "seed", "", "YAML chunk file to load instead of walking a directory")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear the chunk store before ingesting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()
	dir := GetRootDir()

	if cfg.Store.Backend == "memory" {
		return fmt.Errorf("the memory backend does not persist chunks; use 'ragquery serve --seed' or a bolt/sqlite store")
	}

	path := dir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	if ingestSeed == "" {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", path)
		}
	}

	st, err := openStore(dir, cfg)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	reset := ingestReset
	bolt, isBolt := st.(*store.BoltStore)
	if isBolt && !reset {
		rebuild, reason, err := bolt.NeedsRebuild(cfg)
		if err != nil {
			return err
		}
		if rebuild {
			fmt.Printf("Store rebuild required: %s\n", reason)
			reset = true
		}
	}
	if reset {
		fmt.Println("Clearing existing chunks...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear chunk store: %w", err)
		}
	}

	ingestUC := newIngestUseCase(st, cfg, logger)

	var result *usecase.IngestResult
	if ingestSeed != "" {
		result, err = ingestUC.LoadSeed(ingestSeed)
		if err != nil {
			return fmt.Errorf("seed load failed: %w", err)
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Printf("Scanning %s...\n", path)
		result, err = ingestUC.Ingest(ctx, path, newProgress())
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	}

	if isBolt {
		if err := bolt.MarkIngested(cfg); err != nil {
			return fmt.Errorf("failed to update schema info: %w", err)
		}
	}

	total, err := st.Size()
	if err != nil {
		return fmt.Errorf("failed to read chunk store: %w", err)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files ingested:   %d\n", result.FilesIngested)
	fmt.Printf("  Files failed:     %d\n", result.FilesFailed)
	fmt.Printf("  Files skipped:    %d\n", result.FilesSkipped)
	fmt.Printf("  Chunks added:     %d\n", result.ChunksAdded)
	fmt.Printf("  Chunks duplicate: %d\n", result.ChunksDuplicate)
	fmt.Printf("  Chunks in store:  %d\n", total)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nStore: %s (%s)\n", config.StorePath(dir, cfg), cfg.Store.Backend)
	return nil
}

// newProgress renders a progress bar once the file total is known.
func newProgress() usecase.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
