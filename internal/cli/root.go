package cli

import (
	"fmt"
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"ragquery/config"
	"ragquery/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragquery",
	Short: "Knowledge-base query service - answer questions with cited sources",
	Long: `ragquery ingests a knowledge base into a chunk store, ranks chunks by
keyword relevance and asks a language model for an answer that cites the
chunks it used. Cited chunks are collapsed into source documents.

Example usage:
  ragquery ingest ./docs                     # Load documents into the store
  ragquery query -q "deployment topology"    # Ask a question from the shell
  ragquery serve --port 8080                 # Serve POST /query over HTTP`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger = logging.New(cfg.Logging)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragquery.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "knowledge-base directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *log.Logger {
	return logger
}
