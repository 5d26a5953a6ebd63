package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"ragquery/config"
	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/adapter/retriever"
	"ragquery/internal/adapter/store"
	"ragquery/internal/domain"
)

func main() {
	dir := flag.String("dir", ".", "Path to the knowledge-base directory")
	query := flag.String("q", "", "Query to test")
	maxSources := flag.Int("k", 10, "Maximum chunks returned")
	iterations := flag.Int("n", 100, "Ranking passes to time")
	flag.Parse()

	if *iterations < 1 {
		*iterations = 1
	}

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir ./kb -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Chunk store load time")
		fmt.Println("  2. Ranking latency over -n passes (p50, p95, max)")
		fmt.Println("  3. The ranked evidence with scores")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	chunks, loadTime, err := loadChunks(*dir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading chunk store: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RANKING BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Store:  %s (%s)\n", config.StorePath(*dir, cfg), cfg.Store.Backend)
	fmt.Printf("Chunks: %d (loaded in %s)\n", len(chunks), loadTime.Round(time.Microsecond))
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	var results []domain.Chunk
	durations := make([]time.Duration, 0, *iterations)
	for i := 0; i < *iterations; i++ {
		start := time.Now()
		results = retriever.Rank(*query, chunks, *maxSources)
		durations = append(durations, time.Since(start))
	}

	if len(results) == 0 {
		fmt.Println("No chunk reached the relevance threshold.")
	} else {
		fmt.Printf("Top %d matches:\n\n", len(results))
	}

	for i, c := range results {
		preview := strings.ReplaceAll(analyzer.Truncate(c.Text, 150), "\n", " ")

		rating := "OK"
		if c.RelevanceScore >= 0.95 {
			rating = "HIGH"
		} else if c.RelevanceScore > retriever.RelevanceThreshold {
			rating = "GOOD"
		}

		fmt.Printf("%d. [%s %.3f] %s (%s)\n", i+1, rating, c.RelevanceScore, c.DocumentTitle, c.DocumentID)
		fmt.Printf("   %s\n\n", preview)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LATENCY (%d passes):\n", len(durations))
	fmt.Printf("  p50: %s\n", percentile(durations, 0.50))
	fmt.Printf("  p95: %s\n", percentile(durations, 0.95))
	fmt.Printf("  max: %s\n", durations[len(durations)-1])
}

func loadChunks(dir string, cfg *config.Config) ([]domain.Chunk, time.Duration, error) {
	start := time.Now()

	path := config.StorePath(dir, cfg)
	var (
		chunks []domain.Chunk
		err    error
	)
	switch cfg.Store.Backend {
	case "sqlite":
		st, openErr := store.NewSQLiteStore(path)
		if openErr != nil {
			return nil, 0, openErr
		}
		defer st.Close()
		chunks, err = st.AllChunks()
	case "bolt", "":
		st, openErr := store.NewBoltStore(path)
		if openErr != nil {
			return nil, 0, openErr
		}
		defer st.Close()
		chunks, err = st.AllChunks()
	default:
		return nil, 0, fmt.Errorf("backend %q has no persistent store to benchmark", cfg.Store.Backend)
	}

	return chunks, time.Since(start), err
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx].Round(time.Microsecond)
}
