package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/duskpool/dp-indexer/internal/workflows"
)

const (
	defaultTemporalHost = "localhost:7233"
	defaultNamespace    = "default"
	defaultTaskQueue    = "darkpool-backfill"
)

type Config struct {
	TemporalHost string
	Namespace    string
	TaskQueue    string
	AccountsFile string
	Concurrency  int           // Number of backfills in flight at once
	WaitTimeout  time.Duration // How long to wait for a single backfill to finish
	OutputFile   string        // Output markdown file path (optional)
	Debug        bool
}

// RunResult records the outcome of one backfill workflow
type RunResult struct {
	AccountID  uuid.UUID
	WorkflowID string
	RunID      string
	Status     enums.WorkflowExecutionStatus
	Duration   time.Duration
	Summary    *workflows.BackfillSummary
	Err        error
}

func main() {
	cfg := parseFlags()

	if cfg.AccountsFile == "" {
		fmt.Println("Error: accounts file is required")
		flag.Usage()
		os.Exit(1)
	}

	accounts, err := loadAccounts(cfg.AccountsFile)
	if err != nil {
		fmt.Printf("Error loading accounts: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		fmt.Printf("Error creating Temporal client: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Printf("Connected to Temporal at %s (namespace: %s)\n", cfg.TemporalHost, cfg.Namespace)
	fmt.Printf("Backfilling %d accounts on task queue %q (concurrency: %d)\n\n", len(accounts), cfg.TaskQueue, cfg.Concurrency)

	benchStart := time.Now()
	results := runBackfills(ctx, c, cfg, accounts)
	wallClock := time.Since(benchStart)

	if ctx.Err() != nil {
		fmt.Println("\n\n" + strings.Repeat("=", 80))
		fmt.Println("INTERRUPTED - PARTIAL RESULTS")
		fmt.Println(strings.Repeat("=", 80))
	} else {
		fmt.Println("\n\n" + strings.Repeat("=", 80))
		fmt.Println("BENCHMARK RESULTS")
		fmt.Println(strings.Repeat("=", 80))
	}

	printResults(results, wallClock)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, results, wallClock); err != nil {
			fmt.Printf("\n⚠️  Warning: Failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\n✓ Report written to: %s\n", cfg.OutputFile)
		}
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.TemporalHost, "temporal-host", defaultTemporalHost, "Temporal host address")
	flag.StringVar(&cfg.Namespace, "namespace", defaultNamespace, "Temporal namespace")
	flag.StringVar(&cfg.TaskQueue, "task-queue", defaultTaskQueue, "Task queue the backfill worker listens on")
	flag.StringVar(&cfg.AccountsFile, "accounts", "", "File with one account ID per line (required)")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.IntVar(&cfg.Concurrency, "concurrency", 4, "Number of backfills in flight at once (default: 4)")
	flag.DurationVar(&cfg.WaitTimeout, "wait-timeout", 30*time.Minute, "Timeout for a single backfill (default: 30m)")

	configFile := flag.String("config", "", "Path to config file (optional)")

	flag.Parse()

	// Validate concurrency
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Concurrency > 16 {
		cfg.Concurrency = 16 // Cap to avoid overwhelming the worker pool
	}

	// Load from config file if specified
	if *configFile != "" {
		fileCfg, err := LoadBenchConfig(*configFile)
		if err != nil {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		} else {
			// Override with file values if not set via flags
			if cfg.TemporalHost == defaultTemporalHost && fileCfg.TemporalHost != "" {
				cfg.TemporalHost = fileCfg.TemporalHost
			}
			if cfg.Namespace == defaultNamespace && fileCfg.Namespace != "" {
				cfg.Namespace = fileCfg.Namespace
			}
			if cfg.TaskQueue == defaultTaskQueue && fileCfg.TaskQueue != "" {
				cfg.TaskQueue = fileCfg.TaskQueue
			}
		}
	}

	return cfg
}

// loadAccounts reads one account ID per line. Blank lines and lines starting
// with # are skipped, duplicates are collapsed.
func loadAccounts(path string) ([]uuid.UUID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := uuid.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no account IDs found in %s", path)
	}
	return ids, nil
}

// runBackfills starts one backfill workflow per account with bounded
// concurrency and waits for each to finish
func runBackfills(ctx context.Context, c client.Client, cfg *Config, accounts []uuid.UUID) []RunResult {
	// Workflows are referenced by method value, so a worker shell with no
	// executor is enough to name the workflow being started
	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	runStamp := time.Now().UTC().Format("20060102-150405")

	var (
		mu      sync.Mutex
		results []RunResult
		done    int
	)

	jobs := make(chan uuid.UUID)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for accountID := range jobs {
				if cfg.Debug {
					fmt.Printf("[DEBUG] Worker %d starting backfill for account %s\n", workerID, accountID)
				}

				result := executeBackfill(ctx, c, cfg, w, runStamp, accountID)

				mu.Lock()
				results = append(results, result)
				done++
				if !cfg.Debug {
					fmt.Printf("\r⏳ %d/%d backfills complete    ", done, len(accounts))
				}
				mu.Unlock()
			}
		}(i)
	}

	for _, accountID := range accounts {
		select {
		case jobs <- accountID:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func executeBackfill(ctx context.Context, c client.Client, cfg *Config, w workflows.Worker, runStamp string, accountID uuid.UUID) RunResult {
	result := RunResult{AccountID: accountID}
	start := time.Now()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("backfill-bench-%s-%s", accountID, runStamp),
		TaskQueue:                cfg.TaskQueue,
		WorkflowExecutionTimeout: cfg.WaitTimeout,
	}, w.BackfillAccountState, accountID)
	if err != nil {
		result.Err = fmt.Errorf("start failed: %w", err)
		return result
	}

	result.WorkflowID = run.GetID()
	result.RunID = run.GetRunID()

	waitCtx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout)
	defer cancel()

	var summary workflows.BackfillSummary
	if err := run.Get(waitCtx, &summary); err != nil {
		result.Err = err
	} else {
		result.Summary = &summary
	}
	result.Duration = time.Since(start)

	// The close status comes from the server so failures and timeouts are
	// labeled the same way the Temporal UI labels them
	describeCtx, describeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer describeCancel()
	if resp, err := c.DescribeWorkflowExecution(describeCtx, result.WorkflowID, result.RunID); err == nil {
		result.Status = resp.GetWorkflowExecutionInfo().GetStatus()
	}

	return result
}

func printResults(results []RunResult, wallClock time.Duration) {
	if len(results) == 0 {
		fmt.Println("No backfills were run.")
		return
	}

	completed, failed, other := splitByOutcome(results)

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Accounts:      %d\n", len(results))
	fmt.Printf("Completed:     %d (%s)\n", len(completed), percentageString(len(completed), len(results)))
	if len(failed) > 0 {
		fmt.Printf("Failed:        %d (%s)\n", len(failed), percentageString(len(failed), len(results)))
	}
	if len(other) > 0 {
		fmt.Printf("Other:         %d (%s)\n", len(other), percentageString(len(other), len(results)))
	}
	fmt.Printf("Wall clock:    %s\n", formatDuration(wallClock))
	fmt.Printf("Rate:          %s\n", formatRate(len(results), wallClock))
	fmt.Println()

	if len(completed) > 0 {
		durations := sortedDurations(completed)
		fmt.Printf("Backfill durations (completed only):\n")
		fmt.Printf("  Min:     %s\n", formatDuration(durations[0]))
		fmt.Printf("  Median:  %s\n", formatDuration(durationQuantile(durations, 0.5)))
		fmt.Printf("  Max:     %s\n", formatDuration(durations[len(durations)-1]))
		fmt.Println()

		var verified, repaired uint64
		var posted int
		for _, r := range completed {
			verified += r.Summary.ObjectsVerified
			repaired += r.Summary.ObjectsRepaired
			posted += r.Summary.ExpectationsPosted
		}
		fmt.Printf("Aggregate backfill work:\n")
		fmt.Printf("  Objects verified:    %d\n", verified)
		fmt.Printf("  Objects repaired:    %d\n", repaired)
		fmt.Printf("  Expectations posted: %d\n", posted)
		fmt.Println()
	}

	if len(failed) > 0 {
		fmt.Println("Failures:")
		for _, r := range failed {
			fmt.Printf("  ❌ %s (%s): %v\n", r.AccountID, statusLabel(r.Status), r.Err)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("-", 80))
}

// splitByOutcome buckets results into completed runs with a summary, runs
// that returned an error, and everything else (canceled, interrupted)
func splitByOutcome(results []RunResult) (completed, failed, other []RunResult) {
	for _, r := range results {
		switch {
		case r.Summary != nil:
			completed = append(completed, r)
		case r.Err != nil:
			failed = append(failed, r)
		default:
			other = append(other, r)
		}
	}
	return completed, failed, other
}

func sortedDurations(results []RunResult) []time.Duration {
	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		durations = append(durations, r.Duration)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	return durations
}

// writeMarkdownReport writes a markdown report of the benchmark run
func writeMarkdownReport(filepath string, results []RunResult, wallClock time.Duration) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	completed, failed, other := splitByOutcome(results)

	_, _ = fmt.Fprintf(file, "# Backfill Benchmark Report\n\n")
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	_, _ = fmt.Fprintf(file, "## Summary\n\n")
	_, _ = fmt.Fprintf(file, "| Metric | Value |\n")
	_, _ = fmt.Fprintf(file, "|--------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Accounts** | %d |\n", len(results))
	_, _ = fmt.Fprintf(file, "| **Completed** | %d (%s) |\n", len(completed), percentageString(len(completed), len(results)))
	if len(failed) > 0 {
		_, _ = fmt.Fprintf(file, "| **Failed** | %d (%s) |\n", len(failed), percentageString(len(failed), len(results)))
	}
	if len(other) > 0 {
		_, _ = fmt.Fprintf(file, "| **Other** | %d (%s) |\n", len(other), percentageString(len(other), len(results)))
	}
	_, _ = fmt.Fprintf(file, "| **Wall clock** | %s |\n", formatDuration(wallClock))
	_, _ = fmt.Fprintf(file, "| **Rate** | %s |\n", formatRate(len(results), wallClock))
	_, _ = fmt.Fprintf(file, "\n")

	if len(completed) > 0 {
		durations := sortedDurations(completed)
		_, _ = fmt.Fprintf(file, "## Durations (completed only)\n\n")
		_, _ = fmt.Fprintf(file, "| Quantile | Duration |\n")
		_, _ = fmt.Fprintf(file, "|----------|----------|\n")
		_, _ = fmt.Fprintf(file, "| **Min** | %s |\n", formatDuration(durations[0]))
		_, _ = fmt.Fprintf(file, "| **Median** | %s |\n", formatDuration(durationQuantile(durations, 0.5)))
		_, _ = fmt.Fprintf(file, "| **Max** | %s |\n", formatDuration(durations[len(durations)-1]))
		_, _ = fmt.Fprintf(file, "\n")
	}

	_, _ = fmt.Fprintf(file, "## Per-account results\n\n")
	_, _ = fmt.Fprintf(file, "| Account | Status | Duration | Verified | Repaired | Posted |\n")
	_, _ = fmt.Fprintf(file, "|---------|--------|----------|----------|----------|--------|\n")
	for _, r := range results {
		verified, repaired, posted := "-", "-", "-"
		if r.Summary != nil {
			verified = fmt.Sprintf("%d", r.Summary.ObjectsVerified)
			repaired = fmt.Sprintf("%d", r.Summary.ObjectsRepaired)
			posted = fmt.Sprintf("%d", r.Summary.ExpectationsPosted)
		}
		_, _ = fmt.Fprintf(file, "| `%s` | %s | %s | %s | %s | %s |\n",
			r.AccountID, statusLabel(r.Status), formatDuration(r.Duration), verified, repaired, posted)
	}

	if len(failed) > 0 {
		_, _ = fmt.Fprintf(file, "\n## Failures\n\n")
		for _, r := range failed {
			_, _ = fmt.Fprintf(file, "- `%s`: %v\n", r.AccountID, r.Err)
		}
	}

	return nil
}
