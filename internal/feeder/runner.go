package feeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/saberlens/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
	subjectIDBase       = 76561198000000000
	subjectIDSpread     = 1_000_000_000
)

// Run executes a complete feed: generate, submit, then verify each stored
// batch and the batch surfaced for the navigated page.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	if config.Seed == 0 {
		config.Seed = rand.Uint64()
	}
	if config.SubjectID == "" {
		config.SubjectID = strconv.FormatInt(subjectIDBase+rand.Int64N(subjectIDSpread), 10)
	}
	runID := uuid.NewString()
	log := logger.Get().Named("feeder")

	log.Info(ctx, "starting feed run",
		logger.String("run", runID),
		logger.String("baseURL", config.BaseURL),
		logger.String("subject", config.SubjectID),
		logger.Int("pages", config.Pages),
		logger.Int("entriesPerPage", config.EntriesPerPage),
		logger.Int("workers", config.Workers),
		logger.Any("seed", config.Seed))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate pages
	pages, err := generatePages(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("page generation failed: %w", err)
	}

	// Step 3: Submit response observations concurrently
	if err := submitResponses(ctx, config, pages, stats); err != nil {
		return fmt.Errorf("response submission failed: %w", err)
	}

	// Step 4: Verify every stored batch
	if err := verifyStoredBatches(ctx, config, pages, stats); err != nil {
		return fmt.Errorf("batch verification failed: %w", err)
	}

	// Step 5: Navigate to the first page and verify the current batch
	if err := verifyCurrentBatch(ctx, config, pages[0], stats); err != nil {
		return fmt.Errorf("current batch verification failed: %w", err)
	}

	// Step 6: Save payloads to file
	if config.OutputFile != "" {
		if err := savePages(ctx, config.OutputFile, pages); err != nil {
			log.Warn(ctx, "failed to save pages to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, runID, stats)

	log.Info(ctx, "feed completed successfully", logger.String("run", runID))
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// The service answers with Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// savePages writes the generated pages as a JSON array.
func savePages(ctx context.Context, filename string, pages []Page) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "pages saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, runID string, stats *Stats) {
	var successRate, pagesPerSecond float64
	if stats.PagesGenerated > 0 {
		successRate = float64(stats.BatchesVerified) / float64(stats.PagesGenerated) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		pagesPerSecond = float64(stats.ResponsesPosted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.String("run", runID),
		logger.Int("pagesGenerated", stats.PagesGenerated),
		logger.Int("entriesGenerated", stats.EntriesGenerated),
		logger.Int("responsesPosted", stats.ResponsesPosted),
		logger.Int("responsesFailed", stats.ResponsesFailed),
		logger.Int("batchesVerified", stats.BatchesVerified),
		logger.Int("recordsVerified", stats.RecordsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("pagesPerSecond", pagesPerSecond))
}
