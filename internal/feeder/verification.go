package feeder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/saberlens/internal/domain/scoring"
	"github.com/okian/saberlens/pkg/logger"
)

// verifyStoredBatches fetches the batch of every page by context.
func verifyStoredBatches(ctx context.Context, config *Config, pages []Page, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	for _, page := range pages {
		url := config.BaseURL + "/batches/" + config.SubjectID + "?page=" + strconv.Itoa(page.Number) + "&sort=top"
		batch, err := pollBatch(ctx, client, url, config.PollTimeout, func(*Batch) bool { return true })
		if err != nil {
			return err
		}
		n, err := verifyBatch(page, batch)
		if err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}
		stats.BatchesVerified++
		stats.RecordsVerified += n
		if config.Verbose {
			logger.Get().Info(ctx, "batch verified", logger.Int("page", page.Number), logger.Int("records", n))
		}
	}
	return nil
}

// verifyCurrentBatch navigates to page and expects it to become current.
func verifyCurrentBatch(ctx context.Context, config *Config, page Page, _ *Stats) error {
	client := newHTTPClient(config.Timeout)
	if err := navigate(ctx, client, config.BaseURL, page.SiteURL); err != nil {
		return err
	}
	batch, err := pollBatch(ctx, client, config.BaseURL+"/batches/current", config.PollTimeout, func(b *Batch) bool {
		return b.Context.SubjectID == config.SubjectID && b.Context.Page == page.Number
	})
	if err != nil {
		return err
	}
	_, err = verifyBatch(page, batch)
	return err
}

// verifyBatch checks that the records are exactly the entries that should
// survive, in payload order, with their original indices, and that every
// accuracy matches the expected value to two decimals.
func verifyBatch(page Page, batch *Batch) (int, error) {
	want := expectedRecords(page.Payload)
	if len(batch.Records) != len(want) {
		return 0, fmt.Errorf("got %d records, want %d", len(batch.Records), len(want))
	}

	last := -1
	for _, rec := range batch.Records {
		if rec.Index <= last {
			return 0, fmt.Errorf("index %d out of order after %d", rec.Index, last)
		}
		last = rec.Index

		exp, ok := want[rec.Index]
		if !ok {
			return 0, fmt.Errorf("unexpected record at index %d", rec.Index)
		}
		if !strings.EqualFold(rec.Hash, exp.hash) || rec.BaseScore != exp.baseScore {
			return 0, fmt.Errorf("index %d does not match its payload entry", rec.Index)
		}
		if rec.MaxScore != exp.maxScore {
			return 0, fmt.Errorf("index %d: max score %d, want %d", rec.Index, rec.MaxScore, exp.maxScore)
		}
		if rec.Accuracy == nil {
			return 0, fmt.Errorf("index %d: missing accuracy", rec.Index)
		}
		if *rec.Accuracy != scoring.Round2(*rec.Accuracy) {
			return 0, fmt.Errorf("index %d: accuracy %v has more than two decimals", rec.Index, *rec.Accuracy)
		}
		if *rec.Accuracy != exp.accuracy {
			return 0, fmt.Errorf("index %d: accuracy %v, want %v", rec.Index, *rec.Accuracy, exp.accuracy)
		}
	}
	return len(batch.Records), nil
}
