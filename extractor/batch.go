package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"pricewatch/internal/types"
)

// PriceFetcher refreshes the current price at a product URL
type PriceFetcher interface {
	ExtractPrice(ctx context.Context, url string) (*float64, error)
}

// BatchChecker refreshes prices for tracked items one at a time, pausing
// between requests
type BatchChecker struct {
	fetcher PriceFetcher
	delay   time.Duration
	logger  types.Logger
}

// NewBatchChecker creates a batch checker
func NewBatchChecker(fetcher PriceFetcher, delay time.Duration, logger types.Logger) *BatchChecker {
	return &BatchChecker{
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
	}
}

// CheckAll refreshes every item that has a URL. A cancelled context stops the
// loop and returns the summary so far with the context error.
func (b *BatchChecker) CheckAll(ctx context.Context, items []types.TrackedItem) (*types.BatchSummary, error) {
	startTime := time.Now()
	summary := &types.BatchSummary{Items: []types.PriceCheck{}}

	var pending []types.TrackedItem
	for _, item := range items {
		if item.URL != "" {
			pending = append(pending, item)
		}
	}
	b.logger.Infof("Checking prices for %d items", len(pending))

	for i, item := range pending {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(b.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		b.logger.Debugf("Checking item %d/%d: %s", i+1, len(pending), item.URL)
		check := b.check(ctx, item)
		switch {
		case check.Error != "":
			summary.Errors++
			b.logger.Warnf("Could not fetch price for %s: %s", item.URL, check.Error)
		case check.Changed:
			summary.Checked++
			summary.Updated++
			b.logger.Infof("Price changed for %s: %s -> %.2f", item.URL, formatPrice(check.OldPrice), *check.NewPrice)
		default:
			summary.Checked++
			b.logger.Debugf("Price unchanged for %s", item.URL)
		}
		summary.Items = append(summary.Items, check)
	}

	b.logger.Infof("Price check completed in %v: %d checked, %d updated, %d errors",
		time.Since(startTime), summary.Checked, summary.Updated, summary.Errors)
	return summary, nil
}

func (b *BatchChecker) check(ctx context.Context, item types.TrackedItem) types.PriceCheck {
	check := types.PriceCheck{
		ItemID:   item.ID,
		URL:      item.URL,
		OldPrice: item.CurrentPrice,
	}

	price, err := b.fetcher.ExtractPrice(ctx, item.URL)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	if price == nil {
		check.Error = "no price found"
		return check
	}

	check.NewPrice = price
	if item.CurrentPrice == nil || *item.CurrentPrice != *price {
		check.Changed = true
	}
	if check.Changed && item.CurrentPrice != nil && *item.CurrentPrice > 0 {
		pct := (*price - *item.CurrentPrice) / *item.CurrentPrice * 100
		check.ChangePercent = types.Float(math.Round(pct*10) / 10)
	}
	return check
}

// WriteJSON saves a batch summary to filename
func WriteJSON(filename string, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	return os.WriteFile(filename, jsonData, 0644)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%.2f", *p)
}
