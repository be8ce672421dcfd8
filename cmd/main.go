package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pricewatch/compare"
	"pricewatch/extractor"
	"pricewatch/identity"
	"pricewatch/internal/app"
	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/internal/report"
	"pricewatch/internal/types"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()
	os.Exit(run())
}

func run() int {
	var (
		urlFlag      = flag.String("url", "", "Product page to extract")
		storeFlag    = flag.String("store", "", "Store label overriding URL resolution")
		compareFlag  = flag.Bool("compare", false, "Search other stores for the product")
		nameFlag     = flag.String("name", "", "Product name to compare instead of a URL")
		brandFlag    = flag.String("brand", "", "Brand hint for the search query")
		priceFlag    = flag.Float64("price", 0, "Current price when comparing by name or barcode")
		barcodeFlag  = flag.String("barcode", "", "Barcode to identify and compare")
		identityFlag = flag.String("identity", "", "Print the matching identity of a product name")
		batchFlag    = flag.String("batch", "", "JSON file of tracked items to refresh")
		outputFlag   = flag.String("output", "", "Output file path (default: stdout)")
		configFlag   = flag.String("config", "", "Config file (default: ./pricewatch.yaml if present)")
		requestDelay = flag.Duration("delay", 0, "Delay between requests (overrides config)")
		maxRetries   = flag.Int("retries", -1, "Maximum retry attempts (overrides config)")
		timeout      = flag.Duration("timeout", 0, "Render timeout (overrides config)")
		httpOnly     = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		jsonOut      = flag.Bool("json", false, "Print JSON instead of tables")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *requestDelay > 0 {
		cfg.Scrape.RequestDelay = *requestDelay
		cfg.Batch.Delay = *requestDelay
	}
	if *maxRetries >= 0 {
		cfg.Scrape.MaxRetries = *maxRetries
	}
	if *timeout > 0 {
		cfg.Scrape.Timeout = *timeout
	}
	if *httpOnly {
		cfg.Scrape.Headless = false
	}

	logger := logging.New(logging.Level(*verbose, cfg.LogLevel))

	// identity needs no network
	if *identityFlag != "" {
		emit(*outputFlag, true, identity.Derive(*identityFlag), nil)
		return 0
	}

	if *urlFlag == "" && *nameFlag == "" && *barcodeFlag == "" && *batchFlag == "" {
		log.Fatal("One of --url, --name, --barcode, --batch or --identity is required")
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	var current *float64
	if *priceFlag > 0 {
		current = types.Float(*priceFlag)
	}

	exitCode := 0
	startTime := time.Now()
	switch {
	case *batchFlag != "":
		items, err := readItems(*batchFlag)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *batchFlag, err)
		}
		summary, err := application.Batch.CheckAll(ctx, items)
		if err != nil {
			logger.Warnf("Batch check stopped early: %v", err)
		}
		emit(*outputFlag, *jsonOut, summary, func() { report.Batch(os.Stdout, summary) })

	case *barcodeFlag != "":
		comparison, err := application.Comparer.CompareBarcode(ctx, *barcodeFlag, current, *storeFlag)
		if err != nil {
			log.Fatalf("Barcode comparison failed: %v", err)
		}
		emitComparison(*outputFlag, *jsonOut, comparison)

	case *nameFlag != "":
		comparison, err := application.Comparer.Compare(ctx, compare.Request{
			Name:         *nameFlag,
			Brand:        *brandFlag,
			CurrentPrice: current,
			CurrentStore: *storeFlag,
		})
		if err != nil {
			log.Fatalf("Comparison failed: %v", err)
		}
		emitComparison(*outputFlag, *jsonOut, comparison)

	case *compareFlag:
		comparison, err := application.Comparer.CompareURL(ctx, *urlFlag, *brandFlag)
		if err != nil {
			log.Fatalf("Comparison failed: %v", err)
		}
		emitComparison(*outputFlag, *jsonOut, comparison)

	default:
		result := application.Extractor.ExtractTarget(ctx, types.ScrapeTarget{URL: *urlFlag, StoreHint: *storeFlag})
		emit(*outputFlag, true, result, nil)
		if !result.Success {
			exitCode = 1
		}
	}
	logger.Infof("Completed in %v", time.Since(startTime))
	return exitCode
}

func emitComparison(output string, asJSON bool, comparison *compare.Comparison) {
	emit(output, asJSON, comparison, func() {
		if comparison.Product != nil {
			fmt.Printf("%s at %s: %s\n", comparison.Product.Name, comparison.Product.StoreName, report.Price(comparison.Product.Price))
		}
		fmt.Printf("Query: %s\n\n", comparison.Query)
		report.Alternatives(os.Stdout, comparison.AlternativesResult)
	})
}

// emit writes v as JSON to output when set, otherwise prints either JSON or
// the table produced by printTable
func emit(output string, asJSON bool, v interface{}, printTable func()) {
	if output != "" {
		if err := extractor.WriteJSON(output, v); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		fmt.Printf("Results written to %s\n", output)
		return
	}
	if asJSON || printTable == nil {
		jsonData, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal results to JSON: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}
	printTable()
}

func readItems(path string) ([]types.TrackedItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []types.TrackedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse tracked items: %w", err)
	}
	return items, nil
}
