// Package main converts a CSV balance export into a usage series offline.
//
// Usage:
//
//	convert -in balances.csv -spreading -merge -per-hour -trim -format json
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"sort"

	"prepaid-usage-lab/internal/config"
	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/export"
	"prepaid-usage-lab/internal/usage"
)

func main() {
	in := flag.String("in", "", "Input CSV (timestamp, light_balance, ac_balance); stdin when empty")
	out := flag.String("out", "", "Output file; stdout when empty")
	format := flag.String("format", "csv", "Output format: csv or json")
	configPath := flag.String("config", "", "YAML config providing usage.spreading thresholds")

	spreading := flag.Bool("spreading", false, "Spread usage over long gaps")
	smoothing := flag.Bool("smoothing", false, "Apply 3-point smoothing")
	perHour := flag.Bool("per-hour", false, "Normalize usage to a per-hour rate")
	merge := flag.Bool("merge", false, "Enable smart merge")
	mergeRatio := flag.Int("merge-ratio", 0, "Fixed merge ratio; 0 derives it from the series span")
	trim := flag.Bool("trim", false, "Remove the leading sentinel point")
	totals := flag.Bool("totals", false, "Log total usage and top-ups of the input")

	flag.Parse()

	logger := log.New(os.Stderr, "[convert] ", log.LstdFlags)

	if *format != "csv" && *format != "json" {
		logger.Fatalf("Unknown format %q (csv, json)", *format)
	}
	if *mergeRatio < 0 {
		logger.Fatalf("merge-ratio must not be negative, got %d", *mergeRatio)
	}

	spread := domain.DefaultSpreadConfig()
	if *configPath != "" {
		cfg, err := config.NewLoader(*configPath).Load()
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		spread = cfg.SpreadConfig()
	}

	var src io.Reader = os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			logger.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		src = f
	}

	balances, err := export.ReadSamplesCSV(src)
	if err != nil {
		logger.Fatalf("Failed to read input: %v", err)
	}
	// exports from /info/records are newest first
	sort.Slice(balances, func(i, j int) bool { return balances[i].Timestamp < balances[j].Timestamp })
	logger.Printf("Read %d balance records", len(balances))

	if *totals {
		light, ac := usage.RoundedTotalUsage(balances)
		logger.Printf("Total usage: light=%.2f ac=%.2f", light, ac)
		for _, t := range usage.TopUps(balances) {
			logger.Printf("Top-up at %.0f: light=%.2f ac=%.2f", t.Timestamp, t.Light, t.AC)
		}
	}

	convertCfg := &domain.ConvertConfig{
		Spreading:        *spreading,
		Smoothing:        *smoothing,
		PerHourUsage:     *perHour,
		UseSmartMerge:    *merge,
		MergeRatio:       domain.AutoMergeRatio(),
		RemoveFirstPoint: *trim,
	}
	if *mergeRatio > 0 {
		convertCfg.MergeRatio = domain.FixedMergeRatio(*mergeRatio)
	}

	result, err := usage.Convert(balances, convertCfg, spread)
	if err != nil {
		logger.Fatalf("Conversion failed: %v", err)
	}

	var dst io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		dst = f
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(dst)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	default:
		err = export.WriteSamplesCSV(dst, result)
	}
	if err != nil {
		logger.Fatalf("Failed to write output: %v", err)
	}

	logger.Printf("Wrote %d usage points", len(result))
}
