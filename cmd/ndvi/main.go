package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/verigreen-hackathon/verigreen/internal/band"
	"github.com/verigreen-hackathon/verigreen/internal/classify"
	"github.com/verigreen-hackathon/verigreen/internal/delivery"
	"github.com/verigreen-hackathon/verigreen/internal/logging"
	"github.com/verigreen-hackathon/verigreen/internal/properties"
)

func printBanner() {
	figure1 := figure.NewFigure("VeriGreen", "isometric1", true)
	figure2 := figure.NewFigure("NDVI", "isometric1", true)
	bannercolor.Green(figure1.String())
	bannercolor.Green(figure2.String())
	fmt.Println()
}

// loadEnv looks for a .env next to the binary's usual run locations. A
// missing file is fine; the environment may already be set.
func loadEnv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func main() {
	loadEnv()

	var (
		manifest       = flag.String("manifest", "", "CSV manifest with tile_id,red,nir,cloud_mask columns")
		outDir         = flag.String("out", "", "output directory (default $ROOT_PATH/data/result)")
		threshold      = flag.Float64("threshold", properties.DefaultThreshold(), "mean NDVI a tile must reach to pass")
		thresholdsFile = flag.String("thresholds", properties.ThresholdsFile(), "CSV of vegetation class definitions")
		workers        = flag.Int("workers", properties.BatchWorkers(), "tiles processed concurrently")
		progress       = flag.Bool("progress", true, "show a progress bar")
		noCache        = flag.Bool("no-cache", false, "recompute tiles even when a cached report exists")
		logLevel       = flag.String("log-level", properties.LogLevel(), "debug, info, warn or error")
		logFormat      = flag.String("log-format", properties.LogFormat(), "console or json")
		inspect        = flag.String("inspect", "", "print a band file's integrity report and exit")
		quiet          = flag.Bool("quiet", false, "skip the banner")
	)
	flag.Parse()

	if err := logging.Setup(*logLevel, *logFormat != "json", os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *inspect != "" {
		os.Exit(runInspect(*inspect))
	}

	if *manifest == "" {
		fmt.Fprintln(os.Stderr, "-manifest is required")
		flag.Usage()
		os.Exit(2)
	}

	if !*quiet {
		printBanner()
	}

	var thresholds []classify.ThresholdDefinition
	if *thresholdsFile != "" {
		defs, err := classify.LoadThresholdsFile(*thresholdsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", *thresholdsFile).Msg("failed to load thresholds")
		}
		thresholds = defs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := delivery.AnalyzeTiles(ctx, delivery.Request{
		ManifestPath: *manifest,
		OutputDir:    *outDir,
		Threshold:    threshold,
		Thresholds:   thresholds,
		Workers:      *workers,
		Progress:     *progress,
		NoCache:      *noCache,
	})
	if run != nil {
		printSummary(run)
	}
	if err != nil {
		if errors.Is(err, delivery.ErrAllTilesFailed) {
			bannercolor.Red("No tile could be analyzed.")
		}
		log.Error().Err(err).Msg("tile analysis failed")
		os.Exit(1)
	}
}

func printSummary(run *delivery.Run) {
	cached := make(map[string]bool, len(run.Cached))
	for _, id := range run.Cached {
		cached[id] = true
	}

	fmt.Println()
	for _, r := range run.Reports {
		status := bannercolor.GreenString("PASS")
		if !r.ThresholdPassed {
			status = bannercolor.RedString("FAIL")
		}
		note := ""
		if cached[r.TileID] {
			note = bannercolor.YellowString(" (cached)")
		}
		fmt.Printf("%s  %-20s mean=%.4f  valid=%.1f%%  class=%s%s\n",
			status, r.TileID, r.MeanNDVI, r.ValidPercentage, classify.VegetationClass(r.DominantClass).Label(), note)
	}
	for id, err := range run.Failures {
		fmt.Printf("%s  %-20s %v\n", bannercolor.RedString("ERR "), id, err)
	}
	if run.ReportPath != "" {
		fmt.Println()
		bannercolor.Cyan("Report:     %s", run.ReportPath)
		bannercolor.Cyan("Footprints: %s", run.FootprintsPath)
	}
}

func runInspect(path string) int {
	report := band.NewLoader(properties.ScaleFactor()).Inspect(path)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Error().Err(err).Msg("failed to encode report")
		return 1
	}
	if !report.Valid {
		return 1
	}
	return 0
}
