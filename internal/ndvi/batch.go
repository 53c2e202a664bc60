package ndvi

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/verigreen-hackathon/verigreen/internal/band"
)

// TilePaths locates the band files of one tile. CloudMask is optional.
type TilePaths struct {
	Red       string
	NIR       string
	CloudMask string
}

// BandSource loads an aligned RED/NIR pair. *band.Loader implements it.
type BandSource interface {
	LoadSentinel2Pair(ctx context.Context, redPath, nirPath, cloudMaskPath string) (band.Sample, band.Sample, error)
}

// CalculateFromFiles loads the pair from src and runs Calculate on it.
func (c *Calculator) CalculateFromFiles(ctx context.Context, src BandSource, paths TilePaths, opts ...Option) (*Result, error) {
	red, nir, err := src.LoadSentinel2Pair(ctx, paths.Red, paths.NIR, paths.CloudMask)
	if err != nil {
		return nil, fmt.Errorf("failed to load bands: %w", err)
	}
	return c.Calculate(red, nir, opts...)
}

type BatchOptions struct {
	Threshold *float64
	Workers   int
	Progress  bool
}

// BatchResult keeps one outcome per tile: either a result or the error that
// stopped it.
type BatchResult struct {
	Results  map[string]*Result
	Failures map[string]error
}

func (b BatchResult) Succeeded() []string {
	return sortedKeys(b.Results)
}

func (b BatchResult) Failed() []string {
	return sortedKeys(b.Failures)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Batch processes every tile independently. A tile that fails is logged and
// recorded in Failures; the batch itself never fails.
func (c *Calculator) Batch(ctx context.Context, src BandSource, tiles map[string]TilePaths, opts BatchOptions) BatchResult {
	out := BatchResult{
		Results:  make(map[string]*Result, len(tiles)),
		Failures: make(map[string]error),
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(tiles)), "Calculating NDVI")
	} else {
		bar = progressbar.DefaultSilent(int64(len(tiles)), "Calculating NDVI")
	}

	var mu sync.Mutex
	wp := workerpool.New(workers)
	for _, tileID := range sortedKeys(tiles) {
		tileID, paths := tileID, tiles[tileID]
		wp.Submit(func() {
			defer bar.Add(1)

			calcOpts := []Option{WithTileID(tileID)}
			if opts.Threshold != nil {
				calcOpts = append(calcOpts, WithThreshold(*opts.Threshold))
			}

			var (
				result *Result
				err    error
			)
			if err = ctx.Err(); err == nil {
				log.Info().Str("tile_id", tileID).Msg("processing tile")
				result, err = c.CalculateFromFiles(ctx, src, paths, calcOpts...)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("tile_id", tileID).Msg("failed to process tile")
				out.Failures[tileID] = err
				return
			}
			out.Results[tileID] = result
		})
	}
	wp.StopWait()
	bar.Finish()

	log.Info().
		Int("succeeded", len(out.Results)).
		Int("total", len(tiles)).
		Msg("batch processing complete")
	return out
}
