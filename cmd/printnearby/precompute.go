package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/nearby"
)

var (
	precomputeRadius  float64
	precomputeOut     string
	precomputeWorkers int
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Write the nearby ZIP list of every ZIP to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		g, err := gazetteer.Load(cfg.Gazetteer.Path)
		if err != nil {
			return err
		}

		started := time.Now()
		zipMap, err := precompute(cmd.Context(), nearby.NewService(g, nil), zipsOf(g), precomputeRadius, precomputeWorkers)
		if err != nil {
			return err
		}
		if err := writeZipMap(precomputeOut, zipMap); err != nil {
			return err
		}

		logging.Info().Str("path", precomputeOut).Int("zips", len(zipMap)).
			Float64("radius_miles", precomputeRadius).Dur("took", time.Since(started)).
			Msg("precomputed nearby zips")
		return nil
	},
}

func init() {
	precomputeCmd.Flags().Float64VarP(&precomputeRadius, "radius", "r", 25, "radius in miles")
	precomputeCmd.Flags().StringVarP(&precomputeOut, "out", "o", "NearbyZipCodes.json", "output path")
	precomputeCmd.Flags().IntVarP(&precomputeWorkers, "workers", "w", 0, "worker goroutines (default 4x CPUs)")
}

type pair struct {
	zip    string
	nearby []string
	err    error
}

// zipsOf lists every indexed ZIP once, in dataset order.
func zipsOf(g *gazetteer.Gazetteer) []string {
	seen := make(map[string]bool, g.Len())
	zips := make([]string, 0, g.Len())
	g.Each(func(rec gazetteer.ZipRecord) {
		if !seen[rec.Zip] {
			seen[rec.Zip] = true
			zips = append(zips, rec.Zip)
		}
	})
	return zips
}

// precompute fans the ZIPs out to a worker pool and collects each one's
// nearby list.
func precompute(ctx context.Context, svc *nearby.Service, zips []string, radius float64, workers int) (map[string][]string, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() * 4
	}

	var wg sync.WaitGroup
	// buffered so producers and consumers can drift apart briefly
	jobs := make(chan string, workers*2)
	results := make(chan pair, workers*2)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for zip := range jobs {
				found, err := svc.FindNearbyZipsByZip(zip, radius)
				results <- pair{zip: zip, nearby: found, err: err}
			}
		}()
	}

	// results closes once every worker has drained jobs
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, zip := range zips {
			select {
			case jobs <- zip:
			case <-ctx.Done():
				return
			}
		}
	}()

	zipMap := make(map[string][]string, len(zips))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("zip %s: %w", res.zip, res.err)
			}
			continue
		}
		zipMap[res.zip] = res.nearby
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return zipMap, nil
}

func writeZipMap(path string, zipMap map[string][]string) error {
	data, err := json.MarshalIndent(zipMap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode nearby zips: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
