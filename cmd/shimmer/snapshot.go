package main

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/shimmer/config"
	"github.com/Carmen-Shannon/shimmer/engine/lines"
)

// writeSnapshot rasterizes one frame at the given animation time on the CPU and encodes it as PNG.
//
// Parameters:
//   - ctx: cancels the rasterization
//   - path: the output file, created or truncated
//   - seconds: the animation time
//   - cfg: output size and worker pool sizing
//
// Returns:
//   - error: a rasterization, file or encoding error
func writeSnapshot(ctx context.Context, path string, seconds float64, cfg config.SnapshotConfig) error {
	pool := worker.NewDynamicWorkerPool(cfg.Workers, cfg.QueueSize, time.Second)
	defer pool.Stop()

	start := time.Now()
	block := lines.NewUniformBlock(float32(seconds), cfg.Width, cfg.Height)
	img, err := lines.Rasterize(ctx, cfg.Width, cfg.Height, block, pool)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	log.Printf("shimmer: wrote %dx%d snapshot at t=%.3fs to %s in %v", cfg.Width, cfg.Height, seconds, path, time.Since(start).Round(time.Millisecond))
	return nil
}
