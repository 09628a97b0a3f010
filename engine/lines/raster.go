package lines

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ErrInvalidSize is returned by Rasterize for non-positive image dimensions.
var ErrInvalidSize = errors.New("rasterize: width and height must be positive")

// Rasterize evaluates Fragment at every pixel center of a width x height image, the same
// way the GPU pass covers the surface. Row 0 is the top of the image, so uv.y runs from
// 1 at the top to 0 at the bottom. Rows are submitted to the pool as individual tasks and
// joined with a WaitGroup barrier.
//
// Color channels are clamped to [0,1]. The output is opaque, matching the composited
// result of drawing over the black clear color.
//
// Parameters:
//   - ctx: cancels rows that have not started yet
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - block: the uniform values to shade with, only Time affects the pattern
//   - pool: the worker pool rows are distributed across
//
// Returns:
//   - *image.RGBA: the rendered image
//   - error: ErrInvalidSize, or the context error if ctx was cancelled
func Rasterize(ctx context.Context, width, height int, block UniformBlock, pool worker.DynamicWorkerPool) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	if pool == nil {
		return nil, errors.New("rasterize: nil worker pool")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	var wg sync.WaitGroup
	for row := range height {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		y := row
		pool.SubmitTask(worker.Task{
			ID: y,
			Do: func() (any, error) {
				defer wg.Done()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				shadeRow(img, y, width, height, block)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// PixelUV returns the uv coordinate sampled for pixel (x, y) of a width x height image.
func PixelUV(x, y, width, height int) Vec2 {
	return Vec2{
		X: (float32(x) + 0.5) / float32(width),
		Y: 1 - (float32(y)+0.5)/float32(height),
	}
}

func shadeRow(img *image.RGBA, y, width, height int, block UniformBlock) {
	for x := range width {
		c := Fragment(PixelUV(x, y, width, height), block)
		img.SetRGBA(x, y, color.RGBA{
			R: toByte(c.R),
			G: toByte(c.G),
			B: toByte(c.B),
			A: 0xff,
		})
	}
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
