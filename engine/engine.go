package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/shimmer/common"
	"github.com/Carmen-Shannon/shimmer/engine/frame"
	"github.com/Carmen-Shannon/shimmer/engine/profiler"
	"github.com/Carmen-Shannon/shimmer/engine/renderer"
	"github.com/Carmen-Shannon/shimmer/engine/window"
)

var (
	// ErrNotConfigured is returned by Run when the engine has no window or renderer.
	ErrNotConfigured = errors.New("engine needs a window and a renderer")

	// ErrPanic wraps a panic recovered from the render loop.
	ErrPanic = errors.New("render loop panicked")
)

// engine implements the Engine interface.
// Runs window polling, frame scheduling and rendering on the calling goroutine.
type engine struct {
	mu      sync.Mutex
	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window    window.Window
	renderer  renderer.Renderer
	scheduler frame.Scheduler

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit float64 // frames per second used for the default scheduler; 0 = uncapped
	frameCount       uint64
}

// Engine is the main entry point for the engine.
// It owns the frame loop that drives the renderer from scheduler timestamps.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driven by the loop.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ProfilerEnabled reports whether profiling output is on.
	//
	// Returns:
	//   - bool: true while the profiler logs
	ProfilerEnabled() bool

	// FrameCount returns the number of frames the renderer has submitted so far. Frames skipped
	// while the surface is zero-sized are not counted.
	//
	// Returns:
	//   - uint64: the frame count
	FrameCount() uint64

	// Run polls window events, waits for the next frame timestamp and renders, until the window
	// closes, Quit is called or ctx is cancelled. It must be called from the goroutine that
	// created the window.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//
	// Returns:
	//   - error: nil after a window close or Quit, ctx.Err() after cancellation, the renderer's
	//     error if a frame failed, or an ErrPanic wrapped error
	Run(ctx context.Context) error

	// Quit stops the loop after the current frame.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// The P key toggles the profiler and framebuffer resizes are forwarded to the renderer.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, profiling, frame limit)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		profiler:    profiler.NewProfiler(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetKeyDownCallback(e.handleKeyDown)
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer == nil {
				return
			}
			if err := e.renderer.Resize(width, height); err != nil {
				log.Printf("resize to %dx%d failed: %v", width, height, err)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run(ctx context.Context) (err error) {
	if e.window == nil || e.renderer == nil {
		return ErrNotConfigured
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine is already running")
	}
	e.running = true
	if e.scheduler == nil {
		e.scheduler = frame.NewScheduler(frame.WithFrameLimit(e.renderFrameLimit))
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	// Recover from panics inside the loop and report them as errors.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render loop recovered from panic: %v", r)
			e.signalQuit()
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	// a frame-limit wait inside the scheduler ends as soon as Quit is called
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.quitChannel:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	for {
		if e.quitRequested() {
			return nil
		}
		if !e.window.PollEvents() {
			return nil
		}

		ts, err := e.scheduler.Next(loopCtx)
		if err != nil {
			if e.quitRequested() {
				return nil
			}
			return err
		}

		drawn, err := e.renderer.Frame(ts)
		if err != nil {
			return err
		}
		if !drawn {
			continue
		}
		e.frameCount++

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}
	}
}

// Quit signals the loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the loop to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// quitRequested reports whether Quit has been called.
func (e *engine) quitRequested() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// handleKeyDown toggles the profiler on P.
func (e *engine) handleKeyDown(keyCode uint32) {
	if keyCode != common.KeyP {
		return
	}
	if e.profilingEnabled {
		e.DisableProfiler()
		log.Printf("[Profiler] disabled")
		return
	}
	e.EnableProfiler()
}

// EnableProfiler enables performance profiling output to the log.
// The measurement window restarts so the first report covers only frames drawn while enabled.
func (e *engine) EnableProfiler() {
	if e.profiler != nil {
		e.profiler.Reset()
	}
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) ProfilerEnabled() bool {
	return e.profilingEnabled
}

func (e *engine) FrameCount() uint64 {
	return e.frameCount
}
