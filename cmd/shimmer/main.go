// Command shimmer draws the light-lines animation fullscreen or in a window, or writes a single
// CPU-rendered frame to a PNG file with -snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/shimmer/config"
	"github.com/Carmen-Shannon/shimmer/engine"
	"github.com/Carmen-Shannon/shimmer/engine/renderer"
	"github.com/Carmen-Shannon/shimmer/engine/window"
)

func init() {
	// GLFW and the surface must stay on the main OS thread.
	runtime.LockOSThread()
}

// options holds the parsed command line.
type options struct {
	configPath   string
	snapshot     string
	snapshotTime float64
	width        int
	height       int
	fullscreen   bool
	profile      bool

	// set records which flags were given explicitly
	set map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "path to a TOML config file")
	fs.StringVar(&o.snapshot, "snapshot", "", "render one frame on the CPU to this PNG file and exit")
	fs.Float64Var(&o.snapshotTime, "snapshot-time", 0, "animation time in seconds for -snapshot")
	fs.IntVar(&o.width, "width", 0, "window or snapshot width in pixels")
	fs.IntVar(&o.height, "height", 0, "window or snapshot height in pixels")
	fs.BoolVar(&o.fullscreen, "fullscreen", false, "open fullscreen on the primary monitor")
	fs.BoolVar(&o.profile, "profile", false, "log frame rate and memory once per second (toggle with P)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		o.set[f.Name] = true
	})
	return o, nil
}

// apply overrides config values with the flags that were given.
func (o options) apply(cfg *config.Config) {
	if o.set["width"] {
		cfg.Window.Width = o.width
		cfg.Snapshot.Width = o.width
	}
	if o.set["height"] {
		cfg.Window.Height = o.height
		cfg.Snapshot.Height = o.height
	}
	if o.set["fullscreen"] {
		cfg.Window.Fullscreen = o.fullscreen
	}
	if o.set["profile"] {
		cfg.Engine.Profile = o.profile
	}
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	o.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.snapshot != "" {
		err = writeSnapshot(ctx, o.snapshot, o.snapshotTime, cfg.Snapshot)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Printf("shimmer: %v", err)
		stop()
		os.Exit(1)
	}
}

// run opens the window, builds the renderer and drives frames until the window closes or ctx ends.
func run(ctx context.Context, cfg config.Config) error {
	win, err := window.NewWindow(cfg.WindowOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := win.Close(); err != nil {
			log.Printf("close window: %v", err)
		}
	}()

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win, cfg.RendererOptions()...)
	if err != nil {
		var setupErr *renderer.SetupError
		if errors.As(err, &setupErr) {
			return fmt.Errorf("could not start rendering (%s): %w", setupErr.Stage, err)
		}
		return err
	}
	defer r.Release()

	eng := engine.NewEngine(append([]engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithRenderer(r),
	}, cfg.EngineOptions()...)...)

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("shimmer: stopped after %d frames", eng.FrameCount())
	return nil
}
