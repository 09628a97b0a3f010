package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/shimmer/engine/frame"
	"github.com/Carmen-Shannon/shimmer/engine/lines"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// LinesPipelineKey is the key of the single pipeline the renderer draws with.
	LinesPipelineKey = "lines"

	uniformsGroup   = 0
	uniformsBinding = 0

	// fullscreenVertexCount is the vertex count of the fullscreen triangle emitted by vs_main.
	fullscreenVertexCount = 3
)

// SurfaceSizer reports the current framebuffer size in pixels. The window implements it.
type SurfaceSizer interface {
	Width() int
	Height() int
}

// SurfaceSource is a SurfaceSizer that can also describe its native surface.
type SurfaceSource interface {
	SurfaceSizer
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	sizer       SurfaceSizer

	linesPipeline pipeline.Pipeline
	uniforms      bind_group_provider.BindGroupProvider

	// configured surface size; zero until the first non-empty surface
	width, height int

	lastTimestamp frame.Timestamp
	hasTimestamp  bool
	released      bool

	shaderSource         string
	shaderPath           string
	forceFallbackAdapter bool
	presentMode          PresentMode
}

// Renderer draws the light-lines pattern to the window surface, one fullscreen triangle per frame.
// All GPU objects are created once by NewRenderer; each frame only rewrites the uniform block.
type Renderer interface {
	// Frame renders one frame for the given timestamp. The surface size is re-read from the
	// window and the surface reconfigured when it changed. A zero-sized surface skips the frame.
	//
	// Parameters:
	//   - ts: milliseconds since the animation started, never less than the previous call's
	//
	// Returns:
	//   - bool: true if a command buffer was submitted, false for a skipped frame
	//   - error: ErrDeviceLost or ErrFrame wrapped with the failing step; the session should end
	Frame(ts frame.Timestamp) (bool, error)

	// Resize reconfigures the surface for a new size. The pipeline is not rebuilt.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an ErrFrame wrapped error if the surface could not be configured
	Resize(width, height int) error

	// SurfaceSize returns the size the surface is currently configured for.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	SurfaceSize() (int, int)

	// Pipeline returns the lines pipeline.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline created at setup
	Pipeline() pipeline.Pipeline

	// Uniforms returns the provider holding the uniform buffer and its bind group.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the group 0 provider
	Uniforms() bind_group_provider.BindGroupProvider

	// Release frees every GPU object. Frame fails after Release.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer builds the backend, compiles the lines shader, creates the pipeline, allocates the
// uniform buffer and bind group, and configures the surface.
//
// Parameters:
//   - backendType: the GPU backend to create; ignored when WithBackend supplies one
//   - surface: the window the renderer draws into
//   - options: functional options applied before setup
//
// Returns:
//   - Renderer: the ready renderer
//   - error: a *SetupError (errors.Is(err, ErrSetup)) naming the failed stage
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:           &sync.Mutex{},
		backendType:  backendType,
		sizer:        surface,
		shaderSource: lines.ShaderSource,
		presentMode:  PresentModeVSync,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.sizer == nil {
		return nil, setupErr(StageSurface, errors.New("no surface to render into"))
	}

	var program shader.Shader
	var err error
	if r.shaderPath != "" {
		program, err = shader.NewShaderFromPath(LinesPipelineKey, r.shaderPath)
	} else {
		program, err = shader.NewShader(LinesPipelineKey, r.shaderSource)
	}
	if err != nil {
		return nil, setupErr(StageShader, err)
	}
	size, ok := program.BufferSize(uniformsGroup, uniformsBinding)
	if !ok {
		return nil, setupErr(StageShader, fmt.Errorf("no buffer at @group(%d) @binding(%d)", uniformsGroup, uniformsBinding))
	}
	if size != lines.UniformBlockSize {
		return nil, setupErr(StageShader, fmt.Errorf("uniform block is %d bytes, want %d", size, lines.UniformBlockSize))
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			b, err := newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter)
			if err != nil {
				return nil, err
			}
			r.backend = b
		}
	}
	r.backend.SetPresentMode(r.presentMode)

	if w, h := r.sizer.Width(), r.sizer.Height(); w > 0 && h > 0 {
		if err := r.backend.ConfigureSurface(w, h); err != nil {
			r.backend.Release()
			return nil, setupErr(StageSurface, err)
		}
		r.width, r.height = w, h
	}

	// one opaque fullscreen triangle: nothing to cull and nothing to blend with
	r.linesPipeline = pipeline.NewPipeline(LinesPipelineKey,
		pipeline.WithShader(program),
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleList),
		pipeline.WithFrontFace(wgpu.FrontFaceCCW),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithWriteMask(wgpu.ColorWriteMaskAll),
		pipeline.WithBlendState(nil),
	)
	if err := r.backend.RegisterRenderPipeline(r.linesPipeline); err != nil {
		r.backend.Release()
		return nil, setupErr(StagePipeline, err)
	}

	r.uniforms = bind_group_provider.NewBindGroupProvider("uniforms", bind_group_provider.WithGroup(uniformsGroup))
	if err := r.backend.InitBindGroup(r.uniforms, program.BindGroupLayoutDescriptor(uniformsGroup)); err != nil {
		r.linesPipeline.Release()
		r.backend.Release()
		return nil, setupErr(StageBindGroup, err)
	}

	return r, nil
}

func (r *renderer) Frame(ts frame.Timestamp) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return false, fmt.Errorf("%w: renderer released", ErrFrame)
	}
	if r.hasTimestamp && ts < r.lastTimestamp {
		return false, fmt.Errorf("%w: timestamp %.3fms precedes %.3fms", ErrFrame, float64(ts), float64(r.lastTimestamp))
	}
	r.lastTimestamp = ts
	r.hasTimestamp = true

	width, height := r.sizer.Width(), r.sizer.Height()
	if width <= 0 || height <= 0 {
		return false, nil
	}
	if width != r.width || height != r.height {
		if err := r.configure(width, height); err != nil {
			return false, err
		}
	}
	if err := r.record(width, height, ts); err != nil {
		return false, err
	}
	return true, nil
}

// record writes the uniform block and records, submits and presents the draw. Callers hold r.mu.
func (r *renderer) record(width, height int, ts frame.Timestamp) error {
	block := lines.NewUniformBlock(ts.Seconds(), width, height)
	write := bind_group_provider.BufferWrite{
		Provider: r.uniforms,
		Binding:  uniformsBinding,
		Data:     block.Marshal(),
	}
	if err := bind_group_provider.ValidateWrite(write); err != nil {
		return frameErr("write uniforms", err)
	}
	if err := r.backend.WriteBuffers([]bind_group_provider.BufferWrite{write}); err != nil {
		return frameErr("write uniforms", err)
	}

	if err := r.backend.BeginFrame(); err != nil {
		return frameErr("begin frame", err)
	}
	if err := r.backend.DrawCall(r.linesPipeline, []bind_group_provider.BindGroupProvider{r.uniforms}, fullscreenVertexCount); err != nil {
		r.backend.AbortFrame()
		return frameErr("draw", err)
	}
	if err := r.backend.EndFrame(); err != nil {
		return frameErr("submit", err)
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil
	}
	return r.configure(width, height)
}

// configure reconfigures the surface and records the size. Callers hold r.mu.
func (r *renderer) configure(width, height int) error {
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return frameErr("configure surface", err)
	}
	r.width, r.height = width, height
	return nil
}

func (r *renderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Pipeline() pipeline.Pipeline {
	return r.linesPipeline
}

func (r *renderer) Uniforms() bind_group_provider.BindGroupProvider {
	return r.uniforms
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	r.uniforms.Release()
	r.linesPipeline.Release()
	r.backend.Release()
}

// frameErr wraps a per-frame failure in ErrFrame unless it already reports a lost device.
func frameErr(step string, err error) error {
	if errors.Is(err, ErrDeviceLost) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrFrame, step, err)
}
