package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/shimmer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// String returns the config spelling of the present mode.
func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

var (
	// ErrSetup matches every *SetupError through errors.Is.
	ErrSetup = errors.New("renderer setup failed")

	// ErrDeviceLost is returned when the device or surface is lost while rendering.
	// The renderer does not recover from it.
	ErrDeviceLost = errors.New("gpu device lost")

	// ErrFrame is returned for any other failure while recording, submitting or presenting a frame,
	// and for frames whose timestamp goes backwards.
	ErrFrame = errors.New("frame failed")
)

// SetupStage names the step of renderer construction that failed.
type SetupStage string

const (
	StageSurface   SetupStage = "surface"
	StageAdapter   SetupStage = "adapter"
	StageDevice    SetupStage = "device"
	StageShader    SetupStage = "shader"
	StagePipeline  SetupStage = "pipeline"
	StageBindGroup SetupStage = "bind group"
)

// SetupError reports a failure while building the renderer. No frame is ever drawn after one.
type SetupError struct {
	Stage SetupStage
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("renderer setup: %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrSetup so callers can test the class without a type assertion.
func (e *SetupError) Is(target error) bool {
	return target == ErrSetup
}

// setupErr wraps err in a *SetupError for the given stage.
func setupErr(stage SetupStage, err error) error {
	return &SetupError{Stage: stage, Err: err}
}

// RendererBackend is the GPU API surface the Renderer drives. A frame is always
// BeginFrame, DrawCall, EndFrame, Present in that order, with EndFrame submitting
// exactly one command buffer. A frame whose draw failed ends with AbortFrame instead.
type RendererBackend interface {
	// SetPresentMode records the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// ConfigureSurface (re)configures the presentation surface for the given pixel size.
	ConfigureSurface(width, height int) error

	// RegisterRenderPipeline compiles the pipeline's shader and creates its GPU pipeline.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitBindGroup allocates the buffers described by descriptor on provider and creates
	// its bind group. Buffers are sized from each entry's MinBindingSize.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers uploads each write to its provider's buffer.
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the surface texture and opens the render pass, cleared to opaque black.
	BeginFrame() error

	// DrawCall binds the pipeline and the providers in group order and draws vertexCount
	// vertices of one instance without vertex buffers.
	DrawCall(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, vertexCount uint32) error

	// EndFrame closes the pass and submits its command buffer.
	EndFrame() error

	// AbortFrame closes the pass and drops its commands and the acquired surface texture
	// without submitting or presenting anything.
	AbortFrame()

	// Present shows the acquired surface texture.
	Present()

	// Release frees all device-level objects.
	Release()
}
