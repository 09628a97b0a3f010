package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shimmer/engine/frame"
	"github.com/Carmen-Shannon/shimmer/engine/lines"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/shader"
)

type fakeWindow struct {
	width, height int
}

func (w *fakeWindow) Width() int                                 { return w.width }
func (w *fakeWindow) Height() int                                { return w.height }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }

type drawRecord struct {
	pipelineKey string
	groups      []int
	vertexCount uint32
}

// recordingBackend stands in for the GPU and records every call the renderer makes.
type recordingBackend struct {
	presentMode PresentMode
	configures  [][2]int
	registered  []string
	writes      [][]byte
	draws       []drawRecord
	begun       int
	submits     int
	aborts      int
	presents    int
	released    bool
	inFrame     bool

	registerErr error
	beginErr    error
	drawErr     error
}

var _ RendererBackend = &recordingBackend{}

func (b *recordingBackend) SetPresentMode(mode PresentMode) {
	b.presentMode = mode
}

func (b *recordingBackend) ConfigureSurface(width, height int) error {
	b.configures = append(b.configures, [2]int{width, height})
	return nil
}

func (b *recordingBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if b.registerErr != nil {
		return b.registerErr
	}
	b.registered = append(b.registered, p.PipelineKey())
	return nil
}

func (b *recordingBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	for _, e := range descriptor.Entries {
		provider.SetBuffer(int(e.Binding), nil, e.Buffer.MinBindingSize)
	}
	return nil
}

func (b *recordingBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		b.writes = append(b.writes, append([]byte(nil), w.Data...))
	}
	return nil
}

func (b *recordingBackend) BeginFrame() error {
	if b.beginErr != nil {
		return b.beginErr
	}
	b.begun++
	b.inFrame = true
	return nil
}

func (b *recordingBackend) DrawCall(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, vertexCount uint32) error {
	if b.drawErr != nil {
		return b.drawErr
	}
	rec := drawRecord{pipelineKey: p.PipelineKey(), vertexCount: vertexCount}
	for _, bg := range bindGroups {
		rec.groups = append(rec.groups, bg.Group())
	}
	b.draws = append(b.draws, rec)
	return nil
}

func (b *recordingBackend) EndFrame() error {
	if !b.inFrame {
		return errors.New("not in a frame")
	}
	b.inFrame = false
	b.submits++
	return nil
}

func (b *recordingBackend) AbortFrame() {
	b.inFrame = false
	b.aborts++
}

func (b *recordingBackend) Present() {
	b.presents++
}

func (b *recordingBackend) Release() {
	b.released = true
}

func (b *recordingBackend) lastBlock(t *testing.T) lines.UniformBlock {
	t.Helper()
	require.NotEmpty(t, b.writes)
	block, ok := lines.UnmarshalUniformBlock(b.writes[len(b.writes)-1])
	require.True(t, ok)
	return block
}

// mustDraw renders one frame and requires that it was submitted.
func mustDraw(t *testing.T, r Renderer, ts frame.Timestamp) {
	t.Helper()
	drawn, err := r.Frame(ts)
	require.NoError(t, err)
	require.True(t, drawn)
}

func newTestRenderer(t *testing.T, win *fakeWindow, opts ...RendererBuilderOption) (Renderer, *recordingBackend) {
	t.Helper()
	backend := &recordingBackend{}
	r, err := NewRenderer(BackendTypeWGPU, win, append([]RendererBuilderOption{WithBackend(backend)}, opts...)...)
	require.NoError(t, err)
	return r, backend
}

func TestNewRenderer(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{width: 800, height: 600}, WithPresentMode(PresentModeUncapped))

	assert.Equal(t, []string{LinesPipelineKey}, backend.registered)
	assert.Equal(t, [][2]int{{800, 600}}, backend.configures)
	assert.Equal(t, PresentModeUncapped, backend.presentMode)

	w, h := r.SurfaceSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	require.NotNil(t, r.Pipeline())
	assert.Equal(t, LinesPipelineKey, r.Pipeline().PipelineKey())
	assert.Equal(t, lines.VertexEntryPoint, r.Pipeline().Shader().EntryPoint(shader.StageVertex))

	size, ok := r.Uniforms().BufferSize(0)
	require.True(t, ok)
	assert.Equal(t, uint64(lines.UniformBlockSize), size)
	assert.Equal(t, 0, r.Uniforms().Group())
}

func TestNewRendererDefaultsToVSync(t *testing.T) {
	_, backend := newTestRenderer(t, &fakeWindow{width: 10, height: 10})
	assert.Equal(t, PresentModeVSync, backend.presentMode)
}

func TestNewRendererZeroSizedWindowDefersConfigure(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{})
	assert.Empty(t, backend.configures)

	w, h := r.SurfaceSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestNewRendererPipelineState(t *testing.T) {
	r, _ := newTestRenderer(t, &fakeWindow{width: 8, height: 8})

	desc := r.Pipeline().Descriptor(nil, nil, wgpu.TextureFormatBGRA8Unorm)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
	assert.Equal(t, wgpu.CullModeNone, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.FrontFaceCCW, desc.Primitive.FrontFace)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, wgpu.ColorWriteMaskAll, desc.Fragment.Targets[0].WriteMask)
	assert.Equal(t, lines.FragmentEntryPoint, desc.Fragment.EntryPoint)
}

func TestNewRendererShaderPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(lines.ShaderSource), 0o644))

	// the file wins over an explicit source
	r, backend := newTestRenderer(t, &fakeWindow{width: 8, height: 8},
		WithShaderSource("fn vs_main( {"),
		WithShaderPath(path),
	)
	assert.Equal(t, []string{LinesPipelineKey}, backend.registered)
	assert.Equal(t, lines.VertexEntryPoint, r.Pipeline().Shader().EntryPoint(shader.StageVertex))
}

func TestFrameContinuity(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{width: 800, height: 600})

	const frames = 120
	for i := 0; i < frames; i++ {
		mustDraw(t, r, frame.Timestamp(float64(i)*16.6))
	}

	assert.Equal(t, frames, backend.begun)
	assert.Equal(t, frames, backend.submits)
	assert.Equal(t, frames, backend.presents)
	require.Len(t, backend.writes, frames)
	for _, w := range backend.writes {
		assert.Len(t, w, lines.UniformBlockSize)
	}
	require.Len(t, backend.draws, frames)
	assert.Equal(t, drawRecord{pipelineKey: LinesPipelineKey, groups: []int{0}, vertexCount: 3}, backend.draws[0])

	// the surface was configured once at setup and never again
	assert.Len(t, backend.configures, 1)
	assert.Len(t, backend.registered, 1)
}

func TestFrameUniformBlock(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{width: 800, height: 600})

	mustDraw(t, r, 0)
	block := backend.lastBlock(t)
	assert.Equal(t, lines.UniformBlock{Time: 0, Padding: 0, ResolutionX: 800, ResolutionY: 600}, block)

	mustDraw(t, r, 1500)
	block = backend.lastBlock(t)
	assert.InDelta(t, 1.5, block.Time, 1e-6)
	assert.Zero(t, block.Padding)
	assert.Equal(t, float32(800), block.ResolutionX)
	assert.Equal(t, float32(600), block.ResolutionY)
}

func TestFrameResize(t *testing.T) {
	win := &fakeWindow{width: 800, height: 600}
	r, backend := newTestRenderer(t, win)

	mustDraw(t, r, 0)
	assert.Equal(t, float32(800), backend.lastBlock(t).ResolutionX)

	win.width, win.height = 1024, 768
	mustDraw(t, r, 16)

	block := backend.lastBlock(t)
	assert.Equal(t, float32(1024), block.ResolutionX)
	assert.Equal(t, float32(768), block.ResolutionY)
	assert.Equal(t, [][2]int{{800, 600}, {1024, 768}}, backend.configures)
	assert.Len(t, backend.registered, 1, "resize must not rebuild the pipeline")

	w, h := r.SurfaceSize()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)

	// same size again does not reconfigure
	mustDraw(t, r, 32)
	assert.Len(t, backend.configures, 2)
}

func TestResize(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{width: 800, height: 600})

	require.NoError(t, r.Resize(640, 480))
	require.NoError(t, r.Resize(0, 480))
	assert.Equal(t, [][2]int{{800, 600}, {640, 480}}, backend.configures)
	assert.Len(t, backend.registered, 1)
}

func TestFrameSkipsZeroSizedSurface(t *testing.T) {
	win := &fakeWindow{width: 800, height: 600}
	r, backend := newTestRenderer(t, win)

	win.width, win.height = 0, 0
	drawn, err := r.Frame(0)
	require.NoError(t, err)
	assert.False(t, drawn)
	assert.Zero(t, backend.submits)
	assert.Empty(t, backend.writes)

	win.width, win.height = 320, 200
	mustDraw(t, r, 16)
	assert.Equal(t, 1, backend.submits)
	assert.Equal(t, float32(320), backend.lastBlock(t).ResolutionX)
}

func TestFrameTimestampOrder(t *testing.T) {
	r, backend := newTestRenderer(t, &fakeWindow{width: 800, height: 600})

	mustDraw(t, r, 100)
	mustDraw(t, r, 100) // equal timestamps are allowed

	drawn, err := r.Frame(50)
	require.Error(t, err)
	assert.False(t, drawn)
	assert.ErrorIs(t, err, ErrFrame)
	assert.Equal(t, 2, backend.submits)
}

func TestFrameErrors(t *testing.T) {
	t.Run("device lost", func(t *testing.T) {
		r, backend := newTestRenderer(t, &fakeWindow{width: 8, height: 8})
		backend.beginErr = fmt.Errorf("%w: surface outdated", ErrDeviceLost)

		_, err := r.Frame(0)
		assert.ErrorIs(t, err, ErrDeviceLost)
		assert.NotErrorIs(t, err, ErrFrame)
		assert.Zero(t, backend.submits)
	})

	t.Run("begin failure", func(t *testing.T) {
		r, backend := newTestRenderer(t, &fakeWindow{width: 8, height: 8})
		backend.beginErr = errors.New("no encoder")

		_, err := r.Frame(0)
		assert.ErrorIs(t, err, ErrFrame)
		assert.ErrorContains(t, err, "begin frame")
	})

	t.Run("draw failure closes the pass", func(t *testing.T) {
		r, backend := newTestRenderer(t, &fakeWindow{width: 8, height: 8})
		backend.drawErr = errors.New("pipeline missing")

		_, err := r.Frame(0)
		assert.ErrorIs(t, err, ErrFrame)
		assert.ErrorContains(t, err, "draw")
		assert.False(t, backend.inFrame)
		assert.Equal(t, 1, backend.aborts)
		assert.Zero(t, backend.submits, "a failed draw is never submitted")
		assert.Zero(t, backend.presents)

		// the next frame starts clean
		backend.drawErr = nil
		mustDraw(t, r, 16)
		assert.Equal(t, 1, backend.submits)
	})

	t.Run("released", func(t *testing.T) {
		r, backend := newTestRenderer(t, &fakeWindow{width: 8, height: 8})
		r.Release()
		assert.True(t, backend.released)

		_, err := r.Frame(0)
		assert.ErrorIs(t, err, ErrFrame)
		// second release is a no-op
		r.Release()
	})
}

func TestNewRendererSetupErrors(t *testing.T) {
	const widerUniforms = `
struct Params {
    time: f32,
    padding: f32,
    resolution: vec2<f32>,
    tint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return params.tint * params.time;
}
`

	tests := []struct {
		name      string
		surface   SurfaceSource
		backend   *recordingBackend
		opts      []RendererBuilderOption
		wantStage SetupStage
		wantErr   error
		contains  string
	}{
		{
			name:      "no surface",
			backend:   &recordingBackend{},
			wantStage: StageSurface,
		},
		{
			name:      "shader does not compile",
			surface:   &fakeWindow{width: 8, height: 8},
			backend:   &recordingBackend{},
			opts:      []RendererBuilderOption{WithShaderSource("fn vs_main( {")},
			wantStage: StageShader,
			wantErr:   shader.ErrCompile,
		},
		{
			name:      "uniform block size mismatch",
			surface:   &fakeWindow{width: 8, height: 8},
			backend:   &recordingBackend{},
			opts:      []RendererBuilderOption{WithShaderSource(widerUniforms)},
			wantStage: StageShader,
			contains:  "32 bytes, want 16",
		},
		{
			name:      "missing shader file",
			surface:   &fakeWindow{width: 8, height: 8},
			backend:   &recordingBackend{},
			opts:      []RendererBuilderOption{WithShaderPath(filepath.Join(t.TempDir(), "missing.wgsl"))},
			wantStage: StageShader,
			wantErr:   os.ErrNotExist,
		},
		{
			name:      "pipeline creation",
			surface:   &fakeWindow{width: 8, height: 8},
			backend:   &recordingBackend{registerErr: errors.New("bad descriptor")},
			wantStage: StagePipeline,
			contains:  "bad descriptor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]RendererBuilderOption{WithBackend(tt.backend)}, tt.opts...)
			r, err := NewRenderer(BackendTypeWGPU, tt.surface, opts...)
			require.Error(t, err)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, ErrSetup)

			var setupErr *SetupError
			require.ErrorAs(t, err, &setupErr)
			assert.Equal(t, tt.wantStage, setupErr.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.contains != "" {
				assert.ErrorContains(t, err, tt.contains)
			}
		})
	}
}

func TestPipelineReleasedWithBackendOnSetupFailure(t *testing.T) {
	backend := &recordingBackend{registerErr: errors.New("boom")}
	_, err := NewRenderer(BackendTypeWGPU, &fakeWindow{width: 8, height: 8}, WithBackend(backend))
	require.Error(t, err)
	assert.True(t, backend.released)
}

func TestPresentModeString(t *testing.T) {
	assert.Equal(t, "vsync", PresentModeVSync.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
	assert.Equal(t, "PresentMode(7)", PresentMode(7).String())
}
