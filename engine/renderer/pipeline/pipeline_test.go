package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shimmer/engine/lines"
	"github.com/Carmen-Shannon/shimmer/engine/renderer/shader"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("lines")

	assert.Equal(t, "lines", p.PipelineKey())
	assert.Nil(t, p.Shader())
	assert.Nil(t, p.RenderPipeline())

	desc := p.Descriptor(nil, nil, wgpu.TextureFormatBGRA8Unorm)
	assert.Equal(t, wgpu.CullModeNone, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
	assert.Equal(t, wgpu.FrontFaceCCW, desc.Primitive.FrontFace)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.ColorWriteMaskAll, desc.Fragment.Targets[0].WriteMask)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Empty(t, desc.Vertex.EntryPoint, "no shader, no entry point")

	// release without a GPU object is a no-op
	p.Release()
}

func TestPipelineOptions(t *testing.T) {
	blend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	}
	p := NewPipeline("custom",
		WithCullMode(wgpu.CullModeBack),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithBlendState(blend),
	)

	desc := p.Descriptor(nil, nil, wgpu.TextureFormatRGBA8Unorm)
	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, desc.Primitive.Topology)
	assert.Equal(t, wgpu.FrontFaceCW, desc.Primitive.FrontFace)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.ColorWriteMaskRed, desc.Fragment.Targets[0].WriteMask)
	assert.Same(t, blend, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, desc.Fragment.Targets[0].Format)
}

func TestPipelineDescriptor(t *testing.T) {
	program, err := shader.NewShader("lines", lines.ShaderSource)
	require.NoError(t, err)

	p := NewPipeline("lines", WithShader(program))
	desc := p.Descriptor(nil, nil, wgpu.TextureFormatBGRA8Unorm)

	assert.Equal(t, "lines", desc.Label)
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	assert.Empty(t, desc.Vertex.Buffers)
	require.NotNil(t, desc.Fragment)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, desc.Fragment.Targets[0].Format)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, wgpu.ColorWriteMaskAll, desc.Fragment.Targets[0].WriteMask)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
	assert.Equal(t, wgpu.CullModeNone, desc.Primitive.CullMode)
	assert.Nil(t, desc.DepthStencil)
	assert.Equal(t, uint32(1), desc.Multisample.Count)
	assert.Equal(t, uint32(0xFFFFFFFF), desc.Multisample.Mask)
}
