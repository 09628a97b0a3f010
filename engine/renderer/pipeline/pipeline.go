package pipeline

import (
	"github.com/Carmen-Shannon/shimmer/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the render pipeline object along with the fixed-function state used to create it.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, also used as the GPU label
	pipelineKey string

	// program holds the vertex and fragment entry points; required before the pipeline is created
	program shader.Shader

	// renderPipeline is set by the renderer backend once the GPU object exists
	renderPipeline *wgpu.RenderPipeline

	cullMode    wgpu.CullMode
	topology    wgpu.PrimitiveTopology
	frontFace   wgpu.FrontFace
	writeMask   wgpu.ColorWriteMask
	blendState  *wgpu.BlendState
	sampleCount uint32
}

// Pipeline describes a render pipeline that draws without vertex buffers or depth, with a
// single color target matching the surface format.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the program the pipeline is built from.
	//
	// Returns:
	//   - shader.Shader: the program, or nil if none was set
	Shader() shader.Shader

	// RenderPipeline returns the GPU pipeline object, nil until the backend has created it.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// Descriptor builds the creation descriptor for this pipeline.
	//
	// Parameters:
	//   - module: the GPU shader module compiled from Shader()
	//   - layout: the pipeline layout holding the program's bind group layouts
	//   - format: the color target format, normally the surface format
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor passed to Device.CreateRenderPipeline
	Descriptor(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout, format wgpu.TextureFormat) *wgpu.RenderPipelineDescriptor

	// SetRenderPipeline stores the GPU pipeline created from Descriptor.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release frees the GPU pipeline if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render Pipeline with triangle-list topology, no culling, CCW front
// faces, full write mask, blending off, and a sample count of 1.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		cullMode:    wgpu.CullModeNone,
		topology:    wgpu.PrimitiveTopologyTriangleList,
		frontFace:   wgpu.FrontFaceCCW,
		writeMask:   wgpu.ColorWriteMaskAll,
		sampleCount: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.program
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Descriptor(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout, format wgpu.TextureFormat) *wgpu.RenderPipelineDescriptor {
	var vsEntry, fsEntry string
	if p.program != nil {
		vsEntry = p.program.EntryPoint(shader.StageVertex)
		fsEntry = p.program.EntryPoint(shader.StageFragment)
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vsEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fsEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     p.blendState,
				WriteMask: p.writeMask,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
