package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline and bind group creation.
type shader struct {
	key                        string
	source                     string
	entryPoints                map[Stage]string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed, validated WGSL render program holding one vertex and one
// fragment entry point, along with the bind group layouts naga reflected from its IR.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the entry point name for a stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - string: the entry point name, or empty if the stage is unknown
	EntryPoint(stage Stage) string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BufferSize returns the MinBindingSize computed for a buffer binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - uint64: the size in bytes of the bound type
	//   - bool: false if the binding does not exist or is not a buffer
	BufferSize(group, binding int) (uint64, bool)

	// Module returns the wgpu.ShaderModuleDescriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group annotations expanded by the pre-processor.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes, validates, and reflects a WGSL render program.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the GPU module label
//   - source: WGSL source, optionally containing @shimmer: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error wrapping ErrCompile if the source is invalid or lacks a stage
func NewShader(key, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, key, err)
	}

	refl, err := Validate(processed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	s := &shader{
		key:         key,
		source:      processed,
		entryPoints: make(map[Stage]string, 2),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
		declarations: append([]Annotation(nil), pp.Declarations()...),
	}

	for _, stage := range []Stage{StageVertex, StageFragment} {
		name, err := refl.RequireEntryPoint(stage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		s.entryPoints[stage] = name
	}

	s.bindGroupLayoutDescriptors, s.bindingVarNames, err = bindGroupLayouts(refl.Resources, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, key, err)
	}

	return s, nil
}

// NewShaderFromPath reads WGSL source from disk and builds a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: a read error or an error wrapping ErrCompile
func NewShaderFromPath(key, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewShader(key, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage Stage) string {
	return s.entryPoints[stage]
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BufferSize(group, binding int) (uint64, bool) {
	desc, ok := s.bindGroupLayoutDescriptors[group]
	if !ok {
		return 0, false
	}
	for _, e := range desc.Entries {
		if int(e.Binding) == binding && e.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			return e.Buffer.MinBindingSize, true
		}
	}
	return 0, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
