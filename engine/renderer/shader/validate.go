package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrCompile is returned when WGSL source fails to parse, lower, or validate, or when a
// required entry point is missing.
var ErrCompile = errors.New("shader compile failed")

// Stage identifies a programmable pipeline stage of a render shader.
type Stage int

const (
	// StageVertex is the vertex stage of a render pipeline.
	StageVertex Stage = iota

	// StageFragment is the fragment stage of a render pipeline.
	StageFragment
)

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Resource is a bound module-scope variable reported by the WGSL front end.
type Resource struct {
	Name    string
	Group   uint32
	Binding uint32
	Uniform bool

	// Size is the byte size of the bound type as laid out by naga, 0 for textures and samplers.
	Size uint64
}

// Reflection is what validation learned about a WGSL module.
type Reflection struct {
	// EntryPoints maps each render stage to the names of its entry points, in source order.
	EntryPoints map[Stage][]string

	// Resources lists every variable carrying a @group/@binding pair.
	Resources []Resource
}

// Validate compiles WGSL source to the naga IR and runs the IR validator over it, so that
// shader errors surface with line information before any GPU module is created.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - *Reflection: the entry points and bound resources of the module
//   - error: an error wrapping ErrCompile if the source is not valid WGSL
func Validate(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %d validation error(s), first: %w", ErrCompile, len(verrs), verrs[0])
	}

	refl := &Reflection{EntryPoints: make(map[Stage][]string)}
	for _, ep := range module.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			refl.EntryPoints[StageVertex] = append(refl.EntryPoints[StageVertex], ep.Name)
		case ir.StageFragment:
			refl.EntryPoints[StageFragment] = append(refl.EntryPoints[StageFragment], ep.Name)
		}
	}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		refl.Resources = append(refl.Resources, Resource{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Uniform: gv.Space == ir.SpaceUniform,
			Size:    uint64(ir.TypeSize(module, gv.Type)),
		})
	}
	return refl, nil
}

// RequireEntryPoint reports ErrCompile unless the module declares exactly one entry point
// for the stage.
//
// Parameters:
//   - stage: the stage to look up
//
// Returns:
//   - string: the entry point name
//   - error: an error wrapping ErrCompile if the stage has zero or several entry points
func (r *Reflection) RequireEntryPoint(stage Stage) (string, error) {
	names := r.EntryPoints[stage]
	switch len(names) {
	case 1:
		return names[0], nil
	case 0:
		return "", fmt.Errorf("%w: no @%s entry point", ErrCompile, stage)
	default:
		return "", fmt.Errorf("%w: %d @%s entry points %v, want one", ErrCompile, len(names), stage, names)
	}
}
