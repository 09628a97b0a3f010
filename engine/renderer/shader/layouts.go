package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupLayouts turns the bound resources naga reported into bind group layout descriptors
// keyed by group index. Only uniform buffers are accepted; each entry's MinBindingSize is the
// size naga computed for the bound type.
//
// Parameters:
//   - resources: the bound resources of a validated module
//   - visibility: the shader stage visibility flags to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index, entries sorted by binding
//   - map[int]map[int]string: variable names keyed by group and binding index
//   - error: an error for a resource that is not a sized uniform buffer
func bindGroupLayouts(resources []Resource, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, error) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)

	for _, res := range resources {
		if !res.Uniform {
			return nil, nil, fmt.Errorf("binding %s: only uniform buffers are supported", res.Name)
		}
		if res.Size == 0 {
			return nil, nil, fmt.Errorf("binding %s: bound type has no size", res.Name)
		}

		entry := wgpu.BindGroupLayoutEntry{
			Binding:    res.Binding,
			Visibility: visibility,
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = res.Size

		group := int(res.Group)
		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][int(res.Binding)] = res.Name
		groups[group] = append(groups[group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group %d", g),
			Entries: entries,
		}
	}

	return result, varNames, nil
}
