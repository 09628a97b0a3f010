package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithShaderSource replaces the embedded lines program. The source must keep the vs_main and
// fs_main entry points and a 16 byte uniform block at @group(0) @binding(0).
//
// Parameters:
//   - source: the WGSL source, annotations allowed
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader source option to a renderer
func WithShaderSource(source string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderSource = source
	}
}

// WithShaderPath loads the lines program from a WGSL file instead of the embedded source. It
// takes precedence over WithShaderSource and is held to the same entry point and uniform rules.
//
// Parameters:
//   - path: the WGSL file, annotations allowed
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader path option to a renderer
func WithShaderPath(path string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderPath = path
	}
}

// WithBackend supplies an already constructed backend instead of creating one from backendType.
//
// Parameters:
//   - b: the backend to drive
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(b RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = b
	}
}
