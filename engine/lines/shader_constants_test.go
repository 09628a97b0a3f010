package lines

import (
	"math"
	"testing"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalConstExpr flattens a module-scope constant expression into its numeric components.
func evalConstExpr(t *testing.T, m *ir.Module, h ir.ExpressionHandle) []float64 {
	t.Helper()
	require.Less(t, int(h), len(m.GlobalExpressions))

	switch e := m.GlobalExpressions[h].Kind.(type) {
	case ir.Literal:
		switch v := e.Value.(type) {
		case ir.LiteralF32:
			return []float64{float64(v)}
		case ir.LiteralF64:
			return []float64{float64(v)}
		case ir.LiteralI32:
			return []float64{float64(v)}
		case ir.LiteralU32:
			return []float64{float64(v)}
		case ir.LiteralAbstractFloat:
			return []float64{float64(v)}
		case ir.LiteralAbstractInt:
			return []float64{float64(v)}
		}
		t.Fatalf("unsupported literal %T", e.Value)
	case ir.ExprCompose:
		var out []float64
		for _, c := range e.Components {
			out = append(out, evalConstExpr(t, m, c)...)
		}
		return out
	case ir.ExprConstant:
		return evalConstExpr(t, m, m.Constants[e.Constant].Init)
	}
	t.Fatalf("unsupported constant expression %T", m.GlobalExpressions[h].Kind)
	return nil
}

// shaderConstants lowers the lines program with naga and returns its named module constants.
func shaderConstants(t *testing.T) map[string][]float64 {
	t.Helper()
	// the annotations are plain comments to naga, so the uniform block is spelled out here
	src := GPUUniformsSource + "\n@group(0) @binding(0) var<uniform> uniforms: Uniforms;\n" + ShaderSource

	ast, err := naga.Parse(src)
	require.NoError(t, err)
	module, err := naga.LowerWithSource(ast, src)
	require.NoError(t, err)

	consts := make(map[string][]float64)
	for _, c := range module.Constants {
		if c.Name == "" {
			continue
		}
		consts[c.Name] = evalConstExpr(t, module, c.Init)
	}
	return consts
}

func TestShaderConstantsMatchFragment(t *testing.T) {
	consts := shaderConstants(t)

	scalars := map[string]float64{
		"TAU":               2 * math.Pi,
		"SCALE":             float64(Scale),
		"LINE_COUNT":        LineCount,
		"LINE_SPEED":        float64(lineSpeed),
		"LINE_FREQUENCY":    float64(lineFrequency),
		"LINE_AMPLITUDE":    float64(lineAmplitude),
		"OFFSET_SPEED":      float64(offsetSpeed),
		"OFFSET_FREQUENCY":  float64(offsetFrequency),
		"MIN_LINE_WIDTH":    float64(minLineWidth),
		"MAX_LINE_WIDTH":    float64(maxLineWidth),
		"MIN_OFFSET_SPREAD": float64(minOffsetSpread),
		"MAX_OFFSET_SPREAD": float64(maxOffsetSpread),
	}
	for name, want := range scalars {
		t.Run(name, func(t *testing.T) {
			got, ok := consts[name]
			require.True(t, ok, "lines.wgsl has no constant %s", name)
			require.Len(t, got, 1)
			assert.InDelta(t, want, got[0], 1e-6)
		})
	}

	t.Run("LINE_COLOR", func(t *testing.T) {
		got, ok := consts["LINE_COLOR"]
		require.True(t, ok)
		require.Len(t, got, 4)
		want := []float32{LineColor.R, LineColor.G, LineColor.B, LineColor.A}
		for i := range want {
			assert.InDelta(t, float64(want[i]), got[i], 1e-7)
		}
	})
}
