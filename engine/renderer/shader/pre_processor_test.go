package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shimmer/engine/lines"
)

func TestPreProcessorProcess(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@shimmer:include uniforms\n//@shimmer:group 0 0 storage_uniform u uniforms\nfn f() {}")
	require.NoError(t, err)

	assert.Contains(t, out, strings.TrimRight(lines.GPUUniformsSource, "\n"))
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> u: Uniforms;")
	assert.True(t, strings.HasSuffix(out, "fn f() {}"))

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, []AnnotationArg{"storage_uniform", "u", "uniforms"}, decls[0].Args)
	assert.Equal(t, 2, decls[0].Line)

	// declarations reset between runs
	_, err = pp.Process("fn g() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestPreProcessorRejectsStorage(t *testing.T) {
	_, err := NewPreProcessor().Process("//@shimmer:group 1 3 storage_read data uniforms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown address space")
}

func TestPreProcessorDuplicateInclude(t *testing.T) {
	_, err := NewPreProcessor().Process("//@shimmer:include uniforms\n//@shimmer:include uniforms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantNil bool
		wantErr string
	}{
		{name: "plain code", line: "let x = 1.0;", wantNil: true},
		{name: "plain comment", line: "// a comment", wantNil: true},
		{name: "include", line: "//@shimmer:include uniforms"},
		{name: "group", line: "  //@shimmer:group 0 1 storage_uniform u uniforms"},
		{name: "empty", line: "//@shimmer:", wantErr: "empty annotation"},
		{name: "unknown type", line: "//@shimmer:provider 0 0 x", wantErr: "unknown annotation type"},
		{name: "include arity", line: "//@shimmer:include", wantErr: "exactly one argument"},
		{name: "unknown struct", line: "//@shimmer:include light", wantErr: "unknown struct type"},
		{name: "group arity", line: "//@shimmer:group 0 0 storage_uniform u", wantErr: "five arguments"},
		{name: "bad group", line: "//@shimmer:group x 0 storage_uniform u uniforms", wantErr: "invalid group"},
		{name: "negative binding", line: "//@shimmer:group 0 -1 storage_uniform u uniforms", wantErr: "invalid binding"},
		{name: "bad address space", line: "//@shimmer:group 0 0 private u uniforms", wantErr: "unknown address space"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 7)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "line 7")
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, 7, a.Line)
		})
	}
}
