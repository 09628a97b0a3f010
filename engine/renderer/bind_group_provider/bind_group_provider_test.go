package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindGroupProvider(t *testing.T) {
	p := NewBindGroupProvider("uniforms", WithGroup(2))
	p.SetBuffer(0, nil, 16)

	assert.Equal(t, "uniforms", p.Label())
	assert.Equal(t, 2, p.Group())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.Nil(t, p.Buffer(0))

	size, ok := p.BufferSize(0)
	require.True(t, ok)
	assert.Equal(t, uint64(16), size)

	_, ok = p.BufferSize(1)
	assert.False(t, ok)

	p.SetBuffer(3, nil, 64)
	size, ok = p.BufferSize(3)
	require.True(t, ok)
	assert.Equal(t, uint64(64), size)

	p.Release()
	_, ok = p.BufferSize(0)
	assert.False(t, ok)
	_, ok = p.BufferSize(3)
	assert.False(t, ok)
}

func TestValidateWrite(t *testing.T) {
	p := NewBindGroupProvider("uniforms")
	p.SetBuffer(0, nil, 16)

	tests := []struct {
		name    string
		write   BufferWrite
		wantErr error
	}{
		{"whole block", BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 16)}, nil},
		{"short", BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 4)}, ErrPartialWrite},
		{"long", BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 32)}, ErrPartialWrite},
		{"offset", BufferWrite{Provider: p, Binding: 0, Offset: 8, Data: make([]byte, 8)}, ErrPartialWrite},
		{"unknown binding", BufferWrite{Provider: p, Binding: 1, Data: make([]byte, 16)}, ErrUnknownBinding},
		{"nil provider", BufferWrite{Data: make([]byte, 16)}, ErrUnknownBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWrite(tt.write)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
