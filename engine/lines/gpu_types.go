package lines

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// UniformBlockSize is the exact byte size of the Uniforms block read by lines.wgsl.
const UniformBlockSize = 16

// GPUUniformsSource is the canonical WGSL definition of the Uniforms struct.
// Matches UniformBlock layout exactly (16 bytes, 16-byte aligned).
//
//go:embed assets/uniforms.wgsl
var GPUUniformsSource string

// ShaderSource is the WGSL program for the light-lines pass. It still carries
// @shimmer: annotations and must be run through the shader pre-processor before compilation.
//
//go:embed assets/lines.wgsl
var ShaderSource string

// Shader entry point names declared in ShaderSource.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// UniformBlock is the GPU-aligned representation of the per-frame uniform buffer.
// Matches the WGSL Uniforms struct layout exactly (see GPUUniformsSource).
// Size: 16 bytes.
type UniformBlock struct {
	Time        float32 // offset  0: elapsed seconds (f32)
	Padding     float32 // offset  4: always serialized as zero (f32)
	ResolutionX float32 // offset  8: surface width in pixels (vec2<f32>.x)
	ResolutionY float32 // offset 12: surface height in pixels (vec2<f32>.y)
}

// NewUniformBlock builds the block written to the GPU for one frame.
//
// Parameters:
//   - timeSeconds: elapsed animation time in seconds
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - UniformBlock: the populated block with zero padding
func NewUniformBlock(timeSeconds float32, width, height int) UniformBlock {
	return UniformBlock{
		Time:        timeSeconds,
		ResolutionX: float32(width),
		ResolutionY: float32(height),
	}
}

// Size returns the size of the UniformBlock struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (u *UniformBlock) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the UniformBlock into a little-endian byte buffer suitable for GPU upload.
// The padding slot is always written as zero regardless of the Padding field.
//
// Returns:
//   - []byte: the serialized 16-byte buffer
func (u *UniformBlock) Marshal() []byte {
	buf := make([]byte, UniformBlockSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(u.Time))
	binary.LittleEndian.PutUint32(buf[4:], 0) // padding
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(u.ResolutionX))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(u.ResolutionY))
	return buf
}

// UnmarshalUniformBlock decodes a 16-byte buffer produced by Marshal.
//
// Parameters:
//   - buf: the serialized block, at least UniformBlockSize bytes long
//
// Returns:
//   - UniformBlock: the decoded block
//   - bool: false if buf is too short
func UnmarshalUniformBlock(buf []byte) (UniformBlock, bool) {
	if len(buf) < UniformBlockSize {
		return UniformBlock{}, false
	}
	return UniformBlock{
		Time:        math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])),
		Padding:     math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])),
		ResolutionX: math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])),
		ResolutionY: math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])),
	}, true
}
