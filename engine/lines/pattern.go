package lines

import (
	"github.com/chewxy/math32"
)

// Tuning values shared with assets/lines.wgsl. They are aesthetic and kept literal.
const (
	LineCount = 16
	Scale     = float32(5.0)

	overallSpeed    = float32(0.2)
	lineSpeed       = 1.0 * overallSpeed
	lineFrequency   = float32(0.2)
	lineAmplitude   = float32(1.0)
	offsetSpeed     = 1.33 * overallSpeed
	offsetFrequency = float32(0.5)
	minLineWidth    = float32(0.01)
	maxLineWidth    = float32(0.2)
	minOffsetSpread = float32(0.6)
	maxOffsetSpread = float32(2.0)
)

// LineColor is the RGBA base color every line is tinted with.
var LineColor = Color{R: 0.4, G: 0.2, B: 0.8, A: 1.0}

// Vec2 is a two component float32 vector, used for uv coordinates.
type Vec2 struct {
	X, Y float32
}

// Color is a linear RGBA color as produced by the fragment stage. Components are not clamped.
type Color struct {
	R, G, B, A float32
}

func (c Color) add(o Color) Color {
	return Color{R: c.R + o.R, G: c.G + o.G, B: c.B + o.B, A: c.A + o.A}
}

func (c Color) scale(s float32) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A * s}
}

// Random is the smooth pseudo-random function of the line pattern: the mean of three
// phase-shifted cosines. The result is always within [-1, 1].
func Random(x float32) float32 {
	return (math32.Cos(x) + math32.Cos(x*1.3+1.3) + math32.Cos(x*1.4+1.4)) / 3.0
}

// Fade maps u in [0,1] to a bell curve that is 0 at both edges and 1 in the middle.
func Fade(u float32) float32 {
	return 1.0 - (math32.Cos(u*2*math32.Pi)*0.5 + 0.5)
}

// Smoothstep matches the WGSL builtin, including edge0 > edge1 which yields an inverted ramp.
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	t = math32.Max(0, math32.Min(1, t))
	return t * t * (3 - 2*t)
}

func mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

func lineY(x, horizontalFade, offset, t float32) float32 {
	return Random(x*lineFrequency+t*lineSpeed)*horizontalFade*lineAmplitude + offset
}

// Fragment evaluates the light-lines fragment stage for one uv coordinate.
// It is a pure function of uv and block.Time; resolution does not affect the result.
//
// Parameters:
//   - uv: the normalized surface coordinate, (0,0) bottom-left and (1,1) top-right
//   - block: the uniform values for the frame
//
// Returns:
//   - Color: the unclamped RGBA output of the fragment stage
func Fragment(uv Vec2, block UniformBlock) Color {
	t := block.Time
	spaceX := (uv.X*2 - 1) * Scale
	spaceY := (uv.Y*2 - 1) * Scale
	horizontalFade := Fade(uv.X)
	verticalFade := Fade(uv.Y)
	offsetTime := t * offsetSpeed

	var out Color
	for l := range LineCount {
		lineIndex := float32(l)
		normalizedLineIndex := lineIndex / float32(LineCount)
		offsetPosition := lineIndex + spaceX*offsetFrequency

		rand := Random(offsetPosition+offsetTime)*0.5 + 0.5
		halfWidth := mix(minLineWidth, maxLineWidth, rand*horizontalFade) / 2.0
		offset := Random(offsetPosition+offsetTime*(1.0+normalizedLineIndex)) * mix(minOffsetSpread, maxOffsetSpread, horizontalFade)
		linePosition := lineY(spaceX, horizontalFade, offset, t)

		mask := Smoothstep(halfWidth, 0.0, math32.Abs(spaceY-linePosition))
		out = out.add(LineColor.scale(mask * rand))
	}
	return out.scale(verticalFade)
}
