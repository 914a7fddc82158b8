// Package material generates material scripts: one technique per
// material, one pass per layer and one texture unit per texture slot.
package material

import (
	"github.com/Faultbox/ogrexport/pkg/math"
)

// Blend modes of a texture slot, as named by the authoring tool.
const (
	BlendMix        = "MIX"
	BlendAdd        = "ADD"
	BlendMultiply   = "MULTIPLY"
	BlendScreen     = "SCREEN"
	BlendLighten    = "LIGHTEN"
	BlendSubtract   = "SUBTRACT"
	BlendOverlay    = "OVERLAY"
	BlendDifference = "DIFFERENCE"
	BlendValue      = "VALUE"
)

// Texture extension modes.
const (
	ExtendRepeat  = "REPEAT"
	ExtendExtend  = "EXTEND"
	ExtendClip    = "CLIP"
	ExtendChecker = "CHECKER"
)

// Material is a named list of passes. The first pass is the base layer.
type Material struct {
	Name string
	// Parent is the script material this one inherits from, if any.
	Parent string
	Passes []Pass
	// NoReceiveShadows disables shadow receiving on the technique.
	NoReceiveShadows bool
}

// Pass is one rendering layer.
type Pass struct {
	Name string

	Diffuse           math.Vec3
	DiffuseIntensity  float32
	Ambient           float32
	Specular          math.Vec3
	SpecularIntensity float32
	Hardness          float32
	Emit              float32
	Alpha             float32

	// Shadeless makes the pass self-illuminated with its diffuse color.
	Shadeless bool
	// VertexColorPaint takes ambient and diffuse from vertex colors.
	VertexColorPaint bool
	// VertexColorLight takes emissive from vertex colors.
	VertexColorLight bool

	Options  PassOptions
	Textures []TextureSlot
}

// TextureSlot is one texture layer of a pass.
type TextureSlot struct {
	Image string
	Blend string
	// Factor is the diffuse color factor; below 1 the layer is blended
	// manually with the current color.
	Factor   float32
	UVSet    int
	Extend   string
	Offset   math.Vec2
	Scale    math.Vec2
	Rotation float32 // degrees
}

// PassOptions are the render-state switches of a pass. The zero value
// leaves every state at its engine default.
type PassOptions struct {
	SceneBlend                string
	CullHardware              string
	CullSoftware              string
	PolygonMode               string
	Shading                   string
	DepthBias                 float32
	AlphaRejection            int
	DisableDepthCheck         bool
	DisableDepthWrite         bool
	DisableColourWrite        bool
	DisableLighting           bool
	DisableTransparentSorting bool
}

// DefaultPass returns a white, lit pass.
func DefaultPass() Pass {
	return Pass{
		Diffuse:           math.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
		DiffuseIntensity:  1,
		Ambient:           1,
		Specular:          math.Vec3{X: 1, Y: 1, Z: 1},
		SpecularIntensity: 0.5,
		Hardness:          50,
		Alpha:             1,
	}
}
