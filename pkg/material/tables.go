package material

import (
	"strconv"

	"github.com/Faultbox/ogrexport/pkg/markup"
)

const defaultColourOp = "modulate"

// colourOps maps blend modes to a simple colour_op.
var colourOps = map[string]string{
	BlendMix:      "modulate",
	BlendAdd:      "add",
	BlendMultiply: "modulate",
}

// colourOpsEx maps blend modes to a colour_op_ex operation.
var colourOpsEx = map[string]string{
	BlendMix:        "blend_manual",
	BlendScreen:     "modulate_x2",
	BlendLighten:    "modulate_x4",
	BlendSubtract:   "subtract",
	BlendOverlay:    "add_signed",
	BlendDifference: "dotproduct",
	BlendValue:      "blend_diffuse_colour",
}

// addressModes maps extension modes to tex_address_mode values.
// REPEAT maps to the engine default and is never written.
var addressModes = map[string]string{
	ExtendRepeat:  "wrap",
	ExtendExtend:  "clamp",
	ExtendClip:    "border",
	ExtendChecker: "mirror",
}

// passOptionRule serialises one pass option. It returns the directive
// arguments and false when the option is at its default.
type passOptionRule struct {
	name  string
	value func(o *PassOptions) ([]string, bool)
}

func onOff(disabled bool) ([]string, bool) {
	if disabled {
		return []string{"off"}, true
	}
	return nil, false
}

func word(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	return []string{s}, true
}

// passOptionRules is ordered; directives are written in table order.
var passOptionRules = []passOptionRule{
	{"lighting", func(o *PassOptions) ([]string, bool) { return onOff(o.DisableLighting) }},
	{"scene_blend", func(o *PassOptions) ([]string, bool) { return word(o.SceneBlend) }},
	{"depth_check", func(o *PassOptions) ([]string, bool) { return onOff(o.DisableDepthCheck) }},
	{"depth_write", func(o *PassOptions) ([]string, bool) { return onOff(o.DisableDepthWrite) }},
	{"depth_bias", func(o *PassOptions) ([]string, bool) {
		if o.DepthBias == 0 {
			return nil, false
		}
		return []string{markup.Float(o.DepthBias)}, true
	}},
	{"colour_write", func(o *PassOptions) ([]string, bool) { return onOff(o.DisableColourWrite) }},
	{"transparent_sorting", func(o *PassOptions) ([]string, bool) { return onOff(o.DisableTransparentSorting) }},
	{"alpha_rejection", func(o *PassOptions) ([]string, bool) {
		if o.AlphaRejection <= 0 {
			return nil, false
		}
		return []string{"greater_equal", strconv.Itoa(o.AlphaRejection)}, true
	}},
	{"cull_hardware", func(o *PassOptions) ([]string, bool) { return word(o.CullHardware) }},
	{"cull_software", func(o *PassOptions) ([]string, bool) { return word(o.CullSoftware) }},
	{"polygon_mode", func(o *PassOptions) ([]string, bool) { return word(o.PolygonMode) }},
	{"shading", func(o *PassOptions) ([]string, bool) { return word(o.Shading) }},
}

// ColourOp returns the combine directive and its arguments for a texture
// slot. Modes neither table knows fall back to modulate.
func ColourOp(blend string, factor float32) (string, []string) {
	if op, ok := colourOps[blend]; ok && factor >= 1 {
		return "colour_op", []string{op}
	}
	if op, ok := colourOpsEx[blend]; ok {
		args := []string{op, "src_texture", "src_current"}
		if op == "blend_manual" {
			args = append(args, markup.Float(factor))
		}
		return "colour_op_ex", args
	}
	return "colour_op", []string{defaultColourOp}
}

// AddressMode returns the tex_address_mode value for an extension mode
// and false when nothing needs writing.
func AddressMode(extend string) (string, bool) {
	mode, ok := addressModes[extend]
	if !ok || mode == "wrap" {
		return "", false
	}
	return mode, true
}
