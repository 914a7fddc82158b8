package material

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Faultbox/ogrexport/pkg/markup"
	"github.com/Faultbox/ogrexport/pkg/math"
)

// Generator writes material scripts.
type Generator struct {
	// TextureName maps an image reference to the name written in the
	// script. Nil writes the base name.
	TextureName func(image string) string
}

// Result is a generated script.
type Result struct {
	Script   []byte
	Names    []string
	Warnings []string
}

// Script writes every material into one script.
func (g *Generator) Script(materials []*Material) (*Result, error) {
	var buf bytes.Buffer
	w := markup.NewWriter(&buf)
	res := &Result{}

	for i, m := range materials {
		if i > 0 {
			w.Blank()
		}
		res.Warnings = append(res.Warnings, g.Write(w, m)...)
		res.Names = append(res.Names, m.Name)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing material script: %w", err)
	}
	res.Script = buf.Bytes()
	return res, nil
}

// Write emits one material block and returns structural warnings. A
// material without passes gets a single default pass.
func (g *Generator) Write(w *markup.Writer, m *Material) []string {
	var warnings []string

	passes := m.Passes
	if len(passes) == 0 {
		warnings = append(warnings, fmt.Sprintf("material %q has no passes, writing a default pass", m.Name))
		passes = []Pass{DefaultPass()}
	}

	if m.Parent != "" {
		w.Open("material", m.Name, ":", m.Parent)
	} else {
		w.Open("material", m.Name)
	}
	if m.NoReceiveShadows {
		w.Line("receive_shadows", "off")
	}
	w.Open("technique")
	for i := range passes {
		g.writePass(w, &passes[i])
	}
	w.Close()
	w.Close()
	return warnings
}

func (g *Generator) writePass(w *markup.Writer, p *Pass) {
	w.Open("pass", p.Name)

	alpha := markup.Float(p.Alpha)
	if p.VertexColorPaint {
		w.Line("ambient", "vertexcolour")
		w.Line("diffuse", "vertexcolour")
	} else {
		w.Line(append([]string{"ambient"}, rgb(p.Diffuse.Scale(p.Ambient), alpha)...)...)
		w.Line(append([]string{"diffuse"}, rgb(p.Diffuse.Scale(p.DiffuseIntensity), alpha)...)...)
	}
	spec := rgb(p.Specular.Scale(p.SpecularIntensity), alpha)
	w.Line(append(append([]string{"specular"}, spec...), markup.Float(p.Hardness/4))...)

	switch {
	case p.Shadeless:
		w.Line(append([]string{"emissive"}, rgb(p.Diffuse, alpha)...)...)
	case p.VertexColorLight:
		w.Line("emissive", "vertexcolour")
	default:
		w.Line(append([]string{"emissive"}, rgb(p.Diffuse.Scale(p.Emit), alpha)...)...)
	}

	for _, rule := range passOptionRules {
		if args, ok := rule.value(&p.Options); ok {
			w.Line(append([]string{rule.name}, args...)...)
		}
	}

	for i := range p.Textures {
		g.writeTexture(w, &p.Textures[i])
	}
	w.Close()
}

func (g *Generator) writeTexture(w *markup.Writer, t *TextureSlot) {
	name := filepath.Base(t.Image)
	if g.TextureName != nil {
		name = g.TextureName(t.Image)
	}

	w.Open("texture_unit")
	w.Line("texture", name)
	if mode, ok := AddressMode(t.Extend); ok {
		w.Line("tex_address_mode", mode)
	}
	if t.UVSet != 0 {
		w.Line("tex_coord_set", strconv.Itoa(t.UVSet))
	}
	if t.Scale != (math.Vec2{}) && t.Scale != (math.Vec2{X: 1, Y: 1}) {
		w.Line("scale", markup.Float(t.Scale.X), markup.Float(t.Scale.Y))
	}
	if t.Rotation != 0 {
		w.Line("rotate", markup.Float(t.Rotation))
	}
	if t.Offset != (math.Vec2{}) {
		w.Line("scroll", markup.Float(t.Offset.X), markup.Float(t.Offset.Y))
	}
	op, args := ColourOp(t.Blend, t.Factor)
	w.Line(append([]string{op}, args...)...)
	w.Close()
}

func rgb(c math.Vec3, alpha string) []string {
	return []string{markup.Float(c.X), markup.Float(c.Y), markup.Float(c.Z), alpha}
}
