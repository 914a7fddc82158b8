package exporter

import (
	"bytes"
	"path"
	"strings"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/material"
)

// exportMaterials writes the scripts of every material used by meshes:
// one script per mesh, or one per material when configured. A material is
// defined once per run; later meshes sharing it only reference it.
func (r *run) exportMaterials(meshes []*scene.MeshObject) {
	gen := &material.Generator{TextureName: r.textureName}
	written := make(map[string]bool)

	for _, obj := range meshes {
		var mats []*material.Material
		for _, name := range r.materialsOf(obj) {
			if written[name] {
				continue
			}
			written[name] = true
			if r.cfg.Material.SeparateFiles {
				r.writeScript(gen, fileName(name), []*material.Material{r.lookupMaterial(obj, name)})
				continue
			}
			mats = append(mats, r.lookupMaterial(obj, name))
		}
		if len(mats) > 0 {
			r.writeScript(gen, fileName(obj.Name), mats)
		}
	}
}

func (r *run) writeScript(gen *material.Generator, stem string, mats []*material.Material) {
	res, err := gen.Script(mats)
	if err != nil {
		r.rep.Fail(stem, err)
		return
	}
	for _, w := range res.Warnings {
		r.rep.Warn(stem, w)
	}
	if err := r.writeFile(stem+".material", bytes.NewBuffer(res.Script), false); err != nil {
		r.rep.Fail(stem, err)
		return
	}
	r.rep.Materials = append(r.rep.Materials, res.Names...)
}

// materialsOf lists the distinct named materials of a mesh in slot order.
func (r *run) materialsOf(obj *scene.MeshObject) []string {
	if obj.Data == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, name := range obj.Data.Materials {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// lookupMaterial finds a material in the snapshot. A missing one is
// written with the default pass.
func (r *run) lookupMaterial(obj *scene.MeshObject, name string) *material.Material {
	if m := r.snap.Material(name); m != nil {
		return m
	}
	r.rep.Warnf(obj.Name, "material %q not in scene, using defaults", name)
	return &material.Material{Name: name}
}

// textureName writes image references by base name, swapping the
// extension when textures are converted alongside.
func (r *run) textureName(image string) string {
	name := path.Base(strings.ReplaceAll(image, "\\", "/"))
	if ext := r.cfg.Material.TextureExtension; ext != "" {
		name = strings.TrimSuffix(name, path.Ext(name)) + ext
	}
	return name
}
