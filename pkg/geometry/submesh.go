package geometry

import "fmt"

// MaxIndex16 is the largest vertex index a 16-bit index buffer can address.
const MaxIndex16 = 65535

// Use32BitIndices reports whether a mesh with vertexCount shared vertices
// needs 32-bit indices. The answer applies to every submesh of the mesh.
func Use32BitIndices(vertexCount int) bool {
	return vertexCount > MaxIndex16
}

// Submesh is an independently indexed triangle list with one material.
type Submesh struct {
	Name            string
	Material        string
	Triangles       [][3]int
	Use32BitIndices bool
	// Group is set for submeshes built from a vertex group rather than a
	// material slot.
	Group bool
}

// Group is a named set of compact vertices. Members is indexed by compact
// vertex index.
type Group struct {
	Name    string
	Members []bool
}

func (g *Group) has(v int) bool {
	return v < len(g.Members) && g.Members[v]
}

// Partition is the submesh layout of one mesh.
type Partition struct {
	Submeshes []Submesh
	// EmptySlots lists material slots no triangle uses. They are not
	// emitted as submeshes.
	EmptySlots []int
	// Reassigned counts triangles whose slot index was out of range and
	// which were placed in slot 0.
	Reassigned int
}

// Split groups triangles by material slot, in slot order, then appends one
// submesh per vertex group holding every triangle whose three vertices all
// belong to that group. slotOf gives the material slot of each triangle
// and materials the material name of each slot ("" for none).
func Split(vertexCount int, tris [][3]int, slotOf []int, materials []string, groups []Group) *Partition {
	wide := Use32BitIndices(vertexCount)
	p := &Partition{}

	slots := len(materials)
	if slots == 0 {
		slots = 1
	}
	bySlot := make([][][3]int, slots)
	for i, tri := range tris {
		slot := 0
		if i < len(slotOf) {
			slot = slotOf[i]
		}
		if slot < 0 || slot >= slots {
			slot = 0
			p.Reassigned++
		}
		bySlot[slot] = append(bySlot[slot], tri)
	}

	for slot, list := range bySlot {
		if len(list) == 0 {
			p.EmptySlots = append(p.EmptySlots, slot)
			continue
		}
		var mat string
		if slot < len(materials) {
			mat = materials[slot]
		}
		name := mat
		if name == "" {
			name = fmt.Sprintf("submesh%d", slot)
		}
		p.Submeshes = append(p.Submeshes, Submesh{
			Name:            name,
			Material:        mat,
			Triangles:       list,
			Use32BitIndices: wide,
		})
	}

	for gi := range groups {
		g := &groups[gi]
		sm := Submesh{Name: g.Name, Use32BitIndices: wide, Group: true}
		for i, tri := range tris {
			if !g.has(tri[0]) || !g.has(tri[1]) || !g.has(tri[2]) {
				continue
			}
			if len(sm.Triangles) == 0 {
				slot := 0
				if i < len(slotOf) && slotOf[i] >= 0 && slotOf[i] < len(materials) {
					slot = slotOf[i]
				}
				if slot < len(materials) {
					sm.Material = materials[slot]
				}
			}
			sm.Triangles = append(sm.Triangles, tri)
		}
		if len(sm.Triangles) > 0 {
			p.Submeshes = append(p.Submeshes, sm)
		}
	}

	uniqueNames(p.Submeshes)
	return p
}

// uniqueNames suffixes repeated submesh names with ".1", ".2" and so on,
// keeping the first occurrence as is.
func uniqueNames(subs []Submesh) {
	used := make(map[string]bool, len(subs))
	for i := range subs {
		used[subs[i].Name] = true
	}
	seen := make(map[string]bool, len(subs))
	for i := range subs {
		name := subs[i].Name
		if !seen[name] {
			seen[name] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s.%d", name, n)
			if !used[candidate] {
				subs[i].Name = candidate
				used[candidate] = true
				seen[candidate] = true
				break
			}
		}
	}
}

// TriangleCount returns the number of triangles over all submeshes.
func (p *Partition) TriangleCount() int {
	n := 0
	for i := range p.Submeshes {
		n += len(p.Submeshes[i].Triangles)
	}
	return n
}
