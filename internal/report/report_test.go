package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReportAccumulates(t *testing.T) {
	r := New(nil)
	r.Meshes = append(r.Meshes, "Cube", "Sphere")
	r.Warnf("Sphere", "%d vertices have more than %d influences", 3, 4)
	r.Warn("Cube", "material slot 2 is empty")
	r.Fail("Torus", errors.New("shape key vertex count does not match mesh"))
	r.AddFile("out/Cube.mesh.xml")

	if r.OK() {
		t.Error("report with an error should not be OK")
	}
	if len(r.Warnings) != 2 || len(r.Errors) != 1 || len(r.Files) != 1 {
		t.Fatalf("unexpected contents: %+v", r)
	}
	if got := r.Warnings[0].String(); got != "Sphere: 3 vertices have more than 4 influences" {
		t.Errorf("warning text: %q", got)
	}

	var out bytes.Buffer
	r.WriteSummary(&out)
	s := out.String()
	for _, want := range []string{"Meshes:     2", "Warnings (2):", "Errors (1):", "Torus: shape key"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
	// Warnings are grouped by subject.
	if strings.Index(s, "Cube: material") > strings.Index(s, "Sphere: 3") {
		t.Errorf("warnings not sorted by subject:\n%s", s)
	}
}

func TestEmptyReportIsOK(t *testing.T) {
	r := New(nil)
	if !r.OK() {
		t.Error("empty report should be OK")
	}
	var out bytes.Buffer
	r.WriteSummary(&out)
	if strings.Contains(out.String(), "Warnings") || strings.Contains(out.String(), "Errors") {
		t.Errorf("empty report should not list entries:\n%s", out.String())
	}
}

func TestEntryWithoutSubject(t *testing.T) {
	if got := (Entry{Message: "no meshes"}).String(); got != "no meshes" {
		t.Errorf("got %q", got)
	}
}
