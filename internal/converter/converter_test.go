package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/ogrexport/internal/config"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not available")
	}
	path := filepath.Join(t.TempDir(), "convert.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertNotConfigured(t *testing.T) {
	c := New(config.ConverterConfig{}, nil)
	if c.Enabled() {
		t.Error("converter without a path should be disabled")
	}
	if _, err := c.Convert(context.Background(), "a.mesh.xml"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestConvertSuccess(t *testing.T) {
	dir := t.TempDir()
	bin := script(t, `echo "$1 $2" > "`+filepath.Join(dir, "args")+`"`)
	c := New(config.ConverterConfig{Path: bin, Args: []string{"-q"}}, nil)

	out, err := c.Convert(context.Background(), "cube.mesh.xml")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out != "cube.mesh" {
		t.Errorf("output: got %q, want cube.mesh", out)
	}
	got, err := os.ReadFile(filepath.Join(dir, "args"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != "-q cube.mesh.xml" {
		t.Errorf("arguments: got %q", got)
	}
}

func TestConvertExitStatus(t *testing.T) {
	bin := script(t, "echo 'bad vertex count' >&2\nexit 3")
	c := New(config.ConverterConfig{Path: bin}, nil)

	_, err := c.Convert(context.Background(), "cube.mesh.xml")
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("got %v, want ErrFailed", err)
	}
	if !strings.Contains(err.Error(), "bad vertex count") {
		t.Errorf("error should carry the converter output: %v", err)
	}
}

func TestConvertTimeout(t *testing.T) {
	bin := script(t, "exec sleep 5")
	c := New(config.ConverterConfig{Path: bin, Timeout: 50 * time.Millisecond}, nil)

	_, err := c.Convert(context.Background(), "cube.skeleton.xml")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a.mesh.xml", "a.mesh"},
		{"dir/b.skeleton.xml", "dir/b.skeleton"},
		{"c.material", "c.material"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
