// Package converter runs the external tool that turns the XML documents
// into binary engine files.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/config"
)

var (
	// ErrNotConfigured is returned when no converter path is set.
	ErrNotConfigured = errors.New("converter not configured")
	// ErrFailed is returned when the converter exits with a non-zero status.
	ErrFailed = errors.New("converter failed")
)

// Converter invokes the configured binary once per document.
type Converter struct {
	path    string
	args    []string
	timeout time.Duration
	log     *zap.Logger
}

// New creates a converter from configuration.
func New(cfg config.ConverterConfig, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		path:    cfg.Path,
		args:    cfg.Args,
		timeout: cfg.Timeout,
		log:     log.Named("converter"),
	}
}

// Enabled reports whether a converter binary is configured.
func (c *Converter) Enabled() bool {
	return c.path != ""
}

// OutputPath returns the binary file name the converter writes for an
// XML document: "a.mesh.xml" becomes "a.mesh".
func OutputPath(input string) string {
	return strings.TrimSuffix(input, ".xml")
}

// Convert runs the converter on input and blocks until it exits. The exit
// status alone decides success.
func (c *Converter) Convert(ctx context.Context, input string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output := OutputPath(input)
	args := append(append([]string{}, c.args...), input, output)
	cmd := exec.CommandContext(ctx, c.path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	c.log.Debug("converter finished",
		zap.String("input", input),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFailed, input, ctx.Err())
		}
		return "", fmt.Errorf("%w: %s: %v: %s", ErrFailed, input, err, lastLine(out.String()))
	}
	return output, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
