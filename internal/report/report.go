// Package report accumulates the outcome of one export run.
package report

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
)

// Entry is one warning or error about a named scene item.
type Entry struct {
	Subject string
	Message string
}

func (e Entry) String() string {
	if e.Subject == "" {
		return e.Message
	}
	return e.Subject + ": " + e.Message
}

// Report collects counts, written files, warnings and errors. Recording
// an error never stops the run; callers decide what to skip.
type Report struct {
	Meshes     []string
	Skeletons  []string
	Materials  []string
	Animations int
	Vertices   int
	Triangles  int
	Files      []string
	Converted  []string

	Warnings []Entry
	Errors   []Entry

	log *zap.Logger
}

// New returns an empty report that mirrors entries to log.
func New(log *zap.Logger) *Report {
	if log == nil {
		log = zap.NewNop()
	}
	return &Report{log: log}
}

// Warn records a structural warning or a recovered data mismatch.
func (r *Report) Warn(subject, msg string) {
	r.Warnings = append(r.Warnings, Entry{Subject: subject, Message: msg})
	r.log.Warn(msg, zap.String("subject", subject))
}

// Warnf is Warn with formatting.
func (r *Report) Warnf(subject, format string, args ...any) {
	r.Warn(subject, fmt.Sprintf(format, args...))
}

// Fail records an error that made the run skip subject.
func (r *Report) Fail(subject string, err error) {
	r.Errors = append(r.Errors, Entry{Subject: subject, Message: err.Error()})
	r.log.Error("export failed", zap.String("subject", subject), zap.Error(err))
}

// AddFile records a written document.
func (r *Report) AddFile(path string) {
	r.Files = append(r.Files, path)
	r.log.Debug("wrote file", zap.String("path", path))
}

// OK reports whether the run finished without errors.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// WriteSummary prints a human-readable summary.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Meshes:     %d\n", len(r.Meshes))
	fmt.Fprintf(w, "Skeletons:  %d\n", len(r.Skeletons))
	fmt.Fprintf(w, "Materials:  %d\n", len(r.Materials))
	fmt.Fprintf(w, "Animations: %d\n", r.Animations)
	fmt.Fprintf(w, "Vertices:   %d\n", r.Vertices)
	fmt.Fprintf(w, "Triangles:  %d\n", r.Triangles)
	fmt.Fprintf(w, "Files:      %d written, %d converted\n", len(r.Files), len(r.Converted))

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(r.Warnings))
		for _, e := range sorted(r.Warnings) {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

// sorted groups warnings by subject, keeping arrival order within one.
func sorted(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Subject < out[j].Subject
	})
	return out
}
