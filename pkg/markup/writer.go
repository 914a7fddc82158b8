// Package markup writes indented tag documents and brace-delimited scripts.
//
// Output is buffered until Flush so that placeholders written early in the
// document (such as a vertex count in a header) can be resolved once the
// real value is known.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrUnresolved is returned by Flush when a placeholder was never resolved.
var ErrUnresolved = errors.New("unresolved placeholder")

// Attr is a single tag attribute. Attributes keep the order they are given in.
type Attr struct {
	Key   string
	Value string
}

// A returns a string attribute.
func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// I returns an integer attribute.
func I(key string, value int) Attr {
	return Attr{Key: key, Value: strconv.Itoa(value)}
}

// F returns a float attribute formatted with six decimals.
func F(key string, value float32) Attr {
	return Attr{Key: key, Value: Float(value)}
}

// B returns a boolean attribute ("true"/"false").
func B(key string, value bool) Attr {
	return Attr{Key: key, Value: strconv.FormatBool(value)}
}

// Float formats a number the way every document in this module does.
func Float(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', 6, 32)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}

var attrEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	"\n", "&#10;",
)

// Writer is an indentation-aware document writer. The first error is sticky.
type Writer struct {
	out    io.Writer
	buf    bytes.Buffer
	indent string
	depth  int
	open   []string

	placeholders map[string]string
	resolved     map[string]string
}

// NewWriter returns a writer indenting with tabs.
func NewWriter(out io.Writer) *Writer {
	return NewWriterIndent(out, "\t")
}

// NewWriterIndent returns a writer using the given indent unit.
func NewWriterIndent(out io.Writer, indent string) *Writer {
	return &Writer{
		out:          out,
		indent:       indent,
		placeholders: make(map[string]string),
		resolved:     make(map[string]string),
	}
}

// Depth returns the current nesting depth.
func (w *Writer) Depth() int {
	return w.depth
}

func (w *Writer) fillIndent() {
	for i := 0; i < w.depth; i++ {
		w.buf.WriteString(w.indent)
	}
}

func (w *Writer) writeAttrs(attrs []Attr) {
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.Key)
		w.buf.WriteString(`="`)
		w.buf.WriteString(attrEscaper.Replace(a.Value))
		w.buf.WriteByte('"')
	}
}

// Declaration writes an XML declaration line.
func (w *Writer) Declaration() {
	w.buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
}

// StartTag opens a tag and increases the depth.
func (w *Writer) StartTag(name string, attrs ...Attr) {
	w.fillIndent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.writeAttrs(attrs)
	w.buf.WriteString(">\n")
	w.open = append(w.open, name)
	w.depth++
}

// LeafTag writes a self-closing tag.
func (w *Writer) LeafTag(name string, attrs ...Attr) {
	w.fillIndent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.writeAttrs(attrs)
	w.buf.WriteString(" />\n")
}

// EndTag closes the innermost tag, which must be name.
func (w *Writer) EndTag(name string) {
	if len(w.open) == 0 {
		panic(fmt.Sprintf("markup: EndTag(%q) with no open tag", name))
	}
	top := w.open[len(w.open)-1]
	if top != name {
		panic(fmt.Sprintf("markup: EndTag(%q) while %q is open", name, top))
	}
	w.open = w.open[:len(w.open)-1]
	w.depth--
	w.fillIndent()
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteString(">\n")
}

// Line writes one indented script line built from words separated by
// spaces. Empty words are skipped.
func (w *Writer) Line(words ...string) {
	w.fillIndent()
	first := true
	for _, word := range words {
		if word == "" {
			continue
		}
		if !first {
			w.buf.WriteByte(' ')
		}
		w.buf.WriteString(word)
		first = false
	}
	w.buf.WriteByte('\n')
}

// Open writes a block header followed by an opening brace on its own line.
func (w *Writer) Open(words ...string) {
	w.Line(words...)
	w.fillIndent()
	w.buf.WriteString("{\n")
	w.open = append(w.open, "{")
	w.depth++
}

// Close closes the innermost brace block.
func (w *Writer) Close() {
	if len(w.open) == 0 || w.open[len(w.open)-1] != "{" {
		panic("markup: Close without an open block")
	}
	w.open = w.open[:len(w.open)-1]
	w.depth--
	w.fillIndent()
	w.buf.WriteString("}\n")
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.buf.WriteByte('\n')
}

// Placeholder returns a token to be written in place of a value that is
// not known yet. The token is replaced by Resolve's value on Flush.
func (w *Writer) Placeholder(key string) string {
	tok, ok := w.placeholders[key]
	if !ok {
		tok = "___" + key + "___"
		w.placeholders[key] = tok
	}
	return tok
}

// Resolve sets the final value of a placeholder.
func (w *Writer) Resolve(key, value string) {
	w.resolved[key] = value
}

// Flush patches placeholders and writes the document to the underlying writer.
func (w *Writer) Flush() error {
	if len(w.open) != 0 {
		return fmt.Errorf("markup: %d unclosed element(s), innermost %q", len(w.open), w.open[len(w.open)-1])
	}
	data := w.buf.Bytes()
	for key, tok := range w.placeholders {
		value, ok := w.resolved[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnresolved, key)
		}
		data = bytes.ReplaceAll(data, []byte(tok), []byte(value))
	}
	_, err := w.out.Write(data)
	w.buf.Reset()
	return err
}
