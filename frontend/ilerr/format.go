package ilerr

import (
	"bytes"
	"fmt"
	"go/token"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	codeColor  = color.New(color.FgRed, color.Bold)
	caretColor = color.New(color.FgRed)
	posColor   = color.New(color.Bold)
)

// Source is a compiled source file, which errors can point into
type Source interface {
	FileSet() *token.FileSet
	Source() []byte
}

// FormatWithCodeAndSource formats e like FormatWithCode, prefixed with its
// position, and followed by the offending line of src with the span of e
// underlined. Colors are used unless color.NoColor is set.
func FormatWithCodeAndSource(e IleError, src Source) string {
	if src == nil || src.FileSet() == nil || !e.Pos().IsValid() {
		return FormatWithCode(e)
	}
	fset := src.FileSet()
	start := fset.Position(e.Pos())
	var sb strings.Builder
	sb.WriteString(posColor.Sprintf("%s:", start))
	sb.WriteString(" ")
	sb.WriteString(codeColor.Sprintf("(E%03d)", e.Code()))
	sb.WriteString(" ")
	sb.WriteString(e.Error())

	line, ok := lineAt(src.Source(), start.Line)
	if !ok {
		return sb.String()
	}
	width := 1
	if end := e.End(); end.IsValid() && end > e.Pos() {
		endPos := fset.Position(end)
		if endPos.Line == start.Line {
			width = max(1, runewidth.StringWidth(sliceBytes(line, start.Column-1, endPos.Column-1)))
		} else {
			width = max(1, runewidth.StringWidth(sliceBytes(line, start.Column-1, len(line))))
		}
	}
	gutter := fmt.Sprintf("%4d | ", start.Line)
	sb.WriteString("\n")
	sb.WriteString(gutter)
	sb.WriteString(strings.ReplaceAll(line, "\t", " "))
	sb.WriteString("\n")
	// the caret is aligned on display columns, not bytes
	indent := runewidth.StringWidth(sliceBytes(line, 0, start.Column-1))
	sb.WriteString(strings.Repeat(" ", len(gutter)+indent))
	sb.WriteString(caretColor.Sprint("^" + strings.Repeat("~", width-1)))
	return sb.String()
}

// lineAt returns the 1-based line n of src, without its line ending
func lineAt(src []byte, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	for i := 1; i < n; i++ {
		idx := bytes.IndexByte(src, '\n')
		if idx < 0 {
			return "", false
		}
		src = src[idx+1:]
	}
	if idx := bytes.IndexByte(src, '\n'); idx >= 0 {
		src = src[:idx]
	}
	return strings.TrimRight(string(src), "\r"), true
}

func sliceBytes(s string, from, to int) string {
	from = min(max(from, 0), len(s))
	to = min(max(to, from), len(s))
	return s[from:to]
}
