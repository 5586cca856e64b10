// Package errors implements the retracer's error taxonomy (ParseError,
// InvalidHeader, InvalidRange, NotFound, CacheVersionMismatch) plus
// rustc-style source-snippet diagnostics for the mapping-file cases.
package errors

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind is the error taxonomy named in the retracer's error handling design.
type Kind int

const (
	// ParseError is a malformed member or class header line. The record is
	// skipped and parsing continues.
	ParseError Kind = iota
	// InvalidHeader is a malformed "# key: value" line. The header is
	// ignored and parsing continues.
	InvalidHeader
	// InvalidRange is minStart > minEnd or origStart > origEnd. The range
	// is normalised (swapped) and the member is kept.
	InvalidRange
	// NotFound is a lookup for an obfuscated class/member with no entry.
	NotFound
	// CacheVersionMismatch is a binary cache whose version byte this
	// build doesn't recognise. The caller must re-parse the mapping text.
	CacheVersionMismatch
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case InvalidHeader:
		return "InvalidHeader"
	case InvalidRange:
		return "InvalidRange"
	case NotFound:
		return "NotFound"
	case CacheVersionMismatch:
		return "CacheVersionMismatch"
	default:
		return "UnknownError"
	}
}

// MappingError is a diagnostic attached to one line of a mapping file,
// optionally carrying a source snippet the same way the teacher's
// EnhancedError attached one to a Go token.Position — here keyed by a plain
// line number, since this module has no Go-AST-aware caller.
type MappingError struct {
	Kind    Kind
	Message string
	Line    int // 1-indexed; 0 if not tied to a specific line

	SourceLines   []string // lines to display (with context)
	HighlightLine int      // index within SourceLines of the offending line
}

// NewMappingError builds a MappingError for line (1-indexed) within the
// full mapping text split into lines, with up to two lines of surrounding
// context on each side.
func NewMappingError(kind Kind, allLines []string, line int, message string) *MappingError {
	e := &MappingError{Kind: kind, Message: message, Line: line}

	snippet, highlight, ok := extractContext(allLines, line, 2)
	if ok {
		e.SourceLines = snippet
		e.HighlightLine = highlight
	}
	return e
}

// Error implements the error interface.
func (e *MappingError) Error() string { return e.Format() }

// Format produces a rustc-style diagnostic: a header naming the kind and
// line, then a source snippet with the offending line marked.
func (e *MappingError) Format() string {
	var buf strings.Builder

	if e.Line > 0 {
		fmt.Fprintf(&buf, "%s: %s (line %d)\n\n", e.Kind, e.Message, e.Line)
	} else {
		fmt.Fprintf(&buf, "%s: %s\n\n", e.Kind, e.Message)
	}

	if len(e.SourceLines) == 0 {
		return buf.String()
	}

	startLine := e.Line - e.HighlightLine
	for i, line := range e.SourceLines {
		lineNum := startLine + i
		marker := " "
		if i == e.HighlightLine {
			marker = ">"
		}
		fmt.Fprintf(&buf, "%s %4d | %s\n", marker, lineNum, line)
	}

	return buf.String()
}

// extractContext returns the lines surrounding targetLine (1-indexed),
// plus the index of targetLine within the returned slice.
func extractContext(allLines []string, targetLine, contextLines int) ([]string, int, bool) {
	targetIdx := targetLine - 1
	if targetIdx < 0 || targetIdx >= len(allLines) {
		return nil, 0, false
	}

	start := targetIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := targetIdx + contextLines + 1
	if end > len(allLines) {
		end = len(allLines)
	}

	return allLines[start:end], targetIdx - start, true
}

// TruncateForDiagnostic trims an offending line to a safe display width,
// respecting UTF-8 rune boundaries, so a pathologically long mapping line
// doesn't blow out terminal output.
func TruncateForDiagnostic(line string, maxRunes int) string {
	if utf8.RuneCountInString(line) <= maxRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:maxRunes]) + "…"
}
