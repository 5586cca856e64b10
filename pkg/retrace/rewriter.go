package retrace

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// This file implements the stack-trace rewriter (spec §4.4): one compiled
// regexp per line shape, tried in a fixed order, first match wins; a line
// that matches none is passed through unchanged.

var (
	// "Caused by: " / "Suppressed: " / nothing, then a dotted class name,
	// then ": ", then a free-form message.
	throwableRe = regexp.MustCompile(`^(Caused by: |Suppressed: )?([A-Za-z_$][\w.$]*): (.*)$`)

	// Leading whitespace, "at ", an optional loader/module prefix (Java
	// 9+), a dotted class.method, and a parenthesised file-spec.
	frameRe = regexp.MustCompile(`^(\s*)at ((?:[\w.\-]+/)?(?:[\w.\-]+(?:@[\w.\-]+)?/)?)([\w$]+(?:\.[\w$]+)*)\.([\w$<>]+)\((.*)\)\s*$`)

	// A tag/prefix (e.g. "E/AndroidRuntime: ") followed by an embedded
	// "at ..." frame payload.
	logcatRe = regexp.MustCompile(`^(.*?:\s*)(at\s+.*\(.*\))\s*$`)

	circularRe = regexp.MustCompile(`^\[CIRCULAR REFERENCE: ([A-Za-z_$][\w.$]*)\]$`)
)

var filePlaceholders = map[string]bool{
	"":               true,
	"Unknown Source": true,
	"Native Method":  true,
	"Unknown":        true,
	"PG":             true,
}

// RemapStackTrace rewrites an entire stack trace, line by line (spec §4.4).
func (rt *Retracer) RemapStackTrace(text string) string {
	var out strings.Builder
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	first := true
	for sc.Scan() {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		out.WriteString(rt.rewriteLine(sc.Text()))
	}
	return out.String()
}

func (rt *Retracer) rewriteLine(line string) string {
	if m := circularRe.FindStringSubmatch(line); m != nil {
		return rt.rewriteCircularReference(m[1])
	}
	if m := throwableRe.FindStringSubmatch(line); m != nil {
		return rt.rewriteThrowableHeader(m[1], m[2], m[3])
	}
	if rewritten, ok := rt.rewriteFrameLine(line); ok {
		return rewritten
	}
	if m := logcatRe.FindStringSubmatch(line); m != nil {
		if rewritten, ok := rt.rewriteFrameLine(m[2]); ok {
			return prefixEachLine(m[1], rewritten)
		}
	}
	return line
}

func (rt *Retracer) rewriteCircularReference(classObf string) string {
	original, ok := rt.RemapClass(classObf)
	if !ok {
		return "[CIRCULAR REFERENCE: " + classObf + "]"
	}
	return "[CIRCULAR REFERENCE: " + original + "]"
}

func (rt *Retracer) rewriteThrowableHeader(prefix, classObf, message string) string {
	original, ok := rt.RemapClass(classObf)
	if !ok {
		original = classObf
	}
	return prefix + original + ": " + message
}

// rewriteFrameLine matches and rewrites a single "at class.method(...)"
// line (with optional leading whitespace and module prefix), returning
// ok=false if the line isn't shaped like a frame at all.
func (rt *Retracer) rewriteFrameLine(line string) (string, bool) {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	indent, modulePrefix, class, method, fileSpec := m[1], m[2], m[3], m[4], m[5]

	frame := StackFrame{Class: class, Method: method, Line: parseFrameLine(fileSpec)}
	remapped := rt.RemapFrame(frame)

	lines := make([]string, len(remapped))
	for i, f := range remapped {
		lines[i] = indent + "at " + modulePrefix + f.Class + "." + f.Method + "(" + fileRef(f) + ")"
	}
	return strings.Join(lines, "\n"), true
}

func fileRef(f StackFrame) string {
	if f.Line <= 0 {
		return f.File
	}
	return f.File + ":" + strconv.Itoa(f.Line)
}

// parseFrameLine extracts the line number from a file-spec (spec §4.4 item
// 2). The incoming file text itself is discarded: RemapFrame always
// produces the mapping-derived file, so only the trailing line number
// matters here. Every documented file-spec shape (plain file:line,
// Windows paths with embedded colons, the leading-colon "(:line)" form,
// and "(PG:line)") reduces to "split on the last colon, parse the
// suffix as a line number, default to 0 if that fails or there is no
// colon at all".
func parseFrameLine(spec string) int {
	if filePlaceholders[spec] {
		return 0
	}
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(spec[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// prefixEachLine re-attaches a logcat tag prefix to every output line
// produced by an inline-expanded frame, so multi-frame expansions still
// read as being inside the same tagged log entry.
func prefixEachLine(prefix, rewritten string) string {
	lines := strings.Split(rewritten, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
