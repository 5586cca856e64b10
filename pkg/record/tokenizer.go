package record

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jvmretrace/retrace/pkg/errors"
)

var (
	classHeaderRe = regexp.MustCompile(`^([\w.$]+) -> ([\w.$]+):\s*$`)
	headerKVRe    = regexp.MustCompile(`^([A-Za-z][\w.]*)\s*:\s*(.*)$`)
)

// annotationKinds maps the JSON "id" field of a mapping annotation to the
// short kind name used by Annotation.Kind. For IDs outside this table,
// Annotation.Kind is the raw id itself.
var annotationKinds = map[string]string{
	"sourceFile":                             "sourceFile",
	"com.android.tools.r8.synthesized":       "synthesized",
	"com.android.tools.r8.outline":           "outline",
	"com.android.tools.r8.outlineCallsite":   "outlineCallsite",
	"com.android.tools.r8.inline":            "inlineCaller",
	"com.android.tools.r8.inlineCallsite":    "inlineCaller",
}

// Tokenizer reads a mapping file one logical line at a time and yields one
// Record per line. It is strict about the member/class grammar and
// permissive about unknown annotations: malformed lines are skipped (with
// SkippedLines incremented) rather than aborting the scan. Each skip, and
// each malformed header, also appends an errors.MappingError to
// Diagnostics (spec §7's ParseError/InvalidHeader taxonomy) so callers can
// report what was dropped instead of only seeing a bare count.
type Tokenizer struct {
	scanner      *bufio.Scanner
	lineNo       int
	SkippedLines int
	Diagnostics  []*errors.MappingError
}

// NewTokenizer wraps r, accepting both "\n" and "\r\n" line endings.
func NewTokenizer(r io.Reader) *Tokenizer {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Tokenizer{scanner: s}
}

// Next returns the next Record, or io.EOF once the input is exhausted.
func (t *Tokenizer) Next() (Record, error) {
	for t.scanner.Scan() {
		t.lineNo++
		line := strings.TrimRight(t.scanner.Text(), "\r")
		rec, ok := t.classify(line)
		if !ok {
			t.SkippedLines++
			continue
		}
		return rec, nil
	}
	if err := t.scanner.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// All drains the tokenizer into a slice, for callers that don't need
// streaming (e.g. tests). KindIgnored records are left out of the result.
func (t *Tokenizer) All() ([]Record, error) {
	var out []Record
	for {
		rec, err := t.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if rec.Kind != KindIgnored {
			out = append(out, rec)
		}
	}
}

func (t *Tokenizer) classify(line string) (Record, bool) {
	if strings.TrimSpace(line) == "" {
		return Record{Kind: KindIgnored, Line: t.lineNo}, true
	}

	if strings.HasPrefix(line, "#") {
		return t.classifyComment(line), true
	}

	// Member lines are indented; class headers are not.
	if line[0] == ' ' || line[0] == '\t' {
		body := strings.TrimSpace(line)
		m, err := parseMemberLine(body)
		if err != nil {
			t.recordError(errors.ParseError, line, "malformed member mapping line: "+err.Error())
			return Record{}, false
		}
		return Record{Kind: KindMember, Line: t.lineNo, Member: m}, true
	}

	if m := classHeaderRe.FindStringSubmatch(line); m != nil {
		return Record{Kind: KindClass, Line: t.lineNo, Class: &Class{Original: m[1], Obfuscated: m[2]}}, true
	}

	// A non-indented line that isn't a valid class header is simply
	// malformed; skip it but keep scanning.
	t.recordError(errors.ParseError, line, "malformed class mapping header")
	return Record{}, false
}

func (t *Tokenizer) classifyComment(line string) Record {
	content := strings.TrimSpace(strings.TrimPrefix(line, "#"))

	if strings.HasPrefix(content, "{") {
		return Record{Kind: KindAnnotation, Line: t.lineNo, Annotation: parseAnnotation(content)}
	}

	if m := headerKVRe.FindStringSubmatch(content); m != nil {
		return Record{Kind: KindHeader, Line: t.lineNo, Header: &Header{Key: m[1], Value: m[2], Valid: true, Raw: line}}
	}

	t.recordError(errors.InvalidHeader, line, "malformed \"# key: value\" header")
	return Record{Kind: KindHeader, Line: t.lineNo, Header: &Header{Valid: false, Raw: line}}
}

// recordError appends a diagnostic for the current line. The tokenizer
// only ever sees one logical line at a time (no lookahead/lookbehind
// buffer), so the snippet it can attach is just that line with no
// surrounding context — callers that want a multi-line snippet can
// re-derive one from the mapping text with errors.NewMappingError.
func (t *Tokenizer) recordError(kind errors.Kind, line, message string) {
	t.Diagnostics = append(t.Diagnostics, &errors.MappingError{
		Kind:        kind,
		Message:     message,
		Line:        t.lineNo,
		SourceLines: []string{line},
	})
}

func parseAnnotation(content string) *Annotation {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return &Annotation{Kind: "unknown", Fields: map[string]string{"raw": content}, Raw: content}
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = stringify(v)
	}

	kind := "unknown"
	if id, ok := fields["id"]; ok {
		if k, known := annotationKinds[id]; known {
			kind = k
		} else {
			kind = id
		}
	}

	return &Annotation{Kind: kind, Fields: fields, Raw: content}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
