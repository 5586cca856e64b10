package errors

import (
	"strings"
	"testing"
)

func TestNewMappingError(t *testing.T) {
	lines := []string{
		"com.example.Foo -> a.a:",
		"    4:4:void bar():12:12 -> x",
		"    ???broken???",
		"    void ok() -> a",
	}

	err := NewMappingError(ParseError, lines, 3, "unrecognised member syntax")

	if err.Message != "unrecognised member syntax" {
		t.Errorf("Expected message to be preserved, got %q", err.Message)
	}
	if err.Line != 3 {
		t.Errorf("Expected line 3, got %d", err.Line)
	}
	if len(err.SourceLines) == 0 {
		t.Error("Expected source lines to be extracted")
	}
	if err.HighlightLine < 0 || err.HighlightLine >= len(err.SourceLines) {
		t.Errorf("Invalid highlight line %d (total lines: %d)", err.HighlightLine, len(err.SourceLines))
	}
}

func TestMappingErrorFormat(t *testing.T) {
	lines := []string{
		"com.example.Foo -> a.a:",
		"    ???broken???",
		"    void ok() -> a",
	}
	err := NewMappingError(ParseError, lines, 2, "unrecognised member syntax")
	formatted := err.Format()

	expected := []string{
		"ParseError: unrecognised member syntax (line 2)",
		"???broken???",
	}
	for _, exp := range expected {
		if !strings.Contains(formatted, exp) {
			t.Errorf("Expected formatted error to contain %q\nGot:\n%s", exp, formatted)
		}
	}
}

func TestExtractContext(t *testing.T) {
	lines := []string{"line 1", "line 2", "line 3", "line 4", "line 5", "line 6", "line 7"}

	tests := []struct {
		name          string
		targetLine    int
		contextLines  int
		expectedLines []string
		expectedIdx   int
	}{
		{
			name:          "middle line with 2 context",
			targetLine:    4,
			contextLines:  2,
			expectedLines: []string{"line 2", "line 3", "line 4", "line 5", "line 6"},
			expectedIdx:   2,
		},
		{
			name:          "first line with 2 context",
			targetLine:    1,
			contextLines:  2,
			expectedLines: []string{"line 1", "line 2", "line 3"},
			expectedIdx:   0,
		},
		{
			name:          "last line with 2 context",
			targetLine:    7,
			contextLines:  2,
			expectedLines: []string{"line 5", "line 6", "line 7"},
			expectedIdx:   2,
		},
		{
			name:          "no context",
			targetLine:    4,
			contextLines:  0,
			expectedLines: []string{"line 4"},
			expectedIdx:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, idx, ok := extractContext(lines, tt.targetLine, tt.contextLines)
			if !ok {
				t.Fatalf("extractContext failed unexpectedly")
			}
			if len(got) != len(tt.expectedLines) {
				t.Fatalf("Expected %d lines, got %d", len(tt.expectedLines), len(got))
			}
			for i, expected := range tt.expectedLines {
				if got[i] != expected {
					t.Errorf("Line %d: expected %q, got %q", i, expected, got[i])
				}
			}
			if idx != tt.expectedIdx {
				t.Errorf("Expected highlight index %d, got %d", tt.expectedIdx, idx)
			}
		})
	}
}

func TestExtractContextOutOfRange(t *testing.T) {
	lines := []string{"only line"}
	if _, _, ok := extractContext(lines, 5, 2); ok {
		t.Error("Expected ok=false for out-of-range target line")
	}
}

func TestMappingErrorWithoutLine(t *testing.T) {
	err := NewMappingError(NotFound, nil, 0, "no entry for obfuscated class")
	formatted := err.Format()
	if !strings.Contains(formatted, "NotFound: no entry for obfuscated class") {
		t.Errorf("Expected message in formatted output, got:\n%s", formatted)
	}
	if strings.Contains(formatted, "line") {
		t.Errorf("Expected no line reference when Line is 0, got:\n%s", formatted)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{ParseError, "ParseError"},
		{InvalidHeader, "InvalidHeader"},
		{InvalidRange, "InvalidRange"},
		{NotFound, "NotFound"},
		{CacheVersionMismatch, "CacheVersionMismatch"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestTruncateForDiagnostic(t *testing.T) {
	short := "short line"
	if got := TruncateForDiagnostic(short, 80); got != short {
		t.Errorf("Expected short line unchanged, got %q", got)
	}

	long := strings.Repeat("x", 100)
	got := TruncateForDiagnostic(long, 10)
	if len([]rune(got)) != 11 { // 10 runes plus the ellipsis
		t.Errorf("Expected truncated length 11, got %d (%q)", len([]rune(got)), got)
	}
}
