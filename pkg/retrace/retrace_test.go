package retrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmretrace/retrace/pkg/mapping"
	"github.com/jvmretrace/retrace/pkg/resolver"
)

func newRetracer(t *testing.T, text string) *Retracer {
	t.Helper()
	idx, err := mapping.Build(strings.NewReader(text))
	require.NoError(t, err)
	return New(idx, resolver.Config{})
}

// S1. Inlined frame expansion.
func TestScenarioS1InlinedFrameExpansion(t *testing.T) {
	rt := newRetracer(t, `com.example.Foo -> a.a:
    4:4:void bar():12:12 -> x
    4:4:void foo():20 -> x
`)
	out := rt.RemapStackTrace("at a.a.x(Foo.java:4)")
	assert.Equal(t, "at com.example.Foo.bar(Foo.java:12)\n"+
		"at com.example.Foo.foo(Foo.java:20)", out)
}

// S2. Overload by parameters, no line info.
func TestScenarioS2OverloadNoLineInfo(t *testing.T) {
	rt := newRetracer(t, `com.example.A -> A:
    void select(java.util.List) -> a
    5:8:void sync():10:13 -> a
    void cancel(java.lang.String[]) -> a
`)
	out := rt.RemapStackTrace("at A.a(Unknown Source)")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "at com.example.A.select(A.java)", lines[0])
	assert.Equal(t, "at com.example.A.sync(A.java)", lines[1])
	assert.Equal(t, "at com.example.A.cancel(A.java)", lines[2])
}

// S3. Line translation inside a range.
func TestScenarioS3LineTranslation(t *testing.T) {
	rt := newRetracer(t, `com.example.A -> a:
    10:20:void foo():100:110 -> a
`)
	matches := rt.RemapFrame(StackFrame{Class: "a", Method: "a", Line: 15})
	require.Len(t, matches, 1)
	assert.Equal(t, 105, matches[0].Line)
}

// S4. Suppressed throwable.
func TestScenarioS4SuppressedThrowable(t *testing.T) {
	rt := newRetracer(t, "com.example.Boom -> a.b.c:\n")
	out := rt.RemapStackTrace("Suppressed: a.b.c: timeout")
	assert.Equal(t, "Suppressed: com.example.Boom: timeout", out)
}

// S5. Windows path / colon in file.
func TestScenarioS5WindowsPathColonInFile(t *testing.T) {
	rt := newRetracer(t, `com.example.Foo -> a.s:
    1:100:void run() -> a
`)
	// RemapStackTrace ignores incoming file entirely; only the trailing
	// line number (split on the last colon) survives.
	out := rt.RemapStackTrace(`at a.s.a(C:\src\foo.kt:42)`)
	assert.Equal(t, "at com.example.Foo.run(Foo.java:42)", out)
}

// S6. Synthesized filtering.
func TestScenarioS6SynthesizedFiltering(t *testing.T) {
	rt := newRetracer(t, `com.example.Foo -> a:
    void externalSyntheticLambda0() -> run
# {"id":"com.android.tools.r8.synthesized"}
    void lambda$main$0() -> run
`)
	matches := rt.RemapFrame(StackFrame{Class: "a", Method: "run"})
	require.Len(t, matches, 1)
	assert.Equal(t, "lambda$main$0", matches[0].Method)
}

func TestRemapClassUnknownReturnsFalse(t *testing.T) {
	rt := newRetracer(t, "com.example.A -> a:\n")
	_, ok := rt.RemapClass("nope")
	assert.False(t, ok)
}

func TestRemapFrameUnknownClassReturnsUnchanged(t *testing.T) {
	rt := newRetracer(t, "com.example.A -> a:\n    void run() -> a\n")
	f := StackFrame{Class: "nope", Method: "a", Line: 1}
	out := rt.RemapFrame(f)
	require.Len(t, out, 1)
	assert.Equal(t, f, out[0])
}

func TestRemapMethod(t *testing.T) {
	rt := newRetracer(t, `com.example.Foo -> a.a:
    4:4:void bar():12:12 -> x
    4:4:void foo():20 -> x
`)
	matches := rt.RemapMethod("a.a", "x", 4)
	require.Len(t, matches, 2)
	assert.Equal(t, "bar", matches[0].OriginalMethod)
	assert.Equal(t, "foo", matches[1].OriginalMethod)
}

func TestCircularReferenceMarkerRemapped(t *testing.T) {
	rt := newRetracer(t, "com.example.Foo -> a:\n")
	out := rt.RemapStackTrace("[CIRCULAR REFERENCE: a]")
	assert.Equal(t, "[CIRCULAR REFERENCE: com.example.Foo]", out)
}

func TestCircularReferenceMarkerUnknownClassUnchanged(t *testing.T) {
	rt := newRetracer(t, "com.example.Foo -> a:\n")
	out := rt.RemapStackTrace("[CIRCULAR REFERENCE: nope]")
	assert.Equal(t, "[CIRCULAR REFERENCE: nope]", out)
}

func TestLogcatPrefixedFrameRemapped(t *testing.T) {
	rt := newRetracer(t, "com.example.Foo -> a.a:\n    void run() -> a\n")
	out := rt.RemapStackTrace("E/AndroidRuntime: at a.a.a(Unknown Source)")
	assert.Equal(t, "E/AndroidRuntime: at com.example.Foo.run(Foo.java)", out)
}

func TestModulePrefixedFrameRetainsPrefix(t *testing.T) {
	// A minified range with no original range: invariant 5's "original
	// line is the minified line" passthrough case, so line 829 survives.
	rt := newRetracer(t, "java.lang.Thread -> t:\n    1:10000:void run() -> a\n")
	out := rt.RemapStackTrace("at java.base/t.a(Thread.java:829)")
	assert.Equal(t, "at java.base/java.lang.Thread.run(Thread.java:829)", out)
}

func TestUnmatchedLinePassesThroughUnchanged(t *testing.T) {
	rt := newRetracer(t, "com.example.A -> a:\n")
	out := rt.RemapStackTrace("java.lang.Exception: boom")
	assert.Equal(t, "java.lang.Exception: boom", out)
}
