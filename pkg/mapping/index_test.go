package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, text string) *MappingIndex {
	t.Helper()
	mi, err := Build(strings.NewReader(text))
	require.NoError(t, err)
	return mi
}

func TestBuildClassAndMemberLookup(t *testing.T) {
	mi := build(t, `com.example.Foo -> a.a:
    void bar() -> b
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)
	assert.Equal(t, "com.example.Foo", cls.Original)

	members := cls.Members("b")
	require.Len(t, members, 1)
	assert.Equal(t, "bar", members[0].Original)

	assert.Equal(t, []string{"a.a"}, mi.ObfuscatedNamesFor("com.example.Foo"))
}

func TestBuildInlineChainLinking(t *testing.T) {
	mi := build(t, `com.example.Foo -> a.a:
    4:4:void bar():12:12 -> x
    4:4:void foo():20 -> x
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)

	members := cls.Members("x")
	require.Len(t, members, 1, "foo should be linked as bar's caller, not a second top-level candidate")

	bar := members[0]
	assert.Equal(t, "bar", bar.Original)
	require.NotNil(t, bar.Caller)
	assert.Equal(t, "foo", bar.Caller.Original)

	chain := bar.Chain()
	require.Len(t, chain, 2)
	assert.Equal(t, "bar", chain[0].Original)
	assert.Equal(t, "foo", chain[1].Original)
}

func TestBuildOverloadsStayDistinctCandidates(t *testing.T) {
	mi := build(t, `com.example.A -> A:
    void select(java.util.List) -> a
    5:8:void sync():10:13 -> a
    void cancel(java.lang.String[]) -> a
`)
	cls, ok := mi.Class("A")
	require.True(t, ok)

	members := cls.Members("a")
	require.Len(t, members, 3)
	assert.Equal(t, "select", members[0].Original)
	assert.Equal(t, "sync", members[1].Original)
	assert.Equal(t, "cancel", members[2].Original)
}

func TestSourceFileFallsBackToSimpleName(t *testing.T) {
	mi := build(t, `com.example.Foo$Inner -> a.a:
    void bar() -> b
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)
	assert.Equal(t, "Foo.java", cls.SourceFile())
}

func TestSourceFileAnnotationOverride(t *testing.T) {
	mi := build(t, `com.example.Foo -> a.a:
# {"id":"sourceFile","fileName":"Foo.kt"}
    void bar() -> b
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)
	assert.Equal(t, "Foo.kt", cls.SourceFile())
}

func TestClassSynthesizedAnnotation(t *testing.T) {
	mi := build(t, `com.example.Foo$$Lambda -> a.a:
# {"id":"com.android.tools.r8.synthesized"}
    void run() -> a
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)
	assert.True(t, cls.Synthesized)
}

func TestMemberSynthesizedAnnotationDoesNotMarkClass(t *testing.T) {
	mi := build(t, `com.example.Foo -> a.a:
    void run() -> a
# {"id":"com.android.tools.r8.synthesized"}
`)
	cls, ok := mi.Class("a.a")
	require.True(t, ok)
	assert.False(t, cls.Synthesized)

	members := cls.Members("a")
	require.Len(t, members, 1)
	assert.True(t, members[0].Synthesized)
}

func TestSummaryCounts(t *testing.T) {
	mi := build(t, `com.example.A -> A:
    void one() -> a
    void two() -> b
com.example.B -> B:
    void three() -> a
`)
	s := mi.Summary()
	assert.Equal(t, 2, s.ClassCount)
	assert.Equal(t, 3, s.MethodCount)
}

func TestHasLineInfo(t *testing.T) {
	withLines := build(t, `com.example.A -> A:
    4:4:void bar():12:12 -> b
`)
	assert.True(t, withLines.HasLineInfo())

	withoutLines := build(t, `com.example.A -> A:
    void bar() -> b
`)
	assert.False(t, withoutLines.HasLineInfo())
}

func TestUUIDDeterministicAndContentSensitive(t *testing.T) {
	text := "com.example.A -> A:\n    void bar() -> b\n"
	mi1 := build(t, text)
	mi2 := build(t, text)
	assert.Equal(t, mi1.UUID(), mi2.UUID())

	other := build(t, "com.example.A -> A:\n    void baz() -> b\n")
	assert.NotEqual(t, mi1.UUID(), other.UUID())
}

func TestUUIDPrefersMapIDHeader(t *testing.T) {
	text1 := "# pg_map_id: deadbeef\ncom.example.A -> A:\n    void bar() -> b\n"
	text2 := "# pg_map_id: deadbeef\ncom.example.A -> A:\n    void completely_different() -> b\n"
	assert.Equal(t, build(t, text1).UUID(), build(t, text2).UUID())
}

func TestSkippedLinesCounted(t *testing.T) {
	mi := build(t, "com.example.A -> A:\n    ???broken??? \n    void ok() -> a\n")
	assert.Equal(t, 1, mi.Summary().SkippedLines)
}
