package retrace

import (
	"github.com/jvmretrace/retrace/pkg/mapping"
	"github.com/jvmretrace/retrace/pkg/resolver"
)

// Retracer is the public entry point: a MappingIndex plus a Resolver over
// it, exposing the operations named in spec §6.
type Retracer struct {
	idx *mapping.MappingIndex
	res *resolver.Resolver
}

// New builds a Retracer over an already-built MappingIndex.
func New(idx *mapping.MappingIndex, cfg resolver.Config) *Retracer {
	return &Retracer{idx: idx, res: resolver.New(idx, cfg)}
}

// RemapClass returns the original class name for an obfuscated one, if
// known.
func (rt *Retracer) RemapClass(obfuscated string) (string, bool) {
	cls, ok := rt.idx.Class(obfuscated)
	if !ok {
		return "", false
	}
	return cls.Original, true
}

// RemapThrowable is RemapClass under the name spec §6 uses for the
// throwable-header case; the lookup is identical either way.
func (rt *Retracer) RemapThrowable(obfuscated string) (string, bool) {
	return rt.RemapClass(obfuscated)
}

// RemapFrame resolves one StackFrame into the ordered list of original
// frames (spec §4.3), including inline-chain expansion. An unresolvable
// frame is returned unchanged as the sole element.
func (rt *Retracer) RemapFrame(f StackFrame) []StackFrame {
	matches := rt.res.Resolve(f.Class, f.Method, f.Line, f.Parameters)
	if len(matches) == 0 {
		return []StackFrame{f}
	}

	var out []StackFrame
	for _, m := range matches {
		for _, flat := range flattenChain(m) {
			out = append(out, rt.frameFromMatch(flat))
		}
	}
	return out
}

// RemapMethod resolves (class_obf, method_obf, line) to the ordered list of
// original (class, method) pairs, without building full StackFrames.
func (rt *Retracer) RemapMethod(classObf, methodObf string, line int) []MethodMatch {
	matches := rt.res.Resolve(classObf, methodObf, line, nil)
	var out []MethodMatch
	for _, m := range matches {
		for _, flat := range flattenChain(m) {
			out = append(out, MethodMatch{OriginalClass: flat.OriginalClass, OriginalMethod: flat.OriginalMethod})
		}
	}
	return out
}

// UUID returns the mapping's derived identifier.
func (rt *Retracer) UUID() [16]byte { return rt.idx.UUID() }

// HasLineInfo reports whether the mapping carries any line-range info.
func (rt *Retracer) HasLineInfo() bool { return rt.idx.HasLineInfo() }

// Summary reports coarse statistics about the underlying mapping.
func (rt *Retracer) Summary() mapping.Summary { return rt.idx.Summary() }

// flattenChain turns a resolver.MemberMatch (head + outermost-first
// Callers) into the innermost-first emission order spec §4.2 step 6 and
// §4.3 require: the head first, then each caller from nearest to furthest.
func flattenChain(m resolver.MemberMatch) []resolver.MemberMatch {
	out := make([]resolver.MemberMatch, 0, 1+len(m.Callers))
	out = append(out, m)
	for i := len(m.Callers) - 1; i >= 0; i-- {
		out = append(out, m.Callers[i])
	}
	return out
}

// frameFromMatch applies spec §4.3's file/line/synthesized projection for
// one flattened chain element.
func (rt *Retracer) frameFromMatch(m resolver.MemberMatch) StackFrame {
	return StackFrame{
		Class:             m.OriginalClass,
		Method:            m.OriginalMethod,
		File:              rt.sourceFileFor(m),
		Line:              m.OriginalLine,
		MethodSynthesized: m.Synthesized,
	}
}

// sourceFileFor implements the three-way fallback in spec §4.3: the
// match's own original_file, else the owning class's original_source_file
// (found by reverse lookup, since an inlined caller's class may differ from
// the frame's original obfuscated class), else a synthesized name.
func (rt *Retracer) sourceFileFor(m resolver.MemberMatch) string {
	if m.OriginalFile != "" {
		return m.OriginalFile
	}
	for _, obf := range rt.idx.ObfuscatedNamesFor(m.OriginalClass) {
		if cls, ok := rt.idx.Class(obf); ok {
			return cls.SourceFile()
		}
	}
	return mapping.SimpleName(m.OriginalClass) + ".java"
}
