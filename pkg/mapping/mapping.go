// Package mapping holds the in-memory data model derived from a parsed
// ProGuard/R8 mapping file: ClassMapping, MemberMapping and the
// MappingIndex that folds a record.Record stream into them. Once built, a
// MappingIndex is immutable and safe for concurrent reads — there are no
// locks because there is nothing to protect.
package mapping

import "strings"

// ClassMapping is one "<original> -> <obfuscated>:" block plus its member
// mappings, keyed by obfuscated member name with insertion order preserved
// (insertion order is the tie-break for ambiguous resolver results).
type ClassMapping struct {
	Obfuscated          string
	Original            string
	OriginalSourceFile  string // from a sourceFile annotation, else empty (see SourceFile)
	Synthesized         bool

	members     map[string][]*MemberMapping
	memberOrder []string // obfuscated names, in first-seen order
}

func newClassMapping(obfuscated, original string) *ClassMapping {
	return &ClassMapping{
		Obfuscated: obfuscated,
		Original:   original,
		members:    make(map[string][]*MemberMapping),
	}
}

// Members returns the ordered list of MemberMappings for an obfuscated
// member name, or nil if there are none.
func (c *ClassMapping) Members(obfuscatedName string) []*MemberMapping {
	return c.members[obfuscatedName]
}

// MemberNames returns every obfuscated member name under this class, in
// first-seen (mapping-file) order.
func (c *ClassMapping) MemberNames() []string {
	return c.memberOrder
}

// MemberCount returns the number of top-level MemberMapping entries under
// this class, across all obfuscated names. Inline-chain callers, reachable
// only through a MemberMapping's Caller link, are not counted.
func (c *ClassMapping) MemberCount() int {
	n := 0
	for _, ms := range c.members {
		n += len(ms)
	}
	return n
}

func (c *ClassMapping) append(m *MemberMapping) {
	name := m.Obfuscated
	if _, ok := c.members[name]; !ok {
		c.memberOrder = append(c.memberOrder, name)
	}
	c.members[name] = append(c.members[name], m)
}

// SimpleName returns the last dot-separated component of the original
// class name, used to synthesize a source file name ("Foo" from
// "com.example.Foo", or from "com.example.Foo$Inner" the part before '$').
func (c *ClassMapping) SimpleName() string {
	return SimpleName(c.Original)
}

// SimpleName extracts the simple (unqualified, outer-class-only) name from
// a dotted original class name: the part after the last '.' and before any
// '$' inner-class suffix. Exported so callers outside this package (the
// frame remapper, synthesizing a file name for an inlined caller from
// another class) can apply the same rule without a ClassMapping in hand.
func SimpleName(original string) string {
	name := original
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '$'); i >= 0 {
		name = name[:i]
	}
	return name
}

// SourceFile returns the class's effective original source file: the
// explicit OriginalSourceFile if set, otherwise a name synthesized from the
// simple class name plus ".java" (invariant 6 in the spec).
func (c *ClassMapping) SourceFile() string {
	if c.OriginalSourceFile != "" {
		return c.OriginalSourceFile
	}
	return c.SimpleName() + ".java"
}

// MemberMapping is one member-mapping line under a ClassMapping. Multiple
// MemberMappings may share the same Obfuscated name — that is how
// overloads and line-range splits are represented — and a chain of them
// (linked via Caller) represents compiler inlining, innermost first.
type MemberMapping struct {
	Obfuscated string
	Original   string
	ReturnType string
	Parameters []string

	// OriginalClass is the class this member is declared on. It equals the
	// enclosing ClassMapping's Original for ordinary members, and differs
	// for inlined callers reconstructed from another class.
	OriginalClass string
	// OriginalFile overrides the enclosing ClassMapping's source file for
	// this member specifically (from a sourceFile/inline-caller annotation).
	OriginalFile string

	HasMinRange bool
	MinStart    int
	MinEnd      int

	HasOrigRange bool
	OrigStart    int
	OrigEnd      int

	Synthesized     bool
	Outline         bool
	OutlineCallsite bool

	// Caller is the next entry in an inline chain — the member that
	// (according to the mapping) called this one — or nil if this member
	// is not part of a chain, or is the outermost entry of one.
	Caller *MemberMapping
}

// ContainsLine reports whether line falls inside this mapping's minified
// range, or whether this mapping has no range at all (invariant 3: a
// MemberMapping with no minified range applies to any line).
func (m *MemberMapping) ContainsLine(line int) bool {
	if !m.HasMinRange {
		return true
	}
	return line >= m.MinStart && line <= m.MinEnd
}

// Chain returns this mapping and every caller after it, innermost first.
func (m *MemberMapping) Chain() []*MemberMapping {
	chain := []*MemberMapping{m}
	for c := m.Caller; c != nil; c = c.Caller {
		chain = append(chain, c)
	}
	return chain
}

// AnySynthesized reports whether any entry in this member's chain is
// synthesized (used by the resolver's synthesized-filtering rule).
func (m *MemberMapping) AnySynthesized() bool {
	for _, c := range m.Chain() {
		if c.Synthesized {
			return true
		}
	}
	return false
}
