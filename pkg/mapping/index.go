package mapping

import (
	"bytes"
	"crypto/sha1"
	"io"

	"github.com/jvmretrace/retrace/pkg/errors"
	"github.com/jvmretrace/retrace/pkg/record"
)

// MappingIndex is the fully built, immutable in-memory index: obfuscated
// class name -> ClassMapping, plus a reverse index from original class
// name to the obfuscated names that produced it. It is built once from a
// record.Record stream (see Build) and never mutated afterwards.
type MappingIndex struct {
	classes map[string]*ClassMapping
	reverse map[string][]string
	headers map[string]string

	recordCount  int
	skippedLines int
	hasLineInfo  bool
	uuid         [16]byte
	diagnostics  []*errors.MappingError
}

// Summary reports coarse statistics about a built index, stable across the
// text and binary-cache representations of the same mapping.
type Summary struct {
	RecordCount  int
	SkippedLines int
	ClassCount   int
	MethodCount  int
	HasLineInfo  bool
}

// Class looks up a ClassMapping by its obfuscated name.
func (mi *MappingIndex) Class(obfuscated string) (*ClassMapping, bool) {
	c, ok := mi.classes[obfuscated]
	return c, ok
}

// ObfuscatedClassNames returns every obfuscated class name in the index, in
// no particular order. Used by callers that need to walk every class, such
// as the resolver's optional parameter-index precomputation and the cache
// serializer.
func (mi *MappingIndex) ObfuscatedClassNames() []string {
	names := make([]string, 0, len(mi.classes))
	for name := range mi.classes {
		names = append(names, name)
	}
	return names
}

// ObfuscatedNamesFor returns every obfuscated class name that maps to the
// given original class name (usually zero or one, but ProGuard/R8 allow
// distinct obfuscated classes to share an original name in edge cases).
func (mi *MappingIndex) ObfuscatedNamesFor(original string) []string {
	return mi.reverse[original]
}

// Header returns a parsed "# key: value" header value, if present.
func (mi *MappingIndex) Header(key string) (string, bool) {
	v, ok := mi.headers[key]
	return v, ok
}

// HasLineInfo reports whether any MemberMapping in the index carries a
// minified range.
func (mi *MappingIndex) HasLineInfo() bool { return mi.hasLineInfo }

// UUID returns the mapping's derived identifier (spec §6 "Mapping
// metadata"): an RFC 4122 version-5 UUID over the pg_map_id/pg_map_hash
// headers when present, otherwise over the raw mapping bytes.
func (mi *MappingIndex) UUID() [16]byte { return mi.uuid }

// Diagnostics returns one errors.MappingError per skipped or malformed line
// the tokenizer encountered while building this index (spec §7's
// ParseError/InvalidHeader taxonomy), in the order they were seen. Building
// an index never fails because of these — they are reported so a caller can
// show the operator what was dropped instead of only a bare count
// (Summary.SkippedLines).
func (mi *MappingIndex) Diagnostics() []*errors.MappingError { return mi.diagnostics }

// Summary reports coarse statistics about the index.
func (mi *MappingIndex) Summary() Summary {
	methodCount := 0
	for _, c := range mi.classes {
		methodCount += c.MemberCount()
	}
	return Summary{
		RecordCount:  mi.recordCount,
		SkippedLines: mi.skippedLines,
		ClassCount:   len(mi.classes),
		MethodCount:  methodCount,
		HasLineInfo:  mi.hasLineInfo,
	}
}

// Build reads an entire mapping file from r, tokenizes it, and folds the
// resulting records into an immutable MappingIndex. Malformed lines are
// skipped (counted in Summary.SkippedLines); Build itself only fails on an
// I/O error from r.
func Build(r io.Reader) (*MappingIndex, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	tok := record.NewTokenizer(bytes.NewReader(raw))
	b := newBuilder()
	for {
		rec, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b.recordCount++
		b.apply(rec)
	}
	b.skippedLines += tok.SkippedLines

	mi := &MappingIndex{
		classes:      b.classes,
		reverse:      b.reverse,
		headers:      b.headers,
		recordCount:  b.recordCount,
		skippedLines: b.skippedLines,
		hasLineInfo:  b.hasLineInfo,
		diagnostics:  tok.Diagnostics,
	}
	mi.uuid = deriveUUID(b.headers, raw)
	return mi, nil
}

type builder struct {
	classes map[string]*ClassMapping
	reverse map[string][]string
	headers map[string]string

	current    *ClassMapping
	lastMember *MemberMapping
	// sawMemberSinceClass tracks whether any member line has appeared since
	// the current class header, so a class-level annotation (sourceFile,
	// synthesized) isn't mistaken for a member-level one.
	sawMemberSinceClass bool

	recordCount  int
	skippedLines int
	hasLineInfo  bool
}

func newBuilder() *builder {
	return &builder{
		classes: make(map[string]*ClassMapping),
		reverse: make(map[string][]string),
		headers: make(map[string]string),
	}
}

func (b *builder) apply(rec record.Record) {
	switch rec.Kind {
	case record.KindHeader:
		if rec.Header.Valid {
			b.headers[rec.Header.Key] = rec.Header.Value
		}
	case record.KindClass:
		b.addClass(rec.Class)
	case record.KindMember:
		if b.current == nil {
			b.skippedLines++
			return
		}
		b.addMember(rec.Member)
	case record.KindAnnotation:
		b.applyAnnotation(rec.Annotation)
	}
}

func (b *builder) addClass(c *record.Class) {
	cm := newClassMapping(c.Obfuscated, c.Original)
	b.classes[c.Obfuscated] = cm
	b.reverse[c.Original] = append(b.reverse[c.Original], c.Obfuscated)
	b.current = cm
	b.lastMember = nil
	b.sawMemberSinceClass = false
}

func (b *builder) addMember(r *record.Member) {
	if r.HasMinRange {
		b.hasLineInfo = true
	}

	mm := &MemberMapping{
		Obfuscated:      r.Obfuscated,
		Original:        r.Name,
		ReturnType:      r.ReturnType,
		Parameters:      append([]string(nil), r.Parameters...),
		OriginalClass:   b.current.Original,
		HasMinRange:     r.HasMinRange,
		MinStart:        r.MinStart,
		MinEnd:          r.MinEnd,
		HasOrigRange:    r.HasOrigRange,
		OrigStart:       r.OrigStart,
		OrigEnd:         r.OrigEnd,
	}

	if chains(b.lastMember, r) {
		b.lastMember.Caller = mm
	} else {
		b.current.append(mm)
	}
	b.lastMember = mm
	b.sawMemberSinceClass = true
}

// chains reports whether record r continues the inline chain headed by
// prev: same obfuscated name, both carrying a minified range, and those
// ranges equal or nested (spec §3 "InlineFrame").
func chains(prev *MemberMapping, r *record.Member) bool {
	if prev == nil || prev.Obfuscated != r.Obfuscated {
		return false
	}
	if !prev.HasMinRange || !r.HasMinRange {
		return false
	}
	return r.MinStart >= prev.MinStart && r.MinEnd <= prev.MinEnd
}

func (b *builder) applyAnnotation(a *record.Annotation) {
	switch {
	case !b.sawMemberSinceClass:
		b.applyClassAnnotation(a)
	default:
		b.applyMemberAnnotation(a)
	}
}

func (b *builder) applyClassAnnotation(a *record.Annotation) {
	if b.current == nil {
		return
	}
	switch a.Kind {
	case "sourceFile":
		b.current.OriginalSourceFile = a.Fields["fileName"]
	case "synthesized":
		b.current.Synthesized = true
	}
}

func (b *builder) applyMemberAnnotation(a *record.Annotation) {
	if b.lastMember == nil {
		return
	}
	switch a.Kind {
	case "sourceFile":
		b.lastMember.OriginalFile = a.Fields["fileName"]
	case "synthesized":
		b.lastMember.Synthesized = true
	case "outline":
		b.lastMember.Outline = true
	case "outlineCallsite":
		b.lastMember.OutlineCallsite = true
	case "inlineCaller":
		if class, ok := a.Fields["class"]; ok && class != "" {
			b.lastMember.OriginalClass = class
		}
		if file, ok := a.Fields["file"]; ok && file != "" {
			b.lastMember.OriginalFile = file
		}
	}
}

// uuidNamespace is a literal namespace constant for the version-5 UUID
// derived from mapping content, not a mutable singleton.
var uuidNamespace = [16]byte{
	0x6b, 0xa7, 0xb8, 0x14, 0x9d, 0xad, 0x11, 0xd1,
	0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8,
}

func deriveUUID(headers map[string]string, raw []byte) [16]byte {
	var name []byte
	if id, ok := headers["pg_map_id"]; ok {
		name = []byte(id)
		if hash, ok := headers["pg_map_hash"]; ok {
			name = append(append(name, '|'), hash...)
		}
	} else if hash, ok := headers["pg_map_hash"]; ok {
		name = []byte(hash)
	} else {
		name = raw
	}
	return uuidV5(uuidNamespace, name)
}

// uuidV5 computes an RFC 4122 version-5 (namespace + SHA-1) UUID.
func uuidV5(namespace [16]byte, name []byte) [16]byte {
	h := sha1.New()
	h.Write(namespace[:])
	h.Write(name)
	sum := h.Sum(nil)

	var u [16]byte
	copy(u[:], sum[:16])
	u[6] = (u[6] & 0x0f) | 0x50 // version 5
	u[8] = (u[8] & 0x3f) | 0x80 // variant RFC 4122
	return u
}
