package record

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The member-mapping line is the one nontrivial grammar in the mapping
// format; everything else (headers, class headers, annotations) is a single
// flat shape handled with regexp in tokenizer.go. This mirrors how the
// teacher reached for a participle grammar only where the line actually had
// recursive/optional structure, and plain string handling everywhere else.

var memberLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
	{Name: "Punct", Pattern: `[().,:\[\]]`},
})

// qualifiedIdent matches a dotted type or name token with optional trailing
// array brackets: "int", "java.lang.String", "byte[][]".
type qualifiedIdent struct {
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
	Dims  []string `parser:"( @'[' ']' )*"`
}

func (q *qualifiedIdent) text() string {
	s := ""
	for i, p := range q.Parts {
		if i > 0 {
			s += "."
		}
		s += p
	}
	for range q.Dims {
		s += "[]"
	}
	return s
}

// paramList matches the optional parenthesised, comma-separated parameter
// type list: "()" or "(int,java.lang.String)".
type paramList struct {
	Params []*qualifiedIdent `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

// origRange matches the optional trailing original-line annotation:
// ":origStart" or ":origStart:origEnd".
type origRange struct {
	Start int  `parser:"':' @Int"`
	End   *int `parser:"( ':' @Int )?"`
}

// minRange matches the optional leading minified-line-range prefix:
// "minStart:minEnd:".
type minRange struct {
	Start int `parser:"@Int ':'"`
	End   int `parser:"@Int ':'"`
}

// memberSignature captures the return-type/name pair. Both are
// qualifiedIdent-shaped; when only one token appears before the parameter
// list / arrow, it is the name and the return type was omitted (the
// historical ProGuard form the spec calls out).
type memberSignature struct {
	Types  []*qualifiedIdent `parser:"@@ @@?"`
	Params *paramList        `parser:"@@?"`
	Orig   *origRange        `parser:"@@?"`
}

// memberLine is the full grammar for one indented mapping line, excluding
// the leading whitespace (stripped by the tokenizer before parsing).
type memberLine struct {
	MinRange   *minRange        `parser:"@@?"`
	Sig        *memberSignature `parser:"@@"`
	Obfuscated string           `parser:"Arrow @Ident"`
}

var memberParser = participle.MustBuild[memberLine](
	participle.Lexer(memberLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// parseMemberLine parses the body of an indented mapping line (the part
// after the leading whitespace) into a Member record.
func parseMemberLine(body string) (*Member, error) {
	ml, err := memberParser.ParseString("", body)
	if err != nil {
		return nil, err
	}

	m := &Member{Obfuscated: ml.Obfuscated}

	if ml.MinRange != nil {
		m.HasMinRange = true
		m.MinStart, m.MinEnd = ml.MinRange.Start, ml.MinRange.End
		if m.MinStart > m.MinEnd {
			m.MinStart, m.MinEnd = m.MinEnd, m.MinStart
		}
	}

	types := ml.Sig.Types
	switch len(types) {
	case 2:
		m.ReturnType = types[0].text()
		m.Name = types[1].text()
	case 1:
		m.Name = types[0].text()
	}

	if ml.Sig.Params != nil {
		m.HasParams = true
		for _, p := range ml.Sig.Params.Params {
			m.Parameters = append(m.Parameters, p.text())
		}
	}

	if ml.Sig.Orig != nil {
		m.HasOrigRange = true
		m.OrigStart = ml.Sig.Orig.Start
		m.OrigEnd = m.OrigStart
		if ml.Sig.Orig.End != nil {
			m.OrigEnd = *ml.Sig.Orig.End
		}
		if m.OrigStart > m.OrigEnd {
			m.OrigStart, m.OrigEnd = m.OrigEnd, m.OrigStart
		}
	}

	return m, nil
}
