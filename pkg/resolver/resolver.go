// Package resolver implements the member resolver (spec §4.2): given an
// obfuscated class/method name, an optional line, and optional parameter
// types, it returns the ordered list of original MemberMatches, including
// inlined-caller expansion. The eight resolution steps are a fixed,
// spec-mandated pipeline — not a user-extensible plugin chain — so they
// are plain sequential stage functions, not a registry.
package resolver

import (
	"strings"

	"github.com/jvmretrace/retrace/pkg/mapping"
)

// MemberMatch is one candidate result of a resolve() call: the innermost
// original frame, plus (when the mapping recorded inlining) its callers in
// outermost-first order.
type MemberMatch struct {
	OriginalClass  string
	OriginalMethod string
	OriginalFile   string
	OriginalLine   int
	Synthesized    bool
	Callers        []MemberMatch
}

// Config holds the resolver's recognised construction options (spec §6).
type Config struct {
	// InitializeParamMapping builds a parameter-indexed lookup table
	// eagerly at New(), trading memory for lower per-query cost when
	// callers routinely pass parameter signatures. Default false: most
	// callers never disambiguate by parameters, so the cost is skipped by
	// default and candidates are filtered by a plain linear scan instead.
	InitializeParamMapping bool
}

// Resolver answers resolve() queries against an immutable MappingIndex.
type Resolver struct {
	idx *mapping.MappingIndex

	// paramIndex, when built, maps classObf -> methodObf -> parameter
	// signature -> the filtered candidate list for that exact signature, so
	// repeated queries for the same (class, method, params) skip the linear
	// scan in filterByParams. Nil unless Config.InitializeParamMapping was
	// set, in which case it is fully populated up front.
	paramIndex map[string]map[string]map[string][]*mapping.MemberMapping
}

// New constructs a Resolver over idx. idx is never mutated.
func New(idx *mapping.MappingIndex, cfg Config) *Resolver {
	r := &Resolver{idx: idx}
	if cfg.InitializeParamMapping {
		r.paramIndex = buildParamIndex(idx)
	}
	return r
}

// buildParamIndex eagerly computes, for every (class, method) pair that has
// more than one candidate, the filtered candidate list keyed by each
// candidate's own parameter signature. A query whose params match one of
// these signatures exactly is then a map lookup instead of a scan.
func buildParamIndex(idx *mapping.MappingIndex) map[string]map[string]map[string][]*mapping.MemberMapping {
	out := make(map[string]map[string]map[string][]*mapping.MemberMapping)
	for _, classObf := range idx.ObfuscatedClassNames() {
		cls, ok := idx.Class(classObf)
		if !ok {
			continue
		}
		for _, methodObf := range cls.MemberNames() {
			candidates := cls.Members(methodObf)
			if len(candidates) < 2 {
				continue
			}
			byParams := make(map[string][]*mapping.MemberMapping)
			for _, c := range candidates {
				key := paramKey(c.Parameters)
				byParams[key] = append(byParams[key], c)
			}
			if out[classObf] == nil {
				out[classObf] = make(map[string]map[string][]*mapping.MemberMapping)
			}
			out[classObf][methodObf] = byParams
		}
	}
	return out
}

// Resolve implements spec §4.2 steps 1-8. line == 0 means "no line info".
// params == nil means the caller did not supply a parameter signature.
func (r *Resolver) Resolve(classObf, methodObf string, line int, params []string) []MemberMatch {
	cls, ok := r.idx.Class(classObf)
	if !ok {
		return nil
	}

	candidates := cls.Members(methodObf)
	if len(candidates) == 0 {
		return nil
	}

	candidates = r.filterByParams(classObf, methodObf, candidates, params)
	candidates = filterByLine(candidates, line)

	matches := expandToMatches(candidates, line)
	matches = filterSynthesized(matches)
	return matches
}

// filterByParams implements step 3: drop candidates whose parameter list
// differs textually from params, unless that would drop every candidate
// and no candidate is parameter-annotated in the first place (then params
// is ignored entirely) or it would drop every candidate (then the
// signature is treated as advisory and the original list is returned).
func (r *Resolver) filterByParams(classObf, methodObf string, candidates []*mapping.MemberMapping, params []string) []*mapping.MemberMapping {
	if params == nil {
		return candidates
	}

	anyParamInfo := false
	for _, c := range candidates {
		if len(c.Parameters) > 0 {
			anyParamInfo = true
			break
		}
	}
	if !anyParamInfo {
		return candidates
	}

	if byParams, ok := r.paramIndex[classObf][methodObf]; ok {
		if filtered, ok := byParams[paramKey(params)]; ok {
			return filtered
		}
		return candidates
	}

	var filtered []*mapping.MemberMapping
	for _, c := range candidates {
		if paramsEqual(c.Parameters, params) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return candidates
	}
	return filtered
}

func paramsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// filterByLine implements step 4.
func filterByLine(candidates []*mapping.MemberMapping, line int) []*mapping.MemberMapping {
	if line == 0 {
		return candidates
	}
	var kept []*mapping.MemberMapping
	for _, c := range candidates {
		if c.ContainsLine(line) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		// Open question "outside-range policy" (spec §9): fall through to
		// the no-line, member-name-only match rather than returning
		// nothing, matching upstream R8 retrace's best-effort behavior.
		return candidates
	}
	return kept
}

// expandToMatches implements steps 5 and 6: line translation (with
// line-span expansion where applicable) followed by inline-chain
// expansion into MemberMatch values.
func expandToMatches(candidates []*mapping.MemberMapping, line int) []MemberMatch {
	var out []MemberMatch
	for _, c := range candidates {
		for _, origLine := range translatedLines(c, line) {
			out = append(out, toMatch(c, origLine))
		}
	}
	return out
}

// translatedLines implements step 5's four cases, returning every original
// line a candidate should be reported at (almost always exactly one).
func translatedLines(m *mapping.MemberMapping, line int) []int {
	switch {
	case m.HasMinRange && m.HasOrigRange && line > 0:
		orig := m.OrigStart + (line - m.MinStart)
		if orig < m.OrigStart {
			orig = m.OrigStart
		}
		if orig > m.OrigEnd {
			orig = m.OrigEnd
		}
		return []int{orig}

	case !m.HasMinRange && m.HasOrigRange && line == 0:
		lines := make([]int, 0, m.OrigEnd-m.OrigStart+1)
		for l := m.OrigStart; l <= m.OrigEnd; l++ {
			lines = append(lines, l)
		}
		return lines

	case !m.HasMinRange && m.HasOrigRange && line != 0:
		return []int{m.OrigStart}

	case m.HasMinRange && !m.HasOrigRange:
		return []int{line}

	default:
		return []int{0}
	}
}

func toMatch(m *mapping.MemberMapping, origLine int) MemberMatch {
	match := MemberMatch{
		OriginalClass:  m.OriginalClass,
		OriginalMethod: m.Original,
		OriginalFile:   m.OriginalFile,
		OriginalLine:   origLine,
		Synthesized:    m.Synthesized,
	}

	for _, caller := range m.Chain()[1:] {
		match.Callers = append(match.Callers, MemberMatch{
			OriginalClass:  caller.OriginalClass,
			OriginalMethod: caller.Original,
			OriginalFile:   caller.OriginalFile,
			OriginalLine:   caller.OrigStart, // callers carry their own declared line, see §4.2 step 6
			Synthesized:    caller.Synthesized,
		})
	}
	// Chain() returns innermost-first; Callers is documented outermost-first.
	reverse(match.Callers)
	return match
}

func reverse(ms []MemberMatch) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}

// filterSynthesized implements step 7: if any match's full chain is free
// of synthesized entries, every match whose chain contains one is dropped.
func filterSynthesized(matches []MemberMatch) []MemberMatch {
	anyClean := false
	for _, m := range matches {
		if !chainHasSynthesized(m) {
			anyClean = true
			break
		}
	}
	if !anyClean {
		return matches
	}

	var kept []MemberMatch
	for _, m := range matches {
		if !chainHasSynthesized(m) {
			kept = append(kept, m)
		}
	}
	return kept
}

func chainHasSynthesized(m MemberMatch) bool {
	if m.Synthesized {
		return true
	}
	for _, c := range m.Callers {
		if c.Synthesized {
			return true
		}
	}
	return false
}

// paramKey renders a parameter list as a stable map key.
func paramKey(params []string) string {
	return strings.Join(params, ",")
}
