package mapping

// RawMember and RawClass mirror ClassMapping/MemberMapping field-for-field,
// but as plain exported structs rather than the package-private types with
// live *MemberMapping caller pointers. pkg/cache reads them straight off
// disk and hands them to FromRaw to rebuild a queryable MappingIndex
// without going through the text tokenizer a second time.
type RawMember struct {
	Obfuscated    string
	Original      string
	ReturnType    string
	Parameters    []string
	OriginalClass string
	OriginalFile  string

	HasMinRange bool
	MinStart    int
	MinEnd      int

	HasOrigRange bool
	OrigStart    int
	OrigEnd      int

	Synthesized     bool
	Outline         bool
	OutlineCallsite bool

	// CallerIndex is this member's caller's position within the same
	// class's Members slice (the flattened, chain-inclusive list the
	// cache stores), or -1 if this member has no caller.
	CallerIndex int
}

// RawClass mirrors ClassMapping. Members is the flat, chain-inclusive list
// cache.Write produces: top-level members in mapping-file order, each one
// immediately followed by its inline-chain callers, linked back together
// via RawMember.CallerIndex rather than mapping-file adjacency.
type RawClass struct {
	Obfuscated         string
	Original           string
	OriginalSourceFile string
	Synthesized        bool
	Members            []RawMember
}

// RawIndex is everything FromRaw needs to reconstruct a MappingIndex: the
// flattened class/member data plus the bookkeeping fields Summary()
// reports, which the cache stores directly rather than recomputing.
type RawIndex struct {
	Classes      []RawClass
	RecordCount  int
	SkippedLines int
	HasLineInfo  bool
	UUID         [16]byte
}

// FromRaw rebuilds an immutable MappingIndex from a RawIndex, restoring
// inline-chain Caller links by CallerIndex and the reverse
// original-name -> obfuscated-names index. Used by pkg/cache's Load; Build
// (from mapping text) is the only other way to construct a MappingIndex.
func FromRaw(raw RawIndex) (*MappingIndex, error) {
	mi := &MappingIndex{
		classes:      make(map[string]*ClassMapping, len(raw.Classes)),
		reverse:      make(map[string][]string),
		headers:      make(map[string]string),
		recordCount:  raw.RecordCount,
		skippedLines: raw.SkippedLines,
		hasLineInfo:  raw.HasLineInfo,
		uuid:         raw.UUID,
	}

	for _, rc := range raw.Classes {
		cm := newClassMapping(rc.Obfuscated, rc.Original)
		cm.OriginalSourceFile = rc.OriginalSourceFile
		cm.Synthesized = rc.Synthesized

		built := make([]*MemberMapping, len(rc.Members))
		for i, rm := range rc.Members {
			built[i] = &MemberMapping{
				Obfuscated:      rm.Obfuscated,
				Original:        rm.Original,
				ReturnType:      rm.ReturnType,
				Parameters:      rm.Parameters,
				OriginalClass:   rm.OriginalClass,
				OriginalFile:    rm.OriginalFile,
				HasMinRange:     rm.HasMinRange,
				MinStart:        rm.MinStart,
				MinEnd:          rm.MinEnd,
				HasOrigRange:    rm.HasOrigRange,
				OrigStart:       rm.OrigStart,
				OrigEnd:         rm.OrigEnd,
				Synthesized:     rm.Synthesized,
				Outline:         rm.Outline,
				OutlineCallsite: rm.OutlineCallsite,
			}
		}
		for i, rm := range rc.Members {
			if rm.CallerIndex >= 0 {
				built[i].Caller = built[rm.CallerIndex]
			}
		}

		// A member that is itself *referenced* by another member's Caller
		// link was never independently appended to cls.members in the
		// original build (index.go's addMember makes it the previous
		// member's Caller instead) — only chain heads were. Reconstruct
		// that by appending every member that nothing else points to.
		isChainLink := make(map[*MemberMapping]bool, len(built))
		for _, m := range built {
			if m.Caller != nil {
				isChainLink[m.Caller] = true
			}
		}
		for _, m := range built {
			if !isChainLink[m] {
				cm.append(m)
			}
		}

		mi.classes[rc.Obfuscated] = cm
		mi.reverse[rc.Original] = append(mi.reverse[rc.Original], rc.Obfuscated)
	}

	return mi, nil
}
