// Package cache implements the binary, little-endian on-disk
// representation of a mapping.MappingIndex (spec §6 "Binary cache"): a
// magic/version header, an interned string table, class records sorted by
// obfuscated name, each followed by its member records in original
// mapping-file order (order is semantically load-bearing — see
// pkg/resolver step 8 — so it is preserved rather than re-sorted).
// Records are variable-length and the file is not queried in place: Load
// decodes the whole file into an in-memory MappingIndex.
package cache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jvmretrace/retrace/pkg/mapping"
)

// magic identifies a retrace binary cache file.
var magic = [4]byte{'R', 'T', 'C', '1'}

// version is bumped whenever the on-disk layout changes. A reader that
// sees an unrecognised version byte must refuse to load (CacheVersionMismatch,
// spec §7) rather than guess at the layout.
const version = 1

// ErrVersionMismatch is returned by Load when the file's version byte does
// not match the version this build knows how to read.
var ErrVersionMismatch = fmt.Errorf("cache: unsupported version (want %d)", version)

// ErrBadMagic is returned by Load when the file does not start with the
// expected magic bytes.
var ErrBadMagic = fmt.Errorf("cache: bad magic number")

// flagHasLineInfo mirrors MappingIndex.HasLineInfo() in the header flag
// word, so Load doesn't need to re-scan every member to recompute it.
const flagHasLineInfo uint16 = 1 << 0

// Write serializes idx to w in the layout described in SPEC_FULL.md §6:
//
//	magic[4] version[1] reserved[1] flags[uint16]
//	stringCount[uint32] { len[uint32] bytes[len] }...
//	classCount[uint32]  { classRecord }...  (sorted by obfuscated name)
//	  for each class: memberCount[uint32] { memberRecord }... (mapping-file order)
//	recordCount[uint32] skippedLines[uint32] uuid[16]
func Write(w io.Writer, idx *mapping.MappingIndex) error {
	bw := bufio.NewWriter(w)

	interner := newInterner()
	classNames := idx.ObfuscatedClassNames()
	sort.Strings(classNames)

	type memberRec struct {
		obfIdx, origIdx, fileIdx, classIdx uint32
		returnTypeIdx, paramsIdx           uint32
		hasMin                             bool
		minStart, minEnd                   int32
		hasOrig                            bool
		origStart, origEnd                 int32
		synthesized, outline, outlineCS    bool
		callerIdx                          int32 // index into this class's flat member list, or -1
	}
	type classRec struct {
		obfIdx, origIdx, fileIdx uint32
		synthesized              bool
		members                  []memberRec
	}

	var classes []classRec
	for _, obf := range classNames {
		cls, _ := idx.Class(obf)
		cr := classRec{
			obfIdx:      interner.intern(cls.Obfuscated),
			origIdx:     interner.intern(cls.Original),
			fileIdx:     interner.intern(cls.OriginalSourceFile),
			synthesized: cls.Synthesized,
		}

		// Flatten every member (including inline-chain callers, which are
		// otherwise reachable only via MemberMapping.Caller pointers) into
		// one per-class slice, recording caller links by index so the
		// chain survives the round trip without needing live pointers.
		index := make(map[*mapping.MemberMapping]int32)
		var flat []*mapping.MemberMapping
		for _, name := range cls.MemberNames() {
			for _, m := range cls.Members(name) {
				for c := m; c != nil; c = c.Caller {
					if _, ok := index[c]; ok {
						continue
					}
					index[c] = int32(len(flat))
					flat = append(flat, c)
				}
			}
		}

		for _, m := range flat {
			callerIdx := int32(-1)
			if m.Caller != nil {
				callerIdx = index[m.Caller]
			}
			cr.members = append(cr.members, memberRec{
				obfIdx:        interner.intern(m.Obfuscated),
				origIdx:       interner.intern(m.Original),
				fileIdx:       interner.intern(m.OriginalFile),
				classIdx:      interner.intern(m.OriginalClass),
				returnTypeIdx: interner.intern(m.ReturnType),
				paramsIdx:     interner.intern(strings.Join(m.Parameters, ",")),
				hasMin:        m.HasMinRange,
				minStart:      int32(m.MinStart),
				minEnd:        int32(m.MinEnd),
				hasOrig:       m.HasOrigRange,
				origStart:     int32(m.OrigStart),
				origEnd:       int32(m.OrigEnd),
				synthesized:   m.Synthesized,
				outline:       m.Outline,
				outlineCS:     m.OutlineCallsite,
				callerIdx:     callerIdx,
			})
		}

		classes = append(classes, cr)
	}

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(version); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil { // reserved
		return err
	}
	var flags uint16
	if idx.HasLineInfo() {
		flags |= flagHasLineInfo
	}
	if err := writeUint16(bw, flags); err != nil {
		return err
	}

	strTable := interner.ordered()
	if err := writeUint32(bw, uint32(len(strTable))); err != nil {
		return err
	}
	for _, s := range strTable {
		b := []byte(s)
		if err := writeUint32(bw, uint32(len(b))); err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}

	if err := writeUint32(bw, uint32(len(classes))); err != nil {
		return err
	}
	for _, cr := range classes {
		if err := writeUint32(bw, cr.obfIdx); err != nil {
			return err
		}
		if err := writeUint32(bw, cr.origIdx); err != nil {
			return err
		}
		if err := writeUint32(bw, cr.fileIdx); err != nil {
			return err
		}
		if err := bw.WriteByte(boolByte(cr.synthesized)); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(len(cr.members))); err != nil {
			return err
		}
		for _, m := range cr.members {
			if err := writeUint32(bw, m.obfIdx); err != nil {
				return err
			}
			if err := writeUint32(bw, m.origIdx); err != nil {
				return err
			}
			if err := writeUint32(bw, m.fileIdx); err != nil {
				return err
			}
			if err := writeUint32(bw, m.classIdx); err != nil {
				return err
			}
			if err := writeUint32(bw, m.returnTypeIdx); err != nil {
				return err
			}
			if err := writeUint32(bw, m.paramsIdx); err != nil {
				return err
			}
			if err := bw.WriteByte(boolByte(m.hasMin)); err != nil {
				return err
			}
			if err := writeInt32(bw, m.minStart); err != nil {
				return err
			}
			if err := writeInt32(bw, m.minEnd); err != nil {
				return err
			}
			if err := bw.WriteByte(boolByte(m.hasOrig)); err != nil {
				return err
			}
			if err := writeInt32(bw, m.origStart); err != nil {
				return err
			}
			if err := writeInt32(bw, m.origEnd); err != nil {
				return err
			}
			flags := byte(0)
			if m.synthesized {
				flags |= 1
			}
			if m.outline {
				flags |= 2
			}
			if m.outlineCS {
				flags |= 4
			}
			if err := bw.WriteByte(flags); err != nil {
				return err
			}
			if err := writeInt32(bw, m.callerIdx); err != nil {
				return err
			}
		}
	}

	summary := idx.Summary()
	if err := writeUint32(bw, uint32(summary.RecordCount)); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(summary.SkippedLines)); err != nil {
		return err
	}
	uuid := idx.UUID()
	if _, err := bw.Write(uuid[:]); err != nil {
		return err
	}

	return bw.Flush()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

// interner deduplicates strings into a dense, append-order table, so the
// cache file stores each distinct class/method/file name exactly once.
type interner struct {
	index map[string]uint32
	table []string
}

func newInterner() *interner {
	return &interner{index: make(map[string]uint32)}
}

func (in *interner) intern(s string) uint32 {
	if idx, ok := in.index[s]; ok {
		return idx
	}
	idx := uint32(len(in.table))
	in.index[s] = idx
	in.table = append(in.table, s)
	return idx
}

func (in *interner) ordered() []string { return in.table }

// Load deserializes a cache written by Write back into a queryable
// mapping.MappingIndex. It refuses to load a file with an unrecognised
// version byte (CacheVersionMismatch, spec §7) rather than guess at a
// layout it doesn't know.
func Load(r io.Reader) (*mapping.MappingIndex, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("cache: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, ErrBadMagic
	}

	gotVersion, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if gotVersion != version {
		return nil, ErrVersionMismatch
	}
	if _, err := br.ReadByte(); err != nil { // reserved
		return nil, err
	}
	flags, err := readUint16(br)
	if err != nil {
		return nil, err
	}

	stringCount, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	strTable := make([]string, stringCount)
	for i := range strTable {
		n, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		strTable[i] = string(buf)
	}
	str := func(idx uint32) string { return strTable[idx] }

	classCount, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	classes := make([]mapping.RawClass, classCount)
	for i := range classes {
		obfIdx, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		origIdx, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		fileIdx, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		synth, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		memberCount, err := readUint32(br)
		if err != nil {
			return nil, err
		}

		cls := mapping.RawClass{
			Obfuscated:         str(obfIdx),
			Original:           str(origIdx),
			OriginalSourceFile: str(fileIdx),
			Synthesized:        synth != 0,
		}

		cls.Members = make([]mapping.RawMember, memberCount)
		for j := range cls.Members {
			mObfIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			mOrigIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			mFileIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			mClassIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			mReturnTypeIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			mParamsIdx, err := readUint32(br)
			if err != nil {
				return nil, err
			}
			hasMin, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			minStart, err := readInt32(br)
			if err != nil {
				return nil, err
			}
			minEnd, err := readInt32(br)
			if err != nil {
				return nil, err
			}
			hasOrig, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			origStart, err := readInt32(br)
			if err != nil {
				return nil, err
			}
			origEnd, err := readInt32(br)
			if err != nil {
				return nil, err
			}
			memberFlags, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			callerIdx, err := readInt32(br)
			if err != nil {
				return nil, err
			}

			var params []string
			if s := str(mParamsIdx); s != "" {
				params = strings.Split(s, ",")
			}

			cls.Members[j] = mapping.RawMember{
				Obfuscated:      str(mObfIdx),
				Original:        str(mOrigIdx),
				ReturnType:      str(mReturnTypeIdx),
				Parameters:      params,
				OriginalFile:    str(mFileIdx),
				OriginalClass:   str(mClassIdx),
				HasMinRange:     hasMin != 0,
				MinStart:        int(minStart),
				MinEnd:          int(minEnd),
				HasOrigRange:    hasOrig != 0,
				OrigStart:       int(origStart),
				OrigEnd:         int(origEnd),
				Synthesized:     memberFlags&1 != 0,
				Outline:         memberFlags&2 != 0,
				OutlineCallsite: memberFlags&4 != 0,
				CallerIndex:     int(callerIdx),
			}
		}

		classes[i] = cls
	}

	recordCount, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	skippedLines, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	var uuid [16]byte
	if _, err := io.ReadFull(br, uuid[:]); err != nil {
		return nil, err
	}

	return mapping.FromRaw(mapping.RawIndex{
		Classes:      classes,
		RecordCount:  int(recordCount),
		SkippedLines: int(skippedLines),
		HasLineInfo:  flags&flagHasLineInfo != 0,
		UUID:         uuid,
	})
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}
