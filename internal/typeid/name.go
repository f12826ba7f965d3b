package typeid

import (
	"strconv"
	"strings"

	"cfityid/internal/types"
)

// encodeTyName encodes a definition path as v0's <path> without the
// extended form: one `N<tag>` per segment leaf to root, then the crate
// as `C<disambiguator><len><name>`, then each segment root to leaf as
// `[<disambiguator>]<len>[_]<name>`.
func encodeTyName(in *types.Interner, def types.DefID) string {
	var b strings.Builder
	path := in.DefPath(def)

	for i := len(path.Data) - 1; i >= 0; i-- {
		b.WriteByte('N')
		b.WriteString(namespaceTag(path.Data[i].Data))
	}

	krate, ok := in.Crate(path.Crate)
	if !ok {
		bug("encodeTyName", "crate %d", path.Crate)
	}
	b.WriteByte('C')
	b.WriteString(toDisambiguator(krate.StableID))
	b.WriteString(strconv.Itoa(len(krate.Name)))
	b.WriteString(krate.Name)

	for _, seg := range path.Data {
		if seg.Disambiguator > 0 {
			b.WriteString(toDisambiguator(uint64(seg.Disambiguator)))
		}
		name := segmentName(seg)
		if name == "" {
			bug("encodeTyName", "empty name for %s segment", seg.Data)
		}
		b.WriteString(strconv.Itoa(len(name)))
		if c := name[0]; (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte('_')
		}
		b.WriteString(name)
	}
	return b.String()
}

func namespaceTag(k types.DefPathDataKind) string {
	switch k {
	case types.PathImpl:
		return "I"
	case types.PathForeignMod:
		return "F"
	case types.PathTypeNs:
		return "t"
	case types.PathValueNs:
		return "v"
	case types.PathClosure:
		return "C"
	case types.PathCtor:
		return "c"
	case types.PathAnonConst:
		return "k"
	case types.PathOpaqueTy:
		return "i"
	default:
		bug("encodeTyName", "%s path segment", k)
		return ""
	}
}

// segmentName is the display name of a segment; anonymous segments use the
// `{{kind}}` placeholders.
func segmentName(seg types.DisambiguatedDefPathData) string {
	switch seg.Data {
	case types.PathImpl:
		return "{{impl}}"
	case types.PathForeignMod:
		return "{{extern}}"
	case types.PathClosure:
		return "{{closure}}"
	case types.PathCtor:
		return "{{constructor}}"
	case types.PathAnonConst:
		return "{{constant}}"
	case types.PathOpaqueTy:
		return "{{opaque}}"
	default:
		return seg.Name
	}
}
