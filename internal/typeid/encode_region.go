package typeid

import (
	"strconv"

	"cfityid/internal/types"
)

// encodeRegion encodes a region as the vendor type
// `u6region[I[<disambiguator>]<index>E]`. Only bound and erased regions
// survive to encoding.
func (e *encoder) encodeRegion(r types.Region) string {
	var s string
	switch r.Kind {
	case types.RegionBound:
		s = "u6regionI"
		if r.Debruijn > 0 {
			s += toDisambiguator(uint64(r.Debruijn))
		}
		s += strconv.FormatUint(uint64(r.Var), 10) + "E"
	case types.RegionErased:
		s = "u6region"
	default:
		bug("encodeRegion", "%s region", r.Kind)
	}
	return e.dict.compress(regionKey(r), s)
}
