package types

import "fmt"

// RegionKind enumerates lifetime-like region forms.
type RegionKind uint8

const (
	RegionErased RegionKind = iota
	RegionBound
	RegionStatic
	RegionEarlyParam
	RegionLateParam
	RegionVar
	RegionPlaceholder
	RegionError
)

func (k RegionKind) String() string {
	switch k {
	case RegionErased:
		return "erased"
	case RegionBound:
		return "bound"
	case RegionStatic:
		return "static"
	case RegionEarlyParam:
		return "early-param"
	case RegionLateParam:
		return "late-param"
	case RegionVar:
		return "var"
	case RegionPlaceholder:
		return "placeholder"
	case RegionError:
		return "error"
	default:
		return fmt.Sprintf("RegionKind(%d)", k)
	}
}

// Region is a comparable region descriptor.
// Bound regions carry the binder's de Bruijn index and the variable index
// within that binder; early params carry their generic parameter index.
type Region struct {
	Kind     RegionKind
	Debruijn uint32
	Var      uint32
}

// Erased is the region used once lifetimes are no longer relevant.
var Erased = Region{Kind: RegionErased}

// Static is the 'static region.
var Static = Region{Kind: RegionStatic}

// BoundRegion makes a region bound by the binder at debruijn.
func BoundRegion(debruijn, v uint32) Region {
	return Region{Kind: RegionBound, Debruijn: debruijn, Var: v}
}

// EarlyParamRegion refers to the generic lifetime parameter at index.
func EarlyParamRegion(index uint32) Region {
	return Region{Kind: RegionEarlyParam, Var: index}
}

func (r Region) String() string {
	switch r.Kind {
	case RegionErased:
		return "'_"
	case RegionStatic:
		return "'static"
	case RegionBound:
		return fmt.Sprintf("'^%d_%d", r.Debruijn, r.Var)
	default:
		return fmt.Sprintf("'%s%d", r.Kind, r.Var)
	}
}
