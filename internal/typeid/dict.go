package typeid

import "cfityid/internal/types"

// qualifier separates the cv-qualified forms of one type in the dictionary.
type qualifier uint8

const (
	qualNone qualifier = iota
	qualConst
	qualMut
)

type dictKeyKind uint8

const (
	keyTy dictKeyKind = iota
	keyRegion
	keyConst
	keyPredicate
)

// dictKey is a substitutable component. Interned ids make struct equality
// structural equality.
type dictKey struct {
	kind   dictKeyKind
	ty     types.TypeID
	qual   qualifier
	region types.Region
	c      types.Const
	pred   types.ExistentialPredicate
}

func tyKey(t types.TypeID, q qualifier) dictKey {
	return dictKey{kind: keyTy, ty: t, qual: q}
}

func regionKey(r types.Region) dictKey {
	return dictKey{kind: keyRegion, region: r}
}

func constKey(c types.Const) dictKey {
	return dictKey{kind: keyConst, c: c}
}

func predicateKey(p types.ExistentialPredicate) dictKey {
	return dictKey{kind: keyPredicate, pred: p}
}

// dict is the Itanium substitution dictionary of one identifier. Each new
// component gets the next sequence number.
type dict map[dictKey]int

// compress returns the back-reference `S<seq-id>_` for a known component,
// or records comp and returns it unchanged.
func (d dict) compress(key dictKey, comp string) string {
	if n, ok := d[key]; ok {
		return "S" + toSeqID(n) + "_"
	}
	d[key] = len(d)
	return comp
}
