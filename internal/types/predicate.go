package types

import (
	"strconv"
	"strings"
)

// PredsID identifies an interned, ordered existential predicate list.
type PredsID uint32

// PredKind tags an existential predicate.
type PredKind uint8

const (
	// PredTrait is the principal trait of a trait object.
	PredTrait PredKind = iota + 1
	// PredProjection pins an associated type to Term.
	PredProjection
	// PredAutoTrait is a marker trait such as Send.
	PredAutoTrait
)

// ExistentialPredicate is one bound of a trait object. Args exclude Self.
type ExistentialPredicate struct {
	Kind PredKind
	Def  DefID
	Args ArgsID
	Term GenericArg // PredProjection: type or const
}

// TraitPred makes a principal predicate.
func TraitPred(def DefID, args ArgsID) ExistentialPredicate {
	return ExistentialPredicate{Kind: PredTrait, Def: def, Args: args}
}

// ProjectionPred makes an associated-type binding.
func ProjectionPred(def DefID, args ArgsID, term GenericArg) ExistentialPredicate {
	return ExistentialPredicate{Kind: PredProjection, Def: def, Args: args, Term: term}
}

// AutoTraitPred makes a marker trait predicate.
func AutoTraitPred(def DefID) ExistentialPredicate {
	return ExistentialPredicate{Kind: PredAutoTrait, Def: def}
}

// Principal returns the first PredTrait, if any.
func Principal(preds []ExistentialPredicate) (ExistentialPredicate, bool) {
	for _, p := range preds {
		if p.Kind == PredTrait {
			return p, true
		}
	}
	return ExistentialPredicate{}, false
}

func predsKey(preds []ExistentialPredicate) string {
	var b strings.Builder
	for _, p := range preds {
		b.WriteByte(byte('0' + p.Kind))
		b.WriteString(strconv.FormatUint(uint64(p.Def), 36))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(p.Args), 36))
		b.WriteByte('.')
		appendArgKey(&b, p.Term)
	}
	return b.String()
}
