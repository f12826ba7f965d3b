package typeid

import (
	"strconv"
	"strings"

	"cfityid/internal/types"
)

// encodePredicate encodes one trait object bound as
// `u<len><name>[I<args>E]`, followed by the bound term for projections.
func (e *encoder) encodePredicate(p types.ExistentialPredicate, opts Options) string {
	var s strings.Builder
	name := encodeTyName(e.in, p.Def)
	s.WriteByte('u')
	s.WriteString(strconv.Itoa(len(name)))
	s.WriteString(name)

	switch p.Kind {
	case types.PredTrait:
		s.WriteString(e.encodeArgs(p.Args, opts))
	case types.PredProjection:
		s.WriteString(e.encodeArgs(p.Args, opts))
		switch p.Term.Kind {
		case types.ArgType:
			s.WriteString(e.encodeTy(p.Term.Type, opts))
		case types.ArgConst:
			s.WriteString(e.encodeConst(p.Term.Const, opts))
		default:
			bug("encodePredicate", "projection term kind %d", p.Term.Kind)
		}
	case types.PredAutoTrait:
	default:
		bug("encodePredicate", "predicate kind %d", p.Kind)
	}
	return e.dict.compress(predicateKey(p), s.String())
}

func (e *encoder) encodePredicates(id types.PredsID, opts Options) string {
	var s strings.Builder
	for _, p := range e.in.Preds(id) {
		s.WriteString(e.encodePredicate(p, opts))
	}
	return s.String()
}

// encodeArgs encodes a generic argument list as `I<args>E`, or nothing for
// an empty list.
func (e *encoder) encodeArgs(id types.ArgsID, opts Options) string {
	args := e.in.Args(id)
	if len(args) == 0 {
		return ""
	}
	var s strings.Builder
	s.WriteByte('I')
	for _, a := range args {
		switch a.Kind {
		case types.ArgRegion:
			s.WriteString(e.encodeRegion(a.Region))
		case types.ArgType:
			s.WriteString(e.encodeTy(a.Type, opts))
		case types.ArgConst:
			s.WriteString(e.encodeConst(a.Const, opts))
		}
	}
	s.WriteByte('E')
	return s.String()
}
