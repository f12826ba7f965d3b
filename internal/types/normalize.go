package types

import (
	"errors"
	"fmt"
)

// ErrCannotNormalize reports a projection no impl or builtin rule resolves.
var ErrCannotNormalize = errors.New("cannot normalize")

const maxNormalizeDepth = 64

// normalizer resolves aliases and erases free regions. The first failure is
// kept in err and stops further rewriting.
type normalizer struct {
	in    *Interner
	err   error
	depth int
}

func (n *normalizer) FoldTy(id TypeID) TypeID {
	if n.err != nil {
		return id
	}
	tt, ok := n.in.Lookup(id)
	if !ok {
		return id
	}
	if tt.Kind != KindAlias {
		return n.in.SuperFold(n, id)
	}
	args := n.in.FoldArgs(n, tt.Args)
	if n.err != nil {
		return id
	}
	res, err := n.in.resolveAlias(tt.Def, args)
	if err != nil {
		n.err = err
		return id
	}
	n.depth++
	if n.depth > maxNormalizeDepth {
		n.err = fmt.Errorf("%w: recursion limit reached at %s", ErrCannotNormalize, n.in.Format(id))
		return id
	}
	out := n.FoldTy(res)
	n.depth--
	return out
}

func (n *normalizer) FoldRegion(r Region) Region {
	if r.Kind == RegionBound {
		return r
	}
	return Erased
}

// NormalizeErasingRegions resolves every alias in id and erases free regions.
func (in *Interner) NormalizeErasingRegions(id TypeID) (TypeID, error) {
	n := &normalizer{in: in}
	out := n.FoldTy(id)
	if n.err != nil {
		return id, n.err
	}
	return out, nil
}

// NormalizeArgs normalizes every argument of a list.
func (in *Interner) NormalizeArgs(id ArgsID) (ArgsID, error) {
	n := &normalizer{in: in}
	out := in.FoldArgs(n, id)
	if n.err != nil {
		return id, n.err
	}
	return out, nil
}

// NormalizeSig normalizes a signature's inputs and output.
func (in *Interner) NormalizeSig(sig FnSig) (FnSig, error) {
	n := &normalizer{in: in}
	out := in.FoldSig(n, sig)
	if n.err != nil {
		return sig, n.err
	}
	return out, nil
}

func (in *Interner) resolveAlias(def DefID, args ArgsID) (TypeID, error) {
	d, ok := in.Def(def)
	if !ok {
		return NoTypeID, fmt.Errorf("%w: unknown alias %d", ErrCannotNormalize, def)
	}
	switch d.Kind {
	case DefTyAlias:
		target, ok := in.TyAliasTarget(def)
		if !ok {
			return NoTypeID, fmt.Errorf("%w: alias %s has no target", ErrCannotNormalize, in.DefPathString(def))
		}
		return in.Instantiate(target, in.Args(args)), nil
	case DefAssocTy:
		return in.resolveProjection(def, args)
	default:
		return NoTypeID, fmt.Errorf("%w: %s is a %s, not an alias", ErrCannotNormalize, in.DefPathString(def), d.Kind)
	}
}

func (in *Interner) resolveProjection(assoc DefID, args ArgsID) (TypeID, error) {
	trait, ok := in.TraitOfItem(assoc)
	list := in.Args(args)
	if !ok || len(list) == 0 || list[0].Kind != ArgType {
		return NoTypeID, fmt.Errorf("%w: malformed projection %s", ErrCannotNormalize, in.DefPathString(assoc))
	}
	self := list[0].Type
	selfTy := in.MustLookup(self)

	if res, ok := in.builtinProjection(trait, assoc, selfTy, list); ok {
		return res, nil
	}

	for _, impl := range in.ImplsOfTrait(trait) {
		d, _ := in.ImplOf(impl)
		m := newMatcher(in, in.GenericsOf(impl).Count())
		if !m.args(d.Trait.Args, args) {
			continue
		}
		for _, it := range in.AssocItemsOf(impl) {
			if it.Kind == AssocTy && it.TraitItem == assoc {
				return in.Instantiate(it.Value, m.binding), nil
			}
		}
	}
	return NoTypeID, fmt.Errorf("%w: <%s as %s>::%s", ErrCannotNormalize,
		in.Format(self), in.DefPathString(trait), in.ItemName(assoc))
}

// builtinProjection resolves projections the compiler provides without impls:
// trait object bindings, closure outputs and coroutine associated types.
func (in *Interner) builtinProjection(trait, assoc DefID, self Type, list []GenericArg) (TypeID, bool) {
	switch self.Kind {
	case KindDynamic:
		rest := in.MkArgs(list[1:])
		for _, p := range in.Preds(self.Preds) {
			if p.Kind == PredProjection && p.Def == assoc && p.Args == rest && p.Term.Kind == ArgType {
				return p.Term.Type, true
			}
		}
	case KindClosure, KindCoroutineClosure:
		if in.IsLangItem(assoc, LangFnOnceOutput) {
			if c, ok := in.ClosureOf(self.Def); ok {
				return in.Instantiate(c.Output, in.Args(self.Args)), true
			}
		}
	case KindFnDef:
		if in.IsLangItem(assoc, LangFnOnceOutput) {
			if sig, ok := in.FnSigOf(self.Def); ok {
				return in.Instantiate(sig.Output, in.Args(self.Args)), true
			}
		}
	case KindFnPtr:
		if in.IsLangItem(assoc, LangFnOnceOutput) {
			return in.Sig(self.Sig).Output, true
		}
	case KindCoroutine:
		c, ok := in.CoroutineOf(self.Def)
		if !ok {
			return NoTypeID, false
		}
		pick := NoTypeID
		switch {
		case in.IsLangItem(assoc, LangFutureOutput):
			pick = c.Return
		case in.IsLangItem(trait, LangCoroutine) && in.ItemName(assoc) == "Yield":
			pick = c.Yield
		case in.IsLangItem(trait, LangCoroutine) && in.ItemName(assoc) == "Return":
			pick = c.Return
		case (in.IsLangItem(trait, LangIterator) || in.IsLangItem(trait, LangAsyncIterator)) && in.ItemName(assoc) == "Item":
			pick = c.Yield
		}
		if pick != NoTypeID {
			return in.Instantiate(pick, in.Args(self.Args)), true
		}
	}
	return NoTypeID, false
}

// matcher unifies an impl header pattern against concrete arguments,
// binding the impl's generic parameters. Regions always match.
type matcher struct {
	in      *Interner
	binding []GenericArg
	bound   []bool
}

func newMatcher(in *Interner, n int) *matcher {
	return &matcher{in: in, binding: make([]GenericArg, n), bound: make([]bool, n)}
}

func (m *matcher) bind(idx uint32, arg GenericArg) bool {
	if int(idx) >= len(m.binding) {
		return false
	}
	if m.bound[idx] {
		return m.binding[idx] == arg
	}
	m.binding[idx] = arg
	m.bound[idx] = true
	return true
}

func (m *matcher) ty(p, t TypeID) bool {
	pt, ok := m.in.Lookup(p)
	if !ok {
		return p == t
	}
	if pt.Kind == KindParam {
		return m.bind(pt.Index, TypeArg(t))
	}
	if p == t {
		return true
	}
	tt, ok := m.in.Lookup(t)
	if !ok || pt.Kind != tt.Kind {
		return false
	}
	if pt.Width != tt.Width || pt.Len != tt.Len || pt.Pattern != tt.Pattern ||
		pt.Mutable != tt.Mutable || pt.Def != tt.Def || pt.Dyn != tt.Dyn ||
		pt.Index != tt.Index || pt.Binder != tt.Binder {
		return false
	}
	switch pt.Kind {
	case KindArray, KindSlice, KindPat, KindRef, KindRawPtr:
		return m.ty(pt.Elem, tt.Elem)
	case KindFnPtr:
		ps, ts := m.in.Sig(pt.Sig), m.in.Sig(tt.Sig)
		if len(ps.Inputs) != len(ts.Inputs) || ps.CVariadic != ts.CVariadic || ps.Abi != ts.Abi {
			return false
		}
		for i := range ps.Inputs {
			if !m.ty(ps.Inputs[i], ts.Inputs[i]) {
				return false
			}
		}
		return m.ty(ps.Output, ts.Output)
	case KindDynamic:
		pp, tp := m.in.Preds(pt.Preds), m.in.Preds(tt.Preds)
		if len(pp) != len(tp) {
			return false
		}
		for i := range pp {
			if pp[i].Kind != tp[i].Kind || pp[i].Def != tp[i].Def || !m.args(pp[i].Args, tp[i].Args) {
				return false
			}
			if pp[i].Kind == PredProjection && !m.arg(pp[i].Term, tp[i].Term) {
				return false
			}
		}
		return true
	default:
		return m.args(pt.Args, tt.Args)
	}
}

func (m *matcher) args(p, t ArgsID) bool {
	if p == t && !m.in.ArgsHaveNonRegionParam(p) {
		return true
	}
	pl, tl := m.in.Args(p), m.in.Args(t)
	if len(pl) != len(tl) {
		return false
	}
	for i := range pl {
		if !m.arg(pl[i], tl[i]) {
			return false
		}
	}
	return true
}

func (m *matcher) arg(p, t GenericArg) bool {
	if p.Kind != t.Kind {
		return false
	}
	switch p.Kind {
	case ArgType:
		return m.ty(p.Type, t.Type)
	case ArgConst:
		if p.Const.Kind == ConstParam {
			return m.bind(p.Const.Index, t)
		}
		return p.Const.Kind == t.Const.Kind && p.Const.Lo == t.Const.Lo && p.Const.Hi == t.Const.Hi
	default:
		return true
	}
}
