package types

// instantiator replaces generic parameters with the arguments at their index.
type instantiator struct {
	in   *Interner
	args []GenericArg
}

func (s instantiator) FoldTy(id TypeID) TypeID {
	tt, ok := s.in.Lookup(id)
	if !ok {
		return id
	}
	if tt.Kind == KindParam {
		if int(tt.Index) < len(s.args) && s.args[tt.Index].Kind == ArgType {
			return s.args[tt.Index].Type
		}
		return id
	}
	return s.in.SuperFold(s, id)
}

func (s instantiator) FoldRegion(r Region) Region {
	if r.Kind == RegionEarlyParam && int(r.Var) < len(s.args) && s.args[r.Var].Kind == ArgRegion {
		return s.args[r.Var].Region
	}
	return r
}

func (s instantiator) FoldConst(c Const) Const {
	if c.Kind == ConstParam && int(c.Index) < len(s.args) && s.args[c.Index].Kind == ArgConst {
		return s.args[c.Index].Const
	}
	return c
}

// Instantiate substitutes args for the generic parameters of id. Parameters
// without a matching argument are left in place.
func (in *Interner) Instantiate(id TypeID, args []GenericArg) TypeID {
	if len(args) == 0 {
		return id
	}
	return instantiator{in: in, args: args}.FoldTy(id)
}

// InstantiateArgs substitutes args into every element of an argument list.
func (in *Interner) InstantiateArgs(id ArgsID, args []GenericArg) ArgsID {
	if len(args) == 0 {
		return id
	}
	return in.FoldArgs(instantiator{in: in, args: args}, id)
}

// InstantiateSig substitutes args into a signature.
func (in *Interner) InstantiateSig(sig FnSig, args []GenericArg) FnSig {
	return in.FoldSig(instantiator{in: in, args: args}, sig)
}

// InstantiateTraitRef substitutes args into a trait reference.
func (in *Interner) InstantiateTraitRef(tr TraitRef, args []GenericArg) TraitRef {
	return TraitRef{Def: tr.Def, Args: in.InstantiateArgs(tr.Args, args)}
}

// MkArgsTrait builds [self, rest...].
func (in *Interner) MkArgsTrait(self TypeID, rest []GenericArg) ArgsID {
	args := make([]GenericArg, 0, len(rest)+1)
	args = append(args, TypeArg(self))
	args = append(args, rest...)
	return in.MkArgs(args)
}

// RebaseArgs replaces the first count arguments of args with base.
func (in *Interner) RebaseArgs(args ArgsID, count int, base []GenericArg) ArgsID {
	list := in.Args(args)
	if count > len(list) {
		count = len(list)
	}
	out := make([]GenericArg, 0, len(base)+len(list)-count)
	out = append(out, base...)
	out = append(out, list[count:]...)
	return in.MkArgs(out)
}
