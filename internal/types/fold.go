package types

// Folder rewrites a type. Implementations call SuperFold to rebuild a type
// from its folded children.
type Folder interface {
	FoldTy(id TypeID) TypeID
}

// RegionFolder is implemented by folders that also rewrite regions.
type RegionFolder interface {
	FoldRegion(r Region) Region
}

// ConstFolder is implemented by folders that also rewrite consts. The const's
// type has already been folded when FoldConst runs.
type ConstFolder interface {
	FoldConst(c Const) Const
}

// SuperFold folds the immediate children of id with f and re-interns the
// result. Leaf types are returned unchanged.
func (in *Interner) SuperFold(f Folder, id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindTuple, KindAdt, KindFnDef, KindClosure, KindCoroutine,
		KindCoroutineClosure, KindCoroutineWitness, KindAlias:
		tt.Args = in.FoldArgs(f, tt.Args)
	case KindArray, KindSlice, KindPat, KindRawPtr:
		tt.Elem = f.FoldTy(tt.Elem)
	case KindRef:
		tt.Region = foldRegion(f, tt.Region)
		tt.Elem = f.FoldTy(tt.Elem)
	case KindFnPtr:
		tt.Sig = in.MkSig(in.FoldSig(f, in.Sig(tt.Sig)))
	case KindDynamic:
		tt.Preds = in.FoldPreds(f, tt.Preds)
		tt.Region = foldRegion(f, tt.Region)
	default:
		return id
	}
	return in.Intern(tt)
}

// FoldArgs folds every argument of an interned list.
func (in *Interner) FoldArgs(f Folder, id ArgsID) ArgsID {
	if id == EmptyArgs {
		return id
	}
	args := in.Args(id)
	changed := false
	for i, a := range args {
		next := in.foldArg(f, a)
		if next != a {
			args[i] = next
			changed = true
		}
	}
	if !changed {
		return id
	}
	return in.MkArgs(args)
}

func (in *Interner) foldArg(f Folder, a GenericArg) GenericArg {
	switch a.Kind {
	case ArgType:
		a.Type = f.FoldTy(a.Type)
	case ArgRegion:
		a.Region = foldRegion(f, a.Region)
	case ArgConst:
		a.Const = in.FoldConst(f, a.Const)
	}
	return a
}

// FoldConst folds the const's type, then the const itself when f is a ConstFolder.
func (in *Interner) FoldConst(f Folder, c Const) Const {
	if c.Ty != NoTypeID {
		c.Ty = f.FoldTy(c.Ty)
	}
	if cf, ok := f.(ConstFolder); ok {
		c = cf.FoldConst(c)
	}
	return c
}

// FoldSig folds the inputs and output of a signature.
func (in *Interner) FoldSig(f Folder, sig FnSig) FnSig {
	inputs := make([]TypeID, len(sig.Inputs))
	for i, t := range sig.Inputs {
		inputs[i] = f.FoldTy(t)
	}
	sig.Inputs = inputs
	sig.Output = f.FoldTy(sig.Output)
	return sig
}

// FoldPreds folds the arguments and terms of a predicate list.
func (in *Interner) FoldPreds(f Folder, id PredsID) PredsID {
	preds := in.Preds(id)
	for i, p := range preds {
		p.Args = in.FoldArgs(f, p.Args)
		if p.Kind == PredProjection {
			p.Term = in.foldArg(f, p.Term)
		}
		preds[i] = p
	}
	return in.MkPreds(preds)
}

func foldRegion(f Folder, r Region) Region {
	if rf, ok := f.(RegionFolder); ok {
		return rf.FoldRegion(r)
	}
	return r
}

// eraser replaces every free region with Erased.
type eraser struct{ in *Interner }

func (e eraser) FoldTy(id TypeID) TypeID { return e.in.SuperFold(e, id) }

func (e eraser) FoldRegion(r Region) Region {
	if r.Kind == RegionBound {
		return r
	}
	return Erased
}

// EraseRegions replaces free regions in id with the erased region. Bound
// regions of fn pointer binders are kept.
func (in *Interner) EraseRegions(id TypeID) TypeID {
	return eraser{in: in}.FoldTy(id)
}

// EraseRegionsArgs erases free regions in an argument list.
func (in *Interner) EraseRegionsArgs(id ArgsID) ArgsID {
	return in.FoldArgs(eraser{in: in}, id)
}
