package types

// Walk visits id and every type reachable from it in preorder. Returning
// false from fn skips the children of the current type.
func (in *Interner) Walk(id TypeID, fn func(TypeID) bool) {
	if !fn(id) {
		return
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return
	}
	switch tt.Kind {
	case KindTuple, KindAdt, KindFnDef, KindClosure, KindCoroutine,
		KindCoroutineClosure, KindCoroutineWitness, KindAlias:
		in.walkArgs(tt.Args, fn)
	case KindArray, KindSlice, KindPat, KindRef, KindRawPtr:
		in.Walk(tt.Elem, fn)
	case KindFnPtr:
		sig := in.Sig(tt.Sig)
		for _, p := range sig.Inputs {
			in.Walk(p, fn)
		}
		in.Walk(sig.Output, fn)
	case KindDynamic:
		for _, p := range in.Preds(tt.Preds) {
			in.walkArgs(p.Args, fn)
			if p.Kind == PredProjection {
				in.walkArg(p.Term, fn)
			}
		}
	}
}

func (in *Interner) walkArgs(id ArgsID, fn func(TypeID) bool) {
	for _, a := range in.Args(id) {
		in.walkArg(a, fn)
	}
}

func (in *Interner) walkArg(a GenericArg, fn func(TypeID) bool) {
	switch a.Kind {
	case ArgType:
		in.Walk(a.Type, fn)
	case ArgConst:
		if a.Const.Ty != NoTypeID {
			in.Walk(a.Const.Ty, fn)
		}
	}
}

// Contains reports whether target occurs anywhere within id, id included.
func (in *Interner) Contains(id, target TypeID) bool {
	found := false
	in.Walk(id, func(t TypeID) bool {
		if t == target {
			found = true
		}
		return !found
	})
	return found
}

// HasNonRegionParam reports type or const generic parameters within id.
func (in *Interner) HasNonRegionParam(id TypeID) bool {
	found := false
	in.Walk(id, func(t TypeID) bool {
		if in.KindOf(t) == KindParam {
			found = true
		}
		return !found
	})
	return found
}

// ArgsHaveNonRegionParam reports type or const parameters within args.
func (in *Interner) ArgsHaveNonRegionParam(id ArgsID) bool {
	for _, a := range in.Args(id) {
		switch a.Kind {
		case ArgType:
			if in.HasNonRegionParam(a.Type) {
				return true
			}
		case ArgConst:
			if a.Const.Kind == ConstParam {
				return true
			}
		}
	}
	return false
}
