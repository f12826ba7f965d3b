package typeid

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"cfityid/internal/types"
)

// canonicalize rewrites an instance so that callees and the virtual call
// sites that may reach them agree on one signature: destructors take
// `dyn Drop`, vtable entries take the trait object of their trait, and
// (unless concrete self is requested) trait impl methods and closure-likes
// are expressed as calls through their trait.
func canonicalize(in *types.Interner, inst types.Instance, opts Options) types.Instance {
	def := inst.Def.Def
	switch {
	case inst.Def.Kind == types.InstanceDropGlue,
		inst.Def.Kind == types.InstanceVirtual && in.IsLangItem(def, types.LangDropInPlace):
		// Any destructor matches the destructor of any other type.
		drop, ok := in.LangItem(types.LangDrop)
		if !ok {
			bug("canonicalize", "missing Drop lang item")
		}
		pred := types.TraitPred(drop, types.EmptyArgs)
		self := in.Dynamic([]types.ExistentialPredicate{pred}, types.Erased, types.Dyn)
		inst.Args = in.MkArgsTrait(self, nil)

	case inst.Def.Kind == types.InstanceVirtual:
		args := in.Args(inst.Args)
		var upcast types.TypeID
		if trait, ok := in.TraitOfItem(def); ok {
			upcast = traitObjectTy(in, traitRefFromMethod(in, trait, args))
		} else {
			upcast = selfTypeOf(args)
		}
		inst.Args = in.MkArgsTrait(stripReceiverAuto(in, upcast), args[1:])

	case inst.Def.Kind == types.InstanceVTableShim:
		if trait, ok := in.TraitOfItem(def); ok {
			tr := traitRefFromMethod(in, trait, in.Args(inst.Args))
			invoke := traitObjectTy(in, tr)
			inst.Args = in.MkArgsTrait(invoke, in.Args(tr.Args)[1:])
		}
	}

	if opts.UseConcreteSelf {
		return inst
	}
	def = inst.Def.Def
	if impl, ok := in.ImplOfMethod(def); ok {
		if tr, ok := in.ImplTraitRef(impl); ok {
			return abstractImplMethod(in, inst, impl, tr)
		}
		return inst
	}
	if in.IsClosureLike(def) {
		return abstractClosure(in, inst)
	}
	return inst
}

// abstractImplMethod turns an impl method of an object-safe trait into the
// virtual call of the trait method it implements.
func abstractImplMethod(in *types.Interner, inst types.Instance, impl types.DefID, tr types.TraitRef) types.Instance {
	item, _ := in.AssocItem(inst.Def.Def)
	if item.TraitItem == types.NoDefID {
		bug("canonicalize", "impl method %s not linked to a trait method", in.DefPathString(inst.Def.Def))
	}
	if !in.IsVtableSafeMethod(tr.Def, item.TraitItem) || !in.IsObjectSafe(tr.Def) {
		return inst
	}

	tr = in.InstantiateTraitRef(tr, in.Args(inst.Args))
	norm, err := in.NormalizeArgs(tr.Args)
	if err != nil {
		bug("canonicalize", "trait ref of %s: %v", in.DefPathString(impl), err)
	}
	tr.Args = norm
	invoke := traitObjectTy(in, tr)

	// The vtable index is not part of the identifier.
	inst.Def = types.InstanceDef{Kind: types.InstanceVirtual, Def: item.TraitItem}
	abstract := in.MkArgsTrait(invoke, in.Args(tr.Args)[1:])
	inst.Args = in.RebaseArgs(inst.Args, in.GenericsOf(impl).Count(), in.Args(abstract))
	return inst
}

// abstractClosure turns a closure, coroutine or coroutine-closure body into
// the virtual call of the only method of the trait it is defined through.
func abstractClosure(in *types.Interner, inst types.Instance) types.Instance {
	def := inst.Def.Def
	args := in.Args(inst.Args)
	closureTy := in.TypeOfInstance(inst)

	var (
		trait  types.DefID
		inputs = types.NoTypeID
		ok     bool
	)
	switch in.KindOf(closureTy) {
	case types.KindClosure:
		cl, found := in.ClosureOf(def)
		if !found {
			bug("canonicalize", "closure %s without signature", in.DefPathString(def))
		}
		trait, ok = in.FnTraitOfKind(cl.Kind)
		inputs = in.EraseRegions(in.Instantiate(in.Tuple(cl.Inputs...), args))

	case types.KindCoroutine:
		co, found := in.CoroutineOf(def)
		if !found {
			bug("canonicalize", "coroutine %s without signature", in.DefPathString(def))
		}
		switch co.Kind {
		case types.CoroutineAsync:
			trait, ok = in.LangItem(types.LangFuture)
		case types.CoroutineGen:
			trait, ok = in.LangItem(types.LangIterator)
		case types.CoroutineAsyncGen:
			trait, ok = in.LangItem(types.LangAsyncIterator)
		default:
			trait, ok = in.LangItem(types.LangCoroutine)
			resume := co.Resume
			if resume == types.NoTypeID {
				resume = in.Builtins().Unit
			}
			inputs = in.EraseRegions(in.Instantiate(resume, args))
		}

	case types.KindCoroutineClosure:
		cl, found := in.ClosureOf(def)
		if !found {
			bug("canonicalize", "coroutine closure %s without signature", in.DefPathString(def))
		}
		trait, ok = in.LangItem(types.LangFnOnce)
		inputs = in.EraseRegions(in.Instantiate(in.Tuple(cl.Inputs...), args))

	default:
		bug("canonicalize", "%s type for closure-like %s", in.KindOf(closureTy), in.DefPathString(def))
	}
	if !ok {
		bug("canonicalize", "missing trait lang item for %s", in.DefPathString(def))
	}

	concrete := []types.GenericArg{types.TypeArg(closureTy)}
	if inputs != types.NoTypeID {
		concrete = append(concrete, types.TypeArg(inputs))
	}
	invoke := traitObjectTy(in, types.TraitRef{Def: trait, Args: in.MkArgs(concrete)})

	call := types.NoDefID
	for _, it := range in.AssocItemsOf(trait) {
		if it.Kind == types.AssocFn {
			call = it.Def
			break
		}
	}
	if call == types.NoDefID {
		bug("canonicalize", "trait %s has no call method", in.DefPathString(trait))
	}

	inst.Def = types.InstanceDef{Kind: types.InstanceVirtual, Def: call}
	inst.Args = in.MkArgsTrait(invoke, concrete[1:])
	return inst
}

// traitRefFromMethod takes the trait's share of a method's arguments.
func traitRefFromMethod(in *types.Interner, trait types.DefID, args []types.GenericArg) types.TraitRef {
	n := min(in.GenericsOf(trait).Count(), len(args))
	return types.TraitRef{Def: trait, Args: in.MkArgs(args[:n])}
}

func selfTypeOf(args []types.GenericArg) types.TypeID {
	if len(args) == 0 || args[0].Kind != types.ArgType {
		bug("canonicalize", "virtual call without a self type")
	}
	return args[0].Type
}

// traitObjectTy builds `dyn Trait<Args, Assoc = T, ..>` for a trait ref: the
// principal trait plus one projection for every associated type of the
// trait and its supertraits, resolved for the ref's self type.
func traitObjectTy(in *types.Interner, tr types.TraitRef) types.TypeID {
	if in.ArgsHaveNonRegionParam(tr.Args) {
		bug("traitObjectTy", "generic trait ref %s%s", in.DefPathString(tr.Def), in.FormatArgs(tr.Args))
	}
	tr.Args = in.EraseRegionsArgs(tr.Args)
	list := in.Args(tr.Args)
	if len(list) == 0 {
		bug("traitObjectTy", "trait ref %s without self", in.DefPathString(tr.Def))
	}
	principal := types.TraitPred(tr.Def, in.MkArgs(list[1:]))

	var assoc []types.ExistentialPredicate
	for _, sup := range in.Supertraits(tr) {
		supArgs := in.Args(sup.Args)
		for _, it := range in.AssocItemsOf(sup.Def) {
			if it.Kind != types.AssocTy {
				continue
			}
			alias := in.Alias(it.Def, sup.Args)
			resolved, err := in.NormalizeErasingRegions(alias)
			if err != nil {
				bug("traitObjectTy", "projection %s: %v", in.Format(alias), err)
			}
			if ce := Logger().Check(zap.DebugLevel, "resolved projection"); ce != nil {
				ce.Write(zap.String("alias", in.Format(alias)), zap.String("resolved", in.Format(resolved)))
			}
			assoc = append(assoc, types.ProjectionPred(it.Def, in.MkArgs(supArgs[1:]), types.TypeArg(resolved)))
		}
	}
	slices.SortStableFunc(assoc, func(a, b types.ExistentialPredicate) int {
		if c := cmp.Compare(in.DefPathString(a.Def), in.DefPathString(b.Def)); c != 0 {
			return c
		}
		return cmp.Compare(in.FormatArgs(a.Args), in.FormatArgs(b.Args))
	})

	preds := append([]types.ExistentialPredicate{principal}, assoc...)
	return in.Dynamic(preds, types.Erased, types.Dyn)
}

// stripReceiverAuto drops auto traits from a trait object receiver. Without a
// principal trait nothing is known about the receiver and it becomes unit.
func stripReceiverAuto(in *types.Interner, id types.TypeID) types.TypeID {
	tt := in.MustLookup(id)
	if tt.Kind != types.KindDynamic {
		bug("canonicalize", "auto trait strip of non-dynamic `%s`", in.Format(id))
	}
	preds := in.Preds(tt.Preds)
	if _, ok := types.Principal(preds); !ok {
		return in.Builtins().Unit
	}
	preds = slices.DeleteFunc(preds, func(p types.ExistentialPredicate) bool {
		return p.Kind == types.PredAutoTrait
	})
	return in.Dynamic(preds, tt.Region, tt.Dyn)
}
