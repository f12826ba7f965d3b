package types

// Declaration helpers register a definition together with its generics and
// item record. Parameters are declared by name; type parameters get
// Param(index) types, the Self parameter of traits included.

// TypeParams builds type parameter declarations.
func TypeParams(names ...string) []GenericParamDef {
	out := make([]GenericParamDef, len(names))
	for i, n := range names {
		out[i] = GenericParamDef{Name: n, Kind: ArgType}
	}
	return out
}

// DeclareAdt registers a struct, enum or union under parent.
func (in *Interner) DeclareAdt(parent DefID, name string, params []GenericParamDef, adt AdtDef) DefID {
	kind := DefStruct
	switch adt.Kind {
	case AdtEnum:
		kind = DefEnum
	case AdtUnion:
		kind = DefUnion
	}
	def := in.RegisterDef(parent, kind, PathTypeNs, name)
	in.SetGenerics(def, NoDefID, params)
	in.SetAdt(def, adt)
	return def
}

// DeclareForeignMod registers an extern block under parent.
func (in *Interner) DeclareForeignMod(parent DefID) DefID {
	return in.RegisterDef(parent, DefForeignMod, PathForeignMod, "")
}

// DeclareForeign registers an extern type inside an extern block.
func (in *Interner) DeclareForeign(block DefID, name string, f ForeignDef) DefID {
	def := in.RegisterDef(block, DefForeignTy, PathTypeNs, name)
	in.SetForeign(def, f)
	return def
}

// DeclareTrait registers a trait whose generics are Self followed by params.
func (in *Interner) DeclareTrait(parent DefID, name string, params []GenericParamDef, tr TraitDef) DefID {
	def := in.RegisterDef(parent, DefTrait, PathTypeNs, name)
	all := append([]GenericParamDef{{Name: "Self", Kind: ArgType}}, params...)
	in.SetGenerics(def, NoDefID, all)
	in.SetTrait(def, tr)
	return def
}

// SelfParam returns the Self type of a trait.
func (in *Interner) SelfParam() TypeID {
	return in.Param(0, "Self")
}

// DeclareAssocTy registers an associated type of a trait.
func (in *Interner) DeclareAssocTy(trait DefID, name string) DefID {
	def := in.RegisterDef(trait, DefAssocTy, PathTypeNs, name)
	in.SetGenerics(def, trait, nil)
	in.SetAssocItem(AssocItem{Def: def, Kind: AssocTy, Container: trait})
	return def
}

// DeclareTraitFn registers a required method of a trait.
func (in *Interner) DeclareTraitFn(trait DefID, name string, params []GenericParamDef, sig FnSig, vtableSafe bool) DefID {
	def := in.RegisterDef(trait, DefAssocFn, PathValueNs, name)
	in.SetGenerics(def, trait, params)
	in.SetFnSig(def, sig)
	in.SetAssocItem(AssocItem{Def: def, Kind: AssocFn, Container: trait, VtableSafe: vtableSafe})
	return def
}

// DeclareImpl registers an impl block. trait.Def is NoDefID for inherent impls.
func (in *Interner) DeclareImpl(parent DefID, params []GenericParamDef, trait TraitRef, self TypeID) DefID {
	def := in.RegisterDef(parent, DefImpl, PathImpl, "")
	in.SetGenerics(def, NoDefID, params)
	in.SetImpl(def, ImplDef{Trait: trait, Self: self})
	return def
}

// DeclareImplFn registers a method of an impl; traitItem is NoDefID for
// inherent methods.
func (in *Interner) DeclareImplFn(impl DefID, name string, params []GenericParamDef, sig FnSig, traitItem DefID) DefID {
	def := in.RegisterDef(impl, DefAssocFn, PathValueNs, name)
	in.SetGenerics(def, impl, params)
	in.SetFnSig(def, sig)
	in.SetAssocItem(AssocItem{Def: def, Kind: AssocFn, Container: impl, TraitItem: traitItem})
	return def
}

// DeclareImplTy binds an associated type in an impl.
func (in *Interner) DeclareImplTy(impl DefID, traitItem DefID, value TypeID) DefID {
	def := in.RegisterDef(impl, DefAssocTy, PathTypeNs, in.ItemName(traitItem))
	in.SetGenerics(def, impl, nil)
	in.SetAssocItem(AssocItem{Def: def, Kind: AssocTy, Container: impl, TraitItem: traitItem, Value: value})
	return def
}

// DeclareFn registers a free fn.
func (in *Interner) DeclareFn(parent DefID, name string, params []GenericParamDef, sig FnSig) DefID {
	def := in.RegisterDef(parent, DefFn, PathValueNs, name)
	in.SetGenerics(def, NoDefID, params)
	in.SetFnSig(def, sig)
	return def
}

// DeclareClosure registers a closure defined in fn parent.
func (in *Interner) DeclareClosure(parent DefID, c ClosureDef) DefID {
	def := in.RegisterDef(parent, DefClosure, PathClosure, "")
	in.SetGenerics(def, parent, nil)
	in.SetClosure(def, c)
	return def
}

// DeclareCoroutineClosure registers an async closure defined in fn parent.
func (in *Interner) DeclareCoroutineClosure(parent DefID, c ClosureDef) DefID {
	def := in.RegisterDef(parent, DefCoroutineClosure, PathClosure, "")
	in.SetGenerics(def, parent, nil)
	in.SetClosure(def, c)
	return def
}

// DeclareCoroutine registers a coroutine defined in fn parent.
func (in *Interner) DeclareCoroutine(parent DefID, c CoroutineDef) DefID {
	def := in.RegisterDef(parent, DefCoroutine, PathClosure, "")
	in.SetGenerics(def, parent, nil)
	in.SetCoroutine(def, c)
	return def
}

// DeclareTyAlias registers `type name<params> = target`.
func (in *Interner) DeclareTyAlias(parent DefID, name string, params []GenericParamDef, target TypeID) DefID {
	def := in.RegisterDef(parent, DefTyAlias, PathTypeNs, name)
	in.SetGenerics(def, NoDefID, params)
	in.SetTyAlias(def, target)
	return def
}
