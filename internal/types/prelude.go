package types

// CoreStableID is the stable crate id registered for the core crate.
const CoreStableID uint64 = 0x6c0f_e1a3_27d4_9b52

// Core holds the definitions installed by InstallCore.
type Core struct {
	Crate CrateNum

	Drop        DefID
	DropFn      DefID
	DropInPlace DefID

	FnOnce       DefID
	FnOnceOutput DefID
	CallOnce     DefID
	FnMut        DefID
	CallMut      DefID
	Fn           DefID
	Call         DefID

	Coroutine       DefID
	CoroutineYield  DefID
	CoroutineReturn DefID
	Resume          DefID
	CoroutineState  DefID

	Future       DefID
	FutureOutput DefID
	Poll         DefID
	PollFn       DefID
	Context      DefID

	Iterator          DefID
	IteratorItem      DefID
	Next              DefID
	AsyncIterator     DefID
	AsyncIteratorItem DefID
	PollNext          DefID

	Pin         DefID
	Option      DefID
	CVoid       DefID
	PhantomData DefID
	Send        DefID
	Sync        DefID
}

// InstallCore registers the `core` crate items the encoder and fn ABI rules
// depend on and binds their lang items. Call it once per interner.
func (in *Interner) InstallCore() *Core {
	c := &Core{Crate: in.RegisterCrate("core", CoreStableID)}
	self := in.SelfParam()
	unit := in.builtins.Unit

	// marker
	marker := in.EnsureModule(c.Crate, "marker")
	c.Send = in.DeclareTrait(marker, "Send", nil, TraitDef{Auto: true})
	c.Sync = in.DeclareTrait(marker, "Sync", nil, TraitDef{Auto: true})
	c.PhantomData = in.DeclareAdt(marker, "PhantomData", TypeParams("T"),
		AdtDef{Kind: AdtStruct, Variants: []VariantDef{{Name: "PhantomData"}}})

	// option, pin, ffi
	optionMod := in.EnsureModule(c.Crate, "option")
	t0 := in.Param(0, "T")
	c.Option = in.DeclareAdt(optionMod, "Option", TypeParams("T"), AdtDef{
		Kind: AdtEnum,
		Variants: []VariantDef{
			{Name: "None"},
			{Name: "Some", Fields: []FieldDef{{Name: "0", Ty: t0}}},
		},
	})
	pinMod := in.EnsureModule(c.Crate, "pin")
	c.Pin = in.DeclareAdt(pinMod, "Pin", TypeParams("Ptr"), AdtDef{
		Kind:     AdtStruct,
		Repr:     Repr{Transparent: true},
		Variants: []VariantDef{{Name: "Pin", Fields: []FieldDef{{Name: "pointer", Ty: in.Param(0, "Ptr")}}}},
	})
	ffi := in.EnsureModule(c.Crate, "ffi")
	c.CVoid = in.DeclareAdt(ffi, "c_void", nil, AdtDef{
		Kind:     AdtEnum,
		Variants: []VariantDef{{Name: "__variant1"}, {Name: "__variant2"}},
	})

	pinMutSelf := in.Adt(c.Pin, in.MkTypeArgs(in.Ref(Erased, self, true)))

	// drop
	dropMod := in.EnsureModule(c.Crate, "ops", "drop")
	c.Drop = in.DeclareTrait(dropMod, "Drop", nil, TraitDef{ObjectSafe: true})
	c.DropFn = in.DeclareTraitFn(c.Drop, "drop", nil,
		FnSig{Inputs: []TypeID{in.Ref(Erased, self, true)}, Output: unit}, true)
	ptrMod := in.EnsureModule(c.Crate, "ptr")
	c.DropInPlace = in.DeclareFn(ptrMod, "drop_in_place", TypeParams("T"),
		FnSig{Inputs: []TypeID{in.RawPtr(t0, true)}, Output: unit})

	// Fn family
	fnMod := in.EnsureModule(c.Crate, "ops", "function")
	argsParam := TypeParams("Args")
	fnArgs := in.Param(1, "Args")
	c.FnOnce = in.DeclareTrait(fnMod, "FnOnce", argsParam, TraitDef{ObjectSafe: true})
	c.FnOnceOutput = in.DeclareAssocTy(c.FnOnce, "Output")
	output := in.Alias(c.FnOnceOutput, in.MkTypeArgs(self, fnArgs))
	c.CallOnce = in.DeclareTraitFn(c.FnOnce, "call_once", nil,
		FnSig{Inputs: []TypeID{self, fnArgs}, Output: output, Abi: AbiRustCall}, true)

	selfArgs := in.MkTypeArgs(self, fnArgs)
	c.FnMut = in.DeclareTrait(fnMod, "FnMut", argsParam, TraitDef{
		ObjectSafe:  true,
		Supertraits: []TraitRef{{Def: c.FnOnce, Args: selfArgs}},
	})
	c.CallMut = in.DeclareTraitFn(c.FnMut, "call_mut", nil,
		FnSig{Inputs: []TypeID{in.Ref(Erased, self, true), fnArgs}, Output: output, Abi: AbiRustCall}, true)
	c.Fn = in.DeclareTrait(fnMod, "Fn", argsParam, TraitDef{
		ObjectSafe:  true,
		Supertraits: []TraitRef{{Def: c.FnMut, Args: selfArgs}},
	})
	c.Call = in.DeclareTraitFn(c.Fn, "call", nil,
		FnSig{Inputs: []TypeID{in.Ref(Erased, self, false), fnArgs}, Output: output, Abi: AbiRustCall}, true)

	// coroutines
	coMod := in.EnsureModule(c.Crate, "ops", "coroutine")
	y, r := in.Param(0, "Y"), in.Param(1, "R")
	c.CoroutineState = in.DeclareAdt(coMod, "CoroutineState", TypeParams("Y", "R"), AdtDef{
		Kind: AdtEnum,
		Variants: []VariantDef{
			{Name: "Yielded", Fields: []FieldDef{{Name: "0", Ty: y}}},
			{Name: "Complete", Fields: []FieldDef{{Name: "0", Ty: r}}},
		},
	})
	c.Coroutine = in.DeclareTrait(coMod, "Coroutine", TypeParams("R"), TraitDef{ObjectSafe: true})
	c.CoroutineYield = in.DeclareAssocTy(c.Coroutine, "Yield")
	c.CoroutineReturn = in.DeclareAssocTy(c.Coroutine, "Return")
	selfR := in.MkTypeArgs(self, r)
	c.Resume = in.DeclareTraitFn(c.Coroutine, "resume", nil, FnSig{
		Inputs: []TypeID{pinMutSelf, r},
		Output: in.Adt(c.CoroutineState, in.MkTypeArgs(
			in.Alias(c.CoroutineYield, selfR),
			in.Alias(c.CoroutineReturn, selfR),
		)),
	}, true)

	// task
	taskMod := in.EnsureModule(c.Crate, "task", "wake")
	c.Context = in.DeclareAdt(taskMod, "Context", []GenericParamDef{{Name: "'a", Kind: ArgRegion}}, AdtDef{
		Kind:     AdtStruct,
		Variants: []VariantDef{{Name: "Context", Fields: []FieldDef{{Name: "waker", Ty: in.RawPtr(unit, false)}}}},
	})
	pollMod := in.EnsureModule(c.Crate, "task", "poll")
	c.Poll = in.DeclareAdt(pollMod, "Poll", TypeParams("T"), AdtDef{
		Kind: AdtEnum,
		Variants: []VariantDef{
			{Name: "Ready", Fields: []FieldDef{{Name: "0", Ty: t0}}},
			{Name: "Pending"},
		},
	})
	cxRef := in.Ref(Erased, in.Adt(c.Context, in.MkArgs([]GenericArg{RegionArg(Erased)})), true)

	futMod := in.EnsureModule(c.Crate, "future", "future")
	c.Future = in.DeclareTrait(futMod, "Future", nil, TraitDef{ObjectSafe: true})
	c.FutureOutput = in.DeclareAssocTy(c.Future, "Output")
	c.PollFn = in.DeclareTraitFn(c.Future, "poll", nil, FnSig{
		Inputs: []TypeID{pinMutSelf, cxRef},
		Output: in.Adt(c.Poll, in.MkTypeArgs(in.Alias(c.FutureOutput, in.MkTypeArgs(self)))),
	}, true)

	iterMod := in.EnsureModule(c.Crate, "iter", "traits", "iterator")
	c.Iterator = in.DeclareTrait(iterMod, "Iterator", nil, TraitDef{ObjectSafe: true})
	c.IteratorItem = in.DeclareAssocTy(c.Iterator, "Item")
	c.Next = in.DeclareTraitFn(c.Iterator, "next", nil, FnSig{
		Inputs: []TypeID{in.Ref(Erased, self, true)},
		Output: in.Adt(c.Option, in.MkTypeArgs(in.Alias(c.IteratorItem, in.MkTypeArgs(self)))),
	}, true)

	asyncIterMod := in.EnsureModule(c.Crate, "async_iter", "async_iter")
	c.AsyncIterator = in.DeclareTrait(asyncIterMod, "AsyncIterator", nil, TraitDef{ObjectSafe: true})
	c.AsyncIteratorItem = in.DeclareAssocTy(c.AsyncIterator, "Item")
	item := in.Alias(c.AsyncIteratorItem, in.MkTypeArgs(self))
	c.PollNext = in.DeclareTraitFn(c.AsyncIterator, "poll_next", nil, FnSig{
		Inputs: []TypeID{pinMutSelf, cxRef},
		Output: in.Adt(c.Poll, in.MkTypeArgs(in.Adt(c.Option, in.MkTypeArgs(item)))),
	}, true)

	for li, def := range map[LangItem]DefID{
		LangDrop:           c.Drop,
		LangDropInPlace:    c.DropInPlace,
		LangFnOnce:         c.FnOnce,
		LangFnMut:          c.FnMut,
		LangFn:             c.Fn,
		LangFnOnceOutput:   c.FnOnceOutput,
		LangCoroutine:      c.Coroutine,
		LangCoroutineState: c.CoroutineState,
		LangFuture:         c.Future,
		LangFutureOutput:   c.FutureOutput,
		LangIterator:       c.Iterator,
		LangAsyncIterator:  c.AsyncIterator,
		LangPin:            c.Pin,
		LangPoll:           c.Poll,
		LangOption:         c.Option,
		LangContext:        c.Context,
		LangCVoid:          c.CVoid,
	} {
		in.SetLangItem(li, def)
	}
	return c
}
