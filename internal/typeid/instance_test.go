package typeid_test

import (
	"errors"
	"strings"
	"testing"

	"cfityid/internal/abi"
	"cfityid/internal/typeid"
	"cfityid/internal/types"
)

func (f *fixture) instanceID(t *testing.T, inst types.Instance, opts typeid.Options) string {
	t.Helper()
	id, err := typeid.ForInstance(f.cx, inst, opts)
	if err != nil {
		t.Fatalf("ForInstance(%s): %v", f.in.FormatInstance(inst), err)
	}
	return id
}

type traitFixture struct {
	*fixture
	point    types.TypeID
	foo      types.DefID
	fooM     types.DefID
	implFooM types.DefID
}

// newTraitFixture declares
//
//	struct Point(i32, i32);
//	trait Foo { fn foo(&self, x: i32); }
//	impl Foo for Point { fn foo(&self, x: i32) {} }
func newTraitFixture(t *testing.T) *traitFixture {
	f := &traitFixture{fixture: newFixture(t)}
	in, b := f.in, f.b
	f.point = in.Adt(f.structDef("Point", types.Repr{}, b.I32, b.I32), types.EmptyArgs)
	f.foo = in.DeclareTrait(f.root, "Foo", nil, types.TraitDef{ObjectSafe: true})
	f.fooM = in.DeclareTraitFn(f.foo, "foo", nil, types.FnSig{
		Inputs: args(in.Ref(types.Erased, in.SelfParam(), false), b.I32),
		Output: b.Unit,
	}, true)
	impl := in.DeclareImpl(f.root, nil, types.TraitRef{Def: f.foo, Args: in.MkTypeArgs(f.point)}, f.point)
	f.implFooM = in.DeclareImplFn(impl, "foo", nil, types.FnSig{
		Inputs: args(in.Ref(types.Erased, f.point, false), b.I32),
		Output: b.Unit,
	}, f.fooM)
	return f
}

func TestForInstanceImplMatchesVirtualCall(t *testing.T) {
	f := newTraitFixture(t)
	in := f.in

	impl := f.instanceID(t, types.ItemInstance(f.implFooM, types.EmptyArgs), typeid.Options{})
	virtual := f.instanceID(t, types.VirtualInstance(f.fooM, 3, in.MkTypeArgs(f.point)), typeid.Options{})
	if impl != virtual {
		t.Fatalf("impl %q != virtual call %q", impl, virtual)
	}
	want := "_ZTSFvu3refIu3dynIu14NtCs0_3app3Foou6regionEEu3i32E"
	if impl != want {
		t.Fatalf("impl id = %q, want %q", impl, want)
	}

	concrete := f.instanceID(t, types.ItemInstance(f.implFooM, types.EmptyArgs), typeid.Options{UseConcreteSelf: true})
	if concrete != "_ZTSFvu3refIu16NtCs0_3app5PointEu3i32E" {
		t.Fatalf("concrete self id = %q", concrete)
	}
}

func TestForInstanceStripsAutoTraits(t *testing.T) {
	f := newTraitFixture(t)
	in := f.in

	plain := f.instanceID(t, types.VirtualInstance(f.fooM, 0, in.MkTypeArgs(f.point)), typeid.Options{})
	dynSend := in.Dynamic([]types.ExistentialPredicate{
		types.TraitPred(f.foo, types.EmptyArgs),
		types.AutoTraitPred(f.core.Send),
	}, types.Erased, types.Dyn)
	withSend := f.instanceID(t, types.VirtualInstance(f.fooM, 0, in.MkTypeArgs(dynSend)), typeid.Options{})
	if plain != withSend {
		t.Fatalf("auto traits not stripped: %q vs %q", plain, withSend)
	}
}

func TestForInstanceAssociatedTypes(t *testing.T) {
	f := newFixture(t)
	in, b := f.in, f.b
	point := in.Adt(f.structDef("Point", types.Repr{}, b.F64), types.EmptyArgs)
	shape := in.DeclareTrait(f.root, "Shape", nil, types.TraitDef{ObjectSafe: true})
	area := in.DeclareAssocTy(shape, "Area")
	areaFn := in.DeclareTraitFn(shape, "area", nil, types.FnSig{
		Inputs: args(in.Ref(types.Erased, in.SelfParam(), false)),
		Output: in.Alias(area, in.MkTypeArgs(in.SelfParam())),
	}, true)
	impl := in.DeclareImpl(f.root, nil, types.TraitRef{Def: shape, Args: in.MkTypeArgs(point)}, point)
	in.DeclareImplTy(impl, area, b.F64)
	implArea := in.DeclareImplFn(impl, "area", nil, types.FnSig{
		Inputs: args(in.Ref(types.Erased, point, false)),
		Output: b.F64,
	}, areaFn)

	got := f.instanceID(t, types.ItemInstance(implArea, types.EmptyArgs), typeid.Options{})
	virtual := f.instanceID(t, types.VirtualInstance(areaFn, 0, in.MkTypeArgs(point)), typeid.Options{})
	if got != virtual {
		t.Fatalf("impl %q != virtual %q", got, virtual)
	}
	// dyn Shape<Area = f64>
	want := "_ZTSFdu3refIu3dynIu16NtCs0_3app5Shapeu23NtNtCs0_3app5Shape4Areadu6regionEEE"
	if got != want {
		t.Fatalf("id = %q, want %q", got, want)
	}
}

func TestForInstanceDropGlue(t *testing.T) {
	f := newTraitFixture(t)
	in, b := f.in, f.b

	a := f.instanceID(t, types.DropGlueInstance(f.core.DropInPlace, f.point, in.MkTypeArgs(f.point)), typeid.Options{})
	c := f.instanceID(t, types.DropGlueInstance(f.core.DropInPlace, b.U32, in.MkTypeArgs(b.U32)), typeid.Options{})
	v := f.instanceID(t, types.VirtualInstance(f.core.DropInPlace, 0, in.MkTypeArgs(f.point)), typeid.Options{})
	if a != c || a != v {
		t.Fatalf("destructor ids differ: %q %q %q", a, c, v)
	}
	if !strings.HasPrefix(a, "_ZTSFvPu3dynI") || !strings.Contains(a, "4Drop") {
		t.Fatalf("drop glue id = %q", a)
	}
}

func TestForInstanceClosureMatchesDynFn(t *testing.T) {
	f := newFixture(t)
	in, b := f.in, f.b
	outer := in.DeclareFn(f.root, "outer", nil, types.FnSig{Output: b.Unit})
	closure := in.DeclareClosure(outer, types.ClosureDef{
		Kind:   types.ClosureFn,
		Inputs: args(b.I32),
		Output: b.I32,
	})

	got := f.instanceID(t, types.ItemInstance(closure, types.EmptyArgs), typeid.Options{})

	tupled := in.Tuple(b.I32)
	dynFn := in.Dynamic([]types.ExistentialPredicate{
		types.TraitPred(f.core.Fn, in.MkTypeArgs(tupled)),
		types.ProjectionPred(f.core.FnOnceOutput, in.MkTypeArgs(tupled), types.TypeArg(b.I32)),
	}, types.Erased, types.Dyn)
	viaDyn := f.instanceID(t, types.VirtualInstance(f.core.Call, 0, in.MkTypeArgs(dynFn, tupled)), typeid.Options{})
	if got != viaDyn {
		t.Fatalf("closure %q != dyn Fn call %q", got, viaDyn)
	}
	if !strings.HasPrefix(got, "_ZTSFu3i32u3refIu3dynI") || !strings.HasSuffix(got, "S_E") {
		t.Fatalf("closure id = %q", got)
	}
}

func TestForInstanceCoroutines(t *testing.T) {
	f := newFixture(t)
	in, b := f.in, f.b
	outer := in.DeclareFn(f.root, "outer", nil, types.FnSig{Output: b.Unit})
	fut := in.DeclareCoroutine(outer, types.CoroutineDef{Kind: types.CoroutineAsync, Return: b.U8})
	gen := in.DeclareCoroutine(outer, types.CoroutineDef{Kind: types.CoroutineGen, Yield: b.U16})
	plain := in.DeclareCoroutine(outer, types.CoroutineDef{Kind: types.CoroutinePlain, Resume: b.I8, Yield: b.U16, Return: b.U8})

	for name, def := range map[string]types.DefID{"async": fut, "gen": gen, "plain": plain} {
		id := f.instanceID(t, types.ItemInstance(def, types.EmptyArgs), typeid.Options{})
		if !strings.HasPrefix(id, "_ZTSF") || !strings.Contains(id, "u3dynI") {
			t.Fatalf("%s coroutine id = %q", name, id)
		}
	}

	futID := f.instanceID(t, types.ItemInstance(fut, types.EmptyArgs), typeid.Options{})
	dynFuture := in.Dynamic([]types.ExistentialPredicate{
		types.TraitPred(f.core.Future, types.EmptyArgs),
		types.ProjectionPred(f.core.FutureOutput, types.EmptyArgs, types.TypeArg(b.U8)),
	}, types.Erased, types.Dyn)
	viaDyn := f.instanceID(t, types.VirtualInstance(f.core.PollFn, 0, in.MkTypeArgs(dynFuture)), typeid.Options{})
	if futID != viaDyn {
		t.Fatalf("async body %q != dyn Future poll %q", futID, viaDyn)
	}
}

func TestForInstanceFreeFn(t *testing.T) {
	f := newFixture(t)
	in, b := f.in, f.b
	add := in.DeclareFn(f.root, "add", nil, types.FnSig{Inputs: args(b.I32, b.I32), Output: b.I32})
	if got := f.instanceID(t, types.ItemInstance(add, types.EmptyArgs), typeid.Options{}); got != "_ZTSFu3i32S_S_E" {
		t.Fatalf("free fn id = %q", got)
	}

	generic := in.DeclareFn(f.root, "id", types.TypeParams("T"), types.FnSig{Inputs: args(in.Param(0, "T")), Output: in.Param(0, "T")})
	if got := f.instanceID(t, types.ItemInstance(generic, in.MkTypeArgs(b.U64)), typeid.Options{}); got != "_ZTSFu3u64S_E" {
		t.Fatalf("instantiated generic fn id = %q", got)
	}

	cfn := in.DeclareFn(f.root, "puts", nil, types.FnSig{Inputs: args(b.Unit, b.I32), Output: b.Unit, Abi: types.AbiC})
	if got := f.instanceID(t, types.ItemInstance(cfn, types.EmptyArgs), typeid.Options{}); got != "_ZTSFvvu3i32E" {
		t.Fatalf("C fn keeps zero-sized args, got %q", got)
	}
}

func TestForInstanceWithoutSignature(t *testing.T) {
	f := newFixture(t)
	mod := f.in.EnsureModule(f.krate, "net")
	_, err := typeid.ForInstance(f.cx, types.ItemInstance(mod, types.EmptyArgs), typeid.Options{})
	if !errors.Is(err, abi.ErrNoSignature) {
		t.Fatalf("expected ErrNoSignature, got %v", err)
	}
}

func TestForInstanceCanonicalForms(t *testing.T) {
	tests := []struct {
		name string
		// ids returns the identifier under test and the one it must equal.
		ids  func(t *testing.T, f *traitFixture) (got, want string)
	}{
		{
			name: "vtable shim takes *mut dyn Trait",
			ids: func(t *testing.T, f *traitFixture) (string, string) {
				in, b := f.in, f.b
				consume := in.DeclareTraitFn(f.foo, "consume", nil, types.FnSig{
					Inputs: args(in.SelfParam(), b.I32),
					Output: b.Unit,
				}, true)
				shim := func(self types.TypeID) types.Instance {
					return types.Instance{
						Def:  types.InstanceDef{Kind: types.InstanceVTableShim, Def: consume},
						Args: in.MkTypeArgs(self),
					}
				}
				got := f.instanceID(t, shim(f.point), typeid.Options{})
				if other := f.instanceID(t, shim(b.U32), typeid.Options{}); other != got {
					t.Fatalf("shim ids depend on self: %q vs %q", got, other)
				}
				return got, "_ZTSFvPu3dynIu14NtCs0_3app3Foou6regionEu3i32E"
			},
		},
		{
			name: "coroutine closure becomes dyn FnOnce",
			ids: func(t *testing.T, f *traitFixture) (string, string) {
				in, b := f.in, f.b
				outer := in.DeclareFn(f.root, "outer", nil, types.FnSig{Output: b.Unit})
				async := in.DeclareCoroutineClosure(outer, types.ClosureDef{
					Kind:   types.ClosureFn,
					Inputs: args(b.I32),
					Output: b.U8,
				})
				once := in.DeclareClosure(outer, types.ClosureDef{
					Kind:   types.ClosureFnOnce,
					Inputs: args(b.I32),
					Output: b.U8,
				})
				got := f.instanceID(t, types.ItemInstance(async, types.EmptyArgs), typeid.Options{})

				tupled := in.Tuple(b.I32)
				dynFnOnce := in.Dynamic([]types.ExistentialPredicate{
					types.TraitPred(f.core.FnOnce, in.MkTypeArgs(tupled)),
					types.ProjectionPred(f.core.FnOnceOutput, in.MkTypeArgs(tupled), types.TypeArg(b.U8)),
				}, types.Erased, types.Dyn)
				viaDyn := f.instanceID(t, types.VirtualInstance(f.core.CallOnce, 0, in.MkTypeArgs(dynFnOnce, tupled)), typeid.Options{})
				if got != viaDyn {
					t.Fatalf("coroutine closure %q != dyn FnOnce call %q", got, viaDyn)
				}
				return got, f.instanceID(t, types.ItemInstance(once, types.EmptyArgs), typeid.Options{})
			},
		},
		{
			name: "drop through dyn Send is dyn Drop",
			ids: func(t *testing.T, f *traitFixture) (string, string) {
				in := f.in
				dynSend := in.Dynamic([]types.ExistentialPredicate{types.AutoTraitPred(f.core.Send)}, types.Erased, types.Dyn)
				got := f.instanceID(t, types.VirtualInstance(f.core.DropInPlace, 0, in.MkTypeArgs(dynSend)), typeid.Options{})
				return got, f.instanceID(t, types.DropGlueInstance(f.core.DropInPlace, f.point, in.MkTypeArgs(f.point)), typeid.Options{})
			},
		},
		{
			name: "receiver without principal becomes unit",
			ids: func(t *testing.T, f *traitFixture) (string, string) {
				in, b := f.in, f.b
				param := in.Param(0, "T")
				generic := in.DeclareFn(f.root, "take", types.TypeParams("T"), types.FnSig{Inputs: args(param), Output: b.Unit})
				dynSend := in.Dynamic([]types.ExistentialPredicate{types.AutoTraitPred(f.core.Send)}, types.Erased, types.Dyn)
				got := f.instanceID(t, types.VirtualInstance(generic, 0, in.MkTypeArgs(dynSend)), typeid.Options{})
				if want := f.instanceID(t, types.ItemInstance(generic, in.MkTypeArgs(b.Unit)), typeid.Options{}); got != want {
					t.Fatalf("virtual over dyn Send %q != call with unit %q", got, want)
				}
				return got, "_ZTSFvvE"
			},
		},
		{
			name: "normalized and generalized suffixes",
			ids: func(t *testing.T, f *traitFixture) (string, string) {
				in, b := f.in, f.b
				sig := types.FnSig{Inputs: args(in.RawPtr(b.U8, true)), Output: b.Unit}
				got := f.sigID(t, sig, typeid.Options{NormalizeIntegers: true, GeneralizePointers: true})
				return got, "_ZTSFvPvE.normalized.generalized"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTraitFixture(t)
			got, want := tt.ids(t, f)
			if got != want {
				t.Fatalf("id = %q, want %q", got, want)
			}
			if f.bag.HasErrors() {
				t.Fatalf("unexpected diagnostics: %+v", f.bag.Items())
			}
		})
	}
}
