package types

import (
	"errors"
	"testing"
)

func TestInstantiateReplacesParams(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	param := in.Param(0, "T")
	ref := in.Ref(EarlyParamRegion(1), in.Slice(param), false)
	got := in.Instantiate(ref, []GenericArg{TypeArg(b.U16), RegionArg(Static)})
	want := in.Ref(Static, in.Slice(b.U16), false)
	if got != want {
		t.Fatalf("Instantiate = %s, want %s", in.Format(got), in.Format(want))
	}
	if in.Instantiate(param, nil) != param {
		t.Fatalf("empty args must leave params in place")
	}
}

func TestNormalizeTyAlias(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	krate := in.RegisterCrate("app", 7)
	root := in.CrateRoot(krate)
	alias := in.DeclareTyAlias(root, "Pair", TypeParams("T"), in.Tuple(in.Param(0, "T"), in.Param(0, "T")))

	got, err := in.NormalizeErasingRegions(in.Ref(Static, in.Alias(alias, in.MkTypeArgs(b.I8)), false))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := in.Ref(Erased, in.Tuple(b.I8, b.I8), false)
	if got != want {
		t.Fatalf("normalize = %s, want %s", in.Format(got), in.Format(want))
	}
}

func TestNormalizeProjectionThroughImpl(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	core := in.InstallCore()
	krate := in.RegisterCrate("app", 7)
	root := in.CrateRoot(krate)
	wrapper := in.DeclareAdt(root, "Wrapper", TypeParams("T"), AdtDef{
		Kind:     AdtStruct,
		Variants: []VariantDef{{Fields: []FieldDef{{Name: "0", Ty: in.Param(0, "T")}}}},
	})
	tParam := in.Param(0, "T")
	selfTy := in.Adt(wrapper, in.MkTypeArgs(tParam))
	impl := in.DeclareImpl(root, TypeParams("T"), TraitRef{Def: core.Iterator, Args: in.MkTypeArgs(selfTy)}, selfTy)
	in.DeclareImplTy(impl, core.IteratorItem, in.Ref(Static, tParam, false))

	concrete := in.Adt(wrapper, in.MkTypeArgs(b.U32))
	got, err := in.NormalizeErasingRegions(in.Alias(core.IteratorItem, in.MkTypeArgs(concrete)))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := in.Ref(Erased, b.U32, false); got != want {
		t.Fatalf("normalize = %s, want %s", in.Format(got), in.Format(want))
	}

	_, err = in.NormalizeErasingRegions(in.Alias(core.IteratorItem, in.MkTypeArgs(b.U32)))
	if !errors.Is(err, ErrCannotNormalize) {
		t.Fatalf("expected ErrCannotNormalize, got %v", err)
	}
}

func TestNormalizeProjectionOnTraitObject(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	core := in.InstallCore()
	inputs := in.Tuple(b.I32)
	dyn := in.Dynamic([]ExistentialPredicate{
		TraitPred(core.Fn, in.MkTypeArgs(inputs)),
		ProjectionPred(core.FnOnceOutput, in.MkTypeArgs(inputs), TypeArg(b.Bool)),
	}, Erased, Dyn)
	got, err := in.NormalizeErasingRegions(in.Alias(core.FnOnceOutput, in.MkTypeArgs(dyn, inputs)))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != b.Bool {
		t.Fatalf("normalize = %s, want bool", in.Format(got))
	}
}

func TestContainsAndParams(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	inner := in.Tuple(b.U8)
	outer := in.RawPtr(in.Array(inner, 2), false)
	if !in.Contains(outer, inner) || in.Contains(inner, outer) {
		t.Fatalf("Contains misreports nesting")
	}
	if in.HasNonRegionParam(outer) {
		t.Fatalf("no params expected")
	}
	if !in.HasNonRegionParam(in.Slice(in.Param(3, "U"))) {
		t.Fatalf("param not found")
	}
}

func TestFormat(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	core := in.InstallCore()
	cases := []struct {
		ty   TypeID
		want string
	}{
		{b.Unit, "()"},
		{in.Tuple(b.I32), "(i32,)"},
		{in.Ref(Erased, in.Slice(b.Usize), true), "&mut [usize]"},
		{in.RawPtr(in.Array(b.F64, 3), false), "*const [f64; 3]"},
		{in.FnPtr(FnSig{Inputs: []TypeID{b.Char}, Output: b.Never, Abi: AbiC}), `extern "C" fn(char) -> !`},
		{in.Dynamic([]ExistentialPredicate{
			TraitPred(core.Iterator, EmptyArgs),
			ProjectionPred(core.IteratorItem, EmptyArgs, TypeArg(b.U8)),
			AutoTraitPred(core.Send),
		}, Erased, Dyn), "dyn core::iter::traits::iterator::Iterator<Item = u8> + core::marker::Send"},
	}
	for _, tc := range cases {
		if got := in.Format(tc.ty); got != tc.want {
			t.Fatalf("Format = %q, want %q", got, tc.want)
		}
	}
}
