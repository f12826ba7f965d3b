package abi_test

import (
	"errors"
	"testing"

	"cfityid/internal/abi"
	"cfityid/internal/layout"
	"cfityid/internal/types"
)

func TestConvOf(t *testing.T) {
	cases := map[types.Abi]abi.Conv{
		types.AbiRust:     abi.ConvRust,
		types.AbiRustCall: abi.ConvRust,
		types.AbiC:        abi.ConvC,
		types.AbiCUnwind:  abi.ConvC,
		types.AbiSystem:   abi.ConvC,
		types.AbiSysV64:   abi.ConvX86_64SysV,
		types.AbiWin64:    abi.ConvX86_64Win64,
	}
	for a, want := range cases {
		if got := abi.ConvOf(a); got != want {
			t.Fatalf("ConvOf(%s) = %s, want %s", a, got, want)
		}
	}
}

func TestFnAbiIgnoresZSTOnlyForRust(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	calc := abi.NewCalc(in, layout.X86_64LinuxGNU())

	rust, err := calc.FnAbiOfFnSig(types.FnSig{Inputs: []types.TypeID{b.Unit, b.I32}, Output: b.Unit})
	if err != nil {
		t.Fatalf("FnAbiOfFnSig: %v", err)
	}
	if rust.Args[0].Mode != abi.PassIgnore || rust.Args[1].Mode != abi.PassDirect {
		t.Fatalf("unexpected rust arg modes: %+v", rust.Args)
	}
	if rust.Ret.Mode != abi.PassIgnore {
		t.Fatalf("unit return should be ignored")
	}

	c, err := calc.FnAbiOfFnSig(types.FnSig{Inputs: []types.TypeID{b.Unit, b.I32}, Output: b.Unit, Abi: types.AbiC})
	if err != nil {
		t.Fatalf("FnAbiOfFnSig: %v", err)
	}
	if c.Conv != abi.ConvC || c.Args[0].Mode != abi.PassDirect {
		t.Fatalf("C args must all be passed: %+v", c)
	}
}

func TestFnAbiRustCallSpreadsTuple(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	calc := abi.NewCalc(in, layout.X86_64LinuxGNU())
	sig := types.FnSig{
		Inputs: []types.TypeID{in.Ref(types.Erased, b.Str, false), in.Tuple(b.I32, b.U8)},
		Output: b.Bool,
		Abi:    types.AbiRustCall,
	}
	fa, err := calc.FnAbiOfFnSig(sig)
	if err != nil {
		t.Fatalf("FnAbiOfFnSig: %v", err)
	}
	if len(fa.Args) != 3 || fa.Args[1].Ty != b.I32 || fa.Args[2].Ty != b.U8 {
		t.Fatalf("rust-call tuple not spread: %+v", fa.Args)
	}
	if fa.FixedCount != 3 {
		t.Fatalf("FixedCount = %d", fa.FixedCount)
	}
}

func TestInstanceSigForShimsAndGlue(t *testing.T) {
	in := types.NewInterner()
	core := in.InstallCore()
	b := in.Builtins()
	calc := abi.NewCalc(in, layout.X86_64LinuxGNU())

	glue := types.DropGlueInstance(core.DropInPlace, b.U32, in.MkTypeArgs(b.U32))
	sig, err := calc.InstanceSig(glue)
	if err != nil {
		t.Fatalf("InstanceSig: %v", err)
	}
	if len(sig.Inputs) != 1 || sig.Inputs[0] != in.RawPtr(b.U32, true) {
		t.Fatalf("drop glue sig = %+v", sig)
	}

	closureTy := in.Tuple(b.I8) // any sized self works for the shim
	shim := types.Instance{
		Def:  types.InstanceDef{Kind: types.InstanceVTableShim, Def: core.CallOnce},
		Args: in.MkTypeArgs(closureTy, in.Tuple(b.U16)),
	}
	sig, err = calc.InstanceSig(shim)
	if err != nil {
		t.Fatalf("InstanceSig: %v", err)
	}
	if sig.Inputs[0] != in.RawPtr(closureTy, true) {
		t.Fatalf("vtable shim receiver = %s", in.Format(sig.Inputs[0]))
	}
}

func TestInstanceSigUnknownDef(t *testing.T) {
	in := types.NewInterner()
	krate := in.RegisterCrate("app", 1)
	mod := in.EnsureModule(krate, "m")
	calc := abi.NewCalc(in, layout.X86_64LinuxGNU())
	_, err := calc.InstanceSig(types.ItemInstance(mod, types.EmptyArgs))
	if !errors.Is(err, abi.ErrNoSignature) {
		t.Fatalf("expected ErrNoSignature, got %v", err)
	}
}
