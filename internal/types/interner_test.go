package types

import (
	"sync"
	"testing"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindTuple || unit.Args != EmptyArgs {
		t.Fatalf("expected empty tuple, got %+v", unit)
	}
	if in.Tuple() != b.Unit {
		t.Fatalf("empty tuple must be unit")
	}
	if b.Isize == b.I64 {
		t.Fatalf("isize must stay distinct from i64")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	arr1 := in.Array(b.U8, 4)
	arr2 := in.Array(b.U8, 4)
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Array(b.U8, 5) == arr1 {
		t.Fatalf("array length must affect identity")
	}
	t1 := in.Tuple(b.I32, b.Bool)
	t2 := in.Tuple(b.I32, b.Bool)
	if t1 != t2 {
		t.Fatalf("tuples with equal elements must share an id")
	}
}

func TestReferenceMutabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().I32
	mut := in.Ref(Erased, elem, true)
	imm := in.Ref(Erased, elem, false)
	if mut == imm {
		t.Fatalf("mutable and immutable references must differ")
	}
	if in.Ref(Static, elem, false) == imm {
		t.Fatalf("region must affect reference identity")
	}
}

func TestSignaturesInternStructurally(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	p1 := in.FnPtr(FnSig{Inputs: []TypeID{b.I32}, Output: b.I32})
	p2 := in.FnPtr(FnSig{Inputs: []TypeID{b.I32}, Output: b.I32})
	if p1 != p2 {
		t.Fatalf("fn pointers with equal signatures must share an id")
	}
	p3 := in.FnPtr(FnSig{Inputs: []TypeID{b.I32}, Output: b.I32, Abi: AbiC})
	if p3 == p1 {
		t.Fatalf("abi must affect fn pointer identity")
	}
	sig := in.Sig(in.MustLookup(p1).Sig)
	sig.Inputs[0] = b.U8
	if in.Sig(in.MustLookup(p1).Sig).Inputs[0] != b.I32 {
		t.Fatalf("Sig must return a copy")
	}
}

func TestConcurrentIntern(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	const workers = 8
	ids := make([]TypeID, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = in.Ref(Erased, in.Slice(in.Tuple(b.U8, b.Char)), false)
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got %d, want %d", i, ids[i], ids[0])
		}
	}
}

func TestLookupInvalid(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(NoTypeID); ok {
		t.Fatalf("NoTypeID must not resolve")
	}
	if _, ok := in.Lookup(TypeID(1 << 20)); ok {
		t.Fatalf("out-of-range id must not resolve")
	}
}
