package types

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// Interner provides stable IDs for types, argument lists, signatures and
// predicate lists by hashing structural descriptors, and stores the item
// definitions those types refer to.
//
// All methods are safe for concurrent use: definitions are usually registered
// up front, while identifier encoding interns new types from many goroutines.
type Interner struct {
	mu sync.RWMutex

	types []Type
	index map[Type]TypeID

	args     [][]GenericArg
	argsIdx  map[string]ArgsID
	sigs     []FnSig
	sigIdx   map[string]SigID
	preds    [][]ExistentialPredicate
	predsIdx map[string]PredsID

	builtins Builtins

	crates []Crate
	defs   []Def
	items  itemTables
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[Type]TypeID, 64),
		argsIdx:  make(map[string]ArgsID, 64),
		sigIdx:   make(map[string]SigID, 16),
		predsIdx: make(map[string]PredsID, 16),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve 0 as NoTypeID
	in.args = append(in.args, nil)                     // EmptyArgs
	in.argsIdx[""] = EmptyArgs
	in.preds = append(in.preds, nil)
	in.predsIdx[""] = 0
	in.defs = append(in.defs, Def{}) // reserve 0 as NoDefID
	in.items = newItemTables()

	b := &in.builtins
	b.Unit = in.Intern(Type{Kind: KindTuple})
	b.Bool = in.Intern(Type{Kind: KindBool})
	b.Char = in.Intern(Type{Kind: KindChar})
	b.Str = in.Intern(Type{Kind: KindStr})
	b.Never = in.Intern(Type{Kind: KindNever})
	b.I8 = in.Int(Width8)
	b.I16 = in.Int(Width16)
	b.I32 = in.Int(Width32)
	b.I64 = in.Int(Width64)
	b.I128 = in.Int(Width128)
	b.Isize = in.Int(WidthPtr)
	b.U8 = in.Uint(Width8)
	b.U16 = in.Uint(Width16)
	b.U32 = in.Uint(Width32)
	b.U64 = in.Uint(Width64)
	b.U128 = in.Uint(Width128)
	b.Usize = in.Uint(WidthPtr)
	b.F16 = in.Float(Width16)
	b.F32 = in.Float(Width32)
	b.F64 = in.Float(Width64)
	b.F128 = in.Float(Width128)
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.RLock()
	id, ok := in.index[t]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[t]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id = TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// KindOf returns the kind of id, or KindInvalid.
func (in *Interner) KindOf(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// MkArgs interns a generic argument list.
func (in *Interner) MkArgs(args []GenericArg) ArgsID {
	key := argsKey(args)
	in.mu.RLock()
	id, ok := in.argsIdx[key]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.argsIdx[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.args))
	if err != nil {
		panic(fmt.Errorf("len(args) overflow: %w", err))
	}
	id = ArgsID(n)
	in.args = append(in.args, slices.Clone(args))
	in.argsIdx[key] = id
	return id
}

// MkTypeArgs interns a list of type arguments.
func (in *Interner) MkTypeArgs(ts ...TypeID) ArgsID {
	return in.MkArgs(TypeArgs(ts...))
}

// Args returns a copy of an interned argument list.
func (in *Interner) Args(id ArgsID) []GenericArg {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.args) {
		return nil
	}
	return slices.Clone(in.args[id])
}

// ArgsLen returns the length of an interned argument list.
func (in *Interner) ArgsLen(id ArgsID) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.args) {
		return 0
	}
	return len(in.args[id])
}

// MkSig interns a function signature.
func (in *Interner) MkSig(sig FnSig) SigID {
	key := sigKey(sig)
	in.mu.RLock()
	id, ok := in.sigIdx[key]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.sigIdx[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.sigs))
	if err != nil {
		panic(fmt.Errorf("len(sigs) overflow: %w", err))
	}
	id = SigID(n)
	sig.Inputs = slices.Clone(sig.Inputs)
	in.sigs = append(in.sigs, sig)
	in.sigIdx[key] = id
	return id
}

// Sig returns a copy of an interned signature.
func (in *Interner) Sig(id SigID) FnSig {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.sigs) {
		return FnSig{}
	}
	sig := in.sigs[id]
	sig.Inputs = slices.Clone(sig.Inputs)
	return sig
}

// MkPreds interns an ordered predicate list.
func (in *Interner) MkPreds(preds []ExistentialPredicate) PredsID {
	key := predsKey(preds)
	in.mu.RLock()
	id, ok := in.predsIdx[key]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.predsIdx[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.preds))
	if err != nil {
		panic(fmt.Errorf("len(preds) overflow: %w", err))
	}
	id = PredsID(n)
	in.preds = append(in.preds, slices.Clone(preds))
	in.predsIdx[key] = id
	return id
}

// Preds returns a copy of an interned predicate list.
func (in *Interner) Preds(id PredsID) []ExistentialPredicate {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.preds) {
		return nil
	}
	return slices.Clone(in.preds[id])
}

// Descriptor helpers ---------------------------------------------------------

// Int describes a signed integer of the given width (WidthPtr for isize).
func (in *Interner) Int(w Width) TypeID { return in.Intern(Type{Kind: KindInt, Width: w}) }

// Uint describes an unsigned integer type (WidthPtr for usize).
func (in *Interner) Uint(w Width) TypeID { return in.Intern(Type{Kind: KindUint, Width: w}) }

// Float describes a floating-point type.
func (in *Interner) Float(w Width) TypeID { return in.Intern(Type{Kind: KindFloat, Width: w}) }

// Tuple describes a tuple; no elements is the unit type.
func (in *Interner) Tuple(elems ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindTuple, Args: in.MkTypeArgs(elems...)})
}

// TupleElems returns the element types of a tuple.
func (in *Interner) TupleElems(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil
	}
	return ArgTypes(in.Args(tt.Args))
}

// IsUnit reports the empty tuple.
func (in *Interner) IsUnit(id TypeID) bool {
	return id == in.builtins.Unit
}

// Array describes [elem; n].
func (in *Interner) Array(elem TypeID, n uint64) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem, Len: n})
}

// Slice describes [elem].
func (in *Interner) Slice(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindSlice, Elem: elem})
}

// Pat describes a pattern-refined scalar, e.g. `u32 is 1..`.
func (in *Interner) Pat(elem TypeID, pattern string) TypeID {
	return in.Intern(Type{Kind: KindPat, Elem: elem, Pattern: pattern})
}

// Ref describes &'r elem or &'r mut elem.
func (in *Interner) Ref(r Region, elem TypeID, mutable bool) TypeID {
	return in.Intern(Type{Kind: KindRef, Region: r, Elem: elem, Mutable: mutable})
}

// RawPtr describes *const elem or *mut elem.
func (in *Interner) RawPtr(elem TypeID, mutable bool) TypeID {
	return in.Intern(Type{Kind: KindRawPtr, Elem: elem, Mutable: mutable})
}

// Adt describes an instance of a struct, enum or union.
func (in *Interner) Adt(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindAdt, Def: def, Args: args})
}

// Foreign describes an extern type.
func (in *Interner) Foreign(def DefID) TypeID {
	return in.Intern(Type{Kind: KindForeign, Def: def})
}

// FnDef describes the zero-sized type of a function item.
func (in *Interner) FnDef(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindFnDef, Def: def, Args: args})
}

// FnPtr describes a function pointer.
func (in *Interner) FnPtr(sig FnSig) TypeID {
	return in.Intern(Type{Kind: KindFnPtr, Sig: in.MkSig(sig)})
}

// Closure describes a closure type; args are the parent's generic args.
func (in *Interner) Closure(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindClosure, Def: def, Args: args})
}

// Coroutine describes a coroutine state machine type.
func (in *Interner) Coroutine(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindCoroutine, Def: def, Args: args})
}

// CoroutineClosure describes an async closure type.
func (in *Interner) CoroutineClosure(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindCoroutineClosure, Def: def, Args: args})
}

// CoroutineWitness describes the hidden witness of a coroutine.
func (in *Interner) CoroutineWitness(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindCoroutineWitness, Def: def, Args: args})
}

// Dynamic describes a trait object.
func (in *Interner) Dynamic(preds []ExistentialPredicate, r Region, kind DynKind) TypeID {
	return in.Intern(Type{Kind: KindDynamic, Preds: in.MkPreds(preds), Region: r, Dyn: kind})
}

// Param describes the generic type parameter at index.
func (in *Interner) Param(index uint32, name string) TypeID {
	return in.Intern(Type{Kind: KindParam, Index: index, Name: name})
}

// Alias describes a projection or type alias application that still needs
// normalization.
func (in *Interner) Alias(def DefID, args ArgsID) TypeID {
	return in.Intern(Type{Kind: KindAlias, Def: def, Args: args})
}

// Bound describes a bound type variable.
func (in *Interner) Bound(debruijn, v uint32) TypeID {
	return in.Intern(Type{Kind: KindBound, Binder: debruijn, Index: v})
}

// Infer describes an inference variable.
func (in *Interner) Infer(v uint32) TypeID {
	return in.Intern(Type{Kind: KindInfer, Index: v})
}

// Placeholder describes a placeholder type.
func (in *Interner) Placeholder(v uint32) TypeID {
	return in.Intern(Type{Kind: KindPlaceholder, Index: v})
}

// ErrorType describes a type that failed to resolve.
func (in *Interner) ErrorType() TypeID {
	return in.Intern(Type{Kind: KindError})
}

// ArgTypes keeps the type arguments of a list, in order.
func ArgTypes(args []GenericArg) []TypeID {
	out := make([]TypeID, 0, len(args))
	for _, a := range args {
		if a.Kind == ArgType {
			out = append(out, a.Type)
		}
	}
	return out
}
