package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindChar
	KindInt
	KindUint
	KindFloat
	KindStr
	KindNever
	KindTuple
	KindArray
	KindPat
	KindSlice
	KindAdt
	KindForeign
	KindFnDef
	KindFnPtr
	KindClosure
	KindCoroutine
	KindCoroutineClosure
	KindCoroutineWitness
	KindRef
	KindRawPtr
	KindDynamic
	KindParam
	KindAlias
	KindBound
	KindInfer
	KindPlaceholder
	KindError
)

var kindNames = [...]string{
	KindInvalid:          "invalid",
	KindBool:             "bool",
	KindChar:             "char",
	KindInt:              "int",
	KindUint:             "uint",
	KindFloat:            "float",
	KindStr:              "str",
	KindNever:            "never",
	KindTuple:            "tuple",
	KindArray:            "array",
	KindPat:              "pat",
	KindSlice:            "slice",
	KindAdt:              "adt",
	KindForeign:          "foreign",
	KindFnDef:            "fndef",
	KindFnPtr:            "fnptr",
	KindClosure:          "closure",
	KindCoroutine:        "coroutine",
	KindCoroutineClosure: "coroutine-closure",
	KindCoroutineWitness: "coroutine-witness",
	KindRef:              "ref",
	KindRawPtr:           "rawptr",
	KindDynamic:          "dynamic",
	KindParam:            "param",
	KindAlias:            "alias",
	KindBound:            "bound",
	KindInfer:            "infer",
	KindPlaceholder:      "placeholder",
	KindError:            "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	// WidthPtr is the pointer-sized integer (isize/usize).
	WidthPtr Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width128 Width = 128
)

// DynKind separates `dyn Trait` from `dyn* Trait`.
type DynKind uint8

const (
	Dyn DynKind = iota
	DynStar
)

// Type is a compact, comparable descriptor for any supported type. Because
// lists (generic args, signatures, predicates) are interned to IDs, two
// descriptors are equal exactly when the types are structurally equal, and
// interning makes TypeID equality structural equality.
type Type struct {
	Kind    Kind
	Width   Width
	Elem    TypeID // array, slice, pat, ref, raw pointer
	Len     uint64 // array length
	Pattern string // pat
	Mutable bool   // ref, raw pointer
	Region  Region // ref, dynamic
	Def     DefID  // adt, foreign, fndef, closure-likes, alias
	Args    ArgsID // generic args; tuple elements
	Sig     SigID  // fn pointer
	Preds   PredsID
	Dyn     DynKind
	Index   uint32 // param index, bound/infer/placeholder var
	Binder  uint32 // bound type de Bruijn index
	Name    string // param name
}

// IsAnyPtr reports refs, raw pointers and fn pointers.
func (t Type) IsAnyPtr() bool {
	return t.Kind == KindRef || t.Kind == KindRawPtr || t.Kind == KindFnPtr
}

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unit  TypeID
	Bool  TypeID
	Char  TypeID
	Str   TypeID
	Never TypeID
	I8    TypeID
	I16   TypeID
	I32   TypeID
	I64   TypeID
	I128  TypeID
	Isize TypeID
	U8    TypeID
	U16   TypeID
	U32   TypeID
	U64   TypeID
	U128  TypeID
	Usize TypeID
	F16   TypeID
	F32   TypeID
	F64   TypeID
	F128  TypeID
}
