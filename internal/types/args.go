package types

import (
	"math/big"
	"strconv"
	"strings"
)

// ArgsID identifies an interned generic argument list. 0 is the empty list.
type ArgsID uint32

// EmptyArgs is the interned empty list.
const EmptyArgs ArgsID = 0

// ArgKind tags a generic argument.
type ArgKind uint8

const (
	ArgRegion ArgKind = iota + 1
	ArgType
	ArgConst
)

// ConstKind separates const forms.
type ConstKind uint8

const (
	ConstParam ConstKind = iota + 1
	ConstValue
	ConstInfer
	ConstBound
	ConstUnevaluated
	ConstError
)

// Const is a const generic argument. Values keep their raw bit pattern
// (up to 128 bits) so signedness is decided by Ty.
type Const struct {
	Kind  ConstKind
	Ty    TypeID
	Lo    uint64
	Hi    uint64
	Index uint32 // ConstParam
	Name  string // ConstParam
}

// ConstParamOf makes a reference to the const generic parameter at index.
func ConstParamOf(index uint32, name string, ty TypeID) Const {
	return Const{Kind: ConstParam, Ty: ty, Index: index, Name: name}
}

// ConstBits makes an evaluated const from its low 64 bits.
func ConstBits(ty TypeID, bits uint64) Const {
	return Const{Kind: ConstValue, Ty: ty, Lo: bits}
}

// ConstInt makes an evaluated signed const; the pattern is sign-extended to 128 bits.
func ConstInt(ty TypeID, v int64) Const {
	c := Const{Kind: ConstValue, Ty: ty, Lo: uint64(v)}
	if v < 0 {
		c.Hi = ^uint64(0)
	}
	return c
}

// Bits returns the raw bit pattern as an unsigned big integer.
func (c Const) Bits() *big.Int {
	v := new(big.Int).SetUint64(c.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(c.Lo))
}

// GenericArg is one of region, type or const.
type GenericArg struct {
	Kind   ArgKind
	Region Region
	Type   TypeID
	Const  Const
}

func TypeArg(t TypeID) GenericArg   { return GenericArg{Kind: ArgType, Type: t} }
func RegionArg(r Region) GenericArg { return GenericArg{Kind: ArgRegion, Region: r} }
func ConstArgOf(c Const) GenericArg { return GenericArg{Kind: ArgConst, Const: c} }

// TypeArgs wraps each type as a generic argument.
func TypeArgs(ts ...TypeID) []GenericArg {
	if len(ts) == 0 {
		return nil
	}
	out := make([]GenericArg, len(ts))
	for i, t := range ts {
		out[i] = TypeArg(t)
	}
	return out
}

func appendArgKey(b *strings.Builder, a GenericArg) {
	b.WriteByte(byte('0' + a.Kind))
	switch a.Kind {
	case ArgRegion:
		appendRegionKey(b, a.Region)
	case ArgType:
		b.WriteString(strconv.FormatUint(uint64(a.Type), 36))
	case ArgConst:
		appendConstKey(b, a.Const)
	}
	b.WriteByte(';')
}

func appendRegionKey(b *strings.Builder, r Region) {
	b.WriteByte(byte('0' + r.Kind))
	b.WriteString(strconv.FormatUint(uint64(r.Debruijn), 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(uint64(r.Var), 36))
}

func appendConstKey(b *strings.Builder, c Const) {
	b.WriteByte(byte('0' + c.Kind))
	b.WriteString(strconv.FormatUint(uint64(c.Ty), 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(c.Lo, 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(c.Hi, 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(uint64(c.Index), 36))
	b.WriteByte('.')
	b.WriteString(c.Name)
}

func argsKey(args []GenericArg) string {
	var b strings.Builder
	for _, a := range args {
		appendArgKey(&b, a)
	}
	return b.String()
}
