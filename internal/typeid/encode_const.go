package typeid

import (
	"math/big"
	"strings"

	"cfityid/internal/types"
)

// encodeConst encodes a const argument as an Itanium literal:
// `L<type>[n]<value>E`, or `L<type>E` for a const parameter.
func (e *encoder) encodeConst(c types.Const, opts Options) string {
	var s strings.Builder
	s.WriteByte('L')
	if c.Ty == types.NoTypeID {
		bug("encodeConst", "const without a type")
	}

	switch c.Kind {
	case types.ConstParam:
		s.WriteString(e.encodeTy(c.Ty, opts))

	case types.ConstValue:
		s.WriteString(e.encodeTy(c.Ty, opts))
		tt := e.in.MustLookup(c.Ty)
		switch tt.Kind {
		case types.KindInt:
			v := e.signExtend(c.Bits(), tt.Width)
			if v.Sign() < 0 {
				s.WriteByte('n')
				v.Neg(v)
			}
			s.WriteString(v.String())
		case types.KindUint, types.KindChar:
			s.WriteString(e.truncate(c.Bits(), tt).String())
		case types.KindBool:
			if c.Lo&1 == 1 {
				s.WriteByte('1')
			} else {
				s.WriteByte('0')
			}
		default:
			bug("encodeConst", "const type `%s`", e.in.Format(c.Ty))
		}

	default:
		bug("encodeConst", "const kind %d", c.Kind)
	}

	s.WriteByte('E')
	return e.dict.compress(constKey(c), s.String())
}

// bitWidth resolves the size in bits of an integer width for the target.
func (e *encoder) bitWidth(w types.Width) uint {
	if w == types.WidthPtr {
		return uint(e.target.PointerWidth)
	}
	return uint(w)
}

// signExtend interprets the low bits of v as a two's complement integer.
func (e *encoder) signExtend(v *big.Int, w types.Width) *big.Int {
	bits := e.bitWidth(w)
	v = e.truncateBits(v, bits)
	if bits > 0 && v.Bit(int(bits-1)) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	return v
}

func (e *encoder) truncate(v *big.Int, tt types.Type) *big.Int {
	if tt.Kind == types.KindChar {
		return e.truncateBits(v, 32)
	}
	return e.truncateBits(v, e.bitWidth(tt.Width))
}

func (e *encoder) truncateBits(v *big.Int, bits uint) *big.Int {
	if bits == 0 || bits >= 128 {
		return v
	}
	mask := new(big.Int).Lsh(big.NewInt(1), bits)
	mask.Sub(mask, big.NewInt(1))
	return v.And(v, mask)
}
