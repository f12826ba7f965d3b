// Package abi computes fn ABI descriptors: the calling convention and how
// each argument of a signature or instance is passed.
package abi

import (
	"fmt"

	"cfityid/internal/types"
)

// Conv is the lowered calling convention.
type Conv uint8

const (
	ConvRust Conv = iota
	ConvC
	ConvX86_64SysV
	ConvX86_64Win64
)

func (c Conv) String() string {
	switch c {
	case ConvRust:
		return "Rust"
	case ConvC:
		return "C"
	case ConvX86_64SysV:
		return "X86_64SysV"
	case ConvX86_64Win64:
		return "X86_64Win64"
	default:
		return fmt.Sprintf("Conv(%d)", c)
	}
}

// ConvOf lowers a declared ABI. `system` lowers to C; explicit sysv64 and
// win64 keep their own conventions.
func ConvOf(a types.Abi) Conv {
	switch a {
	case types.AbiC, types.AbiCUnwind, types.AbiSystem:
		return ConvC
	case types.AbiSysV64:
		return ConvX86_64SysV
	case types.AbiWin64:
		return ConvX86_64Win64
	default:
		return ConvRust
	}
}

// PassMode says how an argument reaches the callee.
type PassMode uint8

const (
	PassDirect PassMode = iota
	// PassIgnore marks arguments that are not passed at all.
	PassIgnore
)

func (m PassMode) String() string {
	if m == PassIgnore {
		return "ignore"
	}
	return "direct"
}

// ArgAbi is one argument or the return value.
type ArgAbi struct {
	Ty   types.TypeID
	Mode PassMode
}

// FnAbi describes a callable as seen by the backend. For variadic functions
// only the first FixedCount arguments are declared.
type FnAbi struct {
	Conv       Conv
	Ret        ArgAbi
	Args       []ArgAbi
	CVariadic  bool
	FixedCount int
}
