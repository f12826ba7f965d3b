package types //nolint:revive

import (
	"strconv"
	"strings"
)

// SigID identifies an interned function signature.
type SigID uint32

// Abi is the declared calling convention of a signature.
type Abi uint8

const (
	AbiRust Abi = iota
	AbiRustCall
	AbiC
	AbiCUnwind
	AbiSystem
	AbiSysV64
	AbiWin64
)

var abiNames = map[Abi]string{
	AbiRust:     "Rust",
	AbiRustCall: "rust-call",
	AbiC:        "C",
	AbiCUnwind:  "C-unwind",
	AbiSystem:   "system",
	AbiSysV64:   "sysv64",
	AbiWin64:    "win64",
}

func (a Abi) String() string {
	if name, ok := abiNames[a]; ok {
		return name
	}
	return "Abi(" + strconv.Itoa(int(a)) + ")"
}

// ParseAbi maps an extern string to an Abi.
func ParseAbi(s string) (Abi, bool) {
	for abi, name := range abiNames {
		if name == s {
			return abi, true
		}
	}
	return AbiRust, false
}

// IsC reports the `extern "C"` family (with or without unwinding).
func (a Abi) IsC() bool {
	return a == AbiC || a == AbiCUnwind
}

// FnSig stores a function's parameter/return shape.
type FnSig struct {
	Inputs    []TypeID
	Output    TypeID
	CVariadic bool
	Abi       Abi
}

func sigKey(sig FnSig) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(sig.Abi)))
	if sig.CVariadic {
		b.WriteByte('z')
	}
	b.WriteByte('>')
	b.WriteString(strconv.FormatUint(uint64(sig.Output), 36))
	for _, in := range sig.Inputs {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(in), 36))
	}
	return b.String()
}
