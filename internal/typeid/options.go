package typeid

import (
	"errors"
	"fmt"
	"strings"
)

// Option bits, stable for callers that pass options as a mask.
const (
	BitGeneralizePointers uint32 = 1 << iota
	BitGeneralizeReprC
	BitNormalizeIntegers
	BitUseConcreteSelf

	bitsAll = BitGeneralizePointers | BitGeneralizeReprC | BitNormalizeIntegers | BitUseConcreteSelf
)

// ErrInvalidOptions reports option bits outside the known set.
var ErrInvalidOptions = errors.New("invalid type id options")

// Options select encoding variants.
type Options struct {
	// NormalizeIntegers encodes bool, char and pointer-sized integers as
	// fixed-width unsigned/signed integers and appends ".normalized".
	NormalizeIntegers bool
	// GeneralizePointers erases pointee types and appends ".generalized".
	GeneralizePointers bool
	// GeneralizeReprC encodes repr(C) ADTs by their bare item name. It is
	// recomputed per signature from the calling convention.
	GeneralizeReprC bool
	// UseConcreteSelf skips rewriting methods and closures to their
	// trait-object form.
	UseConcreteSelf bool
}

// OptionsFromBits decodes an option mask.
func OptionsFromBits(bits uint32) (Options, error) {
	if bits&^bitsAll != 0 {
		return Options{}, fmt.Errorf("%w: %#x", ErrInvalidOptions, bits&^bitsAll)
	}
	return Options{
		GeneralizePointers: bits&BitGeneralizePointers != 0,
		GeneralizeReprC:    bits&BitGeneralizeReprC != 0,
		NormalizeIntegers:  bits&BitNormalizeIntegers != 0,
		UseConcreteSelf:    bits&BitUseConcreteSelf != 0,
	}, nil
}

// Bits encodes the options as a mask.
func (o Options) Bits() uint32 {
	var bits uint32
	if o.GeneralizePointers {
		bits |= BitGeneralizePointers
	}
	if o.GeneralizeReprC {
		bits |= BitGeneralizeReprC
	}
	if o.NormalizeIntegers {
		bits |= BitNormalizeIntegers
	}
	if o.UseConcreteSelf {
		bits |= BitUseConcreteSelf
	}
	return bits
}

func (o Options) String() string {
	var parts []string
	if o.NormalizeIntegers {
		parts = append(parts, "normalize-integers")
	}
	if o.GeneralizePointers {
		parts = append(parts, "generalize-pointers")
	}
	if o.GeneralizeReprC {
		parts = append(parts, "generalize-repr-c")
	}
	if o.UseConcreteSelf {
		parts = append(parts, "concrete-self")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
