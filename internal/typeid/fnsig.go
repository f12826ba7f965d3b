package typeid

import (
	"strings"

	"cfityid/internal/types"
)

// encodeFnSig encodes `F<return><params>[z]E`. repr(C) generalization is
// on for C signatures and off otherwise, whatever the caller passed.
func (e *encoder) encodeFnSig(sig types.FnSig, opts Options) string {
	var s strings.Builder
	s.WriteByte('F')

	encOpts := opts
	encOpts.GeneralizeReprC = sig.Abi.IsC()
	tr := e.newTransformer(opts)

	s.WriteString(e.encodeTy(tr.FoldTy(sig.Output), encOpts))
	for _, t := range sig.Inputs {
		s.WriteString(e.encodeTy(tr.FoldTy(t), encOpts))
	}
	switch {
	case sig.CVariadic:
		s.WriteByte('z')
	case len(sig.Inputs) == 0:
		s.WriteByte('v')
	}

	s.WriteByte('E')
	return s.String()
}
