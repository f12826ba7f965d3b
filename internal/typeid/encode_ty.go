package typeid

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cfityid/internal/diag"
	"cfityid/internal/layout"
	"cfityid/internal/types"
)

// encoder holds the state of one identifier computation.
type encoder struct {
	in       *types.Interner
	target   layout.Target
	reporter diag.Reporter
	layout   *layout.LayoutEngine
	dict     dict
}

func newEncoder(cx *Context) *encoder {
	return &encoder{
		in:       cx.Types,
		target:   cx.Target,
		reporter: cx.reporter(),
		layout:   cx.calc().Layout,
		dict:     make(dict),
	}
}

// builtinCodes are Itanium builtin type codes; overrides spelling one of
// them are not substitution candidates.
var builtinCodes = []string{
	"v", "w", "b", "c", "a", "h", "s", "t", "i", "j", "l", "m", "x", "y",
	"n", "o", "f", "d", "e", "g", "z", "Dh",
}

var intNames = map[types.Width]string{
	types.Width8:   "8",
	types.Width16:  "16",
	types.Width32:  "32",
	types.Width64:  "64",
	types.Width128: "128",
	types.WidthPtr: "size",
}

// encodeTy encodes a type with the Itanium C++ ABI, using vendor extended
// types for Rust types that have no C++ counterpart.
func (e *encoder) encodeTy(id types.TypeID, opts Options) string {
	in := e.in
	tt, ok := in.Lookup(id)
	if !ok {
		bug("encodeTy", "type id %d", id)
	}
	none := tyKey(id, qualNone)

	switch tt.Kind {
	case types.KindBool:
		return "b"

	case types.KindInt, types.KindUint:
		w, ok := intNames[tt.Width]
		if !ok {
			bug("encodeTy", "integer width %d", tt.Width)
		}
		name := "i" + w
		if tt.Kind == types.KindUint {
			name = "u" + w
		}
		return e.dict.compress(none, vendor(name))

	case types.KindFloat:
		switch tt.Width {
		case types.Width16:
			return "Dh"
		case types.Width32:
			return "f"
		case types.Width64:
			return "d"
		case types.Width128:
			return "g"
		}
		bug("encodeTy", "float width %d", tt.Width)

	case types.KindChar:
		return e.dict.compress(none, "u4char")

	case types.KindStr:
		return e.dict.compress(none, "u3str")

	case types.KindNever:
		return e.dict.compress(none, "u5never")

	case types.KindTuple:
		elems := in.TupleElems(id)
		if len(elems) == 0 {
			return "v"
		}
		var s strings.Builder
		s.WriteString("u5tupleI")
		for _, el := range elems {
			s.WriteString(e.encodeTy(el, opts))
		}
		s.WriteByte('E')
		return e.dict.compress(none, s.String())

	case types.KindArray:
		s := "A" + strconv.FormatUint(tt.Len, 10) + e.encodeTy(tt.Elem, opts)
		return e.dict.compress(none, s)

	case types.KindPat:
		s := "u3patI" + e.encodeTy(tt.Elem, opts) + tt.Pattern + "E"
		return e.dict.compress(none, s)

	case types.KindSlice:
		s := "u5sliceI" + e.encodeTy(tt.Elem, opts) + "E"
		return e.dict.compress(none, s)

	case types.KindAdt:
		return e.encodeAdt(id, tt, opts)

	case types.KindForeign:
		return e.encodeForeign(id, tt)

	case types.KindFnDef, types.KindClosure, types.KindCoroutine, types.KindCoroutineClosure:
		s := vendor(encodeTyName(in, tt.Def)) + e.encodeArgs(tt.Args, opts)
		return e.dict.compress(none, s)

	case types.KindRef:
		s := "u3refI" + e.encodeTy(tt.Elem, opts) + "E"
		s = e.dict.compress(tyKey(in.Ref(tt.Region, tt.Elem, false), qualNone), s)
		if tt.Mutable {
			s = e.dict.compress(tyKey(id, qualMut), "U3mut"+s)
		}
		return s

	case types.KindRawPtr:
		s := e.encodeTy(tt.Elem, opts)
		if !tt.Mutable {
			s = e.dict.compress(tyKey(tt.Elem, qualConst), "K"+s)
		}
		return e.dict.compress(none, "P"+s)

	case types.KindFnPtr:
		s := "P" + e.encodeFnSig(in.Sig(tt.Sig), Options{})
		return e.dict.compress(none, s)

	case types.KindDynamic:
		var s strings.Builder
		if tt.Dyn == types.DynStar {
			s.WriteString("u7dynstarI")
		} else {
			s.WriteString("u3dynI")
		}
		s.WriteString(e.encodePredicates(tt.Preds, opts))
		s.WriteString(e.encodeRegion(tt.Region))
		s.WriteByte('E')
		return e.dict.compress(none, s.String())

	case types.KindParam:
		return e.dict.compress(none, "u5param")
	}

	bug("encodeTy", "%s type `%s`", tt.Kind, in.Format(id))
	return ""
}

// encodeAdt encodes a struct, enum or union: the user override first, then
// the bare C name for repr(C) types at C boundaries, else the full path.
func (e *encoder) encodeAdt(id types.TypeID, tt types.Type, opts Options) string {
	in := e.in
	none := tyKey(id, qualNone)
	adt, ok := in.AdtOf(tt.Def)
	if !ok {
		bug("encodeTy", "adt without definition `%s`", in.DefPathString(tt.Def))
	}

	if attr := adt.CfiEncoding; attr != nil {
		value, ok := e.overrideValue(id, attr)
		if !ok {
			return ""
		}
		if slices.Contains(builtinCodes, value) {
			return value
		}
		return e.dict.compress(none, value)
	}
	if opts.GeneralizeReprC && adt.Repr.C {
		name := in.ItemName(tt.Def)
		return e.dict.compress(none, strconv.Itoa(len(name))+name)
	}
	s := vendor(encodeTyName(in, tt.Def)) + e.encodeArgs(tt.Args, opts)
	return e.dict.compress(none, s)
}

// encodeForeign encodes an extern type by its override or bare name.
func (e *encoder) encodeForeign(id types.TypeID, tt types.Type) string {
	in := e.in
	var s string
	f, _ := in.ForeignOf(tt.Def)
	if attr := f.CfiEncoding; attr != nil {
		s, _ = e.overrideValue(id, attr)
	} else {
		name := in.ItemName(tt.Def)
		s = strconv.Itoa(len(name)) + name
	}
	return e.dict.compress(tyKey(id, qualNone), s)
}

// overrideValue returns the trimmed cfi_encoding of a type. An empty value
// is reported and yields ok == false.
func (e *encoder) overrideValue(id types.TypeID, attr *types.Attr) (string, bool) {
	if !attr.HasValue {
		bug("encodeTy", "`cfi_encoding` without a value for `%s`", e.in.Format(id))
	}
	value := strings.TrimSpace(attr.Value)
	if value == "" {
		msg := fmt.Sprintf("invalid `cfi_encoding` for `%s`", e.in.Format(id))
		diag.ReportError(e.reporter, diag.CfiInvalidEncoding, attr.Span, msg).Emit()
		return "", false
	}
	return value, true
}

// vendor wraps a name as an Itanium vendor extended type `u<len><name>`.
func vendor(name string) string {
	return "u" + strconv.Itoa(len(name)) + name
}
