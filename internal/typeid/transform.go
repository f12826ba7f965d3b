package typeid

import (
	"slices"

	"cfityid/internal/types"
)

// transformer rewrites a type before it is encoded and used as a dictionary
// key: c_void becomes unit, repr(transparent) wrappers are replaced by their
// payload, aliases are normalized, and the integer and pointer options are
// applied.
type transformer struct {
	e       *encoder
	opts    Options
	parents []types.TypeID
}

func (e *encoder) newTransformer(opts Options) *transformer {
	return &transformer{e: e, opts: opts}
}

func (t *transformer) FoldTy(id types.TypeID) types.TypeID {
	in := t.e.in
	tt, ok := in.Lookup(id)
	if !ok {
		bug("transform", "type id %d", id)
	}
	b := in.Builtins()

	switch tt.Kind {
	case types.KindBool:
		if t.opts.NormalizeIntegers {
			return b.U8
		}
		return id

	case types.KindChar:
		if t.opts.NormalizeIntegers {
			return b.U32
		}
		return id

	case types.KindInt, types.KindUint:
		if !t.opts.NormalizeIntegers || tt.Width != types.WidthPtr {
			return id
		}
		w := t.pointerWidth()
		if tt.Kind == types.KindInt {
			return in.Int(w)
		}
		return in.Uint(w)

	case types.KindAdt:
		if in.IsCVoid(id) {
			return b.Unit
		}
		return t.foldAdt(id, tt)

	case types.KindRef:
		if t.opts.GeneralizePointers {
			return in.Ref(types.Static, b.Unit, tt.Mutable)
		}
		return in.SuperFold(t, id)

	case types.KindRawPtr:
		if t.opts.GeneralizePointers {
			return in.RawPtr(b.Unit, tt.Mutable)
		}
		return in.SuperFold(t, id)

	case types.KindFnPtr:
		if t.opts.GeneralizePointers {
			return in.RawPtr(b.Unit, false)
		}
		return in.SuperFold(t, id)

	case types.KindAlias:
		norm, err := in.NormalizeErasingRegions(id)
		if err != nil {
			bug("transform", "alias `%s`: %v", in.Format(id), err)
		}
		return t.FoldTy(norm)

	case types.KindBound, types.KindError, types.KindInfer, types.KindParam, types.KindPlaceholder:
		bug("transform", "%s type `%s`", tt.Kind, in.Format(id))
	}
	return in.SuperFold(t, id)
}

// foldAdt replaces a repr(transparent) struct with its first non-zero-sized
// field. A field that points back at the wrapper is folded with pointers
// generalized so the recursion ends.
func (t *transformer) foldAdt(id types.TypeID, tt types.Type) types.TypeID {
	in := t.e.in
	adt, ok := in.AdtOf(tt.Def)
	if !ok || !adt.Repr.Transparent || !adt.IsStruct() || slices.Contains(t.parents, id) {
		return in.SuperFold(t, id)
	}
	if adt.CfiEncoding != nil {
		return id
	}

	field := types.NoTypeID
	for _, f := range adt.NonEnumVariant().Fields {
		zst, err := t.e.layout.IsZST(f.Ty)
		if err != nil || !zst {
			field = f.Ty
			break
		}
	}
	if field == types.NoTypeID {
		return in.Builtins().Unit
	}

	ty0 := in.Instantiate(field, in.Args(tt.Args))
	t.parents = append(t.parents, id)
	defer func() { t.parents = t.parents[:len(t.parents)-1] }()

	if in.MustLookup(ty0).IsAnyPtr() && in.Contains(ty0, id) {
		saved := t.opts
		t.opts.GeneralizePointers = true
		out := t.FoldTy(ty0)
		t.opts = saved
		return out
	}
	return t.FoldTy(ty0)
}

func (t *transformer) pointerWidth() types.Width {
	switch t.e.target.PointerWidth {
	case 16:
		return types.Width16
	case 32:
		return types.Width32
	case 64:
		return types.Width64
	case 128:
		return types.Width128
	}
	bug("transform", "pointer width %d", t.e.target.PointerWidth)
	return 0
}
