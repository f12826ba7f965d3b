package layout

import (
	"cfityid/internal/types"
)

// LayoutEngine classifies types by size for a target. It only answers the
// questions fn ABI computation needs: whether a type is zero-sized.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[types.TypeID]int, 32),
	}
}

// IsZST reports whether t is sized and occupies zero bytes. Unsized types
// (str, slices, trait objects, extern types) are never zero-sized.
func (e *LayoutEngine) IsZST(t types.TypeID) (bool, error) {
	if e == nil || e.Types == nil {
		return false, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	zst, err := e.isZST(t, newLayoutState())
	if err != nil {
		return false, err
	}
	return zst, nil
}

func (e *LayoutEngine) isZST(t types.TypeID, state *layoutState) (bool, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.ZST, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  t,
			Cycle: cycle,
		}
		e.cache.put(t, cacheEntry{Err: err})
		return false, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	zst, err := e.computeZST(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, cacheEntry{ZST: zst, Err: err})
	return zst, err
}

func (e *LayoutEngine) computeZST(id types.TypeID, state *layoutState) (bool, *LayoutError) {
	in := e.Types
	tt, ok := in.Lookup(id)
	if !ok {
		return false, &LayoutError{Kind: LayoutErrUnknownDef, Type: id}
	}

	switch tt.Kind {
	case types.KindBool, types.KindChar, types.KindInt, types.KindUint, types.KindFloat,
		types.KindRef, types.KindRawPtr, types.KindFnPtr:
		return false, nil

	case types.KindStr, types.KindSlice, types.KindDynamic, types.KindForeign:
		return false, nil

	case types.KindNever, types.KindFnDef:
		return true, nil

	case types.KindTuple:
		return e.allZST(in.TupleElems(id), nil, state)

	case types.KindArray:
		if tt.Len == 0 {
			return true, nil
		}
		return e.isZST(tt.Elem, state)

	case types.KindPat:
		return e.isZST(tt.Elem, state)

	case types.KindAdt:
		adt, ok := in.AdtOf(tt.Def)
		if !ok {
			return false, &LayoutError{Kind: LayoutErrUnknownDef, Type: id}
		}
		args := in.Args(tt.Args)
		switch {
		case adt.Kind == types.AdtEnum && len(adt.Variants) == 0:
			return true, nil
		case adt.Kind == types.AdtEnum && len(adt.Variants) > 1:
			return false, nil
		}
		fields := adt.NonEnumVariant().Fields
		tys := make([]types.TypeID, len(fields))
		for i, f := range fields {
			tys[i] = f.Ty
		}
		return e.allZST(tys, args, state)

	case types.KindClosure, types.KindCoroutineClosure:
		c, ok := in.ClosureOf(tt.Def)
		if !ok {
			return false, &LayoutError{Kind: LayoutErrUnknownDef, Type: id}
		}
		return e.allZST(c.Upvars, in.Args(tt.Args), state)

	case types.KindCoroutine, types.KindCoroutineWitness:
		return false, nil

	case types.KindAlias:
		norm, err := in.NormalizeErasingRegions(id)
		if err != nil {
			return false, &LayoutError{Kind: LayoutErrNormalize, Type: id, Err: err}
		}
		return e.isZST(norm, state)

	default:
		return false, &LayoutError{Kind: LayoutErrTooGeneric, Type: id}
	}
}

// allZST reports whether every type, instantiated with args, is zero-sized.
func (e *LayoutEngine) allZST(tys []types.TypeID, args []types.GenericArg, state *layoutState) (bool, *LayoutError) {
	for _, t := range tys {
		if len(args) > 0 {
			t = e.Types.Instantiate(t, args)
		}
		zst, err := e.isZST(t, state)
		if err != nil {
			return false, err
		}
		if !zst {
			return false, nil
		}
	}
	return true, nil
}
