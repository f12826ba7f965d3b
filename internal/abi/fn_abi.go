package abi

import (
	"errors"
	"fmt"

	"cfityid/internal/layout"
	"cfityid/internal/types"
)

// ErrNoSignature reports an instance whose callee has no known signature.
var ErrNoSignature = errors.New("no signature")

// Calc computes fn ABIs over one type database and target.
type Calc struct {
	Types  *types.Interner
	Layout *layout.LayoutEngine
}

// NewCalc creates a Calc with its own layout engine.
func NewCalc(in *types.Interner, target layout.Target) *Calc {
	return &Calc{Types: in, Layout: layout.New(target, in)}
}

// FnAbiOfFnSig lowers a signature. The signature is normalized first;
// rust-call signatures spread their trailing tuple into separate arguments.
func (c *Calc) FnAbiOfFnSig(sig types.FnSig) (*FnAbi, error) {
	in := c.Types
	norm, err := in.NormalizeSig(sig)
	if err != nil {
		return nil, fmt.Errorf("fn abi: %w", err)
	}
	inputs := norm.Inputs
	if norm.Abi == types.AbiRustCall && len(inputs) > 0 {
		last := inputs[len(inputs)-1]
		if in.KindOf(last) == types.KindTuple {
			spread := make([]types.TypeID, 0, len(inputs)+2)
			spread = append(spread, inputs[:len(inputs)-1]...)
			inputs = append(spread, in.TupleElems(last)...)
		}
	}

	fa := &FnAbi{
		Conv:      ConvOf(norm.Abi),
		CVariadic: norm.CVariadic,
	}
	ret, err := c.argAbi(norm.Output, true, fa.Conv)
	if err != nil {
		return nil, err
	}
	fa.Ret = ret
	fa.Args = make([]ArgAbi, 0, len(inputs))
	for _, t := range inputs {
		arg, err := c.argAbi(t, false, fa.Conv)
		if err != nil {
			return nil, err
		}
		fa.Args = append(fa.Args, arg)
	}
	fa.FixedCount = len(fa.Args)
	return fa, nil
}

// argAbi ignores zero-sized returns everywhere and zero-sized arguments for
// the Rust conventions.
func (c *Calc) argAbi(t types.TypeID, isRet bool, conv Conv) (ArgAbi, error) {
	zst, err := c.Layout.IsZST(t)
	if err != nil {
		var lerr *layout.LayoutError
		if errors.As(err, &lerr) && lerr.Kind == layout.LayoutErrTooGeneric {
			return ArgAbi{Ty: t, Mode: PassDirect}, nil
		}
		return ArgAbi{}, fmt.Errorf("fn abi: layout of %s: %w", c.Types.Format(t), err)
	}
	if zst && (isRet || conv == ConvRust) {
		return ArgAbi{Ty: t, Mode: PassIgnore}, nil
	}
	return ArgAbi{Ty: t, Mode: PassDirect}, nil
}

// FnAbiOfInstance lowers the signature of an instance.
func (c *Calc) FnAbiOfInstance(inst types.Instance) (*FnAbi, error) {
	sig, err := c.InstanceSig(inst)
	if err != nil {
		return nil, err
	}
	return c.FnAbiOfFnSig(sig)
}

// InstanceSig returns the instantiated signature an instance is called with.
func (c *Calc) InstanceSig(inst types.Instance) (types.FnSig, error) {
	in := c.Types
	args := in.Args(inst.Args)
	def := inst.Def.Def

	switch inst.Def.Kind {
	case types.InstanceDropGlue:
		if def == types.NoDefID {
			def, _ = in.LangItem(types.LangDropInPlace)
		}
		if len(args) == 0 && inst.Def.Ty != types.NoTypeID {
			args = types.TypeArgs(inst.Def.Ty)
		}
		return c.itemSig(def, args)

	case types.InstanceVTableShim:
		sig, err := c.itemSig(def, args)
		if err != nil {
			return sig, err
		}
		if len(sig.Inputs) > 0 && len(args) > 0 && args[0].Kind == types.ArgType {
			sig.Inputs[0] = in.RawPtr(args[0].Type, true)
		}
		return sig, nil

	case types.InstanceClosureOnceShim:
		cl, ok := in.ClosureOf(def)
		if !ok {
			return types.FnSig{}, c.noSig(def)
		}
		return c.closureSig(def, cl, types.ClosureFnOnce, inst.Args), nil

	default:
		return c.itemSig(def, args)
	}
}

func (c *Calc) itemSig(def types.DefID, args []types.GenericArg) (types.FnSig, error) {
	in := c.Types
	d, ok := in.Def(def)
	if !ok {
		return types.FnSig{}, c.noSig(def)
	}
	switch d.Kind {
	case types.DefClosure, types.DefCoroutineClosure:
		cl, ok := in.ClosureOf(def)
		if !ok {
			return types.FnSig{}, c.noSig(def)
		}
		return c.closureSig(def, cl, cl.Kind, in.MkArgs(args)), nil
	case types.DefCoroutine:
		co, ok := in.CoroutineOf(def)
		if !ok {
			return types.FnSig{}, c.noSig(def)
		}
		return c.coroutineSig(def, co, in.MkArgs(args))
	}
	sig, ok := in.FnSigOf(def)
	if !ok {
		return types.FnSig{}, c.noSig(def)
	}
	return in.InstantiateSig(sig, args), nil
}

// closureSig builds `extern "rust-call" fn(env, (inputs..)) -> output` where
// env borrows the closure according to kind.
func (c *Calc) closureSig(def types.DefID, cl types.ClosureDef, kind types.ClosureKind, args types.ArgsID) types.FnSig {
	in := c.Types
	var self types.TypeID
	if in.DefKindOf(def) == types.DefCoroutineClosure {
		self = in.CoroutineClosure(def, args)
	} else {
		self = in.Closure(def, args)
	}
	env := self
	switch kind {
	case types.ClosureFn:
		env = in.Ref(types.Erased, self, false)
	case types.ClosureFnMut:
		env = in.Ref(types.Erased, self, true)
	}
	list := in.Args(args)
	sig := types.FnSig{
		Inputs: []types.TypeID{env, in.Tuple(cl.Inputs...)},
		Output: cl.Output,
		Abi:    types.AbiRustCall,
	}
	return in.InstantiateSig(sig, list)
}

// coroutineSig builds the resume signature of a coroutine body.
func (c *Calc) coroutineSig(def types.DefID, co types.CoroutineDef, args types.ArgsID) (types.FnSig, error) {
	in := c.Types
	pin, ok1 := in.LangItem(types.LangPin)
	ctx, ok2 := in.LangItem(types.LangContext)
	poll, ok3 := in.LangItem(types.LangPoll)
	option, ok4 := in.LangItem(types.LangOption)
	state, ok5 := in.LangItem(types.LangCoroutineState)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return types.FnSig{}, fmt.Errorf("%w: coroutine lang items are not installed", ErrNoSignature)
	}
	self := in.Coroutine(def, args)
	pinned := in.Adt(pin, in.MkTypeArgs(in.Ref(types.Erased, self, true)))
	cx := in.Ref(types.Erased, in.Adt(ctx, in.MkArgs([]types.GenericArg{types.RegionArg(types.Erased)})), true)

	sig := types.FnSig{Inputs: []types.TypeID{pinned}}
	switch co.Kind {
	case types.CoroutineAsync:
		sig.Inputs = append(sig.Inputs, cx)
		sig.Output = in.Adt(poll, in.MkTypeArgs(co.Return))
	case types.CoroutineGen:
		sig.Inputs = append(sig.Inputs, in.Builtins().Unit)
		sig.Output = in.Adt(option, in.MkTypeArgs(co.Yield))
	case types.CoroutineAsyncGen:
		sig.Inputs = append(sig.Inputs, cx)
		sig.Output = in.Adt(poll, in.MkTypeArgs(in.Adt(option, in.MkTypeArgs(co.Yield))))
	default:
		resume := co.Resume
		if resume == types.NoTypeID {
			resume = in.Builtins().Unit
		}
		sig.Inputs = append(sig.Inputs, resume)
		sig.Output = in.Adt(state, in.MkTypeArgs(co.Yield, co.Return))
	}
	return in.InstantiateSig(sig, in.Args(args)), nil
}

func (c *Calc) noSig(def types.DefID) error {
	return fmt.Errorf("%w for %s", ErrNoSignature, c.Types.DefPathString(def))
}
