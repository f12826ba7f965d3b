package typeid

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"cfityid/internal/abi"
	"cfityid/internal/diag"
	"cfityid/internal/layout"
	"cfityid/internal/types"
)

// ErrNilFnAbi reports a missing fn ABI descriptor.
var ErrNilFnAbi = errors.New("nil fn abi")

// Context is the environment identifiers are computed in. It is safe for
// concurrent use as long as the interner is.
type Context struct {
	Types    *types.Interner
	Target   layout.Target
	Reporter diag.Reporter

	calcOnce sync.Once
	abiCalc  *abi.Calc
}

// NewContext creates a Context; a nil reporter drops diagnostics.
func NewContext(in *types.Interner, target layout.Target, r diag.Reporter) *Context {
	return &Context{Types: in, Target: target, Reporter: r}
}

// WithReporter returns a Context that reports to r and shares the fn ABI
// calculator, and so the layout cache, of cx.
func (cx *Context) WithReporter(r diag.Reporter) *Context {
	shared := cx.calc()
	out := &Context{Types: cx.Types, Target: cx.Target, Reporter: r, abiCalc: shared}
	out.calcOnce.Do(func() {})
	return out
}

func (cx *Context) calc() *abi.Calc {
	cx.calcOnce.Do(func() {
		cx.abiCalc = abi.NewCalc(cx.Types, cx.Target)
	})
	return cx.abiCalc
}

func (cx *Context) reporter() diag.Reporter {
	if cx.Reporter == nil {
		return diag.NopReporter{}
	}
	return cx.Reporter
}

// ForFnAbi returns the type metadata identifier of a lowered function:
// `_ZTSF<return><arguments>E`, where arguments passed as Ignore are skipped,
// followed by the `.normalized` and `.generalized` suffixes of opts.
func ForFnAbi(cx *Context, fnAbi *abi.FnAbi, opts Options) (id string, err error) {
	if fnAbi == nil {
		return "", ErrNilFnAbi
	}
	defer catch(&err, "typeid for fn abi")
	id = newEncoder(cx).forFnAbi(fnAbi, opts)
	logComputed("fn-abi", id, opts)
	return id, nil
}

// ForFnSig returns the type metadata identifier of a signature.
func ForFnSig(cx *Context, sig types.FnSig, opts Options) (id string, err error) {
	defer catch(&err, "typeid for fn sig")
	e := newEncoder(cx)
	id = "_ZTS" + e.encodeFnSig(sig, opts) + suffixes(opts)
	logComputed("fn-sig", id, opts)
	return id, nil
}

// ForInstance returns the type metadata identifier of a callable instance.
// The instance is first canonicalized so that a method implementation and
// the virtual calls that may dispatch to it get the same identifier.
func ForInstance(cx *Context, inst types.Instance, opts Options) (id string, err error) {
	defer catch(&err, "typeid for instance")
	canon := canonicalize(cx.Types, inst, opts)
	fnAbi, err := cx.calc().FnAbiOfInstance(canon)
	if err != nil {
		return "", fmt.Errorf("typeid for instance %s: %w", cx.Types.FormatInstance(canon), err)
	}
	id = newEncoder(cx).forFnAbi(fnAbi, opts)
	if ce := Logger().Check(zap.DebugLevel, "computed type id"); ce != nil {
		ce.Write(
			zap.String("kind", "instance"),
			zap.String("instance", cx.Types.FormatInstance(inst)),
			zap.String("canonical", cx.Types.FormatInstance(canon)),
			zap.String("typeid", id),
			zap.Stringer("options", opts),
		)
	}
	return id, nil
}

func (e *encoder) forFnAbi(fa *abi.FnAbi, opts Options) string {
	var s strings.Builder
	s.WriteString("_ZTSF")

	encOpts := opts
	encOpts.GeneralizeReprC = fa.Conv == abi.ConvC
	tr := e.newTransformer(opts)

	s.WriteString(e.encodeTy(tr.FoldTy(fa.Ret.Ty), encOpts))
	if !fa.CVariadic {
		pushed := false
		for _, arg := range fa.Args {
			if arg.Mode == abi.PassIgnore {
				continue
			}
			pushed = true
			s.WriteString(e.encodeTy(tr.FoldTy(arg.Ty), encOpts))
		}
		if !pushed {
			s.WriteByte('v')
		}
	} else {
		for n := 0; n < fa.FixedCount && n < len(fa.Args); n++ {
			if fa.Args[n].Mode == abi.PassIgnore {
				continue
			}
			s.WriteString(e.encodeTy(tr.FoldTy(fa.Args[n].Ty), encOpts))
		}
		s.WriteByte('z')
	}

	s.WriteByte('E')
	s.WriteString(suffixes(opts))
	return s.String()
}

func suffixes(opts Options) string {
	var s string
	if opts.NormalizeIntegers {
		s += ".normalized"
	}
	if opts.GeneralizePointers {
		s += ".generalized"
	}
	return s
}

func logComputed(kind, id string, opts Options) {
	if ce := Logger().Check(zap.DebugLevel, "computed type id"); ce != nil {
		ce.Write(zap.String("kind", kind), zap.String("typeid", id), zap.Stringer("options", opts))
	}
}
