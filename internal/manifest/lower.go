package manifest

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"cfityid/internal/diag"
	"cfityid/internal/source"
	"cfityid/internal/types"
)

// scope is what names resolve against inside one item: its generic
// parameters (parent's first), the Self type and the enclosing trait ref.
type scope struct {
	params []types.GenericParamDef
	self   types.TypeID
	trait  types.TraitRef
}

func (b *builder) scopeOf(def types.DefID) *scope {
	return &scope{params: b.in.AllGenericParams(def)}
}

func (sc *scope) param(name string) (types.GenericParamDef, bool) {
	if sc == nil {
		return types.GenericParamDef{}, false
	}
	for i := len(sc.params) - 1; i >= 0; i-- {
		if sc.params[i].Name == name {
			return sc.params[i], true
		}
	}
	return types.GenericParamDef{}, false
}

// lowerer turns parsed expressions into interned types. Errors are reported
// with spans inside the manifest string the expression came from.
type lowerer struct {
	b      *builder
	sc     *scope
	base   source.Span
	failed bool
}

func (b *builder) lowerer(sc *scope, base source.Span) *lowerer {
	return &lowerer{b: b, sc: sc, base: base}
}

func (l *lowerer) errorf(code diag.Code, start, end int, format string, args ...any) types.TypeID {
	l.failed = true
	diag.ReportError(l.b.r, code, sub(l.base, start, end), fmt.Sprintf(format, args...)).Emit()
	return l.b.in.ErrorType()
}

// typeText parses and lowers a type written in the manifest.
func (b *builder) typeText(text string, sc *scope) (types.TypeID, bool) {
	base := b.m.span(text)
	e, err := ParseType(text)
	if err != nil {
		b.syntaxError(base, text, err)
		return b.in.ErrorType(), false
	}
	l := b.lowerer(sc, base)
	t := l.ty(e)
	return t, !l.failed
}

// typeOr lowers text, or returns def when text is empty.
func (b *builder) typeOr(text string, def types.TypeID, sc *scope) (types.TypeID, bool) {
	if strings.TrimSpace(text) == "" {
		return def, true
	}
	return b.typeText(text, sc)
}

func (b *builder) typeList(texts []string, sc *scope) ([]types.TypeID, bool) {
	out := make([]types.TypeID, len(texts))
	ok := true
	for i, text := range texts {
		t, good := b.typeText(text, sc)
		out[i] = t
		ok = ok && good
	}
	return out, ok
}

func (b *builder) syntaxError(base source.Span, text string, err error) {
	span := base
	msg := err.Error()
	if se, ok := err.(*SyntaxError); ok {
		span = sub(base, se.Start, se.End)
		msg = se.Msg
	}
	diag.ReportError(b.r, diag.ManifestBadType, span, fmt.Sprintf("in `%s`: %s", text, msg)).Emit()
}

var primitives = map[string]func(types.Builtins) types.TypeID{
	"bool":  func(b types.Builtins) types.TypeID { return b.Bool },
	"char":  func(b types.Builtins) types.TypeID { return b.Char },
	"str":   func(b types.Builtins) types.TypeID { return b.Str },
	"i8":    func(b types.Builtins) types.TypeID { return b.I8 },
	"i16":   func(b types.Builtins) types.TypeID { return b.I16 },
	"i32":   func(b types.Builtins) types.TypeID { return b.I32 },
	"i64":   func(b types.Builtins) types.TypeID { return b.I64 },
	"i128":  func(b types.Builtins) types.TypeID { return b.I128 },
	"isize": func(b types.Builtins) types.TypeID { return b.Isize },
	"u8":    func(b types.Builtins) types.TypeID { return b.U8 },
	"u16":   func(b types.Builtins) types.TypeID { return b.U16 },
	"u32":   func(b types.Builtins) types.TypeID { return b.U32 },
	"u64":   func(b types.Builtins) types.TypeID { return b.U64 },
	"u128":  func(b types.Builtins) types.TypeID { return b.U128 },
	"usize": func(b types.Builtins) types.TypeID { return b.Usize },
	"f16":   func(b types.Builtins) types.TypeID { return b.F16 },
	"f32":   func(b types.Builtins) types.TypeID { return b.F32 },
	"f64":   func(b types.Builtins) types.TypeID { return b.F64 },
	"f128":  func(b types.Builtins) types.TypeID { return b.F128 },
}

func (l *lowerer) ty(e *Expr) types.TypeID {
	in := l.b.in
	switch e.Kind {
	case ExprNever:
		return in.Builtins().Never
	case ExprTuple:
		elems := make([]types.TypeID, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = l.ty(el)
		}
		return in.Tuple(elems...)
	case ExprSlice:
		return in.Slice(l.ty(e.Elem))
	case ExprArray:
		elem := l.ty(e.Elem)
		if e.Len.Kind != ArgConst || e.Len.Lit != LitInt || e.Len.Neg {
			return l.errorf(diag.ManifestBadType, e.Len.Start, e.Len.End, "array length must be a non-negative integer literal")
		}
		n, err := parseUint(e.Len.Text)
		if err != nil {
			return l.errorf(diag.ManifestBadType, e.Len.Start, e.Len.End, "array length: %v", err)
		}
		return in.Array(elem, n)
	case ExprRef:
		return in.Ref(types.Erased, l.ty(e.Elem), e.Mut)
	case ExprPtr:
		return in.RawPtr(l.ty(e.Elem), e.Mut)
	case ExprPat:
		return in.Pat(l.ty(e.Elem), e.Pattern)
	case ExprFn:
		sig, ok := l.fnSig(e)
		if !ok {
			return in.ErrorType()
		}
		return in.FnPtr(sig)
	case ExprDyn:
		return l.dyn(e)
	case ExprQualified:
		return l.qualified(e)
	default:
		return l.path(e.Path)
	}
}

func (l *lowerer) fnSig(e *Expr) (types.FnSig, bool) {
	in := l.b.in
	sig := types.FnSig{CVariadic: e.Variadic, Output: in.Builtins().Unit}
	if e.HasAbi {
		abi, ok := types.ParseAbi(e.Abi)
		if !ok {
			l.errorf(diag.ManifestBadAbi, e.Start, e.End, "unsupported ABI %q", e.Abi)
			return types.FnSig{}, false
		}
		sig.Abi = abi
	}
	if e.Variadic && !sig.Abi.IsC() {
		l.errorf(diag.ManifestBadAbi, e.Start, e.End, "variadic fn pointers must use the C ABI")
		return types.FnSig{}, false
	}
	sig.Inputs = make([]types.TypeID, len(e.Elems))
	for i, p := range e.Elems {
		sig.Inputs[i] = l.ty(p)
	}
	if e.Ret != nil {
		sig.Output = l.ty(e.Ret)
	}
	return sig, !l.failed
}

func (l *lowerer) path(p *Path) types.TypeID {
	in := l.b.in
	first := p.Segments[0]

	if len(p.Segments) == 1 && len(first.Args) == 0 && !first.Parenthesized {
		if prim, ok := primitives[first.Name]; ok {
			return prim(in.Builtins())
		}
		if first.Name == "Self" && l.sc != nil && l.sc.self != types.NoTypeID {
			return l.sc.self
		}
		if gp, ok := l.sc.param(first.Name); ok {
			if gp.Kind != types.ArgType {
				return l.errorf(diag.ManifestBadType, p.Start, p.End, "`%s` is not a type parameter", gp.Name)
			}
			return in.Param(gp.Index, gp.Name)
		}
	}

	if len(p.Segments) == 2 && first.Name == "Self" && len(first.Args) == 0 {
		return l.selfProjection(p)
	}

	def, ok := l.b.resolve(p.String())
	if !ok {
		return l.errorf(diag.ManifestUnknownPath, p.Start, p.End, "cannot find type `%s`", p.String())
	}
	last := p.Last()
	switch in.DefKindOf(def) {
	case types.DefStruct, types.DefEnum, types.DefUnion:
		args, ok := l.args(in.AllGenericParams(def), last, nil)
		if !ok {
			return in.ErrorType()
		}
		return in.Adt(def, args)
	case types.DefTyAlias:
		args, ok := l.args(in.AllGenericParams(def), last, nil)
		if !ok {
			return in.ErrorType()
		}
		return in.Alias(def, args)
	case types.DefForeignTy:
		if len(last.Args) > 0 {
			return l.errorf(diag.ManifestBadType, last.Start, last.End, "extern type `%s` takes no generic arguments", p.String())
		}
		return in.Foreign(def)
	case types.DefTrait:
		return l.errorf(diag.ManifestBadType, p.Start, p.End, "trait `%s` used as a type; write `dyn %s`", p.String(), p.String())
	default:
		return l.errorf(diag.ManifestBadType, p.Start, p.End, "`%s` is a %s, not a type", p.String(), in.DefKindOf(def))
	}
}

// selfProjection lowers `Self::Assoc` against the enclosing trait or impl.
func (l *lowerer) selfProjection(p *Path) types.TypeID {
	if l.sc == nil || l.sc.trait.Def == types.NoDefID {
		return l.errorf(diag.ManifestBadType, p.Start, p.End, "`%s` outside of a trait or trait impl", p.String())
	}
	name := p.Segments[1].Name
	alias, ok := l.projection(l.sc.trait, name)
	if !ok {
		return l.errorf(diag.ManifestUnknownPath, p.Start, p.End, "no associated type `%s` in `%s`",
			name, l.b.in.DefPathString(l.sc.trait.Def))
	}
	return alias
}

// projection finds an associated type of tr or one of its supertraits and
// returns the alias type projecting it out of tr.
func (l *lowerer) projection(tr types.TraitRef, name string) (types.TypeID, bool) {
	in := l.b.in
	for _, sup := range in.Supertraits(tr) {
		if it, ok := in.FindAssocItem(sup.Def, types.AssocTy, name); ok {
			return in.Alias(it.Def, sup.Args), true
		}
	}
	return types.NoTypeID, false
}

func (l *lowerer) qualified(e *Expr) types.TypeID {
	in := l.b.in
	self := l.ty(e.Elem)
	tr, ok := l.traitRef(e.Path, self)
	if !ok {
		return in.ErrorType()
	}
	alias, ok := l.projection(tr, e.Assoc)
	if !ok {
		return l.errorf(diag.ManifestUnknownPath, e.Start, e.End, "no associated type `%s` in `%s`", e.Assoc, e.Path.String())
	}
	return alias
}

// traitRef lowers a trait path applied to self.
func (l *lowerer) traitRef(p *Path, self types.TypeID) (types.TraitRef, bool) {
	in := l.b.in
	def, ok := l.b.resolve(p.String())
	if !ok {
		l.errorf(diag.ManifestUnknownPath, p.Start, p.End, "cannot find trait `%s`", p.String())
		return types.TraitRef{}, false
	}
	if in.DefKindOf(def) != types.DefTrait {
		l.errorf(diag.ManifestBadType, p.Start, p.End, "`%s` is not a trait", p.String())
		return types.TraitRef{}, false
	}
	args, ok := l.args(in.AllGenericParams(def)[1:], p.Last(), []types.GenericArg{types.TypeArg(self)})
	if !ok {
		return types.TraitRef{}, false
	}
	return types.TraitRef{Def: def, Args: args}, true
}

// args matches the written arguments of seg against params. Lifetime
// parameters are filled with erased regions whether written or not.
// Parenthesized Fn sugar supplies its inputs as one tuple argument.
func (l *lowerer) args(params []types.GenericParamDef, seg *Segment, prefix []types.GenericArg) (types.ArgsID, bool) {
	in := l.b.in
	var written []*Arg
	if seg.Parenthesized {
		inputs := make([]types.TypeID, len(seg.Inputs))
		for i, e := range seg.Inputs {
			inputs[i] = l.ty(e)
		}
		prefix = append(prefix, types.TypeArg(in.Tuple(inputs...)))
		params = params[min(1, len(params)):]
	} else {
		for _, a := range seg.Args {
			switch a.Kind {
			case ArgLifetime:
			case ArgBinding:
				l.errorf(diag.ManifestBadType, a.Start, a.End, "associated type binding `%s` outside of `dyn`", a.Text)
				return types.EmptyArgs, false
			default:
				written = append(written, a)
			}
		}
	}

	want := 0
	for _, p := range params {
		if p.Kind != types.ArgRegion {
			want++
		}
	}
	if len(written) != want {
		l.errorf(diag.ManifestBadType, seg.Start, seg.End, "`%s` takes %d generic arguments, got %d", seg.Name, want, len(written))
		return types.EmptyArgs, false
	}

	out := append([]types.GenericArg(nil), prefix...)
	next := 0
	for _, p := range params {
		if p.Kind == types.ArgRegion {
			out = append(out, types.RegionArg(types.Erased))
			continue
		}
		a := written[next]
		next++
		ga, ok := l.arg(p, a)
		if !ok {
			return types.EmptyArgs, false
		}
		out = append(out, ga)
	}
	return in.MkArgs(out), !l.failed
}

func (l *lowerer) arg(p types.GenericParamDef, a *Arg) (types.GenericArg, bool) {
	if p.Kind == types.ArgType {
		if a.Kind != ArgType {
			l.errorf(diag.ManifestBadType, a.Start, a.End, "expected a type for parameter `%s`", p.Name)
			return types.GenericArg{}, false
		}
		return types.TypeArg(l.ty(a.Type)), true
	}

	// const parameter
	if a.Kind == ArgType {
		if a.Type.Kind == ExprPath && len(a.Type.Path.Segments) == 1 {
			if gp, ok := l.sc.param(a.Type.Path.Segments[0].Name); ok && gp.Kind == types.ArgConst {
				return types.ConstArgOf(types.ConstParamOf(gp.Index, gp.Name, l.constTy(gp))), true
			}
		}
		l.errorf(diag.ManifestBadType, a.Start, a.End, "expected a const value for parameter `%s`", p.Name)
		return types.GenericArg{}, false
	}
	c, ok := l.constLit(a, l.constTy(p))
	if !ok {
		return types.GenericArg{}, false
	}
	return types.ConstArgOf(c), true
}

func (l *lowerer) constTy(p types.GenericParamDef) types.TypeID {
	if p.Ty == types.NoTypeID {
		return l.b.in.Builtins().Usize
	}
	return p.Ty
}

// constLit evaluates a literal const argument for a parameter of type ty.
func (l *lowerer) constLit(a *Arg, ty types.TypeID) (types.Const, bool) {
	in := l.b.in
	tt := in.MustLookup(ty)
	switch a.Lit {
	case LitBool:
		if tt.Kind != types.KindBool {
			break
		}
		if a.Text == "true" {
			return types.ConstBits(ty, 1), true
		}
		return types.ConstBits(ty, 0), true
	case LitChar:
		if tt.Kind != types.KindChar {
			break
		}
		r := []rune(a.Text)
		if len(r) != 1 {
			break
		}
		v, err := safecast.Conv[uint64](r[0])
		if err != nil {
			break
		}
		return types.ConstBits(ty, v), true
	case LitInt:
		v, err := parseUint(a.Text)
		if err != nil {
			l.errorf(diag.ManifestBadType, a.Start, a.End, "const value: %v", err)
			return types.Const{}, false
		}
		switch {
		case tt.Kind == types.KindUint && !a.Neg:
			return types.ConstBits(ty, v), true
		case tt.Kind == types.KindInt && a.Neg && v == 1<<63:
			return types.ConstInt(ty, -1<<63), true
		case tt.Kind == types.KindInt:
			n, err := safecast.Conv[int64](v)
			if err != nil {
				l.errorf(diag.ManifestBadType, a.Start, a.End, "const value %s overflows %s", a.Text, in.Format(ty))
				return types.Const{}, false
			}
			if a.Neg {
				n = -n
			}
			return types.ConstInt(ty, n), true
		}
	}
	l.errorf(diag.ManifestBadType, a.Start, a.End, "const literal does not match parameter type `%s`", in.Format(ty))
	return types.Const{}, false
}

func parseUint(text string) (uint64, error) {
	return strconv.ParseUint(strings.ReplaceAll(text, "_", ""), 0, 64)
}

// dyn lowers a trait object. Predicates are ordered principal first, then
// projections, then auto traits, each group by path.
func (l *lowerer) dyn(e *Expr) types.TypeID {
	in := l.b.in
	self := in.SelfParam()
	var (
		principal   *types.ExistentialPredicate
		projections []types.ExistentialPredicate
		autos       []types.ExistentialPredicate
	)
	for _, bound := range e.Bounds {
		def, ok := l.b.resolve(bound.String())
		if !ok || in.DefKindOf(def) != types.DefTrait {
			return l.errorf(diag.ManifestUnknownPath, bound.Start, bound.End, "cannot find trait `%s`", bound.String())
		}
		if td, _ := in.TraitOf(def); td.Auto {
			if !slices.ContainsFunc(autos, func(p types.ExistentialPredicate) bool { return p.Def == def }) {
				autos = append(autos, types.AutoTraitPred(def))
			}
			continue
		}
		if principal != nil {
			return l.errorf(diag.ManifestBadType, bound.Start, bound.End, "only auto traits can be added to a trait object")
		}

		last := bound.Last()
		var bindings []*Arg
		stripped := *last
		stripped.Args = nil
		for _, a := range last.Args {
			if a.Kind == ArgBinding {
				bindings = append(bindings, a)
			} else {
				stripped.Args = append(stripped.Args, a)
			}
		}
		args, ok := l.args(in.AllGenericParams(def)[1:], &stripped, []types.GenericArg{types.TypeArg(self)})
		if !ok {
			return in.ErrorType()
		}
		tr := types.TraitRef{Def: def, Args: args}
		pred := types.TraitPred(def, in.MkArgs(in.Args(args)[1:]))
		principal = &pred

		if last.Parenthesized {
			out := in.Builtins().Unit
			if last.Output != nil {
				out = l.ty(last.Output)
			}
			proj, ok := l.binding(tr, "Output", out, last.Start, last.End)
			if !ok {
				return in.ErrorType()
			}
			projections = append(projections, proj)
		}
		for _, a := range bindings {
			proj, ok := l.binding(tr, a.Text, l.ty(a.Type), a.Start, a.End)
			if !ok {
				return in.ErrorType()
			}
			projections = append(projections, proj)
		}
	}

	byPath := func(a, b types.ExistentialPredicate) int {
		return cmp.Compare(in.DefPathString(a.Def), in.DefPathString(b.Def))
	}
	slices.SortStableFunc(projections, byPath)
	slices.SortStableFunc(autos, byPath)

	var preds []types.ExistentialPredicate
	if principal != nil {
		preds = append(preds, *principal)
	}
	preds = append(preds, projections...)
	preds = append(preds, autos...)
	kind := types.Dyn
	if e.DynStar {
		kind = types.DynStar
	}
	return in.Dynamic(preds, types.Erased, kind)
}

func (l *lowerer) binding(tr types.TraitRef, name string, value types.TypeID, start, end int) (types.ExistentialPredicate, bool) {
	in := l.b.in
	for _, sup := range in.Supertraits(tr) {
		if it, ok := in.FindAssocItem(sup.Def, types.AssocTy, name); ok {
			return types.ProjectionPred(it.Def, in.MkArgs(in.Args(sup.Args)[1:]), types.TypeArg(value)), true
		}
	}
	l.errorf(diag.ManifestUnknownPath, start, end, "no associated type `%s` in `%s`", name, in.DefPathString(tr.Def))
	return types.ExistentialPredicate{}, false
}
