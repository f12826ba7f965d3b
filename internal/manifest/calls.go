package manifest

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"cfityid/internal/diag"
	"cfityid/internal/source"
	"cfityid/internal/types"
)

// CallKind selects how a call entry becomes an instance.
type CallKind uint8

const (
	CallFn CallKind = iota
	CallMethod
	CallVirtual
	CallVTableShim
	CallDrop
	CallClosure
	CallCoroutine
	CallSig
)

var callKindNames = [...]string{
	CallFn:         "fn",
	CallMethod:     "method",
	CallVirtual:    "virtual",
	CallVTableShim: "vtable-shim",
	CallDrop:       "drop",
	CallClosure:    "closure",
	CallCoroutine:  "coroutine",
	CallSig:        "sig",
}

func (k CallKind) String() string {
	if int(k) < len(callKindNames) {
		return callKindNames[k]
	}
	return fmt.Sprintf("CallKind(%d)", k)
}

func parseCallKind(s string) (CallKind, bool) {
	if s == "" {
		return CallFn, true
	}
	for k, name := range callKindNames {
		if name == s {
			return CallKind(k), true //nolint:gosec // bounded by callKindNames
		}
	}
	return 0, false
}

// Call is a resolved call entry. Sig calls carry a signature instead of an
// instance.
type Call struct {
	Name     string
	Kind     CallKind
	Instance types.Instance
	Sig      types.FnSig
	Span     source.Span
}

func spanAt(file source.FileID, start, end int) source.Span {
	s, err1 := safecast.Conv[uint32](start)
	e, err2 := safecast.Conv[uint32](end)
	if err1 != nil || err2 != nil || e < s {
		return source.Span{File: file}
	}
	return source.Span{File: file, Start: s, End: e}
}

func (b *builder) calls() []Call {
	var out []Call
	seen := make(map[string]bool)
	for i, c := range b.m.Calls {
		kind, ok := parseCallKind(c.Kind)
		if !ok {
			b.errorf(diag.ManifestBadCall, b.m.span(c.Kind), "unknown call kind `%s`", c.Kind)
			continue
		}
		name := c.Name
		if name == "" {
			name = defaultCallName(kind, c, i)
		}
		if seen[name] {
			b.errorf(diag.ManifestDuplicatePath, b.m.span(name), "call `%s` declared twice", name)
			continue
		}
		seen[name] = true

		call := Call{Name: name, Kind: kind, Span: b.m.span(callTarget(kind, c))}
		switch kind {
		case CallFn:
			ok = b.fnCall(&call, c)
		case CallMethod:
			ok = b.methodCall(&call, c)
		case CallVirtual, CallVTableShim:
			ok = b.traitCall(&call, c)
		case CallDrop:
			ok = b.dropCall(&call, c)
		case CallClosure:
			ok = b.closureCall(&call, b.closures, c.Closure, "closure", c.Args)
		case CallCoroutine:
			ok = b.closureCall(&call, b.coroutines, c.Coroutine, "coroutine", c.Args)
		case CallSig:
			ok = b.sigCall(&call, c)
		}
		if ok {
			out = append(out, call)
		}
	}
	return out
}

// callTarget returns the field naming what a call of kind refers to.
func callTarget(kind CallKind, c CallConfig) string {
	switch kind {
	case CallMethod:
		return c.Impl + "::" + c.Method
	case CallVirtual, CallVTableShim:
		return c.Method
	case CallDrop:
		return c.Type
	case CallClosure:
		return c.Closure
	case CallCoroutine:
		return c.Coroutine
	case CallSig:
		return c.Sig
	default:
		return c.Path
	}
}

func defaultCallName(kind CallKind, c CallConfig, i int) string {
	target := callTarget(kind, c)
	if strings.TrimSpace(target) == "" || target == "::" {
		return fmt.Sprintf("call#%d", i+1)
	}
	name := kind.String() + " " + target
	if kind == CallVirtual || kind == CallVTableShim {
		name += " for " + c.Self
	}
	if len(c.Args) > 0 {
		name += "<" + strings.Join(c.Args, ", ") + ">"
	}
	return name
}

func (b *builder) require(value, field string, kind CallKind) bool {
	if strings.TrimSpace(value) == "" {
		b.errorf(diag.ManifestBadCall, b.m.span(kind.String()), "%s call without `%s`", kind, field)
		return false
	}
	return true
}

// callArgs lowers written generic arguments for the parameters of def that
// follow prefix. Lifetime parameters take erased regions.
func (b *builder) callArgs(def types.DefID, prefix []types.GenericArg, texts []string, sc *scope, at source.Span) (types.ArgsID, bool) {
	params := b.in.AllGenericParams(def)
	if len(prefix) > len(params) {
		diag.ReportError(b.r, diag.ManifestBadCall, at, "too many leading arguments").Emit()
		return types.EmptyArgs, false
	}
	params = params[len(prefix):]
	want := 0
	for _, p := range params {
		if p.Kind != types.ArgRegion {
			want++
		}
	}
	if len(texts) != want {
		b.errorf(diag.ManifestUnknownGeneric, at, "`%s` takes %d generic arguments, got %d",
			b.in.DefPathString(def), want, len(texts))
		return types.EmptyArgs, false
	}

	out := append([]types.GenericArg(nil), prefix...)
	next := 0
	for _, p := range params {
		if p.Kind == types.ArgRegion {
			out = append(out, types.RegionArg(types.Erased))
			continue
		}
		text := texts[next]
		next++
		a, err := ParseArg(text)
		if err != nil {
			b.syntaxError(b.m.span(text), text, err)
			return types.EmptyArgs, false
		}
		l := b.lowerer(sc, b.m.span(text))
		ga, ok := l.arg(p, a)
		if !ok || l.failed {
			return types.EmptyArgs, false
		}
		out = append(out, ga)
	}
	return b.in.MkArgs(out), true
}

func (b *builder) fnCall(call *Call, c CallConfig) bool {
	if !b.require(c.Path, "path", call.Kind) {
		return false
	}
	def, ok := b.resolve(c.Path)
	if !ok {
		b.errorf(diag.ManifestUnknownPath, call.Span, "cannot find fn `%s`", c.Path)
		return false
	}
	if k := b.in.DefKindOf(def); k != types.DefFn {
		b.errorf(diag.ManifestBadCall, call.Span, "`%s` is a %s, not a fn", c.Path, k)
		return false
	}
	args, ok := b.callArgs(def, nil, c.Args, nil, call.Span)
	if !ok {
		return false
	}
	call.Instance = types.ItemInstance(def, args)
	return true
}

func (b *builder) methodCall(call *Call, c CallConfig) bool {
	if !b.require(c.Impl, "impl", call.Kind) || !b.require(c.Method, "method", call.Kind) {
		return false
	}
	impl, ok := b.impls[c.Impl]
	if !ok {
		b.errorf(diag.ManifestUnknownPath, b.m.span(c.Impl), "cannot find impl `%s`", c.Impl)
		return false
	}
	item, ok := b.in.FindAssocItem(impl, types.AssocFn, c.Method)
	if !ok {
		b.errorf(diag.ManifestMissingMethod, b.m.span(c.Method), "impl `%s` has no method `%s`", c.Impl, c.Method)
		return false
	}
	args, ok := b.callArgs(item.Def, nil, c.Args, nil, call.Span)
	if !ok {
		return false
	}
	call.Instance = types.ItemInstance(item.Def, args)
	return true
}

// traitCall resolves `Trait::method` called on self: virtual calls name the
// vtable slot of the method among the trait's methods.
func (b *builder) traitCall(call *Call, c CallConfig) bool {
	if !b.require(c.Method, "method", call.Kind) || !b.require(c.Self, "self", call.Kind) {
		return false
	}
	fn, ok := b.items[c.Method]
	if !ok {
		fn, ok = b.resolve(c.Method)
	}
	if !ok || b.in.DefKindOf(fn) != types.DefAssocFn {
		b.errorf(diag.ManifestUnknownPath, call.Span, "cannot find trait method `%s`", c.Method)
		return false
	}
	trait, ok := b.in.TraitOfItem(fn)
	if !ok {
		b.errorf(diag.ManifestBadCall, call.Span, "`%s` is not a trait method", c.Method)
		return false
	}
	self, ok := b.typeText(c.Self, nil)
	if !ok {
		return false
	}
	traitArgs, ok := b.callArgs(trait, []types.GenericArg{types.TypeArg(self)}, c.TraitArgs, nil, call.Span)
	if !ok {
		return false
	}
	args, ok := b.callArgs(fn, b.in.Args(traitArgs), c.Args, nil, call.Span)
	if !ok {
		return false
	}

	if call.Kind == CallVTableShim {
		call.Instance = types.Instance{Def: types.InstanceDef{Kind: types.InstanceVTableShim, Def: fn}, Args: args}
		return true
	}
	var slot uint32
	for _, it := range b.in.AssocItemsOf(trait) {
		if it.Def == fn {
			break
		}
		if it.Kind == types.AssocFn {
			slot++
		}
	}
	call.Instance = types.VirtualInstance(fn, slot, args)
	return true
}

func (b *builder) dropCall(call *Call, c CallConfig) bool {
	if !b.require(c.Type, "type", call.Kind) {
		return false
	}
	ty, ok := b.typeText(c.Type, nil)
	if !ok {
		return false
	}
	call.Instance = types.DropGlueInstance(b.core.DropInPlace, ty, b.in.MkTypeArgs(ty))
	return true
}

// closureCall instantiates a closure or coroutine with the generic arguments
// of the fn it is defined in.
func (b *builder) closureCall(call *Call, defs map[string]types.DefID, id, what string, texts []string) bool {
	if !b.require(id, what, call.Kind) {
		return false
	}
	def, ok := defs[id]
	if !ok {
		b.errorf(diag.ManifestUnknownPath, call.Span, "cannot find %s `%s`", what, id)
		return false
	}
	args, ok := b.callArgs(def, nil, texts, nil, call.Span)
	if !ok {
		return false
	}
	call.Instance = types.ItemInstance(def, args)
	return true
}

func (b *builder) sigCall(call *Call, c CallConfig) bool {
	if !b.require(c.Sig, "sig", call.Kind) {
		return false
	}
	e, err := ParseType(c.Sig)
	if err != nil {
		b.syntaxError(call.Span, c.Sig, err)
		return false
	}
	if e.Kind != ExprFn {
		b.errorf(diag.ManifestBadCall, call.Span, "sig `%s` is not a fn pointer type", c.Sig)
		return false
	}
	l := b.lowerer(nil, call.Span)
	sig, ok := l.fnSig(e)
	if !ok {
		return false
	}
	call.Sig = sig
	return true
}
