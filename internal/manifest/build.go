package manifest

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"cfityid/internal/diag"
	"cfityid/internal/layout"
	"cfityid/internal/source"
	"cfityid/internal/typeid"
	"cfityid/internal/types"
)

// Program is a manifest lowered into a type database.
type Program struct {
	Manifest *Manifest
	Target   layout.Target
	Options  typeid.Options
	Core     *types.Core
	Calls    []Call
}

type builder struct {
	in   *types.Interner
	m    *Manifest
	r    diag.Reporter
	core *types.Core

	items       map[string]types.DefID
	short       map[string][]types.DefID
	foreignMods map[types.DefID]types.DefID
	impls       map[string]types.DefID
	closures    map[string]types.DefID
	coroutines  map[string]types.DefID
}

// Build declares every item of m in a fresh interner and resolves the calls
// to identify. Problems are reported to r with manifest spans; entries that
// fail are skipped so later problems are still found.
func Build(in *types.Interner, m *Manifest, r diag.Reporter) *Program {
	if r == nil {
		r = diag.NopReporter{}
	}
	b := &builder{
		in:          in,
		m:           m,
		r:           r,
		core:        in.InstallCore(),
		items:       make(map[string]types.DefID),
		short:       make(map[string][]types.DefID),
		foreignMods: make(map[types.DefID]types.DefID),
		impls:       make(map[string]types.DefID),
		closures:    make(map[string]types.DefID),
		coroutines:  make(map[string]types.DefID),
	}
	b.registerPrelude()

	prog := &Program{
		Manifest: m,
		Target:   b.target(),
		Options: typeid.Options{
			NormalizeIntegers:  m.Options.NormalizeIntegers,
			GeneralizePointers: m.Options.GeneralizePointers,
			UseConcreteSelf:    m.Options.UseConcreteSelf,
		},
		Core: b.core,
	}

	b.declareCrates()
	structs := b.declareStructs()
	aliases := b.declareAliases()
	b.declareExterns()
	traits := b.declareTraits()
	fns := b.declareFns()

	b.defineStructs(structs)
	b.defineAliases(aliases)
	b.defineTraits(traits)
	b.defineFns(fns)
	b.defineImpls()
	b.defineClosures()
	b.defineCoroutines()

	prog.Calls = b.calls()
	return prog
}

func (b *builder) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.ReportError(b.r, code, span, fmt.Sprintf(format, args...)).Emit()
}

func (b *builder) target() layout.Target {
	t := b.m.Target
	switch t.PointerWidth {
	case 16, 32, 64, 128:
	default:
		b.errorf(diag.ManifestPointerWidth, b.m.span(t.Triple), "unsupported pointer width %d (want 16, 32, 64 or 128)", t.PointerWidth)
		t.PointerWidth = 64
	}
	if t.Triple == "" {
		return layout.TargetForWidth(t.PointerWidth)
	}
	return layout.Target{Triple: t.Triple, PointerWidth: t.PointerWidth}
}

func (b *builder) registerPrelude() {
	c := b.core
	for _, def := range []types.DefID{
		c.Drop, c.DropInPlace, c.FnOnce, c.FnMut, c.Fn, c.Coroutine, c.CoroutineState,
		c.Future, c.Poll, c.Context, c.Iterator, c.AsyncIterator, c.Pin, c.Option,
		c.CVoid, c.PhantomData, c.Send, c.Sync,
	} {
		b.bind(b.in.DefPathString(def), def)
	}
}

func (b *builder) bind(path string, def types.DefID) {
	b.items[path] = def
	name := path
	if i := strings.LastIndex(path, "::"); i >= 0 {
		name = path[i+2:]
	}
	b.short[name] = append(b.short[name], def)
}

// resolve finds an item by full path, or by bare name when it is unique.
func (b *builder) resolve(path string) (types.DefID, bool) {
	if def, ok := b.items[path]; ok {
		return def, true
	}
	if strings.Contains(path, "::") {
		return types.NoDefID, false
	}
	if defs := b.short[path]; len(defs) == 1 {
		return defs[0], true
	}
	return types.NoDefID, false
}

func (b *builder) declareCrates() {
	for _, c := range b.m.Crates {
		span := b.m.span(c.Name)
		if _, dup := b.in.CrateByName(c.Name); dup {
			b.errorf(diag.ManifestDuplicatePath, span, "crate `%s` declared twice", c.Name)
			continue
		}
		id, err := safecast.Conv[uint64](c.StableID)
		if err != nil {
			b.errorf(diag.ManifestUnknownCrate, span, "crate `%s`: stable_id must not be negative", c.Name)
			continue
		}
		b.in.RegisterCrate(c.Name, id)
	}
}

// parentOf splits an item path into its module and name, creating the
// module chain under the crate root.
func (b *builder) parentOf(path string) (types.DefID, string, bool) {
	span := b.m.span(path)
	segs := strings.Split(path, "::")
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			b.errorf(diag.ManifestUnknownPath, span, "malformed item path `%s`", path)
			return types.NoDefID, "", false
		}
	}
	if len(segs) < 2 {
		b.errorf(diag.ManifestUnknownPath, span, "item path `%s` must start with its crate", path)
		return types.NoDefID, "", false
	}
	cnum, ok := b.in.CrateByName(segs[0])
	if !ok || segs[0] == "core" {
		b.errorf(diag.ManifestUnknownCrate, span, "unknown crate `%s`", segs[0])
		return types.NoDefID, "", false
	}
	if _, dup := b.items[path]; dup {
		b.errorf(diag.ManifestDuplicatePath, span, "`%s` declared twice", path)
		return types.NoDefID, "", false
	}
	return b.in.EnsureModule(cnum, segs[1:len(segs)-1]...), segs[len(segs)-1], true
}

// params parses generic parameter declarations; const parameter types are
// lowered in the scope of parent.
func (b *builder) params(parent types.DefID, decls []string) ([]types.GenericParamDef, bool) {
	params := make([]types.GenericParamDef, 0, len(decls))
	ok := true
	for _, text := range decls {
		d, err := ParseParam(text)
		if err != nil {
			b.syntaxError(b.m.span(text), text, err)
			ok = false
			continue
		}
		p := types.GenericParamDef{Name: d.Name}
		switch d.Kind {
		case ArgLifetime:
			p.Kind = types.ArgRegion
		case ArgConst:
			p.Kind = types.ArgConst
			var sc *scope
			if parent != types.NoDefID {
				sc = b.scopeOf(parent)
			}
			l := b.lowerer(sc, b.m.span(text))
			p.Ty = l.ty(d.Ty)
			ok = ok && !l.failed
		default:
			p.Kind = types.ArgType
		}
		params = append(params, p)
	}
	return params, ok
}

func (b *builder) generics(def, parent types.DefID, decls []string) {
	params, _ := b.params(parent, decls)
	b.in.SetGenerics(def, parent, params)
}

// vtableSafe reports methods without type or const parameters of their own.
func vtableSafe(params []types.GenericParamDef) bool {
	for _, p := range params {
		if p.Kind != types.ArgRegion {
			return false
		}
	}
	return true
}

type declared[T any] struct {
	def types.DefID
	cfg T
}

func (b *builder) declareStructs() []declared[StructConfig] {
	var out []declared[StructConfig]
	for _, s := range b.m.Structs {
		parent, name, ok := b.parentOf(s.Path)
		if !ok {
			continue
		}
		kind := types.DefStruct
		switch s.Kind {
		case "", "struct":
		case "enum":
			kind = types.DefEnum
		case "union":
			kind = types.DefUnion
		default:
			b.errorf(diag.ManifestBadType, b.m.span(s.Kind), "unknown item kind `%s` (want struct, enum or union)", s.Kind)
			continue
		}
		def := b.in.RegisterDef(parent, kind, types.PathTypeNs, name)
		b.generics(def, types.NoDefID, s.Generics)
		b.bind(s.Path, def)
		out = append(out, declared[StructConfig]{def, s})
	}
	return out
}

func (b *builder) declareAliases() []declared[AliasConfig] {
	var out []declared[AliasConfig]
	for _, a := range b.m.Aliases {
		parent, name, ok := b.parentOf(a.Path)
		if !ok {
			continue
		}
		def := b.in.RegisterDef(parent, types.DefTyAlias, types.PathTypeNs, name)
		b.generics(def, types.NoDefID, a.Generics)
		b.bind(a.Path, def)
		out = append(out, declared[AliasConfig]{def, a})
	}
	return out
}

func (b *builder) declareExterns() {
	for _, e := range b.m.Externs {
		parent, name, ok := b.parentOf(e.Path)
		if !ok {
			continue
		}
		block, ok := b.foreignMods[parent]
		if !ok {
			block = b.in.DeclareForeignMod(parent)
			b.foreignMods[parent] = block
		}
		def := b.in.DeclareForeign(block, name, types.ForeignDef{CfiEncoding: b.cfiEncoding(e.CfiEncoding)})
		b.bind(e.Path, def)
	}
}

func (b *builder) cfiEncoding(v *string) *types.Attr {
	if v == nil {
		return nil
	}
	return &types.Attr{Value: *v, HasValue: true, Span: b.m.span(*v)}
}

func (b *builder) declareTraits() []declared[TraitConfig] {
	var out []declared[TraitConfig]
	for _, t := range b.m.Traits {
		parent, name, ok := b.parentOf(t.Path)
		if !ok {
			continue
		}
		params, _ := b.params(types.NoDefID, t.Generics)
		tr := types.TraitDef{ObjectSafe: t.ObjectSafe == nil || *t.ObjectSafe}
		def := b.in.DeclareTrait(parent, name, params, tr)
		b.bind(t.Path, def)

		for _, assoc := range t.AssocTypes {
			b.in.DeclareAssocTy(def, assoc)
		}
		for _, m := range t.Methods {
			fn := b.in.RegisterDef(def, types.DefAssocFn, types.PathValueNs, m.Name)
			b.generics(fn, def, m.Generics)
			safe := vtableSafe(b.in.GenericsOf(fn).Params)
			if m.VtableSafe != nil {
				safe = safe && *m.VtableSafe
			}
			b.in.SetAssocItem(types.AssocItem{Def: fn, Kind: types.AssocFn, Container: def, VtableSafe: safe})
			b.bind(t.Path+"::"+m.Name, fn)
		}
		out = append(out, declared[TraitConfig]{def, t})
	}
	return out
}

func (b *builder) declareFns() []declared[FnConfig] {
	var out []declared[FnConfig]
	for _, f := range b.m.Fns {
		parent, name, ok := b.parentOf(f.Path)
		if !ok {
			continue
		}
		def := b.in.RegisterDef(parent, types.DefFn, types.PathValueNs, name)
		b.generics(def, types.NoDefID, f.Generics)
		b.bind(f.Path, def)
		out = append(out, declared[FnConfig]{def, f})
	}
	return out
}

func (b *builder) defineStructs(structs []declared[StructConfig]) {
	for _, d := range structs {
		s := d.cfg
		sc := b.scopeOf(d.def)
		adt := types.AdtDef{CfiEncoding: b.cfiEncoding(s.CfiEncoding)}
		switch b.in.DefKindOf(d.def) {
		case types.DefEnum:
			adt.Kind = types.AdtEnum
		case types.DefUnion:
			adt.Kind = types.AdtUnion
		}
		switch s.Repr {
		case "", "Rust":
		case "C":
			adt.Repr.C = true
		case "transparent":
			adt.Repr.Transparent = true
		default:
			b.errorf(diag.ManifestBadRepr, b.m.span(s.Repr), "unsupported repr `%s` (want C or transparent)", s.Repr)
		}

		if adt.Kind == types.AdtEnum {
			if len(s.Fields) > 0 {
				b.errorf(diag.ManifestBadType, b.m.span(s.Path), "enum `%s` declares fields; use variants", s.Path)
			}
			for i, v := range s.Variants {
				fields := b.fields(v, sc)
				adt.Variants = append(adt.Variants, types.VariantDef{Name: fmt.Sprintf("V%d", i), Fields: fields})
			}
		} else {
			if len(s.Variants) > 0 {
				b.errorf(diag.ManifestBadType, b.m.span(s.Path), "%s `%s` declares variants", adt.Kind, s.Path)
			}
			adt.Variants = []types.VariantDef{{Name: b.in.ItemName(d.def), Fields: b.fields(s.Fields, sc)}}
		}
		if adt.Repr.Transparent && !transparentShape(adt) {
			b.errorf(diag.ManifestBadRepr, b.m.span(s.Path), "repr(transparent) `%s` needs exactly one variant", s.Path)
			adt.Repr.Transparent = false
		}
		b.in.SetAdt(d.def, adt)
	}
}

func transparentShape(adt types.AdtDef) bool {
	return len(adt.Variants) == 1
}

func (b *builder) fields(texts []string, sc *scope) []types.FieldDef {
	tys, _ := b.typeList(texts, sc)
	out := make([]types.FieldDef, len(tys))
	for i, t := range tys {
		out[i] = types.FieldDef{Name: fmt.Sprint(i), Ty: t}
	}
	return out
}

func (b *builder) defineAliases(aliases []declared[AliasConfig]) {
	for _, d := range aliases {
		target, ok := b.typeText(d.cfg.Target, b.scopeOf(d.def))
		if ok {
			b.in.SetTyAlias(d.def, target)
		}
	}
}

func (b *builder) defineTraits(traits []declared[TraitConfig]) {
	for _, d := range traits {
		t := d.cfg
		sc := b.scopeOf(d.def)
		sc.trait = types.TraitRef{Def: d.def, Args: b.in.IdentityArgs(d.def)}

		td, _ := b.in.TraitOf(d.def)
		for _, text := range t.Supertraits {
			tr, ok := b.traitRefText(text, b.in.SelfParam(), sc)
			if ok {
				td.Supertraits = append(td.Supertraits, tr)
			}
		}
		b.in.SetTrait(d.def, td)

		for _, m := range t.Methods {
			fn, ok := b.items[t.Path+"::"+m.Name]
			if !ok {
				continue
			}
			msc := b.scopeOf(fn)
			msc.trait = sc.trait
			if sig, ok := b.methodSig(m, msc); ok {
				b.in.SetFnSig(fn, sig)
			}
		}
	}
}

// traitRefText parses a trait path applied to self.
func (b *builder) traitRefText(text string, self types.TypeID, sc *scope) (types.TraitRef, bool) {
	base := b.m.span(text)
	e, err := ParseType(text)
	if err != nil {
		b.syntaxError(base, text, err)
		return types.TraitRef{}, false
	}
	if e.Kind != ExprPath {
		b.errorf(diag.ManifestBadType, base, "`%s` is not a trait path", text)
		return types.TraitRef{}, false
	}
	l := b.lowerer(sc, base)
	tr, ok := l.traitRef(e.Path, self)
	return tr, ok && !l.failed
}

func (b *builder) methodSig(m MethodConfig, sc *scope) (types.FnSig, bool) {
	return b.sig(m.Abi, m.Params, m.Ret, m.Variadic, sc)
}

func (b *builder) sig(abiText string, params []string, ret string, variadic bool, sc *scope) (types.FnSig, bool) {
	sig := types.FnSig{CVariadic: variadic}
	if abiText != "" {
		abi, ok := types.ParseAbi(abiText)
		if !ok {
			b.errorf(diag.ManifestBadAbi, b.m.span(abiText), "unsupported ABI %q", abiText)
			return types.FnSig{}, false
		}
		sig.Abi = abi
	}
	if variadic && !sig.Abi.IsC() {
		b.errorf(diag.ManifestBadAbi, b.m.span(abiText), "variadic functions must use the C ABI")
		return types.FnSig{}, false
	}
	inputs, ok1 := b.typeList(params, sc)
	out, ok2 := b.typeOr(ret, b.in.Builtins().Unit, sc)
	sig.Inputs, sig.Output = inputs, out
	return sig, ok1 && ok2
}

func (b *builder) defineFns(fns []declared[FnConfig]) {
	for _, d := range fns {
		f := d.cfg
		if sig, ok := b.sig(f.Abi, f.Params, f.Ret, f.Variadic, b.scopeOf(d.def)); ok {
			b.in.SetFnSig(d.def, sig)
		}
	}
}

func (b *builder) defineImpls() {
	for i, c := range b.m.Impls {
		label := c.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if _, dup := b.impls[label]; dup {
			b.errorf(diag.ManifestDuplicatePath, b.m.span(c.ID), "impl `%s` declared twice", label)
			continue
		}
		module, ok := b.implModule(c)
		if !ok {
			continue
		}
		def := b.in.RegisterDef(module, types.DefImpl, types.PathImpl, "")
		b.generics(def, types.NoDefID, c.Generics)
		sc := b.scopeOf(def)
		self, ok := b.typeText(c.Self, sc)
		if !ok {
			continue
		}
		sc.self = self

		impl := types.ImplDef{Self: self}
		if c.Trait != "" {
			tr, ok := b.traitRefText(c.Trait, self, sc)
			if !ok {
				continue
			}
			impl.Trait = tr
			sc.trait = tr
		}
		b.in.SetImpl(def, impl)
		b.impls[label] = def

		for name, value := range c.AssocTypes {
			b.implAssocTy(def, impl.Trait, name, value, sc)
		}
		for _, m := range c.Methods {
			b.implMethod(def, impl.Trait, m, sc)
		}
	}
}

func (b *builder) implModule(c ImplConfig) (types.DefID, bool) {
	name := c.Module
	if name == "" {
		if i := strings.Index(c.Self, "::"); i > 0 {
			name = c.Self[:i]
		} else {
			name = b.m.Crates[0].Name
		}
	}
	segs := strings.Split(name, "::")
	cnum, ok := b.in.CrateByName(segs[0])
	if !ok || segs[0] == "core" {
		b.errorf(diag.ManifestUnknownCrate, b.m.span(name), "unknown crate `%s` for impl", segs[0])
		return types.NoDefID, false
	}
	return b.in.EnsureModule(cnum, segs[1:]...), true
}

func (b *builder) implAssocTy(impl types.DefID, tr types.TraitRef, name, value string, sc *scope) {
	if tr.Def == types.NoDefID {
		b.errorf(diag.ManifestBadType, b.m.span(value), "associated type `%s` in an inherent impl", name)
		return
	}
	item, ok := b.in.FindAssocItem(tr.Def, types.AssocTy, name)
	if !ok {
		b.errorf(diag.ManifestUnknownPath, b.m.span(value), "no associated type `%s` in `%s`", name, b.in.DefPathString(tr.Def))
		return
	}
	ty, ok := b.typeText(value, sc)
	if !ok {
		return
	}
	b.in.DeclareImplTy(impl, item.Def, ty)
}

func (b *builder) implMethod(impl types.DefID, tr types.TraitRef, m MethodConfig, sc *scope) {
	traitItem := types.NoDefID
	if tr.Def != types.NoDefID {
		item, ok := b.in.FindAssocItem(tr.Def, types.AssocFn, m.Name)
		if !ok {
			b.errorf(diag.ManifestMissingMethod, b.m.span(m.Name), "method `%s` is not a member of trait `%s`", m.Name, b.in.DefPathString(tr.Def))
			return
		}
		traitItem = item.Def
	}
	fn := b.in.RegisterDef(impl, types.DefAssocFn, types.PathValueNs, m.Name)
	b.generics(fn, impl, m.Generics)
	msc := b.scopeOf(fn)
	msc.self, msc.trait = sc.self, sc.trait
	sig, ok := b.methodSig(m, msc)
	if !ok {
		return
	}
	b.in.SetFnSig(fn, sig)
	b.in.SetAssocItem(types.AssocItem{Def: fn, Kind: types.AssocFn, Container: impl, TraitItem: traitItem})
}

var closureKinds = map[string]types.ClosureKind{
	"":       types.ClosureFn,
	"Fn":     types.ClosureFn,
	"FnMut":  types.ClosureFnMut,
	"FnOnce": types.ClosureFnOnce,
}

var coroutineKinds = map[string]types.CoroutineKind{
	"":          types.CoroutinePlain,
	"coroutine": types.CoroutinePlain,
	"async":     types.CoroutineAsync,
	"gen":       types.CoroutineGen,
	"async gen": types.CoroutineAsyncGen,
}

// closureParent resolves the fn a closure or coroutine is defined in.
func (b *builder) closureParent(id, parent string) (types.DefID, bool) {
	def, ok := b.resolve(parent)
	if !ok {
		b.errorf(diag.ManifestUnknownPath, b.m.span(parent), "cannot find fn `%s` for `%s`", parent, id)
		return types.NoDefID, false
	}
	switch b.in.DefKindOf(def) {
	case types.DefFn, types.DefAssocFn:
		return def, true
	}
	b.errorf(diag.ManifestBadType, b.m.span(parent), "`%s` is not a fn", parent)
	return types.NoDefID, false
}

func (b *builder) uniqueID(seen map[string]types.DefID, id, what string) bool {
	if strings.TrimSpace(id) == "" {
		b.errorf(diag.ManifestBadCall, b.m.span(what), "%s without an id", what)
		return false
	}
	if _, dup := seen[id]; dup {
		b.errorf(diag.ManifestDuplicatePath, b.m.span(id), "%s `%s` declared twice", what, id)
		return false
	}
	return true
}

func (b *builder) defineClosures() {
	for _, c := range b.m.Closures {
		if !b.uniqueID(b.closures, c.ID, "closure") {
			continue
		}
		parent, ok := b.closureParent(c.ID, c.Parent)
		if !ok {
			continue
		}
		kind, ok := closureKinds[c.Kind]
		if !ok {
			b.errorf(diag.ManifestBadType, b.m.span(c.Kind), "unknown closure kind `%s` (want Fn, FnMut or FnOnce)", c.Kind)
			continue
		}
		sc := b.scopeOf(parent)
		inputs, ok1 := b.typeList(c.Params, sc)
		out, ok2 := b.typeOr(c.Ret, b.in.Builtins().Unit, sc)
		upvars, ok3 := b.typeList(c.Upvars, sc)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		cl := types.ClosureDef{Kind: kind, Inputs: inputs, Output: out, Upvars: upvars}
		if c.Async {
			b.closures[c.ID] = b.in.DeclareCoroutineClosure(parent, cl)
		} else {
			b.closures[c.ID] = b.in.DeclareClosure(parent, cl)
		}
	}
}

func (b *builder) defineCoroutines() {
	for _, c := range b.m.Coroutines {
		if !b.uniqueID(b.coroutines, c.ID, "coroutine") {
			continue
		}
		parent, ok := b.closureParent(c.ID, c.Parent)
		if !ok {
			continue
		}
		kind, ok := coroutineKinds[c.Kind]
		if !ok {
			b.errorf(diag.ManifestBadType, b.m.span(c.Kind), "unknown coroutine kind `%s` (want coroutine, async, gen or async gen)", c.Kind)
			continue
		}
		sc := b.scopeOf(parent)
		unit := b.in.Builtins().Unit
		resume, ok1 := b.typeOr(c.Resume, unit, sc)
		yield, ok2 := b.typeOr(c.Yield, unit, sc)
		ret, ok3 := b.typeOr(c.Return, unit, sc)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		b.coroutines[c.ID] = b.in.DeclareCoroutine(parent, types.CoroutineDef{Kind: kind, Resume: resume, Yield: yield, Return: ret})
	}
}
