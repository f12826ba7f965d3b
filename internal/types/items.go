package types

import (
	"fmt"
	"slices"

	"cfityid/internal/source"
)

// AdtKind separates structs, enums and unions.
type AdtKind uint8

const (
	AdtStruct AdtKind = iota
	AdtEnum
	AdtUnion
)

func (k AdtKind) String() string {
	switch k {
	case AdtStruct:
		return "struct"
	case AdtEnum:
		return "enum"
	case AdtUnion:
		return "union"
	default:
		return fmt.Sprintf("AdtKind(%d)", k)
	}
}

// Repr holds the layout representation flags of an ADT.
type Repr struct {
	C           bool
	Transparent bool
}

// FieldDef is a field with its declared, uninstantiated type.
type FieldDef struct {
	Name string
	Ty   TypeID
}

// VariantDef is one variant of an ADT; structs and unions have exactly one.
type VariantDef struct {
	Name   string
	Fields []FieldDef
}

// Attr is an item attribute with an optional string value.
type Attr struct {
	Value    string
	HasValue bool
	Span     source.Span
}

// AdtDef describes a struct, enum or union.
type AdtDef struct {
	Kind        AdtKind
	Repr        Repr
	Variants    []VariantDef
	CfiEncoding *Attr
}

// IsStruct reports struct ADTs.
func (a *AdtDef) IsStruct() bool { return a.Kind == AdtStruct }

// NonEnumVariant returns the single variant of a struct or union.
func (a *AdtDef) NonEnumVariant() VariantDef {
	if len(a.Variants) == 0 {
		return VariantDef{}
	}
	return a.Variants[0]
}

// ForeignDef describes an extern type.
type ForeignDef struct {
	CfiEncoding *Attr
}

// TraitRef applies a trait to arguments; Args[0] is Self.
type TraitRef struct {
	Def  DefID
	Args ArgsID
}

// TraitDef describes a trait. Items are in definition order; supertrait refs
// are written against the trait's own generics (Self is parameter 0).
type TraitDef struct {
	Items       []DefID
	Supertraits []TraitRef
	ObjectSafe  bool
	Auto        bool
}

// AssocKind classifies associated items.
type AssocKind uint8

const (
	AssocFn AssocKind = iota
	AssocTy
	AssocConst
)

// AssocItem is an associated fn or type of a trait or impl.
type AssocItem struct {
	Def        DefID
	Kind       AssocKind
	Container  DefID
	TraitItem  DefID  // impl items: the trait item they implement
	VtableSafe bool   // trait fns: callable through a vtable
	Value      TypeID // impl assoc types: the bound type
}

// ImplDef describes an impl block. Trait.Def is NoDefID for inherent impls.
type ImplDef struct {
	Trait TraitRef
	Self  TypeID
	Items []DefID
}

// ClosureKind is the most permissive Fn trait a closure implements.
type ClosureKind uint8

const (
	ClosureFn ClosureKind = iota
	ClosureFnMut
	ClosureFnOnce
)

func (k ClosureKind) String() string {
	switch k {
	case ClosureFn:
		return "Fn"
	case ClosureFnMut:
		return "FnMut"
	case ClosureFnOnce:
		return "FnOnce"
	default:
		return fmt.Sprintf("ClosureKind(%d)", k)
	}
}

// ClosureDef is the signature of a closure or coroutine-closure; types are
// written against the parent's generics.
type ClosureDef struct {
	Kind   ClosureKind
	Inputs []TypeID
	Output TypeID
	Upvars []TypeID
}

// CoroutineKind separates plain coroutines from their desugarings.
type CoroutineKind uint8

const (
	CoroutinePlain CoroutineKind = iota
	CoroutineAsync
	CoroutineGen
	CoroutineAsyncGen
)

func (k CoroutineKind) String() string {
	switch k {
	case CoroutinePlain:
		return "coroutine"
	case CoroutineAsync:
		return "async"
	case CoroutineGen:
		return "gen"
	case CoroutineAsyncGen:
		return "async gen"
	default:
		return fmt.Sprintf("CoroutineKind(%d)", k)
	}
}

// CoroutineDef describes a coroutine's resume, yield and return types.
type CoroutineDef struct {
	Kind   CoroutineKind
	Resume TypeID
	Yield  TypeID
	Return TypeID
	Upvars []TypeID
}

// LangItem names definitions the encoder must find by role.
type LangItem uint8

const (
	LangDrop LangItem = iota + 1
	LangDropInPlace
	LangFnOnce
	LangFnMut
	LangFn
	LangFnOnceOutput
	LangCoroutine
	LangCoroutineState
	LangFuture
	LangFutureOutput
	LangIterator
	LangAsyncIterator
	LangPin
	LangPoll
	LangOption
	LangContext
	LangCVoid
)

type itemTables struct {
	siblings   map[siblingKey]uint32
	modules    map[siblingKey]DefID
	adts       map[DefID]AdtDef
	foreign    map[DefID]ForeignDef
	sigs       map[DefID]FnSig
	traits     map[DefID]TraitDef
	assoc      map[DefID]AssocItem
	impls      map[DefID]ImplDef
	traitImpls map[DefID][]DefID
	closures   map[DefID]ClosureDef
	coroutines map[DefID]CoroutineDef
	aliases    map[DefID]TypeID
	lang       map[LangItem]DefID
}

func newItemTables() itemTables {
	return itemTables{
		siblings:   make(map[siblingKey]uint32),
		modules:    make(map[siblingKey]DefID),
		adts:       make(map[DefID]AdtDef),
		foreign:    make(map[DefID]ForeignDef),
		sigs:       make(map[DefID]FnSig),
		traits:     make(map[DefID]TraitDef),
		assoc:      make(map[DefID]AssocItem),
		impls:      make(map[DefID]ImplDef),
		traitImpls: make(map[DefID][]DefID),
		closures:   make(map[DefID]ClosureDef),
		coroutines: make(map[DefID]CoroutineDef),
		aliases:    make(map[DefID]TypeID),
		lang:       make(map[LangItem]DefID),
	}
}

// SetAdt records the definition of a struct, enum or union.
func (in *Interner) SetAdt(def DefID, adt AdtDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.adts[def] = adt
}

// AdtOf returns the ADT definition.
func (in *Interner) AdtOf(def DefID) (*AdtDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	adt, ok := in.items.adts[def]
	if !ok {
		return nil, false
	}
	return &adt, true
}

// SetForeign records an extern type.
func (in *Interner) SetForeign(def DefID, f ForeignDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.foreign[def] = f
}

// ForeignOf returns the extern type definition.
func (in *Interner) ForeignOf(def DefID) (ForeignDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	f, ok := in.items.foreign[def]
	return f, ok
}

// CfiEncodingOf returns the cfi_encoding attribute of an ADT or extern type.
func (in *Interner) CfiEncodingOf(def DefID) *Attr {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if adt, ok := in.items.adts[def]; ok {
		return adt.CfiEncoding
	}
	if f, ok := in.items.foreign[def]; ok {
		return f.CfiEncoding
	}
	return nil
}

// SetFnSig records the declared signature of a fn item.
func (in *Interner) SetFnSig(def DefID, sig FnSig) {
	in.mu.Lock()
	defer in.mu.Unlock()
	sig.Inputs = slices.Clone(sig.Inputs)
	in.items.sigs[def] = sig
}

// FnSigOf returns the declared, uninstantiated signature of a fn item.
func (in *Interner) FnSigOf(def DefID) (FnSig, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	sig, ok := in.items.sigs[def]
	if !ok {
		return FnSig{}, false
	}
	sig.Inputs = slices.Clone(sig.Inputs)
	return sig, true
}

// SetTrait records a trait definition. Items already attached through
// SetAssocItem are kept.
func (in *Interner) SetTrait(def DefID, tr TraitDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if prev, ok := in.items.traits[def]; ok && len(tr.Items) == 0 {
		tr.Items = prev.Items
	}
	in.items.traits[def] = tr
}

// TraitOf returns the trait definition.
func (in *Interner) TraitOf(def DefID) (TraitDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	tr, ok := in.items.traits[def]
	tr.Items = slices.Clone(tr.Items)
	tr.Supertraits = slices.Clone(tr.Supertraits)
	return tr, ok
}

// SetAssocItem records an associated item and appends it to its container.
func (in *Interner) SetAssocItem(item AssocItem) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.assoc[item.Def] = item
	if tr, ok := in.items.traits[item.Container]; ok {
		tr.Items = append(tr.Items, item.Def)
		in.items.traits[item.Container] = tr
		return
	}
	if impl, ok := in.items.impls[item.Container]; ok {
		impl.Items = append(impl.Items, item.Def)
		in.items.impls[item.Container] = impl
		return
	}
	switch in.defs[item.Container].Kind {
	case DefTrait:
		in.items.traits[item.Container] = TraitDef{Items: []DefID{item.Def}}
	case DefImpl:
		in.items.impls[item.Container] = ImplDef{Items: []DefID{item.Def}}
	}
}

// AssocItem returns the associated item record.
func (in *Interner) AssocItem(def DefID) (AssocItem, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	it, ok := in.items.assoc[def]
	return it, ok
}

// AssocItemsOf lists a trait's or impl's items in definition order.
func (in *Interner) AssocItemsOf(container DefID) []AssocItem {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var ids []DefID
	if tr, ok := in.items.traits[container]; ok {
		ids = tr.Items
	} else if impl, ok := in.items.impls[container]; ok {
		ids = impl.Items
	}
	out := make([]AssocItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, in.items.assoc[id])
	}
	return out
}

// FindAssocItem finds a named item of the given kind in a trait or impl.
func (in *Interner) FindAssocItem(container DefID, kind AssocKind, name string) (AssocItem, bool) {
	for _, it := range in.AssocItemsOf(container) {
		if it.Kind == kind && in.ItemName(it.Def) == name {
			return it, true
		}
	}
	return AssocItem{}, false
}

// SetImpl records an impl block.
func (in *Interner) SetImpl(def DefID, impl ImplDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if prev, ok := in.items.impls[def]; ok && len(impl.Items) == 0 {
		impl.Items = prev.Items
	}
	if tr := impl.Trait.Def; tr != NoDefID && !slices.Contains(in.items.traitImpls[tr], def) {
		in.items.traitImpls[tr] = append(in.items.traitImpls[tr], def)
	}
	in.items.impls[def] = impl
}

// ImplOf returns the impl block.
func (in *Interner) ImplOf(def DefID) (ImplDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	impl, ok := in.items.impls[def]
	impl.Items = slices.Clone(impl.Items)
	return impl, ok
}

// ImplsOfTrait lists impls of a trait in registration order.
func (in *Interner) ImplsOfTrait(trait DefID) []DefID {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return slices.Clone(in.items.traitImpls[trait])
}

// SetClosure records a closure or coroutine-closure signature.
func (in *Interner) SetClosure(def DefID, c ClosureDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	c.Inputs = slices.Clone(c.Inputs)
	in.items.closures[def] = c
}

// ClosureOf returns the closure signature.
func (in *Interner) ClosureOf(def DefID) (ClosureDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	c, ok := in.items.closures[def]
	c.Inputs = slices.Clone(c.Inputs)
	return c, ok
}

// SetCoroutine records a coroutine.
func (in *Interner) SetCoroutine(def DefID, c CoroutineDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.coroutines[def] = c
}

// CoroutineOf returns the coroutine record.
func (in *Interner) CoroutineOf(def DefID) (CoroutineDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	c, ok := in.items.coroutines[def]
	return c, ok
}

// SetTyAlias records the target of a type alias.
func (in *Interner) SetTyAlias(def DefID, target TypeID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.aliases[def] = target
}

// TyAliasTarget returns the uninstantiated alias target.
func (in *Interner) TyAliasTarget(def DefID) (TypeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	t, ok := in.items.aliases[def]
	return t, ok
}

// SetLangItem binds a lang item role to a definition.
func (in *Interner) SetLangItem(li LangItem, def DefID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items.lang[li] = def
}

// LangItem returns the definition bound to li.
func (in *Interner) LangItem(li LangItem) (DefID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	def, ok := in.items.lang[li]
	return def, ok
}

// IsLangItem reports whether def plays role li.
func (in *Interner) IsLangItem(def DefID, li LangItem) bool {
	got, ok := in.LangItem(li)
	return ok && got == def
}

// TraitOfItem returns the trait declaring an associated item.
func (in *Interner) TraitOfItem(def DefID) (DefID, bool) {
	it, ok := in.AssocItem(def)
	if !ok || in.DefKindOf(it.Container) != DefTrait {
		return NoDefID, false
	}
	return it.Container, true
}

// ImplOfMethod returns the impl containing a method.
func (in *Interner) ImplOfMethod(def DefID) (DefID, bool) {
	it, ok := in.AssocItem(def)
	if !ok || in.DefKindOf(it.Container) != DefImpl {
		return NoDefID, false
	}
	return it.Container, true
}

// ImplTraitRef returns the implemented trait of an impl, written against the
// impl's generics.
func (in *Interner) ImplTraitRef(impl DefID) (TraitRef, bool) {
	d, ok := in.ImplOf(impl)
	if !ok || d.Trait.Def == NoDefID {
		return TraitRef{}, false
	}
	return d.Trait, true
}

// IsVtableSafeMethod reports whether method of trait may be called through a vtable.
func (in *Interner) IsVtableSafeMethod(trait, method DefID) bool {
	it, ok := in.AssocItem(method)
	return ok && it.Kind == AssocFn && it.Container == trait && it.VtableSafe
}

// IsObjectSafe reports whether trait can be made into a trait object.
func (in *Interner) IsObjectSafe(trait DefID) bool {
	tr, ok := in.TraitOf(trait)
	return ok && tr.ObjectSafe
}

// IsClosureLike reports closures, coroutines and coroutine-closures.
func (in *Interner) IsClosureLike(def DefID) bool {
	d, ok := in.Def(def)
	if !ok {
		return false
	}
	switch d.Kind {
	case DefClosure, DefCoroutine, DefCoroutineClosure:
		return true
	}
	return false
}

// IsCVoid reports the core::ffi::c_void type.
func (in *Interner) IsCVoid(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindAdt {
		return false
	}
	return in.IsLangItem(tt.Def, LangCVoid)
}

// FnTraitOfKind maps a closure kind to its Fn-family trait.
func (in *Interner) FnTraitOfKind(kind ClosureKind) (DefID, bool) {
	switch kind {
	case ClosureFn:
		return in.LangItem(LangFn)
	case ClosureFnMut:
		return in.LangItem(LangFnMut)
	default:
		return in.LangItem(LangFnOnce)
	}
}

// Supertraits elaborates tr into itself plus every transitive supertrait,
// instantiated with tr's arguments, without duplicates.
func (in *Interner) Supertraits(tr TraitRef) []TraitRef {
	out := []TraitRef{tr}
	seen := map[TraitRef]struct{}{tr: {}}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		def, ok := in.TraitOf(cur.Def)
		if !ok {
			continue
		}
		args := in.Args(cur.Args)
		for _, sup := range def.Supertraits {
			next := TraitRef{Def: sup.Def, Args: in.InstantiateArgs(sup.Args, args)}
			if _, dup := seen[next]; dup {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
		}
	}
	return out
}
