package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// CrateNum indexes a registered crate.
type CrateNum uint32

// Crate names a compilation unit. StableID is the crate's stable hash and
// becomes its path disambiguator.
type Crate struct {
	Name     string
	StableID uint64
	Root     DefID
}

// DefID identifies an item definition.
type DefID uint32

// NoDefID marks the absence of a definition.
const NoDefID DefID = 0

// DefPathDataKind is the namespace of one def-path segment.
type DefPathDataKind uint8

const (
	PathCrateRoot DefPathDataKind = iota
	PathImpl
	PathForeignMod
	PathUse
	PathGlobalAsm
	PathTypeNs
	PathValueNs
	PathMacroNs
	PathLifetimeNs
	PathClosure
	PathCtor
	PathAnonConst
	PathOpaqueTy
	PathAnonAdt
)

var pathKindNames = [...]string{
	PathCrateRoot:  "crate-root",
	PathImpl:       "impl",
	PathForeignMod: "foreign-mod",
	PathUse:        "use",
	PathGlobalAsm:  "global-asm",
	PathTypeNs:     "type-ns",
	PathValueNs:    "value-ns",
	PathMacroNs:    "macro-ns",
	PathLifetimeNs: "lifetime-ns",
	PathClosure:    "closure",
	PathCtor:       "ctor",
	PathAnonConst:  "anon-const",
	PathOpaqueTy:   "opaque-ty",
	PathAnonAdt:    "anon-adt",
}

func (k DefPathDataKind) String() string {
	if int(k) < len(pathKindNames) {
		return pathKindNames[k]
	}
	return fmt.Sprintf("DefPathDataKind(%d)", k)
}

// Named reports segments that carry a user-written name.
func (k DefPathDataKind) Named() bool {
	switch k {
	case PathTypeNs, PathValueNs, PathMacroNs, PathLifetimeNs:
		return true
	}
	return false
}

// DisambiguatedDefPathData is one path segment plus its sibling index.
type DisambiguatedDefPathData struct {
	Data          DefPathDataKind
	Name          string
	Disambiguator uint32
}

// DefPath lists segments root-to-leaf, excluding the crate root.
type DefPath struct {
	Crate CrateNum
	Data  []DisambiguatedDefPathData
}

// DefKind classifies a definition.
type DefKind uint8

const (
	DefMod DefKind = iota
	DefStruct
	DefEnum
	DefUnion
	DefForeignTy
	DefForeignMod
	DefFn
	DefAssocFn
	DefTrait
	DefImpl
	DefAssocTy
	DefTyAlias
	DefClosure
	DefCoroutine
	DefCoroutineClosure
	DefCtor
	DefField
	DefAnonConst
	DefOpaqueTy
)

var defKindNames = [...]string{
	DefMod:              "mod",
	DefStruct:           "struct",
	DefEnum:             "enum",
	DefUnion:            "union",
	DefForeignTy:        "foreign type",
	DefForeignMod:       "foreign mod",
	DefFn:               "fn",
	DefAssocFn:          "assoc fn",
	DefTrait:            "trait",
	DefImpl:             "impl",
	DefAssocTy:          "assoc type",
	DefTyAlias:          "type alias",
	DefClosure:          "closure",
	DefCoroutine:        "coroutine",
	DefCoroutineClosure: "coroutine closure",
	DefCtor:             "ctor",
	DefField:            "field",
	DefAnonConst:        "anon const",
	DefOpaqueTy:         "opaque type",
}

func (k DefKind) String() string {
	if int(k) < len(defKindNames) {
		return defKindNames[k]
	}
	return fmt.Sprintf("DefKind(%d)", k)
}

// GenericParamDef declares one generic parameter of an item.
type GenericParamDef struct {
	Name  string
	Kind  ArgKind
	Index uint32
	Ty    TypeID // const parameters
}

// Generics describes an item's generic parameters. Parameters of the parent
// item (trait or impl for associated items, enclosing fn for closures) come
// first, so Params[i].Index == ParentCount+i.
type Generics struct {
	Parent      DefID
	ParentCount int
	Params      []GenericParamDef
}

// Count returns the total number of parameters, parent's included.
func (g Generics) Count() int {
	return g.ParentCount + len(g.Params)
}

// Def is the stored record of a definition.
type Def struct {
	Kind     DefKind
	Parent   DefID
	Crate    CrateNum
	Data     DisambiguatedDefPathData
	Generics Generics
}

type siblingKey struct {
	parent DefID
	data   DefPathDataKind
	name   string
}

// RegisterCrate adds a crate and its root module.
func (in *Interner) RegisterCrate(name string, stableID uint64) CrateNum {
	in.mu.Lock()
	defer in.mu.Unlock()
	n, err := safecast.Conv[uint32](len(in.crates))
	if err != nil {
		panic(fmt.Errorf("len(crates) overflow: %w", err))
	}
	cnum := CrateNum(n)
	root := in.addDefLocked(Def{
		Kind:  DefMod,
		Crate: cnum,
		Data:  DisambiguatedDefPathData{Data: PathCrateRoot},
	})
	in.crates = append(in.crates, Crate{Name: name, StableID: stableID, Root: root})
	return cnum
}

// Crate returns the crate record.
func (in *Interner) Crate(cnum CrateNum) (Crate, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(cnum) >= len(in.crates) {
		return Crate{}, false
	}
	return in.crates[cnum], true
}

// CrateByName finds a crate by its name.
func (in *Interner) CrateByName(name string) (CrateNum, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	for i, c := range in.crates {
		if c.Name == name {
			return CrateNum(i), true //nolint:gosec // bounded by RegisterCrate
		}
	}
	return 0, false
}

// CrateRoot returns the root module of a crate.
func (in *Interner) CrateRoot(cnum CrateNum) DefID {
	c, ok := in.Crate(cnum)
	if !ok {
		return NoDefID
	}
	return c.Root
}

// RegisterDef adds a definition under parent. The disambiguator counts
// earlier siblings sharing the same namespace and name.
func (in *Interner) RegisterDef(parent DefID, kind DefKind, data DefPathDataKind, name string) DefID {
	in.mu.Lock()
	defer in.mu.Unlock()
	if parent == NoDefID || int(parent) >= len(in.defs) {
		panic(fmt.Sprintf("types: RegisterDef with invalid parent %d", parent))
	}
	key := siblingKey{parent: parent, data: data, name: name}
	dis := in.items.siblings[key]
	in.items.siblings[key] = dis + 1
	return in.addDefLocked(Def{
		Kind:   kind,
		Parent: parent,
		Crate:  in.defs[parent].Crate,
		Data:   DisambiguatedDefPathData{Data: data, Name: name, Disambiguator: dis},
	})
}

func (in *Interner) addDefLocked(d Def) DefID {
	n, err := safecast.Conv[uint32](len(in.defs))
	if err != nil {
		panic(fmt.Errorf("len(defs) overflow: %w", err))
	}
	in.defs = append(in.defs, d)
	return DefID(n)
}

// EnsureModule returns the module at path under the crate root, creating
// missing segments.
func (in *Interner) EnsureModule(cnum CrateNum, path ...string) DefID {
	cur := in.CrateRoot(cnum)
	for _, seg := range path {
		cur = in.ensureChild(cur, seg)
	}
	return cur
}

func (in *Interner) ensureChild(parent DefID, name string) DefID {
	in.mu.Lock()
	key := siblingKey{parent: parent, data: PathTypeNs, name: name}
	if id, ok := in.items.modules[key]; ok {
		in.mu.Unlock()
		return id
	}
	in.mu.Unlock()
	id := in.RegisterDef(parent, DefMod, PathTypeNs, name)
	in.mu.Lock()
	in.items.modules[key] = id
	in.mu.Unlock()
	return id
}

// Def returns the definition record.
func (in *Interner) Def(id DefID) (Def, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoDefID || int(id) >= len(in.defs) {
		return Def{}, false
	}
	return in.defs[id], true
}

// MustDef panics on an unknown DefID.
func (in *Interner) MustDef(id DefID) Def {
	d, ok := in.Def(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid DefID %d", id))
	}
	return d
}

// DefKindOf returns the kind of a definition.
func (in *Interner) DefKindOf(id DefID) DefKind {
	return in.MustDef(id).Kind
}

// Parent returns the enclosing definition, NoDefID for crate roots.
func (in *Interner) Parent(id DefID) DefID {
	d, _ := in.Def(id)
	return d.Parent
}

// DefPath walks from id to its crate root.
func (in *Interner) DefPath(id DefID) DefPath {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var segs []DisambiguatedDefPathData
	var cnum CrateNum
	for cur := id; cur != NoDefID && int(cur) < len(in.defs); {
		d := in.defs[cur]
		cnum = d.Crate
		if d.Data.Data == PathCrateRoot {
			break
		}
		segs = append(segs, d.Data)
		cur = d.Parent
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return DefPath{Crate: cnum, Data: segs}
}

// ItemName returns the name of the last path segment.
func (in *Interner) ItemName(id DefID) string {
	d, _ := in.Def(id)
	return d.Data.Name
}

// DefPathString formats a path as `crate::a::b`; anonymous segments use
// `{name#n}` forms and disambiguated siblings carry `#n`.
func (in *Interner) DefPathString(id DefID) string {
	path := in.DefPath(id)
	var b strings.Builder
	if c, ok := in.Crate(path.Crate); ok {
		b.WriteString(c.Name)
	}
	for _, seg := range path.Data {
		b.WriteString("::")
		switch {
		case seg.Data.Named():
			b.WriteString(seg.Name)
		default:
			b.WriteByte('{')
			b.WriteString(seg.Data.String())
			b.WriteByte('}')
		}
		if seg.Disambiguator > 0 {
			fmt.Fprintf(&b, "#%d", seg.Disambiguator)
		}
	}
	return b.String()
}

// SetGenerics declares the generic parameters of def. Parent parameters are
// counted from the parent's own declaration.
func (in *Interner) SetGenerics(def, parent DefID, params []GenericParamDef) {
	parentCount := 0
	if parent != NoDefID {
		parentCount = in.GenericsOf(parent).Count()
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	ps := make([]GenericParamDef, len(params))
	for i, p := range params {
		idx, err := safecast.Conv[uint32](parentCount + i)
		if err != nil {
			panic(fmt.Errorf("generic index overflow: %w", err))
		}
		p.Index = idx
		ps[i] = p
	}
	in.defs[def].Generics = Generics{Parent: parent, ParentCount: parentCount, Params: ps}
}

// GenericsOf returns the generics of def.
func (in *Interner) GenericsOf(def DefID) Generics {
	d, _ := in.Def(def)
	return d.Generics
}

// AllGenericParams lists the parameters of def, parent's first.
func (in *Interner) AllGenericParams(def DefID) []GenericParamDef {
	g := in.GenericsOf(def)
	var out []GenericParamDef
	if g.Parent != NoDefID {
		out = in.AllGenericParams(g.Parent)
	}
	return append(out, g.Params...)
}

// IdentityArgs maps every generic parameter of def to itself.
func (in *Interner) IdentityArgs(def DefID) ArgsID {
	params := in.AllGenericParams(def)
	args := make([]GenericArg, len(params))
	for i, p := range params {
		switch p.Kind {
		case ArgRegion:
			args[i] = RegionArg(EarlyParamRegion(p.Index))
		case ArgConst:
			ty := p.Ty
			if ty == NoTypeID {
				ty = in.builtins.Usize
			}
			args[i] = ConstArgOf(ConstParamOf(p.Index, p.Name, ty))
		default:
			args[i] = TypeArg(in.Param(p.Index, p.Name))
		}
	}
	return in.MkArgs(args)
}
