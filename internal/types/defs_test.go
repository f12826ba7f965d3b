package types

import "testing"

func TestDefPathAndDisambiguators(t *testing.T) {
	in := NewInterner()
	krate := in.RegisterCrate("app", 42)
	mod := in.EnsureModule(krate, "net", "conn")
	if again := in.EnsureModule(krate, "net", "conn"); again != mod {
		t.Fatalf("EnsureModule must reuse existing modules")
	}
	first := in.DeclareFn(mod, "open", nil, FnSig{Output: in.Builtins().Unit})
	second := in.DeclareFn(mod, "open", nil, FnSig{Output: in.Builtins().Unit})

	path := in.DefPath(second)
	if len(path.Data) != 3 {
		t.Fatalf("expected 3 segments, got %+v", path.Data)
	}
	if path.Data[0].Name != "net" || path.Data[2].Name != "open" {
		t.Fatalf("unexpected path %+v", path.Data)
	}
	if in.DefPath(first).Data[2].Disambiguator != 0 || path.Data[2].Disambiguator != 1 {
		t.Fatalf("sibling disambiguators should count up")
	}
	if got := in.DefPathString(second); got != "app::net::conn::open#1" {
		t.Fatalf("DefPathString = %q", got)
	}
}

func TestImplDisambiguatorsAreIndependentOfNames(t *testing.T) {
	in := NewInterner()
	krate := in.RegisterCrate("app", 1)
	root := in.CrateRoot(krate)
	a := in.DeclareImpl(root, nil, TraitRef{}, in.Builtins().I32)
	b := in.DeclareImpl(root, nil, TraitRef{}, in.Builtins().U32)
	if in.MustDef(a).Data.Disambiguator != 0 || in.MustDef(b).Data.Disambiguator != 1 {
		t.Fatalf("impl blocks should be disambiguated by position")
	}
	if got := in.DefPathString(b); got != "app::{impl}#1" {
		t.Fatalf("DefPathString = %q", got)
	}
}

func TestGenericsCountParents(t *testing.T) {
	in := NewInterner()
	krate := in.RegisterCrate("app", 1)
	root := in.CrateRoot(krate)
	trait := in.DeclareTrait(root, "Codec", TypeParams("T"), TraitDef{ObjectSafe: true})
	method := in.DeclareTraitFn(trait, "encode", TypeParams("W"), FnSig{Output: in.Builtins().Unit}, true)

	g := in.GenericsOf(method)
	if g.ParentCount != 2 || g.Count() != 3 {
		t.Fatalf("unexpected generics %+v", g)
	}
	if g.Params[0].Index != 2 {
		t.Fatalf("own params should follow parent params, got index %d", g.Params[0].Index)
	}
	args := in.Args(in.IdentityArgs(method))
	if len(args) != 3 || in.MustLookup(args[0].Type).Name != "Self" {
		t.Fatalf("identity args = %+v", args)
	}
}

func TestAssocItemQueries(t *testing.T) {
	in := NewInterner()
	core := in.InstallCore()
	if trait, ok := in.TraitOfItem(core.Call); !ok || trait != core.Fn {
		t.Fatalf("TraitOfItem(call) = %d, %v", trait, ok)
	}
	items := in.AssocItemsOf(core.FnOnce)
	if len(items) != 2 || items[0].Kind != AssocTy || items[1].Def != core.CallOnce {
		t.Fatalf("FnOnce items out of definition order: %+v", items)
	}
	supers := in.Supertraits(TraitRef{Def: core.Fn, Args: in.MkTypeArgs(in.Builtins().I32, in.Tuple())})
	if len(supers) != 3 {
		t.Fatalf("Fn should elaborate to Fn, FnMut, FnOnce; got %d", len(supers))
	}
	if supers[2].Def != core.FnOnce || in.Args(supers[2].Args)[0].Type != in.Builtins().I32 {
		t.Fatalf("supertrait args not instantiated: %+v", supers[2])
	}
}
