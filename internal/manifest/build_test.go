package manifest

import (
	"strings"
	"testing"

	"cfityid/internal/diag"
	"cfityid/internal/source"
	"cfityid/internal/typeid"
	"cfityid/internal/types"
)

const shapes = `
[[crate]]
name = "app"
stable_id = 1

[[struct]]
path = "app::Point"
fields = ["i32", "i32"]

[[struct]]
path = "app::Wrapper"
generics = ["T"]
repr = "transparent"
fields = ["T"]

[[extern_type]]
path = "app::ffi::Opaque"

[[alias]]
path = "app::Id"
target = "u32"

[[trait]]
path = "app::Foo"

  [[trait.method]]
  name = "foo"
  params = ["&Self", "i32"]

[[impl]]
id = "foo-for-point"
trait = "app::Foo"
self = "app::Point"

  [[impl.method]]
  name = "foo"
  params = ["&Self", "i32"]

[[fn]]
path = "app::add"
params = ["i32", "i32"]
ret = "i32"

[[fn]]
path = "app::id"
generics = ["T"]
params = ["T"]
ret = "T"

[[fn]]
path = "app::ffi::touch"
abi = "C"
params = ["*mut Opaque", "Id"]

[[call]]
name = "add"
path = "app::add"

[[call]]
name = "id-u64"
path = "app::id"
args = ["u64"]

[[call]]
name = "impl-foo"
kind = "method"
impl = "foo-for-point"
method = "foo"

[[call]]
name = "virtual-foo"
kind = "virtual"
method = "app::Foo::foo"
self = "app::Point"

[[call]]
name = "touch"
path = "app::ffi::touch"

[[call]]
name = "ptr"
kind = "sig"
sig = "fn(i32) -> i32"

[[call]]
kind = "drop"
type = "app::Point"
`

func build(t *testing.T, src string) (*Program, *types.Interner, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	m, err := Parse(fs, "shapes.toml", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := types.NewInterner()
	bag := diag.NewBag(32)
	prog := Build(in, m, diag.BagReporter{Bag: bag})
	return prog, in, bag
}

func mustBuild(t *testing.T, src string) (*Program, *types.Interner) {
	t.Helper()
	prog, in, bag := build(t, src)
	if bag.HasErrors() {
		for _, d := range bag.Items() {
			t.Errorf("%s: %s", d.Primary, d.Message)
		}
		t.FailNow()
	}
	return prog, in
}

func callIDs(t *testing.T, prog *Program, in *types.Interner) map[string]string {
	t.Helper()
	cx := typeid.NewContext(in, prog.Target, nil)
	out := make(map[string]string, len(prog.Calls))
	for _, c := range prog.Calls {
		var (
			id  string
			err error
		)
		if c.Kind == CallSig {
			id, err = typeid.ForFnSig(cx, c.Sig, prog.Options)
		} else {
			id, err = typeid.ForInstance(cx, c.Instance, prog.Options)
		}
		if err != nil {
			t.Fatalf("call %s: %v", c.Name, err)
		}
		out[c.Name] = id
	}
	return out
}

func TestBuildComputesCallIDs(t *testing.T) {
	prog, in := mustBuild(t, shapes)
	if len(prog.Calls) != 7 {
		t.Fatalf("calls = %d, want 7", len(prog.Calls))
	}
	ids := callIDs(t, prog, in)

	want := map[string]string{
		"add":         "_ZTSFu3i32S_S_E",
		"id-u64":      "_ZTSFu3u64S_E",
		"impl-foo":    "_ZTSFvu3refIu3dynIu14NtCs0_3app3Foou6regionEEu3i32E",
		"virtual-foo": "_ZTSFvu3refIu3dynIu14NtCs0_3app3Foou6regionEEu3i32E",
		"ptr":         "_ZTSFu3i32S_E",
	}
	for name, id := range want {
		if ids[name] != id {
			t.Errorf("%s = %q, want %q", name, ids[name], id)
		}
	}
	if drop := ids["drop app::Point"]; !strings.HasPrefix(drop, "_ZTSFvPu3dynI") {
		t.Errorf("drop glue id = %q", drop)
	}
	if touch := ids["touch"]; !strings.HasPrefix(touch, "_ZTSFvP") || !strings.HasSuffix(touch, "E") {
		t.Errorf("touch id = %q", touch)
	}
}

func TestBuildConcreteSelfOption(t *testing.T) {
	prog, in := mustBuild(t, shapes+"\n[options]\nconcrete_self = true\n")
	ids := callIDs(t, prog, in)
	if got := ids["impl-foo"]; got != "_ZTSFvu3refIu16NtCs0_3app5PointEu3i32E" {
		t.Fatalf("impl-foo = %q", got)
	}
}

func TestBuildDefaultTarget(t *testing.T) {
	prog, _ := mustBuild(t, shapes)
	if prog.Target.PointerWidth != 64 {
		t.Fatalf("pointer width = %d, want 64", prog.Target.PointerWidth)
	}
	prog, _ = mustBuild(t, "[target]\npointer_width = 32\n"+shapes)
	if prog.Target.PointerWidth != 32 || prog.Target.Triple != "i686-linux-gnu" {
		t.Fatalf("target = %+v", prog.Target)
	}
}

func findDef(in *types.Interner, path string) types.DefID {
	for id := types.DefID(1); ; id++ {
		if _, ok := in.Def(id); !ok {
			return types.NoDefID
		}
		if in.DefPathString(id) == path {
			return id
		}
	}
}

func TestBuildResolvesItems(t *testing.T) {
	_, in := mustBuild(t, shapes)
	point := findDef(in, "app::Point")
	wrapper := findDef(in, "app::Wrapper")
	if point == types.NoDefID || wrapper == types.NoDefID {
		t.Fatalf("point=%d wrapper=%d", point, wrapper)
	}
	if k := in.DefKindOf(point); k != types.DefStruct {
		t.Fatalf("app::Point is a %s", k)
	}
	adt, ok := in.AdtOf(wrapper)
	if !ok || !adt.Repr.Transparent {
		t.Fatalf("wrapper adt = %+v", adt)
	}
	if n := len(in.GenericsOf(wrapper).Params); n != 1 {
		t.Fatalf("wrapper generics = %d", n)
	}
	if impls := in.ImplsOfTrait(findDef(in, "app::Foo")); len(impls) != 1 {
		t.Fatalf("impls of Foo = %d, want 1", len(impls))
	}
}

func TestBuildDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
		at   string
	}{
		{
			name: "unknown type",
			src:  "[[fn]]\npath = \"app::f\"\nparams = [\"Missing\"]\n",
			code: diag.ManifestUnknownPath,
			at:   "Missing",
		},
		{
			name: "unknown crate",
			src:  "[[fn]]\npath = \"other::f\"\n",
			code: diag.ManifestUnknownCrate,
			at:   "other::f",
		},
		{
			name: "bad repr",
			src:  "[[struct]]\npath = \"app::S\"\nrepr = \"packed\"\n",
			code: diag.ManifestBadRepr,
			at:   "packed",
		},
		{
			name: "bad abi",
			src:  "[[fn]]\npath = \"app::f\"\nabi = \"fastcall-ish\"\n",
			code: diag.ManifestBadAbi,
			at:   "fastcall-ish",
		},
		{
			name: "duplicate path",
			src:  "[[fn]]\npath = \"app::f\"\n[[fn]]\npath = \"app::f\"\n",
			code: diag.ManifestDuplicatePath,
			at:   "app::f",
		},
		{
			name: "missing trait method",
			src: `[[trait]]
path = "app::T"
[[impl]]
trait = "app::T"
self = "u8"
  [[impl.method]]
  name = "nope"
`,
			code: diag.ManifestMissingMethod,
			at:   "nope",
		},
		{
			name: "unknown call kind",
			src:  "[[call]]\nkind = \"teleport\"\n",
			code: diag.ManifestBadCall,
			at:   "teleport",
		},
		{
			name: "generic arity",
			src:  "[[fn]]\npath = \"app::g\"\ngenerics = [\"T\"]\n[[call]]\npath = \"app::g\"\n",
			code: diag.ManifestUnknownGeneric,
			at:   "app::g",
		},
		{
			name: "pointer width",
			src:  "[target]\ntriple = \"weird\"\npointer_width = 12\n",
			code: diag.ManifestPointerWidth,
			at:   "weird",
		},
		{
			name: "syntax",
			src:  "[[fn]]\npath = \"app::f\"\nparams = [\"[u8; 4\"]\n",
			code: diag.ManifestBadType,
			at:   "[u8; 4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "[[crate]]\nname = \"app\"\nstable_id = 1\n\n" + tt.src
			_, _, bag := build(t, src)
			if !bag.HasErrors() {
				t.Fatalf("want %v, got no errors", tt.code)
			}
			var found bool
			for _, d := range bag.Items() {
				if d.Code != tt.code {
					continue
				}
				found = true
				start := strings.Index(src, tt.at)
				if int(d.Primary.Start) < start || int(d.Primary.End) > start+len(tt.at)+1 {
					t.Fatalf("span [%d, %d) outside %q at %d", d.Primary.Start, d.Primary.End, tt.at, start)
				}
			}
			if !found {
				for _, d := range bag.Items() {
					t.Logf("%v: %s", d.Code, d.Message)
				}
				t.Fatalf("no %v diagnostic", tt.code)
			}
		})
	}
}

func TestBuildPointerWidth128(t *testing.T) {
	src := `[target]
pointer_width = 128

[options]
normalize_integers = true

[[crate]]
name = "app"
stable_id = 1

[[fn]]
path = "app::len"
params = ["usize"]

[[call]]
name = "len"
path = "app::len"
`
	prog, in := mustBuild(t, src)
	if prog.Target.PointerWidth != 128 {
		t.Fatalf("target = %+v", prog.Target)
	}
	if got := callIDs(t, prog, in)["len"]; got != "_ZTSFvu4u128E.normalized" {
		t.Fatalf("len = %q", got)
	}
}
