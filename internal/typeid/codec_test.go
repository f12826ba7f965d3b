package typeid

import (
	"testing"

	"cfityid/internal/diag"
	"cfityid/internal/layout"
	"cfityid/internal/types"
)

func TestToDisambiguator(t *testing.T) {
	cases := map[uint64]string{
		0:  "s_",
		1:  "s0_",
		10: "s9_",
		11: "sa_",
		37: "sA_",
		62: "sZ_",
		63: "s10_",
	}
	for n, want := range cases {
		if got := toDisambiguator(n); got != want {
			t.Fatalf("toDisambiguator(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestToSeqID(t *testing.T) {
	cases := map[int]string{
		0:  "",
		1:  "0",
		10: "9",
		11: "A",
		36: "Z",
		37: "10",
	}
	for n, want := range cases {
		if got := toSeqID(n); got != want {
			t.Fatalf("toSeqID(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestDictCompress(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	d := make(dict)

	if got := d.compress(tyKey(b.I32, qualNone), "u3i32"); got != "u3i32" {
		t.Fatalf("first insert = %q", got)
	}
	if got := d.compress(tyKey(b.I32, qualConst), "Ku3i32"); got != "Ku3i32" {
		t.Fatalf("qualified key must be distinct, got %q", got)
	}
	if got := d.compress(tyKey(b.I32, qualNone), "u3i32"); got != "S_" {
		t.Fatalf("repeat = %q, want S_", got)
	}
	if got := d.compress(tyKey(b.I32, qualConst), "Ku3i32"); got != "S0_" {
		t.Fatalf("repeat = %q, want S0_", got)
	}
	if len(d) != 2 {
		t.Fatalf("dict has %d entries, want 2", len(d))
	}
}

func newTestEncoder(in *types.Interner) *encoder {
	cx := NewContext(in, layout.X86_64LinuxGNU(), diag.NopReporter{})
	return newEncoder(cx)
}

func expectBug(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		be, ok := r.(*BugError)
		if !ok {
			t.Fatalf("%s: expected *BugError panic, got %v", name, r)
		}
		if be.Op == "" {
			t.Fatalf("%s: bug error without op: %v", name, be)
		}
	}()
	fn()
}

func TestEncodeTyName(t *testing.T) {
	in := types.NewInterner()
	krate := in.RegisterCrate("app", 1)
	root := in.CrateRoot(krate)
	net := in.EnsureModule(krate, "net")

	first := in.RegisterDef(root, types.DefStruct, types.PathTypeNs, "Dup")
	second := in.RegisterDef(root, types.DefStruct, types.PathTypeNs, "Dup")
	socket := in.RegisterDef(net, types.DefStruct, types.PathTypeNs, "Socket")
	private := in.RegisterDef(root, types.DefStruct, types.PathTypeNs, "_private")
	impl := in.RegisterDef(root, types.DefImpl, types.PathImpl, "")
	method := in.RegisterDef(impl, types.DefAssocFn, types.PathValueNs, "run")

	cases := []struct {
		def  types.DefID
		want string
	}{
		{first, "NtCs0_3app3Dup"},
		{second, "NtCs0_3apps0_3Dup"},
		{socket, "NtNtCs0_3app3net6Socket"},
		{private, "NtCs0_3app8__private"},
		{method, "NvNICs0_3app8{{impl}}3run"},
	}
	for _, tc := range cases {
		if got := encodeTyName(in, tc.def); got != tc.want {
			t.Fatalf("encodeTyName(%s) = %q, want %q", in.DefPathString(tc.def), got, tc.want)
		}
	}

	empty := in.RegisterDef(root, types.DefStruct, types.PathTypeNs, "")
	expectBug(t, "empty name", func() { encodeTyName(in, empty) })
	use := in.RegisterDef(root, types.DefMod, types.PathUse, "x")
	expectBug(t, "use segment", func() { encodeTyName(in, use) })
}

func TestEncodeRegion(t *testing.T) {
	in := types.NewInterner()
	e := newTestEncoder(in)
	if got := e.encodeRegion(types.BoundRegion(0, 0)); got != "u6regionI0E" {
		t.Fatalf("bound region = %q", got)
	}
	if got := e.encodeRegion(types.BoundRegion(1, 2)); got != "u6regionIs0_2E" {
		t.Fatalf("bound region = %q", got)
	}
	if got := e.encodeRegion(types.Erased); got != "u6region" {
		t.Fatalf("erased region = %q", got)
	}
	if got := e.encodeRegion(types.Erased); got != "S1_" {
		t.Fatalf("repeated erased region = %q", got)
	}
	expectBug(t, "static region", func() { e.encodeRegion(types.Static) })
}

func TestEncodeConst(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	cases := []struct {
		name string
		c    types.Const
		want string
	}{
		{"usize", types.ConstBits(b.Usize, 4), "Lu5usize4E"},
		{"negative i8", types.ConstInt(b.I8, -3), "Lu2i8n3E"},
		{"i8 min", types.ConstInt(b.I8, -128), "Lu2i8n128E"},
		{"positive i64", types.ConstInt(b.I64, 42), "Lu3i6442E"},
		{"u128 max", types.Const{Kind: types.ConstValue, Ty: b.U128, Lo: ^uint64(0), Hi: ^uint64(0)},
			"Lu4u128340282366920938463463374607431768211455E"},
		{"bool", types.ConstBits(b.Bool, 1), "Lb1E"},
		{"char", types.ConstBits(b.Char, 'a'), "Lu4char97E"},
		{"param", types.ConstParamOf(0, "N", b.U32), "Lu3u32E"},
	}
	for _, tc := range cases {
		e := newTestEncoder(in)
		if got := e.encodeConst(tc.c, Options{}); got != tc.want {
			t.Fatalf("%s: encodeConst = %q, want %q", tc.name, got, tc.want)
		}
	}

	e := newTestEncoder(in)
	expectBug(t, "float const", func() { e.encodeConst(types.ConstBits(b.F32, 0), Options{}) })
	expectBug(t, "infer const", func() { e.encodeConst(types.Const{Kind: types.ConstInfer, Ty: b.U8}, Options{}) })
}

func TestEncodeTyUnexpectedKinds(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	krate := in.RegisterCrate("app", 1)
	alias := in.DeclareTyAlias(in.CrateRoot(krate), "Int", nil, b.I32)

	e := newTestEncoder(in)
	if got := e.encodeTy(in.Param(0, "T"), Options{}); got != "u5param" {
		t.Fatalf("param = %q", got)
	}
	for name, ty := range map[string]types.TypeID{
		"alias":       in.Alias(alias, types.EmptyArgs),
		"bound":       in.Bound(0, 0),
		"infer":       in.Infer(0),
		"placeholder": in.Placeholder(0),
		"error":       in.ErrorType(),
	} {
		expectBug(t, name, func() { e.encodeTy(ty, Options{}) })
	}
}
