package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cfityid/internal/cache"
	"cfityid/internal/diag"
	"cfityid/internal/manifest"
	"cfityid/internal/observ"
	"cfityid/internal/source"
	"cfityid/internal/typeid"
	"cfityid/internal/types"
)

const manifestSrc = `
[[crate]]
name = "app"
stable_id = 1

[[struct]]
path = "app::Point"
fields = ["i32", "i32"]

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

[[call]]
name = "add"
path = "app::add"

[[call]]
name = "id-u64"
path = "app::id"
args = ["u64"]

[[call]]
name = "id-u8"
path = "app::id"
args = ["u8"]

[[call]]
name = "impl-foo"
kind = "method"
impl = "foo-for-point"
method = "foo"

[[call]]
name = "ptr"
kind = "sig"
sig = "fn(i32) -> i32"
`

var wantIDs = map[string]string{
	"add":      "_ZTSFu3i32S_S_E",
	"id-u64":   "_ZTSFu3u64S_E",
	"id-u8":    "_ZTSFu2u8S_E",
	"impl-foo": "_ZTSFvu3refIu3dynIu14NtCs0_3app3Foou6regionEEu3i32E",
	"ptr":      "_ZTSFu3i32S_E",
}

func writeManifest(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfi.toml")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func checkResults(t *testing.T, results []Result) {
	t.Helper()
	if len(results) != len(wantIDs) {
		t.Fatalf("results = %d, want %d", len(results), len(wantIDs))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("%s: %v", r.Name, r.Err)
		}
		if want := wantIDs[r.Name]; r.ID != want {
			t.Errorf("%s = %q, want %q", r.Name, r.ID, want)
		}
	}
}

func TestRunComputesIDs(t *testing.T) {
	path := writeManifest(t, manifestSrc)
	timer := observ.NewTimer()
	report, err := Run(context.Background(), path, Options{Jobs: 1, Timer: timer})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkResults(t, report.Results)
	if report.Results[0].Name != "add" || report.Results[4].Name != "ptr" {
		t.Fatalf("results out of manifest order: %s ... %s", report.Results[0].Name, report.Results[4].Name)
	}
	if report.Results[4].Callee != "fn(i32) -> i32" {
		t.Fatalf("sig callee = %q", report.Results[4].Callee)
	}
	if report.Target.PointerWidth != 64 {
		t.Fatalf("target = %+v", report.Target)
	}
	if s := report.Stats(); s.Computed != 5 || s.Cached != 0 || s.Failed != 0 {
		t.Fatalf("stats = %+v", s)
	}
	if n := len(timer.Report().Phases); n != 3 {
		t.Fatalf("timer phases = %d, want 3", n)
	}
}

func TestRunParallelMatchesSerial(t *testing.T) {
	path := writeManifest(t, manifestSrc)
	serial, err := Run(context.Background(), path, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("serial Run: %v", err)
	}
	for range 5 {
		parallel, err := Run(context.Background(), path, Options{Jobs: 8})
		if err != nil {
			t.Fatalf("parallel Run: %v", err)
		}
		for i := range serial.Results {
			s, p := serial.Results[i], parallel.Results[i]
			if s.Name != p.Name || s.ID != p.ID {
				t.Fatalf("result %d: serial %s=%s, parallel %s=%s", i, s.Name, s.ID, p.Name, p.ID)
			}
		}
	}
}

func TestRunUsesCache(t *testing.T) {
	path := writeManifest(t, manifestSrc)
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	first, err := Run(context.Background(), path, Options{Cache: c})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if s := first.Stats(); s.Cached != 0 || s.Computed != 5 {
		t.Fatalf("first stats = %+v", s)
	}
	second, err := Run(context.Background(), path, Options{Cache: c})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if s := second.Stats(); s.Cached != 5 {
		t.Fatalf("second stats = %+v", s)
	}
	checkResults(t, second.Results)

	// Different options must not reuse entries.
	third, err := Run(context.Background(), path, Options{Cache: c, Encoding: typeid.Options{NormalizeIntegers: true}})
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if s := third.Stats(); s.Cached != 0 {
		t.Fatalf("third stats = %+v", s)
	}
}

func TestRunInvalidManifest(t *testing.T) {
	path := writeManifest(t, "[[crate]]\nname = \"app\"\n\n[[fn]]\npath = \"app::f\"\nparams = [\"Missing\"]\n")
	report, err := Run(context.Background(), path, Options{})
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("err = %v, want ErrInvalidManifest", err)
	}
	if report == nil || !report.Bag.HasErrors() {
		t.Fatal("want diagnostics in the report")
	}
	if d := report.Bag.Items()[0]; d.Code != diag.ManifestUnknownPath {
		t.Fatalf("code = %v", d.Code)
	}
	if len(report.Results) != 0 {
		t.Fatalf("results = %d, want none", len(report.Results))
	}
}

func TestRunMissingManifest(t *testing.T) {
	report, err := Run(context.Background(), filepath.Join(t.TempDir(), "absent.toml"), Options{})
	if err == nil || report != nil {
		t.Fatalf("report=%v err=%v", report, err)
	}
}

func TestRunCancelled(t *testing.T) {
	path := writeManifest(t, manifestSrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, path, Options{Jobs: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

const blankOverride = `
[[crate]]
name = "app"
stable_id = 1

[[struct]]
path = "app::Blank"
cfi_encoding = "   "
fields = ["i32"]

[[call]]
name = "blank"
kind = "sig"
sig = "fn(app::Blank)"
`

func TestRunReportsCachedDiagnostics(t *testing.T) {
	path := writeManifest(t, blankOverride)
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	var ids []string
	for run := range 2 {
		report, err := Run(context.Background(), path, Options{Cache: c})
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if len(report.Results) != 1 {
			t.Fatalf("run %d: results = %d", run, len(report.Results))
		}
		res := report.Results[0]
		if res.Cached != (run == 1) {
			t.Fatalf("run %d: cached = %v", run, res.Cached)
		}
		if !report.Bag.HasErrors() {
			t.Fatalf("run %d: want the invalid cfi_encoding error", run)
		}
		items := report.Bag.Items()
		if len(items) != 1 || items[0].Code != diag.CfiInvalidEncoding {
			t.Fatalf("run %d: diagnostics = %+v", run, items)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read manifest: %v", err)
		}
		if got := string(content[items[0].Primary.Start:items[0].Primary.End]); got != "   " {
			t.Fatalf("run %d: span text = %q", run, got)
		}
		ids = append(ids, res.ID)
	}
	if ids[0] != ids[1] {
		t.Fatalf("ids differ: %q, %q", ids[0], ids[1])
	}
}

func TestComputeWithoutDigestSkipsCache(t *testing.T) {
	path := writeManifest(t, manifestSrc)
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	report, err := Run(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fs := source.NewFileSet()
	m, err := manifest.Load(fs, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	in := types.NewInterner()
	prog := manifest.Build(in, m, diag.NopReporter{})
	for range 2 {
		results, err := Compute(context.Background(), in, prog, nil, cache.Digest{}, Options{Cache: c})
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		for i, r := range results {
			if r.Cached {
				t.Fatalf("%s: cached without a manifest digest", r.Name)
			}
			if r.ID != report.Results[i].ID {
				t.Fatalf("%s = %q, want %q", r.Name, r.ID, report.Results[i].ID)
			}
		}
	}
}

func TestSetLoggerNil(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("Logger() is nil after SetLogger(nil)")
	}
	Logger().Debug("still usable")
}
