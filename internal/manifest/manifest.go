// Package manifest loads signature manifests: TOML files that declare crates,
// items and the callables whose type metadata identifiers should be computed.
package manifest

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"cfityid/internal/source"
)

// ErrNoCrates reports a manifest without any [[crate]] entry.
var ErrNoCrates = errors.New("missing [[crate]]")

// Manifest is the decoded form of a signature manifest.
type Manifest struct {
	Path  string          `toml:"-"`
	File  source.FileID   `toml:"-"`
	Files *source.FileSet `toml:"-"`

	Target     TargetConfig      `toml:"target"`
	Options    OptionsConfig     `toml:"options"`
	Crates     []CrateConfig     `toml:"crate"`
	Structs    []StructConfig    `toml:"struct"`
	Externs    []ExternConfig    `toml:"extern_type"`
	Aliases    []AliasConfig     `toml:"alias"`
	Traits     []TraitConfig     `toml:"trait"`
	Impls      []ImplConfig      `toml:"impl"`
	Fns        []FnConfig        `toml:"fn"`
	Closures   []ClosureConfig   `toml:"closure"`
	Coroutines []CoroutineConfig `toml:"coroutine"`
	Calls      []CallConfig      `toml:"call"`
}

type TargetConfig struct {
	Triple       string `toml:"triple"`
	PointerWidth int    `toml:"pointer_width"`
}

// OptionsConfig holds default encoding options; command line flags are
// added on top.
type OptionsConfig struct {
	NormalizeIntegers  bool `toml:"normalize_integers"`
	GeneralizePointers bool `toml:"generalize_pointers"`
	UseConcreteSelf    bool `toml:"concrete_self"`
}

type CrateConfig struct {
	Name     string `toml:"name"`
	StableID int64  `toml:"stable_id"`
}

type StructConfig struct {
	Path        string     `toml:"path"`
	Kind        string     `toml:"kind"`
	Generics    []string   `toml:"generics"`
	Repr        string     `toml:"repr"`
	CfiEncoding *string    `toml:"cfi_encoding"`
	Fields      []string   `toml:"fields"`
	Variants    [][]string `toml:"variants"`
}

type ExternConfig struct {
	Path        string  `toml:"path"`
	CfiEncoding *string `toml:"cfi_encoding"`
}

type AliasConfig struct {
	Path     string   `toml:"path"`
	Generics []string `toml:"generics"`
	Target   string   `toml:"target"`
}

type TraitConfig struct {
	Path        string         `toml:"path"`
	Generics    []string       `toml:"generics"`
	Supertraits []string       `toml:"supertraits"`
	AssocTypes  []string       `toml:"assoc_types"`
	ObjectSafe  *bool          `toml:"object_safe"`
	Methods     []MethodConfig `toml:"method"`
}

type MethodConfig struct {
	Name       string   `toml:"name"`
	Generics   []string `toml:"generics"`
	Abi        string   `toml:"abi"`
	Params     []string `toml:"params"`
	Ret        string   `toml:"ret"`
	Variadic   bool     `toml:"variadic"`
	VtableSafe *bool    `toml:"vtable_safe"`
}

type ImplConfig struct {
	ID         string            `toml:"id"`
	Module     string            `toml:"module"`
	Trait      string            `toml:"trait"`
	Self       string            `toml:"self"`
	Generics   []string          `toml:"generics"`
	AssocTypes map[string]string `toml:"assoc_types"`
	Methods    []MethodConfig    `toml:"method"`
}

type FnConfig struct {
	Path     string   `toml:"path"`
	Generics []string `toml:"generics"`
	Abi      string   `toml:"abi"`
	Params   []string `toml:"params"`
	Ret      string   `toml:"ret"`
	Variadic bool     `toml:"variadic"`
}

type ClosureConfig struct {
	ID     string   `toml:"id"`
	Parent string   `toml:"parent"`
	Kind   string   `toml:"kind"`
	Async  bool     `toml:"async"`
	Params []string `toml:"params"`
	Ret    string   `toml:"ret"`
	Upvars []string `toml:"upvars"`
}

type CoroutineConfig struct {
	ID     string `toml:"id"`
	Parent string `toml:"parent"`
	Kind   string `toml:"kind"`
	Resume string `toml:"resume"`
	Yield  string `toml:"yield"`
	Return string `toml:"return"`
}

// CallConfig names one callable to identify. Kind selects which fields are
// used:
//
//	fn          path, args
//	method      impl, method, args
//	virtual     method (trait path + name), self, trait_args
//	vtable-shim method, self, trait_args
//	drop        type
//	closure     closure, args
//	coroutine   coroutine, args
//	sig         sig (a fn pointer type)
type CallConfig struct {
	Name      string   `toml:"name"`
	Kind      string   `toml:"kind"`
	Path      string   `toml:"path"`
	Impl      string   `toml:"impl"`
	Method    string   `toml:"method"`
	Self      string   `toml:"self"`
	TraitArgs []string `toml:"trait_args"`
	Type      string   `toml:"type"`
	Closure   string   `toml:"closure"`
	Coroutine string   `toml:"coroutine"`
	Args      []string `toml:"args"`
	Sig       string   `toml:"sig"`
}

// Load reads and decodes the manifest at path into fs.
func Load(fs *source.FileSet, path string) (*Manifest, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decode(fs, id)
}

// Parse decodes manifest content that did not come from disk.
func Parse(fs *source.FileSet, path string, content []byte) (*Manifest, error) {
	return decode(fs, fs.Add(path, content))
}

func decode(fs *source.FileSet, id source.FileID) (*Manifest, error) {
	f := fs.Get(id)
	m := &Manifest{Path: f.Path, File: id, Files: fs}
	meta, err := toml.Decode(string(f.Content), m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", f.Path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", f.Path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("crate") || len(m.Crates) == 0 {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNoCrates)
	}
	for i, c := range m.Crates {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%s: [[crate]] #%d: missing name", f.Path, i+1)
		}
	}
	if !meta.IsDefined("target", "pointer_width") {
		m.Target.PointerWidth = 64
	}
	return m, nil
}

// span locates the first occurrence of a quoted string value in the file.
// Values the locator cannot find get an empty span at the file start.
func (m *Manifest) span(value string) source.Span {
	f := m.Files.Get(m.File)
	if f == nil {
		return source.Span{File: m.File}
	}
	content := string(f.Content)
	for _, quoted := range []string{`"` + value + `"`, `'` + value + `'`} {
		if i := strings.Index(content, quoted); i >= 0 {
			return spanAt(m.File, i+1, i+1+len(value))
		}
	}
	return source.Span{File: m.File}
}

// sub narrows a value span to a byte range of the value.
func sub(base source.Span, start, end int) source.Span {
	if base.Empty() {
		return base
	}
	s := spanAt(base.File, int(base.Start)+start, int(base.Start)+end)
	if s.End > base.End {
		s.End = base.End
	}
	return s
}
