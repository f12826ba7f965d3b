// Package driver loads a signature manifest, lowers it and computes the type
// metadata identifier of every call it names, in parallel and through the
// on-disk cache.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cfityid/internal/cache"
	"cfityid/internal/diag"
	"cfityid/internal/layout"
	"cfityid/internal/manifest"
	"cfityid/internal/observ"
	"cfityid/internal/source"
	"cfityid/internal/typeid"
	"cfityid/internal/types"
)

// ErrInvalidManifest reports a manifest that lowered with errors; the
// diagnostics are in Report.Bag.
var ErrInvalidManifest = errors.New("manifest has errors")

// DefaultMaxDiagnostics bounds the diagnostics kept for one run.
const DefaultMaxDiagnostics = 100

// Options configure a run.
type Options struct {
	// Encoding is merged into the options the manifest sets.
	Encoding typeid.Options
	// Jobs limits parallel computations; <= 0 means GOMAXPROCS.
	Jobs int
	// Cache is consulted and filled when non-nil.
	Cache *cache.Cache
	// Timer receives the phases of Run when non-nil.
	Timer          *observ.Timer
	MaxDiagnostics int
}

// Result is the outcome of one call.
type Result struct {
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Callee string      `json:"callee"`
	ID     string      `json:"typeid,omitempty"`
	Cached bool        `json:"cached,omitempty"`
	Err    error       `json:"-"`
	Span   source.Span `json:"-"`
}

// Report is everything a run produced.
type Report struct {
	Manifest string
	Target   layout.Target
	Options  typeid.Options
	Files    *source.FileSet
	Bag      *diag.Bag
	Results  []Result
}

// Stats counts results by outcome.
type Stats struct {
	Computed int `json:"computed"`
	Cached   int `json:"cached"`
	Failed   int `json:"failed"`
}

// Stats summarizes the results of r.
func (r *Report) Stats() Stats {
	var s Stats
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			s.Failed++
		case res.Cached:
			s.Cached++
		default:
			s.Computed++
		}
	}
	return s
}

// Run loads the manifest at path and computes every call in it. A report is
// returned whenever the manifest could be read, so that diagnostics can be
// printed even when the error is ErrInvalidManifest.
func Run(ctx context.Context, path string, opts Options) (*Report, error) {
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = DefaultMaxDiagnostics
	}
	report := &Report{Manifest: path, Files: source.NewFileSet(), Bag: diag.NewBag(maxDiag)}

	idx := opts.Timer.Begin("load")
	m, err := manifest.Load(report.Files, path)
	opts.Timer.End(idx, "")
	if err != nil {
		return nil, err
	}

	idx = opts.Timer.Begin("build")
	in := types.NewInterner()
	prog := manifest.Build(in, m, diag.BagReporter{Bag: report.Bag})
	opts.Timer.End(idx, fmt.Sprintf("%d calls", len(prog.Calls)))
	report.Target = prog.Target
	report.Options = mergeOptions(prog.Options, opts.Encoding)
	if report.Bag.HasErrors() {
		report.Bag.Sort()
		return report, fmt.Errorf("%s: %w", path, ErrInvalidManifest)
	}

	idx = opts.Timer.Begin("compute")
	digest := cache.Digest(report.Files.Get(m.File).Hash)
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: report.Bag})
	report.Results, err = Compute(ctx, in, prog, reporter, digest, opts)
	s := report.Stats()
	opts.Timer.End(idx, fmt.Sprintf("%d computed, %d cached, %d failed", s.Computed, s.Cached, s.Failed))
	report.Bag.Sort()
	if err != nil {
		return report, err
	}
	return report, nil
}

func mergeOptions(a, b typeid.Options) typeid.Options {
	o, _ := typeid.OptionsFromBits(a.Bits() | b.Bits())
	return o
}

// Compute identifies every call of prog. Results keep the order of
// prog.Calls; a call that fails to encode carries its error in Result.Err
// and does not stop the others. Only cancellation of ctx is returned.
func Compute(ctx context.Context, in *types.Interner, prog *manifest.Program, r diag.Reporter, digest cache.Digest, opts Options) ([]Result, error) {
	calls := prog.Calls
	results := make([]Result, len(calls))
	if len(calls) == 0 {
		return results, nil
	}
	encoding := mergeOptions(prog.Options, opts.Encoding)
	cx := typeid.NewContext(in, prog.Target, r)
	store := opts.Cache
	if store != nil && digest.IsZero() {
		Logger().Debug("no manifest digest, identifier cache disabled")
		store = nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	Logger().Debug("computing type ids",
		zap.Int("calls", len(calls)),
		zap.Int("jobs", min(jobs, len(calls))),
		zap.Stringer("options", encoding),
		zap.String("target", prog.Target.Triple),
	)

	// Every goroutine writes only its own index.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(calls)))
	for i := range calls {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = computeOne(cx, calls[i], encoding, digest, store)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func cacheKey(digest cache.Digest, c manifest.Call, target layout.Target, opts typeid.Options) cache.Digest {
	return cache.Key(digest,
		c.Name,
		c.Kind.String(),
		target.Triple,
		strconv.Itoa(target.PointerWidth),
		strconv.FormatUint(uint64(opts.Bits()), 16),
	)
}

// computeOne identifies one call. The diagnostics the computation reports
// are cached with the identifier and reported again on a hit.
func computeOne(cx *typeid.Context, c manifest.Call, opts typeid.Options, digest cache.Digest, store *cache.Cache) Result {
	in := cx.Types
	res := Result{Name: c.Name, Kind: c.Kind.String(), Span: c.Span}
	if c.Kind == manifest.CallSig {
		res.Callee = in.Format(in.FnPtr(c.Sig))
	} else {
		res.Callee = in.FormatInstance(c.Instance)
	}
	rec := &recorder{next: cx.Reporter}
	if rec.next == nil {
		rec.next = diag.NopReporter{}
	}

	key := cacheKey(digest, c, cx.Target, opts)
	if store != nil {
		var e cache.Entry
		hit, err := store.Get(key, &e)
		switch {
		case err != nil:
			Logger().Warn("cache read failed", zap.String("call", c.Name), zap.Error(err))
		case hit:
			Logger().Debug("cache hit", zap.String("call", c.Name), zap.String("key", key.String()),
				zap.Int("diagnostics", len(e.Diagnostics)))
			replay(rec.next, e.Diagnostics)
			res.ID, res.Cached = e.ID, true
			return res
		}
	}

	var err error
	ccx := cx.WithReporter(rec)
	if c.Kind == manifest.CallSig {
		res.ID, err = typeid.ForFnSig(ccx, c.Sig, opts)
	} else {
		res.ID, err = typeid.ForInstance(ccx, c.Instance, opts)
	}
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", c.Name, err)
		Logger().Debug("type id failed", zap.String("call", c.Name), zap.Error(err))
		return res
	}

	if store != nil {
		e := &cache.Entry{
			Call:        c.Name,
			Kind:        res.Kind,
			Target:      cx.Target.Triple,
			Options:     opts.Bits(),
			ID:          res.ID,
			Diagnostics: rec.items,
		}
		if err := store.Put(key, e); err != nil {
			Logger().Warn("cache write failed", zap.String("call", c.Name), zap.Error(err))
		}
	}
	return res
}

// recorder forwards diagnostics and keeps them in cache form. It serves one
// call at a time.
type recorder struct {
	next  diag.Reporter
	items []cache.Diagnostic
}

func (r *recorder) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	r.next.Report(code, sev, primary, msg, notes)
	d := cache.Diagnostic{Severity: uint8(sev), Code: uint16(code), Message: msg, Primary: toCacheSpan(primary)}
	for _, n := range notes {
		d.Notes = append(d.Notes, cache.Note{Span: toCacheSpan(n.Span), Msg: n.Msg})
	}
	r.items = append(r.items, d)
}

func replay(r diag.Reporter, items []cache.Diagnostic) {
	for _, d := range items {
		var notes []diag.Note
		for _, n := range d.Notes {
			notes = append(notes, diag.Note{Span: fromCacheSpan(n.Span), Msg: n.Msg})
		}
		r.Report(diag.Code(d.Code), diag.Severity(d.Severity), fromCacheSpan(d.Primary), d.Message, notes)
	}
}

func toCacheSpan(sp source.Span) cache.Span {
	return cache.Span{File: uint32(sp.File), Start: sp.Start, End: sp.End}
}

func fromCacheSpan(sp cache.Span) source.Span {
	return source.Span{File: source.FileID(sp.File), Start: sp.Start, End: sp.End}
}
