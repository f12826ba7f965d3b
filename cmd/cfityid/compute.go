package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cfityid/internal/cache"
	"cfityid/internal/diagfmt"
	"cfityid/internal/driver"
	"cfityid/internal/observ"
	"cfityid/internal/typeid"
)

var computeCmd = &cobra.Command{
	Use:   "compute [flags] <manifest.toml>",
	Short: "Compute type metadata identifiers for every call in a manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompute,
}

func init() {
	computeCmd.Flags().Bool("normalize-integers", false, "encode integers by size and signedness (.normalized)")
	computeCmd.Flags().Bool("generalize-pointers", false, "erase pointee types (.generalized)")
	computeCmd.Flags().Bool("concrete-self", false, "keep concrete self types for methods and closures")
	computeCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	computeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	computeCmd.Flags().Bool("no-cache", false, "disable the identifier cache")
	computeCmd.Flags().String("cache-dir", "", "identifier cache directory (default $XDG_CACHE_HOME/cfityid)")
	computeCmd.Flags().Bool("fullpath", false, "emit file paths as given instead of base names")
}

type computeFlags struct {
	encoding typeid.Options
	jobs     int
	format   string
	noCache  bool
	cacheDir string
	fullPath bool
	timings  bool
	maxDiag  int
	color    bool
}

func readComputeFlags(cmd *cobra.Command) (computeFlags, error) {
	var (
		f   computeFlags
		err error
	)
	flags := cmd.Flags()
	if f.encoding.NormalizeIntegers, err = flags.GetBool("normalize-integers"); err != nil {
		return f, fmt.Errorf("failed to get normalize-integers flag: %w", err)
	}
	if f.encoding.GeneralizePointers, err = flags.GetBool("generalize-pointers"); err != nil {
		return f, fmt.Errorf("failed to get generalize-pointers flag: %w", err)
	}
	if f.encoding.UseConcreteSelf, err = flags.GetBool("concrete-self"); err != nil {
		return f, fmt.Errorf("failed to get concrete-self flag: %w", err)
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if f.format, err = flags.GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	f.format = strings.ToLower(f.format)
	if f.format != "pretty" && f.format != "json" {
		return f, fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	if f.noCache, err = flags.GetBool("no-cache"); err != nil {
		return f, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if f.cacheDir, err = flags.GetString("cache-dir"); err != nil {
		return f, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	if f.fullPath, err = flags.GetBool("fullpath"); err != nil {
		return f, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if f.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return f, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if f.maxDiag, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return f, fmt.Errorf("failed to get color flag: %w", err)
	}
	if f.color, err = colorEnabled(mode, os.Stdout); err != nil {
		return f, err
	}
	return f, nil
}

func openCache(f computeFlags) *cache.Cache {
	if f.noCache {
		return nil
	}
	var (
		c   *cache.Cache
		err error
	)
	if f.cacheDir != "" {
		c, err = cache.Open(f.cacheDir)
	} else {
		c, err = cache.OpenDefault("cfityid")
	}
	if err != nil {
		driver.Logger().Warn("identifier cache disabled", zap.Error(err))
		return nil
	}
	driver.Logger().Debug("identifier cache", zap.String("dir", c.Dir()))
	return c
}

func runCompute(cmd *cobra.Command, args []string) error {
	f, err := readComputeFlags(cmd)
	if err != nil {
		return err
	}

	session, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if perr := session.Stop(); perr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to write profiles: %v\n", perr)
		}
	}()

	store := openCache(f)
	defer func() {
		if cerr := store.Close(); cerr != nil {
			driver.Logger().Warn("closing identifier cache", zap.Error(cerr))
		}
	}()

	var timer *observ.Timer
	if f.timings {
		timer = observ.NewTimer()
	}
	report, runErr := driver.Run(cmd.Context(), args[0], driver.Options{
		Encoding:       f.encoding,
		Jobs:           f.jobs,
		Cache:          store,
		Timer:          timer,
		MaxDiagnostics: f.maxDiag,
	})
	if report == nil {
		return runErr
	}

	pathMode := diagfmt.PathModeBasename
	if f.fullPath {
		pathMode = diagfmt.PathModeAsLoaded
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	switch f.format {
	case "json":
		if err := renderComputeJSON(stdout, report, timer, pathMode); err != nil {
			return err
		}
	default:
		diagfmt.Pretty(stderr, report.Bag, report.Files, diagfmt.PrettyOpts{
			Color:     f.color,
			PathMode:  pathMode,
			ShowNotes: true,
			Max:       f.maxDiag,
		})
		if len(report.Results) > 0 {
			if err := renderTable(stdout, report.Results, f.color, terminalWidth(os.Stdout)); err != nil {
				return err
			}
		}
		if timer != nil {
			fmt.Fprint(stderr, timer.Summary())
		}
	}

	if runErr != nil {
		return runErr
	}
	if s := report.Stats(); s.Failed > 0 {
		return fmt.Errorf("%d of %d calls failed", s.Failed, len(report.Results))
	}
	if report.Bag.HasErrors() {
		return errors.New("diagnostics reported errors")
	}
	return nil
}

type resultJSON struct {
	driver.Result
	Error string `json:"error,omitempty"`
}

type computeJSON struct {
	Manifest    string                    `json:"manifest"`
	Target      targetJSON                `json:"target"`
	Options     string                    `json:"options"`
	OptionBits  uint32                    `json:"option_bits"`
	Results     []resultJSON              `json:"results"`
	Stats       driver.Stats              `json:"stats"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
	Timings     *observ.Report            `json:"timings,omitempty"`
}

type targetJSON struct {
	Triple       string `json:"triple"`
	PointerWidth int    `json:"pointer_width"`
}

func renderComputeJSON(out io.Writer, report *driver.Report, timer *observ.Timer, pathMode diagfmt.PathMode) error {
	payload := computeJSON{
		Manifest:   report.Manifest,
		Target:     targetJSON{Triple: report.Target.Triple, PointerWidth: report.Target.PointerWidth},
		Options:    report.Options.String(),
		OptionBits: report.Options.Bits(),
		Results:    make([]resultJSON, len(report.Results)),
		Stats:      report.Stats(),
		Diagnostics: diagfmt.BuildDiagnosticsOutput(report.Bag, report.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     true,
		}),
	}
	for i, r := range report.Results {
		payload.Results[i] = resultJSON{Result: r}
		if r.Err != nil {
			payload.Results[i].Error = r.Err.Error()
		}
	}
	if timer != nil {
		tr := timer.Report()
		payload.Timings = &tr
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
