package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/itemscan/capture"
	"github.com/soocke/itemscan/config"
	"github.com/soocke/itemscan/debug"
	"github.com/soocke/itemscan/domain/calibration"
	"github.com/soocke/itemscan/domain/detect"
	"github.com/soocke/itemscan/domain/groundtruth"
	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/match"
	"github.com/soocke/itemscan/domain/pixels"
)

var errUsage = errors.New("usage")

const usage = `usage: itemscan <command> [flags]

commands:
  detect     detect item icons in screenshots or the live screen
  calibrate  sweep pipeline parameters over labeled fixtures
  params     list the tunable parameters
`

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}
	switch args[0] {
	case "detect":
		return runDetect(ctx, args[1:], stdout)
	case "calibrate":
		return runCalibrate(ctx, args[1:], stdout)
	case "params":
		return runParams(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
	return errUsage
}

// common holds the flags shared by detect and calibrate.
type common struct {
	configPath string
	preset     string
	catalog    string
	imageDir   string
	workers    int
	debug      bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "JSON configuration file (defaults when missing)")
	fs.StringVar(&c.preset, "preset", "", "pipeline preset: baseline, improved or advanced")
	fs.StringVar(&c.catalog, "catalog", "items.json", "reference catalog JSON")
	fs.StringVar(&c.imageDir, "images", "", "base directory for catalog image paths")
	fs.IntVar(&c.workers, "workers", 0, "parallel frames (0 = number of CPUs)")
	fs.BoolVar(&c.debug, "debug", false, "debug logging and runtime stats")
}

// setup loads configuration, starts the logger and opens the catalog.
func (c *common) setup(ctx context.Context) (*config.Config, *slog.Logger, *library.Library, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if c.debug {
		cfg.Debug = true
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	if cfg.Debug {
		debug.StartGoroutineLogger(ctx, 10*time.Second, logger)
		debug.StartMemLogger(ctx, 10*time.Second, logger)
	}
	caps := match.Capability()
	logger.Info("ncc backend", "backend", caps.Backend, "accelerated", caps.Accelerated, "reason", errString(caps.Err))
	if cfg.Strategy.Accelerate && !caps.Accelerated {
		logger.Warn("acceleration requested but unavailable, using the go implementation")
	}

	lo := cfg.LibraryOptions()
	lo.BaseDir = c.imageDir
	lo.Logger = logger
	lib, err := library.Load(c.catalog, lo)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, lib, nil
}

func (c *common) loadConfig() (*config.Config, error) {
	if c.configPath != "" && c.preset != "" {
		return nil, errors.New("-config and -preset are mutually exclusive")
	}
	if c.preset != "" {
		return config.Preset(c.preset)
	}
	if c.configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(c.configPath)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// frameDoc is the JSON document emitted per processed frame.
type frameDoc struct {
	Image string `json:"image"`
	detect.Report
	Error string `json:"error,omitempty"`
}

func runDetect(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	var c common
	c.register(fs)
	screen := fs.Bool("screen", false, "capture the primary screen instead of reading files")
	watch := fs.Duration("watch", 0, "with -screen, capture repeatedly at this interval")
	dir := fs.String("dir", "", "watch a screenshot directory and process new images")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if !*screen && *dir == "" && fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "detect: no images given (pass paths, -screen or -dir)")
		return errUsage
	}
	cfg, logger, lib, err := c.setup(ctx)
	if err != nil {
		return err
	}
	p := detect.NewPipeline(lib, cfg.PipelineOptions(), logger)
	enc := json.NewEncoder(stdout)

	if *screen {
		svc := capture.NewService(capture.Screen, logger)
		handle := func(ctx context.Context, snap capture.Snapshot) error {
			rep, err := p.Detect(ctx, snap.Frame)
			doc := frameDoc{Image: fmt.Sprintf("screen#%d", snap.Sequence), Report: rep}
			if err != nil {
				doc.Error = err.Error()
			}
			return enc.Encode(doc)
		}
		if *watch <= 0 {
			f, err := capture.Grab()
			if err != nil {
				return err
			}
			return handle(ctx, capture.Snapshot{Frame: f, CapturedAt: time.Now(), Sequence: 1})
		}
		err := svc.Run(ctx, *watch, handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if *dir != "" {
		err := capture.WatchDir(ctx, *dir, 0, func(ctx context.Context, path string) error {
			doc := frameDoc{Image: path}
			f, err := pixels.DecodeFile(path)
			if err == nil {
				doc.Report, err = p.Detect(ctx, f)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				doc.Error = err.Error()
			}
			return enc.Encode(doc)
		}, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	reports, err := detect.DetectFiles(ctx, p, fs.Args(), cfg.Workers)
	failed := 0
	for _, r := range reports {
		doc := frameDoc{Image: r.Image, Report: r.Report}
		if r.Err != nil {
			doc.Error = r.Err.Error()
			failed++
		}
		if encErr := enc.Encode(doc); encErr != nil {
			return encErr
		}
	}
	logger.Info("detect finished", "frames", humanize.Comma(int64(len(reports))), "failed", failed)
	return err
}

func runCalibrate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	var c common
	c.register(fs)
	truth := fs.String("truth", "ground_truth.json", "ground-truth fixtures (JSON or YAML)")
	truthDir := fs.String("truth-images", "", "base directory for fixture image paths")
	params := fs.String("params", "", "comma separated parameters to sweep (default all)")
	pairs := fs.String("pairs", "", "comma separated p:q pairs for interaction sweeps (default top ranked)")
	out := fs.String("out", "", "report directory")
	parallel := fs.Int("parallel", 1, "configurations evaluated concurrently")
	saveConfig := fs.String("save-config", "", "write the greedy configuration to this file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, logger, lib, err := c.setup(ctx)
	if err != nil {
		return err
	}
	cc := cfg.Calibration
	if *params != "" {
		cc.Parameters = splitList(*params)
	}
	if *pairs != "" {
		cc.Pairs = nil
		for _, pq := range splitList(*pairs) {
			a, b, ok := strings.Cut(pq, ":")
			if !ok {
				return fmt.Errorf("bad pair %q, want p:q", pq)
			}
			cc.Pairs = append(cc.Pairs, [2]string{a, b})
		}
	}
	if *out != "" {
		cc.OutDir = *out
	}

	set, err := groundtruth.Load(*truth, groundtruth.Options{ImageDir: *truthDir, Logger: logger})
	if err != nil {
		return err
	}
	set.Resolve(groundtruth.NewResolver(lib.Items()))
	runner := calibration.NewRunner(lib, set, cfg.Workers, logger)
	if runner.Cases() == 0 {
		return groundtruth.ErrNoCases
	}
	logger.Info("calibration corpus", "cases", runner.Cases(), "skipped", runner.Skipped(), "references", lib.Len())

	sw := calibration.NewSweeper(calibration.DefaultRegistry(), runner, cfg, *parallel, logger)
	rep, err := calibration.Run(ctx, sw, cc)
	if err != nil {
		return err
	}
	rep.Cases = runner.Cases()
	rep.Skipped = runner.Skipped()
	if err := calibration.WriteReports(cc.OutDir, rep); err != nil {
		return err
	}
	if *saveConfig != "" {
		if err := rep.Greedy.Config.Save(*saveConfig); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "run %s: baseline F1 %.4f, greedy F1 %.4f (%d changes), reports in %s\n",
		rep.RunID, rep.Baseline.F1, rep.Greedy.F1, len(rep.Greedy.Applied), filepath.Clean(cc.OutDir))
	return nil
}

func runParams(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	reg := calibration.DefaultRegistry()
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reg.Params())
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tBASELINE\tCANDIDATES")
	for _, p := range reg.Params() {
		vals := make([]string, len(p.Candidates))
		for i, v := range p.Candidates {
			vals[i] = fmt.Sprint(v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", p.Name, p.Category, p.Baseline, strings.Join(vals, " "))
	}
	return tw.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
