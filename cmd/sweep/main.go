// Command sweep runs the data sweeper flow on local files: read, clean,
// select columns, chart and convert.
//
//	sweep [-dedupe] [-fill-missing] [-columns a,b] [-to csv|excel] [-out dir] [-chart file.png] files...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"datasweeper/internal/chart"
	"datasweeper/internal/config"
	"datasweeper/internal/dataset"
	"datasweeper/internal/exporter"
	"datasweeper/internal/files"
	"datasweeper/internal/infrastructure"
	"datasweeper/internal/services"
	"datasweeper/internal/session"
	"datasweeper/internal/validation"
)

type options struct {
	dedupe      bool
	fillMissing bool
	columns     []string
	target      exporter.Target
	outDir      string
	chartPath   string
	logLevel    string
	files       []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var columns, to string
	fs.BoolVar(&opts.dedupe, "dedupe", false, "remove duplicate rows")
	fs.BoolVar(&opts.fillMissing, "fill-missing", false, "fill missing numeric values with the column mean")
	fs.StringVar(&columns, "columns", "", "comma separated columns to keep (original order is preserved)")
	fs.StringVar(&to, "to", string(exporter.TargetCSV), "output format: csv or excel")
	fs.StringVar(&opts.outDir, "out", ".", "output directory")
	fs.StringVar(&opts.chartPath, "chart", "", "write a bar chart of the first two numeric columns (.png or .svg); a bare name goes into -out")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sweep [flags] files...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	target, err := exporter.ParseTarget(to)
	if err != nil {
		return nil, err
	}
	opts.target = target

	if columns != "" {
		for _, c := range strings.Split(columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				opts.columns = append(opts.columns, c)
			}
		}
		if len(opts.columns) == 0 {
			return nil, dataset.ErrEmptySelection
		}
	}

	if opts.chartPath != "" {
		if _, err := chartFormat(opts.chartPath); err != nil {
			return nil, err
		}
	}

	opts.files = fs.Args()
	if len(opts.files) == 0 {
		fs.Usage()
		return nil, errors.New("no input files")
	}
	return opts, nil
}

// run returns the process exit code: 0 when every file was processed, 1 when
// any file failed and 2 for bad arguments.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "sweep:", err)
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "sweep: using default configuration:", err)
		cfg = config.Default()
	}
	logger := infrastructure.NewLoggerWithWriter(stderr, opts.logLevel)

	inputs, err := files.NewDiscovery(cfg.Upload.AllowedExtensions).Expand(opts.files)
	if err != nil {
		fmt.Fprintln(stderr, "sweep:", err)
		return 1
	}
	if len(inputs) == 0 {
		fmt.Fprintln(stderr, "sweep: no supported files found")
		return 1
	}

	paths := make([]string, len(inputs))
	for i, in := range inputs {
		paths[i] = in.Path
	}
	output := files.NewManager(opts.outDir, paths, logger)
	if err := output.EnsureDirectory(); err != nil {
		fmt.Fprintln(stderr, "sweep:", err)
		return 1
	}

	store := session.NewStore(cfg.Session.TTL, 1, 0)
	defer store.Stop()

	svc := services.NewSweeperService(
		store,
		validation.NewFileValidator(logger, cfg.Upload.AllowedExtensions, cfg.Upload.MaxFileSize),
		exporter.NewConverter(),
		chart.NewRenderer(chart.Options{MaxBars: cfg.Chart.MaxBars, Width: cfg.Chart.Width, Height: cfg.Chart.Height}),
		cfg.Upload.PreviewRows,
		0,
		logger,
	)

	s := &sweeper{svc: svc, opts: opts, output: output, multi: len(inputs) > 1, stdout: stdout}
	failed := 0
	for _, in := range inputs {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "sweep: interrupted")
			return 1
		}
		if err := s.sweepFile(ctx, in); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", in.Name, err)
			failed++
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

type sweeper struct {
	svc    *services.SweeperService
	opts   *options
	output *files.Manager
	multi  bool
	stdout io.Writer
}

func (s *sweeper) sweepFile(ctx context.Context, in files.FileInfo) error {
	results, err := s.svc.Ingest(ctx, []services.Upload{{
		Name: in.Name,
		Size: in.Size,
		Open: func() (io.ReadCloser, error) { return os.Open(in.Path) },
	}})
	if err != nil {
		return err
	}
	if results[0].Err != nil {
		return results[0].Err
	}
	summary := results[0].Dataset
	id := summary.ID
	defer func() { _ = s.svc.Delete(ctx, id) }()

	fmt.Fprintf(s.stdout, "File: %s (%.2f KB)\n", summary.FileName, summary.SizeKB)
	printTable(s.stdout, summary.Preview)

	if s.opts.dedupe {
		res, err := s.svc.DropDuplicates(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.stdout, "%s (%d rows removed)\n", res.Message, res.RowsRemoved)
	}

	if s.opts.fillMissing {
		res, err := s.svc.FillMissing(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, res.Message)
		for _, f := range res.Fills {
			fmt.Fprintf(s.stdout, "  %s: %d filled with %g\n", f.Column, f.Filled, f.Mean)
		}
	}

	if len(s.opts.columns) > 0 {
		if _, err := s.svc.SelectColumns(ctx, id, s.opts.columns); err != nil {
			return err
		}
	}

	if s.opts.chartPath != "" {
		if err := s.writeChart(ctx, id, chartPathFor(s.opts.chartPath, in.Name, s.multi)); err != nil {
			return err
		}
	}

	artifact, err := s.svc.Convert(ctx, id, s.opts.target)
	if err != nil {
		return err
	}

	out, err := s.output.WriteFile(artifact.FileName, artifact.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "%s -> %s\n", artifact.Label, out)
	return nil
}

func (s *sweeper) writeChart(ctx context.Context, id, path string) error {
	format, err := chartFormat(path)
	if err != nil {
		return err
	}
	img, err := s.svc.Chart(ctx, id, format)
	if err != nil {
		return err
	}
	_, err = s.output.WriteFile(path, img.Data)
	return err
}

func chartFormat(path string) (chart.Format, error) {
	return chart.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// chartPathFor gives each input its own chart file when several are swept.
func chartPathFor(chartPath, input string, multi bool) string {
	if !multi {
		return chartPath
	}
	ext := filepath.Ext(chartPath)
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return strings.TrimSuffix(chartPath, ext) + "-" + stem + ext
}

func printTable(w io.Writer, t dataset.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Names(), "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NA"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}
