// Command rdetect runs saved detector output through the rotated-box
// detection output stage and prints the kept detections.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/inference"
	"github.com/nvr-ai/go-rdetect/inference/detectors"
	"github.com/nvr-ai/go-rdetect/logger"
	"github.com/nvr-ai/go-rdetect/profiler"
	"github.com/nvr-ai/go-rdetect/util"
)

// options holds the command line flags.
type options struct {
	configPath  string
	batchPath   string
	outputDir   string
	workers     int
	development bool
	report      bool
	asJSON      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a yaml config file")
	flag.StringVar(&opts.batchPath, "batch", "", "Path to a JSON batch file or a directory of frame-<n>.json batches")
	flag.StringVar(&opts.outputDir, "output-dir", "", "Directory for per-image detection files (overrides save_output.output_directory)")
	flag.IntVar(&opts.workers, "workers", 0, "Images processed concurrently (overrides model.workers)")
	flag.BoolVar(&opts.development, "dev", false, "Human readable debug logging")
	flag.BoolVar(&opts.report, "report", false, "Print per-stage timings to stderr when done")
	flag.BoolVar(&opts.asJSON, "json", false, "Print each batch result as JSON instead of detection rows")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "rdetect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	if opts.batchPath == "" {
		return errors.New("-batch is required")
	}

	cfg, err := detectors.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		cfg.SaveOutput.OutputDirectory = opts.outputDir
	}
	if opts.workers > 0 {
		cfg.Model.Workers = opts.workers
	}
	if opts.development {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	if err := logger.Init(cfg.Log); err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	defer logger.Sync()

	prof := profiler.NewStageProfiler()
	engine, err := inference.NewEngineBuilder().
		WithLogger(logger.Log()).
		WithCollector(prof).
		WithConfig(cfg).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()
	logger.Log().Debug("engine ready",
		zap.String("model", string(engine.Model().Options().Name)),
		zap.String("family", string(engine.Model().Options().Family)))

	batches, err := loadBatches(opts.batchPath)
	if err != nil {
		return err
	}

	for _, b := range batches {
		out, err := engine.DetectBatch(ctx, b.Batch)
		if err != nil {
			return errors.Wrapf(err, "processing %s", b.Path)
		}
		logger.Log().Info("processed batch",
			zap.String("path", b.Path),
			zap.Stringer("run_id", out.RunID),
			zap.Int("kept", out.NumKept))

		if err := printOutput(stdout, out, opts.asJSON); err != nil {
			return err
		}
	}

	if opts.report {
		return prof.WriteReport(stderr)
	}
	return nil
}

// loadBatches reads a single batch file or a directory of them.
func loadBatches(path string) ([]util.BatchFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return util.LoadDirectoryBatchFiles(path)
	}
	batch, err := util.LoadBatchFile(path)
	if err != nil {
		return nil, err
	}
	return []util.BatchFile{{Path: path, Batch: batch}}, nil
}

func printOutput(w io.Writer, out *common.Output, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(out)
	}
	for _, row := range out.Rows() {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}
