package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/igsr/popdex"
)

// exportAPI is the part of the population service the exporter needs.
type exportAPI interface {
	SearchExport(ctx context.Context, q popdex.Query, filename string, w io.Writer) (int64, error)
	SearchDataCollectionPopulationsExport(ctx context.Context, dc string, w io.Writer) (string, int64, error)
}

// job is one export written to file inside the output directory.
type job struct {
	file string
	run  func(ctx context.Context, api exportAPI, w io.Writer) (int64, error)
}

func dataCollectionJob(dc string) job {
	return job{
		file: popdex.ExportFilename(dc),
		run: func(ctx context.Context, api exportAPI, w io.Writer) (int64, error) {
			_, n, err := api.SearchDataCollectionPopulationsExport(ctx, dc, w)
			return n, err
		},
	}
}

func searchJob(filename string, q popdex.Query) job {
	return job{
		file: filename + ".tsv",
		run: func(ctx context.Context, api exportAPI, w io.Writer) (int64, error) {
			return api.SearchExport(ctx, q, filename, w)
		},
	}
}

// Exporter writes export jobs to disk with bounded concurrency.
type Exporter struct {
	api      exportAPI
	outDir   string
	parallel int
	logger   *zap.Logger
}

// NewExporter creates an exporter writing into outDir.
func NewExporter(api exportAPI, outDir string, parallel int, logger *zap.Logger) *Exporter {
	if parallel < 1 {
		parallel = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{api: api, outDir: outDir, parallel: parallel, logger: logger}
}

// Run executes all jobs. The first failure cancels the jobs still queued
// and is returned; files of failed jobs are not left behind.
func (e *Exporter) Run(ctx context.Context, jobs []job) error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			return e.write(ctx, j)
		})
	}
	return g.Wait()
}

func (e *Exporter) write(ctx context.Context, j job) error {
	if j.file == "" || filepath.Base(j.file) != j.file {
		return fmt.Errorf("invalid export file name %q", j.file)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	tmp, err := os.CreateTemp(e.outDir, ".popexport-*")
	if err != nil {
		return fmt.Errorf("export %s: %w", j.file, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := j.run(ctx, e.api, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		e.logger.Warn("export failed", zap.String("file", j.file), zap.Error(err))
		return fmt.Errorf("export %s: %w", j.file, err)
	}

	dst := filepath.Join(e.outDir, j.file)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("export %s: %w", j.file, err)
	}

	e.logger.Info("export written",
		zap.String("file", dst),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
