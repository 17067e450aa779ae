package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/exfor-index/internal/metrics"
	"github.com/dshills/exfor-index/pkg/types"
)

var (
	// ErrBuildInProgress is returned when Build is called while another build runs
	ErrBuildInProgress = errors.New("index build already in progress")
	// ErrRefuseOverwrite is returned when an output exists and Force is not set
	ErrRefuseOverwrite = errors.New("refusing to overwrite existing output")
)

// Persister writes the merged result of a build
type Persister interface {
	// Outputs lists every file Persist creates
	Outputs() []string
	Persist(ctx context.Context, data *types.IndexData, summary *types.BuildSummary) error
}

// Options configures one build
type Options struct {
	Workers   int    // Worker goroutines (default: DefaultWorkers())
	ChunkCap  int    // Maximum files per chunk (default: 50)
	Extension string // Entry file extension (default: ".x4")
	Force     bool   // Replace existing outputs instead of failing

	// OnProgress is called after each chunk with completed and total chunk counts
	OnProgress func(done, total int)
}

// DefaultWorkers returns three quarters of the CPUs, at least one
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()*3/4)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	if o.ChunkCap <= 0 {
		o.ChunkCap = DefaultChunkCap
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	return o
}

// Builder coordinates the build pipeline: discover -> partition -> process -> merge -> persist
type Builder struct {
	fs        billy.Filesystem
	processor *Processor
	persister Persister
	metrics   *metrics.BuildMetrics
	logger    *slog.Logger

	lock IndexLock
}

// NewBuilder creates a Builder over the database root fs
func NewBuilder(fs billy.Filesystem, parser EntryParser, persister Persister) *Builder {
	return &Builder{
		fs:        fs,
		processor: NewProcessor(parser, slog.Default()),
		persister: persister,
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the builder and its processor
func (b *Builder) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	b.logger = logger
	b.processor.logger = logger
}

// SetMetrics enables build metrics
func (b *Builder) SetMetrics(m *metrics.BuildMetrics) {
	b.metrics = m
}

// Build indexes every entry file below the database root and persists the
// result. Nothing is persisted unless every chunk completes; cancelling ctx
// stops dispatching chunks and returns ctx.Err().
func (b *Builder) Build(ctx context.Context, opts Options) (*types.BuildSummary, error) {
	if !b.lock.TryAcquire() {
		return nil, ErrBuildInProgress
	}
	defer b.lock.Release()

	opts = opts.withDefaults()
	start := time.Now()

	if err := checkOutputs(b.persister.Outputs(), opts.Force); err != nil {
		return nil, err
	}

	files, err := DiscoverEntries(b.fs, opts.Extension)
	if err != nil {
		return nil, err
	}
	chunks, err := Partition(files, opts.Workers, opts.ChunkCap)
	if err != nil {
		return nil, fmt.Errorf("%w below %s", err, b.fs.Root())
	}

	summary := &types.BuildSummary{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Workers:   opts.Workers,
		Chunks:    len(chunks),
	}
	b.logger.Info("starting build",
		slog.String("run_id", summary.RunID),
		slog.Int("files", len(files)),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_size", len(chunks[0])),
		slog.Int("workers", opts.Workers))
	b.metrics.SetChunksTotal(len(chunks))

	results, err := b.processChunks(ctx, chunks, opts)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(results...)
	if err != nil {
		return nil, fmt.Errorf("failed to merge chunk results: %w", err)
	}

	summary.Duration = time.Since(start)
	summary.Summarize(merged)

	if err := b.persister.Persist(ctx, merged, summary); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	b.metrics.ObserveBuild(summary.Duration)
	b.logger.Info("build complete",
		slog.String("run_id", summary.RunID),
		slog.Int("files", summary.Files),
		slog.Int("reactions", summary.Reactions),
		slog.Int("rows", summary.Rows),
		slog.Int("errors", summary.Errors),
		slog.Duration("duration", summary.Duration))

	return summary, nil
}

// processChunks runs every chunk on the worker pool. Each chunk produces an
// isolated result stored at its own index, so no result is shared between
// goroutines.
func (b *Builder) processChunks(ctx context.Context, chunks [][]string, opts Options) ([]*types.IndexData, error) {
	results := make([]*types.IndexData, len(chunks))
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := b.processChunk(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = res

			done := int(completed.Add(1))
			b.metrics.ChunkCompleted()
			b.logger.Debug("chunk complete",
				slog.Int("chunk", i),
				slog.Int("done", done),
				slog.Int("total", len(chunks)))
			if opts.OnProgress != nil {
				opts.OnProgress(done, len(chunks))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processChunk processes the files of one chunk in order. Per-file failures
// are recorded in the result; only cancellation aborts the chunk.
func (b *Builder) processChunk(ctx context.Context, files []string) (*types.IndexData, error) {
	res := types.NewIndexData()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := b.processor.Process(path)
		if err != nil {
			rec := types.NewErrorRecord(path, err)
			res.Errors[path] = rec
			res.Files++
			b.metrics.FileFailed(rec.Kind)
			b.logger.Debug("entry failed",
				slog.String("path", path),
				slog.String("kind", string(rec.Kind)),
				slog.String("error", rec.Message))
			continue
		}

		if err := mergeInto(res, data); err != nil {
			return nil, err
		}
		b.metrics.FileProcessed(len(data.Rows))
	}

	return res, nil
}

// checkOutputs enforces a clean output location unless force is set. Existing
// outputs are never removed here; the persister replaces them only once a
// build has completed.
func checkOutputs(paths []string, force bool) error {
	if force {
		return nil
	}
	for _, p := range paths {
		_, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return fmt.Errorf("failed to check output %s: %w", p, err)
		default:
			return fmt.Errorf("%w: %s (use --force)", ErrRefuseOverwrite, p)
		}
	}
	return nil
}
