package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalogcsv/internal"
	"catalogcsv/internal/catalog"
	"catalogcsv/internal/connectors"
	"catalogcsv/internal/storage"
)

// ErrInputDirMissing aborts a run: without the input directory there is nothing to merge.
var ErrInputDirMissing = errors.New("input directory not found")

const (
	StepExtract  = "extract"
	StepImages   = "images"
	StepGenerate = "generate"
	StepPush     = "push"
)

// LastCSVKey names the metadata entry holding the path of the newest product CSV.
const LastCSVKey = "last_products_csv"

// Paths locates the inputs and outputs of one pipeline run.
type Paths struct {
	InputDir     string
	Descriptions string
	Tags         string
	Template     string
	CatalogJSON  string
	ProductsCSV  string
	ProductsXLSX string
}

// Pusher uploads a finished CSV.
type Pusher interface {
	Push(ctx context.Context, csvPath string) error
}

type Options struct {
	Paths  Paths
	Images *connectors.FetchService
	Pusher Pusher
	DB     *storage.DB
	Logger *logrus.Logger
}

// Runner sequences ingestion, image augmentation, projection and upload. Each step
// reads and writes the catalog JSON so steps can also run on their own.
type Runner struct {
	paths  Paths
	images *connectors.FetchService
	pusher Pusher
	db     *storage.DB
	log    *logrus.Entry
}

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		paths:  opts.Paths,
		images: opts.Images,
		pusher: opts.Pusher,
		db:     opts.DB,
		log:    logger.WithField("component", "pipeline"),
	}
}

type ExtractResult struct {
	Sources  []catalog.MergeStats
	ByKind   map[internal.SourceKind]int
	Products int
}

type Result struct {
	TraceID    string
	RunID      int64
	Counts     internal.RunCounts
	Sources    []catalog.MergeStats
	Projection ProjectionStats
}

// Extract ingests every available source, merges them in priority order and writes
// the catalog JSON. Missing or malformed sources contribute nothing.
func (r *Runner) Extract(ctx context.Context) (ExtractResult, error) {
	res := ExtractResult{ByKind: map[internal.SourceKind]int{}}
	if info, err := os.Stat(r.paths.InputDir); err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrInputDirMissing, r.paths.InputDir)
	}

	inputs := []struct {
		kind internal.SourceKind
		path string
	}{
		{internal.SourceDescriptions, r.paths.Descriptions},
		{internal.SourceTags, r.paths.Tags},
		{internal.SourceTemplate, r.paths.Template},
	}

	var sources []catalog.Source
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log := r.log.WithFields(logrus.Fields{"source": in.kind, "path": in.path})
		src, err := LoadSource(in.kind, in.path)
		switch {
		case errors.Is(err, ErrSourceMissing):
			log.Info("source not found, skipping")
			continue
		case err != nil:
			log.WithError(err).Warn("source unreadable, skipping")
			continue
		}
		res.ByKind[in.kind] = src.Records.Len()
		log.WithField("records", src.Records.Len()).Info("source loaded")
		sources = append(sources, src)
	}

	cat, stats := catalog.MergeAll(sources...)
	res.Sources = stats
	res.Products = cat.Len()
	for _, s := range stats {
		r.log.WithFields(logrus.Fields{
			"source":   s.Source,
			"inserted": s.Inserted,
			"updated":  s.Updated,
			"skipped":  s.Skipped,
		}).Debug("merged")
	}

	if err := catalog.SaveFile(r.paths.CatalogJSON, cat); err != nil {
		return res, fmt.Errorf("write catalog: %w", err)
	}
	return res, nil
}

// Images adds image URLs to the stored catalog. Without an image service it is a no-op.
func (r *Runner) Images(ctx context.Context) (ImageStats, error) {
	if r.images == nil {
		r.log.Info("no image provider configured, skipping")
		return ImageStats{}, nil
	}
	cat, err := r.loadCatalog()
	if err != nil {
		return ImageStats{}, err
	}

	found, _, err := r.images.FetchAll(ctx, productSKUs(cat))
	if err != nil {
		return ImageStats{}, err
	}
	_, stats := AugmentImages(cat, found)

	if err := catalog.SaveFile(r.paths.CatalogJSON, cat); err != nil {
		return stats, fmt.Errorf("write catalog: %w", err)
	}
	return stats, nil
}

// Generate projects the stored catalog and writes the product CSV, plus an XLSX copy
// when a path for it is configured.
func (r *Runner) Generate(ctx context.Context) (ProjectionStats, error) {
	cat, err := r.loadCatalog()
	if err != nil {
		return ProjectionStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return ProjectionStats{}, err
	}

	projector := NewProjector(cat)
	rows, stats := projector.Rows()
	for _, sku := range stats.Skipped {
		r.log.WithField("sku", sku).Warn("reserved identifier in catalog, skipped")
	}
	for _, sku := range stats.Dropped {
		r.log.WithField("sku", sku).Warn("image entry has no product row, dropped")
	}

	header := projector.Header()
	if err := ExportRowsToCSV(header, rows, r.paths.ProductsCSV); err != nil {
		return stats, fmt.Errorf("write csv: %w", err)
	}
	if r.paths.ProductsXLSX != "" {
		if err := ExportRowsToXLSX(header, rows, r.paths.ProductsXLSX); err != nil {
			return stats, fmt.Errorf("write xlsx: %w", err)
		}
	}
	if r.db != nil {
		if err := r.db.SetMetadata(LastCSVKey, r.paths.ProductsCSV); err != nil {
			r.log.WithError(err).Warn("record output path")
		}
	}
	return stats, nil
}

// Push uploads the product CSV. Without a pusher it is a no-op.
func (r *Runner) Push(ctx context.Context) error {
	if r.pusher == nil {
		r.log.Info("push disabled, skipping")
		return nil
	}
	return r.pusher.Push(ctx, r.paths.ProductsCSV)
}

// Run executes all steps in order, reporting through progress. The first failing step
// ends the run.
func (r *Runner) Run(ctx context.Context, progress internal.ProgressFunc) (Result, error) {
	res := Result{TraceID: uuid.NewString()}
	log := r.log.WithField("trace", res.TraceID)
	started := time.Now()

	if r.db != nil {
		id, err := r.db.InsertRun(res.TraceID)
		if err != nil {
			log.WithError(err).Warn("record run start")
		}
		res.RunID = id
	}

	progress.Emit(internal.ProgressEvent{
		Type:    internal.ProgressPipelineStart,
		Message: "Pipeline started",
		Data:    map[string]any{"traceId": res.TraceID},
	})

	steps := []struct {
		name    string
		message string
		run     func() (map[string]any, error)
	}{
		{StepExtract, "Extracting product data", func() (map[string]any, error) {
			out, err := r.Extract(ctx)
			res.Sources = out.Sources
			res.Counts.Descriptions = out.ByKind[internal.SourceDescriptions]
			res.Counts.Tags = out.ByKind[internal.SourceTags]
			res.Counts.Template = out.ByKind[internal.SourceTemplate]
			res.Counts.Products = out.Products
			if err != nil {
				return nil, err
			}
			r.snapshot(res.RunID, StepExtract)
			return map[string]any{"products": out.Products, "sources": out.Sources}, nil
		}},
		{StepImages, "Adding product images", func() (map[string]any, error) {
			out, err := r.Images(ctx)
			res.Counts.WithImages = out.WithImages
			res.Counts.ImageEntries = out.ImageEntries
			if err != nil {
				return nil, err
			}
			r.snapshot(res.RunID, StepImages)
			return map[string]any{"withImages": out.WithImages, "imageEntries": out.ImageEntries}, nil
		}},
		{StepGenerate, "Generating product CSV", func() (map[string]any, error) {
			out, err := r.Generate(ctx)
			res.Projection = out
			res.Counts.Rows = out.MainRows + out.ImageRows
			res.Counts.Metafields = out.Metafields
			if err != nil {
				return nil, err
			}
			return map[string]any{"rows": res.Counts.Rows, "metafields": out.Metafields, "path": r.paths.ProductsCSV}, nil
		}},
		{StepPush, "Importing to store", func() (map[string]any, error) {
			if err := r.Push(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"pushed": r.pusher != nil}, nil
		}},
	}

	for _, step := range steps {
		progress.Emit(internal.ProgressEvent{Type: internal.ProgressStepStart, Step: step.name, Message: step.message})
		stepStarted := time.Now()

		data, err := step.run()
		if err != nil {
			err = fmt.Errorf("%s: %w", step.name, err)
			log.WithError(err).Error("pipeline failed")
			progress.Emit(internal.ProgressEvent{
				Type:    internal.ProgressPipelineError,
				Step:    step.name,
				Message: err.Error(),
			})
			r.finish(res, storage.RunFailed, err)
			return res, err
		}

		log.WithFields(logrus.Fields{"step": step.name, "ms": time.Since(stepStarted).Milliseconds()}).Info("step complete")
		progress.Emit(internal.ProgressEvent{
			Type:    internal.ProgressStepComplete,
			Step:    step.name,
			Message: step.message + " completed",
			Data:    data,
		})
	}

	r.finish(res, storage.RunSucceeded, nil)
	log.WithField("ms", time.Since(started).Milliseconds()).Info("pipeline complete")
	progress.Emit(internal.ProgressEvent{
		Type:    internal.ProgressPipelineComplete,
		Message: "Pipeline completed",
		Data:    map[string]any{"traceId": res.TraceID, "counts": res.Counts},
	})
	return res, nil
}

// loadCatalog reads the catalog JSON. When the file is gone it falls back to the
// newest recorded snapshot, images stage first.
func (r *Runner) loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.LoadFile(r.paths.CatalogJSON)
	if err == nil || r.db == nil || !errors.Is(err, catalog.ErrNoCatalog) {
		return cat, err
	}
	for _, stage := range []string{StepImages, StepExtract} {
		blob, snapErr := r.db.LatestSnapshot(stage)
		if snapErr != nil {
			return nil, fmt.Errorf("read %s snapshot: %w", stage, snapErr)
		}
		if blob == nil {
			continue
		}
		restored, decErr := catalog.Decode(bytes.NewReader(blob))
		if decErr != nil {
			return nil, fmt.Errorf("decode %s snapshot: %w", stage, decErr)
		}
		r.log.WithField("stage", stage).Warn("catalog file missing, using recorded snapshot")
		return restored, nil
	}
	return nil, err
}

func (r *Runner) snapshot(runID int64, stage string) {
	if r.db == nil || runID == 0 {
		return
	}
	blob, err := os.ReadFile(r.paths.CatalogJSON)
	if err != nil {
		r.log.WithError(err).Warn("read catalog for snapshot")
		return
	}
	if err := r.db.SaveSnapshot(runID, stage, blob); err != nil {
		r.log.WithError(err).Warn("save snapshot")
	}
}

func (r *Runner) finish(res Result, status string, runErr error) {
	if r.db == nil || res.RunID == 0 {
		return
	}
	if err := r.db.FinishRun(res.RunID, status, res.Counts, runErr); err != nil {
		r.log.WithError(err).Warn("record run finish")
	}
}
