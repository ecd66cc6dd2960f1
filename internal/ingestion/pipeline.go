package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coderisk/codegraph/internal/config"
	"github.com/coderisk/codegraph/internal/git"
	"github.com/coderisk/codegraph/internal/graph"
	"github.com/coderisk/codegraph/internal/metrics"
	"github.com/coderisk/codegraph/internal/model"
	"github.com/coderisk/codegraph/internal/resolver"
	"github.com/coderisk/codegraph/internal/treesitter"
)

// Pipeline wires the four components the spec names into one run:
// ChangeDetector -> Parser -> GraphWriter -> PlaceholderResolver.
type Pipeline struct {
	backend graph.Backend
	writer  *graph.Writer
	cfg     config.PipelineConfig
	resCfg  config.ResolutionConfig
	log     *logrus.Entry
}

// NewPipeline builds a Pipeline over an already-connected graph backend.
func NewPipeline(backend graph.Backend, cfg config.PipelineConfig, resCfg config.ResolutionConfig, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		backend: backend,
		writer:  graph.NewWriter(backend, log),
		cfg:     cfg,
		resCfg:  resCfg,
		log:     log,
	}
}

// Result summarizes one pipeline run (surfaced by `codegraph run` and
// persisted into graph_output.json, spec §6).
type Result struct {
	Commit             string
	Mode               string
	FilesTotal         int
	FilesParsed        int
	FilesFailed        int
	FilesSkipped       int
	FilesDeleted       int
	ClassesWritten     int
	FunctionsWritten   int
	CallSitesWritten   int
	ImportSitesWritten int
	CallSitesResolved  int
	ImportsResolved    int
	Duration           time.Duration
	ParseErrors        []string
	WriteErrors        []string
}

// RunOptions parameterizes one Run call.
type RunOptions struct {
	RepoPath      string
	Repository    string // e.g. "acme/widgets"
	RepositoryURL string
	Branch        string
	PriorCommit   string // "" forces a full scan
	Detector      git.DetectorConfig
}

// parsedFile pairs a ChangeDetector record with its converted graph records,
// flowing from the Parser stage to the GraphWriter stage over a bounded channel.
type parsedFile struct {
	file *model.File
	conv *convertedFile
	err  error
}

// Run executes one full pipeline pass (spec §5's staged, bounded-parallel
// design): the ChangeDetector runs sequentially, the Parser fans out over a
// worker pool, and the GraphWriter drains a bounded queue of pending writes
// so memory does not balloon on a slow backend.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	start := time.Now()

	if err := p.writer.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("schema setup: %w", err)
	}

	detector := git.NewChangeDetector(opts.RepoPath, opts.Repository, opts.RepositoryURL, opts.Branch, opts.Detector)
	changeset, err := detector.Detect(ctx, opts.PriorCommit)
	if err != nil {
		return nil, fmt.Errorf("change detection: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"repository": opts.Repository,
		"mode":       changeset.Mode,
		"commit":     changeset.Commit,
		"candidates": len(changeset.Files),
		"skipped":    len(changeset.Skipped),
	}).Info("change detection complete")

	result := &Result{Commit: changeset.Commit, Mode: string(changeset.Mode), FilesSkipped: len(changeset.Skipped)}

	if changeset.Mode == git.ScanFull {
		if _, err := p.writer.ClearRepository(ctx, opts.Repository, true); err != nil {
			return nil, fmt.Errorf("clear repository before full scan: %w", err)
		}
	}

	for _, path := range changeset.Deleted {
		fileID := model.FileID(opts.Repository, path)
		if err := p.writer.DeleteFile(ctx, fileID); err != nil {
			result.WriteErrors = append(result.WriteErrors, fmt.Sprintf("delete %s: %v", path, err))
			continue
		}
		result.FilesDeleted++
	}

	allCallSites, allImportSites, err := p.parseAndWrite(ctx, changeset.Files, opts, result)
	if err != nil {
		return nil, err
	}

	mode := resolver.ModeBulk
	if p.resCfg.Immediate {
		mode = resolver.ModeImmediate
	}
	res, err := resolver.New(ctx, p.backend, p.writer, resolver.Strategy(p.resCfg.Strategy), mode, p.resCfg.Shards, p.log)
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	for _, cs := range allCallSites {
		if err := res.ResolveCallSite(ctx, cs); err != nil {
			result.WriteErrors = append(result.WriteErrors, fmt.Sprintf("resolve call site %s: %v", cs.ID, err))
			continue
		}
		if cs.Resolved() {
			result.CallSitesResolved++
			metrics.ResolveScore.Observe(cs.Score)
		}
	}
	for _, is := range allImportSites {
		if err := res.ResolveImportSite(ctx, is); err != nil {
			result.WriteErrors = append(result.WriteErrors, fmt.Sprintf("resolve import site %s: %v", is.ID, err))
			continue
		}
		if is.Resolved() {
			result.ImportsResolved++
		}
	}

	result.Duration = time.Since(start)
	p.log.WithFields(logrus.Fields{
		"files_parsed":   result.FilesParsed,
		"files_failed":   result.FilesFailed,
		"calls_resolved": result.CallSitesResolved,
		"duration":       result.Duration.String(),
	}).Info("pipeline run complete")

	return result, nil
}

// parseAndWrite runs the Parser worker pool (bounded by cfg.ParserWorkers)
// and feeds its output into the GraphWriter over a bounded queue
// (cfg.WriteQueueDepth), matching spec §5's backpressure requirement.
func (p *Pipeline) parseAndWrite(ctx context.Context, files []git.FileRecord, opts RunOptions, result *Result) ([]*model.CallSite, []*model.ImportSite, error) {
	workers := p.cfg.ParserWorkers
	if workers <= 0 {
		workers = 4
	}
	queueDepth := p.cfg.WriteQueueDepth
	if queueDepth <= 0 {
		queueDepth = 64
	}

	jobs := make(chan git.FileRecord)
	parsed := make(chan parsedFile, queueDepth)

	var parseWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		parseWG.Add(1)
		go func() {
			defer parseWG.Done()
			for rec := range jobs {
				parsed <- p.parseOne(ctx, rec, opts.Repository)
			}
		}()
	}
	go func() {
		for _, rec := range files {
			select {
			case jobs <- rec:
			case <-ctx.Done():
			}
		}
		close(jobs)
		parseWG.Wait()
		close(parsed)
	}()

	var allCallSites []*model.CallSite
	var allImportSites []*model.ImportSite

	for pf := range parsed {
		if pf.err != nil {
			result.FilesFailed++
			result.ParseErrors = append(result.ParseErrors, pf.err.Error())
			continue
		}

		stats, err := p.writer.WriteFile(ctx, pf.file, pf.conv.Classes, pf.conv.Functions, pf.conv.CallSites, pf.conv.ImportSites)
		if err != nil {
			// One retry after a short backoff. WriteFile deletes the file's
			// prior subtree first, so the second attempt starts clean.
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
			}
			stats, err = p.writer.WriteFile(ctx, pf.file, pf.conv.Classes, pf.conv.Functions, pf.conv.CallSites, pf.conv.ImportSites)
		}
		if err != nil {
			result.FilesFailed++
			result.WriteErrors = append(result.WriteErrors, err.Error())
			continue
		}

		result.FilesParsed++
		result.ClassesWritten += stats.ClassesWritten
		result.FunctionsWritten += stats.FunctionsWritten
		result.CallSitesWritten += stats.CallSitesWritten
		result.ImportSitesWritten += stats.ImportSitesWritten
		allCallSites = append(allCallSites, pf.conv.CallSites...)
		allImportSites = append(allImportSites, pf.conv.ImportSites...)

		metrics.FilesProcessed.Inc()
		metrics.EntitiesCreated.WithLabelValues("class").Add(float64(stats.ClassesWritten))
		metrics.EntitiesCreated.WithLabelValues("function").Add(float64(stats.FunctionsWritten))
		metrics.EntitiesCreated.WithLabelValues("call_site").Add(float64(stats.CallSitesWritten))
		metrics.EntitiesCreated.WithLabelValues("import_site").Add(float64(stats.ImportSitesWritten))
	}

	result.FilesTotal = result.FilesParsed + result.FilesFailed
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return allCallSites, allImportSites, nil
}

// parseOne parses one file and converts its entities into graph records. It
// never returns an error from the channel-consuming caller's perspective —
// failures are carried in parsedFile.err so one bad file does not abort the run.
func (p *Pipeline) parseOne(ctx context.Context, rec git.FileRecord, repository string) parsedFile {
	parseCtx, cancel := context.WithTimeout(ctx, p.fileParseTimeout())
	defer cancel()

	parseStart := time.Now()
	resultCh := make(chan parsedFile, 1)
	go func() {
		defer func() { metrics.ParseDuration.Observe(time.Since(parseStart).Seconds()) }()
		result, err := treesitter.ParseBytes(rec.Path, rec.Content)
		if err != nil {
			resultCh <- parsedFile{err: fmt.Errorf("parse %s: %w", rec.Path, err)}
			return
		}
		if result.Error != nil {
			resultCh <- parsedFile{err: fmt.Errorf("parse %s: %w", rec.Path, result.Error)}
			return
		}

		file := model.NewFile(repository, rec.Path, result.Language, rec.RepositoryURL, rec.Commit, rec.Branch)
		conv := buildConvertedFile(file, result.Entities)
		resultCh <- parsedFile{file: file, conv: conv}
	}()

	select {
	case pf := <-resultCh:
		return pf
	case <-parseCtx.Done():
		return parsedFile{err: fmt.Errorf("parse %s: %w", rec.Path, parseCtx.Err())}
	}
}

func (p *Pipeline) fileParseTimeout() time.Duration {
	if p.cfg.FileParseTimeout > 0 {
		return p.cfg.FileParseTimeout
	}
	return 30 * time.Second
}
