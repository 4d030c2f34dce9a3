package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"symgraph/internal/config"
	"symgraph/internal/crawler"
	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/index"
	"symgraph/internal/inheritance"
	"symgraph/internal/ir"
	"symgraph/internal/reference"
	"symgraph/internal/resolver"
	"symgraph/internal/storage"
)

// build is the outcome of running one document through the pipeline.
type build struct {
	Graph    *graph.Graph
	Result   *inheritance.Result
	Stages   []resolver.StageResult
	Skipped  map[int]error
	Snapshot *storage.Snapshot
}

// assemble reads one document, or every document under a directory.
func assemble(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string) (*graph.Graph, []reference.UseSite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		c := crawler.NewCrawler().Ignore(cfg.Analysis.Ignore...)
		return index.NewIndexer(c, cfg.Analysis.Workers, logger).BuildGraph(ctx, path)
	}

	start := time.Now()
	doc, err := ir.Load(path)
	if err != nil {
		return nil, nil, err
	}
	g, sites, err := doc.Assemble(ids.NewTable())
	if err != nil {
		return nil, nil, errors.Wrapf(err, "assemble %s", path)
	}
	logger.Info("pass.timing", "pass", "assemble", "types", g.Len(), "use_sites", len(sites), "elapsed", time.Since(start))
	return g, sites, nil
}

// runPipeline assembles the input, analyzes inheritance, classifies and
// resolves use-sites, and collects a snapshot. Nothing is saved.
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, docPath string) (*build, error) {
	g, sites, err := assemble(ctx, cfg, logger, docPath)
	if err != nil {
		return nil, err
	}

	analyzer := inheritance.NewAnalyzer(
		inheritance.WithWorkers(cfg.Analysis.Workers),
		inheritance.WithPolicy(cfg.Policy()),
		inheritance.WithLogger(logger),
	)
	res, err := analyzer.Analyze(ctx, g)
	if err != nil {
		return nil, err
	}

	refs, skipped := classify(sites)
	for i, err := range skipped {
		logger.Warn("classify.skipped", "use_site", i, "err", err)
	}

	rc := resolver.NewContext(g, res, refs)
	stages := resolver.NewDefaultChain().WithLogger(logger).Run(rc)
	for _, s := range stages {
		if s.Err != nil {
			return nil, errors.Wrapf(s.Err, "resolver %s", s.Resolver)
		}
	}

	return &build{
		Graph:    g,
		Result:   res,
		Stages:   stages,
		Skipped:  skipped,
		Snapshot: storage.NewSnapshot(cfg.Policy(), res, rc.Refs, rc.Resolutions),
	}, nil
}

// classify keeps only references that are complete enough to persist.
func classify(sites []reference.UseSite) ([]reference.Reference, map[int]error) {
	skipped := make(map[int]error)
	var refs []reference.Reference
	for i, site := range sites {
		ref, err := reference.Classify(site)
		if err == nil {
			err = reference.Validate(ref)
		}
		if err != nil {
			skipped[i] = err
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped
}
