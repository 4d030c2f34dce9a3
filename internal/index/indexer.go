package index

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"symgraph/internal/crawler"
	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/ir"
	"symgraph/internal/reference"
)

// Indexer turns a directory of extractor documents into one project graph.
type Indexer struct {
	crawler *crawler.Crawler
	workers int
	logger  *slog.Logger
}

// NewIndexer creates an indexer decoding up to workers documents at once.
func NewIndexer(c *crawler.Crawler, workers int, logger *slog.Logger) *Indexer {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{crawler: c, workers: workers, logger: logger}
}

// BuildGraph loads and decodes every document under root in parallel against
// one identifier table, then adds them to the builder in path order so the
// graph does not depend on scheduling. Use-sites follow the same order.
func (i *Indexer) BuildGraph(ctx context.Context, root string) (*graph.Graph, []reference.UseSite, error) {
	start := time.Now()

	var paths []string
	if err := i.crawler.ScanDocuments(root, func(path string) error {
		paths = append(paths, path)
		return nil
	}); err != nil {
		return nil, nil, errors.Wrap(err, "scan failed")
	}

	table := ids.NewTable()
	decoded := make([]*ir.Decoded, len(paths))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(i.workers)
	for n, path := range paths {
		n, path := n, path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := ir.Load(path)
			if err != nil {
				return err
			}
			d, err := doc.Decode(table)
			if err != nil {
				return errors.Wrapf(err, "decode %s", path)
			}
			decoded[n] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	b := graph.NewBuilder()
	var sites []reference.UseSite
	for n, d := range decoded {
		if err := d.AddTo(b); err != nil {
			return nil, nil, errors.Wrapf(err, "add %s", paths[n])
		}
		sites = append(sites, d.UseSites...)
	}
	g := b.Seal()

	i.logger.Info("pass.timing",
		"pass", "index",
		"documents", len(paths),
		"types", g.Len(),
		"identifiers", table.Len(),
		"elapsed", time.Since(start),
	)
	return g, sites, nil
}
