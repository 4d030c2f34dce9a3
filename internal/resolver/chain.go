package resolver

import (
	"log/slog"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/inheritance"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"
)

// ResolveStats counts what one stage did.
type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int
}

// Context is the shared state a chain works on. Resolutions is aligned
// with Refs; every entry starts as not_found.
type Context struct {
	Graph       *graph.Graph
	Analysis    *inheritance.Result
	Refs        []reference.Reference
	Resolutions []resolution.Resolution[ids.SymbolID]
}

// NewContext starts every reference as not found.
func NewContext(g *graph.Graph, analysis *inheritance.Result, refs []reference.Reference) *Context {
	rs := make([]resolution.Resolution[ids.SymbolID], len(refs))
	for i, ref := range refs {
		rs[i] = resolution.Failed[ids.SymbolID](ref.Common().Location.FilePath)
	}
	return &Context{Graph: g, Analysis: analysis, Refs: refs, Resolutions: rs}
}

// Unresolved counts references without a resolved target.
func (c *Context) Unresolved() int {
	n := 0
	for _, r := range c.Resolutions {
		if !r.IsResolved() {
			n++
		}
	}
	return n
}

// offer keeps the better of the current and the candidate resolution.
func (c *Context) offer(i int, candidate resolution.Resolution[ids.SymbolID]) bool {
	best := resolution.Best(c.Resolutions[i], candidate)
	c.Resolutions[i] = best
	return best.IsResolved()
}

// Stage resolves the references it understands and leaves the rest alone.
type Stage interface {
	Name() string
	Resolve(rc *Context) (ResolveStats, error)
}

// StageResult reports one stage run.
type StageResult struct {
	Resolver         string
	Stats            ResolveStats
	UnresolvedBefore int
	UnresolvedAfter  int
	Err              error
}

type Chain struct {
	stages []Stage
	logger *slog.Logger
}

// NewChain creates a chain that runs stages in order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages, logger: slog.Default()}
}

// NewDefaultChain runs the self, member and name stages.
func NewDefaultChain() *Chain {
	return NewChain(NewSelfStage(), NewMemberStage(), NewNameStage())
}

func (c *Chain) WithLogger(l *slog.Logger) *Chain {
	if l != nil {
		c.logger = l
	}
	return c
}

// Run executes each stage against rc and stops after the first error.
func (c *Chain) Run(rc *Context) []StageResult {
	if rc == nil {
		return nil
	}

	var out []StageResult
	for _, s := range c.stages {
		before := rc.Unresolved()
		stats, err := s.Resolve(rc)
		after := rc.Unresolved()
		out = append(out, StageResult{
			Resolver:         s.Name(),
			Stats:            stats,
			UnresolvedBefore: before,
			UnresolvedAfter:  after,
			Err:              err,
		})
		c.logger.Info("resolver.stage",
			"resolver", s.Name(),
			"attempted", stats.Attempted,
			"resolved", stats.Resolved,
			"unresolved", after,
		)
		if err != nil {
			c.logger.Warn("resolver.stage_failed", "resolver", s.Name(), "err", err)
			break
		}
	}
	return out
}
