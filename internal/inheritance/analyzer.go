// Package inheritance computes ancestor/descendant closure, diamond reports
// and method resolution order over the assembled project type graph.
package inheritance

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/resolution"
)

// State is the per-entity progress through one analysis pass. Entities only
// move forward.
type State int

const (
	Unanalyzed State = iota
	AncestryComputed
	MroComputed
	MroConflict
	Done
)

func (s State) String() string {
	switch s {
	case Unanalyzed:
		return "unanalyzed"
	case AncestryComputed:
		return "ancestry_computed"
	case MroComputed:
		return "mro_computed"
	case MroConflict:
		return "mro_conflict"
	case Done:
		return "done"
	}
	return "unknown"
}

type Option func(*Analyzer)

// WithWorkers bounds the number of concurrent per-root traversals.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithPolicy selects the MRO linearization.
func WithPolicy(p Policy) Option {
	return func(a *Analyzer) {
		if p != "" {
			a.policy = p
		}
	}
}

// WithLogger sets the logger used for pass timings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer runs the whole-project inheritance pass. It reads the sealed
// graph only and writes every computed field into a fresh Result.
type Analyzer struct {
	workers int
	policy  Policy
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer with C3 linearization and one worker per CPU
// unless overridden.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		workers: runtime.GOMAXPROCS(0),
		policy:  PolicyC3,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// rootWalk is everything learned from one traversal root.
type rootWalk struct {
	ancestors []ids.SymbolID
	diamonds  []graph.DiamondProblem
	cycle     []ids.SymbolID
	bases     []resolution.Resolution[ids.SymbolID]
	missing   []ids.SymbolID
}

// Analyze runs the pass. Per-entity problems land in Result.Diagnostics; the
// only error is a cancelled context, in which case no result is published.
func (a *Analyzer) Analyze(ctx context.Context, g *graph.Graph) (*Result, error) {
	start := time.Now()
	order := g.IDs()
	a.logger.Info("inheritance.start", "types", len(order), "policy", string(a.policy), "workers", a.workers)

	trace := newTracker(order)

	// 1. Per-root traversals are independent and only read the graph.
	walks := make([]rootWalk, len(order))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, id := range order {
		i, id := i, id
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			walks[i] = walkRoot(g, id)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Types:       make(map[ids.SymbolID]*graph.TypeEntity, len(order)),
		Bases:       make(map[ids.SymbolID][]resolution.Resolution[ids.SymbolID], len(order)),
		Transitions: trace.states,
		order:       order,
	}

	cyclic := make(map[ids.SymbolID]bool)
	for i, id := range order {
		w := walks[i]
		entity := g.Type(id).Clone()
		entity.Ancestors = w.ancestors
		entity.Descendants = descendantsOf(g, id)
		res.Types[id] = entity
		res.Bases[id] = w.bases
		res.Diamonds = append(res.Diamonds, w.diamonds...)

		for _, base := range w.missing {
			res.Diagnostics = append(res.Diagnostics, unresolvedBaseDiagnostic(id, base))
		}
		if w.cycle != nil {
			cyclic[id] = true
			res.Diagnostics = append(res.Diagnostics, cycleDiagnostic(id, w.cycle))
		}
		trace.advance(id, AncestryComputed)
	}

	// 2. Linearization depends on parents' MROs, so it runs after every
	// ancestry is known and in a single goroutine.
	lin := newLinearizer(g, a.policy, cyclic)
	for _, id := range order {
		if m, ok := lin.linearize(id); ok {
			res.Types[id].MRO = append([]ids.SymbolID(nil), m...)
			trace.advance(id, MroComputed)
		} else {
			trace.advance(id, MroConflict)
		}
		trace.advance(id, Done)
	}
	res.Diagnostics = append(res.Diagnostics, lin.diags...)

	for _, d := range res.Diagnostics {
		a.logger.Debug("inheritance.diagnostic", "kind", string(d.Kind), "entity", d.Entity.String(), "message", d.Message)
	}
	a.logger.Info("inheritance.done",
		"types", len(order),
		"diamonds", len(res.Diamonds),
		"diagnostics", len(res.Diagnostics),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// walkRoot computes ancestry, diamonds and cycles for one root.
//
// The diamond walk is a path-tracking DFS with a visited set shared by the
// whole traversal from this root: a node is expanded once, and later
// arrivals via another branch only register their path. Diamonds are thus
// judged on the first expansion of each node rather than on every path
// combination, which would be exponential. Cycles are detected against the
// current path, not the visited set.
func walkRoot(g *graph.Graph, root ids.SymbolID) rootWalk {
	w := rootWalk{ancestors: ancestorsOf(g, root)}

	for _, p := range g.Parents(root) {
		w.bases = append(w.bases, resolveBase(g, root, p))
		if !g.Has(p) {
			w.missing = append(w.missing, p)
		}
	}

	paths := make(map[ids.SymbolID][][]ids.SymbolID)
	var reached []ids.SymbolID
	visited := map[ids.SymbolID]bool{root: true}
	onPath := map[ids.SymbolID]bool{root: true}

	var visit func(node ids.SymbolID, path []ids.SymbolID)
	visit = func(node ids.SymbolID, path []ids.SymbolID) {
		for _, parent := range g.Parents(node) {
			if onPath[parent] {
				if w.cycle == nil {
					w.cycle = cycleFrom(path, parent)
				}
				continue
			}

			next := make([]ids.SymbolID, len(path)+1)
			copy(next, path)
			next[len(path)] = parent

			if _, seen := paths[parent]; !seen {
				reached = append(reached, parent)
			}
			paths[parent] = append(paths[parent], next)

			if visited[parent] {
				continue
			}
			visited[parent] = true
			onPath[parent] = true
			visit(parent, next)
			onPath[parent] = false
		}
	}
	visit(root, []ids.SymbolID{root})

	for _, base := range reached {
		if len(paths[base]) < 2 {
			continue
		}
		w.diamonds = append(w.diamonds, graph.DiamondProblem{
			Base:               base,
			Paths:              paths[base],
			ConflictingMembers: conflictingMembers(g, paths[base]),
		})
	}
	return w
}

func cycleFrom(path []ids.SymbolID, again ids.SymbolID) []ids.SymbolID {
	for i, id := range path {
		if id == again {
			out := make([]ids.SymbolID, 0, len(path)-i+1)
			out = append(out, path[i:]...)
			return append(out, again)
		}
	}
	return []ids.SymbolID{again, again}
}

// conflictingMembers lists names for which different paths reach a
// different nearest declaring type before the shared base.
func conflictingMembers(g *graph.Graph, paths [][]ids.SymbolID) []string {
	nearest := make(map[string]map[ids.SymbolID]bool)
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		seen := make(map[string]bool)
		for _, n := range path[1 : len(path)-1] {
			t := g.Type(n)
			if t == nil {
				continue
			}
			for name := range t.Members {
				if seen[name] {
					continue
				}
				seen[name] = true
				if nearest[name] == nil {
					nearest[name] = make(map[ids.SymbolID]bool)
				}
				nearest[name][n] = true
			}
		}
	}

	var out []string
	for name, declarers := range nearest {
		if len(declarers) > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ancestorsOf is breadth-first so the order follows edge declaration order,
// then depth.
func ancestorsOf(g *graph.Graph, root ids.SymbolID) []ids.SymbolID {
	return closure(root, g.Parents)
}

func descendantsOf(g *graph.Graph, root ids.SymbolID) []ids.SymbolID {
	return closure(root, g.Children)
}

func closure(root ids.SymbolID, next func(ids.SymbolID) []ids.SymbolID) []ids.SymbolID {
	seen := map[ids.SymbolID]bool{root: true}
	queue := []ids.SymbolID{root}
	var out []ids.SymbolID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range next(n) {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
			queue = append(queue, m)
		}
	}
	return out
}

// resolveBase reports how a declared base was found. Crossing a file
// boundary is an import.
func resolveBase(g *graph.Graph, child, base ids.SymbolID) resolution.Resolution[ids.SymbolID] {
	if !g.Has(base) {
		return resolution.Failed[ids.SymbolID](child.FilePath)
	}
	if base.FilePath == child.FilePath {
		return resolution.HighConfidence(base, resolution.ReasonDirectMatch, child.FilePath)
	}
	return resolution.HighConfidence(base, resolution.ReasonImported, child.FilePath, base.FilePath)
}

// tracker records state transitions and refuses to move an entity backward.
type tracker struct {
	states map[ids.SymbolID][]State
}

func newTracker(order []ids.SymbolID) *tracker {
	t := &tracker{states: make(map[ids.SymbolID][]State, len(order))}
	for _, id := range order {
		t.states[id] = []State{Unanalyzed}
	}
	return t
}

func (t *tracker) advance(id ids.SymbolID, next State) {
	history := t.states[id]
	if len(history) > 0 && history[len(history)-1] >= next {
		return
	}
	t.states[id] = append(history, next)
}
