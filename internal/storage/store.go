package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/inheritance"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"
)

var ErrBuildNotFound = errors.New("build not found")

// ResolvedReference pairs a classified reference with what it resolved to.
type ResolvedReference struct {
	Reference  reference.Reference
	Resolution resolution.Resolution[ids.SymbolID]
}

// Snapshot is everything one build produced.
type Snapshot struct {
	BuildID   string
	CreatedAt time.Time
	Policy    inheritance.Policy

	// Types carry computed ancestry and MRO.
	Types       []*graph.TypeEntity
	Diamonds    []graph.DiamondProblem
	Diagnostics []inheritance.Diagnostic
	References  []ResolvedReference
}

// NewSnapshot collects an analysis result and the resolved references into a
// snapshot ready to save. resolutions is aligned with refs.
func NewSnapshot(policy inheritance.Policy, res *inheritance.Result, refs []reference.Reference, resolutions []resolution.Resolution[ids.SymbolID]) *Snapshot {
	s := &Snapshot{Policy: policy}
	if res != nil {
		for _, id := range res.IDs() {
			s.Types = append(s.Types, res.Type(id))
		}
		s.Diamonds = res.Diamonds
		s.Diagnostics = res.Diagnostics
	}
	for i, ref := range refs {
		rr := ResolvedReference{Reference: ref, Resolution: resolution.Failed[ids.SymbolID]()}
		if i < len(resolutions) {
			rr.Resolution = resolutions[i]
		}
		s.References = append(s.References, rr)
	}
	return s
}

// Type returns the snapshot entity with the given id.
func (s *Snapshot) Type(id ids.SymbolID) *graph.TypeEntity {
	for _, t := range s.Types {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// BuildInfo summarizes one saved build.
type BuildInfo struct {
	ID        string
	CreatedAt time.Time
	Policy    inheritance.Policy
	TypeCount int
}

// Store persists analysis snapshots. Each save is a new build; builds are
// never updated in place.
type Store interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) (string, error)
	LoadSnapshot(ctx context.Context, buildID string) (*Snapshot, error)
	LatestBuildID(ctx context.Context) (string, error)
	ListBuilds(ctx context.Context) ([]BuildInfo, error)
	DeleteBuild(ctx context.Context, buildID string) error

	// TypesInFile returns the types of a build declared in one file.
	TypesInFile(ctx context.Context, buildID, filePath string) ([]*graph.TypeEntity, error)
	Close() error
}
