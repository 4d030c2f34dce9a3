package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"symgraph/internal/analysis"
	"symgraph/internal/config"
	"symgraph/internal/git"
	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/inheritance"
	"symgraph/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:           "symgraph",
		Short:         "Type hierarchy analysis and reference resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	dbPath     string
	sinceRef   string
	repoDir    string
	noSave     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the snapshot database (SQLite); overrides storage.path")

	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "Print results without saving a snapshot")
	impactCmd.Flags().StringVar(&sinceRef, "since", "HEAD", "Git ref to diff the working tree against")
	impactCmd.Flags().StringVar(&repoDir, "repo", ".", "Repository to run git in")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(buildsCmd)
}

// setup loads config, applies --db and installs the configured logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", cfg.Storage.Path)
	}
	return store, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document|dir>",
	Short: "Analyze extractor documents and save a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		start := time.Now()
		b, err := runPipeline(ctx, cfg, logger, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Analyzed %d types in %v (policy %s)\n", b.Graph.Len(), time.Since(start).Round(time.Millisecond), cfg.Policy())
		counts := b.Graph.RelationTypeCounts()
		fmt.Fprintf(out, "   edges: extends=%d implements=%d uses=%d\n",
			counts[graph.RelationExtends], counts[graph.RelationImplements], counts[graph.RelationUses])
		printDiagnostics(out, b.Result)
		printDiamonds(out, b.Result.Diamonds)
		for _, s := range b.Stages {
			fmt.Fprintf(out, "   resolver %-6s attempted=%d resolved=%d unresolved %d -> %d\n",
				s.Resolver, s.Stats.Attempted, s.Stats.Resolved, s.UnresolvedBefore, s.UnresolvedAfter)
		}
		if len(b.Skipped) > 0 {
			fmt.Fprintf(out, "⚠️  %d use-sites skipped as incomplete\n", len(b.Skipped))
		}

		if noSave {
			return nil
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		buildID, err := store.SaveSnapshot(ctx, b.Snapshot)
		if err != nil {
			return errors.Wrap(err, "failed to save snapshot")
		}
		fmt.Fprintf(out, "💾 Saved build %s to %s\n", buildID, cfg.Storage.Path)
		return nil
	},
}

func printDiagnostics(w io.Writer, res *inheritance.Result) {
	if len(res.Diagnostics) == 0 {
		fmt.Fprintln(w, "   no diagnostics")
		return
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "   [%s] %s\n", d.Severity, d.Error())
	}
}

func printDiamonds(w io.Writer, diamonds []graph.DiamondProblem) {
	for _, d := range diamonds {
		fmt.Fprintf(w, "   diamond: %s reaches %s by %d paths", d.Descendant().Name, d.Base.Name, len(d.Paths))
		if len(d.ConflictingMembers) > 0 {
			fmt.Fprintf(w, ", conflicting members %v", d.ConflictingMembers)
		}
		fmt.Fprintln(w)
	}
}

var decodeCmd = &cobra.Command{
	Use:   "decode <identifier>",
	Short: "Decode an encoded symbol or scope identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if id, err := ids.DecodeSymbol(args[0]); err == nil {
			fmt.Fprintf(out, "kind:      %s\n", id.Kind)
			printLocation(out, id.Location)
			fmt.Fprintf(out, "name:      %s\n", id.Name)
			if id.Qualifier != "" {
				fmt.Fprintf(out, "qualifier: %s\n", id.Qualifier)
			}
			return nil
		}
		scope, err := ids.DecodeScope(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "scope:     %s\n", scope.Kind)
		printLocation(out, scope.Location)
		return nil
	},
}

func printLocation(w io.Writer, loc ids.Location) {
	fmt.Fprintf(w, "path:      %s\n", loc.FilePath)
	fmt.Fprintf(w, "range:     %d:%d-%d:%d\n", loc.StartLine, loc.StartColumn, loc.EndLine, loc.EndColumn)
}

var impactCmd = &cobra.Command{
	Use:   "impact [document]",
	Short: "List types affected by uncommitted changes, including descendants",
	Long: "Diffs the working tree against --since and reports the types whose definitions changed " +
		"and every type inheriting from them. Without a document the latest saved build is used.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		types, err := loadTypes(ctx, cfg, logger, args)
		if err != nil {
			return err
		}

		changes, err := git.GetChangedFiles(ctx, repoDir, sinceRef)
		if err != nil {
			return err
		}

		report, err := analysis.NewAnalyzer(types).AnalyzeImpact(changes)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🔍 %d changed files since %s\n", len(changes), sinceRef)
		fmt.Fprintf(out, "Directly affected (%d):\n", len(report.DirectlyAffected))
		for _, t := range report.DirectlyAffected {
			fmt.Fprintf(out, "  - %s (%s:%d)\n", t.ID.Name, t.ID.FilePath, t.ID.StartLine)
		}
		fmt.Fprintf(out, "Inheriting from changed types (%d):\n", len(report.IndirectlyAffected))
		for _, t := range report.IndirectlyAffected {
			fmt.Fprintf(out, "  - %s (%s:%d)\n", t.ID.Name, t.ID.FilePath, t.ID.StartLine)
		}
		return nil
	},
}

// loadTypes analyzes the given document, or reads the latest build.
func loadTypes(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) ([]*graph.TypeEntity, error) {
	if len(args) == 1 {
		b, err := runPipeline(ctx, cfg, logger, args[0])
		if err != nil {
			return nil, err
		}
		return b.Snapshot.Types, nil
	}

	store, err := initStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	buildID, err := store.LatestBuildID(ctx)
	if errors.Is(err, storage.ErrBuildNotFound) {
		return nil, errors.New("no saved build; run analyze first or pass a document")
	}
	if err != nil {
		return nil, err
	}
	snap, err := store.LoadSnapshot(ctx, buildID)
	if err != nil {
		return nil, err
	}
	logger.Info("impact.snapshot", "build", buildID, "types", len(snap.Types))
	return snap.Types, nil
}

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List saved builds, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		builds, err := store.ListBuilds(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, b := range builds {
			fmt.Fprintf(out, "%s  %s  %-11s %d types\n", b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Policy, b.TypeCount)
		}
		return nil
	},
}
