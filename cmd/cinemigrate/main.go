package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/qlemen7/cineexplorer/internal/docstore"
	"github.com/qlemen7/cineexplorer/internal/ingest"
	"github.com/qlemen7/cineexplorer/internal/query"

	// every source backend is available; the config picks one.
	_ "github.com/qlemen7/cineexplorer/internal/relational/all"
)

type globalOptions struct {
	configPath string
	envFile    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp adapts an app-level command body to cobra's RunE.
func withApp(opts *globalOptions, out io.Writer, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(*opts, out)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "cinemigrate",
		Short:         "Materialize a relational movie catalog into MongoDB and benchmark both",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config JSON path (defaults and environment only when empty)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration and exit",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return runValidate(*opts, out)
			},
		},
		&cobra.Command{
			Use:   "inspect",
			Short: "Resolve the source schema and print row counts",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				return a.runInspect(ctx)
			}),
		},
		&cobra.Command{
			Use:   "materialize",
			Short: "Rebuild the movies collection from the relational source",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				return a.runMaterialize(ctx)
			}),
		},
		&cobra.Command{
			Use:   "mirror",
			Short: "Copy every source table into a same-named collection",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				return a.runMirror(ctx)
			}),
		},
		&cobra.Command{
			Use:   "restructure",
			Short: "Rebuild the movies collection from the mirror collections with server-side joins",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				return a.runRestructure(ctx)
			}),
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the read API",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				return a.runServe(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print document counts of the mirror and movies collections",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
				db, err := a.database(ctx)
				if err != nil {
					return err
				}
				names := append([]string{a.cfg.Collections.Movies, docstore.TitlesCollection}, docstore.MirrorTables...)
				counts, err := countDocuments(ctx, db, names)
				sort.Strings(names)
				for _, n := range names {
					if c, ok := counts[n]; ok {
						fmt.Fprintf(out, "  %-16s %s\n", n, humanize.Comma(c))
					}
				}
				return err
			}),
		},
		newImportCmd(opts, out),
		newIntegrityCmd(opts, out),
		newBenchCmd(opts, out),
		newQueriesCmd(opts, out),
	)
	return root
}

func newImportCmd(opts *globalOptions, out io.Writer) *cobra.Command {
	var (
		dir    string
		create bool
		batch  int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-load the flat-file export into the relational source",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
			return a.runImport(ctx, dir, create, batch)
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "data/csv", "directory holding the export files")
	cmd.Flags().BoolVar(&create, "create", true, "create missing source tables first")
	cmd.Flags().IntVar(&batch, "batch", ingest.DefaultBatchSize, "rows per insert transaction")
	return cmd
}

func newIntegrityCmd(opts *globalOptions, out io.Writer) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Count orphan rows in the link tables",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
			return a.runIntegrity(ctx, fix)
		}),
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "delete the orphan rows in one transaction")
	return cmd
}

func addParamFlags(cmd *cobra.Command, p *query.Params) {
	cmd.Flags().StringVar(&p.Person, "person", p.Person, "person name searched by the filmography, multi-role and collaboration questions")
	cmd.Flags().StringVar(&p.Genre, "genre", p.Genre, "genre for the top-rated question")
	cmd.Flags().IntVar(&p.YearFrom, "year-from", p.YearFrom, "first year of the top-rated range")
	cmd.Flags().IntVar(&p.YearTo, "year-to", p.YearTo, "last year of the top-rated range")
	cmd.Flags().IntVar(&p.TopN, "top", p.TopN, "number of top-rated movies")
}

func newBenchCmd(opts *globalOptions, out io.Writer) *cobra.Command {
	p := query.DefaultParams()
	var (
		targets []string
		repeat  int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the nine questions without and with indexes",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
			return a.runBench(ctx, targets, p, repeat)
		}),
	}
	cmd.Flags().StringSliceVarP(&targets, "target", "t", []string{"sql"}, "targets: sql, normalized, flattened")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "runs per question and phase; the mean is reported")
	addParamFlags(cmd, &p)
	return cmd
}

func newQueriesCmd(opts *globalOptions, out io.Writer) *cobra.Command {
	p := query.DefaultParams()
	var target string
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Run the nine questions against one target and print the rows",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, out, func(ctx context.Context, a *app, _ []string) error {
			return a.runQueries(ctx, target, p)
		}),
	}
	cmd.Flags().StringVarP(&target, "target", "t", "sql", "target: sql, normalized or flattened")
	addParamFlags(cmd, &p)
	return cmd
}
