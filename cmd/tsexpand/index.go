package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	tsexpand "github.com/d-kimuson/ts-type-expand"
)

func newIndexCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Record the exported declarations of the project in SQLite",
		Long:  "Parses the project and writes every exported declaration with its classified type to the index database. Unchanged files are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			dbPath := a.cfg.IndexPath(a.root)
			if force {
				if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("removing database for --force: %w", err)
				}
				fmt.Fprintf(a.errOut, "Cleared database: %s\n", dbPath)
			}

			e, err := a.loadEngine(cmd.Context(), true)
			if err != nil {
				return a.outputError("index", err)
			}
			defer e.Close()

			res, err := e.Index(cmd.Context())
			if err != nil {
				return a.outputError("index", err)
			}
			fmt.Fprintf(a.errOut, "Indexed %s in %s\n", a.root, time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(a.errOut, "Database: %s\n", dbPath)
			return a.outputResult(CLIResult{Command: "index", Results: indexResultToCLI(res)})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete the database and reindex from scratch")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	var (
		q     tsexpand.DeclarationQuery
		where string
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search the declaration index",
		Long: `Search the declaration index built by 'tsexpand index'.

--where takes a Risor expression evaluated per declaration with the globals
name, variant, type_name, kind, path and exported, e.g.

  tsexpand find --where 'variant == "ObjectTO" && name != "Props"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := a.cfg.IndexPath(a.root)
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				return a.outputError("find", fmt.Errorf("database not found: %s (run 'tsexpand index' first)", dbPath))
			}
			e, err := a.newEngine(true)
			if err != nil {
				return a.outputError("find", err)
			}
			defer e.Close()

			decls, err := e.FindDeclarations(cmd.Context(), q, where)
			if err != nil {
				return a.outputError("find", err)
			}
			out := make([]CLIIndexedDeclaration, 0, len(decls))
			for _, d := range decls {
				out = append(out, indexedToCLI(d))
			}
			n := len(out)
			return a.outputResult(CLIResult{Command: "find", Results: out, TotalCount: &n})
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Name, "name", "", "declaration name; * matches any run of characters")
	f.StringVar(&q.Variant, "variant", "", "type object variant, e.g. ObjectTO")
	f.StringVar(&q.DeclKind, "kind", "", "declaration kind: type|interface|enum|class|function|variable")
	f.StringVar(&q.Path, "file", "", "restrict to one file")
	f.IntVar(&q.Limit, "limit", 50, "maximum results; 0 for no limit")
	f.StringVar(&where, "where", "", "Risor predicate over each declaration")
	return cmd
}

func indexResultToCLI(r tsexpand.IndexResult) CLIIndexResult {
	out := CLIIndexResult{Indexed: r.Indexed, Skipped: r.Skipped, Removed: r.Removed}
	if len(r.Changes) > 0 {
		out.Changes = make(map[string]CLIFileChanges, len(r.Changes))
		for path, d := range r.Changes {
			out.Changes[path] = CLIFileChanges{Added: d.Added, Removed: d.Removed, Changed: d.Changed}
		}
	}
	return out
}

func indexedToCLI(d tsexpand.IndexedDeclaration) CLIIndexedDeclaration {
	return CLIIndexedDeclaration{
		Name:      d.Name,
		Kind:      d.DeclKind,
		Variant:   d.Variant,
		TypeName:  d.TypeName,
		Text:      d.TypeText,
		File:      d.Path,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
	}
}
