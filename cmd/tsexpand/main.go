package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	tsexpand "github.com/d-kimuson/ts-type-expand"
	"github.com/d-kimuson/ts-type-expand/internal/config"
	"github.com/d-kimuson/ts-type-expand/internal/logging"
)

// errHandled marks errors already written by outputError.
var errHandled = errors.New("handled")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errHandled) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app holds the persistent flags and the resolved configuration of one
// invocation.
type app struct {
	project    string
	configPath string
	format     string
	logLevel   string
	logFormat  string
	strict     bool

	root   string
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tsexpand",
		Short:         "Describe TypeScript types as expandable type objects",
		Long:          "tsexpand classifies TypeScript declarations and positions into type objects, expands object members, and serves them to editors over HTTP. All line and column numbers are 0-based; columns count UTF-16 code units.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out, a.errOut = cmd.OutOrStdout(), cmd.ErrOrStderr()
			if err := validateFormat(a.format); err != nil {
				return err
			}
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.project, "project", "", "project directory (default: repository root of the working directory)")
	pf.StringVar(&a.configPath, "config", "", "config file (default: <project>/"+config.DefaultPath+")")
	pf.StringVar(&a.format, "format", "json", "output format: json|text")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text|json")
	pf.BoolVar(&a.strict, "strict-exports", false, "fail on the first unresolvable re-export")

	root.AddCommand(
		newExtractCmd(a),
		newAtCmd(a),
		newPropsCmd(a),
		newTreeCmd(a),
		newServeCmd(a),
		newIndexCmd(a),
		newFindCmd(a),
	)
	return root
}

// setup resolves the project root, loads the config and builds the logger.
// Flags override config values.
func (a *app) setup(cmd *cobra.Command) error {
	dir := a.project
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		dir = findRepoRoot(cwd)
	}
	root, err := resolveDir(dir)
	if err != nil {
		return err
	}
	a.root = root

	path := a.configPath
	if path == "" {
		path = filepath.Join(root, config.DefaultPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.strict {
		cfg.StrictExports = true
	}
	a.cfg = cfg

	a.logger, err = logging.New(a.errOut, cfg.Log.Level, cfg.Log.Format, isTerminal(a.errOut))
	return err
}

// newEngine builds an engine from the config. The index is attached when
// withIndex is set.
func (a *app) newEngine(withIndex bool) (*tsexpand.Engine, error) {
	opts := []tsexpand.Option{
		tsexpand.WithLogger(a.logger),
		tsexpand.WithSkipUnresolved(a.cfg.SkipUnresolved),
		tsexpand.WithStrictExports(a.cfg.StrictExports),
		tsexpand.WithLanguages(a.cfg.Languages...),
		tsexpand.WithRenderLimits(a.cfg.Render.MaxDepth, a.cfg.Render.MaxCalls),
		tsexpand.WithTreeOptions(tsexpand.TreeOptions{
			CompactOptionalType:   a.cfg.CompactOptionalType,
			CompactPropertyLength: a.cfg.CompactPropertyLength,
			DirectExpandArray:     a.cfg.DirectExpandArray,
		}),
	}
	if withIndex {
		opts = append(opts, tsexpand.WithIndex(a.cfg.IndexPath(a.root)))
	}
	e, err := tsexpand.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// loadEngine builds an engine and loads the project into it.
func (a *app) loadEngine(ctx context.Context, withIndex bool) (*tsexpand.Engine, error) {
	e, err := a.newEngine(withIndex)
	if err != nil {
		return nil, err
	}
	if err := e.LoadDirectory(ctx, a.root); err != nil {
		e.Close()
		return nil, fmt.Errorf("loading %s: %w", a.root, err)
	}
	return e, nil
}

// resolveDir returns the absolute path of an existing directory.
func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// outputResult writes a CLIResult in the selected format.
func (a *app) outputResult(result CLIResult) error {
	if a.format == "text" {
		return outputResultText(a.out, result)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes err in the selected format. In JSON mode it goes to
// stdout as a CLIResult envelope; in text mode to stderr.
func (a *app) outputError(command string, err error) error {
	if a.format == "text" {
		fmt.Fprintf(a.errOut, "Error: %s\n", err)
	} else {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	}
	return fmt.Errorf("%w: %w", errHandled, err)
}
