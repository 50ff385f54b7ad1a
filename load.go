package tsexpand

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// LoadFiles parses paths concurrently and installs the result as the new
// snapshot. Files whose content hash matches the current snapshot reuse
// their parsed tree. Files with unsupported extensions or filtered
// languages are ignored.
func (e *Engine) LoadFiles(ctx context.Context, paths []string) error {
	ctx, span := e.tracer.Start(ctx, "tsexpand.LoadFiles",
		trace.WithAttributes(attribute.Int("files.requested", len(paths))))
	defer span.End()

	e.mu.Lock()
	current := e.program
	e.mu.Unlock()

	var wanted []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("tsexpand: resolve %s: %w", p, err)
		}
		if e.accepts(abs) {
			wanted = append(wanted, abs)
		}
	}

	workers := e.parallelism
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	files := make([]*tsparse.File, len(wanted))
	reused := make([]bool, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range wanted {
		i, path := i, path
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if old, ok := current.File(path); ok && old.Hash == tsparse.HashContent(content) {
				files[i], reused[i] = old, true
				return nil
			}
			f, err := tsparse.Parse(gctx, path, content)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, f := range files {
			if f != nil && !reused[i] {
				f.Close()
			}
		}
		span.RecordError(err)
		return fmt.Errorf("tsexpand: load: %w", err)
	}

	parsed := 0
	for _, r := range reused {
		if !r {
			parsed++
		}
	}
	span.SetAttributes(attribute.Int("files.parsed", parsed))
	e.logger.Info("snapshot loaded", "files", len(files), "parsed", parsed, "reused", len(files)-parsed)
	e.UpdateSnapshot(checker.NewProgram(files...))
	return nil
}

// LoadDirectory discovers TypeScript files under root and loads them. If
// root is inside a git repository, git ls-files is used to respect
// .gitignore; otherwise the filesystem is walked, skipping hidden
// directories and build output.
func (e *Engine) LoadDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "err", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return fmt.Errorf("tsexpand: %w", err)
		}
	}
	return e.LoadFiles(ctx, paths)
}

func (e *Engine) accepts(path string) bool {
	lang, ok := tsparse.LanguageForFile(path)
	if !ok {
		return false
	}
	return e.languages == nil || e.languages[tsparse.LanguageID(lang)]
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if e.accepts(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
