package tsexpand

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	"github.com/d-kimuson/ts-type-expand/internal/classify"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	"github.com/d-kimuson/ts-type-expand/internal/store"
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

const tracerName = "github.com/d-kimuson/ts-type-expand"

// Engine answers type description requests against one compiler snapshot.
// Every top-level call (ExtractDeclaredTypes, ClassifyAtPosition) starts a
// new session; GetProperties reads the most recent one. The engine is safe
// for concurrent use, but calls are serialized because the checker is not.
type Engine struct {
	mu sync.Mutex

	logger  *slog.Logger
	tracer  trace.Tracer
	keyFunc func() string

	skipUnresolved bool
	strictExports  bool
	parallelism    int
	languages      map[string]bool // editor language ids; nil means all

	renderOpts []render.Option
	treeOpts   render.TreeOptions
	indexPath  string

	program *checker.Program
	checker *checker.Checker
	session *classify.Session
	store   *store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider spans are recorded
// with. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithSkipUnresolved controls whether generic aliases whose type arguments
// are still type parameters are left out of ExtractDeclaredTypes. Default
// true.
func WithSkipUnresolved(skip bool) Option {
	return func(e *Engine) { e.skipUnresolved = skip }
}

// WithStrictExports makes the first failing re-export abort
// ExtractDeclaredTypes. By default failures are logged and skipped.
func WithStrictExports(strict bool) Option {
	return func(e *Engine) { e.strictExports = strict }
}

// WithParallelism bounds how many files are parsed concurrently while
// loading. Values below 1 mean one worker per CPU.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// WithLanguages restricts loading to files of the given editor language
// ids ("typescript", "typescriptreact").
func WithLanguages(ids ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(ids))
		for _, id := range ids {
			e.languages[id] = true
		}
	}
}

// WithRenderLimits sets the object expansion ceilings of RenderType.
func WithRenderLimits(maxDepth, maxCalls int) Option {
	return func(e *Engine) {
		e.renderOpts = append(e.renderOpts, render.WithMaxDepth(maxDepth), render.WithMaxCalls(maxCalls))
	}
}

// WithTreeOptions sets the labeling options of Tree.
func WithTreeOptions(opts TreeOptions) Option {
	return func(e *Engine) { e.treeOpts = opts }
}

// WithIndex enables the SQLite declaration index at dbPath.
func WithIndex(dbPath string) Option {
	return func(e *Engine) { e.indexPath = dbPath }
}

// WithKeyFunc replaces the store key generator. Intended for tests that
// assert on keys.
func WithKeyFunc(fn func() string) Option {
	return func(e *Engine) { e.keyFunc = fn }
}

// New creates an Engine over an empty snapshot. Load files with LoadFiles
// or LoadDirectory, or install a snapshot with UpdateSnapshot.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:         otel.Tracer(tracerName),
		skipUnresolved: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.program = checker.NewProgram()
	e.checker = checker.New(e.program)

	if e.indexPath != "" {
		if err := os.MkdirAll(filepath.Dir(e.indexPath), 0o755); err != nil {
			return nil, fmt.Errorf("tsexpand: create index dir: %w", err)
		}
		s, err := store.NewStore(e.indexPath)
		if err != nil {
			return nil, fmt.Errorf("tsexpand: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("tsexpand: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the parsed files of the current snapshot and the index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range e.program.Files() {
		f.Close()
	}
	e.session = nil
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Snapshot returns the current program.
func (e *Engine) Snapshot() *Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.program
}

// UpdateSnapshot swaps the program used by subsequent calls. The current
// session is kept, so store keys handed out earlier still expand against
// the snapshot they were classified in; a fresh session starts with the
// next top-level call.
func (e *Engine) UpdateSnapshot(p *Program) {
	if p == nil {
		p = checker.NewProgram()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.program = p
	e.checker = checker.New(p)
	e.logger.Debug("snapshot updated", "files", p.Len())
}

// newSession starts a session against the current checker. Callers hold
// e.mu.
func (e *Engine) newSession() *classify.Session {
	opts := []classify.Option{classify.WithLogger(e.logger)}
	if e.keyFunc != nil {
		opts = append(opts, classify.WithKeyFunc(e.keyFunc))
	}
	e.session = classify.NewSession(e.checker, opts...)
	return e.session
}

func (e *Engine) file(path string) (*tsparse.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	f, ok := e.program.File(abs)
	if !ok {
		return nil, &Error{Reason: ReasonFileNotFound, Path: path}
	}
	return f, nil
}
