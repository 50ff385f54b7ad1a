package classify

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// UnknownPropertyName is the name of the placeholder returned for a store
// key the session does not hold.
const UnknownPropertyName = "unknown"

// Session owns the store of object handles for one top-level conversion.
// A new Session is created for every top-level call; Properties calls
// against the same Session may arrive later and reuse its entries.
// A Session is not safe for concurrent use.
type Session struct {
	checker *checker.Checker
	logger  *slog.Logger
	newKey  func() string

	entries map[string]*checker.Type
	depth   int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithKeyFunc replaces the store key generator.
func WithKeyFunc(fn func() string) Option {
	return func(s *Session) { s.newKey = fn }
}

// NewSession starts an empty session over c.
func NewSession(c *checker.Checker, opts ...Option) *Session {
	s := &Session{
		checker: c,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		newKey:  uuid.NewString,
		entries: make(map[string]*checker.Type),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checker returns the checker the session classifies against.
func (s *Session) Checker() *checker.Checker { return s.checker }

// Len returns the number of registered object handles.
func (s *Session) Len() int { return len(s.entries) }

// Classify converts t into a type object. It never fails; shapes it cannot
// characterize become Unsupported.
func (s *Session) Classify(t *checker.Type) to.TypeObject {
	s.depth = 0
	return s.classify(t)
}

// Lookup returns the handle registered under key.
func (s *Session) Lookup(key string) (*checker.Type, bool) {
	t, ok := s.entries[key]
	return t, ok
}

func (s *Session) register(t *checker.Type) string {
	key := s.newKey()
	s.entries[key] = t
	return key
}

// Properties expands the object registered under key. Each property is
// classified on its own and may register further keys. An unknown key
// yields a single placeholder property.
func (s *Session) Properties(key string) []to.Property {
	t, ok := s.entries[key]
	if !ok {
		s.logger.Warn("unknown store key", "storeKey", key)
		unknownKeys.Inc()
		return []to.Property{{Name: UnknownPropertyName, Type: to.NewUnsupported(to.UnsupportedProp, "")}}
	}
	s.depth = 0
	props := s.checker.PropertiesOfType(t)
	out := make([]to.Property, 0, len(props))
	for _, p := range props {
		out = append(out, to.Property{Name: p.Name(), Type: s.property(p)})
	}
	return out
}

// property classifies one member. Mapped members use their template and
// members annotated with `T[]` take the element from the annotation.
func (s *Session) property(p *checker.Symbol) to.TypeObject {
	if tmpl := p.MappedTemplate(); tmpl != nil {
		return s.classify(tmpl)
	}
	if ann := p.TypeAnnotation(); ann != nil && ann.Kind() == "array_type" {
		arr := &to.Array{
			TypeName: s.typeText(s.checker.TypeFromTypeNode(ann)),
			Child:    to.NewUnsupported(to.UnsupportedArrayT, ""),
		}
		if el := ann.ElementType(); el != nil {
			arr.Child = s.classify(s.checker.TypeFromTypeNode(el))
		}
		return s.count(arr)
	}
	t := s.checker.TypeOfSymbol(p)
	if t.IsError() {
		return s.count(to.NewUnsupported(to.UnsupportedProp, ""))
	}
	if sigs := s.checker.CallSignatures(t); len(sigs) > 0 {
		return s.count(s.convertSignature(sigs[0]))
	}
	return s.classify(t)
}
