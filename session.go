package neosierra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/compiler"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/parser"
)

// ErrEmptyQuery is returned by Run when the model compiles to no query.
var ErrEmptyQuery = errors.New("empty query")

// Session owns one visual query: its model, the compiled text, the schema it is edited
// against and the id allocator for new nodes. Edits are applied one at a time.
type Session struct {
	mu      sync.Mutex
	runner  DBRunner
	schemas *SchemaService
	schema  *graph.Schema
	model   *graph.Model
	query   string
	ids     *graph.IDAllocator
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records session activity in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithSchema starts the session with an already discovered schema.
func WithSchema(schema *graph.Schema) Option {
	return func(s *Session) { s.schema = schema }
}

// WithModel starts the session from a stored model.
func WithModel(m *graph.Model) Option {
	return func(s *Session) { s.model = m.Clone() }
}

// NewSession creates a session executing through runner. The runner may be nil for
// sessions that only compile and translate.
func NewSession(runner DBRunner, opts ...Option) *Session {
	s := &Session{runner: runner, model: graph.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if runner != nil {
		s.schemas = NewSchemaService(runner, s.logger)
	}
	s.ids = graph.NewIDAllocator(s.model)
	query, err := s.compile(s.model)
	if err != nil {
		s.logger.Warn("initial model does not compile", "error", err)
	}
	s.query = query
	return s
}

// LoadSchema discovers the schema of the current database.
func (s *Session) LoadSchema(ctx context.Context) error {
	if s.schemas == nil {
		return fmt.Errorf("load schema: %w", ErrNoSchema)
	}
	schema, err := s.schemas.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()
	return nil
}

// Schema returns the schema the session validates against.
func (s *Session) Schema() (*graph.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema == nil {
		return nil, ErrNoSchema
	}
	return s.schema, nil
}

// Schemas returns the schema service, or nil for sessions without a runner.
func (s *Session) Schemas() *SchemaService {
	return s.schemas
}

// Model returns a copy of the current model.
func (s *Session) Model() *graph.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone()
}

// Query returns the text compiled from the current model.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Apply runs a transition against the current model. The model only changes when both
// the transition and the compilation of its result succeed.
func (s *Session) Apply(t graph.Transition) (*graph.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := t(s.model)
	if err != nil {
		return nil, err
	}
	return s.commit(next)
}

// Replace swaps in a whole model, as when a stored model is opened.
func (s *Session) Replace(m *graph.Model) (*graph.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.ids.Observe(m)
	return s.commit(m.Clone())
}

func (s *Session) commit(next *graph.Model) (*graph.Model, error) {
	query, err := s.compile(next)
	if err != nil {
		return nil, err
	}
	// next carries the aliases the compiler assigned.
	s.model, s.query = next, query
	return next.Clone(), nil
}

func (s *Session) compile(m *graph.Model) (string, error) {
	res, err := compiler.Compile(m)
	s.metrics.compiled(err)
	if err != nil {
		return "", err
	}
	*m = *res.Model
	return res.Query, nil
}

// Translate parses text against the current model and, on success, makes the result
// the current model. On failure the model is untouched.
func (s *Session) Translate(text string) (*graph.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := parser.New(s.schema, s.ids).Translate(text, s.model)
	s.metrics.translated(err)
	if err != nil {
		s.logger.Debug("translate rejected", "error", err)
		return nil, err
	}
	return s.commit(next)
}

// Run executes the compiled query and returns the graph it matched.
func (s *Session) Run(ctx context.Context) (*GraphResult, error) {
	query := s.Query()
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.runner == nil {
		return nil, errors.New("run: session has no database")
	}

	start := time.Now()
	res, err := s.runner.Run(ctx, query, nil)
	s.metrics.ran(start, err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query executed", "records", len(res.Records), "elapsed", time.Since(start))
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	return graphFromRecords(res.Records), nil
}

// SwitchDatabase points the session at another database. The model is cleared, since
// its labels belong to the previous schema, and the new schema is loaded.
func (s *Session) SwitchDatabase(ctx context.Context, name string) error {
	sel, ok := s.runner.(DatabaseSelector)
	if !ok {
		return errors.New("switch database: runner cannot select databases")
	}
	sel.UseDatabase(name)

	s.mu.Lock()
	s.schema = nil
	s.model = graph.ResetSchema(s.model)
	s.query = ""
	s.ids = graph.NewIDAllocator(s.model)
	s.mu.Unlock()

	s.logger.Info("database switched", "database", name)
	return s.LoadSchema(ctx)
}

func isRejection(err error) bool {
	for _, target := range []error{
		parser.ErrUnsupportedQuery,
		compiler.ErrMultipleJoins,
		graph.ErrNodeNotFound,
		graph.ErrEdgeNotFound,
		graph.ErrDuplicateID,
		graph.ErrUnknownOperator,
		graph.ErrInvalidLink,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
