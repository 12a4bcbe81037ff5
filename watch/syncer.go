// Package watch keeps a stored graph model and its query text in step. Editing the
// model file regenerates the query file; editing the query file translates it against
// the current model and rewrites the model file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	neosierra "github.com/saulfrancisco-ruizacevedo/go-neosierra"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Direction tells which file a sync started from.
type Direction string

const (
	// ModelToQuery regenerated the query file from the model file.
	ModelToQuery Direction = "model->query"
	// QueryToModel rewrote the model file from the query file.
	QueryToModel Direction = "query->model"
)

// Result reports one completed or failed synchronization.
type Result struct {
	Direction Direction
	Query     string
	Err       error
}

// Config configures a Syncer.
type Config struct {
	// ModelPath is the stored model, JSON or YAML by extension.
	ModelPath string
	// QueryPath holds the query text.
	QueryPath string
	// Debounce is how long to wait for more changes before processing.
	Debounce time.Duration
}

// Syncer mirrors edits between a model file and a query file through a Session.
type Syncer struct {
	cfg     Config
	session *neosierra.Session
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// Debouncing: last change time per path, processed once quiet for cfg.Debounce
	pendingMu sync.Mutex
	pending   map[string]time.Time

	// Hashes of the last content seen or written, per path. A write made by the syncer
	// itself then produces no further sync.
	hashMu sync.Mutex
	hashes map[string]string

	results chan Result
}

// NewSyncer creates a syncer for the two files of cfg.
func NewSyncer(session *neosierra.Session, cfg Config, logger *slog.Logger) (*Syncer, error) {
	if cfg.ModelPath == "" || cfg.QueryPath == "" {
		return nil, errors.New("watch: model and query paths are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	var err error
	if cfg.ModelPath, err = filepath.Abs(cfg.ModelPath); err != nil {
		return nil, err
	}
	if cfg.QueryPath, err = filepath.Abs(cfg.QueryPath); err != nil {
		return nil, err
	}
	return &Syncer{
		cfg:     cfg,
		session: session,
		logger:  logger,
		pending: make(map[string]time.Time),
		hashes:  make(map[string]string),
		results: make(chan Result, 16),
	}, nil
}

// Results returns the channel of sync results. It is closed when watching stops.
func (s *Syncer) Results() <-chan Result {
	return s.results
}

// Start performs an initial sync and then watches both files until ctx is done or Stop
// is called. The initial sync prefers the model file when both exist.
func (s *Syncer) Start(ctx context.Context) error {
	if err := s.initialSync(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors commonly replace files by rename, so the parent directories are watched.
	dirs := map[string]bool{filepath.Dir(s.cfg.ModelPath): true, filepath.Dir(s.cfg.QueryPath): true}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	s.watcher = fsw

	go s.processEvents(ctx)

	s.logger.Info("Sync started",
		"model", s.cfg.ModelPath,
		"query", s.cfg.QueryPath,
		"debounce", s.cfg.Debounce)
	return nil
}

// Stop stops watching. The results channel is closed by processEvents when it exits.
func (s *Syncer) Stop() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *Syncer) initialSync() error {
	if _, err := os.Stat(s.cfg.ModelPath); err == nil {
		_, err := s.SyncModel()
		return err
	}
	if _, err := os.Stat(s.cfg.QueryPath); err == nil {
		_, err := s.SyncQuery()
		return err
	}
	return nil
}

func (s *Syncer) processEvents(ctx context.Context) {
	defer close(s.results)
	ticker := time.NewTicker(s.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleFSEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("Watcher error", "error", err)

		case now := <-ticker.C:
			s.flushPending(now)
		}
	}
}

func (s *Syncer) handleFSEvent(event fsnotify.Event) {
	if event.Name != s.cfg.ModelPath && event.Name != s.cfg.QueryPath {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	s.pendingMu.Lock()
	s.pending[event.Name] = time.Now()
	s.pendingMu.Unlock()

	s.logger.Debug("File change detected", "path", event.Name, "op", event.Op.String())
}

// flushPending processes the files that have been quiet for the debounce interval.
// When both files changed, the model file wins.
func (s *Syncer) flushPending(now time.Time) {
	s.pendingMu.Lock()
	for _, at := range s.pending {
		if now.Sub(at) < s.cfg.Debounce {
			s.pendingMu.Unlock()
			return
		}
	}
	_, model := s.pending[s.cfg.ModelPath]
	_, query := s.pending[s.cfg.QueryPath]
	clear(s.pending)
	s.pendingMu.Unlock()

	var (
		res     Result
		changed bool
		err     error
	)
	switch {
	case model:
		res.Direction = ModelToQuery
		changed, err = s.SyncModel()
	case query:
		res.Direction = QueryToModel
		changed, err = s.SyncQuery()
	default:
		return
	}
	if !changed && err == nil {
		return
	}
	res.Query, res.Err = s.session.Query(), err
	if err != nil {
		s.logger.Warn("Sync failed", "direction", res.Direction, "error", err)
	} else {
		s.logger.Info("Synced", "direction", res.Direction)
	}
	s.send(res)
}

func (s *Syncer) send(res Result) {
	select {
	case s.results <- res:
	default:
		s.logger.Warn("Result channel full, dropping result", "direction", res.Direction)
	}
}

// SyncModel loads the model file into the session and writes the compiled query file.
// It reports false when the model file is unchanged since it was last seen.
func (s *Syncer) SyncModel() (bool, error) {
	data, fresh, err := s.read(s.cfg.ModelPath)
	if err != nil || !fresh {
		return false, err
	}
	m, err := DecodeModel(s.cfg.ModelPath, data)
	if err != nil {
		return false, err
	}
	if _, err := s.session.Replace(m); err != nil {
		return false, fmt.Errorf("compile %s: %w", filepath.Base(s.cfg.ModelPath), err)
	}
	query := s.session.Query()
	if query != "" {
		query += "\n"
	}
	return true, s.write(s.cfg.QueryPath, []byte(query))
}

// SyncQuery translates the query file against the session model and writes the
// result to the model file. A rejected query leaves both the session and the model
// file untouched. It reports false when the query file is unchanged.
func (s *Syncer) SyncQuery() (bool, error) {
	data, fresh, err := s.read(s.cfg.QueryPath)
	if err != nil || !fresh {
		return false, err
	}
	m, err := s.session.Translate(string(data))
	if err != nil {
		return false, err
	}
	out, err := EncodeModel(s.cfg.ModelPath, m)
	if err != nil {
		return false, fmt.Errorf("encode model: %w", err)
	}
	return true, s.write(s.cfg.ModelPath, out)
}

// read returns the content of path and whether it differs from the last content seen.
func (s *Syncer) read(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	hash := ContentHash(data)
	s.hashMu.Lock()
	defer s.hashMu.Unlock()
	if s.hashes[path] == hash {
		return data, false, nil
	}
	s.hashes[path] = hash
	return data, true, nil
}

func (s *Syncer) write(path string, data []byte) error {
	s.hashMu.Lock()
	s.hashes[path] = ContentHash(data)
	s.hashMu.Unlock()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
