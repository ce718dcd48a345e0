// Package inbox watches a drop directory for CV files and ingests them as
// candidate profiles.
package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/extract"
	"github.com/talentmatch/talentmatch/internal/fileid"
	"github.com/talentmatch/talentmatch/internal/profile"
)

// Write events arrive in bursts while a file is still being copied in; the
// debounce waits for the burst to settle before parsing.
const defaultDebounce = 400 * time.Millisecond

// Ingester watches one directory and turns dropped CV files into indexed
// candidate profiles.
type Ingester struct {
	dir        string
	extensions []string
	extractor  *extract.Extractor
	parser     *profile.Parser
	engine     *engine.Engine
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for ingest events.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// WithDebounce overrides the settle delay before a dropped file is parsed.
func WithDebounce(d time.Duration) Option {
	return func(in *Ingester) { in.debounce = d }
}

// NewIngester creates an ingester for dir. extensions filter which files are
// picked up (empty = all).
func NewIngester(dir string, extensions []string, extractor *extract.Extractor, parser *profile.Parser, eng *engine.Engine, opts ...Option) *Ingester {
	in := &Ingester{
		dir:        dir,
		extensions: extensions,
		extractor:  extractor,
		parser:     parser,
		engine:     eng,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Start begins watching. Files already present in the directory are ingested
// once at startup; then the ingester runs until ctx is cancelled or Stop is
// called.
func (in *Ingester) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(in.dir, 0755); err != nil {
		in.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	if err := watcher.Add(in.dir); err != nil {
		_ = watcher.Close()
		in.mu.Unlock()
		return err
	}
	in.watcher = watcher
	in.started = true
	in.mu.Unlock()

	in.logger.Info("inbox watching", zap.String("dir", in.dir))
	in.sweep(ctx)
	go in.run(ctx)
	return nil
}

// sweep ingests files that were already in the directory before the watch
// began.
func (in *Ingester) sweep(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("inbox sweep failed", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(in.dir, entry.Name())
		if in.matchExtension(path) {
			in.ingest(ctx, path)
		}
	}
}

func (in *Ingester) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			in.handleEvent(ctx, ev)
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.logger.Debug("inbox watch error", zap.Error(err))
		}
	}
}

func (in *Ingester) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	path := ev.Name
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	if !in.matchExtension(path) {
		return
	}

	in.mu.Lock()
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	in.timers[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.timers, path)
		in.mu.Unlock()
		in.ingest(ctx, path)
	})
	in.mu.Unlock()
}

// ingest extracts, parses, and indexes one CV file. Failures are logged and
// the file is left in place for inspection.
func (in *Ingester) ingest(ctx context.Context, path string) {
	text, err := in.extractor.Extract(path)
	if err != nil {
		in.logger.Warn("inbox extraction failed", zap.String("path", path), zap.Error(err))
		return
	}
	p, err := in.parser.Parse(text, filepath.Base(path))
	if err != nil {
		in.logger.Warn("inbox parse failed", zap.String("path", path), zap.Error(err))
		return
	}
	// Path-derived ID so a re-dropped file updates the same profile.
	p.ID = fileid.CandidateID(path)
	if err := in.engine.UpsertCandidate(ctx, p); err != nil {
		in.logger.Warn("inbox ingest failed", zap.String("path", path), zap.String("id", p.ID), zap.Error(err))
		return
	}
	in.logger.Info("inbox ingested CV",
		zap.String("path", path),
		zap.String("id", p.ID),
		zap.String("name", p.PersonalInfo.Name),
		zap.Int("skills", len(p.Skills)))
}

func (in *Ingester) matchExtension(path string) bool {
	if len(in.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range in.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Stop halts the watch. Safe to call more than once.
func (in *Ingester) Stop() {
	in.stopOnce.Do(func() {
		in.mu.Lock()
		defer in.mu.Unlock()
		close(in.done)
		for _, t := range in.timers {
			t.Stop()
		}
		if in.watcher != nil {
			_ = in.watcher.Close()
		}
		in.started = false
	})
}
