package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/storage"
)

// ChangeFunc is called after each watcher-driven index mutation.
type ChangeFunc func(models.VaultChange)

// Watcher keeps the index in step with the vault directory.
type Watcher struct {
	db       NoteIndex
	store    storage.Provider
	logger   *slog.Logger
	onChange ChangeFunc
	debounce time.Duration
	now      func() time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithChangeFunc registers a callback for index mutations.
func WithChangeFunc(fn ChangeFunc) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// WithDebounce sets the rename reconciliation delay (default 200ms).
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over store's root.
func NewWatcher(db NoteIndex, store storage.Provider, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		db:       db,
		store:    store,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes fsnotify events until ctx is cancelled.
//
// New directories are added to the watch list as they appear. fsnotify only
// reports the old path of a rename, so renames delete the old entry and
// schedule a debounced reconciliation that indexes whatever appeared.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", root))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(w.debounce)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev, scheduleReconcile)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, scheduleReconcile func()) {
	root := w.store.Root()

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if isHidden(info.Name()) {
				return
			}
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			w.indexNewDir(ev.Name)
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		return
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if hasHiddenSegment(rel) {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := models.ChangeModify
		if ev.Op&fsnotify.Create != 0 {
			kind = models.ChangeCreate
		}
		w.index(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		w.remove(rel)
		scheduleReconcile()
	}
}

func (w *Watcher) index(rel string, kind models.ChangeType) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := IndexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", string(kind)))
	w.emit(kind, rel)
}

func (w *Watcher) remove(rel string) {
	if err := w.db.DeleteNote(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(models.ChangeDelete, rel)
}

func (w *Watcher) emit(kind models.ChangeType, rel string) {
	if w.onChange == nil {
		return
	}
	w.onChange(models.VaultChange{
		Type:      kind,
		Filename:  models.Filename(rel),
		Path:      rel,
		Timestamp: w.now(),
	})
}

// reconcile removes index entries without a file on disk and indexes files
// whose checksum differs from the index.
func (w *Watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		old, known := checksums[p]
		if old == cs {
			continue
		}
		kind := models.ChangeModify
		if !known {
			kind = models.ChangeCreate
		}
		w.index(p, kind)
	}
}

// indexNewDir indexes any .md files found in a newly created directory.
func (w *Watcher) indexNewDir(dir string) {
	root := w.store.Root()
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		w.index(filepath.ToSlash(rel), models.ChangeCreate)
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if isHidden(seg) {
			return true
		}
	}
	return false
}
