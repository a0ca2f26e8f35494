// Package inbox watches a drop directory for update batch files and hands
// each one to a handler exactly once.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lexikon/internal/storage"
)

// Subdirectories of the inbox that receive processed files.
const (
	DoneDir   = "done"
	FailedDir = "failed"
)

const debounce = 200 * time.Millisecond

// Handler processes one batch file. path is relative to the storage root.
// A nil error moves the file to done/, any other error to failed/.
type Handler func(ctx context.Context, path string, data []byte) error

// Drain processes every .json file currently in dir (relative to the
// storage root) in name order and returns how many it handled.
func Drain(ctx context.Context, store storage.Provider, dir string, logger *slog.Logger, handle Handler) (int, error) {
	metas, err := store.List(dir)
	if err != nil {
		return 0, fmt.Errorf("inbox: list: %w", err)
	}
	n := 0
	for _, m := range metas {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		process(ctx, store, dir, m.Path, logger, handle)
		n++
	}
	return n, nil
}

// Watch drains dir, then watches it with fsnotify until ctx is cancelled.
// Bursts of events are debounced so a file is read once it stops changing.
func Watch(ctx context.Context, store storage.Provider, dir string, logger *slog.Logger, handle Handler) error {
	abs, err := store.Abs(dir)
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(abs); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", abs, err)
	}
	logger.Info("inbox: started", slog.String("dir", abs))

	if _, err := Drain(ctx, store, dir, logger, handle); err != nil && ctx.Err() == nil {
		logger.Warn("inbox: initial drain failed", slog.String("error", err.Error()))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			names := make([]string, 0, len(pending))
			for p := range pending {
				names = append(names, p)
			}
			clear(pending)
			sort.Strings(names)
			for _, p := range names {
				process(ctx, store, dir, p, logger, handle)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
				continue
			}
			pending[path.Join(dir, name)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: error", slog.String("error", watchErr.Error()))
		}
	}
}

func process(ctx context.Context, store storage.Provider, dir, p string, logger *slog.Logger, handle Handler) {
	data, err := store.Read(p)
	if err != nil {
		// Already moved by an earlier event for the same file.
		logger.Debug("inbox: read failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}

	target := DoneDir
	if err := handle(ctx, p, data); err != nil {
		target = FailedDir
		logger.Warn("inbox: batch failed", slog.String("path", p), slog.String("error", err.Error()))
	} else {
		logger.Info("inbox: batch applied", slog.String("path", p))
	}

	dest := path.Join(dir, target, time.Now().UTC().Format("20060102T150405.000000000")+"-"+path.Base(p))
	if err := store.Move(p, dest); err != nil {
		logger.Error("inbox: move failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}
