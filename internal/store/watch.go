package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/qlog"
)

// debounceWindow coalesces the create/remove/write bursts an editor's
// save-as-rename produces into a single repair.
const debounceWindow = 200 * time.Millisecond

// Watch watches notes/ and mocs/ for filesystem changes and runs an
// incremental repair each time they settle, invoking onChange after
// each repair. This is an additive convenience above the synchronous
// SaveNote/repair path; the core operations remain synchronous and work
// identically whether or not a watch is running.
func (s *Store) Watch(ctx context.Context, onChange func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return qerrors.IoErr(s.Root, err)
	}
	defer w.Close()

	for _, dir := range []string{"notes", "mocs"} {
		path := filepath.Join(s.Root, dir)
		if err := w.Add(path); err != nil {
			qlog.L().Warn().Str("path", path).Err(err).Msg("watch: could not watch directory")
		}
	}

	var timer *time.Timer
	repair := func() {
		err := s.Index.IncrementalRepair()
		if onChange != nil {
			onChange(err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isRelevant(ev) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, repair)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			qlog.L().Warn().Err(err).Msg("watch: fsnotify error")
		}
	}
}

func isRelevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".md" {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
