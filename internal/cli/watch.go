package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchStore logs when the contact book file is created, removed or renamed
// by anyone while the shell runs. The returned function stops watching.
//
// The parent directory is watched since the file itself is replaced on every
// change.
func (a *App) watchStore(ctx context.Context) (func(), error) {
	path := a.svc.Path()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				switch {
				case event.Has(fsnotify.Remove):
					slog.WarnContext(ctx, "Contact book was removed", "path", path)
				case event.Has(fsnotify.Rename):
					slog.WarnContext(ctx, "Contact book was moved away", "path", path)
				case event.Has(fsnotify.Create):
					slog.DebugContext(ctx, "Contact book replaced", "path", path)
				case event.Has(fsnotify.Write):
					slog.DebugContext(ctx, "Contact book written", "path", path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching contact book", "err", err)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}
