package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/easyyaml/pkg/adapters/file"
	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/tree"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	Render   RenderOptions
	Out      io.Writer
	Logger   *slog.Logger
}

// Watch renders the tree of a document and renders it again every time
// the file changes, until ctx is done. Parse errors are reported and the
// watcher keeps waiting for a fix.
func Watch(ctx context.Context, path string, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors replace files on save, so watch the directory.
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	opts.Logger.Info("Starting Watcher", "path", path)

	show := func() {
		if err := renderFile(path, opts); err != nil {
			opts.Logger.Error("Reload failed", "path", path, "err", err)
			printSystemMessage(opts.Out, "%v", err)
		}
		printSystemMessage(opts.Out, "Waiting for changes...")
	}
	show()

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			opts.Logger.Info("Stopping watcher")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			opts.Logger.Debug("Change detected", "event", ev.Op.String())
			timer.Reset(opts.Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Error("Watcher error", "err", err)
		case <-timer.C:
			printSystemMessage(opts.Out, "Change detected in '%s'.", path)
			show()
		}
	}
}

func renderFile(path string, opts WatchOptions) error {
	text, err := file.ReadDocument(path)
	if err != nil {
		return err
	}
	v, err := codec.Parse(text)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if v.IsNull() {
		v = domain.Mapping()
	}
	ro := opts.Render
	ro.Text = text
	if ro.Title == "" {
		ro.Title = filepath.Base(path)
	}
	return RenderTree(opts.Out, tree.FromValue(v), ro)
}
