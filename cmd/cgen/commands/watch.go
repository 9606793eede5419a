package commands

import (
	"context"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/cgen/errors"
	"github.com/teranos/cgen/logger"
)

// WatchCmd re-renders a manifest whenever it changes
var WatchCmd = &cobra.Command{
	Use:   "watch <manifest>",
	Short: "Re-render whenever the manifest changes",
	Long: `Render the manifest once, then watch it and write changed files after
every save. Errors in the manifest are reported and watching continues.
Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := newManifestWatcher(args[0], out, debounce)
		if err != nil {
			return err
		}
		defer w.Close()

		w.regenerate(ctx)
		pterm.Info.Printfln("Watching %s", args[0])
		w.run(ctx)
		return nil
	},
}

func init() {
	WatchCmd.Flags().StringP("out", "o", "", "Directory for generated files (default: the library directory)")
	WatchCmd.Flags().Duration("debounce", 300*time.Millisecond, "Quiet period before re-rendering after a change")
}

// manifestWatcher watches the directory holding a manifest so editors that
// save by rename are still seen.
type manifestWatcher struct {
	path     string
	out      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer

	// regenerated receives one value per finished regeneration when set.
	regenerated chan []string
}

func newManifestWatcher(path, out string, debounce time.Duration) (*manifestWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	return &manifestWatcher{
		path:     abs,
		out:      out,
		debounce: debounce,
		watcher:  fw,
		log:      logger.ChildLogger(logger.ComponentLogger("watch"), logger.FieldFile, abs),
	}, nil
}

func (w *manifestWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *manifestWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.log.Debugw("manifest changed", "op", event.Op.String())
			w.schedule(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watcher error", logger.FieldError, err)
		}
	}
}

func (w *manifestWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.regenerate(ctx) })
}

// regenerate rebuilds the library from scratch and writes changed files.
// Failures are reported, not returned: the next save gets another try.
func (w *manifestWatcher) regenerate(ctx context.Context) {
	written, err := w.render(ctx)
	if err != nil {
		pterm.Error.Printfln("%s: %v", filepath.Base(w.path), err)
		w.log.Warnw("regenerate failed", logger.FieldError, err)
	} else if len(written) > 0 {
		for _, name := range written {
			pterm.Success.Printfln("Wrote %s", name)
		}
	}
	if w.regenerated != nil {
		w.regenerated <- written
	}
}

func (w *manifestWatcher) render(ctx context.Context) ([]string, error) {
	p, err := openProject(w.path, false)
	if err != nil {
		return nil, err
	}
	if err := p.lib.Prepare(ctx); err != nil {
		return nil, err
	}
	out := w.out
	if out == "" {
		out = p.lib.Dir()
	}
	written, err := p.lib.WriteFiles(out)
	w.log.Infow("regenerated", logger.FieldDir, out, logger.FieldChanged, len(written))
	return written, err
}
