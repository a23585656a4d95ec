package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dgallion1/docatlas/internal/config"
	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/storage"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var out string
	var clean bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Extract every PDF created or modified in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := cfg.ExtractionOptions()
			if cmd.Flags().Changed("clean") {
				opts.ApplyBlockCleaning = clean
			}
			if out == "" {
				out = args[0]
			}

			log := newLogger(cmd)
			w, err := newWatcher(extraction.New(log, cfg.PipelineOptions()...), log, out, opts, settle)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.run(ctx, args[0])
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for <name>.json results (default: the watched directory)")
	cmd.Flags().BoolVar(&clean, "clean", false, "drop headers, footers and noise blocks before segmentation")
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "quiet period after the last write before a file is extracted")
	return cmd
}

// watcher extracts PDFs once they stop changing. Each path has at most one
// pending timer; further writes push it back by the settle period.
type watcher struct {
	pipeline *extraction.Pipeline
	log      *slog.Logger
	out      *storage.FileStore
	opts     extraction.Options
	settle   time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

func newWatcher(p *extraction.Pipeline, log *slog.Logger, outDir string, opts extraction.Options, settle time.Duration) (*watcher, error) {
	out, err := storage.NewFileStore(outDir)
	if err != nil {
		return nil, err
	}
	return &watcher{
		pipeline: p,
		log:      log,
		out:      out,
		opts:     opts,
		settle:   settle,
		timers:   make(map[string]*time.Timer),
	}, nil
}

func (w *watcher) run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching", "dir", dir, "out", w.out.Root())

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				w.stop()
				return nil
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".pdf") {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.schedule(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				w.stop()
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.process(path)
	})
	w.timers[path] = t
}

// stop cancels pending timers and waits for running extractions.
func (w *watcher) stop() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *watcher) process(path string) {
	log := w.log.With("path", path)
	payload, err := extractFile(w.pipeline, path, uuid.NewString(), w.opts)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	if err := w.out.Save(name, payload); err != nil {
		log.Error("write result failed", "error", err)
		return
	}
	log.Info("extracted", "result", filepath.Join(w.out.Root(), name))
}
