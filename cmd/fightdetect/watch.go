package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swdee/go-fightdetect"
	"github.com/swdee/go-fightdetect/detect"
)

// settleInterval is how often a new file's size is checked while it is
// still being copied into the inbox
const settleInterval = 500 * time.Millisecond

// videoExts are the file extensions picked up from the inbox
var videoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mkv": true, ".mov": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".webm": true,
}

// isVideo reports whether a file name looks like a video
func isVideo(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

// outputFor returns the output directory of a video, named after the video
// file without its extension
func outputFor(outDir, path string) string {
	base := filepath.Base(path)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// watch processes every video already in the inbox directory and then every
// video created in it, one at a time, until ctx is cancelled
func watch(ctx context.Context, model detect.Detector, inbox, outDir string,
	opts fightdetect.Options) error {

	watcher, err := fsnotify.NewWatcher()

	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	defer watcher.Close()

	if err := watcher.Add(inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inbox, err)
	}

	existing, err := pending(inbox)

	if err != nil {
		return err
	}

	// paths queued from events while a video was being processed
	queue := existing
	done := make(map[string]bool)

	slog.Info("Watching inbox", "path", inbox, "pending", len(queue))

	for {
		for len(queue) > 0 {
			path := queue[0]
			queue = queue[1:]

			if done[path] {
				continue
			}

			done[path] = true

			if err := settle(ctx, path); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("Skipping inbox file", "path", path, "error", err)
				continue
			}

			err := analyse(ctx, model, path, outputFor(outDir, path), opts)

			if ctx.Err() != nil {
				return ctx.Err()
			}

			var wrErr *fightdetect.WriteError

			if errors.As(err, &wrErr) {
				// the output directory will not get better for the next video
				return err
			}

			queue = append(queue, drain(watcher)...)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create == fsnotify.Create && isVideo(event.Name) {
				queue = append(queue, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Inbox watch error", "error", err)
		}
	}
}

// drain returns the videos created while the watcher was not being read
func drain(watcher *fsnotify.Watcher) []string {

	var out []string

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return out
			}
			if event.Op&fsnotify.Create == fsnotify.Create && isVideo(event.Name) {
				out = append(out, event.Name)
			}

		default:
			return out
		}
	}
}

// pending returns the videos in the inbox, oldest first
func pending(inbox string) ([]string, error) {

	entries, err := os.ReadDir(inbox)

	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	type file struct {
		path string
		mod  time.Time
	}

	var files []file

	for _, e := range entries {
		if e.IsDir() || !isVideo(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		files = append(files, file{path: filepath.Join(inbox, e.Name()), mod: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].path < files[j].path
		}
		return files[i].mod.Before(files[j].mod)
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}

	return out, nil
}

// settle waits until the size of a file stops changing
func settle(ctx context.Context, path string) error {

	var last int64 = -1

	ticker := time.NewTicker(settleInterval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)

		if err != nil {
			return err
		}

		if info.Size() > 0 && info.Size() == last {
			return nil
		}

		last = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
