package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/drgo/bibaux"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file.aux>",
	Short: "Regenerate the sub-library whenever LaTeX rewrites the aux files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := genFlags.withConfig(cmd)
		return watch(cmd.Context(), args[0], g, cfg.GetDebounce(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	addGenerateFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

// watch runs g once and then again after every burst of changes to an .aux file
// in the directory of auxPath or of any local \@input file it read, until ctx is
// cancelled.
func watch(ctx context.Context, auxPath string, g generateFlags, debounce time.Duration, stdout, stderr io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]bool)
	addDir := func(dir string) error {
		if watched[dir] {
			return nil
		}
		// LaTeX replaces the aux file, so watch the directory rather than the file.
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("cannot watch %s: %w", dir, err)
		}
		watched[dir] = true
		logger.Info("watching", zap.String("dir", dir))
		return nil
	}
	abs, err := filepath.Abs(auxPath)
	if err != nil {
		return err
	}
	if err := addDir(filepath.Dir(abs)); err != nil {
		return err
	}

	regenerate := func() {
		res, err := g.generate(ctx, auxPath, stdout, stderr)
		if err != nil {
			logger.Warn("generation failed", zap.Error(err))
		}
		for _, dir := range auxDirs(res) {
			if err := addDir(dir); err != nil {
				logger.Warn("nested aux directory not watched", zap.Error(err))
			}
		}
	}
	regenerate()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".aux") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("aux file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			fire = time.After(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			regenerate()
		}
	}
}

// auxDirs returns the local directories holding the aux files res was built from.
func auxDirs(res *bibaux.AuxResult) []string {
	if res == nil {
		return nil
	}
	var dirs []string
	for _, URL := range res.AuxFiles() {
		if url.Scheme(URL, file.Scheme) != file.Scheme {
			continue
		}
		dirs = append(dirs, filepath.Dir(filepath.FromSlash(url.Path(URL))))
	}
	return dirs
}
