package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"fb2html/state"
)

// editors tend to produce several events per save
const watchSettle = 300 * time.Millisecond

// watchBook converts src and then converts it again every time it changes until ctx is done.
// Directory is watched rather than file so replacing file by rename is noticed.
func watchBook(ctx context.Context, src string, opts *convertOptions, env *state.LocalEnv, converted func(error)) error {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(src)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(src), err)
	}

	convert := func() {
		ok, enc, err := isBookFile(src)
		switch {
		case err != nil:
		case !ok:
			err = fmt.Errorf("not recognized as FB2 book (%s)", src)
		default:
			err = processFile(src, filepath.Base(src), enc, opts, env)
		}
		if err != nil {
			env.Log.Error("Unable to process file", zap.String("file", src), zap.Error(err))
		}
		if converted != nil {
			converted(err)
		}
	}
	convert()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != src || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			env.Log.Debug("Source changed", zap.Stringer("event", ev))
			if timer == nil {
				timer = time.NewTimer(watchSettle)
			} else {
				timer.Reset(watchSettle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			convert()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			env.Log.Warn("Watcher problem", zap.Error(err))
		}
	}
}

// Watch is "watch" command body.
func Watch(ctx *cli.Context) (err error) {

	const (
		errPrefix = "watch: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src := ctx.Args().Get(0)
	if len(src) == 0 {
		return cli.Exit(errors.New(errPrefix+"no input file has been specified"), errCode)
	}
	if src, err = filepath.Abs(src); err != nil {
		return cli.Exit(fmt.Errorf("%snormalizing source path failed: %w", errPrefix, err), errCode)
	}
	if fi, err := os.Stat(src); err != nil || !fi.Mode().IsRegular() {
		return cli.Exit(fmt.Errorf("%sinput must be existing file (%s)", errPrefix, src), errCode)
	}

	opts := &convertOptions{nodirs: true, overwrite: true}
	if opts.dst, err = prepareDestination(ctx, env); err != nil {
		return cli.Exit(fmt.Errorf("%snormalizing destination path failed: %w", errPrefix, err), errCode)
	}

	sctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()

	env.Log.Info("Watching", zap.String("source", src), zap.String("destination", opts.dst))
	if err := watchBook(sctx, src, opts, env, nil); err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}
	return nil
}
