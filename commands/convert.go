// Package commands has top level command drivers.
package commands

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"fb2html/archive"
	"fb2html/processor"
	"fb2html/state"
)

// options shared by all books of a single run.
type convertOptions struct {
	dst       string
	nodirs    bool
	overwrite bool
	cpage     encoding.Encoding
}

// processBook processes single FB2 file. "src" is part of the source path (always including file name) relative to the original
// path. When actual file was specified it will be just base file name without a path. When looking inside archive or directory
// it will be relative path inside archive or directory (including base file name).
func processBook(r io.Reader, enc srcEncoding, src string, opts *convertOptions, env *state.LocalEnv) (err error) {

	var fname, id string

	env.Log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			env.Log.Error("Conversion ended with panic", zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", fname), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("conversion of %s aborted", src)
		} else if err == nil {
			env.Log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", fname), zap.String("id", id))
		}
	}(time.Now())

	p, err := processor.NewFB2(selectReader(r, enc), enc == encUnknown, src, opts.dst, opts.nodirs, opts.overwrite, env)
	if err != nil {
		return err
	}
	id = p.Book.ID.String() // store for reference in the log

	if err = p.Process(); err != nil {
		return err
	}
	if fname, err = p.Save(); err != nil {
		return err
	}

	// store conversion result
	env.Rpt.Store(fmt.Sprintf("fb2html-%s/%s", id, filepath.Base(fname)), fname)
	return nil
}

// processFile opens and processes single book file.
func processFile(path, src string, enc srcEncoding, opts *convertOptions, env *state.LocalEnv) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return processBook(file, enc, src, opts, env)
}

// processDir walks directory tree finding fb2 files and archives and processes them.
func processDir(dir string, opts *convertOptions, env *state.LocalEnv) (err error) {

	count := 0
	defer func() {
		if err == nil && count == 0 {
			env.Log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			env.Log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		if ok, err := isArchiveFile(path); err != nil {
			// checking format - but cannot open target file
			env.Log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
		} else if ok {
			count++
			if err := processArchive(path, "", filepath.Dir(rel), opts, env); err != nil {
				env.Log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
		} else if ok, enc, err := isBookFile(path); err != nil {
			env.Log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
		} else if ok {
			count++
			if err := processFile(path, rel, enc, opts, env); err != nil {
				env.Log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			}
		} else {
			env.Log.Debug("Skipping file, not recognized as book or archive", zap.String("file", path))
		}
		return nil
	})
	return err
}

// processArchive walks all files inside archive, finds fb2 files under "pathIn" and processes them.
func processArchive(path, pathIn, pathOut string, opts *convertOptions, env *state.LocalEnv) (err error) {

	count := 0
	defer func() {
		if err == nil && count == 0 {
			env.Log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	return archive.Walk(path, filepath.ToSlash(pathIn), opts.cpage, func(arc, name string, f *zip.File) error {

		ok, enc, err := isBookInArchive(f)
		switch {
		case err != nil:
			env.Log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", name), zap.Error(err))
			return nil
		case !ok:
			env.Log.Debug("Skipping file, not recognized as book", zap.String("archive", arc), zap.String("file", name))
			return nil
		}

		count++
		// encoding will be handled properly by processBook
		r, err := f.Open()
		if err != nil {
			env.Log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processBook(r, enc, filepath.Join(pathOut, filepath.FromSlash(name)), opts, env); err != nil {
			env.Log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", name), zap.Error(err))
		}
		return nil
	})
}

// convertSource recognizes what source path points to and processes it.
func convertSource(src string, opts *convertOptions, env *state.LocalEnv) error {

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(head, opts, env); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			return nil
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		ok, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if ok {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(head, tail, "", opts, env); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		ok, enc, err := isBookFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if ok && len(tail) == 0 {
			// we have book, it cannot have tail
			if err := processFile(head, filepath.Base(head), enc, opts, env); err != nil {
				env.Log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			}
			return nil
		}
		return fmt.Errorf("input was not recognized as FB2 book (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// prepareDestination returns absolute destination path, current directory by default.
func prepareDestination(ctx *cli.Context, env *state.LocalEnv) (string, error) {
	dst := ctx.Args().Get(1)
	if len(dst) == 0 {
		return os.Getwd()
	}
	if ctx.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", ctx.Args().Slice()[2:]))
	}
	return filepath.Abs(dst)
}

// Convert is "convert" command body.
func Convert(ctx *cli.Context) (err error) {

	const (
		errPrefix = "convert: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src := ctx.Args().Get(0)
	if len(src) == 0 {
		return cli.Exit(errors.New(errPrefix+"no input source has been specified"), errCode)
	}
	if src, err = filepath.Abs(src); err != nil {
		return cli.Exit(fmt.Errorf("%snormalizing source path failed: %w", errPrefix, err), errCode)
	}

	opts := &convertOptions{
		nodirs:    ctx.Bool("nodirs"),
		overwrite: ctx.Bool("ow"),
	}
	if opts.dst, err = prepareDestination(ctx, env); err != nil {
		return cli.Exit(fmt.Errorf("%snormalizing destination path failed: %w", errPrefix, err), errCode)
	}

	if page := ctx.String("force-zip-cp"); len(page) > 0 {
		if opts.cpage, err = ianaindex.IANA.Encoding(page); err != nil || opts.cpage == nil {
			env.Log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", page), zap.Error(err))
			opts.cpage = nil
		} else {
			n, _ := ianaindex.IANA.Name(opts.cpage)
			env.Log.Debug("Forcefully convert all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	env.Log.Info("Processing starting", zap.String("source", src), zap.String("destination", opts.dst))
	defer func(start time.Time) {
		env.Log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := convertSource(src, opts, env); err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}
	return nil
}
