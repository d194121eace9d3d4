// Package scan walks directory trees and returns descriptors for the
// regular files found.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"

	"github.com/backmassage/spacesaver/internal/files"
)

// Logger receives entries skipped during the walk.
type Logger interface {
	Debug(verbose bool, format string, args ...interface{})
}

// Options controls a walk. The zero value walks everything.
type Options struct {
	// MaxDepth limits recursion; 0 is unlimited and 1 means only the root's
	// direct children.
	MaxDepth int
	// FollowLinks descends into symlinked directories and includes
	// symlinked files. Cycles are detected and skipped.
	FollowLinks bool
	// Exclude holds glob patterns matched against the slash-separated path
	// relative to the root and against the base name.
	Exclude []string
	// MinSize skips files smaller than this many bytes.
	MinSize int64

	Log     Logger
	Verbose bool
}

type walker struct {
	opts    Options
	exclude []glob.Glob
	seen    map[string]bool // resolved directories already walked
	out     []files.Descriptor
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Scan walks root and returns its regular files sorted by path. Entries
// that cannot be read are skipped; only a failure to read root itself is
// an error.
func Scan(ctx context.Context, root string, opts Options) ([]files.Descriptor, error) {
	ex, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	w := &walker{opts: opts, exclude: ex, seen: make(map[string]bool)}
	if !fi.IsDir() {
		w.addFile(root, fi)
		return w.out, nil
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		resolved = root
	}
	if err := w.walk(ctx, resolved, root, "", 0); err != nil {
		return nil, err
	}
	sort.Slice(w.out, func(i, j int) bool { return w.out[i].Path < w.out[j].Path })
	return w.out, nil
}

// ScanAll scans each root and merges the results. A failing root does not
// stop the others; all failures are returned together.
func ScanAll(ctx context.Context, roots []string, opts Options) ([]files.Descriptor, error) {
	var (
		all  []files.Descriptor
		errs *multierror.Error
	)
	seen := make(map[string]bool)
	for _, root := range roots {
		descs, err := Scan(ctx, root, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = multierror.Append(errs, fmt.Errorf("scanning %s: %w", root, err))
			continue
		}
		for _, d := range descs {
			if !seen[d.Path] {
				seen[d.Path] = true
				all = append(all, d)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all, errs.ErrorOrNil()
}

// walk visits the resolved directory realDir, reporting its entries under
// shownDir. rel0 and depth0 locate shownDir relative to the scan root.
func (w *walker) walk(ctx context.Context, realDir, shownDir, rel0 string, depth0 int) error {
	if w.seen[realDir] {
		w.debug("Skipping already visited directory %s", shownDir)
		return nil
	}

	return filepath.WalkDir(realDir, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if p == realDir {
				return err
			}
			w.debug("Skipping unreadable %s: %v", p, err)
			return nil
		}
		if p == realDir {
			w.seen[realDir] = true
			return nil
		}

		sub, rerr := filepath.Rel(realDir, p)
		if rerr != nil {
			return nil
		}
		shown := filepath.Join(shownDir, sub)
		sub = filepath.ToSlash(sub)
		rel := path.Join(rel0, sub)
		level := depth0 + strings.Count(sub, "/") + 1

		switch {
		case d.IsDir():
			if w.excluded(rel+"/", d.Name()) {
				return filepath.SkipDir
			}
			if w.seen[p] || (w.opts.MaxDepth > 0 && level >= w.opts.MaxDepth) {
				return filepath.SkipDir
			}
			w.seen[p] = true
			return nil

		case d.Type()&fs.ModeSymlink != 0:
			if !w.opts.FollowLinks || w.excluded(rel, d.Name()) {
				return nil
			}
			fi, err := os.Stat(p)
			if err != nil {
				w.debug("Skipping broken link %s: %v", shown, err)
				return nil
			}
			if !fi.IsDir() {
				w.addFile(shown, fi)
				return nil
			}
			if w.excluded(rel+"/", d.Name()) || (w.opts.MaxDepth > 0 && level >= w.opts.MaxDepth) {
				return nil
			}
			target, err := filepath.EvalSymlinks(p)
			if err != nil {
				w.debug("Skipping link %s: %v", shown, err)
				return nil
			}
			return w.walk(ctx, target, shown, rel, level)

		case d.Type().IsRegular():
			if w.excluded(rel, d.Name()) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				w.debug("Skipping %s: %v", shown, err)
				return nil
			}
			w.addFile(shown, fi)
		}
		return nil
	})
}

func (w *walker) excluded(rel, name string) bool {
	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}

func (w *walker) addFile(path string, fi fs.FileInfo) {
	if !fi.Mode().IsRegular() || fi.Size() < w.opts.MinSize {
		return
	}
	w.out = append(w.out, files.New(path, fi.Size(), fi.ModTime()))
}

func (w *walker) debug(format string, args ...interface{}) {
	if w.opts.Log != nil {
		w.opts.Log.Debug(w.opts.Verbose, format, args...)
	}
}
