// Package sizing measures what a cleanup would free on the local disk.
package sizing

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"
)

// Entry is the measurement of one selected path.
type Entry struct {
	Path   string
	Size   int64
	Files  int64
	Exists bool
}

// Report sums the entries. Paths selected more than once are measured once.
type Report struct {
	Entries    []Entry
	TotalSize  int64
	TotalFiles int64
	Missing    int
}

// MeasurePaths stats every path and walks directories. Unreadable entries
// below a directory are skipped; missing paths are counted, not reported as errors.
func MeasurePaths(ctx context.Context, paths []string) (Report, error) {
	var rep Report
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		if err := ctx.Err(); err != nil {
			return rep, err
		}
		e, err := measure(ctx, p)
		if err != nil {
			return rep, err
		}
		if !e.Exists {
			rep.Missing++
		}
		rep.TotalSize += e.Size
		rep.TotalFiles += e.Files
		rep.Entries = append(rep.Entries, e)
	}
	slices.SortFunc(rep.Entries, func(a, b Entry) int {
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		default:
			return 0
		}
	})
	return rep, nil
}

func measure(ctx context.Context, path string) (Entry, error) {
	e := Entry{Path: path}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			logrus.Debugf("sizing: skipping %s: %v", path, err)
			return e, nil
		}
		return e, err
	}
	e.Exists = true
	if !info.IsDir() {
		e.Size = info.Size()
		e.Files = 1
		return e, nil
	}

	var size, files atomic.Int64
	conf := fastwalk.DefaultConfig
	err = fastwalk.Walk(&conf, path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		size.Add(fi.Size())
		files.Add(1)
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return e, ctx.Err()
	}
	e.Size = size.Load()
	e.Files = files.Load()
	return e, nil
}
