package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// PruneResult summarizes one retention pass.
type PruneResult struct {
	// Size is the total size of the log files before the pass.
	Size int64

	// Freed is the number of bytes removed.
	Freed int64

	// Removed lists the deleted files, oldest first.
	Removed []string
}

// PruneLogFiles deletes the oldest hour bucket files in dir once their
// total size exceeds high, until it drops to low or below. The file at
// protect (normally the bucket being written) is never removed.
// Removal failures are collected and the pass continues.
func PruneLogFiles(ctx context.Context, dir string, high, low int64, protect string) (PruneResult, error) {
	files, err := ListLogFiles(dir)
	if err != nil {
		return PruneResult{}, err
	}

	var res PruneResult
	for _, f := range files {
		res.Size += f.Size
	}
	if res.Size <= high {
		return res, nil
	}

	cur := res.Size
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if cur <= low {
			break
		}
		if f.Path == protect {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		cur -= f.Size
		res.Freed += f.Size
		res.Removed = append(res.Removed, f.Path)
	}
	return res, errors.Join(errs...)
}
