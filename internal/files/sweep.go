package files

import (
	"context"
	"errors"
	"time"

	"echost/internal/apperr"
	"echost/internal/db"
	"echost/internal/storage"
)

// SweepResult lists what a sweep removed.
type SweepResult struct {
	RemovedObjects []string
	RemovedRows    []db.File
	Failures       int
}

// Sweep deletes stored objects that no existing user owns, then file rows
// whose owner is gone or whose object is missing. Individual failures are
// logged and counted; listing failures abort the sweep.
//
// An upload stores its object before the row is written, so the sweep must
// not run concurrently with a serving instance that accepts uploads.
func (g *Gateway) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	start := time.Now()
	lg := g.log().With("service", "cleanup")
	lg.InfoContext(ctx, "starting cleanup run")

	paths, err := g.Storage.List(ctx)
	if err != nil {
		return res, apperr.Storage("list objects", err)
	}
	for _, p := range paths {
		_, ok, err := g.Store.FindOwnerByPath(ctx, p)
		if err != nil {
			return res, err
		}
		if ok {
			continue
		}
		lg.InfoContext(ctx, "deleting orphaned object", "path", p)
		if err := g.Storage.Remove(ctx, p); err != nil {
			lg.WarnContext(ctx, "object delete failed", "path", p, "err", err)
			res.Failures++
			continue
		}
		res.RemovedObjects = append(res.RemovedObjects, p)
	}

	rows, err := g.Store.ListFiles(ctx)
	if err != nil {
		return res, err
	}
	for _, f := range rows {
		drop, err := g.danglingRow(ctx, f)
		if err != nil {
			lg.WarnContext(ctx, "row check failed", "owner", f.Owner, "path", f.Path, "err", err)
			res.Failures++
			continue
		}
		if !drop {
			continue
		}
		lg.InfoContext(ctx, "deleting dangling row", "owner", f.Owner, "filename", f.Filename, "path", f.Path)
		if err := g.Store.DeleteFile(ctx, f.Owner, f.Path); err != nil {
			lg.WarnContext(ctx, "row delete failed", "owner", f.Owner, "path", f.Path, "err", err)
			res.Failures++
			continue
		}
		res.RemovedRows = append(res.RemovedRows, f)
	}

	lg.InfoContext(ctx, "cleanup complete",
		"objects", len(res.RemovedObjects),
		"rows", len(res.RemovedRows),
		"failures", res.Failures,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (g *Gateway) danglingRow(ctx context.Context, f db.File) (bool, error) {
	_, ok, err := g.Store.FindOwnerByPath(ctx, f.Path)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	_, err = g.Storage.Stat(ctx, f.Path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, storage.ErrNotExist), errors.Is(err, storage.ErrInvalidPath):
		return true, nil
	default:
		return false, err
	}
}
