package harvest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/scanner"
)

// typeHarvester is the type-erased view of a variant the harvester loops
// over.
type typeHarvester interface {
	assetType() asset.Type
	cleanup(ctx context.Context, ec *ExecutionContext)
	harvest(ctx context.Context, ec *ExecutionContext, root string) error
}

// variant binds an asset type to its scanner and path processor.
type variant[P asset.SourcePath] struct {
	typ     asset.Type
	h       *Harvester
	scanner scanner.Scanner[P]
	process func(context.Context, *ExecutionContext, P) (PathStats, error)
	// clean runs before the repository's previous data is deleted.
	clean func(context.Context, *ExecutionContext)
}

func (v variant[P]) assetType() asset.Type { return v.typ }

func (v variant[P]) cleanup(ctx context.Context, ec *ExecutionContext) {
	if v.clean != nil {
		v.clean(ctx, ec)
	}
}

func (v variant[P]) harvest(ctx context.Context, ec *ExecutionContext, root string) error {
	return runVariant(ctx, v.h, ec, root, v)
}

// runVariant scans the type root once and processes every discovered path
// in order. Path failures are recorded on ec and never stop the loop; only
// a failed scan or a cancelled context ends it early.
func runVariant[P asset.SourcePath](ctx context.Context, h *Harvester, ec *ExecutionContext, root string, v variant[P]) error {
	logger := h.logger.With("run_id", ec.RunID, "type", v.typ)

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No assets of type in repository", "root", root)
		return nil
	}

	res, err := v.scanner.Scan(root)
	if err != nil {
		scanErr := &PathError{Type: v.typ, Path: root, Fatal: true, Err: fmt.Errorf("scan: %w", err)}
		ec.AddFailure(scanErr)
		logger.Error("Scan failed", "root", root, "error", err)
		return nil
	}
	for _, invalid := range res.Invalid {
		ec.addFailedPath(&PathError{
			Type:  v.typ,
			Path:  invalid.Folder,
			Files: invalid.Candidates,
			Fatal: true,
			Err:   invalid,
		})
		h.metrics.AssetProcessed(string(v.typ), false)
	}

	logger.Info("Processing paths", "root", root, "paths", len(res.Paths))
	for _, path := range res.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		h.checkSize(ctx, ec, path)

		stats, err := v.process(ctx, ec, path)
		if err != nil {
			var pathErr *PathError
			if !errors.As(err, &pathErr) {
				pathErr = pathFailure(v.typ, path, true, err)
			}
			ec.addFailedPath(pathErr)
			h.metrics.AssetProcessed(string(v.typ), false)
			logger.Error("Path processing failed",
				"path", path.RDFFile(),
				"fatal", pathErr.Fatal,
				"cause", RootCause(pathErr.Err))
			continue
		}

		ec.addAsset(AssetRef{
			Type:       v.typ,
			IRI:        stats.IRI,
			Path:       path.RDFFile(),
			Validation: stats.Validation,
			Records:    stats.Records,
		})
		h.metrics.AssetProcessed(string(v.typ), true)
	}
	return nil
}
