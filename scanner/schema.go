package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semharvest/asset"
)

// SchemaIndexPattern matches the schema entry point of a directory tree.
const SchemaIndexPattern = "**/[iI][nN][dD][eE][xX].[tT][tT][lL]"

// SchemaScanner yields one path per index.ttl file below the root.
type SchemaScanner struct {
	opts   Options
	logger *slog.Logger
}

// NewSchemaScanner creates a schema scanner.
func NewSchemaScanner(opts Options) *SchemaScanner {
	return &SchemaScanner{opts: opts, logger: opts.logger().With("scanner", asset.TypeSchema)}
}

// Scan matches every index.ttl below root. Other Turtle files are ignored.
func (s *SchemaScanner) Scan(root string) (Result[asset.Path], error) {
	var res Result[asset.Path]

	dirs, err := Directories(root, s.opts.LatestVersionOnly)
	if err != nil {
		return res, err
	}
	allowed := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		allowed[filepath.Clean(d)] = true
	}

	matches, err := doublestar.Glob(os.DirFS(root), SchemaIndexPattern, doublestar.WithFilesOnly())
	if err != nil {
		return res, fmt.Errorf("glob schemas: %w", err)
	}
	for _, m := range matches {
		full := filepath.Join(root, filepath.FromSlash(m))
		if !allowed[filepath.Dir(full)] || hidden(m) {
			continue
		}
		res.Paths = append(res.Paths, asset.NewPath(full))
	}
	s.logger.Debug("Scanned schemas", "root", root, "paths", len(res.Paths))
	return res, nil
}

func hidden(slashPath string) bool {
	for _, part := range strings.Split(slashPath, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
