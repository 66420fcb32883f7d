package scanner

import (
	"log/slog"

	"github.com/c360studio/semharvest/asset"
)

// OntologyScanner yields one path per Turtle file.
type OntologyScanner struct {
	opts   Options
	logger *slog.Logger
}

// NewOntologyScanner creates an ontology scanner.
func NewOntologyScanner(opts Options) *OntologyScanner {
	return &OntologyScanner{opts: opts, logger: opts.logger().With("scanner", asset.TypeOntology)}
}

// ScanFolder returns one path per Turtle file directly inside dir.
func (s *OntologyScanner) ScanFolder(dir string) ([]asset.Path, error) {
	files, err := filesWithExt(dir, ExtTurtle, s.opts.Skip)
	if err != nil {
		return nil, err
	}
	paths := make([]asset.Path, 0, len(files))
	for _, f := range files {
		paths = append(paths, asset.NewPath(f))
	}
	return paths, nil
}

// Scan scans every folder below root.
func (s *OntologyScanner) Scan(root string) (Result[asset.Path], error) {
	var res Result[asset.Path]
	dirs, err := Directories(root, s.opts.LatestVersionOnly)
	if err != nil {
		return res, err
	}
	for _, dir := range dirs {
		paths, err := s.ScanFolder(dir)
		if err != nil {
			return res, err
		}
		res.Paths = append(res.Paths, paths...)
	}
	s.logger.Debug("Scanned ontologies", "root", root, "paths", len(res.Paths))
	return res, nil
}
