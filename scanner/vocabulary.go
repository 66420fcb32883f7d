package scanner

import (
	"errors"
	"log/slog"

	"github.com/c360studio/semharvest/asset"
)

// VocabularyScanner yields at most one controlled vocabulary per folder.
type VocabularyScanner struct {
	opts   Options
	logger *slog.Logger
}

// NewVocabularyScanner creates a controlled vocabulary scanner.
func NewVocabularyScanner(opts Options) *VocabularyScanner {
	return &VocabularyScanner{opts: opts, logger: opts.logger().With("scanner", asset.TypeControlledVocabulary)}
}

// ScanFolder looks for one Turtle file and an optional CSV file in dir.
// More than one candidate of either kind is an *InvalidAssetFolderError. A
// folder without a Turtle file yields nothing.
func (s *VocabularyScanner) ScanFolder(dir string) ([]asset.CvPath, error) {
	ttl, err := filesWithExt(dir, ExtTurtle, s.opts.Skip)
	if err != nil {
		return nil, err
	}
	if len(ttl) > 1 {
		return nil, &InvalidAssetFolderError{Folder: dir, Extension: ExtTurtle, Candidates: ttl}
	}

	csv, err := filesWithExt(dir, ExtCSV, s.opts.Skip)
	if err != nil {
		return nil, err
	}
	if len(csv) > 1 {
		return nil, &InvalidAssetFolderError{Folder: dir, Extension: ExtCSV, Candidates: csv}
	}

	if len(ttl) == 0 {
		if len(csv) > 0 {
			s.logger.Warn("CSV without RDF description, folder ignored", "folder", dir, "csv", csv[0])
		}
		return nil, nil
	}

	if len(csv) == 0 {
		return []asset.CvPath{asset.NewCvPath(ttl[0], "")}, nil
	}
	return []asset.CvPath{asset.NewCvPath(ttl[0], csv[0])}, nil
}

// Scan scans every folder below root. Invalid folders are logged, reported
// in the result and skipped.
func (s *VocabularyScanner) Scan(root string) (Result[asset.CvPath], error) {
	var res Result[asset.CvPath]
	dirs, err := Directories(root, s.opts.LatestVersionOnly)
	if err != nil {
		return res, err
	}
	for _, dir := range dirs {
		paths, err := s.ScanFolder(dir)
		var invalid *InvalidAssetFolderError
		if errors.As(err, &invalid) {
			s.logger.Error("Invalid asset folder skipped",
				"folder", invalid.Folder,
				"extension", invalid.Extension,
				"candidates", invalid.Candidates)
			res.Invalid = append(res.Invalid, invalid)
			continue
		}
		if err != nil {
			return res, err
		}
		res.Paths = append(res.Paths, paths...)
	}
	s.logger.Debug("Scanned controlled vocabularies", "root", root, "paths", len(res.Paths), "invalid", len(res.Invalid))
	return res, nil
}
