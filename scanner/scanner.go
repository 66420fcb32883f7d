// Package scanner discovers semantic assets in a cloned repository.
//
// Each asset type has its own scanner: ontologies are every Turtle file of a
// folder, controlled vocabularies are at most one Turtle and one CSV file per
// folder, and schemas are the index.ttl entry points of a directory tree.
package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/version"
)

// File extensions recognised by the scanners.
const (
	ExtTurtle = ".ttl"
	ExtCSV    = ".csv"
)

// ErrInvalidAssetFolder marks a folder holding more than one candidate file
// of a kind. It is an authoring error in the repository and must not be
// retried.
var ErrInvalidAssetFolder = errors.New("invalid asset folder")

// InvalidAssetFolderError names the folder and the extension in conflict.
type InvalidAssetFolderError struct {
	Folder     string
	Extension  string
	Candidates []string
}

func (e *InvalidAssetFolderError) Error() string {
	return fmt.Sprintf("invalid asset folder %s: %d %s files (%s)",
		e.Folder, len(e.Candidates), e.Extension, strings.Join(e.Candidates, ", "))
}

func (e *InvalidAssetFolderError) Unwrap() error { return ErrInvalidAssetFolder }

// Result is the outcome of scanning one asset type root.
type Result[P asset.SourcePath] struct {
	Paths []P
	// Invalid lists the folders skipped because of conflicting files.
	Invalid []*InvalidAssetFolderError
}

// Scanner discovers the paths of one asset type below root.
type Scanner[P asset.SourcePath] interface {
	Scan(root string) (Result[P], error)
}

// Options configure every scanner.
type Options struct {
	Skip *SkipList
	// LatestVersionOnly restricts harvesting to the greatest version when all
	// sibling directories are named as versions.
	LatestVersionOnly bool
	Logger            *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Directories returns root and every directory below it, depth first in
// name order. Hidden directories are skipped and, with latestOnly, so are
// superseded version directories.
func Directories(root string, latestOnly bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat asset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", root)
	}

	var dirs []string
	var walk func(dir string) error
	walk = func(dir string) error {
		dirs = append(dirs, dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory %s: %w", dir, err)
		}
		var children []string
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				children = append(children, e.Name())
			}
		}
		if latestOnly {
			children = latestVersionChildren(children)
		}
		for _, c := range children {
			if err := walk(filepath.Join(dir, c)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return dirs, nil
}

// latestVersionChildren keeps only the greatest version when every child is
// named as a version.
func latestVersionChildren(children []string) []string {
	if len(children) < 2 {
		return children
	}
	for _, c := range children {
		if v, err := version.Of(c); err != nil || v == nil {
			return children
		}
	}
	latest, _ := version.Latest(children)
	return []string{latest}
}

// filesWithExt lists the regular files of dir whose lower-cased name ends in
// ext and that survive the skip list, sorted by name.
func filesWithExt(dir, ext string, skip *SkipList) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ext) || skip.Skips(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
