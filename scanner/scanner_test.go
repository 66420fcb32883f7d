package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) below a temp root.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("# test\n"), 0644))
	}
	return root
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestNewSkipList(t *testing.T) {
	_, err := NewSkipList([]string{"aligns", "ab"}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSkipWordTooShort))

	s, err := NewSkipList([]string{"Aligns", " example "}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"aligns", "example"}, s.Words())
	assert.True(t, s.Skips("CPV-ALIGNS.ttl"))
	assert.True(t, s.Skips("an-example.ttl"))
	assert.False(t, s.Skips("cpv.ttl"))

	var empty *SkipList
	assert.False(t, empty.Skips("anything"))
}

func TestOntologyScanFolder(t *testing.T) {
	root := writeTree(t,
		"CPV/cpv.ttl",
		"CPV/CPV-aligns.TTL",
		"CPV/cpv-extra.TTL",
		"CPV/readme.md",
		"CPV/cpv.csv",
	)
	skip, err := NewSkipList([]string{"aligns"}, 3)
	require.NoError(t, err)

	paths, err := NewOntologyScanner(Options{Skip: skip}).ScanFolder(filepath.Join(root, "CPV"))
	require.NoError(t, err)

	var files []string
	for _, p := range paths {
		files = append(files, p.RDFFile())
	}
	assert.Equal(t, []string{"CPV/cpv-extra.TTL", "CPV/cpv.ttl"}, rel(t, root, files))
}

func TestOntologyScanWalksTree(t *testing.T) {
	root := writeTree(t,
		"CPV/latest/cpv.ttl",
		"CLV/latest/clv.ttl",
		".git/objects/pack.ttl",
	)

	res, err := NewOntologyScanner(Options{}).Scan(root)
	require.NoError(t, err)
	var files []string
	for _, p := range res.Paths {
		files = append(files, p.RDFFile())
	}
	assert.Equal(t, []string{"CLV/latest/clv.ttl", "CPV/latest/cpv.ttl"}, rel(t, root, files))
}

func TestVocabularyScanFolder(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		wantRDF   string
		wantCSV   string
		wantPaths int
		wantExt   string
	}{
		{name: "rdf and csv", files: []string{"v/v.ttl", "v/v.csv"}, wantRDF: "v/v.ttl", wantCSV: "v/v.csv", wantPaths: 1},
		{name: "rdf only", files: []string{"v/v.ttl"}, wantRDF: "v/v.ttl", wantPaths: 1},
		{name: "csv only", files: []string{"v/v.csv"}, wantPaths: 0},
		{name: "empty", files: []string{"v/readme.md"}, wantPaths: 0},
		{name: "two rdf", files: []string{"v/a.ttl", "v/b.ttl"}, wantExt: ExtTurtle},
		{name: "two csv", files: []string{"v/a.ttl", "v/a.csv", "v/b.csv"}, wantExt: ExtCSV},
		{name: "skip word resolves conflict", files: []string{"v/a.ttl", "v/a-aligns.ttl"}, wantRDF: "v/a.ttl", wantPaths: 1},
	}

	skip, err := NewSkipList([]string{"aligns"}, 3)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, tt.files...)
			paths, err := NewVocabularyScanner(Options{Skip: skip}).ScanFolder(filepath.Join(root, "v"))

			if tt.wantExt != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAssetFolder))
				var invalid *InvalidAssetFolderError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, tt.wantExt, invalid.Extension)
				assert.Equal(t, filepath.Join(root, "v"), invalid.Folder)
				return
			}

			require.NoError(t, err)
			require.Len(t, paths, tt.wantPaths)
			if tt.wantPaths == 0 {
				return
			}
			assert.Equal(t, tt.wantRDF, rel(t, root, []string{paths[0].RDFFile()})[0])
			csv, ok := paths[0].CSVFile()
			if tt.wantCSV == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantCSV, rel(t, root, []string{csv})[0])
		})
	}
}

func TestVocabularyScanSkipsInvalidFolders(t *testing.T) {
	root := writeTree(t,
		"good/good.ttl",
		"good/good.csv",
		"bad/a.ttl",
		"bad/b.ttl",
	)

	res, err := NewVocabularyScanner(Options{}).Scan(root)
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "good/good.ttl", rel(t, root, []string{res.Paths[0].RDFFile()})[0])
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, filepath.Join(root, "bad"), res.Invalid[0].Folder)
}

func TestSchemaScan(t *testing.T) {
	root := writeTree(t,
		"person/index.ttl",
		"person/person.ttl",
		"address/v1/INDEX.TTL",
		"deep/a/b/Index.ttl",
		"notes/index.ttl.bak",
		".cache/index.ttl",
	)

	res, err := NewSchemaScanner(Options{}).Scan(root)
	require.NoError(t, err)

	var files []string
	for _, p := range res.Paths {
		files = append(files, p.RDFFile())
	}
	assert.ElementsMatch(t, []string{
		"person/index.ttl",
		"address/v1/INDEX.TTL",
		"deep/a/b/Index.ttl",
	}, rel(t, root, files))
}

func TestLatestVersionOnly(t *testing.T) {
	root := writeTree(t,
		"CPV/1.0/cpv.ttl",
		"CPV/1.2/cpv.ttl",
		"CPV/1.10/cpv.ttl",
		"CLV/latest/clv.ttl",
		"CLV/2.0/clv.ttl",
		"mixed/1.0/m.ttl",
		"mixed/docs/m.ttl",
	)

	scan := func(latestOnly bool) []string {
		res, err := NewOntologyScanner(Options{LatestVersionOnly: latestOnly}).Scan(root)
		require.NoError(t, err)
		var files []string
		for _, p := range res.Paths {
			files = append(files, p.RDFFile())
		}
		return rel(t, root, files)
	}

	assert.ElementsMatch(t, []string{
		"CPV/1.10/cpv.ttl",
		"CLV/latest/clv.ttl",
		"mixed/1.0/m.ttl",
		"mixed/docs/m.ttl",
	}, scan(true))
	assert.Len(t, scan(false), 7)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := NewOntologyScanner(Options{}).Scan(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidAssetFolder))
}
