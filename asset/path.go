package asset

// SourcePath is the file set one asset is harvested from.
type SourcePath interface {
	// RDFFile is the Turtle file that describes the asset.
	RDFFile() string
	// Files lists every file the path is made of, RDF first.
	Files() []string
}

// Path locates an asset described by a single RDF file.
type Path struct {
	rdf string
}

// NewPath builds a Path for the given Turtle file.
func NewPath(rdfFile string) Path {
	return Path{rdf: rdfFile}
}

func (p Path) RDFFile() string { return p.rdf }
func (p Path) Files() []string { return []string{p.rdf} }
func (p Path) String() string { return p.rdf }

// CvPath locates a controlled vocabulary: its RDF file and, optionally, the
// flattened CSV rendering of its concepts.
type CvPath struct {
	Path
	csv string
}

// NewCvPath builds a CvPath. An empty csvFile means the vocabulary has no
// flattened rendering and only its metadata is harvested.
func NewCvPath(rdfFile, csvFile string) CvPath {
	return CvPath{Path: NewPath(rdfFile), csv: csvFile}
}

// CSVFile returns the CSV file and whether one is present.
func (p CvPath) CSVFile() (string, bool) {
	return p.csv, p.csv != ""
}

func (p CvPath) Files() []string {
	if p.csv == "" {
		return p.Path.Files()
	}
	return []string{p.rdf, p.csv}
}

func (p CvPath) String() string {
	if p.csv == "" {
		return p.rdf
	}
	return p.rdf + " + " + p.csv
}
