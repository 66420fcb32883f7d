// Package export serializes harvested RDF graphs.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"
)

// defaultPrefixes returns the standard namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":      catalog.RDF,
		"rdfs":     catalog.RDFS,
		"owl":      catalog.OWL,
		"xsd":      catalog.XSD,
		"dct":      catalog.DCT,
		"dcat":     catalog.DCAT,
		"skos":     catalog.SKOS,
		"foaf":     catalog.FOAF,
		"vcard":    catalog.VCARD,
		"adms":     catalog.ADMS,
		"vann":     catalog.VANN,
		"ndc":      catalog.NDC,
		"admsapit": catalog.ADMSAPIT,
	}
}

// Export serializes g in the given format.
func Export(out io.Writer, g *graph.Graph, format Format) error {
	switch format {
	case FormatTurtle:
		return NewTurtleWriter().WriteGraph(out, g)
	case FormatNTriples:
		return NewNTriplesWriter(out).WriteGraph(g)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	w *bufio.Writer
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter(out io.Writer) *NTriplesWriter {
	return &NTriplesWriter{w: bufio.NewWriter(out)}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(t graph.Triple) error {
	_, err := fmt.Fprintf(w.w, "%s %s %s .\n", FormatTerm(t.S), FormatTerm(t.P), FormatTerm(t.O))
	return err
}

// WriteGraph writes every triple of g and flushes.
func (w *NTriplesWriter) WriteGraph(g *graph.Graph) error {
	for _, t := range g.Triples() {
		if err := w.WriteTriple(t); err != nil {
			return fmt.Errorf("write triple: %w", err)
		}
	}
	return w.w.Flush()
}

// NTriples renders g as an N-Triples document.
func NTriples(g *graph.Graph) string {
	var sb strings.Builder
	_ = NewNTriplesWriter(&sb).WriteGraph(g)
	return sb.String()
}

// ReadNTriples parses an N-Triples document into a graph named name. Blank
// node labels are kept as written so a document produced by NTriples reads
// back into an equal graph.
func ReadNTriples(r io.Reader, name string) (*graph.Graph, error) {
	g := graph.New(name)
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	for {
		t, err := dec.Decode()
		if err == io.EOF {
			return g, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse n-triples %s: %w", name, err)
		}
		g.Add(fromRDF(t.Subj), graph.IRI(t.Pred.String()), fromRDF(t.Obj))
	}
}

func fromRDF(term rdf.Term) graph.Term {
	switch term.Type() {
	case rdf.TermBlank:
		return graph.Blank(strings.TrimPrefix(term.String(), "_:"))
	case rdf.TermLiteral:
		lit, ok := term.(rdf.Literal)
		if !ok {
			return graph.Literal(term.String())
		}
		if lang := lit.Lang(); lang != "" {
			return graph.LangLiteral(lit.String(), lang)
		}
		if dt := lit.DataType.String(); dt != "" && dt != graph.XSDString && !strings.HasSuffix(dt, "#langString") {
			return graph.TypedLiteral(lit.String(), dt)
		}
		return graph.Literal(lit.String())
	default:
		return graph.IRI(term.String())
	}
}

// FormatTerm renders a term in N-Triples syntax.
func FormatTerm(t graph.Term) string {
	switch t.Kind {
	case graph.KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case graph.KindBlank:
		return "_:" + t.Value
	default:
		s := `"` + escapeString(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + escapeIRI(t.Datatype) + ">"
		}
		return s
	}
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

func escapeIRI(s string) string {
	r := strings.NewReplacer(">", "%3E", "<", "%3C", " ", "%20", `"`, "%22")
	return r.Replace(s)
}
