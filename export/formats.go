package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/semharvest/graph"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for name, info := range FormatRegistry {
		if s == string(name) || s == info.Extension || s == strings.TrimPrefix(info.Extension, ".") {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// TurtleWriter writes a graph in Turtle, grouping statements by subject and
// abbreviating IRIs with the registered prefixes.
type TurtleWriter struct {
	prefixes map[string]string
}

// NewTurtleWriter creates a Turtle writer with the catalogue prefixes.
func NewTurtleWriter() *TurtleWriter {
	return &TurtleWriter{prefixes: defaultPrefixes()}
}

// SetPrefix registers or replaces a prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WriteGraph serializes g to out.
func (w *TurtleWriter) WriteGraph(out io.Writer, g *graph.Graph) error {
	var sb strings.Builder

	names := make([]string, 0, len(w.prefixes))
	for p := range w.prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", p, w.prefixes[p])
	}

	var (
		subject graph.Term
		open    bool
	)
	for _, t := range g.Triples() {
		switch {
		case open && t.S == subject:
			sb.WriteString(" ;\n    ")
		default:
			if open {
				sb.WriteString(" .\n")
			}
			sb.WriteString("\n")
			sb.WriteString(w.term(t.S))
			sb.WriteString("\n    ")
			subject, open = t.S, true
		}
		if t.P.Value == graph.RDFType {
			sb.WriteString("a")
		} else {
			sb.WriteString(w.term(t.P))
		}
		sb.WriteString(" ")
		sb.WriteString(w.term(t.O))
	}
	if open {
		sb.WriteString(" .\n")
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func (w *TurtleWriter) term(t graph.Term) string {
	if t.IsIRI() {
		for p, ns := range w.prefixes {
			local, ok := strings.CutPrefix(t.Value, ns)
			if ok && isPrefixedLocal(local) {
				return p + ":" + local
			}
		}
		return "<" + t.Value + ">"
	}
	if t.IsLiteral() && t.Datatype != "" {
		return `"` + escapeString(t.Value) + `"^^` + w.term(graph.IRI(t.Datatype))
	}
	return FormatTerm(t)
}

// isPrefixedLocal reports whether local can be written as a prefixed name
// without escaping.
func isPrefixedLocal(local string) bool {
	if local == "" {
		return false
	}
	for i, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case (r >= '0' && r <= '9') || r == '-':
			if i == 0 && r == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}
