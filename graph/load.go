package graph

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
)

// XSDString is the implicit datatype of plain literals.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

const rdfLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

// Load parses the Turtle file at path.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rdf file: %w", err)
	}
	defer f.Close()

	g, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Parse decodes Turtle from r into a new graph named name. Blank node ids are
// scoped to this call so that graphs parsed from different files can be
// stored together without their blank nodes merging.
func Parse(r io.Reader, name string) (*Graph, error) {
	g := New(name)
	scope := strings.ReplaceAll(uuid.New().String(), "-", "")

	dec := rdf.NewTripleDecoder(r, rdf.Turtle)
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse turtle %s: %w", name, err)
		}

		s, err := convertTerm(t.Subj, scope)
		if err != nil {
			return nil, fmt.Errorf("parse turtle %s: subject: %w", name, err)
		}
		o, err := convertTerm(t.Obj, scope)
		if err != nil {
			return nil, fmt.Errorf("parse turtle %s: object: %w", name, err)
		}
		g.Add(s, IRI(t.Pred.String()), o)
	}
	return g, nil
}

func convertTerm(term rdf.Term, scope string) (Term, error) {
	switch term.Type() {
	case rdf.TermIRI:
		return IRI(term.String()), nil
	case rdf.TermBlank:
		id := strings.TrimPrefix(term.String(), "_:")
		return Blank(scope + "x" + id), nil
	case rdf.TermLiteral:
		lit, ok := term.(rdf.Literal)
		if !ok {
			return Literal(term.String()), nil
		}
		if lang := lit.Lang(); lang != "" {
			return LangLiteral(lit.String(), lang), nil
		}
		dt := lit.DataType.String()
		if dt == "" || dt == XSDString || dt == rdfLangString {
			return Literal(lit.String()), nil
		}
		return TypedLiteral(lit.String(), dt), nil
	default:
		return Term{}, fmt.Errorf("unsupported term %q", term.String())
	}
}
