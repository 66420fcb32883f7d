// Package graph holds the in-memory RDF model the harvester works on, the
// Turtle loader that fills it, and the publisher that announces harvested
// assets to the semstreams knowledge graph.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// RDFType is the rdf:type predicate.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Errors returned when locating the main resource of an asset.
var (
	ErrNoMainResource        = errors.New("no main resource of the asset class")
	ErrAmbiguousMainResource = errors.New("more than one main resource of the asset class")
)

// TermKind distinguishes the three RDF term kinds.
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// Term is an RDF term. It is comparable and can be used as a map key.
// Lang is set only on language-tagged literals; Datatype only on typed
// literals other than xsd:string.
type Term struct {
	Kind     TermKind
	Value    string
	Lang     string
	Datatype string
}

// IRI builds an IRI term.
func IRI(v string) Term { return Term{Kind: KindIRI, Value: v} }

// Blank builds a blank node term with the given local id.
func Blank(id string) Term { return Term{Kind: KindBlank, Value: id} }

// Literal builds a plain literal.
func Literal(v string) Term { return Term{Kind: KindLiteral, Value: v} }

// LangLiteral builds a language-tagged literal. Tags are lower-cased.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// TypedLiteral builds a typed literal.
func TypedLiteral(v, datatype string) Term {
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsNode reports whether t can be the subject of a triple.
func (t Term) IsNode() bool { return t.Kind == KindIRI || t.Kind == KindBlank }

func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		s := fmt.Sprintf("%q", t.Value)
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	}
}

// Triple is a single RDF statement.
type Triple struct {
	S Term
	P Term
	O Term
}

// Graph is an insertion-ordered set of triples indexed by subject.
type Graph struct {
	name      string
	triples   []Triple
	seen      map[Triple]struct{}
	bySubject map[Term][]int
}

// New creates an empty graph. The name identifies where the statements came
// from and is used in diagnostics only.
func New(name string) *Graph {
	return &Graph{
		name:      name,
		seen:      make(map[Triple]struct{}),
		bySubject: make(map[Term][]int),
	}
}

// Name returns the diagnostic name passed to New.
func (g *Graph) Name() string { return g.name }

// Len returns the number of distinct triples.
func (g *Graph) Len() int { return len(g.triples) }

// Add inserts a triple. Duplicates are ignored. It reports whether the
// triple was new.
func (g *Graph) Add(s, p, o Term) bool {
	t := Triple{S: s, P: p, O: o}
	if _, ok := g.seen[t]; ok {
		return false
	}
	g.seen[t] = struct{}{}
	g.bySubject[s] = append(g.bySubject[s], len(g.triples))
	g.triples = append(g.triples, t)
	return true
}

// Triples returns a copy of every triple in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Objects returns the objects of (s, predicate, ?) in insertion order.
func (g *Graph) Objects(s Term, predicate string) []Term {
	var out []Term
	for _, idx := range g.bySubject[s] {
		t := g.triples[idx]
		if t.P.Value == predicate {
			out = append(out, t.O)
		}
	}
	return out
}

// SubjectsOfType returns the distinct subjects declared as rdf:type class.
func (g *Graph) SubjectsOfType(class string) []Term {
	target := IRI(class)
	var out []Term
	seen := make(map[Term]struct{})
	for _, t := range g.triples {
		if t.P.Value != RDFType || t.O != target {
			continue
		}
		if _, ok := seen[t.S]; ok {
			continue
		}
		seen[t.S] = struct{}{}
		out = append(out, t.S)
	}
	return out
}

// Resource returns a view of term within g.
func (g *Graph) Resource(term Term) Resource {
	return Resource{graph: g, term: term}
}

// MainResource returns the single resource typed with class.
func (g *Graph) MainResource(class string) (Resource, error) {
	subjects := g.SubjectsOfType(class)
	switch len(subjects) {
	case 0:
		return Resource{}, fmt.Errorf("%w <%s> in %s", ErrNoMainResource, class, g.name)
	case 1:
		return g.Resource(subjects[0]), nil
	default:
		return Resource{}, fmt.Errorf("%w <%s> in %s (%d found)", ErrAmbiguousMainResource, class, g.name, len(subjects))
	}
}

// Resource is a node of a graph together with the graph it lives in.
type Resource struct {
	graph *Graph
	term  Term
}

// Term returns the node term.
func (r Resource) Term() Term { return r.term }

// Graph returns the graph r belongs to.
func (r Resource) Graph() *Graph { return r.graph }

// IRI returns the IRI of the resource, or "" for blank nodes.
func (r Resource) IRI() string {
	if r.term.IsIRI() {
		return r.term.Value
	}
	return ""
}

// Valid reports whether r refers to a node of a graph.
func (r Resource) Valid() bool {
	return r.graph != nil && r.term.IsNode()
}

// Objects returns the objects of predicate on r.
func (r Resource) Objects(predicate string) []Term {
	if r.graph == nil {
		return nil
	}
	return r.graph.Objects(r.term, predicate)
}

// Follow returns the node objects of predicate as resources.
func (r Resource) Follow(predicate string) []Resource {
	var out []Resource
	for _, o := range r.Objects(predicate) {
		if o.IsNode() {
			out = append(out, r.graph.Resource(o))
		}
	}
	return out
}

// Add inserts (r, predicate, object) into r's graph.
func (r Resource) Add(predicate string, object Term) {
	r.graph.Add(r.term, IRI(predicate), object)
}

func (r Resource) String() string {
	return r.term.String()
}
