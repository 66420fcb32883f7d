// Package asset defines the semantic asset data model shared by the scanner,
// extraction and storage layers.
package asset

import (
	"fmt"
	"strings"

	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// Type is the closed set of semantic asset kinds.
type Type string

const (
	TypeOntology             Type = "ontology"
	TypeControlledVocabulary Type = "controlled_vocabulary"
	TypeSchema               Type = "schema"
)

// Types returns every asset type in harvest order.
func Types() []Type {
	return []Type{TypeOntology, TypeControlledVocabulary, TypeSchema}
}

// ParseType parses an asset type name. Dashes are accepted in place of
// underscores.
func ParseType(s string) (Type, error) {
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch t {
	case TypeOntology, TypeControlledVocabulary, TypeSchema:
		return t, nil
	default:
		return "", fmt.Errorf("unknown asset type: %q", s)
	}
}

// MainClass returns the rdf:type IRI that marks the main resource of an
// asset of this type.
func (t Type) MainClass() string {
	switch t {
	case TypeOntology:
		return catalog.ClassOntology
	case TypeControlledVocabulary:
		return catalog.ClassConceptScheme
	case TypeSchema:
		return catalog.ClassDataset
	default:
		panic("asset: unknown type " + string(t))
	}
}

// Folder returns the conventional repository folder holding assets of this
// type.
func (t Type) Folder() string {
	switch t {
	case TypeOntology:
		return "assets/ontologies"
	case TypeControlledVocabulary:
		return "assets/controlled-vocabularies"
	case TypeSchema:
		return "assets/schemas"
	default:
		panic("asset: unknown type " + string(t))
	}
}

func (t Type) String() string { return string(t) }
