package asset

import (
	"sort"
	"strings"
	"time"
)

// NodeSummary is a linked resource reduced to its IRI and a display label.
type NodeSummary struct {
	IRI     string `json:"iri"`
	Summary string `json:"summary"`
}

// RightsHolder identifies the agent holding rights over an asset.
type RightsHolder struct {
	ID    string            `json:"id"`
	IRI   string            `json:"iri,omitempty"`
	Names map[string]string `json:"names,omitempty"`
}

// Summary reduces the rights holder to a NodeSummary, preferring the Italian
// name, then English, then any.
func (r RightsHolder) Summary() NodeSummary {
	return NodeSummary{IRI: r.IRI, Summary: r.Name()}
}

// Name returns the preferred name of the rights holder.
func (r RightsHolder) Name() string {
	for _, lang := range []string{"it", "en", ""} {
		if n, ok := r.Names[lang]; ok {
			return n
		}
	}
	langs := make([]string, 0, len(r.Names))
	for lang := range r.Names {
		langs = append(langs, lang)
	}
	if len(langs) == 0 {
		return ""
	}
	sort.Strings(langs)
	return r.Names[langs[len(langs)-1]]
}

// Maintainer is a contact point responsible for an asset.
type Maintainer struct {
	IRI   string `json:"iri,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Distribution is one published rendering of an asset.
type Distribution struct {
	AccessURL   string `json:"access_url"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Metadata is the search-indexable projection of one semantic asset.
// Identity is the IRI.
type Metadata struct {
	IRI            string      `json:"iri"`
	Type           Type        `json:"type"`
	RepoURL        string      `json:"repo_url"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Keywords       []string    `json:"keywords,omitempty"`
	Status         []string    `json:"status,omitempty"`
	Modified       time.Time   `json:"modified"`
	Issued         *time.Time  `json:"issued,omitempty"`
	Themes         []string    `json:"themes"`
	RightsHolder   NodeSummary `json:"rights_holder"`
	RightsHolderID string      `json:"rights_holder_id"`

	Distributions []Distribution `json:"distributions,omitempty"`
	Subjects      []string       `json:"subjects,omitempty"`
	ContactPoint  *NodeSummary   `json:"contact_point,omitempty"`
	Publishers    []NodeSummary  `json:"publishers,omitempty"`
	Creators      []NodeSummary  `json:"creators,omitempty"`
	VersionInfo   string         `json:"version_info,omitempty"`
	Languages     []string       `json:"languages,omitempty"`
	Temporal      string         `json:"temporal,omitempty"`
	ConformsTo    []NodeSummary  `json:"conforms_to,omitempty"`

	// Controlled vocabulary fields.
	KeyConcept  string `json:"key_concept,omitempty"`
	AgencyID    string `json:"agency_id,omitempty"`
	AgencyLabel string `json:"agency_label,omitempty"`
	EndpointURL string `json:"endpoint_url,omitempty"`

	// Ontology and schema fields.
	Prefix     string        `json:"prefix,omitempty"`
	KeyClasses []NodeSummary `json:"key_classes,omitempty"`
	Projects   []NodeSummary `json:"projects,omitempty"`
}

// VocabularyID returns the identifier of the flattened collection of a
// controlled vocabulary.
func (m Metadata) VocabularyID() VocabularyIdentifier {
	return VocabularyIdentifier{RightsHolderID: m.AgencyID, KeyConcept: m.KeyConcept}
}

// VocabularyIdentifier names a flattened controlled vocabulary. Equality is
// case-sensitive; the derived collection key is not.
type VocabularyIdentifier struct {
	RightsHolderID string `json:"rights_holder_id"`
	KeyConcept     string `json:"key_concept"`
}

// Key returns the collection name: the lower-cased, dot-joined pair.
func (v VocabularyIdentifier) Key() string {
	return strings.ToLower(v.RightsHolderID + "." + v.KeyConcept)
}

func (v VocabularyIdentifier) String() string {
	return v.Key()
}

// Valid reports whether both components are set.
func (v VocabularyIdentifier) Valid() bool {
	return v.RightsHolderID != "" && v.KeyConcept != ""
}
