// Package extract reads typed values out of an RDF resource with language
// preference and required/optional semantics.
//
// Every extractor returns its result together with a validation.Report that
// holds only the issues raised by that call. Callers merge the reports they
// receive, so extraction never mutates shared state.
package extract

import (
	"errors"
	"fmt"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/validation"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// ErrInvalidModel marks a resource that lacks required structure.
var ErrInvalidModel = errors.New("invalid model")

// MsgCannotFindProperty is the validation message recorded for a property
// that has no acceptable value.
const MsgCannotFindProperty = "cannot find property"

// PropertyError reports a property with no acceptable value on a resource.
type PropertyError struct {
	Resource string
	Property string
	Reason   string
}

func (e *PropertyError) Error() string {
	msg := fmt.Sprintf("%s <%s> on %s", MsgCannotFindProperty, e.Property, e.Resource)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PropertyError) Unwrap() error { return ErrInvalidModel }

func missing(res graph.Resource, property, reason string) *PropertyError {
	return &PropertyError{Resource: res.String(), Property: property, Reason: reason}
}

// preferredLanguages are the tags accepted by Literal. Untagged literals are
// represented by the empty tag.
var preferredLanguages = map[string]bool{"it": true, "en": true, "": true}

// pickLiteral returns the literal with the lexicographically greatest tag
// among it, en and untagged. Ties keep the first value seen.
func pickLiteral(objects []graph.Term) (string, bool) {
	var (
		best  graph.Term
		found bool
	)
	for _, o := range objects {
		if !o.IsLiteral() || !preferredLanguages[o.Lang] {
			continue
		}
		if !found || o.Lang > best.Lang {
			best = o
			found = true
		}
	}
	return best.Value, found
}

// Literal returns the preferred literal of property. A miss is recorded as
// an error and returned.
func Literal(res graph.Resource, property string) (string, validation.Report, error) {
	if v, ok := pickLiteral(res.Objects(property)); ok {
		return v, validation.Empty(), nil
	}
	err := missing(res, property, "no literal tagged it, en or untagged")
	return "", validation.Empty().WithError(property, MsgCannotFindProperty, err), err
}

// OptionalLiteral is Literal with a miss downgraded to a warning.
func OptionalLiteral(res graph.Resource, property string) (string, validation.Report) {
	if v, ok := pickLiteral(res.Objects(property)); ok {
		return v, validation.Empty()
	}
	err := missing(res, property, "")
	return "", validation.Empty().WithWarning(property, MsgCannotFindProperty, err)
}

// Literals returns every literal value of property regardless of language.
func Literals(res graph.Resource, property string) []string {
	var out []string
	for _, o := range res.Objects(property) {
		if o.IsLiteral() {
			out = append(out, o.Value)
		}
	}
	return out
}

// LiteralsByLanguage maps language tag to value for property. Untagged
// values use the empty key. The first value per tag wins.
func LiteralsByLanguage(res graph.Resource, property string) map[string]string {
	out := make(map[string]string)
	for _, o := range res.Objects(property) {
		if !o.IsLiteral() {
			continue
		}
		if _, ok := out[o.Lang]; !ok {
			out[o.Lang] = o.Value
		}
	}
	return out
}

// Nodes returns the node objects of property. No node at all is recorded as
// an error and returned.
func Nodes(res graph.Resource, property string) ([]graph.Resource, validation.Report, error) {
	nodes := res.Follow(property)
	if len(nodes) > 0 {
		return nodes, validation.Empty(), nil
	}
	err := missing(res, property, "no resource value")
	return nil, validation.Empty().WithError(property, MsgCannotFindProperty, err), err
}

// OptionalNodes is Nodes with a miss downgraded to a warning.
func OptionalNodes(res graph.Resource, property string) ([]graph.Resource, validation.Report) {
	nodes := res.Follow(property)
	if len(nodes) > 0 {
		return nodes, validation.Empty()
	}
	return nil, validation.Empty().WithWarning(property, MsgCannotFindProperty, missing(res, property, ""))
}

// Node returns the first node object of property.
func Node(res graph.Resource, property string) (graph.Resource, validation.Report, error) {
	nodes, report, err := Nodes(res, property)
	if err != nil {
		return graph.Resource{}, report, err
	}
	return nodes[0], report, nil
}

// MaybeNodes returns the node objects of property. It never fails; literal
// values and absent properties yield an empty list.
func MaybeNodes(res graph.Resource, property string) []graph.Resource {
	return res.Follow(property)
}

// IRIs returns the IRIs of the node objects of property, skipping blank
// nodes.
func IRIs(res graph.Resource, property string) []string {
	var out []string
	for _, n := range res.Follow(property) {
		if iri := n.IRI(); iri != "" {
			out = append(out, iri)
		}
	}
	return out
}

// summaryOf builds the NodeSummary of node from the first summary property
// that yields a preferred literal.
func summaryOf(node graph.Resource, summaryProps []string) (asset.NodeSummary, bool) {
	for _, p := range summaryProps {
		if v, ok := pickLiteral(node.Objects(p)); ok {
			return asset.NodeSummary{IRI: node.IRI(), Summary: v}, true
		}
	}
	return asset.NodeSummary{}, false
}

// NodeSummaries returns the summaries of the nodes referenced by property,
// labelled by the first of summaryProps present on each node. Nodes without
// a label are skipped; when no node carries one the miss is recorded as an
// error and returned.
func NodeSummaries(res graph.Resource, property string, summaryProps ...string) ([]asset.NodeSummary, validation.Report, error) {
	out := nodeSummaries(res, property, summaryProps)
	if len(out) > 0 {
		return out, validation.Empty(), nil
	}
	err := missing(res, property, "no referenced resource with a summary")
	return nil, validation.Empty().WithError(property, MsgCannotFindProperty, err), err
}

// OptionalNodeSummaries is NodeSummaries with a miss downgraded to a
// warning.
func OptionalNodeSummaries(res graph.Resource, property string, summaryProps ...string) ([]asset.NodeSummary, validation.Report) {
	out := nodeSummaries(res, property, summaryProps)
	if len(out) > 0 {
		return out, validation.Empty()
	}
	return nil, validation.Empty().WithWarning(property, MsgCannotFindProperty, missing(res, property, ""))
}

func nodeSummaries(res graph.Resource, property string, summaryProps []string) []asset.NodeSummary {
	if len(summaryProps) == 0 {
		summaryProps = DefaultSummaryProperties
	}
	var out []asset.NodeSummary
	for _, n := range res.Follow(property) {
		if s, ok := summaryOf(n, summaryProps); ok {
			out = append(out, s)
		}
	}
	return out
}

// DefaultSummaryProperties label referenced agents, concepts and classes.
var DefaultSummaryProperties = []string{
	catalog.PropFoafName,
	catalog.PropVCardFn,
	catalog.PropSkosPrefLabel,
	catalog.PropRdfsLabel,
	catalog.PropTitle,
}

// RightsHolder resolves the rights holder of res. Both the dct:rightsHolder
// reference and its dct:identifier are required; a miss is recorded as an
// error and returned.
func RightsHolder(res graph.Resource) (asset.RightsHolder, validation.Report, error) {
	holders := res.Follow(catalog.PropRightsHolder)
	if len(holders) == 0 {
		err := missing(res, catalog.PropRightsHolder, "no rights holder")
		return asset.RightsHolder{}, validation.Empty().WithError(catalog.PropRightsHolder, MsgCannotFindProperty, err), err
	}
	holder := holders[0]

	id, ok := pickLiteral(holder.Objects(catalog.PropIdentifier))
	if !ok {
		if ids := Literals(holder, catalog.PropIdentifier); len(ids) > 0 {
			id, ok = ids[0], true
		}
	}
	if !ok {
		err := missing(holder, catalog.PropIdentifier, "rights holder has no identifier")
		return asset.RightsHolder{}, validation.Empty().WithError(catalog.PropIdentifier, MsgCannotFindProperty, err), err
	}

	names := LiteralsByLanguage(holder, catalog.PropFoafName)
	if len(names) == 0 {
		names = LiteralsByLanguage(holder, catalog.PropSkosPrefLabel)
	}

	return asset.RightsHolder{ID: id, IRI: holder.IRI(), Names: names}, validation.Empty(), nil
}
