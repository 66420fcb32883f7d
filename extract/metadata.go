package extract

import (
	"errors"
	"strings"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/validation"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// Result is everything extracted from the main resource of one asset.
type Result struct {
	Metadata     asset.Metadata
	RightsHolder asset.RightsHolder
	Maintainers  []asset.Maintainer
}

// AssetMetadata extracts the indexable metadata of an asset from its main
// resource. Title, description, modification date, themes and the rights
// holder are required for every type, plus the key concept for controlled
// vocabularies. Extraction continues past a failed required field so the
// report lists every problem; the returned error joins the failures.
func AssetMetadata(res graph.Resource, t asset.Type, repoURL string) (Result, validation.Report, error) {
	x := &collector{report: validation.Empty()}

	m := asset.Metadata{
		IRI:     res.IRI(),
		Type:    t,
		RepoURL: repoURL,
	}

	m.Title = x.required(Literal(res, catalog.PropTitle))
	m.Description = x.required(Literal(res, catalog.PropDescription))

	modified, report, err := Date(res, catalog.PropModified)
	x.add(report, err)
	m.Modified = modified

	themes, report, err := Nodes(res, catalog.PropTheme)
	x.add(report, err)
	for _, th := range themes {
		if iri := th.IRI(); iri != "" {
			m.Themes = append(m.Themes, iri)
		}
	}

	holder, report, err := RightsHolder(res)
	x.add(report, err)
	m.RightsHolderID = holder.ID
	m.RightsHolder = holder.Summary()

	m.Keywords = Literals(res, catalog.PropKeyword)
	m.Status = IRIs(res, catalog.PropADMSStatus)
	m.Subjects = IRIs(res, catalog.PropSubject)
	m.Languages = IRIs(res, catalog.PropLanguage)
	m.Temporal = firstValue(res, catalog.PropTemporal)
	m.Distributions = distributions(res)

	m.VersionInfo = x.optional(OptionalLiteral(res, catalog.PropOwlVersionInfo))
	issued, report := OptionalDate(res, catalog.PropIssued)
	x.add(report, nil)
	m.Issued = issued
	m.Publishers = x.optionalSummaries(OptionalNodeSummaries(res, catalog.PropPublisher))
	m.Creators = x.optionalSummaries(OptionalNodeSummaries(res, catalog.PropCreator))
	m.ConformsTo = nodeSummaries(res, catalog.PropConformsTo, DefaultSummaryProperties)

	contacts, report := OptionalNodeSummaries(res, catalog.PropContactPoint)
	x.add(report, nil)
	if len(contacts) > 0 {
		m.ContactPoint = &contacts[0]
	}

	switch t {
	case asset.TypeControlledVocabulary:
		m.KeyConcept = x.required(Literal(res, catalog.PropKeyConcept))
		m.AgencyID = holder.ID
		m.AgencyLabel = holder.Name()
		m.EndpointURL = x.optional(endpointURL(res))
	case asset.TypeOntology, asset.TypeSchema:
		m.Prefix = prefix(res)
		m.KeyClasses = x.optionalSummaries(OptionalNodeSummaries(res, catalog.PropHasKeyClass))
		m.Projects = nodeSummaries(res, catalog.PropSemanticAssetInUse, DefaultSummaryProperties)
		if m.Prefix == "" {
			x.add(validation.Empty().WithWarning(catalog.PropPrefix, MsgCannotFindProperty, missing(res, catalog.PropPrefix, "")), nil)
		}
	}

	return Result{
		Metadata:     m,
		RightsHolder: holder,
		Maintainers:  Maintainers(res),
	}, x.report, errors.Join(x.errs...)
}

// Maintainers returns the contact points of res as maintainers. Contact
// points without a name are skipped.
func Maintainers(res graph.Resource) []asset.Maintainer {
	var out []asset.Maintainer
	for _, cp := range res.Follow(catalog.PropContactPoint) {
		name, ok := pickLiteral(cp.Objects(catalog.PropVCardFn))
		if !ok {
			name, ok = pickLiteral(cp.Objects(catalog.PropFoafName))
		}
		if !ok {
			continue
		}
		m := asset.Maintainer{IRI: cp.IRI(), Name: name}
		if email := firstValue(cp, catalog.PropVCardEmail); email != "" {
			m.Email = strings.TrimPrefix(email, "mailto:")
		}
		out = append(out, m)
	}
	return out
}

type collector struct {
	report validation.Report
	errs   []error
}

func (c *collector) add(report validation.Report, err error) {
	c.report = c.report.Merge(report)
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

func (c *collector) required(v string, report validation.Report, err error) string {
	c.add(report, err)
	return v
}

func (c *collector) optional(v string, report validation.Report) string {
	c.add(report, nil)
	return v
}

func (c *collector) optionalSummaries(v []asset.NodeSummary, report validation.Report) []asset.NodeSummary {
	c.add(report, nil)
	return v
}

// firstValue returns the IRI or literal value of the first object of
// property.
func firstValue(res graph.Resource, property string) string {
	for _, o := range res.Objects(property) {
		if o.IsIRI() || o.IsLiteral() {
			return o.Value
		}
	}
	return ""
}

func distributions(res graph.Resource) []asset.Distribution {
	var nodes []graph.Resource
	nodes = append(nodes, res.Follow(catalog.PropDistribution)...)
	nodes = append(nodes, res.Follow(catalog.PropHasSemanticAssetDis)...)

	var out []asset.Distribution
	seen := make(map[asset.Distribution]struct{})
	for _, n := range nodes {
		d := asset.Distribution{
			AccessURL:   firstValue(n, catalog.PropAccessURL),
			DownloadURL: firstValue(n, catalog.PropDownloadURL),
		}
		if d.AccessURL == "" && d.DownloadURL == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func prefix(res graph.Resource) string {
	for _, p := range []string{catalog.PropVannPrefix, catalog.PropPrefix} {
		if v, ok := pickLiteral(res.Objects(p)); ok {
			return v
		}
	}
	return ""
}

// endpointURL follows ndc:hasDataService to the dcat:endpointURL of the
// data service serving the flattened vocabulary.
func endpointURL(res graph.Resource) (string, validation.Report) {
	for _, svc := range res.Follow(catalog.PropHasDataService) {
		if v := firstValue(svc, catalog.PropEndpointURL); v != "" {
			return v, validation.Empty()
		}
	}
	return "", validation.Empty().WithWarning(catalog.PropHasDataService, MsgCannotFindProperty, missing(res, catalog.PropHasDataService, ""))
}
