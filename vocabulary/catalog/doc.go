// Package catalog declares the RDF vocabulary the harvester reads from
// semantic asset descriptions (DCAT, Dublin Core, SKOS, OWL and the Italian
// NDC and ADMS-AP_IT profiles) and the dotted predicates it uses when
// publishing harvested assets to the knowledge graph.
//
// IRI constants are plain strings so they can be compared directly with
// graph.Term values. Predicates are registered with the semstreams
// vocabulary registry at init time.
package catalog
