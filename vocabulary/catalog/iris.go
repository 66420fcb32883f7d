package catalog

// Namespace is the base IRI for harvester-specific terms.
const Namespace = "https://semharvest.dev/ontology/catalog/"

// EntityNamespace is the base IRI for harvested entity instances.
const EntityNamespace = "https://semharvest.dev/entity/catalog/"

// Standard namespaces used by semantic asset descriptions.
const (
	RDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	XSD   = "http://www.w3.org/2001/XMLSchema#"
	OWL   = "http://www.w3.org/2002/07/owl#"
	SKOS  = "http://www.w3.org/2004/02/skos/core#"
	DCT   = "http://purl.org/dc/terms/"
	DCAT  = "http://www.w3.org/ns/dcat#"
	FOAF  = "http://xmlns.com/foaf/0.1/"
	VCARD = "http://www.w3.org/2006/vcard/ns#"
	ADMS  = "http://www.w3.org/ns/adms#"
	VANN  = "http://purl.org/vocab/vann/"

	// NDC is the Italian national data catalogue profile namespace.
	NDC = "https://w3id.org/italia/onto/NDC-profile/"

	// ADMSAPIT is the Italian ADMS application profile namespace.
	ADMSAPIT = "https://w3id.org/italia/onto/ADMS/"
)

// Class IRIs identifying the main resource of each asset type.
const (
	ClassOntology      = OWL + "Ontology"
	ClassConceptScheme = SKOS + "ConceptScheme"
	ClassDataset       = DCAT + "Dataset"
	ClassDataService   = DCAT + "DataService"
	ClassDistribution  = DCAT + "Distribution"
)

// Property IRIs read or written by the harvester.
const (
	PropType = RDF + "type"

	PropTitle        = DCT + "title"
	PropDescription  = DCT + "description"
	PropModified     = DCT + "modified"
	PropIssued       = DCT + "issued"
	PropRightsHolder = DCT + "rightsHolder"
	PropIdentifier   = DCT + "identifier"
	PropPublisher    = DCT + "publisher"
	PropCreator      = DCT + "creator"
	PropLanguage     = DCT + "language"
	PropTemporal     = DCT + "temporal"
	PropConformsTo   = DCT + "conformsTo"
	PropSubject      = DCT + "subject"
	PropAccrualPer   = DCT + "accrualPeriodicity"

	PropTheme          = DCAT + "theme"
	PropKeyword        = DCAT + "keyword"
	PropContactPoint   = DCAT + "contactPoint"
	PropDistribution   = DCAT + "distribution"
	PropAccessURL      = DCAT + "accessURL"
	PropDownloadURL    = DCAT + "downloadURL"
	PropEndpointURL    = DCAT + "endpointURL"
	PropServesDataset  = DCAT + "servesDataset"
	PropFoafName       = FOAF + "name"
	PropSkosPrefLabel  = SKOS + "prefLabel"
	PropRdfsLabel      = RDFS + "label"
	PropOwlVersionInfo = OWL + "versionInfo"
	PropVCardFn        = VCARD + "fn"
	PropVCardEmail     = VCARD + "hasEmail"
	PropADMSStatus     = ADMS + "status"
	PropVannPrefix     = VANN + "preferredNamespacePrefix"

	PropKeyConcept     = NDC + "keyConcept"
	PropHasDataService = NDC + "hasDataService"

	PropHasKeyClass         = ADMSAPIT + "hasKeyClass"
	PropPrefix              = ADMSAPIT + "prefix"
	PropSemanticAssetInUse  = ADMSAPIT + "semanticAssetInUse"
	PropHasSemanticAssetDis = ADMSAPIT + "hasSemanticAssetDistribution"
)

// Datatype IRIs.
const (
	XSDDate     = XSD + "date"
	XSDDateTime = XSD + "dateTime"
	XSDString   = XSD + "string"
)
