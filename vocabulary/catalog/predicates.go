package catalog

import "github.com/c360studio/semstreams/vocabulary"

// Asset predicates describe one harvested semantic asset as a knowledge
// graph entity.
const (
	// AssetType is the asset kind.
	// Values: ontology, controlled_vocabulary, schema
	AssetType = "catalog.asset.type"

	// AssetIRI is the IRI of the asset's main resource.
	AssetIRI = "catalog.asset.iri"

	// AssetTitle is the preferred title (it, then en, then untagged).
	AssetTitle = "catalog.asset.title"

	// AssetDescription is the preferred description.
	AssetDescription = "catalog.asset.description"

	// AssetModified is the last-modified date, RFC3339 date form.
	AssetModified = "catalog.asset.modified"

	// AssetTheme links to a theme IRI. Multiple values allowed.
	AssetTheme = "catalog.asset.theme"

	// AssetKeyword is a free-text keyword. Multiple values allowed.
	AssetKeyword = "catalog.asset.keyword"

	// AssetRightsHolder links the asset to its rights holder entity.
	AssetRightsHolder = "catalog.asset.rights_holder"

	// AssetRepository links the asset to the repository it was harvested from.
	AssetRepository = "catalog.asset.repository"

	// AssetKeyConcept is the vocabulary key concept.
	AssetKeyConcept = "catalog.asset.key_concept"

	// AssetEndpoint is the flattened-vocabulary data service endpoint.
	AssetEndpoint = "catalog.asset.endpoint"

	// AssetHarvestRun is the id of the run that last wrote the asset.
	AssetHarvestRun = "catalog.asset.harvest_run"
)

// Repository predicates describe a harvested repository.
const (
	RepoURL           = "catalog.repo.url"
	RepoLastHarvested = "catalog.repo.last_harvested"
	RepoAssetCount    = "catalog.repo.asset_count"
	RepoFailureCount  = "catalog.repo.failure_count"
)

func init() {
	vocabulary.Register(AssetType,
		vocabulary.WithDescription("Semantic asset kind: ontology, controlled_vocabulary, schema"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropType))

	vocabulary.Register(AssetIRI,
		vocabulary.WithDescription("IRI of the asset main resource"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropIdentifier))

	vocabulary.Register(AssetTitle,
		vocabulary.WithDescription("Preferred asset title"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTitle))

	vocabulary.Register(AssetDescription,
		vocabulary.WithDescription("Preferred asset description"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropDescription))

	vocabulary.Register(AssetModified,
		vocabulary.WithDescription("Last modification date"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(PropModified))

	vocabulary.Register(AssetTheme,
		vocabulary.WithDescription("Theme IRIs of the asset"),
		vocabulary.WithDataType("array"),
		vocabulary.WithIRI(PropTheme))

	vocabulary.Register(AssetKeyword,
		vocabulary.WithDescription("Free-text keywords"),
		vocabulary.WithDataType("array"),
		vocabulary.WithIRI(PropKeyword))

	vocabulary.Register(AssetRightsHolder,
		vocabulary.WithDescription("Rights holder of the asset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropRightsHolder))

	vocabulary.Register(AssetRepository,
		vocabulary.WithDescription("Repository the asset was harvested from"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"repository"))

	vocabulary.Register(AssetKeyConcept,
		vocabulary.WithDescription("Controlled vocabulary key concept"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropKeyConcept))

	vocabulary.Register(AssetEndpoint,
		vocabulary.WithDescription("Endpoint serving the flattened vocabulary"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropEndpointURL))

	vocabulary.Register(AssetHarvestRun,
		vocabulary.WithDescription("Harvest run that last wrote the asset"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"harvestRun"))

	vocabulary.Register(RepoURL,
		vocabulary.WithDescription("Repository clone URL"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"repoURL"))

	vocabulary.Register(RepoLastHarvested,
		vocabulary.WithDescription("Completion time of the last harvest"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Namespace+"lastHarvested"))

	vocabulary.Register(RepoAssetCount,
		vocabulary.WithDescription("Assets harvested in the last run"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"assetCount"))

	vocabulary.Register(RepoFailureCount,
		vocabulary.WithDescription("Paths that failed in the last run"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"failureCount"))
}
