package triplestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/graph"
)

func sample() *graph.Graph {
	g := graph.New("sample.ttl")
	s := graph.IRI("https://w3id.org/italia/onto/CPV")
	g.Add(s, graph.IRI(graph.RDFType), graph.IRI("http://www.w3.org/2002/07/owl#Ontology"))
	g.Add(s, graph.IRI("http://purl.org/dc/terms/title"), graph.LangLiteral("Persone", "it"))
	g.Add(s, graph.IRI("http://purl.org/dc/terms/modified"), graph.TypedLiteral("2023-01-10", "http://www.w3.org/2001/XMLSchema#date"))
	g.Add(s, graph.IRI("http://purl.org/dc/terms/rightsHolder"), graph.Blank("h1"))
	g.Add(graph.Blank("h1"), graph.IRI("http://purl.org/dc/terms/identifier"), graph.Literal("agid"))
	return g
}

func TestTripleRows(t *testing.T) {
	rows := tripleRows(sample())
	require.Len(t, rows, 5)

	assert.Equal(t, "<https://w3id.org/italia/onto/CPV>", rows[0]["s_key"])
	assert.Equal(t, "iri", rows[0]["s_kind"])
	assert.Equal(t, graph.RDFType, rows[0]["p"])

	assert.Equal(t, `"Persone"@it`, rows[1]["o_key"])
	assert.Equal(t, "literal", rows[1]["o_kind"])
	assert.Equal(t, "it", rows[1]["o_lang"])

	assert.Equal(t, "_:h1", rows[3]["o_key"])
	assert.Equal(t, "blank", rows[4]["s_kind"])
}

func TestRowTripleRoundTrip(t *testing.T) {
	g := sample()
	back := graph.New("back")
	for _, row := range tripleRows(g) {
		s, p, o := rowTriple(row)
		back.Add(s, p, o)
	}
	assert.Equal(t, g.Triples(), back.Triples())
}

func TestRowTripleMissingValues(t *testing.T) {
	s, p, o := rowTriple(map[string]any{"s_value": "urn:a", "p": "urn:p", "o_kind": "literal", "o_value": nil})
	assert.Equal(t, graph.IRI("urn:a"), s)
	assert.Equal(t, graph.IRI("urn:p"), p)
	assert.Equal(t, graph.Literal(""), o)
}

func TestTripleRowsEmpty(t *testing.T) {
	assert.Empty(t, tripleRows(graph.New("empty")))
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, "", 0, nil)
	assert.Equal(t, DefaultBatchSize, s.batchSize)
	assert.NotNil(t, s.logger)
	assert.NoError(t, s.Close(t.Context()))
}
