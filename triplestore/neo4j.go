// Package triplestore stores harvested RDF graphs in Neo4j. Every RDF term
// is a :Resource node scoped by the named graph it belongs to, and every
// triple a :TRIPLE relationship carrying the predicate.
package triplestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/c360studio/semharvest/export"
	"github.com/c360studio/semharvest/graph"
)

// DefaultBatchSize is the number of triples written per transaction.
const DefaultBatchSize = 500

// Config holds the Neo4j connection settings.
type Config struct {
	URI         string        `yaml:"uri"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	MaxPoolSize int           `yaml:"max_pool_size"`
	Timeout     time.Duration `yaml:"timeout"`
	BatchSize   int           `yaml:"batch_size"`
}

// Store is a Neo4j-backed triple-store.
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    *slog.Logger
}

// Open connects to Neo4j and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	user := cfg.User
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("init neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	s := New(driver, cfg.Database, cfg.BatchSize, logger)
	if err := s.ensureSchema(ctx); err != nil {
		// Restricted users may not manage indexes.
		logger.Warn("Neo4j schema init failed (continuing)", "error", err)
	}
	return s, nil
}

// New wraps an existing driver.
func New(driver neo4j.DriverWithContext, database string, batchSize int, logger *slog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{driver: driver, database: database, batchSize: batchSize, logger: logger}
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) ensureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT resource_graph_key IF NOT EXISTS FOR (r:Resource) REQUIRE (r.graph, r.key) IS UNIQUE`,
		`CREATE INDEX resource_graph_idx IF NOT EXISTS FOR (r:Resource) ON (r.graph)`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := res.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

const saveCypher = `
UNWIND $rows AS row
MERGE (s:Resource {graph: $graph, key: row.s_key})
  ON CREATE SET s.kind = row.s_kind, s.value = row.s_value
MERGE (o:Resource {graph: $graph, key: row.o_key})
  ON CREATE SET o.kind = row.o_kind, o.value = row.o_value, o.lang = row.o_lang, o.datatype = row.o_datatype
MERGE (s)-[t:TRIPLE {graph: $graph, predicate: row.p}]->(o)
  ON CREATE SET t.synced_at = $now
`

// Save adds the triples of g to graphName.
func (s *Store) Save(ctx context.Context, graphName string, g *graph.Graph) error {
	rows := tripleRows(g)
	if len(rows) == 0 {
		return nil
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		batch := rows[start:end]
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, saveCypher, map[string]any{
				"graph": graphName,
				"rows":  batch,
				"now":   now,
			})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("write triples %d-%d of %s: %w", start, end, g.Name(), err)
		}
	}
	s.logger.Debug("Saved graph", "graph", graphName, "source", g.Name(), "triples", len(rows))
	return nil
}

// ClearGraph deletes every node and triple of graphName.
func (s *Store) ClearGraph(ctx context.Context, graphName string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (r:Resource {graph: $graph}) DETACH DELETE r`, map[string]any{"graph": graphName})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return fmt.Errorf("clear graph %s: %w", graphName, err)
	}
	s.logger.Debug("Cleared graph", "graph", graphName, "nodes", deleted)
	return nil
}

// Graph reads graphName back into memory.
func (s *Store) Graph(ctx context.Context, graphName string) (*graph.Graph, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Resource {graph: $graph})-[t:TRIPLE]->(o:Resource)
RETURN s.kind AS s_kind, s.value AS s_value, t.predicate AS p,
       o.kind AS o_kind, o.value AS o_value, o.lang AS o_lang, o.datatype AS o_datatype`,
			map[string]any{"graph": graphName})
		if err != nil {
			return nil, err
		}
		g := graph.New(graphName)
		for res.Next(ctx) {
			rec := res.Record()
			row := make(map[string]any, len(rec.Keys))
			for i, k := range rec.Keys {
				row[k] = rec.Values[i]
			}
			subj, pred, obj := rowTriple(row)
			g.Add(subj, pred, obj)
		}
		return g, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", graphName, err)
	}
	return out.(*graph.Graph), nil
}

// tripleRows converts g into query parameters. Node keys are the
// N-Triples rendering of the term, unique within a graph.
func tripleRows(g *graph.Graph) []map[string]any {
	triples := g.Triples()
	rows := make([]map[string]any, 0, len(triples))
	for _, t := range triples {
		rows = append(rows, map[string]any{
			"s_key":      export.FormatTerm(t.S),
			"s_kind":     t.S.Kind.String(),
			"s_value":    t.S.Value,
			"p":          t.P.Value,
			"o_key":      export.FormatTerm(t.O),
			"o_kind":     t.O.Kind.String(),
			"o_value":    t.O.Value,
			"o_lang":     t.O.Lang,
			"o_datatype": t.O.Datatype,
		})
	}
	return rows
}

func rowTriple(row map[string]any) (graph.Term, graph.Term, graph.Term) {
	str := func(k string) string {
		v, _ := row[k].(string)
		return v
	}
	term := func(kind, value, lang, datatype string) graph.Term {
		switch kind {
		case graph.KindBlank.String():
			return graph.Blank(value)
		case graph.KindLiteral.String():
			switch {
			case lang != "":
				return graph.LangLiteral(value, lang)
			case datatype != "":
				return graph.TypedLiteral(value, datatype)
			default:
				return graph.Literal(value)
			}
		default:
			return graph.IRI(value)
		}
	}
	return term(str("s_kind"), str("s_value"), "", ""),
		graph.IRI(str("p")),
		term(str("o_kind"), str("o_value"), str("o_lang"), str("o_datatype"))
}
