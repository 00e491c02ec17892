// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// GraphWriter runs Cypher against a graph database.
type GraphWriter interface {
	// Run executes a single auto-commit statement.
	Run(ctx context.Context, cypher string, params map[string]any) error
	// ExecuteWrite executes cypher inside a managed write transaction.
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error
	Close(ctx context.Context) error
}

// driverWriter is a GraphWriter backed by the Neo4j driver.
type driverWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// DialNeo4j connects to cfg.URI and verifies connectivity within cfg.Timeout.
func DialNeo4j(ctx context.Context, cfg types.Neo4jConfig) (GraphWriter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.SocketConnectTimeout = timeout
		})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URI, err)
	}
	return &driverWriter{driver: driver, database: cfg.Database}, nil
}

func (d *driverWriter) session(ctx context.Context) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database,
	})
}

func (d *driverWriter) Run(ctx context.Context, cypher string, params map[string]any) error {
	session := d.session(ctx)
	defer session.Close(ctx)
	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (d *driverWriter) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error {
	session := d.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (d *driverWriter) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

var neo4jSchema = []string{
	`CREATE CONSTRAINT lexeme_id IF NOT EXISTS FOR (l:Lexeme) REQUIRE l.id IS UNIQUE`,
	`CREATE INDEX lexeme_key IF NOT EXISTS FOR (l:Lexeme) ON (l.key)`,
}

const mergeNodes = `
UNWIND $nodes AS n
MERGE (l:Lexeme {id: n.id})
SET l += n`

// Relationship types cannot be parameters, so each category has its own
// statement.
var mergeEdges = map[types.RelationType]string{
	types.Origin:  edgeStatement("ORIGIN"),
	types.Sibling: edgeStatement("SIBLING"),
	types.Related: edgeStatement("RELATED"),
}

func edgeStatement(label string) string {
	return `
UNWIND $edges AS e
MATCH (s:Lexeme {id: e.source})
MATCH (t:Lexeme {id: e.target})
MERGE (s)-[r:` + label + ` {id: e.id}]->(t)
SET r.type = e.type, r.specificity = e.specificity, r.uncertain = e.uncertain, r.provenance = e.provenance`
}

// LoadSummary reports what a Neo4j load sent.
type LoadSummary struct {
	Nodes   int
	Edges   int
	Batches int
}

// Neo4jLoader writes documents to a graph database in batches.
type Neo4jLoader struct {
	writer    GraphWriter
	batchSize int
	log       *logger.Logger
}

// NewNeo4jLoader wraps w. A batchSize of zero or less means 1000.
func NewNeo4jLoader(w GraphWriter, batchSize int, log *logger.Logger) *Neo4jLoader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Neo4jLoader{writer: w, batchSize: batchSize, log: log}
}

// Load creates the schema best-effort, then merges nodes and edges. Loading
// the same document twice leaves the database unchanged.
func (l *Neo4jLoader) Load(ctx context.Context, doc *Document) (LoadSummary, error) {
	var sum LoadSummary
	for _, stmt := range neo4jSchema {
		if err := l.writer.Run(ctx, stmt, nil); err != nil {
			l.log.Warn("neo4j schema statement failed", "statement", stmt, "error", err)
		}
	}

	ids := make(map[string]string, len(doc.Nodes))
	nodes := make([]map[string]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		ids[n.Key] = n.ID
		nodes[i] = map[string]any{
			"id":            n.ID,
			"key":           n.Key,
			"term":          n.Term,
			"language":      n.Language,
			"sense":         n.Sense,
			"kind":          string(n.Kind),
			"pos":           n.POS,
			"gloss":         n.Gloss,
			"pronunciation": n.Pronunciation,
		}
	}
	for start := 0; start < len(nodes); start += l.batchSize {
		batch := nodes[start:min(start+l.batchSize, len(nodes))]
		if err := l.writer.ExecuteWrite(ctx, mergeNodes, map[string]any{"nodes": batch}); err != nil {
			return sum, fmt.Errorf("writing nodes %d-%d: %w", start, start+len(batch), err)
		}
		sum.Nodes += len(batch)
		sum.Batches++
	}

	byCategory := map[types.RelationType][]map[string]any{}
	for _, e := range doc.Edges {
		prov := make([]string, len(e.Provenance))
		for i, p := range e.Provenance {
			prov[i] = p.String()
		}
		byCategory[e.Category] = append(byCategory[e.Category], map[string]any{
			"id":          e.ID,
			"source":      ids[e.Source],
			"target":      ids[e.Target],
			"type":        string(e.Type),
			"specificity": e.Specificity,
			"uncertain":   e.Uncertain,
			"provenance":  prov,
		})
	}
	for _, category := range []types.RelationType{types.Origin, types.Sibling, types.Related} {
		edges := byCategory[category]
		for start := 0; start < len(edges); start += l.batchSize {
			batch := edges[start:min(start+l.batchSize, len(edges))]
			if err := l.writer.ExecuteWrite(ctx, mergeEdges[category], map[string]any{"edges": batch}); err != nil {
				return sum, fmt.Errorf("writing %s edges %d-%d: %w", category, start, start+len(batch), err)
			}
			sum.Edges += len(batch)
			sum.Batches++
		}
	}
	l.log.Info("neo4j load complete", "nodes", sum.Nodes, "edges", sum.Edges, "batches", sum.Batches)
	return sum, nil
}
