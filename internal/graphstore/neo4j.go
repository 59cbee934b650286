// SPDX-License-Identifier: MPL-2.0

package graphstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

// DefaultBatchSize bounds the rows sent in one UNWIND statement.
const DefaultBatchSize = 500

const (
	schemaPackage = `CREATE CONSTRAINT package_key IF NOT EXISTS FOR (p:Package) REQUIRE p.key IS UNIQUE`
	schemaVersion = `CREATE INDEX package_version_key IF NOT EXISTS FOR (v:PackageVersion) ON (v.key, v.version)`

	mergePackages = `
UNWIND $rows AS row
MERGE (p:Package {key: row.key})
ON CREATE SET p.id = row.id
SET p.topLevel = coalesce(p.topLevel, false) OR row.topLevel`

	mergeVersions = `
UNWIND $rows AS row
MATCH (p:Package {key: row.key})
MERGE (v:PackageVersion {key: row.key, version: row.version})
ON CREATE SET v.id = row.id, v.source = row.source, v.published = row.published
MERGE (v)-[:VERSION_OF]->(p)`

	mergeDependencies = `
UNWIND $rows AS row
MATCH (v:PackageVersion {key: row.key, version: row.version})
MATCH (t:Package {key: row.target})
MERGE (v)-[d:DEPENDS_ON {depId: row.depId, framework: $framework}]->(t)
SET d.range = row.range, d.min = row.min, d.minInclusive = row.minInclusive,
    d.max = row.max, d.maxInclusive = row.maxInclusive`

	createResolution = `
CREATE (r:Resolution {id: $id, framework: $framework, objective: $objective, createdAt: $createdAt})`

	selectVersions = `
UNWIND $rows AS row
MATCH (r:Resolution {id: $id})
MATCH (v:PackageVersion {key: row.key, version: row.version})
CREATE (r)-[:SELECTED {index: row.index}]->(v)`
)

type (
	// Neo4jOptions configures the Neo4j connection.
	Neo4jOptions struct {
		URI      string
		User     string
		Password string
		// Database selects the target database; empty uses the server default.
		Database  string
		BatchSize int
		Logger    *slog.Logger
	}

	// Neo4j is a Store backed by a Neo4j database.
	Neo4j struct {
		driver    neo4j.DriverWithContext
		database  string
		batchSize int
		logger    *slog.Logger
		now       func() time.Time
	}
)

// Configured reports whether URI, user and password are all set.
func (o Neo4jOptions) Configured() bool {
	return strings.TrimSpace(o.URI) != "" && o.User != "" && o.Password != ""
}

// Open connects to Neo4j, verifies connectivity and ensures the schema.
func Open(ctx context.Context, opts Neo4jOptions) (*Neo4j, error) {
	if !opts.Configured() {
		return nil, &StoreError{Op: "open", Err: errors.New("uri, user and password are required")}
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &StoreError{Op: "connect", Err: err}
	}

	s := &Neo4j{
		driver:    driver,
		database:  opts.Database,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	for _, stmt := range []string{schemaPackage, schemaVersion} {
		if err := s.run(ctx, stmt, nil); err != nil {
			_ = driver.Close(ctx)
			return nil, &StoreError{Op: "schema", Err: err}
		}
	}
	return s, nil
}

// UpsertUniverse implements Store. Packages, versions and edges are merged
// in that order, each batch in its own write transaction.
func (s *Neo4j) UpsertUniverse(ctx context.Context, u *universe.Universe) error {
	steps := []struct {
		name  string
		query string
		rows  []map[string]any
	}{
		{"packages", mergePackages, packageRows(u)},
		{"versions", mergeVersions, versionRows(u)},
		{"dependencies", mergeDependencies, dependencyRows(u)},
	}

	for _, step := range steps {
		for _, batch := range batches(step.rows, s.batchSize) {
			params := map[string]any{"rows": batch, "framework": u.Framework()}
			if err := s.run(ctx, step.query, params); err != nil {
				return &StoreError{Op: "upsert " + step.name, Err: err}
			}
		}
		s.logger.Debug("graph upsert", "step", step.name, "rows", len(step.rows))
	}
	return nil
}

// RecordSolution implements Store.
func (s *Neo4j) RecordSolution(ctx context.Context, u *universe.Universe, sol *solver.Solution) (string, error) {
	id := uuid.NewString()
	params := map[string]any{
		"id":        id,
		"framework": u.Framework(),
		"objective": sol.Objective,
		"createdAt": s.now().UTC().Format(time.RFC3339),
	}
	if err := s.run(ctx, createResolution, params); err != nil {
		return "", &StoreError{Op: "record resolution", Err: err}
	}
	for _, batch := range batches(selectionRows(sol), s.batchSize) {
		if err := s.run(ctx, selectVersions, map[string]any{"id": id, "rows": batch}); err != nil {
			return "", &StoreError{Op: "record selection", Err: err}
		}
	}
	s.logger.Info("resolution recorded", "id", id, "packages", len(sol.Selection))
	return id, nil
}

// Close implements Store.
func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4j) run(ctx context.Context, query string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}
