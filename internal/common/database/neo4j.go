// internal/common/database/neo4j.go
package database

import (
	"context"
	"fmt"

	"tourist-kgqa/internal/common/config"
	apperrors "tourist-kgqa/internal/common/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jClient wraps the graph database driver. The pipeline only ever runs
// parameterized read queries through Execute and treats rows as opaque
// key->value maps.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a new graph database client.
func NewNeo4j(cfg config.Neo4jConfig) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jClient{driver: driver}, nil
}

// Ping verifies connectivity to the graph database.
func (c *Neo4jClient) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewGraphConnectionFailedError(err)
	}
	return nil
}

// IsConnected reports whether the graph database is reachable.
func (c *Neo4jClient) IsConnected(ctx context.Context) bool {
	return c.driver.VerifyConnectivity(ctx) == nil
}

// Execute runs a parameterized read query and returns the rows as
// string-keyed maps. Entity values always travel through params, never
// through the query text.
func (c *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var rows []map[string]any
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("result iteration failed: %w", err)
	}
	return rows, nil
}

// Close shuts down the underlying driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
