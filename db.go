// Package neosierra connects the visual query model to a Neo4j database. It discovers
// the schema the editor offers, executes compiled queries and serializes edits of a
// query model through a Session.
package neosierra

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// DatabaseSelector is implemented by runners that can target another database.
type DatabaseSelector interface {
	UseDatabase(name string)
	Database() string
}

// Neo4jExecutor is a concrete implementation of the DBRunner interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext

	mu     sync.RWMutex
	dbName string
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the provided credentials.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The database to query. Empty selects the server default, which is the
//     only option on 3.x servers.
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, dbName: dbName}, nil
}

// Verify checks the connectivity to the Neo4j server.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// UseDatabase makes subsequent queries target name.
func (e *Neo4jExecutor) UseDatabase(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dbName = name
}

// Database returns the targeted database name.
func (e *Neo4jExecutor) Database() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dbName
}

// Run executes a read-only Cypher query using ExecuteQuery, which handles session and
// transaction management. Every query the editor issues is a read, so it is routed to
// reader members of a cluster.
//
// Returns:
//
//	An EagerResult containing all buffered records from the query, or an error if
//	the execution fails.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if db := e.Database(); db != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(db))
	}

	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}
