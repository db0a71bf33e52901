package neo4jstore

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// BootstrapDatabase creates the given database, and the constraints and indexes
// a Store relies on.
//
// Entities are keyed by ID to prevent duplicates (caused by concurrent MERGEs),
// and claims are indexed by property for lookups.
//
// This function is idempotent.
func BootstrapDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if err := createDatabase(ctx, d, name); err != nil {
		return errors.Wrap(err, "create database")
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Key constraints are only available in the enterprise edition.
		if _, err := tx.Run(ctx, `
			CREATE CONSTRAINT entity_id IF NOT EXISTS
			FOR (e:Entity)
			REQUIRE e.id IS NODE KEY
		`, nil); err != nil {
			return nil, errors.Wrap(err, "key constraint: label Entity")
		}
		if _, err := tx.Run(ctx, `
			CREATE INDEX claim_property IF NOT EXISTS
			FOR (c:Claim)
			ON (c.property)
		`, nil); err != nil {
			return nil, errors.Wrap(err, "index: label Claim")
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, "create constraints")
	}
	return s.Close(ctx)
}

func createDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if name == "" {
		panic("neo4jstore: database name must not be empty")
	}
	if name == "neo4j" {
		panic("neo4jstore: database name must not be neo4j: reserved for the default database")
	}
	if strings.HasPrefix(name, "system") || strings.HasPrefix(name, "_") {
		panic("neo4jstore: names that begin with an underscore and with the prefix system are reserved for internal use")
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.Run(ctx, `
			CREATE DATABASE $name IF NOT EXISTS WAIT
		`, map[string]any{
		"name": name,
	})
	return err
}
