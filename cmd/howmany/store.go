package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/go-digitaltwin/howmany"
	"github.com/go-digitaltwin/howmany/config"
	"github.com/go-digitaltwin/howmany/memstore"
	"github.com/go-digitaltwin/howmany/neo4jstore"
	"github.com/go-digitaltwin/howmany/wikidata"
)

// A knowledgeStore reads raw records and finds entities by label.
type knowledgeStore interface {
	howmany.Fetcher
	LookupID(ctx context.Context, label, locale string) (howmany.EntityID, error)
}

var (
	_ knowledgeStore = (*memstore.Store)(nil)
	_ knowledgeStore = (*neo4jstore.Store)(nil)
	_ knowledgeStore = (*wikidata.Client)(nil)
)

// openStore returns the configured knowledge store, and a function releasing
// its resources.
func (a *app) openStore(ctx context.Context) (knowledgeStore, func(), error) {
	switch a.cfg.Store.Backend {
	case config.BackendFile:
		s, err := memstore.LoadFile(a.cfg.Store.File)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.BackendNeo4j:
		driver, err := a.openNeo4j(ctx)
		if err != nil {
			return nil, nil, err
		}
		return neo4jstore.New(driver, a.cfg.Neo4j.Database), func() { a.closeNeo4j(ctx, driver) }, nil

	default:
		c, err := wikidata.New(a.cfg.WikidataOptions(a.logger))
		if err != nil {
			return nil, nil, errors.Wrap(err, "wikidata client")
		}
		return c, func() {}, nil
	}
}

func (a *app) openNeo4j(ctx context.Context) (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if a.cfg.Neo4j.Password != "" {
		auth = neo4j.BasicAuth(a.cfg.Neo4j.Username, a.cfg.Neo4j.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(a.cfg.Neo4j.URI, auth)
	if err != nil {
		return nil, errors.Wrap(err, "open neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		a.closeNeo4j(ctx, driver)
		return nil, errors.WithHintf(errors.Wrap(err, "connect to neo4j"), "is a server listening on %s?", a.cfg.Neo4j.URI)
	}
	return driver, nil
}

func (a *app) closeNeo4j(ctx context.Context, driver neo4j.DriverWithContext) {
	if err := driver.Close(ctx); err != nil {
		a.logger.Error("Failed to close neo4j driver", "error", err)
	}
}

// lookupIDs finds the entity identified or labelled by each of the given
// arguments.
func lookupIDs(ctx context.Context, s knowledgeStore, args []string, locale string) ([]string, error) {
	ids := make([]string, len(args))
	for i, arg := range args {
		id, err := s.LookupID(ctx, arg, locale)
		if err != nil {
			return nil, errors.WithHint(err, "pass the entity's ID instead of its label")
		}
		ids[i] = string(id)
	}
	return ids, nil
}
