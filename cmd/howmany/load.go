package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/go-digitaltwin/howmany/memstore"
	"github.com/go-digitaltwin/howmany/neo4jstore"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE",
		Short: "Load a YAML dataset into a Neo4j knowledge store",
		Long: `Load the entities of a YAML dataset into the configured Neo4j database,
creating the database, its constraints, and its indexes first when missing.

Loading is idempotent: entities are merged by ID, and the labels and claims
listed in the dataset replace the stored ones of the same locale or property.`,
		Example: `  howmany load dataset.yaml
  HOWMANY_NEO4J_DATABASE=comparisons howmany load dataset.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := validateDatabaseName(a.cfg.Neo4j.Database); err != nil {
				return errors.Wrap(err, "neo4j.database")
			}
			dataset, err := memstore.LoadFile(args[0])
			if err != nil {
				return err
			}
			records := dataset.Records()

			driver, err := a.openNeo4j(ctx)
			if err != nil {
				return err
			}
			defer a.closeNeo4j(ctx, driver)

			if err := neo4jstore.BootstrapDatabase(ctx, driver, a.cfg.Neo4j.Database); err != nil {
				return errors.Wrap(err, "bootstrap database")
			}
			if err := neo4jstore.New(driver, a.cfg.Neo4j.Database).Put(ctx, records...); err != nil {
				return err
			}
			pterm.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Loaded %d entities into %s", len(records), a.cfg.Neo4j.Database))
			return nil
		},
	}
}

// validateDatabaseName rejects the names BootstrapDatabase cannot create.
func validateDatabaseName(name string) error {
	switch {
	case name == "":
		return errors.WithHint(errors.New("required by load"), "set neo4j.database in the configuration file")
	case name == "neo4j":
		return errors.New("neo4j is the reserved default database")
	case strings.HasPrefix(name, "system"), strings.HasPrefix(name, "_"):
		return errors.Newf("%q is reserved for internal use", name)
	}
	return nil
}
