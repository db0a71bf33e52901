package main

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-digitaltwin/howmany"
	"github.com/go-digitaltwin/howmany/config"
)

// app holds the state shared by the commands of a single invocation.
type app struct {
	v          *viper.Viper
	configFile string

	// Set before any command runs.
	cfg         *config.Config
	logger      *slog.Logger
	conversions *howmany.ConversionTable
	dimensions  *howmany.DimensionRegistry
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "howmany",
		Short: "Compare real-world quantities",
		Long: `howmany - how many of one thing fit inside another.

Quantities (areas, lengths, volumes...) are read from a knowledge store,
reconciled to a common unit, and divided.

Available commands:
  compare - Compute how many entities fit inside containers
  resolve - Resolve the quantity of an entity in a unit
  units   - List the known unit conversions and dimensions
  load    - Load a YAML dataset into a Neo4j knowledge store

Examples:
  howmany compare Germany "football pitch"
  howmany --store file --store-file dataset.yaml compare Q183 Q8524
  howmany resolve Q8524 hectare`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "configuration file (YAML or TOML)")
	f.String("store", "", "knowledge store: wikidata, neo4j, or file (default wikidata)")
	f.String("store-file", "", "YAML dataset read by the file store")
	f.String("locale", "", "locale of labels (default en)")
	f.StringP("property", "p", "", "compared property, by ID or name (default area)")
	f.String("log-level", "", "log level: debug, info, warn, or error (default warn)")
	f.String("log-format", "", "log format: text or json (default text)")
	bindFlags(a.v, f, map[string]string{
		"store":      "store.backend",
		"store-file": "store.file",
		"locale":     "locale",
		"property":   "property",
		"log-level":  "log.level",
		"log-format": "log.format",
	})

	cmd.AddCommand(
		newCompareCmd(a),
		newResolveCmd(a),
		newUnitsCmd(a),
		newLoadCmd(a),
	)
	return cmd
}

// bindFlags binds the given flags to configuration keys. Flags only take
// precedence when set on the command line.
func bindFlags(v *viper.Viper, f *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err) // Only fails for unknown flags.
		}
	}
}

// setup loads the configuration, and injects the configured logger into the
// command's context.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return errors.WithHint(err, "check the configuration file, HOWMANY_* environment variables, and flags")
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	a.conversions, a.dimensions, err = cfg.Tables()
	if err != nil {
		return err
	}
	cmd.SetContext(component.InjectLogger(cmd.Context(), a.logger))
	a.logger.Debug("Configuration loaded", "file", a.v.ConfigFileUsed(), "store", cfg.Store.Backend)
	return nil
}
