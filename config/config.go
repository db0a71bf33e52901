// Package config loads the settings of the howmany command: which knowledge
// store to read, how to reach it, how to log, and the unit tables to extend
// the defaults with.
//
// Settings are read, in increasing order of precedence, from the defaults, an
// optional configuration file (YAML or TOML, by extension), environment
// variables prefixed with HOWMANY_ (e.g. HOWMANY_WIKIDATA_TIMEOUT for
// wikidata.timeout), and command-line flags bound to the returned viper
// instance.
package config

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/go-digitaltwin/howmany"
	"github.com/go-digitaltwin/howmany/wikidata"
)

// Store backends.
const (
	BackendWikidata = "wikidata"
	BackendNeo4j    = "neo4j"
	BackendFile     = "file"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Wikidata WikidataConfig `mapstructure:"wikidata"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Log      LogConfig      `mapstructure:"log"`

	// Locale of the labels in results.
	Locale string `mapstructure:"locale"`
	// Property compared when none is given.
	Property howmany.PropertyID `mapstructure:"property"`

	// Units, Powers, and Dimensions extend the default tables. A configured
	// dimension replaces the default one of the same property.
	Units      []howmany.ConversionEdge `mapstructure:"units"`
	Powers     []howmany.UnitPower      `mapstructure:"powers"`
	Dimensions []howmany.Dimension      `mapstructure:"dimensions"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// File is the YAML dataset read by the file backend.
	File string `mapstructure:"file"`
}

type WikidataConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retry_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // One of debug, info, warn, or error.
	Format string `mapstructure:"format"` // One of text or json.
}

// SetDefaults configures the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendWikidata)
	v.SetDefault("store.file", "")

	v.SetDefault("wikidata.endpoint", wikidata.DefaultEndpoint)
	v.SetDefault("wikidata.user_agent", "")
	v.SetDefault("wikidata.timeout", 10*time.Second)
	v.SetDefault("wikidata.retry_max", 3)
	v.SetDefault("wikidata.requests_per_second", 5.0) // Well below the API's limits for anonymous clients.
	v.SetDefault("wikidata.cache_ttl", 10*time.Minute)

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("locale", "en")
	v.SetDefault("property", string(howmany.Area))
}

// New returns a viper instance with the defaults set and environment variables
// bound. Bind command-line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("HOWMANY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at the given path, if any, into v and
// returns the validated result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first invalid setting, naming its key.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendWikidata, BackendNeo4j:
	case BackendFile:
		if c.Store.File == "" {
			return errors.New("store.file: required by the file backend")
		}
	default:
		return errors.Newf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Wikidata.Timeout < 0 {
		return errors.Newf("wikidata.timeout: negative duration %v", c.Wikidata.Timeout)
	}
	if c.Wikidata.RequestsPerSecond < 0 {
		return errors.Newf("wikidata.requests_per_second: negative rate %v", c.Wikidata.RequestsPerSecond)
	}
	if c.Store.Backend == BackendNeo4j && c.Neo4j.URI == "" {
		return errors.New("neo4j.uri: required by the neo4j backend")
	}
	if _, err := c.Log.level(); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		return errors.Newf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Locale == "" {
		return errors.New("locale: must not be empty")
	}
	return nil
}

// Tables builds the conversion table and dimension registry from the defaults
// and the configured extensions.
func (c *Config) Tables() (*howmany.ConversionTable, *howmany.DimensionRegistry, error) {
	conversions, err := howmany.NewConversionTable(slices.Concat(howmany.DefaultConversions, c.Units)...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "units")
	}

	dimensions := slices.DeleteFunc(slices.Clone(howmany.DefaultDimensions), func(d howmany.Dimension) bool {
		return slices.ContainsFunc(c.Dimensions, func(o howmany.Dimension) bool { return o.Property == d.Property })
	})
	dimensions = append(dimensions, c.Dimensions...)
	registry, err := howmany.NewDimensionRegistry(dimensions, slices.Concat(howmany.DefaultPowers, c.Powers))
	if err != nil {
		return nil, nil, errors.Wrap(err, "dimensions")
	}
	return conversions, registry, nil
}

// WikidataOptions returns the options of a wikidata.Client.
func (c *Config) WikidataOptions(logger *slog.Logger) wikidata.Options {
	retryMax := c.Wikidata.RetryMax
	if retryMax == 0 {
		retryMax = -1 // Zero disables retries here, while wikidata.Options defaults it.
	}
	cacheTTL := c.Wikidata.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = -1 // Likewise, zero disables the memo.
	}
	return wikidata.Options{
		Endpoint:          c.Wikidata.Endpoint,
		UserAgent:         c.Wikidata.UserAgent,
		Timeout:           c.Wikidata.Timeout,
		RetryMax:          retryMax,
		RequestsPerSecond: c.Wikidata.RequestsPerSecond,
		CacheTTL:          cacheTTL,
		Logger:            logger,
	}
}

func (c LogConfig) level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.Level))
	return l, err
}

// NewLogger returns a logger writing to w in the configured format, at the
// configured level.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
