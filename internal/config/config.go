// Package config provides configuration loading for archaeologist.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (ARCHAEOLOGIST_*, and the legacy NEO4J_* / PORT names)
//  2. Config file (archaeologist.yaml)
//  3. Built-in defaults
//
// A .env file next to the config is loaded into the environment before
// anything else is read.
package config

import "time"

// Config represents the complete archaeologist configuration.
// It can be loaded from archaeologist.yaml with environment variable overrides.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Acquire   AcquireConfig   `yaml:"acquire" mapstructure:"acquire"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Parsing   ParsingConfig   `yaml:"parsing" mapstructure:"parsing"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Graph     GraphConfig     `yaml:"graph" mapstructure:"graph"`
}

// StoreConfig selects and configures the graph store.
type StoreConfig struct {
	Backend string       `yaml:"backend" mapstructure:"backend"` // "neo4j" or "sqlite"
	Neo4j   Neo4jConfig  `yaml:"neo4j" mapstructure:"neo4j"`
	SQLite  SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"`
}

// Neo4jConfig holds the Bolt connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"` // empty means server default
}

// SQLiteConfig holds the embedded store settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"` // snapshot cache lifetime, 0 disables
}

// AcquireConfig configures repository acquisition.
type AcquireConfig struct {
	WorkDir string `yaml:"workdir" mapstructure:"workdir"` // parent of the per-run clone directories
	Depth   int    `yaml:"depth" mapstructure:"depth"`     // clone depth, 0 means full history
	GitPath string `yaml:"git_path" mapstructure:"git_path"`
}

// DiscoveryConfig defines which files are eligible for ingestion.
type DiscoveryConfig struct {
	MaxFiles         int      `yaml:"max_files" mapstructure:"max_files"`
	Ignore           []string `yaml:"ignore" mapstructure:"ignore"` // extra glob patterns to ignore
	RespectGitignore bool     `yaml:"respect_gitignore" mapstructure:"respect_gitignore"`
}

// ParsingConfig configures the grammar registry.
type ParsingConfig struct {
	DisabledGrammars []string `yaml:"disabled_grammars" mapstructure:"disabled_grammars"`
}

// ResolveConfig configures specifier resolution.
type ResolveConfig struct {
	RootMarkers []string `yaml:"root_markers" mapstructure:"root_markers"`
}

// GraphConfig configures the graph reader.
type GraphConfig struct {
	RowLimit int `yaml:"row_limit" mapstructure:"row_limit"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "neo4j",
			Neo4j: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				User:     "neo4j",
				Password: "password",
			},
			SQLite: SQLiteConfig{
				Path: "archaeologist.db",
			},
		},
		Server: ServerConfig{
			Addr:        ":3000",
			CORSOrigins: []string{"*"},
			CacheTTL:    30 * time.Second,
		},
		Acquire: AcquireConfig{
			WorkDir: "temp_repos",
			Depth:   1,
			GitPath: "git",
		},
		Discovery: DiscoveryConfig{
			MaxFiles: 500,
			Ignore:   []string{},
		},
		Parsing: ParsingConfig{
			DisabledGrammars: []string{},
		},
		Resolve: ResolveConfig{
			RootMarkers: []string{"src/"},
		},
		Graph: GraphConfig{
			RowLimit: 1000,
		},
	}
}
