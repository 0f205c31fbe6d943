package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader creates a loader that reads an explicit config file instead of
// searching for one. The file must exist.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{rootDir: rootDir, configFile: configFile}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (ARCHAEOLOGIST_*, plus NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, PORT)
// 2. Config file (archaeologist.yaml in rootDir or $HOME/.archaeologist)
// 3. Default values
//
// A .env file in rootDir is loaded into the process environment first. Variables
// already set in the environment are not overwritten.
func (l *loader) Load() (*Config, error) {
	if err := godotenv.Load(filepath.Join(l.rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("archaeologist")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".archaeologist"))
		}
	}

	v.SetEnvPrefix("ARCHAEOLOGIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The original deployment was configured through these variables; keep them working.
	v.BindEnv("store.neo4j.uri", "ARCHAEOLOGIST_STORE_NEO4J_URI", "NEO4J_URI")
	v.BindEnv("store.neo4j.user", "ARCHAEOLOGIST_STORE_NEO4J_USER", "NEO4J_USER")
	v.BindEnv("store.neo4j.password", "ARCHAEOLOGIST_STORE_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	v.BindEnv("store.neo4j.database")
	v.BindEnv("store.backend")
	v.BindEnv("store.sqlite.path")
	v.BindEnv("server.addr")
	v.BindEnv("server.cache_ttl")
	v.BindEnv("acquire.workdir")
	v.BindEnv("acquire.depth")
	v.BindEnv("acquire.git_path")
	v.BindEnv("discovery.max_files")
	v.BindEnv("discovery.respect_gitignore")
	v.BindEnv("graph.row_limit")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" && os.Getenv("ARCHAEOLOGIST_SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.neo4j.uri", defaults.Store.Neo4j.URI)
	v.SetDefault("store.neo4j.user", defaults.Store.Neo4j.User)
	v.SetDefault("store.neo4j.password", defaults.Store.Neo4j.Password)
	v.SetDefault("store.neo4j.database", defaults.Store.Neo4j.Database)
	v.SetDefault("store.sqlite.path", defaults.Store.SQLite.Path)

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("server.cache_ttl", defaults.Server.CacheTTL)

	v.SetDefault("acquire.workdir", defaults.Acquire.WorkDir)
	v.SetDefault("acquire.depth", defaults.Acquire.Depth)
	v.SetDefault("acquire.git_path", defaults.Acquire.GitPath)

	v.SetDefault("discovery.max_files", defaults.Discovery.MaxFiles)
	v.SetDefault("discovery.ignore", defaults.Discovery.Ignore)
	v.SetDefault("discovery.respect_gitignore", defaults.Discovery.RespectGitignore)

	v.SetDefault("parsing.disabled_grammars", defaults.Parsing.DisabledGrammars)
	v.SetDefault("resolve.root_markers", defaults.Resolve.RootMarkers)
	v.SetDefault("graph.row_limit", defaults.Graph.RowLimit)
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
