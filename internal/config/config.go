package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the ingestion pipeline.
type Config struct {
	// Deployment mode: "development", "packaged", "ci" (see mode.go)
	Mode string `yaml:"mode"`

	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Resolution ResolutionConfig `yaml:"resolution"`
	IgnoreRule IgnoreConfig     `yaml:"ignore"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// WorkspaceConfig controls where cloned repositories and run artifacts live.
type WorkspaceConfig struct {
	Directory    string `yaml:"directory"`     // overridable by WORKSPACE_DIR; the clone helpers do not read it (they clone under ~/.coderisk/repos)
	ArtifactsDir string `yaml:"artifacts_dir"` // where --step JSON files are written
	StateFile    string `yaml:"state_file"`    // commit_history.json path
	LockFile     string `yaml:"lock_file"`     // bbolt run-lock path
}

type PipelineConfig struct {
	ParserWorkers    int           `yaml:"parser_workers"`     // default 4 (§5)
	WriteQueueDepth  int           `yaml:"write_queue_depth"`  // default 64 (§5)
	FileParseTimeout time.Duration `yaml:"file_parse_timeout"` // per-file parse timeout
	QueryTimeout     time.Duration `yaml:"query_timeout"`      // default 30s (§5)
	MaxFileSize      int64         `yaml:"max_file_size"`      // default 1 MiB (§4.1)
}

type ResolutionConfig struct {
	Strategy  string `yaml:"strategy"`  // join | hashmap | sharded (§4.4)
	Immediate bool   `yaml:"immediate"` // true = immediate mode; resolution still runs after all writes (false = bulk, default)
	Shards    int    `yaml:"shards"`    // used only by the sharded strategy
}

type IgnoreConfig struct {
	ExtraPatterns []string `yaml:"extra_patterns"` // additional doublestar globs
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty = disabled
}

// Default returns default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	workspaceRoot := filepath.Join(homeDir, ".codegraph")
	return &Config{
		Mode: "team",
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Workspace: WorkspaceConfig{
			Directory:    filepath.Join(workspaceRoot, "repos"),
			ArtifactsDir: filepath.Join(workspaceRoot, "artifacts"),
			StateFile:    filepath.Join(workspaceRoot, "commit_history.json"),
			LockFile:     filepath.Join(workspaceRoot, "pipeline.lock"),
		},
		Pipeline: PipelineConfig{
			ParserWorkers:    4,
			WriteQueueDepth:  64,
			FileParseTimeout: 30 * time.Second,
			QueryTimeout:     30 * time.Second,
			MaxFileSize:      1024 * 1024,
		},
		Resolution: ResolutionConfig{
			Strategy:  "hashmap",
			Immediate: false,
			Shards:    16,
		},
	}
}

// Load loads configuration from defaults, then the config file, then the
// environment. .env files are read into the environment first but never
// override a variable that is already set, so the real environment wins.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("pipeline", cfg.Pipeline)
	v.SetDefault("resolution", cfg.Resolution)
	v.SetDefault("metrics", cfg.Metrics)

	v.SetEnvPrefix("CODEGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".codegraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".codegraph"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".codegraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the environment variables named in spec.md §6:
// NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, NEO4J_DATABASE, and WORKSPACE_DIR,
// which sets Workspace.Directory.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		cfg.Neo4j.Database = v
	}
	if v := os.Getenv("WORKSPACE_DIR"); v != "" {
		cfg.Workspace.Directory = expandPath(v)
	}
	if v := os.Getenv("CODEGRAPH_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("PARSER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.ParserWorkers = n
		}
	}
	if v := os.Getenv("RESOLUTION_STRATEGY"); v != "" {
		cfg.Resolution.Strategy = v
	}
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes configuration to file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("mode", c.Mode)
	v.Set("neo4j", c.Neo4j)
	v.Set("workspace", c.Workspace)
	v.Set("pipeline", c.Pipeline)
	v.Set("resolution", c.Resolution)
	v.Set("metrics", c.Metrics)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
