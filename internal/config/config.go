package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the poisearch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Search     SearchConfig     `yaml:"search"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds recall settings: index layout, sub-query limits and clause boosts.
type SearchConfig struct {
	Index            string      `yaml:"index"`
	KeyPrefix        string      `yaml:"key_prefix"`
	Language         string      `yaml:"language"` // FT stemming language, empty = server default
	EnsureIndex      bool        `yaml:"ensure_index"`
	DefaultRadiusKm  float64     `yaml:"default_radius_km"`
	MaxRadiusKm      float64     `yaml:"max_radius_km"`
	Size             int         `yaml:"size"`
	DedupPrecision   int         `yaml:"dedup_precision"`
	TimeoutMs        int         `yaml:"timeout_ms"`
	Retries          int         `yaml:"retries"`
	MaxParallel      int         `yaml:"max_parallel"`       // 0 = unlimited
	Scorer           string      `yaml:"scorer"`             // FT.SEARCH SCORER, empty = server default
	RequestTimeoutMs int         `yaml:"request_timeout_ms"` // whole-pipeline deadline per search request
	Boosts           BoostConfig `yaml:"boosts"`
}

// BoostConfig holds per-clause boost weights.
type BoostConfig struct {
	Phrase   float64 `yaml:"phrase"`
	Keyword  float64 `yaml:"keyword"`
	Info     float64 `yaml:"info"`
	Name     float64 `yaml:"name"`
	Address  float64 `yaml:"address"`
	Rewrite  float64 `yaml:"rewrite"`
	Category float64 `yaml:"category"`
}

// RankingConfig holds composite scoring settings.
type RankingConfig struct {
	DistSigma float64       `yaml:"dist_sigma"`
	PopMax    int           `yaml:"pop_max"`
	TopK      int           `yaml:"top_k"`
	Weights   WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the base (relevance preference) weights.
type WeightsConfig struct {
	Relevance  *float64 `yaml:"relevance"`
	Distance   *float64 `yaml:"distance"`
	Popularity *float64 `yaml:"popularity"`
}

// GenerationConfig holds text-generation provider settings.
type GenerationConfig struct {
	Provider    string       `yaml:"provider"` // openai, http (default: openai)
	BaseURL     string       `yaml:"base_url"`
	APIKey      string       `yaml:"api_key"`
	Model       string       `yaml:"model"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature *float64     `yaml:"temperature"`
	TimeoutMs   int          `yaml:"timeout_ms"`
	Retries     int          `yaml:"retries"`
	Cache       CacheConfig  `yaml:"cache"`
	Budget      BudgetConfig `yaml:"budget"`
}

// CacheConfig holds generation cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
	LRUSize int  `yaml:"lru_size"`
}

// BudgetConfig caps successful generation calls per UTC day and month (0 = unlimited).
type BudgetConfig struct {
	DailyLimit   int64  `yaml:"daily_limit"`
	MonthlyLimit int64  `yaml:"monthly_limit"`
	Action       string `yaml:"action"` // reject, warn (default: reject)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool { return b.DailyLimit > 0 || b.MonthlyLimit > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applySearchDefaults()
	c.applyRankingDefaults()
	c.applyGenerationDefaults()
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.Index == "" {
		s.Index = "poi:idx"
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "poi:"
	}
	if s.DefaultRadiusKm <= 0 {
		s.DefaultRadiusKm = 5.0
	}
	if s.MaxRadiusKm <= 0 {
		s.MaxRadiusKm = 50.0
	}
	if s.Size <= 0 {
		s.Size = 10
	}
	if s.DedupPrecision <= 0 {
		s.DedupPrecision = 3
	}
	if s.TimeoutMs <= 0 {
		s.TimeoutMs = 2000
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	if s.RequestTimeoutMs <= 0 {
		s.RequestTimeoutMs = 25000
	}
	b := &s.Boosts
	setIfZero(&b.Phrase, 5.0)
	setIfZero(&b.Keyword, 2.0)
	setIfZero(&b.Info, 1.5)
	setIfZero(&b.Name, 1.5)
	setIfZero(&b.Address, 1.2)
	setIfZero(&b.Rewrite, 1.2)
	setIfZero(&b.Category, 2.0)
}

func (c *Config) applyRankingDefaults() {
	r := &c.Ranking
	if r.DistSigma <= 0 {
		r.DistSigma = 2.0
	}
	if r.PopMax <= 0 {
		r.PopMax = 100
	}
	if r.TopK <= 0 {
		r.TopK = 10
	}
	// Weights are pointers: an explicit 0 is a valid weight.
	if r.Weights.Relevance == nil {
		r.Weights.Relevance = ptr(0.5)
	}
	if r.Weights.Distance == nil {
		r.Weights.Distance = ptr(0.3)
	}
	if r.Weights.Popularity == nil {
		r.Weights.Popularity = ptr(0.2)
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.Provider == "" {
		g.Provider = "openai"
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = 512
	}
	if g.Temperature == nil {
		g.Temperature = ptr(0.7)
	}
	if g.TimeoutMs <= 0 {
		g.TimeoutMs = 8000
	}
	if g.Retries < 0 {
		g.Retries = 0
	}
	if g.Cache.TTLSec <= 0 {
		g.Cache.TTLSec = 3600
	}
	if g.Cache.LRUSize <= 0 {
		g.Cache.LRUSize = 1024
	}
	if g.Budget.Action == "" {
		g.Budget.Action = "reject"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.DedupPrecision > 10 {
		return fmt.Errorf("search.dedup_precision must be between 0 and 10, got %d", c.Search.DedupPrecision)
	}
	if c.Search.DefaultRadiusKm > c.Search.MaxRadiusKm {
		return fmt.Errorf("search.default_radius_km (%g) exceeds search.max_radius_km (%g)",
			c.Search.DefaultRadiusKm, c.Search.MaxRadiusKm)
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.Ranking.Weights.validate(); err != nil {
		return err
	}
	switch c.Generation.Provider {
	case "openai", "http":
		// ok
	default:
		return fmt.Errorf("generation.provider must be \"openai\" or \"http\", got %q", c.Generation.Provider)
	}
	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation.base_url is required")
	}
	if b := c.Generation.Budget; b.DailyLimit < 0 || b.MonthlyLimit < 0 {
		return fmt.Errorf("generation.budget limits must be non-negative")
	}
	switch c.Generation.Budget.Action {
	case "reject", "warn":
		// ok
	default:
		return fmt.Errorf("generation.budget.action must be \"reject\" or \"warn\", got %q", c.Generation.Budget.Action)
	}
	return nil
}

// validateTimeouts keeps a search request inside the HTTP write deadline.
func (c *Config) validateTimeouts() error {
	writeMs := c.HTTP.WriteTimeoutSec * 1000
	if c.Search.RequestTimeoutMs >= writeMs {
		return fmt.Errorf("search.request_timeout_ms (%d) must be below http.write_timeout_sec (%d ms)",
			c.Search.RequestTimeoutMs, writeMs)
	}
	if gen := c.Generation.TimeoutMs * (c.Generation.Retries + 1); gen >= c.Search.RequestTimeoutMs {
		return fmt.Errorf("generation.timeout_ms x attempts (%d ms) must be below search.request_timeout_ms (%d)",
			gen, c.Search.RequestTimeoutMs)
	}
	return nil
}

func (w WeightsConfig) validate() error {
	if w.Relevance == nil || w.Distance == nil || w.Popularity == nil {
		return fmt.Errorf("ranking.weights must be fully specified")
	}
	rel, dist, pop := *w.Relevance, *w.Distance, *w.Popularity
	if rel < 0 || dist < 0 || pop < 0 {
		return fmt.Errorf("ranking.weights must be non-negative")
	}
	if sum := rel + dist + pop; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("ranking.weights must sum to 1, got %g", sum)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func setIfZero(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

func ptr(v float64) *float64 { return &v }
