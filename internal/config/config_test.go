package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 8080},
		Database:   DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Generation: GenerationConfig{BaseURL: "http://llm.local/v1"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.Provider = "grpc"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid provider")
	}

	expected := `generation.provider must be "openai" or "http", got "grpc"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.BaseURL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing generation.base_url")
	}
}

func TestValidate_Weights(t *testing.T) {
	tests := []struct {
		name           string
		rel, dist, pop float64
		wantErr        bool
	}{
		{"default", 0.5, 0.3, 0.2, false},
		{"all relevance", 1, 0, 0, false},
		{"sum above one", 0.5, 0.5, 0.5, true},
		{"sum below one", 0.1, 0.1, 0.1, true},
		{"negative", 1.2, -0.1, -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Ranking.Weights = WeightsConfig{
				Relevance:  ptr(tt.rel),
				Distance:   ptr(tt.dist),
				Popularity: ptr(tt.pop),
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Budget(t *testing.T) {
	tests := []struct {
		name    string
		budget  BudgetConfig
		wantErr bool
	}{
		{"disabled", BudgetConfig{Action: "reject"}, false},
		{"daily warn", BudgetConfig{DailyLimit: 1000, Action: "warn"}, false},
		{"negative", BudgetConfig{MonthlyLimit: -1, Action: "reject"}, true},
		{"bad action", BudgetConfig{DailyLimit: 10, Action: "block"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Generation.Budget = tt.budget
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RadiusAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultRadiusKm = 60

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default radius above max")
	}
}

func TestValidate_Timeouts(t *testing.T) {
	tests := []struct {
		name      string
		writeSec  int
		requestMs int
		genMs     int
		retries   int
		wantErr   bool
	}{
		{"defaults fit", 30, 25000, 8000, 1, false},
		{"request equals write deadline", 30, 30000, 8000, 1, true},
		{"request above write deadline", 30, 45000, 8000, 1, true},
		{"generation attempts exceed request", 30, 25000, 15000, 1, true},
		{"single attempt fits", 30, 25000, 15000, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.HTTP.WriteTimeoutSec = tt.writeSec
			cfg.Search.RequestTimeoutMs = tt.requestMs
			cfg.Generation.TimeoutMs = tt.genMs
			cfg.Generation.Retries = tt.retries

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Search.Index != "poi:idx" {
		t.Errorf("expected Index='poi:idx', got %q", cfg.Search.Index)
	}
	if cfg.Search.KeyPrefix != "poi:" {
		t.Errorf("expected KeyPrefix='poi:', got %q", cfg.Search.KeyPrefix)
	}
	if cfg.Search.DefaultRadiusKm != 5.0 {
		t.Errorf("expected DefaultRadiusKm=5, got %g", cfg.Search.DefaultRadiusKm)
	}
	if cfg.Search.Size != 10 {
		t.Errorf("expected Size=10, got %d", cfg.Search.Size)
	}
	if cfg.Search.DedupPrecision != 3 {
		t.Errorf("expected DedupPrecision=3, got %d", cfg.Search.DedupPrecision)
	}
	if cfg.Search.Boosts.Phrase != 5.0 {
		t.Errorf("expected Phrase boost=5, got %g", cfg.Search.Boosts.Phrase)
	}
	if cfg.Search.Boosts.Address != 1.2 {
		t.Errorf("expected Address boost=1.2, got %g", cfg.Search.Boosts.Address)
	}
	if cfg.Ranking.DistSigma != 2.0 {
		t.Errorf("expected DistSigma=2, got %g", cfg.Ranking.DistSigma)
	}
	if cfg.Ranking.PopMax != 100 {
		t.Errorf("expected PopMax=100, got %d", cfg.Ranking.PopMax)
	}
	if cfg.Ranking.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Ranking.TopK)
	}
	if *cfg.Ranking.Weights.Relevance != 0.5 || *cfg.Ranking.Weights.Distance != 0.3 || *cfg.Ranking.Weights.Popularity != 0.2 {
		t.Errorf("unexpected default weights: %+v", cfg.Ranking.Weights)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected Provider='openai', got %q", cfg.Generation.Provider)
	}
	if cfg.Generation.MaxTokens != 512 {
		t.Errorf("expected MaxTokens=512, got %d", cfg.Generation.MaxTokens)
	}
	if *cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected Temperature=0.7, got %g", *cfg.Generation.Temperature)
	}
	if cfg.Search.RequestTimeoutMs != 25000 {
		t.Errorf("expected RequestTimeoutMs=25000, got %d", cfg.Search.RequestTimeoutMs)
	}
	if cfg.Generation.TimeoutMs != 8000 {
		t.Errorf("expected generation TimeoutMs=8000, got %d", cfg.Generation.TimeoutMs)
	}
	if cfg.Generation.Budget.Action != "reject" || cfg.Generation.Budget.Enabled() {
		t.Errorf("unexpected default budget: %+v", cfg.Generation.Budget)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Search:     SearchConfig{KeyPrefix: "place:", Size: 25, Boosts: BoostConfig{Phrase: 3}},
		Ranking:    RankingConfig{Weights: WeightsConfig{Distance: ptr(0)}},
		Generation: GenerationConfig{Temperature: ptr(0)},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Search.KeyPrefix != "place:" {
		t.Errorf("expected KeyPrefix='place:', got %q", cfg.Search.KeyPrefix)
	}
	if cfg.Search.Size != 25 {
		t.Errorf("expected Size=25, got %d", cfg.Search.Size)
	}
	if cfg.Search.Boosts.Phrase != 3 {
		t.Errorf("expected Phrase boost=3, got %g", cfg.Search.Boosts.Phrase)
	}
	if *cfg.Ranking.Weights.Distance != 0 {
		t.Errorf("explicit zero distance weight overridden: %g", *cfg.Ranking.Weights.Distance)
	}
	if *cfg.Generation.Temperature != 0 {
		t.Errorf("explicit zero temperature overridden: %g", *cfg.Generation.Temperature)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("POISEARCH_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${POISEARCH_TEST_KEY}\nb: ${POISEARCH_UNSET_VAR:-fallback}\nc: ${POISEARCH_UNSET_VAR}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := strings.Join([]string{
		"http:",
		"  port: 9090",
		"database:",
		"  addrs: [\"localhost:6379\"]",
		"generation:",
		"  provider: http",
		"  base_url: http://llm.local",
		"search:",
		"  default_radius_km: 3",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Generation.Provider != "http" {
		t.Errorf("expected provider http, got %q", cfg.Generation.Provider)
	}
	if cfg.Search.DefaultRadiusKm != 3 {
		t.Errorf("expected radius 3, got %g", cfg.Search.DefaultRadiusKm)
	}
	if cfg.Search.Size != 10 {
		t.Errorf("defaults not applied: size %d", cfg.Search.Size)
	}
}
