/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunable configuration for guardian.
// The dedup thresholds and score weights are deliberately configuration,
// not constants: the right values are policy, not engineering.
type Config struct {
	Runner     RunnerConfig     `mapstructure:"runner"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Score      ScoreConfig      `mapstructure:"score"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Output     OutputConfig     `mapstructure:"output"`
	Policy     PolicyConfig     `mapstructure:"policy"`
}

// RunnerConfig controls analyzer execution.
type RunnerConfig struct {
	// If Concurrency > 0 it is used directly. Otherwise ConcurrencyPercent
	// determines worker count as a percentage of CPU cores (<=0 defaults to 50).
	Concurrency        int           `mapstructure:"concurrency"`
	ConcurrencyPercent int           `mapstructure:"concurrency_percent"`
	ToolTimeout        time.Duration `mapstructure:"tool_timeout"`
	RunTimeout         time.Duration `mapstructure:"run_timeout"`
	Semgrep            bool          `mapstructure:"semgrep"`
}

// DedupConfig controls finding deduplication.
type DedupConfig struct {
	LineTolerance int     `mapstructure:"line_tolerance"`
	Similarity    float64 `mapstructure:"similarity"`
}

// ScoreConfig holds severity weights and contextual modifiers.
type ScoreConfig struct {
	Weights   WeightsConfig   `mapstructure:"weights"`
	Modifiers ModifiersConfig `mapstructure:"modifiers"`
}

// WeightsConfig maps severity levels to score points.
type WeightsConfig struct {
	Critical int `mapstructure:"critical"`
	High     int `mapstructure:"high"`
	Medium   int `mapstructure:"medium"`
	Low      int `mapstructure:"low"`
	Info     int `mapstructure:"info"`
}

// ModifiersConfig holds bounded contextual score deltas.
type ModifiersConfig struct {
	CIChanges       int `mapstructure:"ci_changes"`
	ManifestChanges int `mapstructure:"manifest_changes"`
	CleanWithTests  int `mapstructure:"clean_with_tests"`
}

// SummarizerConfig configures the external summarization collaborator.
type SummarizerConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxChars  int    `mapstructure:"max_chars"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// OutputConfig configures the file sink.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Bundle bool   `mapstructure:"bundle"`
}

// PolicyConfig points at an optional per-tool threshold policy file.
type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always unmarshal cleanly
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from .guardian.yaml (repo root, then home)
// and GUARDIAN_* environment variables, layered over defaults.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(".guardian")
	v.SetConfigType("yaml")
	if root != "" {
		v.AddConfigPath(root)
	}
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; anything else is a real error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runner.concurrency", 0)
	v.SetDefault("runner.concurrency_percent", 50)
	v.SetDefault("runner.tool_timeout", 2*time.Minute)
	v.SetDefault("runner.run_timeout", 10*time.Minute)
	v.SetDefault("runner.semgrep", false)

	v.SetDefault("dedup.line_tolerance", 2)
	v.SetDefault("dedup.similarity", 0.82)

	v.SetDefault("score.weights.critical", 25)
	v.SetDefault("score.weights.high", 10)
	v.SetDefault("score.weights.medium", 3)
	v.SetDefault("score.weights.low", 1)
	v.SetDefault("score.weights.info", 0)

	v.SetDefault("score.modifiers.ci_changes", 5)
	v.SetDefault("score.modifiers.manifest_changes", 5)
	v.SetDefault("score.modifiers.clean_with_tests", -5)

	v.SetDefault("summarizer.provider", "openai")
	v.SetDefault("summarizer.model", "gpt-4.1-mini")
	v.SetDefault("summarizer.max_chars", 1500)
	v.SetDefault("summarizer.api_key_env", "OPENAI_API_KEY")

	v.SetDefault("output.dir", "analysis_results")
	v.SetDefault("output.bundle", true)

	v.SetDefault("policy.path", "")
}
