// Copyright © 2024 KubeStack-AI Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the scanner's configuration. A
// single Config struct is passed explicitly at scan submission; there
// is no process-global mutable config (DESIGN NOTES, spec.md §9).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for one scanner process.
type Config struct {
	Logger    logger.Config   `mapstructure:"logger"`
	Detection DetectionConfig `mapstructure:"detection"`
	QI        QIConfig        `mapstructure:"qi"`
	Sampling  SamplingConfig  `mapstructure:"sampling"`
	NER       NERConfig       `mapstructure:"ner"`
	Dialects  DialectsConfig  `mapstructure:"dialects"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// DetectionConfig holds the thresholds and pipeline switches of §4.4/§6.
type DetectionConfig struct {
	HeuristicThreshold           float64 `mapstructure:"heuristic_threshold" validate:"gte=0,lte=1"`
	RegexThreshold               float64 `mapstructure:"regex_threshold" validate:"gte=0,lte=1"`
	NerThreshold                 float64 `mapstructure:"ner_threshold" validate:"gte=0,lte=1"`
	ReportingThreshold           float64 `mapstructure:"reporting_threshold" validate:"gte=0,lte=1"`
	StopPipelineOnHighConfidence bool    `mapstructure:"stop_pipeline_on_high_confidence"`
	EntropyEnabled               bool    `mapstructure:"entropy_enabled"`
	PatternBankPath              string  `mapstructure:"pattern_bank_path"`
}

// QIConfig holds the quasi-identifier correlation/grouping parameters
// of §4.5/§6.
type QIConfig struct {
	ConfidenceThreshold            float64 `mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
	MinCorrelationCoefficient      float64 `mapstructure:"min_correlation_coefficient" validate:"gte=0,lte=1"`
	MaxCorrelationColumnsToAnalyze int     `mapstructure:"max_correlation_columns_to_analyze" validate:"gt=0"`
	MinGroupSize                   int     `mapstructure:"min_group_size" validate:"gte=1"`
	MaxGroupSize                   int     `mapstructure:"max_group_size" validate:"gtefield=MinGroupSize"`
	LowCardinalityThreshold        float64 `mapstructure:"low_cardinality_threshold" validate:"gte=0,lte=1"`
	HighCardinalityThreshold       float64 `mapstructure:"high_cardinality_threshold" validate:"gte=0,lte=1,gtefield=LowCardinalityThreshold"`
}

// SamplingConfig holds the parallel sampler's parameters of §4.2/§6.
type SamplingConfig struct {
	DefaultSize               int    `mapstructure:"default_size" validate:"gt=0"`
	MaxConcurrentDbQueries    int    `mapstructure:"max_concurrent_db_queries" validate:"gt=0"`
	EntropyCalculationEnabled bool   `mapstructure:"entropy_calculation_enabled"`
	DefaultMethod             string `mapstructure:"default_method" validate:"oneof=RANDOM FIRST_N STRATIFIED"`
}

// NERConfig holds the NER collaborator's connection/resilience
// parameters of §4.3/§6.
type NERConfig struct {
	Provider             string               `mapstructure:"provider" validate:"oneof=http openai gemini none"`
	URL                  string               `mapstructure:"url"`
	APIKey               string               `mapstructure:"api_key"`
	Model                string               `mapstructure:"model"`
	TimeoutSeconds       int                  `mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxSamples           int                  `mapstructure:"max_samples" validate:"gt=0"`
	RetryAttempts        int                  `mapstructure:"retry_attempts" validate:"gte=0"`
	MaxRequestsPerSecond int                  `mapstructure:"max_requests_per_second" validate:"gte=0"`
	CircuitBreaker       CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig gates the NER strategy's circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold    int `mapstructure:"failure_threshold" validate:"gt=0"`
	ResetTimeoutSeconds int `mapstructure:"reset_timeout_seconds" validate:"gt=0"`
}

// DialectsConfig names the dialects recognized by the registry (§4.1).
// Entries beyond the four required ones may be added by a host without
// a core code change, as long as a Dialect implementation is registered
// for them.
type DialectsConfig struct {
	Recognized []string `mapstructure:"recognized"`
}

// SchedulerConfig drives the supplemental cron-based scan scheduler.
type SchedulerConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Jobs    []ScheduledJob `mapstructure:"jobs"`
}

// ScheduledJob binds a cron expression to a fixed scan template.
type ScheduledJob struct {
	Name           string `mapstructure:"name"`
	CronExpression string `mapstructure:"cron_expression"`
	ConnectionID   string `mapstructure:"connection_id"`
}

// Default returns a Config populated with every default named in
// spec.md §6.
func Default() *Config {
	return &Config{
		Logger: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "console",
		},
		Detection: DetectionConfig{
			HeuristicThreshold:           0.7,
			RegexThreshold:               0.8,
			NerThreshold:                 0.6,
			ReportingThreshold:           0.5,
			StopPipelineOnHighConfidence: true,
			EntropyEnabled:               false,
		},
		QI: QIConfig{
			ConfidenceThreshold:            0.65,
			MinCorrelationCoefficient:      0.7,
			MaxCorrelationColumnsToAnalyze: 100,
			MinGroupSize:                   1,
			MaxGroupSize:                   5,
			LowCardinalityThreshold:        0.05,
			HighCardinalityThreshold:       0.8,
		},
		Sampling: SamplingConfig{
			DefaultSize:               1000,
			MaxConcurrentDbQueries:    5,
			EntropyCalculationEnabled: false,
			DefaultMethod:             "RANDOM",
		},
		NER: NERConfig{
			Provider:             "http",
			TimeoutSeconds:       30,
			MaxSamples:           100,
			RetryAttempts:        2,
			MaxRequestsPerSecond: 20,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:    5,
				ResetTimeoutSeconds: 30,
			},
		},
		Dialects: DialectsConfig{
			Recognized: []string{"MySQL", "PostgreSQL", "Oracle", "Microsoft SQL Server"},
		},
	}
}

// Load reads configuration from cfgFile (or ./piiscan.yaml / the user's
// home directory when empty), overlays PIISCAN_-prefixed environment
// variables onto the keys the config file sets, and validates the
// result. An environment variable for a key the file does not set is
// not applied. A validation failure is a
// ConfigError per spec.md §7 and must fail scan submission before any
// stage begins.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("PIISCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName("piiscan")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file present: fall through to Unmarshal anyway.
		// viper knows no keys on this path, so PIISCAN_-prefixed env
		// vars are not applied and the defaults stand.
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate runs struct-tag validation over the whole config plus the
// few cross-field rules validator tags can't express (NER URL required
// when the http provider is selected, at least one recognized dialect).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.NER.Provider == "http" && c.NER.URL == "" {
		return fmt.Errorf("config validation: ner.url is required when ner.provider is \"http\"")
	}
	if (c.NER.Provider == "openai" || c.NER.Provider == "gemini") && c.NER.APIKey == "" {
		return fmt.Errorf("config validation: ner.api_key is required when ner.provider is %q", c.NER.Provider)
	}
	if len(c.Dialects.Recognized) == 0 {
		return fmt.Errorf("config validation: dialects.recognized must name at least one dialect")
	}
	return nil
}
