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

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pii-scanner/pii-scanner/internal/common/config"
	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/connector"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/correlation"
	"github.com/pii-scanner/pii-scanner/internal/detection/ner"
	orch "github.com/pii-scanner/pii-scanner/internal/orchestrator"
	"github.com/pii-scanner/pii-scanner/internal/store"
)

var (
	cfgFile string

	// cfg, orchestrator and memStore are initialized in
	// PersistentPreRunE, once the config file and every subcommand's own
	// flags (read here by the connector factory and the metadata
	// extractor) have been parsed.
	cfg          *config.Config
	orchestrator interfaces.Orchestrator
	memStore     *store.MemoryStore
	wsSink       *orch.WebSocketEventSink
)

var rootCmd = &cobra.Command{
	Use:   "piiscan",
	Short: "piiscan discovers PII and quasi-identifiers in relational databases.",
	Long: `piiscan connects to a relational database, samples its columns, and
reports which ones carry personally identifiable information or act as
quasi-identifiers when combined with others.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// An empty cfgFile lets config.Load search "./piiscan.yaml" and
		// "$HOME/piiscan.yaml", falling back to defaults if neither exists.
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		logger.InitGlobalLogger(&cfg.Logger)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		nerClient, err := buildNerClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to build NER client: %w", err)
		}

		memStore = store.NewMemoryStore()
		wsSink = orch.NewWebSocketEventSink()

		orchestrator = orch.New(
			orch.DetectionSettings{
				HeuristicThreshold:           cfg.Detection.HeuristicThreshold,
				RegexThreshold:               cfg.Detection.RegexThreshold,
				NerThreshold:                 cfg.Detection.NerThreshold,
				ReportingThreshold:           cfg.Detection.ReportingThreshold,
				StopPipelineOnHighConfidence: cfg.Detection.StopPipelineOnHighConfidence,
				LowCardinalityThreshold:      cfg.QI.LowCardinalityThreshold,
				HighCardinalityThreshold:     cfg.QI.HighCardinalityThreshold,
				MaxNerSamples:                cfg.NER.MaxSamples,
			},
			qiAnalyzerConfig(cfg),
			orch.SamplingSettings{
				DefaultSize:               cfg.Sampling.DefaultSize,
				MaxConcurrentDbQueries:    cfg.Sampling.MaxConcurrentDbQueries,
				EntropyCalculationEnabled: cfg.Sampling.EntropyCalculationEnabled,
			},
			orch.Dependencies{
				ConnectorFactory:  connectorFactory,
				MetadataExtractor: connector.NewInformationSchemaExtractor(scanCatalog),
				NerClient:         nerClient,
				Store:             memStore,
				ExternalSink:      wsSink,
			},
		)

		return nil
	},
}

// connectorFactory treats connectionID as "driver::productName::dsn",
// keeping the CLI free of a separate connection registry: one
// connectionID is both the opaque handle the core expects and
// everything needed to open it.
func connectorFactory(_ context.Context, connectionID string) (interfaces.Connector, error) {
	parts := strings.SplitN(connectionID, "::", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed connection id %q, expected driver::product::dsn", connectionID)
	}
	driverName, productName, dsn := parts[0], parts[1], parts[2]
	return connector.NewSQLConnector(driverName, dsn, productName)
}

func buildNerClient(cfg *config.Config) (interfaces.NerClient, error) {
	switch cfg.NER.Provider {
	case "", "none":
		return nil, nil
	case "http":
		return ner.NewHTTPClient(ner.Config{
			URL:                  cfg.NER.URL,
			TimeoutSeconds:       cfg.NER.TimeoutSeconds,
			RetryAttempts:        cfg.NER.RetryAttempts,
			FailureThreshold:     cfg.NER.CircuitBreaker.FailureThreshold,
			ResetTimeoutSeconds:  cfg.NER.CircuitBreaker.ResetTimeoutSeconds,
			MaxRequestsPerSecond: cfg.NER.MaxRequestsPerSecond,
		}), nil
	case "openai":
		return ner.NewOpenAIClient(cfg.NER.APIKey, cfg.NER.Model, cfg.NER.URL)
	case "gemini":
		return ner.NewGeminiClient(context.Background(), cfg.NER.APIKey, cfg.NER.Model)
	default:
		return nil, fmt.Errorf("unknown NER provider %q", cfg.NER.Provider)
	}
}

func qiAnalyzerConfig(cfg *config.Config) correlation.Config {
	return correlation.Config{
		MinCorrelationCoefficient:      cfg.QI.MinCorrelationCoefficient,
		MaxCorrelationColumnsToAnalyze: cfg.QI.MaxCorrelationColumnsToAnalyze,
		MinGroupSize:                   cfg.QI.MinGroupSize,
		MaxGroupSize:                   cfg.QI.MaxGroupSize,
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./piiscan.yaml or $HOME/piiscan.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of piiscan",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("piiscan v0.1.0")
		},
	})
}
