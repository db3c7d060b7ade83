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

// Package ui provides components for rendering CLI user interfaces, like formatters and progress bars.
package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Formatter defines the interface for components that format data for CLI output.
type Formatter interface {
	Print(data interface{}) error
}

// NewFormatter returns the formatter matching format, defaulting to the
// human-readable text formatter for anything unrecognized.
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &jsonFormatter{}
	case "yaml":
		return &yamlFormatter{}
	default:
		return &textFormatter{}
	}
}

type jsonFormatter struct{}

func (f *jsonFormatter) Print(data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data to json: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

type yamlFormatter struct{}

func (f *yamlFormatter) Print(data interface{}) error {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data to yaml: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

type textFormatter struct{}

// Print delegates to a type-specific renderer, falling back to JSON for
// anything it doesn't know how to format.
func (f *textFormatter) Print(data interface{}) error {
	switch v := data.(type) {
	case *models.Report:
		return f.printReport(v)
	default:
		color.Yellow("Warning: text formatter not implemented for this data type. Falling back to JSON.")
		return NewFormatter("json").Print(data)
	}
}

func (f *textFormatter) printReport(report *models.Report) error {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	riskColored := func(r models.TableRisk) string {
		switch r {
		case models.RiskCritical, models.RiskHigh:
			return red(string(r))
		case models.RiskMedium:
			return yellow(string(r))
		default:
			return green(string(r))
		}
	}

	fmt.Printf("%s %s\n", bold("PII Scan Report"), report.JobID)
	fmt.Printf("Connection: %s   Generated: %s\n", report.ConnectionID, report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Tables: %d   Columns: %d   PII columns: %d\n", report.Counts.Tables, report.Counts.Columns, report.Counts.Pii)
	fmt.Printf("Overall risk: %s\n", riskColored(report.Risk.OverallRisk))

	if report.Counts.Pii == 0 {
		fmt.Println(green("\nNo PII detected."))
	} else {
		fmt.Printf("\nDetected PII columns:\n")
		for _, r := range report.Results {
			if !r.HasPii() {
				continue
			}
			fmt.Printf("  [%s] %-50s %.2f  (%s)\n", bold(r.HighestConfidenceType), r.ColumnRef.QualifiedName(), r.HighestConfidenceScore, joinMethods(r.DetectionMethods))
		}
	}

	if len(report.Groups) > 0 {
		fmt.Printf("\nQuasi-identifier groups:\n")
		for _, g := range report.Groups {
			cols := make([]string, 0, len(g.Columns))
			for _, c := range g.Columns {
				cols = append(cols, c.QualifiedName())
			}
			fmt.Printf("  %s  score=%.2f  columns: %s\n", g.ID, g.RiskScore, strings.Join(cols, ", "))
		}
	}

	if len(report.Risk.TableRisks) > 0 {
		fmt.Printf("\nPer-table risk:\n")
		for _, tr := range report.Risk.TableRisks {
			k := "INF"
			if tr.KAnonymity < models.InfiniteK {
				k = fmt.Sprintf("%d", tr.KAnonymity)
			}
			fmt.Printf("  %-40s k=%-6s %s\n", tr.Table.QualifiedName(), k, riskColored(tr.Risk))
		}
	}

	if len(report.Risk.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, rec := range report.Risk.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}

	return nil
}

func joinMethods(methods []models.StrategyName) string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return strings.Join(names, "+")
}
