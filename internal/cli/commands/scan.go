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
	"strings"

	"github.com/spf13/cobra"

	"github.com/pii-scanner/pii-scanner/internal/cli/ui"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

var (
	outputFormat string

	// scanCatalog is read by root.go's PersistentPreRunE to build the
	// InformationSchemaExtractor before the scan command's own RunE
	// executes; cobra parses a command's local flags before running the
	// persistent pre-run hooks up its parent chain.
	scanCatalog string

	scanDriver          string
	scanProduct         string
	scanDSN             string
	scanIncludedSchemas []string
	scanIncludedTables  []string
	scanExcludedTables  []string
	scanMaxSampleSize   int
	scanWait            bool
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a database connection for PII and quasi-identifiers",
		Long: `Submits a scan job against a database connection and, by default, waits
for it to complete before printing the report.

Examples:
  piiscan scan --driver mysql --product MySQL --catalog shop \
    --dsn "user:pass@tcp(127.0.0.1:3306)/shop"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			connectionID := strings.Join([]string{scanDriver, scanProduct, scanDSN}, "::")

			req := models.ScanRequest{
				ConnectionID:    connectionID,
				IncludedSchemas: scanIncludedSchemas,
				IncludedTables:  scanIncludedTables,
				ExcludedTables:  scanExcludedTables,
				MaxSampleSize:   scanMaxSampleSize,
				SamplingMethod:  models.SamplingRandom,
			}

			jobID, err := orchestrator.SubmitScan(context.Background(), connectionID, req)
			if err != nil {
				return fmt.Errorf("submitting scan: %w", err)
			}
			fmt.Printf("Scan submitted: %s\n", jobID)

			if !scanWait {
				return nil
			}
			return waitAndPrintReport(jobID)
		},
	}

	cmd.Flags().StringVar(&scanDriver, "driver", "mysql", "database/sql driver name (mysql, postgres, sqlite3)")
	cmd.Flags().StringVar(&scanProduct, "product", "MySQL", "database product name for dialect selection (MySQL, PostgreSQL, Oracle, Microsoft SQL Server)")
	cmd.Flags().StringVar(&scanDSN, "dsn", "", "driver-specific data source name")
	cmd.Flags().StringVar(&scanCatalog, "catalog", "", "database/catalog name to scan")
	cmd.Flags().StringSliceVar(&scanIncludedSchemas, "include-schema", nil, "only scan these schemas (repeatable)")
	cmd.Flags().StringSliceVar(&scanIncludedTables, "include-table", nil, "only scan these tables (repeatable)")
	cmd.Flags().StringSliceVar(&scanExcludedTables, "exclude-table", nil, "skip these tables (repeatable)")
	cmd.Flags().IntVar(&scanMaxSampleSize, "max-sample-size", 0, "rows sampled per column (0 uses the configured default)")
	cmd.Flags().BoolVar(&scanWait, "wait", true, "wait for the scan to finish and print its report")
	cmd.MarkFlagRequired("dsn")
	cmd.MarkFlagRequired("catalog")

	return cmd
}

func waitAndPrintReport(jobID string) error {
	job, err := orchestrator.Await(context.Background(), jobID)
	if err != nil {
		return fmt.Errorf("waiting for scan %s: %w", jobID, err)
	}
	if job.Status != models.StatusCompleted {
		return fmt.Errorf("scan %s ended in status %s: %s", jobID, job.Status, job.ErrorMessage)
	}

	report, err := orchestrator.GetReport(jobID)
	if err != nil {
		return fmt.Errorf("fetching report for %s: %w", jobID, err)
	}
	return ui.NewFormatter(outputFormat).Print(report)
}

func newStatusCmd() *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current status of a scan job",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := orchestrator.GetStatus(jobID)
			if err != nil {
				return err
			}
			return ui.NewFormatter(outputFormat).Print(&job)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "scan job id returned by `scan`")
	cmd.MarkFlagRequired("job-id")
	return cmd
}
