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
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/scheduler"
)

// newServeCmd starts the scheduled-scan cron loop and exposes a
// websocket endpoint third parties can subscribe to for live scan
// progress, without exposing the SubmitScan/Cancel API itself (the CLI
// remains the only way to start a scan in this reference wiring).
func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cron-scheduled scan loop and a live scan-event websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger("serve")

			sched := scheduler.New(cfg.Scheduler, orchestrator)
			if cfg.Scheduler.Enabled {
				if err := sched.Start(); err != nil {
					return fmt.Errorf("starting scheduler: %w", err)
				}
				defer sched.Stop()
				log.Infof("scheduler started with %d job(s)", len(cfg.Scheduler.Jobs))
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			// Live scan progress for any scan submitted through this
			// process, whether by the scheduler or a concurrent `scan`
			// invocation sharing the same store.
			mux.HandleFunc("/events", wsSink.ServeHTTP)

			log.Infof("listening on %s", addr)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8089", "address to listen on")
	return cmd
}
