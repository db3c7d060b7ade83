package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/common/config"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

type fakeOrchestrator struct {
	mu      sync.Mutex
	submits []string
}

func (f *fakeOrchestrator) SubmitScan(ctx context.Context, connectionID string, req models.ScanRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, connectionID)
	return "job-1", nil
}

func (f *fakeOrchestrator) GetStatus(jobID string) (models.ScanJob, error) { return models.ScanJob{}, nil }
func (f *fakeOrchestrator) Cancel(jobID string) error                      { return nil }
func (f *fakeOrchestrator) Subscribe(jobID string) (<-chan models.ScanEvent, func()) {
	return nil, func() {}
}
func (f *fakeOrchestrator) GetReport(jobID string) (*models.Report, error) { return nil, nil }
func (f *fakeOrchestrator) Await(ctx context.Context, jobID string) (models.ScanJob, error) {
	return models.ScanJob{}, nil
}

func (f *fakeOrchestrator) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func TestSchedulerSkipsMalformedCronExpressionWithoutAbortingOthers(t *testing.T) {
	orch := &fakeOrchestrator{}
	cfg := config.SchedulerConfig{
		Enabled: true,
		Jobs: []config.ScheduledJob{
			{Name: "broken", CronExpression: "not a cron expression", ConnectionID: "conn-broken"},
			{Name: "fast", CronExpression: "@every 20ms", ConnectionID: "conn-ok"},
		},
	}
	s := New(cfg, orch)

	require.NoError(t, s.Start(), "a malformed sibling job must not make Start fail")
	defer s.Stop()

	require.Eventually(t, func() bool {
		return orch.submitCount() > 0
	}, time.Second, 5*time.Millisecond, "expected the well-formed job to keep firing")

	for _, id := range orch.submits {
		assert.Equal(t, "conn-ok", id, "the malformed job must never have been scheduled")
	}
}

func TestSchedulerStopWithNoJobsIsSafe(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := New(config.SchedulerConfig{Enabled: true}, orch)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, 0, orch.submitCount())
}
