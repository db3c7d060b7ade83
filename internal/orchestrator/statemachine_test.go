package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func newTestJob() *models.ScanJob {
	return &models.ScanJob{ID: "job-1", Status: models.StatusPending}
}

func TestStateMachineHappyPath(t *testing.T) {
	sm := NewStateMachine(newTestJob())

	steps := []struct {
		event string
		want  models.ScanStatus
	}{
		{"extract", models.StatusExtractingMetadata},
		{"sample", models.StatusSampling},
		{"detect", models.StatusDetectingPII},
		{"analyze", models.StatusAnalyzingQI},
		{"report", models.StatusGeneratingReport},
		{"complete", models.StatusCompleted},
	}
	for _, s := range steps {
		require.NoError(t, sm.Transition(s.event))
		assert.Equal(t, s.want, sm.CurrentState())
	}
}

func TestStateMachineRejectsOutOfOrderEvent(t *testing.T) {
	sm := NewStateMachine(newTestJob())
	err := sm.Transition("detect")
	assert.Error(t, err)
	assert.Equal(t, models.StatusPending, sm.CurrentState())
}

func TestStateMachineFailCancelWildcardsFromAnyNonTerminalState(t *testing.T) {
	sm := NewStateMachine(newTestJob())
	require.NoError(t, sm.Transition("extract"))
	require.NoError(t, sm.Transition("sample"))
	require.NoError(t, sm.Transition("cancel"))
	assert.Equal(t, models.StatusCancelled, sm.CurrentState())
}

func TestStateMachineRejectsAnyTransitionOnceTerminal(t *testing.T) {
	sm := NewStateMachine(newTestJob())
	require.NoError(t, sm.Transition("fail"))
	assert.True(t, sm.CurrentState().IsTerminal())

	err := sm.Transition("extract")
	assert.Error(t, err)

	err = sm.Transition("cancel")
	assert.Error(t, err)
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) OnStateChange(job *models.ScanJob, from, to models.ScanStatus, event string) {
	l.events = append(l.events, string(from)+"->"+string(to))
}

func TestStateMachineNotifiesListenersInOrder(t *testing.T) {
	sm := NewStateMachine(newTestJob())
	l := &recordingListener{}
	sm.AddListener(l)

	require.NoError(t, sm.Transition("extract"))
	require.NoError(t, sm.Transition("sample"))

	assert.Equal(t, []string{"PENDING->EXTRACTING_METADATA", "EXTRACTING_METADATA->SAMPLING"}, l.events)
}
