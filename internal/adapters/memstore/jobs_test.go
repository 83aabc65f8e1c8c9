package memstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	s := NewJobStore()
	job := s.Create("INC-1")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Zero(t, job.Progress)
	assert.False(t, job.CreatedAt.IsZero())

	got, ok := s.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestTransitions(t *testing.T) {
	s := NewJobStore()
	job := s.Create("INC-1")

	s.SetRunning(job.ID, 10)
	got, _ := s.Get(job.ID)
	assert.Equal(t, domain.JobRunning, got.Status)
	assert.Equal(t, 10, got.Progress)

	s.Complete(job.ID, &domain.InvestigationRecord{IncidentID: "INC-1"})
	got, _ = s.Get(job.ID)
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Result)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	s := NewJobStore()
	job := s.Create("INC-1")
	s.Fail(job.ID, "boom")

	// No transition back out of a terminal state.
	s.SetRunning(job.ID, 50)
	s.Complete(job.ID, &domain.InvestigationRecord{})

	got, _ := s.Get(job.ID)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Nil(t, got.Result)
}

func TestMutationsOnDeletedJobAreNoOps(t *testing.T) {
	s := NewJobStore()
	job := s.Create("INC-1")
	s.Delete(job.ID)

	// A background task finishing after a cancel must not resurrect the job.
	s.SetRunning(job.ID, 10)
	s.Complete(job.ID, &domain.InvestigationRecord{})

	_, ok := s.Get(job.ID)
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewJobStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := s.Create("INC-1")
			s.SetRunning(job.ID, 10)
			_, _ = s.Get(job.ID)
			s.Complete(job.ID, &domain.InvestigationRecord{})
			got, ok := s.Get(job.ID)
			assert.True(t, ok)
			assert.Equal(t, domain.JobCompleted, got.Status)
		}()
	}
	wg.Wait()
}
