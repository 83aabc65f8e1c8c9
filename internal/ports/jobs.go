package ports

import "inquest/internal/domain"

// JobStore tracks asynchronous investigation jobs. Implementations must be
// safe for one mutating background task per entry racing any number of
// polling readers. Mutations on unknown or terminal jobs are no-ops so a
// finishing background task cannot resurrect a cancelled job or flip a
// terminal state.
type JobStore interface {
	Create(incidentID string) domain.InvestigationJob
	Get(jobID string) (domain.InvestigationJob, bool)
	SetRunning(jobID string, progress int)
	Complete(jobID string, result *domain.InvestigationRecord)
	Fail(jobID string, errMsg string)
	Delete(jobID string)
}
