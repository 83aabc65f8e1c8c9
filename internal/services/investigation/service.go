// Package investigation owns the investigation pipeline and the job
// lifecycle around it: cache check, evidence collection, observable
// extraction, correlation, summary, cache write.
package investigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inquest/internal/domain"
	"inquest/internal/metrics"
	"inquest/internal/ports"
)

var (
	ErrMissingIncidentID = errors.New("incident id is required")
	ErrJobNotFound       = errors.New("job not found")
)

// CannotCancelError is returned when cancelling a job that already reached a
// terminal state.
type CannotCancelError struct {
	Status domain.JobStatus
}

func (e *CannotCancelError) Error() string {
	return fmt.Sprintf("cannot cancel job in status %s", e.Status)
}

const runningProgress = 10

type Service struct {
	collector ports.EvidenceCollector
	ti        ports.Correlator
	cache     ports.ResultCache
	jobs      ports.JobStore
	log       zerolog.Logger

	jobTTL          time.Duration
	pipelineTimeout time.Duration // 0 disables the per-job deadline
	now             func() time.Time
}

func New(collector ports.EvidenceCollector, ti ports.Correlator, cache ports.ResultCache,
	jobs ports.JobStore, jobTTL, pipelineTimeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		collector:       collector,
		ti:              ti,
		cache:           cache,
		jobs:            jobs,
		log:             log.With().Str("component", "investigation").Logger(),
		jobTTL:          jobTTL,
		pipelineTimeout: pipelineTimeout,
		now:             time.Now,
	}
}

// Investigate runs the full pipeline inline. With force=false a cached
// record short-circuits everything; with force=true the cache is bypassed
// for reads but still written on success.
func (s *Service) Investigate(ctx context.Context, incidentID string, force bool) (*domain.InvestigationRecord, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, ErrMissingIncidentID
	}

	if !force {
		rec, err := s.cache.Load(ctx, incidentID)
		if err != nil {
			// A broken cache read is a miss, not a failure.
			s.log.Warn().Err(err).Str("incident", incidentID).Msg("result cache read failed")
		} else if rec != nil {
			metrics.InvestigationsTotal.WithLabelValues("cached").Inc()
			return rec, nil
		}
	}

	ev, err := s.collector.Collect(ctx, incidentID)
	if err != nil {
		metrics.InvestigationsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("evidence collection: %w", err)
	}

	corr := domain.Correlation{
		Files:      s.ti.CheckHashes(ctx, extractHashes(ev)),
		IPs:        s.ti.CheckIPs(ctx, extractIPs(ev)),
		Techniques: s.ti.GetTechniques(ctx, extractTechniqueStrings(ev)),
		CVEs:       s.ti.GetCves(ctx, ev.CVEs),
	}

	rec := &domain.InvestigationRecord{
		IncidentID:    incidentID,
		Evidence:      ev,
		TICorrelation: corr,
		Summary:       summarize(ev, corr),
		GeneratedAt:   s.now().UTC(),
	}

	if loc, err := s.cache.Save(ctx, rec); err != nil {
		// Best-effort persistence: the computed record is still returned.
		s.log.Error().Err(err).Str("incident", incidentID).Msg("result cache write failed")
	} else {
		s.log.Debug().Str("incident", incidentID).Str("artifact", loc).Msg("investigation cached")
	}
	metrics.InvestigationsTotal.WithLabelValues("completed").Inc()
	return rec, nil
}

// Submit allocates a pending job and runs the pipeline on its own goroutine.
// The task detaches from the caller's context; the configured pipeline
// timeout bounds it instead.
func (s *Service) Submit(incidentID string, force bool) (string, error) {
	if strings.TrimSpace(incidentID) == "" {
		return "", ErrMissingIncidentID
	}
	job := s.jobs.Create(incidentID)
	metrics.JobsSubmitted.Inc()
	go s.run(job.ID, incidentID, force)
	return job.ID, nil
}

func (s *Service) run(jobID, incidentID string, force bool) {
	ctx := context.Background()
	if s.pipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pipelineTimeout)
		defer cancel()
	}

	s.jobs.SetRunning(jobID, runningProgress)
	rec, err := s.Investigate(ctx, incidentID, force)
	if err != nil {
		s.log.Warn().Err(err).Str("job", jobID).Str("incident", incidentID).Msg("job failed")
		s.jobs.Fail(jobID, err.Error())
		return
	}
	s.jobs.Complete(jobID, rec)
}

// JobStatus reports the job's current state. Terminal jobs older than the
// TTL are garbage-collected on this poll: the deleting poll reports the
// synthetic expired status, later polls report not found.
func (s *Service) JobStatus(jobID string) (domain.InvestigationJob, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return domain.InvestigationJob{}, ErrJobNotFound
	}
	if job.Terminal() && job.CompletedAt != nil && s.now().Sub(*job.CompletedAt) > s.jobTTL {
		s.jobs.Delete(jobID)
		job.Status = domain.JobExpired
		job.Result = nil
		job.Error = ""
		return job, nil
	}
	return job, nil
}

// Cancel removes a pending or running job. It does not interrupt an
// in-flight background task; the job-store terminal guard stops that task
// from resurrecting the deleted entry.
func (s *Service) Cancel(jobID string) error {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return ErrJobNotFound
	}
	if job.Terminal() {
		return &CannotCancelError{Status: job.Status}
	}
	s.jobs.Delete(jobID)
	return nil
}
