package ports

import (
	"context"

	"inquest/internal/domain"
)

// Correlator batch-classifies observables and enriches technique/CVE
// references. Store failures degrade to neutral results; no method returns
// an error.
type Correlator interface {
	CheckHashes(ctx context.Context, hashes []string) []domain.IndicatorMatch
	CheckIPs(ctx context.Context, ips []string) []domain.IndicatorMatch
	GetTechniques(ctx context.Context, ids []string) []domain.TechniqueInfo
	GetCves(ctx context.Context, ids []string) []domain.CveInfo
}

// BenignChecker answers whether file hashes are known-good, with a
// confidence tier. Batch results are keyed by normalized (uppercase) hash;
// a missing key means not whitelisted.
type BenignChecker interface {
	Check(ctx context.Context, hash string) domain.BenignCheckResult
	CheckBatch(ctx context.Context, hashes []string) map[string]domain.BenignCheckResult
	Refresh(ctx context.Context) error
}

// EvidenceCollector fetches the raw evidence bundle for an incident from the
// upstream log store. External system; only the client contract lives here.
type EvidenceCollector interface {
	Collect(ctx context.Context, incidentID string) (domain.Evidence, error)
}

// ResultCache memoizes completed investigations by incident id. Load returns
// (nil, nil) on a miss; Save returns the location of the written artifact.
type ResultCache interface {
	Load(ctx context.Context, incidentID string) (*domain.InvestigationRecord, error)
	Save(ctx context.Context, rec *domain.InvestigationRecord) (string, error)
}
