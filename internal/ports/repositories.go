package ports

import (
	"context"

	"inquest/internal/domain"
)

// IndicatorRow is one reputation row from the indicator store.
type IndicatorRow struct {
	Value          string
	ThreatLevel    int
	Severity       string
	Source         string
	MispMatches    int
	OpenCTIMatches int
}

// IndicatorRepository queries the relational threat-intelligence store.
// Reputation lookups take one batch per call and return rows keyed by value;
// values absent from the store are simply absent from the map.
type IndicatorRepository interface {
	HashReputation(ctx context.Context, hashes []string) (map[string]IndicatorRow, error)
	IPReputation(ctx context.Context, ips []string) (map[string]IndicatorRow, error)
	TechniquesByID(ctx context.Context, ids []string) ([]domain.TechniqueInfo, error)
	CvesByID(ctx context.Context, ids []string) ([]domain.CveInfo, error)
}

// AllowlistSource bulk-reads the organization's known-good hashes
// (Tier 1 of the benign cache, sourced from endpoint telemetry).
type AllowlistSource interface {
	LoadAll(ctx context.Context) ([]string, error)
}

// ReferenceSet is the read-only public reference-software hash database
// (Tier 2 of the benign cache). Contains reports which of the given
// normalized hashes are present; callers bound the batch size.
type ReferenceSet interface {
	Contains(ctx context.Context, hashes []string) (map[string]bool, error)
}
