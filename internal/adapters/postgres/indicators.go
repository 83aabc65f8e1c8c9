package postgres

import (
	"context"
	"strings"

	"inquest/internal/domain"
	"inquest/internal/ports"
)

// IndicatorRepository

func (db *DB) HashReputation(ctx context.Context, hashes []string) (map[string]ports.IndicatorRow, error) {
	return db.reputation(ctx, string(domain.KindHash), hashes)
}

func (db *DB) IPReputation(ctx context.Context, ips []string) (map[string]ports.IndicatorRow, error) {
	return db.reputation(ctx, string(domain.KindIP), ips)
}

// reputation fetches all supplied values in a single batched predicate so a
// correlation call costs one round-trip regardless of batch size.
func (db *DB) reputation(ctx context.Context, kind string, values []string) (map[string]ports.IndicatorRow, error) {
	out := make(map[string]ports.IndicatorRow, len(values))
	if len(values) == 0 {
		return out, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT value, threat_level, severity, source, misp_matches, opencti_matches
		FROM indicators
		WHERE kind = $1 AND value = ANY($2)
	`, kind, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r ports.IndicatorRow
		if err := rows.Scan(&r.Value, &r.ThreatLevel, &r.Severity, &r.Source, &r.MispMatches, &r.OpenCTIMatches); err != nil {
			return nil, err
		}
		out[r.Value] = r
	}
	return out, rows.Err()
}

func (db *DB) TechniquesByID(ctx context.Context, ids []string) ([]domain.TechniqueInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT technique_id, name, tactic, COALESCE(description, ''), COALESCE(reference_url, '')
		FROM mitre_techniques
		WHERE technique_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*domain.TechniqueInfo, len(ids))
	var order []string
	for rows.Next() {
		var t domain.TechniqueInfo
		if err := rows.Scan(&t.TechniqueID, &t.TechniqueName, &t.Tactic, &t.Description, &t.ReferenceURL); err != nil {
			return nil, err
		}
		byID[t.TechniqueID] = &t
		order = append(order, t.TechniqueID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byID) == 0 {
		return nil, nil
	}

	srows, err := db.Pool.Query(ctx, `
		SELECT technique_id, incident_id, severity, COALESCE(context, ''), occurred_at
		FROM technique_sightings
		WHERE technique_id = ANY($1)
		ORDER BY occurred_at DESC
	`, order)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var tid string
		var ri domain.RelatedIncident
		if err := srows.Scan(&tid, &ri.IncidentID, &ri.Severity, &ri.Context, &ri.Timestamp); err != nil {
			return nil, err
		}
		if t, ok := byID[tid]; ok {
			t.RelatedIncidents = append(t.RelatedIncidents, ri)
			t.IncidentCount++
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.TechniqueInfo, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (db *DB) CvesByID(ctx context.Context, ids []string) ([]domain.CveInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT cve_id, COALESCE(description, ''), cvss_score, severity,
		       COALESCE(affected_products, '{}'), published_date
		FROM cves
		WHERE cve_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CveInfo
	for rows.Next() {
		var c domain.CveInfo
		if err := rows.Scan(&c.CveID, &c.Description, &c.CVSSScore, &c.Severity, &c.AffectedProducts, &c.PublishedDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AllowlistSource

// LoadAll bulk-reads the endpoint-telemetry allowlist for the benign cache's
// Tier 1. One read at startup or refresh; lookups never hit this table.
func (db *DB) LoadAll(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT hash FROM endpoint_allowlist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, strings.ToUpper(h))
	}
	return out, rows.Err()
}
