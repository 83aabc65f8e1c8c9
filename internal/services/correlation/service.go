// Package correlation is the threat-intelligence correlation engine: batch
// classification of hashes and IPs plus MITRE/CVE enrichment.
//
// Failure policy is fail-soft throughout: a store error for a batch call is
// logged and degraded to neutral results so partial intelligence never
// aborts an investigation.
package correlation

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"inquest/internal/domain"
	"inquest/internal/metrics"
	"inquest/internal/ports"
)

// threatThreshold is the indicator-store score at or above which an
// observable is classified as a threat.
const threatThreshold = 50

// techniqueIDPrefix extracts a MITRE technique id from free-text strings of
// the form "T1071.001 - Application Layer Protocol: Web Protocols".
var techniqueIDPrefix = regexp.MustCompile(`^T\d{4}(\.\d{3})?`)

type Service struct {
	store  ports.IndicatorRepository
	benign ports.BenignChecker
	log    zerolog.Logger
}

func New(store ports.IndicatorRepository, benign ports.BenignChecker, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		benign: benign,
		log:    log.With().Str("component", "correlation").Logger(),
	}
}

// CheckHashes classifies file hashes. The benign cache answers whitelisted
// hashes first; only the rest go to the indicator store, in one batched
// query. Output order matches input order, one entry per input.
func (s *Service) CheckHashes(ctx context.Context, hashes []string) []domain.IndicatorMatch {
	out := make([]domain.IndicatorMatch, len(hashes))
	for i, h := range hashes {
		out[i] = unmatched(h, domain.KindHash)
	}
	if len(hashes) == 0 {
		return out
	}

	whitelisted := s.benign.CheckBatch(ctx, hashes)
	var query []string
	queryIdx := make(map[string][]int)
	for i, h := range hashes {
		key := strings.ToUpper(strings.TrimSpace(h))
		if res, ok := whitelisted[key]; ok && res.IsBenign {
			out[i].Matched = true
			out[i].Verdict = domain.VerdictBenign
			out[i].Source = res.Source
			continue
		}
		norm := strings.ToLower(strings.TrimSpace(h))
		if norm == "" {
			continue
		}
		if len(queryIdx[norm]) == 0 {
			query = append(query, norm)
		}
		queryIdx[norm] = append(queryIdx[norm], i)
	}
	if len(query) == 0 {
		return out
	}

	rows, err := s.store.HashReputation(ctx, query)
	if err != nil {
		metrics.CorrelationErrors.WithLabelValues("hash").Inc()
		s.log.Error().Err(err).Int("batch", len(query)).Msg("hash reputation lookup failed")
		return out
	}
	for norm, idxs := range queryIdx {
		row, ok := rows[norm]
		if !ok {
			continue
		}
		for _, i := range idxs {
			out[i].Matched = true
			out[i].Verdict = classifyHash(row.ThreatLevel)
			out[i].ThreatLevel = row.ThreatLevel
			out[i].Severity = row.Severity
			out[i].Source = row.Source
			out[i].MispMatches = row.MispMatches
			out[i].OpenCTIMatches = row.OpenCTIMatches
		}
	}
	return out
}

// CheckIPs classifies IP addresses. Unlike the hash path there is no benign
// branch: a matched IP with threat_level 0 stays unknown. Kept as-is from
// the upstream classifier; see DESIGN.md before changing.
func (s *Service) CheckIPs(ctx context.Context, ips []string) []domain.IndicatorMatch {
	out := make([]domain.IndicatorMatch, len(ips))
	queryIdx := make(map[string][]int)
	var query []string
	for i, ip := range ips {
		out[i] = unmatched(ip, domain.KindIP)
		norm := strings.TrimSpace(ip)
		if norm == "" {
			continue
		}
		if len(queryIdx[norm]) == 0 {
			query = append(query, norm)
		}
		queryIdx[norm] = append(queryIdx[norm], i)
	}
	if len(query) == 0 {
		return out
	}

	rows, err := s.store.IPReputation(ctx, query)
	if err != nil {
		metrics.CorrelationErrors.WithLabelValues("ip").Inc()
		s.log.Error().Err(err).Int("batch", len(query)).Msg("ip reputation lookup failed")
		return out
	}
	for norm, idxs := range queryIdx {
		row, ok := rows[norm]
		if !ok {
			continue
		}
		for _, i := range idxs {
			out[i].Matched = true
			out[i].Verdict = classifyIP(row.ThreatLevel)
			out[i].ThreatLevel = row.ThreatLevel
			out[i].Severity = row.Severity
			out[i].Source = row.Source
			out[i].MispMatches = row.MispMatches
			out[i].OpenCTIMatches = row.OpenCTIMatches
		}
	}
	return out
}

// GetTechniques enriches MITRE technique references. Inputs may be raw ids
// or free-text alert strings; the id prefix is extracted before lookup. Ids
// with no store record are dropped, never an error.
func (s *Service) GetTechniques(ctx context.Context, ids []string) []domain.TechniqueInfo {
	norm := NormalizeTechniqueIDs(ids)
	if len(norm) == 0 {
		return nil
	}
	found, err := s.store.TechniquesByID(ctx, norm)
	if err != nil {
		metrics.CorrelationErrors.WithLabelValues("technique").Inc()
		s.log.Error().Err(err).Msg("technique lookup failed")
		return nil
	}
	// Preserve caller order.
	byID := make(map[string]domain.TechniqueInfo, len(found))
	for _, t := range found {
		byID[t.TechniqueID] = t
	}
	var out []domain.TechniqueInfo
	for _, id := range norm {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// GetCves enriches CVE references with the same silent-drop-on-miss
// semantics as GetTechniques.
func (s *Service) GetCves(ctx context.Context, ids []string) []domain.CveInfo {
	var norm []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		n := strings.ToUpper(strings.TrimSpace(id))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		norm = append(norm, n)
	}
	if len(norm) == 0 {
		return nil
	}
	found, err := s.store.CvesByID(ctx, norm)
	if err != nil {
		metrics.CorrelationErrors.WithLabelValues("cve").Inc()
		s.log.Error().Err(err).Msg("cve lookup failed")
		return nil
	}
	byID := make(map[string]domain.CveInfo, len(found))
	for _, c := range found {
		byID[c.CveID] = c
	}
	var out []domain.CveInfo
	for _, id := range norm {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeTechniqueIDs extracts technique id prefixes and drops duplicates
// and strings with no recognizable id, preserving first-seen order.
func NormalizeTechniqueIDs(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range raw {
		id := techniqueIDPrefix.FindString(strings.TrimSpace(r))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unmatched(value string, kind domain.IndicatorKind) domain.IndicatorMatch {
	return domain.IndicatorMatch{Value: value, Kind: kind, Verdict: domain.VerdictUnknown}
}

func classifyHash(threatLevel int) domain.Verdict {
	switch {
	case threatLevel >= threatThreshold:
		return domain.VerdictThreat
	case threatLevel > 0:
		return domain.VerdictUnknown
	default:
		return domain.VerdictBenign
	}
}

func classifyIP(threatLevel int) domain.Verdict {
	if threatLevel >= threatThreshold {
		return domain.VerdictThreat
	}
	return domain.VerdictUnknown
}
