package investigation

import (
	"net/netip"
	"strings"

	"inquest/internal/domain"
)

// extractHashes collects SHA-256s from file and process evidence, deduped
// case-insensitively with first-seen order kept so correlation results zip
// back positionally.
func extractHashes(ev domain.Evidence) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(h string) {
		h = strings.TrimSpace(h)
		if h == "" {
			return
		}
		key := strings.ToLower(h)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	for _, f := range ev.Files {
		add(f.SHA256)
	}
	for _, p := range ev.Processes {
		add(p.SHA256)
	}
	return out
}

// extractIPs collects remote IPs from network evidence, dropping anything
// that does not parse as an address.
func extractIPs(ev domain.Evidence) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, n := range ev.Networks {
		ip := strings.TrimSpace(n.RemoteIP)
		if ip == "" {
			continue
		}
		if _, err := netip.ParseAddr(ip); err != nil {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

// extractTechniqueStrings gathers the raw technique strings off alerts; the
// correlation engine owns id normalization.
func extractTechniqueStrings(ev domain.Evidence) []string {
	var out []string
	for _, a := range ev.Alerts {
		out = append(out, a.Techniques...)
	}
	return out
}

func summarize(ev domain.Evidence, corr domain.Correlation) domain.Summary {
	sum := domain.Summary{
		TotalAlerts:        len(ev.Alerts),
		TotalFiles:         len(ev.Files),
		TotalNetworks:      len(ev.Networks),
		TotalProcesses:     len(ev.Processes),
		TotalEndpoints:     len(ev.Endpoints),
		TotalCVEs:          len(ev.CVEs),
		TechniquesEnriched: len(corr.Techniques),
		CVEsEnriched:       len(corr.CVEs),
	}
	for _, m := range corr.Files {
		if m.Matched {
			sum.FilesMatched++
		}
		if m.Verdict == domain.VerdictThreat {
			sum.FilesThreat++
		}
	}
	for _, m := range corr.IPs {
		if m.Matched {
			sum.IPsMatched++
		}
		if m.Verdict == domain.VerdictThreat {
			sum.IPsThreat++
		}
	}
	return sum
}
