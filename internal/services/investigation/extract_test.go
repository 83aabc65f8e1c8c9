package investigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inquest/internal/domain"
)

func TestExtractHashes_DedupesAcrossFilesAndProcesses(t *testing.T) {
	ev := domain.Evidence{
		Files: []domain.FileArtifact{
			{Path: "/a", SHA256: "AAAA"},
			{Path: "/b", SHA256: ""},
			{Path: "/c", SHA256: "bbbb"},
		},
		Processes: []domain.ProcessEvent{
			{Name: "x", SHA256: "aaaa"}, // dup of AAAA, case-insensitive
			{Name: "y", SHA256: "cccc"},
		},
	}
	assert.Equal(t, []string{"AAAA", "bbbb", "cccc"}, extractHashes(ev))
}

func TestExtractIPs_ValidatesAndDedupes(t *testing.T) {
	ev := domain.Evidence{
		Networks: []domain.NetworkEvent{
			{RemoteIP: "203.0.113.7"},
			{RemoteIP: "203.0.113.7"},
			{RemoteIP: "2001:db8::1"},
			{RemoteIP: "evil.example.com"}, // hostname, not an address
			{RemoteIP: ""},
			{RemoteIP: "999.1.1.1"},
		},
	}
	assert.Equal(t, []string{"203.0.113.7", "2001:db8::1"}, extractIPs(ev))
}

func TestExtractTechniqueStrings(t *testing.T) {
	ev := domain.Evidence{
		Alerts: []domain.Alert{
			{Techniques: []string{"T1059 - Command and Scripting Interpreter"}},
			{},
			{Techniques: []string{"T1071.001 - Web Protocols", "T1059 - Command and Scripting Interpreter"}},
		},
	}
	got := extractTechniqueStrings(ev)
	// Raw strings pass through; normalization and dedupe belong to the engine.
	assert.Len(t, got, 3)
}

func TestSummarize(t *testing.T) {
	ev := domain.Evidence{
		Alerts:    make([]domain.Alert, 2),
		Files:     make([]domain.FileArtifact, 3),
		Networks:  make([]domain.NetworkEvent, 1),
		Endpoints: make([]domain.Endpoint, 1),
		CVEs:      []string{"CVE-2024-3094"},
	}
	corr := domain.Correlation{
		Files: []domain.IndicatorMatch{
			{Matched: true, Verdict: domain.VerdictThreat},
			{Matched: true, Verdict: domain.VerdictBenign},
			{Matched: false, Verdict: domain.VerdictUnknown},
		},
		IPs: []domain.IndicatorMatch{
			{Matched: true, Verdict: domain.VerdictUnknown},
		},
		Techniques: []domain.TechniqueInfo{{TechniqueID: "T1059"}},
		CVEs:       []domain.CveInfo{{CveID: "CVE-2024-3094"}},
	}

	sum := summarize(ev, corr)
	assert.Equal(t, domain.Summary{
		TotalAlerts:        2,
		TotalFiles:         3,
		TotalNetworks:      1,
		TotalEndpoints:     1,
		TotalCVEs:          1,
		FilesMatched:       2,
		FilesThreat:        1,
		IPsMatched:         1,
		TechniquesEnriched: 1,
		CVEsEnriched:       1,
	}, sum)
}
