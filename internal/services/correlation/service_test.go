package correlation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/domain"
	"inquest/internal/ports"
)

type fakeStore struct {
	hashRows map[string]ports.IndicatorRow
	ipRows   map[string]ports.IndicatorRow
	techs    []domain.TechniqueInfo
	cves     []domain.CveInfo

	hashErr, ipErr, techErr, cveErr error

	hashCalls     int
	lastHashBatch []string
	lastTechBatch []string
}

func (f *fakeStore) HashReputation(_ context.Context, hashes []string) (map[string]ports.IndicatorRow, error) {
	f.hashCalls++
	f.lastHashBatch = hashes
	if f.hashErr != nil {
		return nil, f.hashErr
	}
	out := make(map[string]ports.IndicatorRow)
	for _, h := range hashes {
		if row, ok := f.hashRows[h]; ok {
			out[h] = row
		}
	}
	return out, nil
}

func (f *fakeStore) IPReputation(_ context.Context, ips []string) (map[string]ports.IndicatorRow, error) {
	if f.ipErr != nil {
		return nil, f.ipErr
	}
	out := make(map[string]ports.IndicatorRow)
	for _, ip := range ips {
		if row, ok := f.ipRows[ip]; ok {
			out[ip] = row
		}
	}
	return out, nil
}

func (f *fakeStore) TechniquesByID(_ context.Context, ids []string) ([]domain.TechniqueInfo, error) {
	f.lastTechBatch = ids
	if f.techErr != nil {
		return nil, f.techErr
	}
	var out []domain.TechniqueInfo
	for _, t := range f.techs {
		for _, id := range ids {
			if t.TechniqueID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CvesByID(_ context.Context, ids []string) ([]domain.CveInfo, error) {
	if f.cveErr != nil {
		return nil, f.cveErr
	}
	var out []domain.CveInfo
	for _, c := range f.cves {
		for _, id := range ids {
			if c.CveID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// fakeBenign whitelists a fixed set of uppercase hashes.
type fakeBenign struct {
	whitelisted map[string]domain.BenignCheckResult
}

func (f *fakeBenign) Check(ctx context.Context, hash string) domain.BenignCheckResult {
	return f.whitelisted[strings.ToUpper(hash)]
}

func (f *fakeBenign) CheckBatch(_ context.Context, hashes []string) map[string]domain.BenignCheckResult {
	out := make(map[string]domain.BenignCheckResult)
	for _, h := range hashes {
		key := strings.ToUpper(strings.TrimSpace(h))
		if res, ok := f.whitelisted[key]; ok {
			out[key] = res
		} else {
			out[key] = domain.BenignCheckResult{}
		}
	}
	return out
}

func (f *fakeBenign) Refresh(context.Context) error { return nil }

func newTestService(store *fakeStore, benign *fakeBenign) *Service {
	if benign == nil {
		benign = &fakeBenign{}
	}
	return New(store, benign, zerolog.Nop())
}

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	hashD = "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"
)

func TestCheckHashes_VerdictThresholds(t *testing.T) {
	store := &fakeStore{hashRows: map[string]ports.IndicatorRow{
		hashA: {Value: hashA, ThreatLevel: 75, Severity: "high", Source: "misp", MispMatches: 3},
		hashB: {Value: hashB, ThreatLevel: 10, Severity: "low", Source: "opencti", OpenCTIMatches: 1},
		hashC: {Value: hashC, ThreatLevel: 0, Severity: "informational", Source: "misp"},
	}}
	svc := newTestService(store, nil)

	matches := svc.CheckHashes(context.Background(), []string{hashA, hashB, hashC, hashD})
	require.Len(t, matches, 4)

	assert.Equal(t, domain.VerdictThreat, matches[0].Verdict)
	assert.True(t, matches[0].Matched)
	assert.Equal(t, 75, matches[0].ThreatLevel)
	assert.Equal(t, 3, matches[0].MispMatches)

	assert.Equal(t, domain.VerdictUnknown, matches[1].Verdict)
	assert.True(t, matches[1].Matched)

	assert.Equal(t, domain.VerdictBenign, matches[2].Verdict)
	assert.True(t, matches[2].Matched)
	assert.Equal(t, 0, matches[2].ThreatLevel)

	assert.Equal(t, domain.VerdictUnknown, matches[3].Verdict)
	assert.False(t, matches[3].Matched)
	assert.Equal(t, 0, matches[3].ThreatLevel)
}

func TestCheckHashes_OutputOrderMatchesInput(t *testing.T) {
	store := &fakeStore{hashRows: map[string]ports.IndicatorRow{
		hashB: {Value: hashB, ThreatLevel: 90},
	}}
	svc := newTestService(store, nil)

	in := []string{hashC, hashB, hashA, hashB}
	matches := svc.CheckHashes(context.Background(), in)
	require.Len(t, matches, len(in))
	for i, m := range matches {
		assert.Equal(t, in[i], m.Value)
		assert.Equal(t, domain.KindHash, m.Kind)
	}
	// Duplicate inputs each get an entry but the store sees one value once.
	assert.Equal(t, domain.VerdictThreat, matches[1].Verdict)
	assert.Equal(t, domain.VerdictThreat, matches[3].Verdict)
	assert.Equal(t, 1, store.hashCalls)
	assert.Len(t, store.lastHashBatch, 3)
}

func TestCheckHashes_WhitelistedSkipsStore(t *testing.T) {
	store := &fakeStore{}
	benign := &fakeBenign{whitelisted: map[string]domain.BenignCheckResult{
		strings.ToUpper(hashA): {IsBenign: true, Confidence: domain.ConfidenceHigh, Source: domain.SourceCortexXDR},
	}}
	svc := newTestService(store, benign)

	matches := svc.CheckHashes(context.Background(), []string{hashA})
	require.Len(t, matches, 1)
	assert.Equal(t, domain.VerdictBenign, matches[0].Verdict)
	assert.True(t, matches[0].Matched)
	assert.Equal(t, domain.SourceCortexXDR, matches[0].Source)
	assert.Zero(t, store.hashCalls)
}

func TestCheckHashes_StoreErrorDegradesToUnknown(t *testing.T) {
	store := &fakeStore{hashErr: errors.New("connection refused")}
	svc := newTestService(store, nil)

	matches := svc.CheckHashes(context.Background(), []string{hashA, hashB})
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.False(t, m.Matched)
		assert.Equal(t, domain.VerdictUnknown, m.Verdict)
		assert.Equal(t, 0, m.ThreatLevel)
	}
}

func TestCheckIPs_NoBenignBranch(t *testing.T) {
	// A matched IP with threat_level 0 stays unknown; the hash path would
	// call this benign. The asymmetry is deliberate.
	store := &fakeStore{ipRows: map[string]ports.IndicatorRow{
		"203.0.113.7": {Value: "203.0.113.7", ThreatLevel: 0, Severity: "informational", Source: "misp"},
		"198.51.100.1": {Value: "198.51.100.1", ThreatLevel: 82, Severity: "critical", Source: "misp"},
	}}
	svc := newTestService(store, nil)

	matches := svc.CheckIPs(context.Background(), []string{"203.0.113.7", "198.51.100.1", "192.0.2.9"})
	require.Len(t, matches, 3)

	assert.True(t, matches[0].Matched)
	assert.Equal(t, domain.VerdictUnknown, matches[0].Verdict)
	assert.NotEqual(t, domain.VerdictBenign, matches[0].Verdict)

	assert.Equal(t, domain.VerdictThreat, matches[1].Verdict)

	assert.False(t, matches[2].Matched)
	assert.Equal(t, domain.VerdictUnknown, matches[2].Verdict)
}

func TestCheckIPs_StoreErrorDegradesToUnknown(t *testing.T) {
	store := &fakeStore{ipErr: errors.New("timeout")}
	svc := newTestService(store, nil)

	matches := svc.CheckIPs(context.Background(), []string{"203.0.113.7"})
	require.Len(t, matches, 1)
	assert.False(t, matches[0].Matched)
	assert.Equal(t, domain.VerdictUnknown, matches[0].Verdict)
}

func TestGetTechniques_NormalizesAndDropsMisses(t *testing.T) {
	store := &fakeStore{techs: []domain.TechniqueInfo{
		{TechniqueID: "T1112", TechniqueName: "Modify Registry", Tactic: "Defense Evasion", IncidentCount: 2},
	}}
	svc := newTestService(store, nil)

	out := svc.GetTechniques(context.Background(), []string{
		"T1112 - Modify Registry",
		"T9999 - Not A Technique",
		"no id here",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "T1112", out[0].TechniqueID)
	assert.Equal(t, []string{"T1112", "T9999"}, store.lastTechBatch)
}

func TestGetTechniques_StoreErrorReturnsEmpty(t *testing.T) {
	store := &fakeStore{techErr: errors.New("boom")}
	svc := newTestService(store, nil)
	assert.Empty(t, svc.GetTechniques(context.Background(), []string{"T1055"}))
}

func TestGetCves_SilentDropAndDedupe(t *testing.T) {
	store := &fakeStore{cves: []domain.CveInfo{
		{CveID: "CVE-2024-3094", CVSSScore: 10, Severity: "critical", PublishedDate: time.Now()},
	}}
	svc := newTestService(store, nil)

	out := svc.GetCves(context.Background(), []string{"cve-2024-3094", "CVE-2024-3094", "CVE-1999-0001", ""})
	require.Len(t, out, 1)
	assert.Equal(t, "CVE-2024-3094", out[0].CveID)
}

func TestNormalizeTechniqueIDs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"T1071.001 - Application Layer Protocol: Web Protocols"}, []string{"T1071.001"}},
		{[]string{"T1566", "T1566", "T1566.002"}, []string{"T1566", "T1566.002"}},
		{[]string{"garbage", "", "1234"}, nil},
		{[]string{" T1003 - OS Credential Dumping "}, []string{"T1003"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTechniqueIDs(tc.in))
	}
}
