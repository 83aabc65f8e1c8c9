package domain

import "time"

// Core domain models. HTTP payloads serialize these directly; keep the JSON
// tags stable since cached investigation artifacts share the same encoding.

// IndicatorKind distinguishes observable types submitted for correlation.
type IndicatorKind string

const (
	KindHash IndicatorKind = "hash"
	KindIP   IndicatorKind = "ip"
)

// Verdict classifies an observable against the indicator store.
type Verdict string

const (
	VerdictThreat  Verdict = "threat"
	VerdictUnknown Verdict = "unknown"
	VerdictBenign  Verdict = "benign"
)

// IndicatorMatch is the result of checking one observable against the
// indicator store. Unmatched observables carry verdict=unknown and
// threat_level=0.
type IndicatorMatch struct {
	Value          string        `json:"value"`
	Kind           IndicatorKind `json:"kind"`
	Matched        bool          `json:"matched"`
	Verdict        Verdict       `json:"verdict"`
	ThreatLevel    int           `json:"threat_level"`
	Severity       string        `json:"severity,omitempty"`
	Source         string        `json:"source,omitempty"`
	MispMatches    int           `json:"misp_matches"`
	OpenCTIMatches int           `json:"opencti_matches"`
}

// RelatedIncident is one prior sighting of a MITRE technique.
type RelatedIncident struct {
	IncidentID string    `json:"incident_id"`
	Severity   string    `json:"severity"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TechniqueInfo is MITRE ATT&CK technique detail enriched with prior
// sightings from the organization's own incidents.
type TechniqueInfo struct {
	TechniqueID      string            `json:"technique_id"`
	TechniqueName    string            `json:"technique_name"`
	Tactic           string            `json:"tactic"`
	Description      string            `json:"description,omitempty"`
	IncidentCount    int               `json:"incident_count"`
	RelatedIncidents []RelatedIncident `json:"related_incidents,omitempty"`
	ReferenceURL     string            `json:"reference_url,omitempty"`
}

// CveInfo is read-only CVE reference data.
type CveInfo struct {
	CveID            string    `json:"cve_id"`
	Description      string    `json:"description,omitempty"`
	CVSSScore        float64   `json:"cvss_score"`
	Severity         string    `json:"severity"`
	AffectedProducts []string  `json:"affected_products,omitempty"`
	PublishedDate    time.Time `json:"published_date"`
}

// BenignConfidence is the provenance tier of a benign determination.
type BenignConfidence string

const (
	ConfidenceHigh BenignConfidence = "HIGH" // organization's own endpoint telemetry
	ConfidenceLow  BenignConfidence = "LOW"  // public reference-software hash set
)

// Benign sources.
const (
	SourceCortexXDR = "CORTEX_XDR"
	SourceNSRL      = "NSRL"
)

// BenignCheckResult answers "is this file hash known-good?". Confidence and
// Source are empty when the hash is not whitelisted.
type BenignCheckResult struct {
	IsBenign   bool             `json:"is_benign"`
	Confidence BenignConfidence `json:"confidence,omitempty"`
	Source     string           `json:"source,omitempty"`
}

// JobStatus is the lifecycle state of an asynchronous investigation.
// Expired is synthetic: it is reported once on the poll that garbage-collects
// a stale terminal job, never stored.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobExpired   JobStatus = "expired"
)

// InvestigationJob tracks one asynchronous investigation run. Result and
// Error are mutually exclusive.
type InvestigationJob struct {
	ID          string               `json:"job_id"`
	IncidentID  string               `json:"incident_id"`
	Status      JobStatus            `json:"status"`
	Progress    int                  `json:"progress"`
	Result      *InvestigationRecord `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j InvestigationJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// Alert is one detection from the upstream evidence collector.
type Alert struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Severity   string    `json:"severity"`
	Category   string    `json:"category,omitempty"`
	Techniques []string  `json:"techniques,omitempty"` // free text, e.g. "T1071.001 - Application Layer Protocol: Web Protocols"
	Timestamp  time.Time `json:"timestamp"`
}

// FileArtifact is a file observed during the incident.
type FileArtifact struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// NetworkEvent is one network connection observed during the incident.
type NetworkEvent struct {
	RemoteIP   string `json:"remote_ip"`
	RemotePort int    `json:"remote_port,omitempty"`
	Domain     string `json:"domain,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
	Direction  string `json:"direction,omitempty"`
}

// ProcessEvent is one process execution observed during the incident.
type ProcessEvent struct {
	Name        string `json:"name"`
	CommandLine string `json:"command_line,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// Endpoint is a host involved in the incident.
type Endpoint struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	OS       string `json:"os,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// Evidence is the raw bundle returned by the evidence collector for one
// incident. It is embedded verbatim in the investigation record.
type Evidence struct {
	Alerts    []Alert        `json:"alerts"`
	Files     []FileArtifact `json:"files"`
	Networks  []NetworkEvent `json:"networks"`
	Processes []ProcessEvent `json:"processes"`
	Endpoints []Endpoint     `json:"endpoints"`
	CVEs      []string       `json:"cves"`
}

// Correlation holds the threat-intelligence enrichment for one incident.
type Correlation struct {
	Files      []IndicatorMatch `json:"files"`
	IPs        []IndicatorMatch `json:"ips"`
	Techniques []TechniqueInfo  `json:"techniques"`
	CVEs       []CveInfo        `json:"cves"`
}

// Summary carries headline counts for one investigation.
type Summary struct {
	TotalAlerts        int `json:"total_alerts"`
	TotalFiles         int `json:"total_files"`
	TotalNetworks      int `json:"total_networks"`
	TotalProcesses     int `json:"total_processes"`
	TotalEndpoints     int `json:"total_endpoints"`
	TotalCVEs          int `json:"total_cves"`
	FilesMatched       int `json:"files_matched"`
	FilesThreat        int `json:"files_threat"`
	IPsMatched         int `json:"ips_matched"`
	IPsThreat          int `json:"ips_threat"`
	TechniquesEnriched int `json:"techniques_enriched"`
	CVEsEnriched       int `json:"cves_enriched"`
}

// InvestigationRecord is the cached, fully-correlated output for one
// incident id.
type InvestigationRecord struct {
	IncidentID    string      `json:"incident_id"`
	Evidence      Evidence    `json:"evidence"`
	TICorrelation Correlation `json:"ti_correlation"`
	Summary       Summary     `json:"summary"`
	GeneratedAt   time.Time   `json:"generated_at"`
}
