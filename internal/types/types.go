// Package types defines the shared data model for the scouting pipeline:
// the candidate record produced by the research oracle, the known-record
// snapshot used for dedup, and the verdict emitted by the validation core.
package types

// Action is the terminal decision for a candidate.
type Action string

const (
	ActionAdd        Action = "ADD"
	ActionSkipExists Action = "SKIP_EXISTS"
	ActionReject     Action = "REJECT"
)

// Severity ranks an issue raised during validation.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Confidence grades how trustworthy a normalized record is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Membership is the NVIDIA Inception membership status.
type Membership string

const (
	MembershipYes     Membership = "yes"
	MembershipNo      Membership = "no"
	MembershipUnknown Membership = "unknown"
)

// CandidateRecord is one unvalidated startup description from the research
// oracle. Every field except Startup.Name and Sources.Primary is optional;
// nullable scalars are pointers so "absent" and "empty" stay distinguishable.
type CandidateRecord struct {
	Startup    StartupInfo    `json:"startup"`
	Funding    FundingInfo    `json:"funding"`
	Leadership LeadershipInfo `json:"leadership"`
	Programs   ProgramsInfo   `json:"programs"`
	Sources    SourceInfo     `json:"sources"`
	Notes      *string        `json:"notes,omitempty"`
}

// StartupInfo describes the company itself.
type StartupInfo struct {
	Name                 string   `json:"name"`
	Website              *string  `json:"website"`
	HQCountry            *string  `json:"hq_country"`
	Industry             *string  `json:"industry"`
	YearFounded          *int     `json:"year_founded"`
	AITechUsed           []string `json:"ai_tech_used"`
	NvidiaStackAlignment []string `json:"nvidia_stack_alignment"`
}

// FundingInfo describes the most recent funding round. Mentions carries the
// raw per-source observations when the oracle saw the round reported more
// than once; the conflict resolver collapses them into the scalar fields.
type FundingInfo struct {
	LastRound          *string          `json:"last_round"`
	LastRoundDate      *string          `json:"last_round_date"`
	LastRoundAmountUSD *float64         `json:"last_round_amount_usd"`
	LeadInvestors      []string         `json:"lead_investors"`
	OtherInvestors     []string         `json:"other_investors"`
	Mentions           []FundingMention `json:"mentions,omitempty"`
}

// FundingMention is a single sourced observation of a funding round.
type FundingMention struct {
	Round     *string  `json:"round"`
	Date      *string  `json:"date"`
	AmountUSD *float64 `json:"amount_usd"`
	SourceURL *string  `json:"source_url"`
}

// LeadershipInfo identifies the technical lead.
type LeadershipInfo struct {
	TechnicalLeadName *string `json:"technical_lead_name"`
	Title             *string `json:"title"`
	LinkedInURL       *string `json:"linkedin_url"`
}

// ProgramsInfo records accelerator/program membership claims.
type ProgramsInfo struct {
	IsInceptionMember Membership `json:"is_inception_member"`
	EvidenceURL       *string    `json:"evidence_url"`
	OtherPrograms     []string   `json:"other_programs"`
}

// SourceInfo holds the provenance URLs for the record.
type SourceInfo struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
}

// KnownRecord is the minimal shape of an already-persisted startup, used
// only for dedup. Identity is the composite (normalized name, normalized
// website) key; insertion order of a snapshot is irrelevant.
type KnownRecord struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

// Issue is one problem found while validating a field.
type Issue struct {
	Field        string   `json:"field"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	SuggestedFix *string  `json:"suggested_fix"`
	EvidenceURLs []string `json:"evidence_urls"`
}

// Verdict is the deterministic output of the validation core. It is emitted
// atomically: no field is mutated after Action is computed.
type Verdict struct {
	Action     Action          `json:"action"`
	Why        *string         `json:"why"`
	Confidence Confidence      `json:"confidence"`
	Record     CandidateRecord `json:"record"`
	Issues     []Issue         `json:"issues"`
}

// HasBlocker reports whether any issue carries blocker severity.
func (v *Verdict) HasBlocker() bool {
	for _, is := range v.Issues {
		if is.Severity == SeverityBlocker {
			return true
		}
	}
	return false
}

// Str returns a pointer to s. Candidate fixtures and coercion code build a
// lot of optional strings; this keeps them readable.
func Str(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i.
func Int(i int) *int { return &i }
