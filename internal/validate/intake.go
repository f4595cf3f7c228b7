package validate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"startupscout/internal/types"
)

// Candidate intake. The research oracle returns JSON with no schema
// guarantee: fields arrive as the wrong type, as scalars where lists are
// expected, or not at all. Intake coerces whatever shape shows up into a
// CandidateRecord without ever trusting it, recording an issue wherever a
// present value had to be discarded.

// Input is the full wire shape handed to the validator: one candidate plus
// the known-records snapshot for dedup.
type Input struct {
	Candidate types.CandidateRecord
	Known     []types.KnownRecord
	Issues    []types.Issue
}

// DecodeInput parses either a wrapped {"candidate": ..., "db_startups":
// [...]} payload or a bare candidate object.
func DecodeInput(raw []byte) (Input, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Input{}, fmt.Errorf("candidate payload is not a JSON object: %w", err)
	}

	var in Input
	candidateRaw := raw
	if c, ok := top["candidate"]; ok {
		candidateRaw = c
	}
	cand, issues, err := DecodeCandidate(candidateRaw)
	if err != nil {
		return Input{}, err
	}
	in.Candidate = cand
	in.Issues = issues

	if db, ok := top["db_startups"]; ok {
		var known []types.KnownRecord
		if err := json.Unmarshal(db, &known); err == nil {
			in.Known = known
		}
	}
	return in, nil
}

// DecodeCandidate coerces one candidate object. The error return fires only
// for payloads that are not JSON objects at all; every shape problem inside
// a valid object degrades to nulls plus issues instead.
func DecodeCandidate(raw []byte) (types.CandidateRecord, []types.Issue, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return types.CandidateRecord{}, nil, fmt.Errorf("candidate payload is not a JSON object: %w", err)
	}
	c := coerce{}

	var rec types.CandidateRecord

	startup := c.section(m, "startup")
	rec.Startup = types.StartupInfo{
		Name:                 strings.TrimSpace(c.str(startup, "startup", "name")),
		Website:              c.optStr(startup, "startup", "website"),
		HQCountry:            c.optStr(startup, "startup", "hq_country"),
		Industry:             c.optStr(startup, "startup", "industry"),
		YearFounded:          c.optInt(startup, "startup", "year_founded"),
		AITechUsed:           c.strList(startup, "startup", "ai_tech_used"),
		NvidiaStackAlignment: c.strList(startup, "startup", "nvidia_stack_alignment"),
	}

	funding := c.section(m, "funding")
	rec.Funding = types.FundingInfo{
		LastRound:          c.optStr(funding, "funding", "last_round"),
		LastRoundDate:      c.optStr(funding, "funding", "last_round_date"),
		LastRoundAmountUSD: c.optAmount(funding, "funding", "last_round_amount_usd"),
		LeadInvestors:      c.strList(funding, "funding", "lead_investors"),
		OtherInvestors:     c.strList(funding, "funding", "other_investors"),
		Mentions:           c.mentions(funding),
	}

	leadership := c.section(m, "leadership")
	rec.Leadership = types.LeadershipInfo{
		TechnicalLeadName: c.optStr(leadership, "leadership", "technical_lead_name"),
		Title:             c.optStr(leadership, "leadership", "title"),
		LinkedInURL:       c.optStr(leadership, "leadership", "linkedin_url"),
	}

	programs := c.section(m, "programs")
	rec.Programs = types.ProgramsInfo{
		IsInceptionMember: NormalizeMembership(c.str(programs, "programs", "is_inception_member")),
		EvidenceURL:       c.optStr(programs, "programs", "evidence_url"),
		OtherPrograms:     c.strList(programs, "programs", "other_programs"),
	}

	sources := c.section(m, "sources")
	rec.Sources = types.SourceInfo{
		Primary:   c.optStr(sources, "sources", "primary"),
		Secondary: c.optStr(sources, "sources", "secondary"),
	}
	rec.Notes = c.optStr(m, "", "notes")

	return rec, c.issues, nil
}

// coerce accumulates issues while pulling loosely-typed values out of maps.
type coerce struct {
	issues []types.Issue
}

func fieldPath(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}

func (c *coerce) section(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	sub, ok := v.(map[string]any)
	if !ok {
		c.issues = append(c.issues, *warn(key, fmt.Sprintf("expected an object for %q", key), ""))
		return nil
	}
	return sub
}

func (c *coerce) str(m map[string]any, section, key string) string {
	s := c.optStr(m, section, key)
	if s == nil {
		return ""
	}
	return *s
}

func (c *coerce) optStr(m map[string]any, section, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case string:
		t := strings.TrimSpace(s)
		if t == "" || strings.EqualFold(t, "null") || (strings.EqualFold(t, "unknown") && key != "is_inception_member") {
			return nil
		}
		return &t
	case float64:
		t := strconv.FormatFloat(s, 'f', -1, 64)
		return &t
	default:
		c.issues = append(c.issues, *warn(fieldPath(section, key),
			fmt.Sprintf("expected a string for %s", fieldPath(section, key)), ""))
		return nil
	}
}

func (c *coerce) optInt(m map[string]any, section, key string) *int {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &i
		}
	}
	c.issues = append(c.issues, *warn(fieldPath(section, key),
		fmt.Sprintf("expected a number for %s", fieldPath(section, key)), ""))
	return nil
}

// optAmount accepts a JSON number or a trivially recoverable money string
// ("5M", "$5,000,000"). Anything else is nulled with a warning.
func (c *coerce) optAmount(m map[string]any, section, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if amt, ok := ParseAmount(n); ok {
			return &amt
		}
		c.issues = append(c.issues, *warn(fieldPath(section, key),
			fmt.Sprintf("unparseable funding amount %q", n),
			"re-check the round size in USD from the funding announcement"))
		return nil
	default:
		c.issues = append(c.issues, *warn(fieldPath(section, key),
			fmt.Sprintf("expected a number for %s", fieldPath(section, key)), ""))
		return nil
	}
}

func (c *coerce) strList(m map[string]any, section, key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch l := v.(type) {
	case []any:
		var out []string
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				c.issues = append(c.issues, *warn(fieldPath(section, key),
					fmt.Sprintf("expected a string element in %s", fieldPath(section, key)), ""))
				continue
			}
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		}
		return out
	case string:
		// A bare string where a list belongs is a one-element list.
		if t := strings.TrimSpace(l); t != "" {
			return []string{t}
		}
		return nil
	default:
		c.issues = append(c.issues, *warn(fieldPath(section, key),
			fmt.Sprintf("expected a list for %s", fieldPath(section, key)), ""))
		return nil
	}
}

func (c *coerce) mentions(funding map[string]any) []types.FundingMention {
	v, ok := funding["mentions"]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		c.issues = append(c.issues, *warn("funding.mentions", "expected a list for funding.mentions", ""))
		return nil
	}
	var out []types.FundingMention
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, types.FundingMention{
			Round:     c.optStr(m, "funding.mentions", "round"),
			Date:      c.optStr(m, "funding.mentions", "date"),
			AmountUSD: c.optAmount(m, "funding.mentions", "amount_usd"),
			SourceURL: c.optStr(m, "funding.mentions", "source_url"),
		})
	}
	return out
}
