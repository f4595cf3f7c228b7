// Package validate is the validation and normalization core. It takes one
// noisy candidate record plus an immutable known-records snapshot and emits
// a deterministic verdict: normalize every field, resolve funding conflicts,
// check for duplicates, then decide ADD, SKIP_EXISTS or REJECT.
//
// The core is pure and total: no I/O, no shared state, and every input —
// including an empty object — terminates in a well-formed Verdict. Retries,
// network calls and persistence belong to the caller.
package validate

import (
	"fmt"
	"strings"

	"startupscout/internal/types"
)

// criticalPrefixes mark the fields whose warnings drag confidence to low.
var criticalPrefixes = []string{"funding.", "leadership."}

// Validate runs the full INTAKE-normalized candidate through NORMALIZE,
// RESOLVE_CONFLICTS, DEDUP_CHECK and EMIT_VERDICT.
func Validate(c types.CandidateRecord, known []types.KnownRecord) types.Verdict {
	return validate(c, known, nil)
}

// ValidateWithIntakeIssues validates a candidate that was decoded elsewhere,
// folding the issues the intake coercion already recorded into the verdict.
func ValidateWithIntakeIssues(c types.CandidateRecord, known []types.KnownRecord, intake []types.Issue) types.Verdict {
	return validate(c, known, intake)
}

// ValidateRaw decodes a raw oracle payload and validates it. Malformed JSON
// never escapes as an error shaped like a crash: it becomes a REJECT verdict
// with a single blocker.
func ValidateRaw(raw []byte, known []types.KnownRecord) types.Verdict {
	in, err := DecodeInput(raw)
	if err != nil {
		return types.Verdict{
			Action:     types.ActionReject,
			Why:        types.Str("candidate payload could not be parsed"),
			Confidence: types.ConfidenceLow,
			Issues: []types.Issue{*blocker("candidate",
				fmt.Sprintf("unparseable candidate payload: %v", err), "")},
		}
	}
	if in.Known != nil {
		known = in.Known
	}
	return validate(in.Candidate, known, in.Issues)
}

func validate(c types.CandidateRecord, known []types.KnownRecord, intakeIssues []types.Issue) types.Verdict {
	// MalformedCandidate: missing identity or provenance rejects immediately,
	// with no further normalization attempted.
	if strings.TrimSpace(c.Startup.Name) == "" {
		return rejectMalformed(c, "startup.name")
	}
	if c.Sources.Primary == nil || strings.TrimSpace(*c.Sources.Primary) == "" {
		return rejectMalformed(c, "sources.primary")
	}

	issues := append([]types.Issue{}, intakeIssues...)
	rec := c
	rec.Startup.Name = strings.TrimSpace(c.Startup.Name)

	// NORMALIZE
	collect := func(is *types.Issue) {
		if is != nil {
			issues = append(issues, *is)
		}
	}

	var is *types.Issue
	rec.Startup.Website, is = normalizeOptionalURL("startup.website", c.Startup.Website)
	collect(is)
	rec.Startup.HQCountry, is = normalizeOptionalCountry("startup.hq_country", c.Startup.HQCountry)
	collect(is)
	rec.Startup.YearFounded, is = normalizeOptionalYear("startup.year_founded", c.Startup.YearFounded)
	collect(is)
	rec.Startup.AITechUsed = NormalizeTags(c.Startup.AITechUsed, AITechTags)
	rec.Startup.NvidiaStackAlignment = NormalizeTags(c.Startup.NvidiaStackAlignment, NvidiaStackTags)

	// RESOLVE_CONFLICTS collapses multi-source funding mentions first, then
	// the surviving scalar fields are normalized like any other.
	rec.Funding, issues = resolveAndNormalizeFunding(rec, issues)

	rec.Leadership.LinkedInURL, is = normalizeOptionalURL("leadership.linkedin_url", c.Leadership.LinkedInURL)
	collect(is)

	rec.Programs.EvidenceURL, is = normalizeOptionalURL("programs.evidence_url", c.Programs.EvidenceURL)
	collect(is)
	if rec.Programs.IsInceptionMember == "" {
		rec.Programs.IsInceptionMember = types.MembershipUnknown
	}
	if rec.Programs.IsInceptionMember == types.MembershipYes && rec.Programs.EvidenceURL == nil {
		issues = append(issues, *warn("programs.evidence_url",
			"inception membership claimed without an evidence URL",
			fmt.Sprintf("re-check: %q NVIDIA Inception member announcement", rec.Startup.Name)))
		rec.Programs.IsInceptionMember = types.MembershipUnknown
	}

	// The primary source is load-bearing: a candidate whose provenance does
	// not survive URL normalization cannot be accepted.
	primary, primaryIssue := NormalizeURL("sources.primary", *c.Sources.Primary)
	if primary == nil {
		msg := "primary source is not a valid absolute URL"
		if primaryIssue != nil {
			msg = primaryIssue.Message
		}
		issues = append(issues, *blocker("sources.primary", msg, ""))
	}
	rec.Sources.Primary = primary
	rec.Sources.Secondary, is = normalizeOptionalURL("sources.secondary", c.Sources.Secondary)
	collect(is)

	// DEDUP_CHECK
	dup, isDup := FindDuplicate(rec.Startup.Name, rec.Startup.Website, known)

	// EMIT_VERDICT
	return emit(rec, issues, dup, isDup)
}

func resolveAndNormalizeFunding(rec types.CandidateRecord, issues []types.Issue) (types.FundingInfo, []types.Issue) {
	funding, conflictIssues := resolveFunding(rec.Funding, rec.Startup.Website, rec.Startup.Name)
	issues = append(issues, conflictIssues...)

	blocked := false
	for _, is := range conflictIssues {
		if is.Severity == types.SeverityBlocker {
			blocked = true
		}
	}
	if !blocked {
		var is *types.Issue
		funding.LastRoundDate, is = normalizeOptionalDate("funding.last_round_date", funding.LastRoundDate)
		if is != nil {
			is.SuggestedFix = types.Str(fmt.Sprintf("re-check: %q latest funding round date", rec.Startup.Name))
			issues = append(issues, *is)
		}
		if funding.LastRoundAmountUSD != nil {
			amount, amtIssue := NormalizeAmount("funding.last_round_amount_usd", *funding.LastRoundAmountUSD)
			funding.LastRoundAmountUSD = amount
			if amtIssue != nil {
				issues = append(issues, *amtIssue)
			}
		}
	}
	return funding, issues
}

func emit(rec types.CandidateRecord, issues []types.Issue, dup types.KnownRecord, isDup bool) types.Verdict {
	v := types.Verdict{Record: rec, Issues: issues}
	v.Confidence = confidenceFor(issues)

	switch {
	case isDup:
		v.Action = types.ActionSkipExists
		v.Why = types.Str(fmt.Sprintf("duplicate of existing record %q (%s) by (name, website)", dup.Name, dup.Website))
	case v.HasBlocker():
		v.Action = types.ActionReject
		v.Why = types.Str("blocking issue on " + firstBlockerField(issues))
	default:
		v.Action = types.ActionAdd
	}
	return v
}

func confidenceFor(issues []types.Issue) types.Confidence {
	if len(issues) == 0 {
		return types.ConfidenceHigh
	}
	for _, is := range issues {
		if is.Severity == types.SeverityInfo {
			continue
		}
		if isCriticalField(is.Field) {
			return types.ConfidenceLow
		}
	}
	return types.ConfidenceMedium
}

func isCriticalField(field string) bool {
	if field == "startup.website" {
		return true
	}
	for _, p := range criticalPrefixes {
		if strings.HasPrefix(field, p) {
			return true
		}
	}
	return false
}

func firstBlockerField(issues []types.Issue) string {
	for _, is := range issues {
		if is.Severity == types.SeverityBlocker {
			return is.Field
		}
	}
	return "unknown"
}

func rejectMalformed(c types.CandidateRecord, field string) types.Verdict {
	return types.Verdict{
		Action:     types.ActionReject,
		Why:        types.Str("missing required field " + field),
		Confidence: types.ConfidenceLow,
		Record:     c,
		Issues: []types.Issue{*blocker(field,
			"required field "+field+" is missing", "")},
	}
}

func normalizeOptionalURL(field string, raw *string) (*string, *types.Issue) {
	if raw == nil {
		return nil, nil
	}
	return NormalizeURL(field, *raw)
}

func normalizeOptionalCountry(field string, raw *string) (*string, *types.Issue) {
	if raw == nil {
		return nil, nil
	}
	return NormalizeCountry(field, *raw)
}

func normalizeOptionalYear(field string, raw *int) (*int, *types.Issue) {
	if raw == nil {
		return nil, nil
	}
	return NormalizeYear(field, *raw)
}
