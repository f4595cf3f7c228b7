package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupscout/internal/types"
)

func cromaiCandidate() types.CandidateRecord {
	return types.CandidateRecord{
		Startup: types.StartupInfo{
			Name:                 "Cromai",
			Website:              types.Str("https://cromai.com"),
			HQCountry:            types.Str("Brazil"),
			Industry:             types.Str("AgTech"),
			YearFounded:          types.Int(2017),
			AITechUsed:           []string{"CV", "GenAI"},
			NvidiaStackAlignment: []string{"CUDA", "TensorRT"},
		},
		Funding: types.FundingInfo{
			LastRound:          types.Str("Series A"),
			LastRoundDate:      types.Str("2024-06-15"),
			LastRoundAmountUSD: types.Float(5_000_000),
			LeadInvestors:      []string{"Fund X"},
		},
		Leadership: types.LeadershipInfo{
			TechnicalLeadName: types.Str("Jane Doe"),
			Title:             types.Str("CTO"),
			LinkedInURL:       types.Str("https://www.linkedin.com/in/jane"),
		},
		Programs: types.ProgramsInfo{IsInceptionMember: types.MembershipUnknown},
		Sources:  types.SourceInfo{Primary: types.Str("https://cromai.com")},
	}
}

func TestValidate_CleanCandidateAdds(t *testing.T) {
	v := Validate(cromaiCandidate(), nil)

	assert.Equal(t, types.ActionAdd, v.Action)
	assert.Equal(t, types.ConfidenceHigh, v.Confidence)
	assert.Empty(t, v.Issues)

	require.NotNil(t, v.Record.Funding.LastRoundDate)
	assert.Equal(t, "2024-06-15", *v.Record.Funding.LastRoundDate)
	require.NotNil(t, v.Record.Startup.HQCountry)
	assert.Equal(t, "BR", *v.Record.Startup.HQCountry)
	assert.Equal(t, []string{"cv", "genai"}, v.Record.Startup.AITechUsed)
	assert.Equal(t, []string{"cuda", "tensorrt"}, v.Record.Startup.NvidiaStackAlignment)
}

func TestValidate_DuplicateSkips(t *testing.T) {
	known := []types.KnownRecord{{Name: "Cromai", Website: "https://cromai.com"}}
	v := Validate(cromaiCandidate(), known)

	assert.Equal(t, types.ActionSkipExists, v.Action)
	require.NotNil(t, v.Why)
	assert.Contains(t, *v.Why, "Cromai")
	assert.Contains(t, *v.Why, "name, website")
}

func TestValidate_SameNameNilWebsiteIsNotDuplicate(t *testing.T) {
	known := []types.KnownRecord{{Name: "Cromai", Website: "https://cromai.com"}}
	c := cromaiCandidate()
	c.Startup.Website = nil
	v := Validate(c, known)
	assert.NotEqual(t, types.ActionSkipExists, v.Action)
}

func TestValidate_UnparseableDateNullsWithIssue(t *testing.T) {
	c := cromaiCandidate()
	c.Funding.LastRoundDate = types.Str("15th of June")
	v := Validate(c, nil)

	assert.Nil(t, v.Record.Funding.LastRoundDate)
	var found bool
	for _, is := range v.Issues {
		if is.Field == "funding.last_round_date" {
			found = true
			assert.Equal(t, types.SeverityWarning, is.Severity)
			require.NotNil(t, is.SuggestedFix)
			assert.Contains(t, *is.SuggestedFix, "Cromai")
		}
	}
	assert.True(t, found, "expected an issue on funding.last_round_date")

	// A warning on a funding field is a warning on a critical field.
	assert.Equal(t, types.ConfidenceLow, v.Confidence)
	assert.Equal(t, types.ActionAdd, v.Action)
}

func TestValidate_UnparseableDateWithMentionKeepsIssue(t *testing.T) {
	// The mentions path must not swallow the date-parse issue: a nulled
	// last_round_date drags confidence down even when an agreeing mention
	// resolved the amount cleanly.
	c := cromaiCandidate()
	c.Funding.LastRoundDate = types.Str("15th of June")
	c.Funding.Mentions = []types.FundingMention{
		{AmountUSD: types.Float(5_000_000), SourceURL: types.Str("https://news.example.com/a")},
	}
	v := Validate(c, nil)

	assert.Equal(t, types.ActionAdd, v.Action)
	assert.Nil(t, v.Record.Funding.LastRoundDate)
	var found bool
	for _, is := range v.Issues {
		if is.Field == "funding.last_round_date" {
			found = true
			assert.Equal(t, types.SeverityWarning, is.Severity)
		}
	}
	assert.True(t, found, "expected an issue on funding.last_round_date")
	assert.Equal(t, types.ConfidenceLow, v.Confidence)
}

func TestValidate_MissingPrimarySourceRejects(t *testing.T) {
	c := cromaiCandidate()
	c.Sources.Primary = nil
	v := Validate(c, nil)

	assert.Equal(t, types.ActionReject, v.Action)
	require.Len(t, v.Issues, 1)
	assert.Equal(t, "sources.primary", v.Issues[0].Field)
	assert.Equal(t, types.SeverityBlocker, v.Issues[0].Severity)
	// No further normalization was attempted.
	require.NotNil(t, v.Record.Startup.HQCountry)
	assert.Equal(t, "Brazil", *v.Record.Startup.HQCountry)
}

func TestValidate_MissingNameRejects(t *testing.T) {
	c := cromaiCandidate()
	c.Startup.Name = "   "
	v := Validate(c, nil)

	assert.Equal(t, types.ActionReject, v.Action)
	require.Len(t, v.Issues, 1)
	assert.Equal(t, "startup.name", v.Issues[0].Field)
	assert.Equal(t, types.SeverityBlocker, v.Issues[0].Severity)
}

func TestValidate_EmptyCandidateStillTerminates(t *testing.T) {
	v := Validate(types.CandidateRecord{}, nil)
	assert.Equal(t, types.ActionReject, v.Action)
	assert.True(t, v.HasBlocker())
}

func TestValidate_RejectRequiresBlocker(t *testing.T) {
	// Conflicting aggregator-only mentions force a blocker and a REJECT.
	c := cromaiCandidate()
	c.Funding.LastRoundDate = nil
	c.Funding.LastRoundAmountUSD = nil
	c.Funding.Mentions = []types.FundingMention{
		{Date: types.Str("2024-06-15"), AmountUSD: types.Float(4_000_000), SourceURL: types.Str("https://agg1.example.com")},
		{Date: types.Str("2024-06-15"), AmountUSD: types.Float(5_000_000), SourceURL: types.Str("https://agg2.example.com")},
	}
	v := Validate(c, nil)
	assert.Equal(t, types.ActionReject, v.Action)
	assert.True(t, v.HasBlocker())
	assert.Nil(t, v.Record.Funding.LastRoundAmountUSD)
}

func TestValidate_SkipExistsOutranksReject(t *testing.T) {
	known := []types.KnownRecord{{Name: "Cromai", Website: "https://cromai.com"}}
	c := cromaiCandidate()
	c.Funding.Mentions = []types.FundingMention{
		{Date: types.Str("2024-06-15"), AmountUSD: types.Float(4_000_000), SourceURL: types.Str("https://agg1.example.com")},
		{Date: types.Str("2024-06-15"), AmountUSD: types.Float(5_000_000), SourceURL: types.Str("https://agg2.example.com")},
	}
	v := Validate(c, known)
	assert.Equal(t, types.ActionSkipExists, v.Action)
	assert.True(t, v.HasBlocker(), "blocker issues are still reported on a skip")
}

func TestValidate_MalformedWebsiteNullsWithIssue(t *testing.T) {
	c := cromaiCandidate()
	c.Startup.Website = types.Str("not a url")
	v := Validate(c, nil)

	assert.Nil(t, v.Record.Startup.Website)
	var found bool
	for _, is := range v.Issues {
		if is.Field == "startup.website" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, types.ConfidenceLow, v.Confidence, "website is a critical field")
}

func TestValidate_InceptionClaimWithoutEvidence(t *testing.T) {
	c := cromaiCandidate()
	c.Programs.IsInceptionMember = types.MembershipYes
	c.Programs.EvidenceURL = nil
	v := Validate(c, nil)

	assert.Equal(t, types.MembershipUnknown, v.Record.Programs.IsInceptionMember)
	var found bool
	for _, is := range v.Issues {
		if is.Field == "programs.evidence_url" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_AddRequiresFields(t *testing.T) {
	// The primary source URL failing normalization must block the ADD.
	c := cromaiCandidate()
	c.Sources.Primary = types.Str("cromai dot com")
	v := Validate(c, nil)

	assert.Equal(t, types.ActionReject, v.Action)
	assert.Nil(t, v.Record.Sources.Primary)
}

func TestValidate_ConfidenceMediumOnNonCriticalIssues(t *testing.T) {
	c := cromaiCandidate()
	c.Startup.HQCountry = types.Str("Atlantis") // info-level issue
	v := Validate(c, nil)
	assert.Equal(t, types.ActionAdd, v.Action)
	assert.Equal(t, types.ConfidenceMedium, v.Confidence)
}

func TestValidateRaw_WireFormat(t *testing.T) {
	payload := `{
	  "candidate": {
	    "startup": {"name": "Cromai", "website": "https://cromai.com", "hq_country": "Brazil"},
	    "funding": {"last_round_date": "2024-06-15", "last_round_amount_usd": "5M"},
	    "sources": {"primary": "https://cromai.com"}
	  },
	  "db_startups": []
	}`
	v := ValidateRaw([]byte(payload), nil)

	assert.Equal(t, types.ActionAdd, v.Action)
	require.NotNil(t, v.Record.Funding.LastRoundAmountUSD)
	assert.Equal(t, 5_000_000.0, *v.Record.Funding.LastRoundAmountUSD)
	require.NotNil(t, v.Record.Startup.HQCountry)
	assert.Equal(t, "BR", *v.Record.Startup.HQCountry)
}

func TestValidateRaw_SnapshotFromPayload(t *testing.T) {
	payload := `{
	  "candidate": {
	    "startup": {"name": "Cromai", "website": "https://cromai.com"},
	    "sources": {"primary": "https://cromai.com"}
	  },
	  "db_startups": [{"name": "Cromai", "website": "https://cromai.com"}]
	}`
	v := ValidateRaw([]byte(payload), nil)
	assert.Equal(t, types.ActionSkipExists, v.Action)
}

func TestValidateRaw_GarbageNeverPanics(t *testing.T) {
	for _, raw := range []string{"", "not json", "[]", `"a string"`, "{", `{"candidate": 42}`} {
		v := ValidateRaw([]byte(raw), nil)
		assert.Equal(t, types.ActionReject, v.Action, "payload %q", raw)
		assert.True(t, v.HasBlocker(), "payload %q", raw)
	}
}

func TestVerdict_SerializesToContract(t *testing.T) {
	v := Validate(cromaiCandidate(), nil)
	out, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "ADD", decoded["action"])
	assert.Contains(t, decoded, "confidence")
	assert.Contains(t, decoded, "record")
	assert.Contains(t, decoded, "issues")
}
