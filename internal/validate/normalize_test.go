package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupscout/internal/types"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string // "" means nil expected
	}{
		{"already ISO", "2024-06-15", "2024-06-15"},
		{"slash ymd", "2024/06/15", "2024-06-15"},
		{"long month", "June 15, 2024", "2024-06-15"},
		{"short month", "Jun 15, 2024", "2024-06-15"},
		{"day first text", "15 June 2024", "2024-06-15"},
		{"day over twelve", "15/06/2024", "2024-06-15"},
		{"month day year numeric", "06/15/2024", "2024-06-15"},
		{"timestamp", "2024-06-15T10:30:00Z", "2024-06-15"},
		{"unparseable", "15th of June", ""},
		{"ambiguous numeric", "05/06/2024", ""},
		{"garbage", "soon", ""},
		{"impossible day", "2024-02-31", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, issue := NormalizeDate("funding.last_round_date", tc.in)
			if tc.want == "" {
				assert.Nil(t, got)
				require.NotNil(t, issue, "a nulled date must carry an issue")
				assert.Equal(t, types.SeverityWarning, issue.Severity)
				assert.Equal(t, "funding.last_round_date", issue.Field)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tc.want, *got)
				assert.Nil(t, issue)
			}
		})
	}
}

func TestNormalizeDate_Idempotent(t *testing.T) {
	first, issue := NormalizeDate("f", "June 15, 2024")
	require.NotNil(t, first)
	require.Nil(t, issue)

	second, issue := NormalizeDate("f", *first)
	require.NotNil(t, second)
	assert.Nil(t, issue)
	assert.Equal(t, *first, *second)
}

func TestNormalizeCountry(t *testing.T) {
	t.Run("common names", func(t *testing.T) {
		for in, want := range map[string]string{
			"Brazil": "BR", "Brasil": "BR", "México": "MX", "mexico": "MX",
			"Argentina": "AR", "Chile": "CL", "Colombia": "CO",
			"United States": "US", "usa": "US",
		} {
			got, issue := NormalizeCountry("startup.hq_country", in)
			require.NotNil(t, got, "input %q", in)
			assert.Equal(t, want, *got)
			assert.Nil(t, issue)
		}
	})

	t.Run("already alpha-2 is unchanged", func(t *testing.T) {
		got, issue := NormalizeCountry("startup.hq_country", "BR")
		require.NotNil(t, got)
		assert.Equal(t, "BR", *got)
		assert.Nil(t, issue)
	})

	t.Run("ambiguous flags for review", func(t *testing.T) {
		got, issue := NormalizeCountry("startup.hq_country", "Latin America")
		assert.Nil(t, got)
		require.NotNil(t, issue)
		assert.Equal(t, types.SeverityWarning, issue.Severity)
	})

	t.Run("unmapped gets info issue", func(t *testing.T) {
		got, issue := NormalizeCountry("startup.hq_country", "Atlantis")
		assert.Nil(t, got)
		require.NotNil(t, issue)
		assert.Equal(t, types.SeverityInfo, issue.Severity)
	})
}

func TestNormalizeURL(t *testing.T) {
	t.Run("canonical passes through", func(t *testing.T) {
		got, issue := NormalizeURL("startup.website", "https://cromai.com")
		require.NotNil(t, got)
		assert.Equal(t, "https://cromai.com", *got)
		assert.Nil(t, issue)
	})

	t.Run("host and scheme are lowercased", func(t *testing.T) {
		got, _ := NormalizeURL("startup.website", "HTTPS://Cromai.COM/About")
		require.NotNil(t, got)
		assert.Equal(t, "https://cromai.com/About", *got)
	})

	t.Run("lone trailing slash dropped", func(t *testing.T) {
		got, _ := NormalizeURL("startup.website", "https://cromai.com/")
		require.NotNil(t, got)
		assert.Equal(t, "https://cromai.com", *got)
	})

	t.Run("relative URL rejected with suggestion", func(t *testing.T) {
		got, issue := NormalizeURL("startup.website", "cromai.com")
		assert.Nil(t, got)
		require.NotNil(t, issue)
		require.NotNil(t, issue.SuggestedFix)
		assert.Equal(t, "https://cromai.com", *issue.SuggestedFix)
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		got, issue := NormalizeURL("startup.website", "ftp://cromai.com")
		assert.Nil(t, got)
		require.NotNil(t, issue)
	})

	t.Run("plain http kept, not invented into https", func(t *testing.T) {
		got, issue := NormalizeURL("startup.website", "http://cromai.com")
		require.NotNil(t, got)
		assert.Equal(t, "http://cromai.com", *got)
		assert.Nil(t, issue)
	})
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"5M":           5_000_000,
		"$5,000,000":   5_000_000,
		"US$ 1.2 billion": 1_200_000_000,
		"500k":         500_000,
		"3.5mm":        3_500_000,
		"1200000":      1_200_000,
	}
	for in, want := range cases {
		got, ok := ParseAmount(in)
		require.True(t, ok, "input %q", in)
		assert.InDelta(t, want, got, 0.01, "input %q", in)
	}

	for _, in := range []string{"", "undisclosed", "a lot", "-5M", "5M-10M"} {
		_, ok := ParseAmount(in)
		assert.False(t, ok, "input %q should not parse", in)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Run("vocabulary codes pass through lowercased", func(t *testing.T) {
		got := NormalizeTags([]string{"CV", "GenAI"}, AITechTags)
		assert.Equal(t, []string{"cv", "genai"}, got)
	})

	t.Run("free text maps via aliases and substrings", func(t *testing.T) {
		got := NormalizeTags([]string{"Computer Vision", "natural language processing", "CUDA acceleration"}, AITechTags)
		assert.Equal(t, []string{"cv", "nlp"}, got)
	})

	t.Run("nvidia stack", func(t *testing.T) {
		got := NormalizeTags([]string{"CUDA", "TensorRT", "Triton Inference Server"}, NvidiaStackTags)
		assert.Equal(t, []string{"cuda", "tensorrt", "triton"}, got)
	})

	t.Run("unrecognized tags dropped silently", func(t *testing.T) {
		got := NormalizeTags([]string{"blockchain", "web3"}, AITechTags)
		assert.Empty(t, got)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		got := NormalizeTags([]string{"cv", "computer vision", "CV "}, AITechTags)
		assert.Equal(t, []string{"cv"}, got)
	})

	t.Run("idempotent on normalized input", func(t *testing.T) {
		once := NormalizeTags([]string{"Computer Vision", "GenAI"}, AITechTags)
		twice := NormalizeTags(once, AITechTags)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("normalization not idempotent (-once +twice):\n%s", diff)
		}
	})
}

func TestNormalizeMembership(t *testing.T) {
	assert.Equal(t, types.MembershipYes, NormalizeMembership("Yes"))
	assert.Equal(t, types.MembershipNo, NormalizeMembership("no"))
	assert.Equal(t, types.MembershipUnknown, NormalizeMembership(""))
	assert.Equal(t, types.MembershipUnknown, NormalizeMembership("probably"))
}
